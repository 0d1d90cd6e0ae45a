package narrative

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL             = "https://api.openai.com/v1"
	defaultModel               = "gpt-4o"
	defaultMaxCompletionTokens = 1500
	defaultTemperature         = 0.7
	defaultTimeout             = 60 * time.Second
	defaultMaxRetries          = 3

	envAPIKey     = "OPENAI_API_KEY"
	envBaseURL    = "OPENAI_BASE_URL"
	envModel      = "OPENAI_MODEL"
	envTimeout    = "OPENAI_TIMEOUT"
	envMaxRetries = "OPENAI_MAX_RETRIES"
)

// Config holds runtime settings for the synthesis client. An empty APIKey is
// not an error: it marks synthesis as disabled and every run uses the
// deterministic fallback instead.
type Config struct {
	BaseURL             string        `yaml:"base_url"`
	APIKey              string        `yaml:"api_key"`
	Model               string        `yaml:"model"`
	MaxCompletionTokens int           `yaml:"max_completion_tokens"`
	Temperature         float64       `yaml:"temperature"`
	Timeout             time.Duration `yaml:"-"`
	MaxRetries          int           `yaml:"max_retries"`
	// PromptFile overrides the built-in analysis prompt template.
	PromptFile string `yaml:"prompt_file"`

	timeoutRaw string
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open narrative config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from a reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	var raw struct {
		BaseURL             string   `yaml:"base_url"`
		APIKey              string   `yaml:"api_key"`
		Model               string   `yaml:"model"`
		MaxCompletionTokens int      `yaml:"max_completion_tokens"`
		Temperature         *float64 `yaml:"temperature"`
		Timeout             string   `yaml:"timeout"`
		MaxRetries          int      `yaml:"max_retries"`
		PromptFile          string   `yaml:"prompt_file"`
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read narrative config: %w", err)
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal narrative config: %w", err)
	}

	cfg := &Config{
		BaseURL:             raw.BaseURL,
		APIKey:              raw.APIKey,
		Model:               raw.Model,
		MaxCompletionTokens: raw.MaxCompletionTokens,
		Temperature:         defaultTemperature,
		MaxRetries:          raw.MaxRetries,
		PromptFile:          raw.PromptFile,
		timeoutRaw:          raw.Timeout,
	}
	if raw.Temperature != nil {
		cfg.Temperature = *raw.Temperature
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	if err := cfg.parseTimeout(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns the built-in settings, with the API key taken from
// the environment. Callers that never touch a config file use this.
func DefaultConfig() *Config {
	cfg := &Config{Temperature: defaultTemperature}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	cfg.Timeout = defaultTimeout
	if cfg.timeoutRaw != "" {
		_ = cfg.parseTimeout()
	}
	return cfg
}

// Enabled reports whether an API key is present. Without one the synthesizer
// skips the remote call entirely.
func (c *Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// Validate checks that the client settings are usable. The API key is
// deliberately not required here.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("narrative config: base_url is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("narrative config: model is required")
	}
	if c.MaxCompletionTokens <= 0 {
		return errors.New("narrative config: max_completion_tokens must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("narrative config: temperature %v out of range [0, 2]", c.Temperature)
	}
	if c.Timeout <= 0 {
		return errors.New("narrative config: timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("narrative config: max_retries cannot be negative")
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = defaultModel
	}
	if c.MaxCompletionTokens <= 0 {
		c.MaxCompletionTokens = defaultMaxCompletionTokens
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
}

func (c *Config) applyEnvOverrides() {
	c.BaseURL = expandAndOverride(c.BaseURL, envBaseURL)
	c.APIKey = expandAndOverride(c.APIKey, envAPIKey)
	c.Model = expandAndOverride(c.Model, envModel)

	if raw := os.Getenv(envTimeout); raw != "" {
		c.timeoutRaw = raw
	} else {
		c.timeoutRaw = os.ExpandEnv(c.timeoutRaw)
	}

	if raw := os.Getenv(envMaxRetries); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			c.MaxRetries = v
		}
	}
}

func (c *Config) parseTimeout() error {
	if strings.TrimSpace(c.timeoutRaw) == "" {
		c.Timeout = defaultTimeout
		return nil
	}

	d, err := time.ParseDuration(c.timeoutRaw)
	if err != nil {
		return fmt.Errorf("narrative config: invalid timeout %q: %w", c.timeoutRaw, err)
	}
	if d <= 0 {
		return fmt.Errorf("narrative config: timeout must be positive, got %s", d)
	}
	c.Timeout = d
	return nil
}

func expandAndOverride(current, envKey string) string {
	current = os.ExpandEnv(current)
	if envVal := os.Getenv(envKey); envVal != "" {
		return envVal
	}
	return current
}
