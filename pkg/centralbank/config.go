package centralbank

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/esseedoubleyou/goldmonitor/pkg/confkit"
)

const (
	defaultDataFile      = "data/cb_purchases.csv"
	defaultStateFile     = "data/wgc_state.json"
	defaultCheckInterval = 6 * time.Hour

	envTelegramToken  = "TELEGRAM_BOT_TOKEN"
	envTelegramChatID = "TELEGRAM_CHAT_ID"
)

// TelegramConf carries the alert channel credentials for the WGC watcher.
// Leaving the token empty disables Telegram delivery.
type TelegramConf struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// Config drives the curated store and the WGC report watcher.
type Config struct {
	DataFile  string `yaml:"data_file"`
	StateFile string `yaml:"state_file"`
	StaleDays int    `yaml:"stale_days"`
	ReportURL string `yaml:"report_url"`

	CheckIntervalRaw string        `yaml:"check_interval"`
	CheckInterval    time.Duration `yaml:"-"`

	Telegram TelegramConf `yaml:"telegram"`
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open centralbank config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read centralbank config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal centralbank config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.parseCheckInterval(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the built-in watcher settings. Telegram credentials
// are taken from the environment when present.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvOverrides(); err != nil {
		cfg.Telegram = TelegramConf{}
	}
	cfg.CheckInterval = defaultCheckInterval
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.DataFile) == "" {
		c.DataFile = defaultDataFile
	}
	if strings.TrimSpace(c.StateFile) == "" {
		c.StateFile = defaultStateFile
	}
	if c.StaleDays == 0 {
		c.StaleDays = DefaultStaleDays
	}
	if strings.TrimSpace(c.ReportURL) == "" {
		c.ReportURL = DefaultReportURL
	}
}

func (c *Config) applyEnvOverrides() error {
	c.DataFile = strings.TrimSpace(os.ExpandEnv(c.DataFile))
	c.StateFile = strings.TrimSpace(os.ExpandEnv(c.StateFile))
	c.ReportURL = strings.TrimSpace(os.ExpandEnv(c.ReportURL))
	c.CheckIntervalRaw = strings.TrimSpace(os.ExpandEnv(c.CheckIntervalRaw))
	c.Telegram.Token = strings.TrimSpace(os.ExpandEnv(c.Telegram.Token))

	if v := strings.TrimSpace(os.Getenv(envTelegramToken)); v != "" {
		c.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(envTelegramChatID)); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("centralbank config: invalid %s %q: %w", envTelegramChatID, v, err)
		}
		c.Telegram.ChatID = id
	}
	return nil
}

func (c *Config) parseCheckInterval() error {
	if c.CheckIntervalRaw == "" {
		c.CheckInterval = defaultCheckInterval
		return nil
	}
	d, err := time.ParseDuration(c.CheckIntervalRaw)
	if err != nil {
		return fmt.Errorf("centralbank config: invalid check_interval %q: %w", c.CheckIntervalRaw, err)
	}
	if d <= 0 {
		return fmt.Errorf("centralbank config: check_interval must be positive, got %s", d)
	}
	c.CheckInterval = d
	return nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	if c.DataFile == "" {
		return fmt.Errorf("centralbank config: data_file is required")
	}
	if c.StateFile == "" {
		return fmt.Errorf("centralbank config: state_file is required")
	}
	if c.StaleDays <= 0 {
		return fmt.Errorf("centralbank config: stale_days must be positive, got %d", c.StaleDays)
	}
	if c.ReportURL == "" {
		return fmt.Errorf("centralbank config: report_url is required")
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("centralbank config: telegram chat_id required when token is set")
	}
	return nil
}
