// Package market fetches the observation series behind each monitored metric
// from external data providers. Providers register themselves by type name;
// configuration binds each metric to an ordered fallback chain of
// provider/symbol pairs.
package market

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/esseedoubleyou/goldmonitor/pkg/confkit"
)

// Config describes the available data providers and the per-metric source chains.
type Config struct {
	Default      string                     `yaml:"default"`
	SharesSymbol string                     `yaml:"shares_symbol"`
	Providers    map[string]*ProviderConfig `yaml:"providers"`
	Series       map[string][]SourceRef     `yaml:"series"`
}

// ProviderConfig represents configuration for a single data provider.
type ProviderConfig struct {
	Type string `yaml:"type"`

	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`

	TimeoutRaw     string        `yaml:"timeout"`
	Timeout        time.Duration `yaml:"-"`
	HTTPTimeoutRaw string        `yaml:"http_timeout"`
	HTTPTimeout    time.Duration `yaml:"-"`
	MaxRetries     int           `yaml:"max_retries"`
	RateLimit      float64       `yaml:"rate_limit"`
}

// SourceRef names one link of a metric's fallback chain. Scale multiplies
// every observation, covering proxy instruments quoted in different units.
type SourceRef struct {
	Provider string  `yaml:"provider"`
	Symbol   string  `yaml:"symbol"`
	Scale    float64 `yaml:"scale"`
}

// ProviderBuilder constructs a Provider from configuration.
type ProviderBuilder func(name string, cfg *ProviderConfig) (Provider, error)

var (
	providerRegistry   = make(map[string]ProviderBuilder)
	providerRegistryMu sync.RWMutex
)

// RegisterProvider registers a data provider constructor.
func RegisterProvider(typeName string, builder ProviderBuilder) {
	providerRegistryMu.Lock()
	defer providerRegistryMu.Unlock()
	providerRegistry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

func lookupProviderBuilder(typeName string) (ProviderBuilder, bool) {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()
	builder, ok := providerRegistry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open market config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// MustLoad reads market configuration from the default project location and panics on error.
func MustLoad() *Config {
	path := confkit.MustProjectPath("etc/market.yaml")
	cfg, err := LoadConfig(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read market config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal market config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the built-in provider and series bindings used when no
// market config file is supplied. The FRED key is taken from FRED_API_KEY.
func DefaultConfig() *Config {
	cfg := &Config{
		Default:      "yahoo",
		SharesSymbol: "GLD",
		Providers: map[string]*ProviderConfig{
			"fred":  {Type: "fred", APIKey: os.Getenv("FRED_API_KEY")},
			"yahoo": {Type: "yahoo"},
		},
		Series: map[string][]SourceRef{
			"real_yield":    {{Provider: "fred", Symbol: "DFII10"}},
			"nominal_yield": {{Provider: "fred", Symbol: "DGS10"}},
			"dxy":           {{Provider: "fred", Symbol: "DTWEXBGS"}},
			"gold_spot": {
				{Provider: "fred", Symbol: "GOLDPMGBD228NLBM"},
				{Provider: "yahoo", Symbol: "XAUUSD=X"},
				{Provider: "yahoo", Symbol: "GC=F"},
				{Provider: "yahoo", Symbol: "GLD", Scale: 10},
			},
			"sp500": {{Provider: "fred", Symbol: "SP500"}},
			"cpi":   {{Provider: "fred", Symbol: "CPIAUCSL"}},
			"vix":   {{Provider: "yahoo", Symbol: "^VIX"}},
			"gpr":   {{Provider: "fred", Symbol: "GEPUPPP"}},
		},
	}
	// No raw durations present, so normalisation cannot fail here.
	_ = cfg.normalise()
	return cfg
}

func (c *Config) normalise() error {
	if c.Providers == nil {
		c.Providers = make(map[string]*ProviderConfig)
	}
	for name, provider := range c.Providers {
		if provider == nil {
			provider = &ProviderConfig{}
			c.Providers[name] = provider
		}
		provider.expandEnv()
		if err := provider.parseDurations(name); err != nil {
			return err
		}
	}
	if c.Series == nil {
		c.Series = make(map[string][]SourceRef)
	}
	if c.SharesSymbol == "" {
		c.SharesSymbol = "GLD"
	}
	for metric, chain := range c.Series {
		for i := range chain {
			chain[i].Provider = strings.TrimSpace(os.ExpandEnv(chain[i].Provider))
			chain[i].Symbol = strings.TrimSpace(os.ExpandEnv(chain[i].Symbol))
			if chain[i].Provider == "" {
				chain[i].Provider = c.Default
			}
			if chain[i].Scale == 0 {
				chain[i].Scale = 1
			}
		}
		c.Series[metric] = chain
	}
	return nil
}

func (p *ProviderConfig) expandEnv() {
	p.Type = strings.TrimSpace(os.ExpandEnv(p.Type))
	p.BaseURL = strings.TrimSpace(os.ExpandEnv(p.BaseURL))
	p.APIKey = strings.TrimSpace(os.ExpandEnv(p.APIKey))
	p.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(p.TimeoutRaw))
	p.HTTPTimeoutRaw = strings.TrimSpace(os.ExpandEnv(p.HTTPTimeoutRaw))
}

func (p *ProviderConfig) parseDurations(name string) error {
	if p.TimeoutRaw != "" {
		d, err := time.ParseDuration(p.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("market provider %s: invalid timeout %q: %w", name, p.TimeoutRaw, err)
		}
		if d <= 0 {
			return fmt.Errorf("market provider %s: timeout must be positive, got %s", name, d)
		}
		p.Timeout = d
	}
	if p.HTTPTimeoutRaw != "" {
		d, err := time.ParseDuration(p.HTTPTimeoutRaw)
		if err != nil {
			return fmt.Errorf("market provider %s: invalid http_timeout %q: %w", name, p.HTTPTimeoutRaw, err)
		}
		if d <= 0 {
			return fmt.Errorf("market provider %s: http_timeout must be positive, got %s", name, d)
		}
		p.HTTPTimeout = d
	}
	return nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("market config: providers cannot be empty")
	}
	if c.Default != "" {
		if _, ok := c.Providers[c.Default]; !ok {
			return fmt.Errorf("market config: default provider %q not defined", c.Default)
		}
	}
	for name, provider := range c.Providers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("market config: provider name cannot be empty")
		}
		if err := provider.validate(name); err != nil {
			return err
		}
	}
	for metric, chain := range c.Series {
		if strings.TrimSpace(metric) == "" {
			return fmt.Errorf("market config: series name cannot be empty")
		}
		if len(chain) == 0 {
			return fmt.Errorf("market config: series %s has no sources", metric)
		}
		for i, src := range chain {
			if src.Provider == "" {
				return fmt.Errorf("market config: series %s source %d names no provider and no default is set", metric, i)
			}
			if _, ok := c.Providers[src.Provider]; !ok {
				return fmt.Errorf("market config: series %s references undefined provider %q", metric, src.Provider)
			}
			if src.Symbol == "" {
				return fmt.Errorf("market config: series %s source %d has no symbol", metric, i)
			}
			if src.Scale <= 0 {
				return fmt.Errorf("market config: series %s source %d has non-positive scale", metric, i)
			}
		}
	}
	return nil
}

func (p *ProviderConfig) validate(name string) error {
	if p == nil {
		return fmt.Errorf("market config: provider %s is nil", name)
	}
	if strings.TrimSpace(p.Type) == "" {
		return fmt.Errorf("market config: provider %s must specify type", name)
	}
	if _, ok := lookupProviderBuilder(p.Type); !ok {
		return fmt.Errorf("market config: provider %s has unsupported type %q", name, p.Type)
	}
	return nil
}

// BuildProviders instantiates data providers according to configuration.
func (c *Config) BuildProviders() (map[string]Provider, error) {
	result := make(map[string]Provider, len(c.Providers))
	for name, providerCfg := range c.Providers {
		builder, ok := lookupProviderBuilder(providerCfg.Type)
		if !ok {
			return nil, fmt.Errorf("market provider %s: unsupported type %q", name, providerCfg.Type)
		}
		provider, err := builder(name, providerCfg)
		if err != nil {
			return nil, fmt.Errorf("market provider %s: %w", name, err)
		}
		result[name] = provider
	}
	return result, nil
}

// BuildAvailableProviders instantiates every provider that can be built and
// reports the ones that cannot, keyed by provider name. Fetch chains skip
// sources whose provider is absent, so a missing credential degrades that
// provider's series instead of the whole gateway.
func (c *Config) BuildAvailableProviders() (map[string]Provider, map[string]error) {
	result := make(map[string]Provider, len(c.Providers))
	failed := make(map[string]error)
	for name, providerCfg := range c.Providers {
		builder, ok := lookupProviderBuilder(providerCfg.Type)
		if !ok {
			failed[name] = fmt.Errorf("unsupported type %q", providerCfg.Type)
			continue
		}
		provider, err := builder(name, providerCfg)
		if err != nil {
			failed[name] = err
			continue
		}
		result[name] = provider
	}
	return result, failed
}
