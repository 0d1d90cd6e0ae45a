package config

import (
	"github.com/esseedoubleyou/goldmonitor/pkg/centralbank"
	"github.com/esseedoubleyou/goldmonitor/pkg/market"
	"github.com/esseedoubleyou/goldmonitor/pkg/narrative"
	"github.com/esseedoubleyou/goldmonitor/pkg/regime"
)

// MustLoadMarket loads etc/market.yaml from the project root and panics on
// error. It isolates the provider bindings so callers that only fetch series
// do not need the other sections.
func MustLoadMarket() *market.Config {
	return market.MustLoad()
}

// MarketConfig returns the hydrated market section, falling back to the
// built-in provider bindings when no section file was configured.
func (c *Config) MarketConfig() *market.Config {
	if c.Market.Value != nil {
		return c.Market.Value
	}
	return market.DefaultConfig()
}

// RegimeConfig returns the hydrated scoring weights or the defaults.
func (c *Config) RegimeConfig() regime.Config {
	if c.Regime.Value != nil {
		return *c.Regime.Value
	}
	return regime.DefaultConfig()
}

// NarrativeConfig returns the hydrated narrative section or the defaults.
// With no section file and no OPENAI_API_KEY in the environment the returned
// config is disabled and synthesis falls back to the deterministic text.
func (c *Config) NarrativeConfig() *narrative.Config {
	if c.Narrative.Value != nil {
		return c.Narrative.Value
	}
	return narrative.DefaultConfig()
}

// CentralBankConfig returns the hydrated central bank section or the defaults.
func (c *Config) CentralBankConfig() *centralbank.Config {
	if c.CentralBank.Value != nil {
		return c.CentralBank.Value
	}
	return centralbank.DefaultConfig()
}
