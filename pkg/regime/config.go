package regime

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MomentumRule holds the thresholds and weights for one 30-day momentum
// category. Thresholds are fractional moves (0.02 means 2%); weights are
// positive magnitudes, signed by direction at evaluation time.
type MomentumRule struct {
	SharpThreshold float64 `yaml:"sharp_threshold"`
	SharpWeight    float64 `yaml:"sharp_weight"`
	MildWeight     float64 `yaml:"mild_weight"`
}

// CentralBankRule holds the tonnage breakpoints for the quarterly category.
type CentralBankRule struct {
	StrongTonnes   float64 `yaml:"strong_tonnes"`
	ModerateTonnes float64 `yaml:"moderate_tonnes"`
	StrongWeight   float64 `yaml:"strong_weight"`
	ModerateWeight float64 `yaml:"moderate_weight"`
	SellingPenalty float64 `yaml:"selling_penalty"`
}

// ValuationRule holds the real-price z-score bands.
type ValuationRule struct {
	OvervaluedZ       float64 `yaml:"overvalued_z"`
	ElevatedZ         float64 `yaml:"elevated_z"`
	UndervaluedZ      float64 `yaml:"undervalued_z"`
	OvervaluedPenalty float64 `yaml:"overvalued_penalty"`
}

// Bands holds the score cutoffs for the assessment ladder, evaluated
// first-match in the order bullish, mildly bullish, bearish, mildly bearish.
type Bands struct {
	Bullish       float64 `yaml:"bullish"`
	MildlyBullish float64 `yaml:"mildly_bullish"`
	Bearish       float64 `yaml:"bearish"`
	MildlyBearish float64 `yaml:"mildly_bearish"`
}

// Config carries every scoring threshold and weight, so boundary values are
// testable and tunable without touching the algorithm.
type Config struct {
	RealYield   MomentumRule    `yaml:"real_yield"`
	Dollar      MomentumRule    `yaml:"dollar"`
	CentralBank CentralBankRule `yaml:"central_bank"`
	Valuation   ValuationRule   `yaml:"valuation"`
	Bands       Bands           `yaml:"bands"`
}

// DefaultConfig returns the standard tuning: real yields dominate at ±2/±1,
// the dollar at ±1.5/±0.75, central banks at +2/+1/−1 around 250t and 100t,
// and stretched valuation claws back one point past a 1.5 z-score.
func DefaultConfig() Config {
	return Config{
		RealYield: MomentumRule{
			SharpThreshold: 0.02,
			SharpWeight:    2,
			MildWeight:     1,
		},
		Dollar: MomentumRule{
			SharpThreshold: 0.02,
			SharpWeight:    1.5,
			MildWeight:     0.75,
		},
		CentralBank: CentralBankRule{
			StrongTonnes:   250,
			ModerateTonnes: 100,
			StrongWeight:   2,
			ModerateWeight: 1,
			SellingPenalty: 1,
		},
		Valuation: ValuationRule{
			OvervaluedZ:       1.5,
			ElevatedZ:         1.0,
			UndervaluedZ:      -1.0,
			OvervaluedPenalty: 1,
		},
		Bands: Bands{
			Bullish:       3,
			MildlyBullish: 1,
			Bearish:       -3,
			MildlyBearish: -1,
		},
	}
}

// Validate rejects tunings the algorithm cannot evaluate coherently.
func (c Config) Validate() error {
	for name, rule := range map[string]MomentumRule{"real_yield": c.RealYield, "dollar": c.Dollar} {
		if rule.SharpThreshold <= 0 {
			return fmt.Errorf("regime config: %s sharp_threshold must be positive", name)
		}
		if rule.SharpWeight < rule.MildWeight {
			return fmt.Errorf("regime config: %s sharp_weight must be >= mild_weight", name)
		}
		if rule.MildWeight <= 0 {
			return fmt.Errorf("regime config: %s mild_weight must be positive", name)
		}
	}
	if c.CentralBank.StrongTonnes <= c.CentralBank.ModerateTonnes {
		return fmt.Errorf("regime config: strong_tonnes must exceed moderate_tonnes")
	}
	if c.CentralBank.StrongWeight < c.CentralBank.ModerateWeight {
		return fmt.Errorf("regime config: central bank strong_weight must be >= moderate_weight")
	}
	if c.Valuation.OvervaluedZ <= c.Valuation.ElevatedZ {
		return fmt.Errorf("regime config: overvalued_z must exceed elevated_z")
	}
	if c.Valuation.UndervaluedZ >= 0 {
		return fmt.Errorf("regime config: undervalued_z must be negative")
	}
	if !(c.Bands.Bullish > c.Bands.MildlyBullish &&
		c.Bands.MildlyBullish > c.Bands.MildlyBearish &&
		c.Bands.MildlyBearish > c.Bands.Bearish) {
		return fmt.Errorf("regime config: bands must be strictly ordered bullish > mildly_bullish > mildly_bearish > bearish")
	}
	return nil
}

// LoadConfig reads a yaml tuning file, layering it over the defaults. An
// empty path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read regime config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse regime config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
