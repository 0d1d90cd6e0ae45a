package regime

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadTunings(t *testing.T) {
	cases := map[string]func(*Config){
		"zero sharp threshold":  func(c *Config) { c.RealYield.SharpThreshold = 0 },
		"mild above sharp":      func(c *Config) { c.Dollar.MildWeight = 5 },
		"tonnage order":         func(c *Config) { c.CentralBank.StrongTonnes = 50 },
		"valuation order":       func(c *Config) { c.Valuation.OvervaluedZ = 0.5 },
		"positive undervalued":  func(c *Config) { c.Valuation.UndervaluedZ = 1 },
		"unordered bands":       func(c *Config) { c.Bands.MildlyBullish = 4 },
		"bearish above bullish": func(c *Config) { c.Bands.Bearish = 5 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadConfigLayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regime.yaml")
	yaml := []byte(`
central_bank:
  strong_tonnes: 200
  moderate_tonnes: 80
  strong_weight: 2
  moderate_weight: 1
  selling_penalty: 1
`)
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write regime.yaml: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.CentralBank.StrongTonnes != 200 {
		t.Fatalf("strong_tonnes = %.0f, want 200", cfg.CentralBank.StrongTonnes)
	}
	// Untouched sections keep their defaults.
	if cfg.RealYield.SharpWeight != 2 {
		t.Fatalf("real_yield sharp_weight = %.2f, want default 2", cfg.RealYield.SharpWeight)
	}
	if cfg.Bands.Bullish != 3 {
		t.Fatalf("bands.bullish = %.2f, want default 3", cfg.Bands.Bullish)
	}
}

func TestLoadConfigEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatal("empty path should return defaults")
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regime.yaml")
	yaml := []byte("real_yield:\n  sharp_threshold: -1\n")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write regime.yaml: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error")
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}
