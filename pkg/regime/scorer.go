// Package regime classifies the prevailing gold market regime from a metric
// snapshot and the curated quarterly central-bank signal. The scorer is a
// pure function: no I/O, no randomness, no state between calls. Identical
// inputs always produce identical output.
package regime

import (
	"fmt"
	"math"

	"github.com/esseedoubleyou/goldmonitor/pkg/centralbank"
	"github.com/esseedoubleyou/goldmonitor/pkg/metrics"
)

// SignalKind is the direction marker attached to each scoring component.
// Rendering (icons, colors) lives in the report layer; the scorer emits only
// the kind.
type SignalKind int

const (
	SignalNeutral SignalKind = iota
	SignalBullish
	SignalBearish
	SignalWarning
	SignalInsight
)

func (k SignalKind) String() string {
	switch k {
	case SignalBullish:
		return "bullish"
	case SignalBearish:
		return "bearish"
	case SignalWarning:
		return "warning"
	case SignalInsight:
		return "insight"
	default:
		return "neutral"
	}
}

// Component is one contribution to the composite score, in evaluation order.
type Component struct {
	Label  string     `json:"label"`
	Weight float64    `json:"weight"`
	Signal SignalKind `json:"signal"`
}

// Band is the discrete regime classification.
type Band string

const (
	BandBullish       Band = "BULLISH"
	BandMildlyBullish Band = "MILDLY BULLISH"
	BandNeutral       Band = "NEUTRAL"
	BandMildlyBearish Band = "MILDLY BEARISH"
	BandBearish       Band = "BEARISH"
)

// Score is the full scoring result: composite value, fixed-order component
// breakdown, and the band with its enumerated conviction and action texts.
type Score struct {
	Value      float64     `json:"score"`
	Assessment Band        `json:"assessment"`
	Conviction string      `json:"conviction"`
	Action     string      `json:"action"`
	Components []Component `json:"components"`
}

// Scorer evaluates the four fixed categories with injected thresholds.
type Scorer struct {
	cfg Config
}

// NewScorer validates the tuning and returns a scorer.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// MustNewScorer is NewScorer for the default-config path, panicking on an
// invalid tuning.
func MustNewScorer(cfg Config) *Scorer {
	s, err := NewScorer(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// Score evaluates the categories in their fixed order: real yields, dollar,
// central bank, valuation. Missing inputs degrade exactly as documented:
// absent momentum emits no component, absent central-bank data emits a
// zero-weight warning, and fair valuation stays silent while the other
// categories emit explicit "stable" entries.
func (s *Scorer) Score(snap *metrics.Snapshot, sig centralbank.Signal) Score {
	total := 0.0
	components := make([]Component, 0, 4)

	add := func(label string, weight float64, kind SignalKind) {
		total += weight
		components = append(components, Component{Label: label, Weight: weight, Signal: kind})
	}

	if m, ok := snap.Value(metrics.KeyRealYieldMomentum30d); ok {
		cfg := s.cfg.RealYield
		switch {
		case m < -cfg.SharpThreshold:
			add("Real yields falling sharply", +cfg.SharpWeight, SignalBullish)
		case m < 0:
			add("Real yields falling", +cfg.MildWeight, SignalBullish)
		case m > cfg.SharpThreshold:
			add("Real yields rising sharply", -cfg.SharpWeight, SignalBearish)
		case m > 0:
			add("Real yields rising", -cfg.MildWeight, SignalBearish)
		default:
			add("Real yields stable", 0, SignalNeutral)
		}
	}

	if m, ok := snap.Value(metrics.KeyDollarMomentum30d); ok {
		cfg := s.cfg.Dollar
		switch {
		case m < -cfg.SharpThreshold:
			add("USD weakening sharply", +cfg.SharpWeight, SignalBullish)
		case m < 0:
			add("USD weakening", +cfg.MildWeight, SignalBullish)
		case m > cfg.SharpThreshold:
			add("USD strengthening sharply", -cfg.SharpWeight, SignalBearish)
		case m > 0:
			add("USD strengthening", -cfg.MildWeight, SignalBearish)
		default:
			add("USD stable", 0, SignalNeutral)
		}
	}

	switch sig.Status {
	case centralbank.StatusCurrent, centralbank.StatusStale:
		cfg := s.cfg.CentralBank
		switch {
		case sig.IsStale:
			add(fmt.Sprintf("CB data stale (%d days)", sig.DaysOld), 0, SignalWarning)
		case sig.Tonnes > cfg.StrongTonnes:
			add(fmt.Sprintf("Strong CB buying >%.0ft", cfg.StrongTonnes), +cfg.StrongWeight, SignalBullish)
		case sig.Tonnes > cfg.ModerateTonnes:
			add("Moderate CB buying", +cfg.ModerateWeight, SignalBullish)
		case sig.Tonnes < 0:
			add("CB selling", -cfg.SellingPenalty, SignalBearish)
		default:
			add("Weak CB buying", 0, SignalNeutral)
		}
	default:
		add("CB data missing", 0, SignalWarning)
	}

	if z, ok := snap.Value(metrics.KeyRealGoldZScore); ok {
		cfg := s.cfg.Valuation
		switch {
		case z > cfg.OvervaluedZ:
			add(fmt.Sprintf("Overvalued (z-score >%.1f)", cfg.OvervaluedZ), -cfg.OvervaluedPenalty, SignalWarning)
		case z > cfg.ElevatedZ:
			add(fmt.Sprintf("Elevated valuation (z-score >%.1f)", cfg.ElevatedZ), 0, SignalWarning)
		case z < cfg.UndervaluedZ:
			add(fmt.Sprintf("Undervalued (z-score <%.1f)", cfg.UndervaluedZ), 0, SignalInsight)
		}
		// Fair value is deliberately silent, unlike the explicit "stable"
		// entries above.
	}

	value := math.Round(total*100) / 100

	var (
		band       Band
		conviction string
		action     string
	)
	switch {
	case value >= s.cfg.Bands.Bullish:
		band, conviction, action = BandBullish, "High conviction for long position", "Consider increasing allocation"
	case value >= s.cfg.Bands.MildlyBullish:
		band, conviction, action = BandMildlyBullish, "Moderate conviction", "Maintain or slightly increase position"
	case value <= s.cfg.Bands.Bearish:
		band, conviction, action = BandBearish, "High conviction bearish", "Consider reducing position"
	case value <= s.cfg.Bands.MildlyBearish:
		band, conviction, action = BandMildlyBearish, "Caution warranted", "Maintain or reduce exposure"
	default:
		band, conviction, action = BandNeutral, "Mixed signals", "Hold current position"
	}

	return Score{
		Value:      value,
		Assessment: band,
		Conviction: conviction,
		Action:     action,
		Components: components,
	}
}
