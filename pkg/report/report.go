// Package report renders the monthly markdown report from the metric
// snapshot, regime score, curated central-bank signal, and synthesized
// narrative, and writes it under the reports directory with YYYY-MM naming.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/template"
	"time"

	"github.com/esseedoubleyou/goldmonitor/pkg/centralbank"
	"github.com/esseedoubleyou/goldmonitor/pkg/metrics"
	"github.com/esseedoubleyou/goldmonitor/pkg/regime"
)

const (
	dateLayout  = "2006-01-02"
	stampLayout = "2006-01-02 15:04:05"
)

// Input bundles everything one report draws on. Tuning supplies the scoring
// thresholds so the methodology section always matches the tuning the score
// was computed with.
type Input struct {
	Snapshot    *metrics.Snapshot
	Score       regime.Score
	Tuning      regime.Config
	Signal      centralbank.Signal
	Narrative   string
	GeneratedAt time.Time
}

// Renderer executes the report template.
type Renderer struct {
	tmpl *template.Template
}

// Option configures the renderer.
type Option func(*rendererConfig)

type rendererConfig struct {
	templateFile string
}

// WithTemplateFile overrides the built-in report template.
func WithTemplateFile(path string) Option {
	return func(cfg *rendererConfig) {
		cfg.templateFile = path
	}
}

// NewRenderer parses the report template, from disk when overridden.
func NewRenderer(opts ...Option) (*Renderer, error) {
	var cfg rendererConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	text := defaultTemplate
	name := "report"
	if cfg.templateFile != "" {
		data, err := os.ReadFile(cfg.templateFile)
		if err != nil {
			return nil, fmt.Errorf("report: read template %q: %w", cfg.templateFile, err)
		}
		text = string(data)
		name = filepath.Base(cfg.templateFile)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Funcs(funcMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("report: parse template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render produces the complete markdown document.
func (r *Renderer) Render(in Input) (string, error) {
	if in.Snapshot == nil {
		in.Snapshot = &metrics.Snapshot{}
	}
	if in.GeneratedAt.IsZero() {
		in.GeneratedAt = time.Now()
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, newView(in)); err != nil {
		return "", fmt.Errorf("report: execute template: %w", err)
	}
	return buf.String(), nil
}

// Save writes the report under dir as <yyyy>-<mm>-gold.md, creating the
// directory when needed, and returns the written path.
func Save(dir string, asOf time.Time, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create report dir: %w", err)
	}
	path := filepath.Join(dir, asOf.Format("2006-01")+"-gold.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("report: write report: %w", err)
	}
	return path, nil
}

type cbView struct {
	Missing   bool
	Errored   bool
	Message   string
	Quarter   string
	Tonnes    string
	Source    string
	Validated string
	FreshIcon string
	StaleNote string
	Interp    string
}

type view struct {
	Month     string
	Generated string
	Narrative string

	Score      float64
	Assessment string
	Conviction string
	Action     string
	Components []regime.Component

	RealYieldPoints   string
	DollarPoints      string
	CentralBankPoints string
	ValuationPenalty  string
	OvervaluedZ       string
	BandBullish       string
	BandMildlyBullish string
	BandMildlyBearish string
	BandBearish       string

	RealYieldCurrent    *float64
	RealYieldMomentum30 *float64
	RealYieldMomentum90 *float64
	RealYieldInterp     string

	DXYCurrent    *float64
	DXYMomentum30 *float64
	DXYMomentum90 *float64
	DollarInterp  string

	VIXCurrent  *float64
	GPRCurrent  *float64
	Environment string

	GoldSpot        *float64
	GoldMomentum30  *float64
	RealGoldPrice   *float64
	RealGoldZScore  *float64
	ValuationInterp string
	GoldSPRatio     *float64

	GLDShares *float64
	Breakeven *float64

	CB cbView

	DataStart  string
	DataEnd    string
	DataDays   string
	ComputedAt string
}

func newView(in Input) view {
	snap := in.Snapshot

	v := view{
		Month:     in.GeneratedAt.Format("January 2006"),
		Generated: in.GeneratedAt.Format(stampLayout),
		Narrative: in.Narrative,

		Score:      in.Score.Value,
		Assessment: string(in.Score.Assessment),
		Conviction: in.Score.Conviction,
		Action:     in.Score.Action,
		Components: in.Score.Components,

		RealYieldPoints:   trimFloat(in.Tuning.RealYield.SharpWeight),
		DollarPoints:      trimFloat(in.Tuning.Dollar.SharpWeight),
		CentralBankPoints: trimFloat(in.Tuning.CentralBank.StrongWeight),
		ValuationPenalty:  trimFloat(in.Tuning.Valuation.OvervaluedPenalty),
		OvervaluedZ:       trimFloat(in.Tuning.Valuation.OvervaluedZ),
		BandBullish:       fmt.Sprintf("%+g", in.Tuning.Bands.Bullish),
		BandMildlyBullish: fmt.Sprintf("%+g", in.Tuning.Bands.MildlyBullish),
		BandMildlyBearish: fmt.Sprintf("%+g", in.Tuning.Bands.MildlyBearish),
		BandBearish:       fmt.Sprintf("%+g", in.Tuning.Bands.Bearish),

		RealYieldCurrent:    value(snap, metrics.CurrentKey(metrics.MetricRealYield)),
		RealYieldMomentum30: value(snap, metrics.MomentumKey(metrics.MetricRealYield, "30d")),
		RealYieldMomentum90: value(snap, metrics.MomentumKey(metrics.MetricRealYield, "90d")),

		DXYCurrent:    value(snap, metrics.CurrentKey(metrics.MetricDollarIndex)),
		DXYMomentum30: value(snap, metrics.MomentumKey(metrics.MetricDollarIndex, "30d")),
		DXYMomentum90: value(snap, metrics.MomentumKey(metrics.MetricDollarIndex, "90d")),

		VIXCurrent: value(snap, metrics.CurrentKey(metrics.MetricVIX)),
		GPRCurrent: value(snap, metrics.CurrentKey(metrics.MetricGPR)),

		GoldSpot:       value(snap, metrics.CurrentKey(metrics.MetricGoldSpot)),
		GoldMomentum30: value(snap, metrics.MomentumKey(metrics.MetricGoldSpot, "30d")),
		RealGoldPrice:  value(snap, metrics.KeyRealGoldPriceCurrent),
		RealGoldZScore: value(snap, metrics.KeyRealGoldZScore),
		GoldSPRatio:    value(snap, metrics.KeyGoldSPRatio),

		GLDShares: value(snap, metrics.KeyGLDSharesCurrent),
		Breakeven: value(snap, metrics.KeyBreakevenInflation),

		DataStart:  formatDate(snap.Window.Start),
		DataEnd:    formatDate(snap.Window.End),
		DataDays:   strconv.Itoa(snap.Window.Days),
		ComputedAt: formatStamp(snap.Window.ComputedAt),
	}

	v.RealYieldInterp = momentumInterp(v.RealYieldMomentum30,
		"Falling real yields = bullish for gold",
		"Rising real yields = bearish for gold")
	v.DollarInterp = momentumInterp(v.DXYMomentum30,
		"Weakening USD = bullish for gold",
		"Strengthening USD = bearish for gold")

	switch {
	case v.VIXCurrent == nil:
		v.Environment = "N/A"
	case *v.VIXCurrent > 20:
		v.Environment = "Elevated risk (VIX >20)"
	default:
		v.Environment = "Normal risk levels"
	}

	v.ValuationInterp = valuationInterp(snap, v.RealGoldZScore, in.Tuning.Valuation)
	v.CB = newCBView(in.Signal, in.Tuning.CentralBank)

	return v
}

func newCBView(sig centralbank.Signal, rule regime.CentralBankRule) cbView {
	switch sig.Status {
	case centralbank.StatusCurrent, centralbank.StatusStale:
	case centralbank.StatusError:
		msg := sig.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return cbView{Errored: true, Message: msg}
	default:
		msg := sig.Message
		if msg == "" {
			msg = "Initialize the curated store with: cbdata -init"
		}
		return cbView{Missing: true, Message: msg}
	}

	v := cbView{
		Quarter:   sig.Quarter,
		Tonnes:    strconv.FormatFloat(sig.Tonnes, 'f', 1, 64),
		Source:    sig.Source,
		Validated: formatDate(sig.ValidatedAt),
		FreshIcon: "✅",
	}
	if v.Source == "" {
		v.Source = "N/A"
	}
	if sig.IsStale {
		v.FreshIcon = "⚠️"
		v.StaleNote = fmt.Sprintf("\n\n⚠️ **Data is %d days old - check for new WGC report**", sig.DaysOld)
	}

	switch {
	case sig.Tonnes > rule.StrongTonnes:
		v.Interp = "Strong structural buying"
	case sig.Tonnes > rule.ModerateTonnes:
		v.Interp = "Moderate buying"
	case sig.Tonnes > 0:
		v.Interp = "Weak buying"
	default:
		v.Interp = "Net selling"
	}
	return v
}

func momentumInterp(m *float64, falling, rising string) string {
	if m == nil {
		return "No 30-day reading"
	}
	if *m < 0 {
		return falling
	}
	return rising
}

func valuationInterp(snap *metrics.Snapshot, z *float64, rule regime.ValuationRule) string {
	if z == nil {
		if note, ok := snap.Note(metrics.KeyRealGoldZScore); ok {
			return note
		}
		return "Insufficient history for z-score"
	}
	switch {
	case *z > rule.OvervaluedZ:
		return "⚠️ Significantly overvalued vs 5Y average"
	case *z > rule.ElevatedZ:
		return "⚠️ Moderately overvalued vs 5Y average"
	case *z < rule.UndervaluedZ:
		return "💡 Undervalued vs 5Y average"
	default:
		return "Fair value range"
	}
}

func value(snap *metrics.Snapshot, key string) *float64 {
	if v, ok := snap.Value(key); ok {
		return &v
	}
	return nil
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(dateLayout)
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(stampLayout)
}
