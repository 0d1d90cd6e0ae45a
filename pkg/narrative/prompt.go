package narrative

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/esseedoubleyou/goldmonitor/pkg/centralbank"
	"github.com/esseedoubleyou/goldmonitor/pkg/metrics"
	"github.com/esseedoubleyou/goldmonitor/pkg/regime"
)

const systemPrompt = "You are a macro analyst specializing in gold markets. Provide concise, actionable analysis for position decisions."

const dateLayout = "2006-01-02"

// defaultPromptText is the built-in analysis prompt. Every data point is
// preformatted into the view so the template stays free of float logic; a
// metric the snapshot could not derive renders as N/A rather than zero.
const defaultPromptText = `You are analyzing gold market data to inform a monthly position decision. Focus on SUSTAINED trend changes (not daily noise) and regime implications.

## Current Market State (as of {{.AsOf}})

### Key Drivers

**Real Interest Rates (Primary Gold Driver)**
- Current 10Y TIPS Yield: {{.RealYieldCurrent}}%
- 30-day change: {{.RealYieldChange30}}
- 90-day change: {{.RealYieldChange90}}
- Direction: {{.RealYieldDirection}}

**US Dollar Strength**
- Current DXY: {{.DollarCurrent}}
- 30-day change: {{.DollarChange30}}
- 90-day change: {{.DollarChange90}}
- Direction: {{.DollarDirection}}

**Market Sentiment**
- VIX: {{.VIXCurrent}}
- Geopolitical Risk Index: {{.GPRCurrent}}
- Risk environment: {{.RiskEnvironment}}

**Central Bank Activity**
- Latest quarter: {{.CBQuarter}}
- Net purchases: {{.CBTonnes}} tonnes
- Data freshness: {{.CBFreshness}}
- Context: {{.CBContext}}

### Valuation Metrics

**Gold Price**
- Spot: ${{.GoldSpot}}
- Real (inflation-adjusted): ${{.RealGoldPrice}}
- Real gold z-score (5Y): {{.RealGoldZScore}}
  * Z-score interpretation: {{.ValuationRead}}

**Relative Performance**
- Gold/S&P 500 ratio: {{.GoldSPRatio}}
- 30-day gold return: {{.GoldChange30}}
- Trend: {{.RelativeTrend}}

### Regime Score: {{.Score}} ({{.Assessment}})

**Components:**
{{range .Components}}
{{.Glyph}} {{.Label}}: {{.Weight}}{{end}}

**Interpretation:** {{.Conviction}}
**Suggested action:** {{.Action}}

### Data Quality
- Data window: {{.DataDays}} days
- Period: {{.DataStart}} to {{.DataEnd}}

## Your Task

Provide a concise, actionable analysis structured as:

**1. What Changed (2-3 sentences)**
- Identify the most significant trend shifts in the past 30 days
- Note any correlation anomalies (e.g., gold rallying despite rising yields)
- Focus on regime-level changes, not daily volatility

**2. Why It Matters (2-3 sentences)**
- Explain the macro regime implications
- Connect to gold's fundamental drivers (real yields, USD, risk sentiment, CB buying)
- Distinguish between cyclical noise and structural shifts

**3. Position Implications (2-3 sentences)**
- State conviction level based on the regime score ({{.Score}})
- Suggest position action: {{.Action}}
- Note any key risks or catalysts to monitor

## Style Guidelines
- Be direct and avoid hedging language
- Use specific numbers from the data
- Write for an experienced investor who understands gold fundamentals
- Focus on what's actionable for a monthly rebalancing decision
- If signals are mixed, explain the conflict clearly

Keep the entire response to 3-5 paragraphs (~300-400 words).
`

type componentLine struct {
	Glyph  string
	Label  string
	Weight string
}

type promptView struct {
	AsOf string

	RealYieldCurrent   string
	RealYieldChange30  string
	RealYieldChange90  string
	RealYieldDirection string

	DollarCurrent   string
	DollarChange30  string
	DollarChange90  string
	DollarDirection string

	VIXCurrent      string
	GPRCurrent      string
	RiskEnvironment string

	CBQuarter   string
	CBTonnes    string
	CBFreshness string
	CBContext   string

	GoldSpot       string
	RealGoldPrice  string
	RealGoldZScore string
	ValuationRead  string

	GoldSPRatio   string
	GoldChange30  string
	RelativeTrend string

	Score      string
	Assessment string
	Conviction string
	Action     string
	Components []componentLine

	DataDays  string
	DataStart string
	DataEnd   string
}

func loadPromptTemplate(path string) (*template.Template, error) {
	text := defaultPromptText
	name := "narrative"
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("narrative: read prompt template %q: %w", path, err)
		}
		text = string(data)
		name = filepath.Base(path)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("narrative: parse prompt template: %w", err)
	}
	return tmpl, nil
}

func renderPrompt(tmpl *template.Template, in Input) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newPromptView(in)); err != nil {
		return "", fmt.Errorf("narrative: execute prompt template: %w", err)
	}
	return buf.String(), nil
}

func newPromptView(in Input) promptView {
	snap := in.Snapshot

	v := promptView{
		AsOf:       fmtDate(snap.Window.End),
		Score:      fmtScore(in.Score.Value),
		Assessment: string(in.Score.Assessment),
		Conviction: in.Score.Conviction,
		Action:     in.Score.Action,
		DataDays:   strconv.Itoa(snap.Window.Days),
		DataStart:  fmtDate(snap.Window.Start),
		DataEnd:    fmtDate(snap.Window.End),
	}

	v.RealYieldCurrent = numAt(snap, metrics.CurrentKey(metrics.MetricRealYield), 2)
	v.RealYieldChange30 = pctAt(snap, metrics.MomentumKey(metrics.MetricRealYield, "30d"))
	v.RealYieldChange90 = pctAt(snap, metrics.MomentumKey(metrics.MetricRealYield, "90d"))
	if m, ok := snap.Value(metrics.MomentumKey(metrics.MetricRealYield, "30d")); ok {
		if m < 0 {
			v.RealYieldDirection = "Falling (bullish for gold)"
		} else {
			v.RealYieldDirection = "Rising (bearish for gold)"
		}
	} else {
		v.RealYieldDirection = "N/A"
	}

	v.DollarCurrent = numAt(snap, metrics.CurrentKey(metrics.MetricDollarIndex), 2)
	v.DollarChange30 = pctAt(snap, metrics.MomentumKey(metrics.MetricDollarIndex, "30d"))
	v.DollarChange90 = pctAt(snap, metrics.MomentumKey(metrics.MetricDollarIndex, "90d"))
	if m, ok := snap.Value(metrics.MomentumKey(metrics.MetricDollarIndex, "30d")); ok {
		if m < 0 {
			v.DollarDirection = "Weakening (bullish for gold)"
		} else {
			v.DollarDirection = "Strengthening (bearish for gold)"
		}
	} else {
		v.DollarDirection = "N/A"
	}

	v.VIXCurrent = numAt(snap, metrics.CurrentKey(metrics.MetricVIX), 2)
	v.GPRCurrent = numAt(snap, metrics.CurrentKey(metrics.MetricGPR), 1)
	if vix, ok := snap.Value(metrics.CurrentKey(metrics.MetricVIX)); ok {
		if vix > 20 {
			v.RiskEnvironment = "Elevated"
		} else {
			v.RiskEnvironment = "Normal"
		}
	} else {
		v.RiskEnvironment = "N/A"
	}

	switch in.Signal.Status {
	case centralbank.StatusCurrent, centralbank.StatusStale:
		v.CBQuarter = in.Signal.Quarter
		v.CBTonnes = strconv.FormatFloat(in.Signal.Tonnes, 'f', 1, 64)
		mark := "✓"
		if in.Signal.IsStale {
			mark = "⚠️ STALE"
		}
		v.CBFreshness = fmt.Sprintf("%d days old %s", in.Signal.DaysOld, mark)
		switch {
		case in.Signal.Tonnes > 250:
			v.CBContext = "Strong buying (>250t)"
		case in.Signal.Tonnes < 0:
			v.CBContext = "Net selling"
		default:
			v.CBContext = "Moderate buying"
		}
	default:
		v.CBQuarter = "N/A"
		v.CBTonnes = "N/A"
		v.CBFreshness = "N/A"
		v.CBContext = "No curated data"
	}

	v.GoldSpot = numAt(snap, metrics.CurrentKey(metrics.MetricGoldSpot), 2)
	v.RealGoldPrice = numAt(snap, metrics.KeyRealGoldPriceCurrent, 2)
	if z, ok := snap.Value(metrics.KeyRealGoldZScore); ok {
		v.RealGoldZScore = strconv.FormatFloat(z, 'f', 2, 64)
		switch {
		case z > 1.0:
			v.ValuationRead = "Overvalued"
		case z < -1.0:
			v.ValuationRead = "Undervalued"
		default:
			v.ValuationRead = "Fair value"
		}
	} else {
		v.RealGoldZScore = "N/A"
		v.ValuationRead = "N/A"
	}

	v.GoldSPRatio = numAt(snap, metrics.KeyGoldSPRatio, 4)
	v.GoldChange30 = pctAt(snap, metrics.MomentumKey(metrics.MetricGoldSpot, "30d"))
	if m, ok := snap.Value(metrics.MomentumKey(metrics.MetricGoldSpot, "30d")); ok {
		if m > 0 {
			v.RelativeTrend = "Gold outperforming stocks"
		} else {
			v.RelativeTrend = "Stocks outperforming gold"
		}
	} else {
		v.RelativeTrend = "N/A"
	}

	v.Components = make([]componentLine, 0, len(in.Score.Components))
	for _, c := range in.Score.Components {
		v.Components = append(v.Components, componentLine{
			Glyph:  glyph(c.Signal),
			Label:  c.Label,
			Weight: fmt.Sprintf("%+.1f", c.Weight),
		})
	}

	return v
}

func glyph(k regime.SignalKind) string {
	switch k {
	case regime.SignalBullish:
		return "✅"
	case regime.SignalBearish:
		return "❌"
	case regime.SignalWarning:
		return "⚠️"
	case regime.SignalInsight:
		return "💡"
	default:
		return "➖"
	}
}

// numAt renders a snapshot value with fixed decimals, or N/A when the
// snapshot never derived it.
func numAt(snap *metrics.Snapshot, key string, decimals int) string {
	val, ok := snap.Value(key)
	if !ok {
		return "N/A"
	}
	return strconv.FormatFloat(val, 'f', decimals, 64)
}

// pctAt renders a fractional change as a signed percentage, or N/A.
func pctAt(snap *metrics.Snapshot, key string) string {
	val, ok := snap.Value(key)
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%+.2f%%", val*100)
}

// fmtScore prints a composite score the shortest exact way, so 2.75 stays
// 2.75 and 3.5 does not grow a trailing zero.
func fmtScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(dateLayout)
}
