package report

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/esseedoubleyou/goldmonitor/pkg/regime"
)

// defaultTemplate lays out the monthly report. Formatting lives in the func
// map; conditional wording (interpretations, freshness notes) is precomputed
// into the view so the template stays declarative.
const defaultTemplate = `# Gold Market Monitor - {{.Month}}

*Generated: {{.Generated}}*

---

## Executive Summary

{{.Narrative}}

---

## Regime Score: {{printf "%.1f" .Score}}

{{scorebar .Score}}

**Assessment:** {{.Assessment}}
**Conviction:** {{.Conviction}}
**Recommended Action:** {{.Action}}

### Score Components:

{{range .Components}}  {{icon .Signal}} **{{.Label}}**: {{printf "%+.1f" .Weight}}
{{end}}
**Methodology:**
- Real yields: ±{{.RealYieldPoints}} points (primary driver)
- USD strength: ±{{.DollarPoints}} points
- Central bank buying: ±{{.CentralBankPoints}} points
- Valuation: -{{.ValuationPenalty}} point if overextended (z-score > {{.OvervaluedZ}})

*Score interpretation: >{{.BandBullish}} = high conviction bullish | {{.BandMildlyBearish}} to {{.BandMildlyBullish}} = neutral | <{{.BandBearish}} = bearish*

---

## Key Metrics

### Real Interest Rates (Primary Gold Driver)
- **10Y TIPS Yield:** {{num .RealYieldCurrent 2}}%
- **30-Day Change:** {{pct .RealYieldMomentum30}}
- **90-Day Change:** {{pct .RealYieldMomentum90}}
- **Interpretation:** {{.RealYieldInterp}}

### US Dollar Strength
- **DXY Index:** {{num .DXYCurrent 2}}
- **30-Day Change:** {{pct .DXYMomentum30}}
- **90-Day Change:** {{pct .DXYMomentum90}}
- **Interpretation:** {{.DollarInterp}}

### Market Sentiment
- **VIX Index:** {{num .VIXCurrent 2}}
- **Geopolitical Risk Index:** {{num .GPRCurrent 1}}
- **Environment:** {{.Environment}}

### Gold Valuation
- **Gold Spot Price:** {{money .GoldSpot}}
- **30-Day Return:** {{pct .GoldMomentum30}}
- **Real Gold Price (CPI-Adjusted):** {{money .RealGoldPrice}}
- **Real Gold Z-Score (5Y):** {{num .RealGoldZScore 2}}
  - *{{.ValuationInterp}}*
- **Gold/S&P 500 Ratio:** {{num .GoldSPRatio 4}}

### Investment Flows
- **GLD Shares Outstanding:** {{commas .GLDShares}}
  - *Note: Changes in shares outstanding indicate net ETF inflows/outflows*
- **Breakeven Inflation:** {{num .Breakeven 2}}%

---

## Central Bank Activity (Official Sector)

{{if .CB.Missing}}⚠️ **No central bank data available**

{{.CB.Message}}
{{else if .CB.Errored}}⚠️ **Error loading central bank data**

{{.CB.Message}}
{{else}}- **Latest Quarter:** {{.CB.Quarter}}
- **Net Purchases:** {{.CB.Tonnes}} tonnes
- **Source:** {{.CB.Source}}
- **Last Updated:** {{.CB.Validated}} {{.CB.FreshIcon}}{{.CB.StaleNote}}
- **Interpretation:** {{.CB.Interp}}

**Context:** Central banks have been consistent net buyers since 2010, with accelerated purchases post-2022. This represents structural, long-term demand often tied to reserve diversification and de-dollarization efforts.
{{end}}
---

## Data Sources & Quality

**Primary Sources:**
- Real yields, gold spot, DXY, S&P 500, CPI, GPR: [Federal Reserve Economic Data (FRED)](https://fred.stlouisfed.org/)
- VIX, ETF holdings: [Yahoo Finance](https://finance.yahoo.com/)
- Central bank purchases: [World Gold Council](https://www.gold.org/goldhub/research/gold-demand-trends)

**Data Window:**
- Start: {{.DataStart}}
- End: {{.DataEnd}}
- Days: {{.DataDays}}

**Calculation Date:** {{.ComputedAt}}

---

## Notes

- This report is generated automatically for monthly position review
- Focus on sustained regime changes, not daily volatility
- Z-scores require 1+ years of history (5 years optimal)
- Central bank data updates quarterly with ~45-60 day lag
- For questions or issues, review logs or contact the maintainer

---

*Report generated by Gold Market Monitor*
*GitHub: [esseedoubleyou/goldmonitor](https://github.com/esseedoubleyou/goldmonitor)*
`

func funcMap() template.FuncMap {
	return template.FuncMap{
		"num":      num,
		"pct":      pct,
		"money":    money,
		"commas":   commas,
		"icon":     icon,
		"scorebar": scoreBar,
	}
}

// num renders a metric with fixed decimals, or N/A when the snapshot never
// derived it.
func num(v *float64, decimals int) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}

// pct renders a fractional change as a signed percentage.
func pct(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%+.2f%%", *v*100)
}

// money renders a dollar amount with two decimals.
func money(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return "$" + strconv.FormatFloat(*v, 'f', 2, 64)
}

// commas renders a large count with thousands separators and no decimals.
func commas(v *float64) string {
	if v == nil {
		return "N/A"
	}
	s := strconv.FormatFloat(*v, 'f', 0, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(s[i])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// icon maps a component's signal kind to its report glyph. Score components
// carry SignalKind enums, never glyph strings.
func icon(k regime.SignalKind) string {
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

// scoreBar draws a 21-cell gauge over the -5..+5 score domain with a center
// mark at zero. Scores beyond the domain pin to the nearest edge.
func scoreBar(score float64) string {
	pos := int((score + 5) / 10 * 20)
	if pos < 0 {
		pos = 0
	}
	if pos > 20 {
		pos = 20
	}

	cells := []rune(strings.Repeat("─", 21))
	cells[10] = '┼'
	cells[pos] = '█'

	return fmt.Sprintf("```\nBearish                Neutral                Bullish\n   -5         -3         0         +3         +5\n    %s\n```", string(cells))
}
