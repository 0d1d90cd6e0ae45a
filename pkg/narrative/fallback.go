package narrative

import (
	"fmt"
	"math"
	"strings"

	"github.com/esseedoubleyou/goldmonitor/pkg/metrics"
)

// fallbackNarrative assembles an executive summary without the model. It is
// less insightful but deterministic, so a missing API key or an outage never
// blocks the monthly report. The report layer supplies the section heading.
func fallbackNarrative(in Input) string {
	snap := in.Snapshot

	var b strings.Builder
	fmt.Fprintf(&b, "**Market Regime:** %s (Score: %s)\n\n", in.Score.Assessment, fmtScore(in.Score.Value))

	fmt.Fprintf(&b, "Over the past 30 days, %s, while %s. %s during this period.\n\n",
		yieldClause(snap), dollarClause(snap), goldClause(snap))

	b.WriteString("**Key Drivers:**\n")
	for _, c := range in.Score.Components {
		fmt.Fprintf(&b, "\n%s %s (%+.1f)", glyph(c.Signal), c.Label, c.Weight)
	}

	fmt.Fprintf(&b, "\n\n**Position Recommendation:** %s\n\n", in.Score.Action)
	fmt.Fprintf(&b, "**Conviction Level:** %s\n\n", in.Score.Conviction)
	b.WriteString("Note: This is a fallback analysis. Configure an OpenAI API key for model-synthesized insights.\n")

	return b.String()
}

func yieldClause(snap *metrics.Snapshot) string {
	m, ok := snap.Value(metrics.MomentumKey(metrics.MetricRealYield, "30d"))
	if !ok {
		return "real yields show no 30-day reading"
	}
	verb := "risen"
	if m < 0 {
		verb = "fallen"
	}
	return fmt.Sprintf("real yields have %s by %.1f%%", verb, math.Abs(m)*100)
}

func dollarClause(snap *metrics.Snapshot) string {
	m, ok := snap.Value(metrics.MomentumKey(metrics.MetricDollarIndex, "30d"))
	if !ok {
		return "the US dollar shows no 30-day reading"
	}
	verb := "strengthened"
	if m < 0 {
		verb = "weakened"
	}
	return fmt.Sprintf("the US dollar has %s by %.1f%%", verb, math.Abs(m)*100)
}

func goldClause(snap *metrics.Snapshot) string {
	m, ok := snap.Value(metrics.MomentumKey(metrics.MetricGoldSpot, "30d"))
	if !ok {
		return "Gold spot prices show no 30-day reading"
	}
	verb := "decreased"
	if m > 0 {
		verb = "increased"
	}
	return fmt.Sprintf("Gold spot prices %s by %.1f%%", verb, math.Abs(m)*100)
}
