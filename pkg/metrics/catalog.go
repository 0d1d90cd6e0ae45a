package metrics

// Primary metric names as fetched from the gateway and stored in history.
const (
	MetricRealYield    = "real_yield"
	MetricNominalYield = "nominal_yield"
	MetricDollarIndex  = "dxy"
	MetricGoldSpot     = "gold_spot"
	MetricSP500        = "sp500"
	MetricCPI          = "cpi"
	MetricVIX          = "vix"
	MetricGPR          = "gpr"
)

// Derived snapshot keys consumed by the scorer and the report layer.
const (
	KeyRealGoldPriceCurrent = "real_gold_price_current"
	KeyRealGoldZScore       = "real_gold_zscore"
	KeyGoldSPRatio          = "gold_sp_ratio"
	KeyGoldSPZScore         = "gold_sp_zscore"
	KeyBreakevenInflation   = "breakeven_inflation"
	KeyGLDSharesCurrent     = "gld_shares_current"
	KeyRealYieldMomentum30d = "real_yield_momentum_30d"
	KeyDollarMomentum30d    = "dxy_momentum_30d"
)

// SeriesRealGoldPrice keys the inflation-adjusted price series retained on
// the snapshot for charting collaborators.
const SeriesRealGoldPrice = "real_gold_price"

// Lookback is one momentum horizon.
type Lookback struct {
	Label string
	Days  int
}

// Catalog lists every primary metric, in presentation order.
func Catalog() []string {
	return []string{
		MetricRealYield,
		MetricNominalYield,
		MetricDollarIndex,
		MetricGoldSpot,
		MetricSP500,
		MetricCPI,
		MetricVIX,
		MetricGPR,
	}
}

// MomentumMetrics lists the metrics that get fixed-lookback momentum keys.
func MomentumMetrics() []string {
	return []string{
		MetricRealYield,
		MetricDollarIndex,
		MetricGoldSpot,
		MetricVIX,
		MetricGPR,
	}
}

// Lookbacks lists the momentum horizons, in trading-day-equivalent units.
func Lookbacks() []Lookback {
	return []Lookback{
		{Label: "30d", Days: 30},
		{Label: "60d", Days: 60},
		{Label: "90d", Days: 90},
	}
}

// CurrentKey names the latest-value snapshot entry for a primary metric.
func CurrentKey(metric string) string { return metric + "_current" }

// MomentumKey names the momentum snapshot entry for a metric and horizon.
func MomentumKey(metric, label string) string { return metric + "_momentum_" + label }
