package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/esseedoubleyou/goldmonitor/pkg/timeseries"
)

func fullCatalog(start time.Time) map[string]timeseries.Series {
	return map[string]timeseries.Series{
		MetricRealYield:    daily(MetricRealYield, start, 1.9, 1.88, 1.85),
		MetricNominalYield: daily(MetricNominalYield, start, 4.2, 4.21, 4.18),
		MetricDollarIndex:  daily(MetricDollarIndex, start, 104.2, 104.0, 103.8),
		MetricGoldSpot:     daily(MetricGoldSpot, start, 2300, 2310, 2320),
		MetricSP500:        daily(MetricSP500, start, 5200, 5210, 5220),
		MetricCPI:          daily(MetricCPI, start, 310.0, 310.0, 310.2),
		MetricVIX:          daily(MetricVIX, start, 14.5, 14.8, 15.1),
		MetricGPR:          daily(MetricGPR, start, 118, 121, 119),
	}
}

func TestComputeSnapshotFullCatalog(t *testing.T) {
	e := NewEngine()
	start := day(2025, 6, 1)
	snap := e.ComputeSnapshot(fullCatalog(start), Extras{GLDShares: 420_000_000, GLDSharesValid: true})

	for _, metric := range Catalog() {
		_, ok := snap.Value(CurrentKey(metric))
		require.True(t, ok, "missing current value for %s", metric)
	}

	v, ok := snap.Value(CurrentKey(MetricGoldSpot))
	require.True(t, ok)
	require.InDelta(t, 2320.0, v, 1e-9)

	// Real price deflated by CPI normalised at its first observation.
	v, ok = snap.Value(KeyRealGoldPriceCurrent)
	require.True(t, ok)
	require.InDelta(t, 2320.0/(310.2/310.0), v, 1e-9)
	require.Contains(t, snap.Series, SeriesRealGoldPrice)

	// Three days of data cannot satisfy a one-year z-score minimum.
	_, ok = snap.Value(KeyRealGoldZScore)
	require.False(t, ok)
	note, ok := snap.Note(KeyRealGoldZScore)
	require.True(t, ok)
	require.Equal(t, "Insufficient history for 5Y z-score", note)

	v, ok = snap.Value(KeyGoldSPRatio)
	require.True(t, ok)
	require.InDelta(t, 2320.0/5220.0, v, 1e-9)

	v, ok = snap.Value(KeyBreakevenInflation)
	require.True(t, ok)
	require.InDelta(t, 4.18-1.85, v, 1e-9)

	v, ok = snap.Value(KeyGLDSharesCurrent)
	require.True(t, ok)
	require.InDelta(t, 420_000_000, v, 1e-3)

	// Too short for any momentum horizon.
	_, ok = snap.Value(KeyRealYieldMomentum30d)
	require.False(t, ok)

	require.Equal(t, start, snap.Window.Start)
	require.Equal(t, day(2025, 6, 3), snap.Window.End)
	require.Equal(t, 2, snap.Window.Days)
}

func TestComputeSnapshotOmitsMetricsWithAbsentInputs(t *testing.T) {
	e := NewEngine()
	merged := fullCatalog(day(2025, 6, 1))
	delete(merged, MetricCPI)
	delete(merged, MetricSP500)

	snap := e.ComputeSnapshot(merged, Extras{})

	_, ok := snap.Value(KeyRealGoldPriceCurrent)
	require.False(t, ok)
	_, ok = snap.Value(KeyGoldSPRatio)
	require.False(t, ok)
	_, ok = snap.Note(KeyRealGoldZScore)
	require.False(t, ok, "no note when the real price itself is underivable")

	// Unrelated metrics still present.
	_, ok = snap.Value(CurrentKey(MetricVIX))
	require.True(t, ok)
	_, ok = snap.Value(KeyBreakevenInflation)
	require.True(t, ok)
}

func TestComputeSnapshotEmptyInput(t *testing.T) {
	e := NewEngine()
	snap := e.ComputeSnapshot(nil, Extras{})
	require.Zero(t, snap.Len())
	require.False(t, snap.Window.ComputedAt.IsZero())
}

func TestComputeSnapshotMomentumHorizons(t *testing.T) {
	e := NewEngine()
	values := make([]float64, 40)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	merged := map[string]timeseries.Series{
		MetricRealYield: daily(MetricRealYield, day(2025, 4, 1), values...),
	}

	snap := e.ComputeSnapshot(merged, Extras{})

	v, ok := snap.Value(KeyRealYieldMomentum30d)
	require.True(t, ok)
	// Last value 139 against the observation 30 rows back (110).
	require.InDelta(t, 139.0/110.0-1, v, 1e-9)

	_, ok = snap.Value(MomentumKey(MetricRealYield, "60d"))
	require.False(t, ok)
	_, ok = snap.Value(MomentumKey(MetricRealYield, "90d"))
	require.False(t, ok)
}
