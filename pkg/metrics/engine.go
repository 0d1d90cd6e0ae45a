// Package metrics derives secondary indicators from merged primary series:
// inflation-adjusted price, cross-asset ratios, rolling z-scores, and
// fixed-lookback momentum. Every operation is elementwise-by-date and
// degrades to omission on missing or degenerate inputs; nothing here errors
// on sparse data.
package metrics

import (
	"fmt"
	"math"
	"time"

	"github.com/esseedoubleyou/goldmonitor/pkg/timeseries"
)

const (
	// A 1260 trading-day window approximates five years; 252 one year.
	defaultZScoreWindow     = 1260
	defaultZScoreMinPeriods = 252
)

// Engine computes derived metrics. It holds only tuning parameters; every
// call is a pure function of its inputs.
type Engine struct {
	zWindow     int
	zMinPeriods int
}

// Option adjusts engine tuning.
type Option func(*Engine)

// WithZScoreWindow overrides the rolling z-score window and the minimum
// observation count below which the score stays undefined.
func WithZScoreWindow(window, minPeriods int) Option {
	return func(e *Engine) {
		if window > 0 {
			e.zWindow = window
		}
		if minPeriods > 0 {
			e.zMinPeriods = minPeriods
		}
	}
}

// NewEngine returns an engine with the standard 5-year/1-year z-score tuning.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		zWindow:     defaultZScoreWindow,
		zMinPeriods: defaultZScoreMinPeriods,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// join pairs two date-unique series on their shared dates. fn returning
// ok=false drops the date from the result.
func join(name string, a, b timeseries.Series, fn func(x, y float64) (float64, bool)) timeseries.Series {
	out := timeseries.Series{Name: name}
	i, j := 0, 0
	for i < len(a.Points) && j < len(b.Points) {
		da, db := a.Points[i].Date, b.Points[j].Date
		switch {
		case da.Before(db):
			i++
		case db.Before(da):
			j++
		default:
			if v, ok := fn(a.Points[i].Value, b.Points[j].Value); ok {
				out.Points = append(out.Points, timeseries.Point{Date: da, Value: v})
			}
			i++
			j++
		}
	}
	return out
}

// RealPrice deflates a price series by an index series normalised to 100 at
// the index's first available observation. Undefined wherever either side is
// missing or the index value is zero.
func (e *Engine) RealPrice(price, index timeseries.Series) timeseries.Series {
	base, ok := index.First()
	if !ok || base.Value == 0 {
		return timeseries.Series{Name: SeriesRealGoldPrice}
	}
	return join(SeriesRealGoldPrice, price, index, func(p, idx float64) (float64, bool) {
		if idx == 0 {
			return 0, false
		}
		normalized := idx / base.Value * 100
		return p / (normalized / 100), true
	})
}

// Ratio divides a by b on their shared dates. A zero denominator yields no
// point at that date, never infinity.
func (e *Engine) Ratio(a, b timeseries.Series) timeseries.Series {
	return join(fmt.Sprintf("%s_%s_ratio", a.Name, b.Name), a, b, func(x, y float64) (float64, bool) {
		if y == 0 {
			return 0, false
		}
		return x / y, true
	})
}

// Spread subtracts b from a on their shared dates. With nominal and real
// yields this is the market-implied breakeven inflation rate.
func (e *Engine) Spread(a, b timeseries.Series) timeseries.Series {
	return join(fmt.Sprintf("%s_%s_spread", a.Name, b.Name), a, b, func(x, y float64) (float64, bool) {
		return x - y, true
	})
}

// RollingZScore scores each observation against its trailing window, counted
// in observations rather than calendar days. Dates with fewer than the
// minimum observations, or where the rolling standard deviation is exactly
// zero, carry no point. The deviation uses the sample (n-1) form.
func (e *Engine) RollingZScore(s timeseries.Series) timeseries.Series {
	out := timeseries.Series{Name: s.Name + "_zscore"}
	n := len(s.Points)
	if n == 0 {
		return out
	}

	sum := make([]float64, n+1)
	sumSq := make([]float64, n+1)
	for i, p := range s.Points {
		sum[i+1] = sum[i] + p.Value
		sumSq[i+1] = sumSq[i] + p.Value*p.Value
	}

	minPeriods := e.zMinPeriods
	if minPeriods < 2 {
		minPeriods = 2
	}
	for i := 0; i < n; i++ {
		lo := i - e.zWindow + 1
		if lo < 0 {
			lo = 0
		}
		count := i - lo + 1
		if count < minPeriods {
			continue
		}
		total := sum[i+1] - sum[lo]
		mean := total / float64(count)
		variance := (sumSq[i+1] - sumSq[lo] - mean*total) / float64(count-1)
		if variance <= 0 {
			continue
		}
		z := (s.Points[i].Value - mean) / math.Sqrt(variance)
		out.Points = append(out.Points, timeseries.Point{Date: s.Points[i].Date, Value: z})
	}
	return out
}

// Momentum returns (last / value lookback observations back) - 1. Undefined
// when the series is shorter than the lookback or the past value is zero; a
// lookback beyond available history never falls back to the earliest sample.
func Momentum(s timeseries.Series, lookback int) (float64, bool) {
	if lookback <= 0 || s.Len() < lookback {
		return 0, false
	}
	pts := s.Points
	current := pts[len(pts)-1].Value
	past := pts[len(pts)-lookback].Value
	if past == 0 {
		return 0, false
	}
	return current/past - 1, true
}

// ComputeSnapshot derives the full fixed-catalog snapshot from merged primary
// series. Inputs are forward-filled onto the union calendar first; metrics
// whose inputs are absent are omitted, never defaulted.
func (e *Engine) ComputeSnapshot(merged map[string]timeseries.Series, extra Extras) *Snapshot {
	snap := &Snapshot{
		Values: make(map[string]float64),
		Series: make(map[string]timeseries.Series),
		Notes:  make(map[string]string),
	}
	snap.Window.ComputedAt = time.Now().UTC()

	present := make([]timeseries.Series, 0, len(merged))
	for _, name := range Catalog() {
		if s, ok := merged[name]; ok && s.Len() > 0 {
			present = append(present, s)
		}
	}
	if len(present) == 0 {
		return snap
	}

	cal := timeseries.Calendar(present...)
	filled := make(map[string]timeseries.Series, len(present))
	for _, name := range Catalog() {
		if s, ok := merged[name]; ok && s.Len() > 0 {
			f := timeseries.ForwardFill(s, cal)
			f.Name = name
			filled[name] = f
		}
	}

	if gold, cpi := filled[MetricGoldSpot], filled[MetricCPI]; gold.Len() > 0 && cpi.Len() > 0 {
		realGold := e.RealPrice(gold, cpi)
		if last, ok := realGold.Last(); ok {
			snap.Values[KeyRealGoldPriceCurrent] = last.Value
			snap.Series[SeriesRealGoldPrice] = realGold
			if z, ok := e.RollingZScore(realGold).At(last.Date); ok {
				snap.Values[KeyRealGoldZScore] = z
			} else {
				snap.Notes[KeyRealGoldZScore] = "Insufficient history for 5Y z-score"
			}
		}
	}

	if gold, sp := filled[MetricGoldSpot], filled[MetricSP500]; gold.Len() > 0 && sp.Len() > 0 {
		ratio := e.Ratio(gold, sp)
		if last, ok := ratio.Last(); ok {
			snap.Values[KeyGoldSPRatio] = last.Value
			if z, ok := e.RollingZScore(ratio).At(last.Date); ok {
				snap.Values[KeyGoldSPZScore] = z
			}
		}
	}

	if nominal, real := filled[MetricNominalYield], filled[MetricRealYield]; nominal.Len() > 0 && real.Len() > 0 {
		if last, ok := e.Spread(nominal, real).Last(); ok {
			snap.Values[KeyBreakevenInflation] = last.Value
		}
	}

	for _, metric := range MomentumMetrics() {
		s, ok := filled[metric]
		if !ok {
			continue
		}
		for _, lb := range Lookbacks() {
			if v, ok := Momentum(s, lb.Days); ok {
				snap.Values[MomentumKey(metric, lb.Label)] = v
			}
		}
	}

	for _, metric := range Catalog() {
		if s, ok := filled[metric]; ok {
			if last, ok := s.Last(); ok {
				snap.Values[CurrentKey(metric)] = last.Value
			}
		}
	}

	if extra.GLDSharesValid {
		snap.Values[KeyGLDSharesCurrent] = extra.GLDShares
	}

	snap.Window.Start = cal[0]
	snap.Window.End = cal[len(cal)-1]
	snap.Window.Days = int(snap.Window.End.Sub(snap.Window.Start).Hours() / 24)
	return snap
}
