// Package timeseries provides the sparse dated-series primitives shared by
// the fetch, derivation, and persistence layers. A series holds only the
// dates that actually carry a value; an undefined observation is represented
// by the absence of a point, never by NaN.
package timeseries

import (
	"sort"
	"time"
)

// Point is a single dated observation.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a named ordered sequence of observations. Producers keep points
// sorted ascending by date; Merge enforces it at ingestion boundaries.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// New builds a series from the supplied points without validating order.
func New(name string, points ...Point) Series {
	return Series{Name: name, Points: points}
}

// Day normalises a timestamp to UTC midnight, the granularity all series use.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Len reports the number of observations.
func (s Series) Len() int { return len(s.Points) }

// First returns the earliest observation, if any.
func (s Series) First() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[0], true
}

// Last returns the latest observation, if any.
func (s Series) Last() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// At returns the value observed on the given day. When a merge retained
// conflicting rows for the same date, the later row wins, which puts fresh
// data ahead of historical data.
func (s Series) At(date time.Time) (float64, bool) {
	day := Day(date)
	// First index strictly after day, then step back.
	idx := sort.Search(len(s.Points), func(i int) bool {
		return s.Points[i].Date.After(day)
	})
	if idx == 0 {
		return 0, false
	}
	if p := s.Points[idx-1]; p.Date.Equal(day) {
		return p.Value, true
	}
	return 0, false
}

// Values returns the raw observation values in date order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (s Series) Clone() Series {
	points := make([]Point, len(s.Points))
	copy(points, s.Points)
	return Series{Name: s.Name, Points: points}
}

// Compact returns a copy with points stable-sorted ascending and rows
// sharing a date collapsed to the later one. Persisted stores apply this
// resolution on write, so any series read back from them satisfies the
// strictly-ascending input contract of Merge.
func Compact(s Series) Series {
	pts := append([]Point(nil), s.Points...)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })
	out := pts[:0]
	for _, p := range pts {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return Series{Name: s.Name, Points: out}
}
