package timeseries

import (
	"fmt"
	"sort"
	"time"
)

// MalformedSeriesError reports a structurally invalid input series. Data
// sparsity never raises; out-of-order dates always do.
type MalformedSeriesError struct {
	Series string
	Index  int
	Prev   time.Time
	Next   time.Time
}

func (e *MalformedSeriesError) Error() string {
	return fmt.Sprintf("series %s: dates not strictly ascending at index %d (%s then %s)",
		e.Series, e.Index, e.Prev.Format("2006-01-02"), e.Next.Format("2006-01-02"))
}

// Merge combines a historical series (may be empty) with freshly observed
// points into one authoritative series: inputs validated, concatenated,
// exact (date,value) duplicates collapsed, result stable-sorted ascending.
//
// Rows that share a date but disagree on the value are both retained, with
// the historical row ordered before the fresh one, so latest-value reads
// resolve to the fresh side. Conflicts are not resolved here.
func Merge(historical, fresh Series) (Series, error) {
	if err := validateAscending(historical); err != nil {
		return Series{}, err
	}
	if err := validateAscending(fresh); err != nil {
		return Series{}, err
	}

	name := fresh.Name
	if name == "" {
		name = historical.Name
	}

	combined := make([]Point, 0, len(historical.Points)+len(fresh.Points))
	combined = append(combined, historical.Points...)
	combined = append(combined, fresh.Points...)
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Date.Before(combined[j].Date)
	})

	merged := combined[:0:0]
	for _, p := range combined {
		if n := len(merged); n > 0 && merged[n-1].Date.Equal(p.Date) && merged[n-1].Value == p.Value {
			continue
		}
		merged = append(merged, p)
	}
	return Series{Name: name, Points: merged}, nil
}

// validateAscending requires strictly increasing dates within one source.
// Merged output may legitimately carry equal adjacent dates when sources
// conflict, so this check applies to inputs only.
func validateAscending(s Series) error {
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i].Date.After(s.Points[i-1].Date) {
			return &MalformedSeriesError{
				Series: s.Name,
				Index:  i,
				Prev:   s.Points[i-1].Date,
				Next:   s.Points[i].Date,
			}
		}
	}
	return nil
}
