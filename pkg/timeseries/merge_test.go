package timeseries

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMergeCollapsesExactDuplicates(t *testing.T) {
	hist := New("dxy",
		Point{Date: day(2025, 6, 1), Value: 104.2},
		Point{Date: day(2025, 6, 2), Value: 104.5},
	)
	fresh := New("dxy",
		Point{Date: day(2025, 6, 2), Value: 104.5},
		Point{Date: day(2025, 6, 3), Value: 104.9},
	)

	merged, err := Merge(hist, fresh)
	require.NoError(t, err)
	require.Equal(t, "dxy", merged.Name)
	require.Len(t, merged.Points, 3)
	require.Equal(t, day(2025, 6, 1), merged.Points[0].Date)
	require.Equal(t, day(2025, 6, 2), merged.Points[1].Date)
	require.Equal(t, day(2025, 6, 3), merged.Points[2].Date)
}

func TestMergeRetainsSameDateConflicts(t *testing.T) {
	// Two sources disagreeing on one date both survive, historical first,
	// so a latest-value read resolves to the fresh row.
	hist := New("gold_spot", Point{Date: day(2025, 6, 2), Value: 2310.0})
	fresh := New("gold_spot", Point{Date: day(2025, 6, 2), Value: 2315.5})

	merged, err := Merge(hist, fresh)
	require.NoError(t, err)
	require.Len(t, merged.Points, 2)
	require.Equal(t, 2310.0, merged.Points[0].Value)
	require.Equal(t, 2315.5, merged.Points[1].Value)

	v, ok := merged.At(day(2025, 6, 2))
	require.True(t, ok)
	require.Equal(t, 2315.5, v)
}

func TestMergeSortsInterleavedDates(t *testing.T) {
	hist := New("cpi",
		Point{Date: day(2025, 1, 1), Value: 310.3},
		Point{Date: day(2025, 3, 1), Value: 311.8},
	)
	fresh := New("cpi",
		Point{Date: day(2025, 2, 1), Value: 311.1},
		Point{Date: day(2025, 4, 1), Value: 312.2},
	)

	merged, err := Merge(hist, fresh)
	require.NoError(t, err)
	require.Len(t, merged.Points, 4)
	for i := 1; i < len(merged.Points); i++ {
		require.True(t, merged.Points[i].Date.After(merged.Points[i-1].Date))
	}
}

func TestMergeEmptyHistory(t *testing.T) {
	fresh := New("vix",
		Point{Date: day(2025, 6, 1), Value: 14.8},
		Point{Date: day(2025, 6, 2), Value: 15.3},
	)

	merged, err := Merge(Series{}, fresh)
	require.NoError(t, err)
	require.Equal(t, "vix", merged.Name)
	require.Len(t, merged.Points, 2)
}

func TestMergeRejectsNonMonotonicInput(t *testing.T) {
	bad := New("sp500",
		Point{Date: day(2025, 6, 3), Value: 5300},
		Point{Date: day(2025, 6, 2), Value: 5280},
	)

	_, err := Merge(Series{}, bad)
	require.Error(t, err)

	var malformed *MalformedSeriesError
	require.True(t, errors.As(err, &malformed))
	require.Equal(t, "sp500", malformed.Series)
	require.Equal(t, 1, malformed.Index)
}

func TestMergeRejectsRepeatedDateWithinOneInput(t *testing.T) {
	bad := New("sp500",
		Point{Date: day(2025, 6, 2), Value: 5280},
		Point{Date: day(2025, 6, 2), Value: 5281},
	)

	_, err := Merge(bad, Series{})
	var malformed *MalformedSeriesError
	require.True(t, errors.As(err, &malformed))
}

func TestCompactResolvesConflictsToLaterRow(t *testing.T) {
	s := New("gold_spot",
		Point{Date: day(2025, 6, 3), Value: 2320.0},
		Point{Date: day(2025, 6, 2), Value: 2310.0},
		Point{Date: day(2025, 6, 2), Value: 2315.5},
	)

	compacted := Compact(s)
	require.Len(t, compacted.Points, 2)
	require.Equal(t, day(2025, 6, 2), compacted.Points[0].Date)
	require.Equal(t, 2315.5, compacted.Points[0].Value)
	require.Equal(t, day(2025, 6, 3), compacted.Points[1].Date)

	// Compacted output is valid Merge input again.
	_, err := Merge(compacted, Series{})
	require.NoError(t, err)
	// The original is untouched.
	require.Len(t, s.Points, 3)
}
