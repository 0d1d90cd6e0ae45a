package centralbank

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "cb_reserves.csv"), opts...)
}

func TestInitSeedsSampleRows(t *testing.T) {
	store := tempStore(t)
	require.NoError(t, store.Init(true))

	entries, err := store.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "Q3_2024", entries[0].Quarter)
	require.Equal(t, 333.0, entries[0].Tonnes)
	require.Equal(t, "WGC", entries[0].Source)
	require.Equal(t, "Q4_2024", entries[1].Quarter)
	require.Equal(t, 290.0, entries[1].Tonnes)
}

func TestLatestStatusTransitions(t *testing.T) {
	store := tempStore(t)
	require.NoError(t, store.Init(true))

	// Q4_2024 validated 2025-02-20.
	sig := store.Latest(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.Equal(t, StatusCurrent, sig.Status)
	require.Equal(t, "Q4_2024", sig.Quarter)
	require.Equal(t, 290.0, sig.Tonnes)
	require.Equal(t, 9, sig.DaysOld)
	require.False(t, sig.IsStale)
	require.Len(t, sig.History, 2)

	sig = store.Latest(time.Date(2025, 8, 23, 0, 0, 0, 0, time.UTC))
	require.Equal(t, StatusStale, sig.Status)
	require.True(t, sig.IsStale)
	require.Greater(t, sig.DaysOld, 90)
}

func TestLatestMissingFile(t *testing.T) {
	store := tempStore(t)
	sig := store.Latest(time.Now())
	require.Equal(t, StatusMissing, sig.Status)
	require.Contains(t, sig.Message, "cbdata -init")
}

func TestLatestEmptyFile(t *testing.T) {
	store := tempStore(t)
	require.NoError(t, store.Init(false))
	sig := store.Latest(time.Now())
	require.Equal(t, StatusEmpty, sig.Status)
}

func TestLatestMalformedFile(t *testing.T) {
	store := tempStore(t)
	csv := "quarter,cb_net_tonnes,source,validated_date\nQ1_2025,not-a-number,WGC,2025-05-01\n"
	require.NoError(t, os.WriteFile(store.Path(), []byte(csv), 0o644))

	sig := store.Latest(time.Now())
	require.Equal(t, StatusError, sig.Status)
	require.NotEmpty(t, sig.Message)
}

func TestAppendValidatesAndReplaces(t *testing.T) {
	store := tempStore(t)
	require.NoError(t, store.Init(true))

	err := store.Append(Entry{Quarter: "Q5_2025", Tonnes: 100})
	require.Error(t, err)

	require.NoError(t, store.Append(Entry{
		Quarter:     "Q1_2025",
		Tonnes:      300,
		ValidatedAt: time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC),
	}))
	entries, err := store.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "Q1_2025", entries[2].Quarter)
	require.Equal(t, "WGC", entries[2].Source, "source defaults to WGC")

	// Re-adding an existing quarter replaces it and moves it to the end.
	require.NoError(t, store.Append(Entry{
		Quarter:     "Q3_2024",
		Tonnes:      340,
		Source:      "WGC (revised)",
		ValidatedAt: time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC),
	}))
	entries, err = store.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "Q3_2024", entries[2].Quarter)
	require.Equal(t, 340.0, entries[2].Tonnes)
}

func TestAppendCreatesFileWhenAbsent(t *testing.T) {
	store := tempStore(t)
	require.NoError(t, store.Append(Entry{Quarter: "Q2_2025", Tonnes: 166.5}))

	entries, err := store.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 166.5, entries[0].Tonnes)
}

func TestValidQuarter(t *testing.T) {
	valid := []string{"Q1_2025", "Q4_1999"}
	invalid := []string{"Q5_2025", "q1_2025", "Q1-2025", "Q1_25", "2025_Q1", ""}

	for _, q := range valid {
		require.True(t, ValidQuarter(q), q)
	}
	for _, q := range invalid {
		require.False(t, ValidQuarter(q), q)
	}
}
