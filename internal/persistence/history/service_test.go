package histpersist

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"

	cachekeys "github.com/esseedoubleyou/goldmonitor/internal/cache"
	"github.com/esseedoubleyou/goldmonitor/internal/config"
	"github.com/esseedoubleyou/goldmonitor/pkg/centralbank"
	"github.com/esseedoubleyou/goldmonitor/pkg/metrics"
	"github.com/esseedoubleyou/goldmonitor/pkg/timeseries"
)

var errCacheMiss = errors.New("cache miss")

type fakeCache struct {
	gocache.Cache
	data map[string][]byte
	ttls map[string]time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCache) GetCtx(_ context.Context, key string, v interface{}) error {
	raw, ok := f.data[key]
	if !ok {
		return errCacheMiss
	}
	return json.Unmarshal(raw, v)
}

func (f *fakeCache) SetWithExpireCtx(_ context.Context, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.data[key] = raw
	f.ttls[key] = ttl
	return nil
}

func (f *fakeCache) IsNotFound(err error) bool { return errors.Is(err, errCacheMiss) }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewServiceRequiresASink(t *testing.T) {
	require.Nil(t, NewService(Config{}))
	require.NotNil(t, NewService(Config{CSVPath: "data/gold_metrics_history.csv"}))
	require.NotNil(t, NewService(Config{Cache: newFakeCache()}))
}

func TestNilServiceIsNoOp(t *testing.T) {
	var s *Service
	ctx := context.Background()

	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.RecordHistory(ctx, map[string]timeseries.Series{
		"dxy": timeseries.New("dxy", timeseries.Point{Date: day(2025, 6, 1), Value: 104.2}),
	}))
	s.RecordSnapshot(ctx, &metrics.Snapshot{})
	s.RecordSignal(ctx, centralbank.Signal{Status: centralbank.StatusCurrent})
	s.RecordReport(ctx, "2025-06", "# report")
}

func TestRecordHistoryMirrorsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "gold_metrics_history.csv")
	s := NewService(Config{CSVPath: path})

	first := map[string]timeseries.Series{
		"dxy": timeseries.New("dxy",
			timeseries.Point{Date: day(2025, 6, 1), Value: 104.2},
			timeseries.Point{Date: day(2025, 6, 2), Value: 104.5},
		),
		"real_yield": timeseries.New("real_yield",
			timeseries.Point{Date: day(2025, 6, 1), Value: 1.95},
		),
	}
	require.NoError(t, s.RecordHistory(context.Background(), first))

	// Second run revises one date, extends another metric, and omits
	// real_yield entirely. The omitted metric must keep its history.
	second := map[string]timeseries.Series{
		"dxy": timeseries.New("dxy",
			timeseries.Point{Date: day(2025, 6, 2), Value: 104.6},
			timeseries.Point{Date: day(2025, 6, 3), Value: 104.9},
		),
	}
	require.NoError(t, s.RecordHistory(context.Background(), second))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	const want = `date,dxy,real_yield
2025-06-01,104.2,1.95
2025-06-02,104.6,
2025-06-03,104.9,
`
	require.Equal(t, want, string(raw))
}

func TestRecordHistoryRefreshesDigest(t *testing.T) {
	fc := newFakeCache()
	path := filepath.Join(t.TempDir(), "history.csv")
	s := NewService(Config{
		Cache:   fc,
		TTL:     cachekeys.NewTTLSet(config.CacheTTL{}),
		CSVPath: path,
	})

	// A merged series may retain conflicting rows for one date.
	series := map[string]timeseries.Series{
		"gold_spot": {Name: "gold_spot", Points: []timeseries.Point{
			{Date: day(2025, 6, 2), Value: 2310.0},
			{Date: day(2025, 6, 2), Value: 2315.5},
		}},
	}
	require.NoError(t, s.RecordHistory(context.Background(), series))

	key := cachekeys.HistoryKey()
	require.Contains(t, fc.data, key)
	require.Equal(t, 24*time.Hour, fc.ttls[key])

	var digest map[string]timeseries.Series
	require.NoError(t, json.Unmarshal(fc.data[key], &digest))
	require.Equal(t, 1, digest["gold_spot"].Len(), "digest must be conflict-free")
	last, ok := digest["gold_spot"].Last()
	require.True(t, ok)
	require.Equal(t, 2315.5, last.Value)
}

func TestRecordHistoryEmptyInput(t *testing.T) {
	s := NewService(Config{CSVPath: filepath.Join(t.TempDir(), "history.csv")})
	require.NoError(t, s.RecordHistory(context.Background(), nil))
	_, err := os.Stat(s.csvPath)
	require.True(t, os.IsNotExist(err), "empty runs must not touch the mirror")
}

func TestRecordSnapshotCachesPayload(t *testing.T) {
	fc := newFakeCache()
	s := NewService(Config{Cache: fc, TTL: cachekeys.NewTTLSet(config.CacheTTL{})})

	snap := &metrics.Snapshot{
		Values: map[string]float64{"real_yield_current": 1.75},
		Window: metrics.Window{Days: 90},
	}
	s.RecordSnapshot(context.Background(), snap)

	key := cachekeys.SnapshotLatestKey()
	require.Contains(t, fc.data, key)
	require.Equal(t, time.Hour, fc.ttls[key])

	var got metrics.Snapshot
	require.NoError(t, json.Unmarshal(fc.data[key], &got))
	require.Equal(t, 1.75, got.Values["real_yield_current"])
	require.Equal(t, 90, got.Window.Days)
}

func TestRecordSignalSkipsZeroValue(t *testing.T) {
	fc := newFakeCache()
	s := NewService(Config{Cache: fc, TTL: cachekeys.NewTTLSet(config.CacheTTL{})})

	s.RecordSignal(context.Background(), centralbank.Signal{})
	require.Empty(t, fc.data)

	s.RecordSignal(context.Background(), centralbank.Signal{
		Status:  centralbank.StatusCurrent,
		Quarter: "Q1_2025",
		Tonnes:  290,
	})
	require.Contains(t, fc.data, cachekeys.SignalKey())
}

func TestRecordReportCachesByMonth(t *testing.T) {
	fc := newFakeCache()
	s := NewService(Config{Cache: fc, TTL: cachekeys.NewTTLSet(config.CacheTTL{})})

	s.RecordReport(context.Background(), "2025-06", "# Gold Market Monitor")
	key := cachekeys.ReportKey("2025-06")
	require.Contains(t, fc.data, key)

	var content string
	require.NoError(t, json.Unmarshal(fc.data[key], &content))
	require.Equal(t, "# Gold Market Monitor", content)
}
