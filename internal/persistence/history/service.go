// Package histpersist mirrors each run's artifacts into the configured
// stores: metric history into Postgres and the wide-CSV fallback file,
// latest snapshot, signal, and report into Redis for external consumers.
// Every sink is optional; the service degrades to whatever is wired.
package histpersist

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "github.com/esseedoubleyou/goldmonitor/internal/cache"
	"github.com/esseedoubleyou/goldmonitor/pkg/centralbank"
	"github.com/esseedoubleyou/goldmonitor/pkg/market"
	"github.com/esseedoubleyou/goldmonitor/pkg/metrics"
	"github.com/esseedoubleyou/goldmonitor/pkg/timeseries"
)

// Service implements the run-artifact persistence hooks.
type Service struct {
	sqlConn sqlx.SqlConn
	cache   gocache.Cache
	ttl     cachekeys.TTLSet
	csvPath string
}

var _ market.Recorder = (*Service)(nil)

// Config enumerates the sinks a service may write to.
type Config struct {
	SQLConn sqlx.SqlConn
	Cache   gocache.Cache
	TTL     cachekeys.TTLSet
	CSVPath string
}

// NewService wires a history persistence service. Returns nil when no sink
// is configured; every method on a nil service is a no-op.
func NewService(cfg Config) *Service {
	if cfg.SQLConn == nil && cfg.Cache == nil && cfg.CSVPath == "" {
		return nil
	}
	return &Service{
		sqlConn: cfg.SQLConn,
		cache:   cfg.Cache,
		ttl:     cfg.TTL,
		csvPath: cfg.CSVPath,
	}
}

// EnsureSchema creates the metric_history table when Postgres is configured.
// Safe to call on every startup.
func (s *Service) EnsureSchema(ctx context.Context) error {
	if s == nil || s.sqlConn == nil {
		return nil
	}
	stmt := `
CREATE TABLE IF NOT EXISTS public.metric_history (
    metric TEXT NOT NULL,
    obs_date DATE NOT NULL,
    value DOUBLE PRECISION NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (metric, obs_date)
);`
	_, err := s.sqlConn.ExecCtx(ctx, stmt)
	return err
}

// RecordHistory persists the merged per-metric series to every configured
// sink. Sinks fail independently: a Postgres outage still leaves the CSV
// mirror current, and vice versa. The first failure is returned after all
// sinks were attempted.
func (s *Service) RecordHistory(ctx context.Context, series map[string]timeseries.Series) error {
	if s == nil || len(series) == 0 {
		return nil
	}

	var dbErr error
	if s.sqlConn != nil {
		if dbErr = s.upsertHistory(ctx, series); dbErr != nil {
			logx.WithContext(ctx).Errorf("histpersist: upsert metric_history: %v", dbErr)
		}
	}

	digest := compactAll(series)
	var csvErr error
	if s.csvPath != "" {
		merged, err := s.mirrorCSV(digest)
		if err != nil {
			csvErr = err
			logx.WithContext(ctx).Errorf("histpersist: mirror %s: %v", s.csvPath, err)
		} else {
			digest = merged
		}
	}

	s.refreshHistoryDigest(ctx, digest)

	if dbErr != nil {
		return dbErr
	}
	return csvErr
}

func (s *Service) upsertHistory(ctx context.Context, series map[string]timeseries.Series) error {
	stmt := `
INSERT INTO public.metric_history (metric, obs_date, value, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
ON CONFLICT (metric, obs_date) DO UPDATE SET
    value = EXCLUDED.value,
    updated_at = NOW();`
	for name, srs := range series {
		if strings.TrimSpace(name) == "" {
			continue
		}
		for _, p := range srs.Points {
			if p.Date.IsZero() {
				continue
			}
			// Conflicting rows for one date arrive historical-first, so the
			// fresh value lands last and wins the upsert.
			if _, err := s.sqlConn.ExecCtx(ctx, stmt, name, timeseries.Day(p.Date), p.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// mirrorCSV overlays the run's series onto the existing file so metrics
// absent from this run keep their stored history, then rewrites the file.
func (s *Service) mirrorCSV(series map[string]timeseries.Series) (map[string]timeseries.Series, error) {
	existing, err := s.readMirror()
	if err != nil {
		return nil, err
	}

	merged := make(map[string]timeseries.Series, len(existing)+len(series))
	for name, srs := range existing {
		merged[name] = srs
	}
	for name, srs := range series {
		if name == "" || srs.Len() == 0 {
			continue
		}
		prev := merged[name]
		pts := make([]timeseries.Point, 0, len(prev.Points)+len(srs.Points))
		pts = append(pts, prev.Points...)
		pts = append(pts, srs.Points...)
		merged[name] = timeseries.Compact(timeseries.Series{Name: name, Points: pts})
	}

	if dir := filepath.Dir(s.csvPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(s.csvPath)
	if err != nil {
		return nil, err
	}
	if err := timeseries.WriteWideCSV(f, merged); err != nil {
		f.Close()
		return nil, err
	}
	return merged, f.Close()
}

func (s *Service) readMirror() (map[string]timeseries.Series, error) {
	f, err := os.Open(s.csvPath)
	if os.IsNotExist(err) {
		return map[string]timeseries.Series{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return timeseries.ReadWideCSV(f)
}

func (s *Service) refreshHistoryDigest(ctx context.Context, series map[string]timeseries.Series) {
	if s.cache == nil || len(series) == 0 {
		return
	}
	ttl := cachekeys.HistoryTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	key := cachekeys.HistoryKey()
	if err := s.cache.SetWithExpireCtx(ctx, key, series, ttl); err != nil {
		logx.WithContext(ctx).Errorf("histpersist: cache history key=%s err=%v", key, err)
	}
}

// RecordSnapshot caches the latest derived-metric snapshot.
func (s *Service) RecordSnapshot(ctx context.Context, snap *metrics.Snapshot) {
	if s == nil || s.cache == nil || snap == nil {
		return
	}
	ttl := cachekeys.SnapshotTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	key := cachekeys.SnapshotLatestKey()
	if err := s.cache.SetWithExpireCtx(ctx, key, snap, ttl); err != nil {
		logx.WithContext(ctx).Errorf("histpersist: cache snapshot key=%s err=%v", key, err)
	}
}

// RecordSignal caches the validated central-bank signal used for the run.
func (s *Service) RecordSignal(ctx context.Context, sig centralbank.Signal) {
	if s == nil || s.cache == nil || sig.Status == "" {
		return
	}
	ttl := cachekeys.SignalTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	key := cachekeys.SignalKey()
	if err := s.cache.SetWithExpireCtx(ctx, key, sig, ttl); err != nil {
		logx.WithContext(ctx).Errorf("histpersist: cache signal key=%s err=%v", key, err)
	}
}

// RecordReport caches a rendered monthly report under its YYYY-MM key.
func (s *Service) RecordReport(ctx context.Context, month, content string) {
	if s == nil || s.cache == nil || month == "" || content == "" {
		return
	}
	ttl := cachekeys.ReportTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	key := cachekeys.ReportKey(month)
	if err := s.cache.SetWithExpireCtx(ctx, key, content, ttl); err != nil {
		logx.WithContext(ctx).Errorf("histpersist: cache report key=%s err=%v", key, err)
	}
}

func compactAll(series map[string]timeseries.Series) map[string]timeseries.Series {
	out := make(map[string]timeseries.Series, len(series))
	for name, srs := range series {
		if name == "" || srs.Len() == 0 {
			continue
		}
		out[name] = timeseries.Compact(srs)
	}
	return out
}
