package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "github.com/esseedoubleyou/goldmonitor/internal/cache"
	"github.com/esseedoubleyou/goldmonitor/pkg/timeseries"
)

// ErrNoHistory reports that no stored observations exist in any source.
// First runs hit this; callers proceed with fetch-only data.
var ErrNoHistory = errors.New("repo: no stored history")

// HistoryRepo loads the metric observations persisted by earlier runs.
type HistoryRepo interface {
	// Load returns every stored series keyed by metric, points ascending
	// by date. When neither Postgres nor the CSV file yields any rows it
	// returns ErrNoHistory rather than an empty map.
	Load(ctx context.Context) (map[string]timeseries.Series, error)
}

// historyRepo reads from Postgres and caches the digest via the go-zero
// cache layer. When the database is unconfigured or errors, it falls back
// to the wide-CSV file maintained by the persistence mirror.
type historyRepo struct {
	conn    sqlx.SqlConn
	cache   gocache.Cache
	ttl     cachekeys.TTLSet
	csvPath string
}

func newHistoryRepo(deps Dependencies) *historyRepo {
	return &historyRepo{
		conn:    deps.DBConn,
		cache:   deps.Cache,
		ttl:     deps.TTL,
		csvPath: deps.HistoryCSV,
	}
}

// helper: get from redis into v
func (r *historyRepo) getCache(ctx context.Context, key string, v interface{}) (bool, error) {
	if r.cache == nil {
		return false, nil
	}
	if err := r.cache.GetCtx(ctx, key, v); err != nil {
		if r.cache.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// helper: set redis from v
func (r *historyRepo) setCache(ctx context.Context, key string, ttl time.Duration, v interface{}) {
	if r.cache == nil || ttl <= 0 {
		return
	}
	if err := r.cache.SetWithExpireCtx(ctx, key, v, ttl); err != nil {
		logx.WithContext(ctx).Errorf("set cache %s: %v", key, err)
	}
}

type historyRow struct {
	Metric  string    `db:"metric"`
	ObsDate time.Time `db:"obs_date"`
	Value   float64   `db:"value"`
}

func (r *historyRepo) Load(ctx context.Context) (map[string]timeseries.Series, error) {
	key := cachekeys.HistoryKey()
	var cached map[string]timeseries.Series
	if ok, _ := r.getCache(ctx, key, &cached); ok && len(cached) > 0 {
		return cached, nil
	}

	if r.conn != nil {
		series, err := r.loadDB(ctx)
		switch {
		case err != nil:
			logx.WithContext(ctx).Errorf("db metric_history failed, falling back to csv: %v", err)
		case len(series) > 0:
			r.setCache(ctx, key, cachekeys.HistoryTTL(r.ttl), series)
			return series, nil
		}
		// An empty table falls through to the CSV seed file.
	}

	series, err := r.loadCSV()
	if err != nil {
		return nil, err
	}
	r.setCache(ctx, key, cachekeys.HistoryTTL(r.ttl), series)
	return series, nil
}

func (r *historyRepo) loadDB(ctx context.Context) (map[string]timeseries.Series, error) {
	const q = `SELECT metric, obs_date, value FROM metric_history ORDER BY metric, obs_date`

	var rows []historyRow
	if err := r.conn.QueryRowsCtx(ctx, &rows, q); err != nil {
		return nil, err
	}

	out := make(map[string]timeseries.Series, 16)
	for _, row := range rows {
		s := out[row.Metric]
		if s.Name == "" {
			s.Name = row.Metric
		}
		s.Points = append(s.Points, timeseries.Point{
			Date:  timeseries.Day(row.ObsDate),
			Value: row.Value,
		})
		out[row.Metric] = s
	}
	return out, nil
}

func (r *historyRepo) loadCSV() (map[string]timeseries.Series, error) {
	if r.csvPath == "" {
		return nil, ErrNoHistory
	}
	f, err := os.Open(r.csvPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoHistory
		}
		return nil, fmt.Errorf("open history csv: %w", err)
	}
	defer f.Close()

	series, err := timeseries.ReadWideCSV(f)
	if err != nil {
		return nil, fmt.Errorf("history csv %s: %w", r.csvPath, err)
	}
	if len(series) == 0 {
		return nil, ErrNoHistory
	}
	return series, nil
}
