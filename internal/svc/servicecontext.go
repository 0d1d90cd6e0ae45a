package svc

import (
	"log"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	cachekeys "github.com/esseedoubleyou/goldmonitor/internal/cache"
	"github.com/esseedoubleyou/goldmonitor/internal/config"
	histpersist "github.com/esseedoubleyou/goldmonitor/internal/persistence/history"
	"github.com/esseedoubleyou/goldmonitor/internal/repo"
	"github.com/esseedoubleyou/goldmonitor/pkg/centralbank"
	"github.com/esseedoubleyou/goldmonitor/pkg/journal"
	marketpkg "github.com/esseedoubleyou/goldmonitor/pkg/market"
	_ "github.com/esseedoubleyou/goldmonitor/pkg/market/sources/fred"
	_ "github.com/esseedoubleyou/goldmonitor/pkg/market/sources/yahoo"
	narrativepkg "github.com/esseedoubleyou/goldmonitor/pkg/narrative"
	"github.com/esseedoubleyou/goldmonitor/pkg/notify"
	regimepkg "github.com/esseedoubleyou/goldmonitor/pkg/regime"
	reportpkg "github.com/esseedoubleyou/goldmonitor/pkg/report"
)

const historyFileName = "gold_metrics_history.csv"

type ServiceContext struct {
	Config config.Config

	MarketConfig    *marketpkg.Config
	NarrativeConfig *narrativepkg.Config
	CBConfig        *centralbank.Config

	Providers map[string]marketpkg.Provider
	Gateway   *marketpkg.Gateway

	Scorer      *regimepkg.Scorer
	Synthesizer *narrativepkg.Synthesizer
	Renderer    *reportpkg.Renderer
	Journal     *journal.Writer

	CBStore   *centralbank.Store
	CBMonitor *centralbank.Monitor
	Notifier  centralbank.Notifier

	// Optional stores; nil when unconfigured. The pipeline runs on the
	// CSV fallback alone.
	DBConn sqlx.SqlConn
	Cache  gocache.Cache
	Redis  *redis.Redis
	TTL    cachekeys.TTLSet

	Repo    *repo.Set
	Persist *histpersist.Service
}

func NewServiceContext(c config.Config) *ServiceContext {
	svc := &ServiceContext{
		Config: c,
		TTL:    cachekeys.NewTTLSet(c.TTL),
	}

	// Build what credentials allow; fetch chains fall through past
	// providers that could not be built.
	mcfg := c.MarketConfig()
	providers, failed := mcfg.BuildAvailableProviders()
	for name, err := range failed {
		logx.Errorf("market provider %s unavailable: %v", name, err)
	}
	if len(providers) == 0 {
		log.Fatalf("no market providers available")
	}
	svc.MarketConfig = mcfg
	svc.Providers = providers
	svc.Gateway = marketpkg.NewGateway(mcfg, providers)

	scorer, err := regimepkg.NewScorer(c.RegimeConfig())
	if err != nil {
		log.Fatalf("failed to build regime scorer: %v", err)
	}
	svc.Scorer = scorer

	// Apply test environment defaults: use low-cost model for good quality
	ncfg := c.NarrativeConfig()
	if c.IsTestEnv() && ncfg.Enabled() {
		ncfg = ncfg.Clone()
		ncfg.Model = "gpt-4o-mini"
	}
	synth, err := narrativepkg.NewSynthesizer(ncfg)
	if err != nil {
		log.Fatalf("failed to build narrative synthesizer: %v", err)
	}
	svc.NarrativeConfig = ncfg
	svc.Synthesizer = synth

	renderer, err := reportpkg.NewRenderer()
	if err != nil {
		log.Fatalf("failed to build report renderer: %v", err)
	}
	svc.Renderer = renderer
	svc.Journal = journal.NewWriter(c.JournalDir)

	cbCfg := c.CentralBankConfig()
	svc.CBConfig = cbCfg
	svc.CBStore = centralbank.NewStore(cbCfg.DataFile, centralbank.WithStaleAfter(cbCfg.StaleDays))

	// Telegram is best-effort: a bad token must not take the pipeline down.
	svc.Notifier = notify.Log{}
	if cbCfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cbCfg.Telegram.Token, cbCfg.Telegram.ChatID)
		if err != nil {
			logx.Errorf("telegram notifier unavailable, alerts go to the log: %v", err)
		} else {
			svc.Notifier = tg
		}
	}
	svc.CBMonitor = centralbank.NewMonitor(cbCfg.StateFile,
		centralbank.WithNotifier(svc.Notifier),
		centralbank.WithReportURL(cbCfg.ReportURL),
	)

	if c.Postgres.DSN != "" {
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		if raw, err := conn.RawDB(); err == nil {
			raw.SetMaxOpenConns(c.Postgres.MaxOpen)
			raw.SetMaxIdleConns(c.Postgres.MaxIdle)
		}
		svc.DBConn = conn
	}

	if c.Redis.Host != "" {
		rds, err := redis.NewRedis(c.Redis)
		if err != nil {
			logx.Errorf("redis unavailable, running uncached: %v", err)
		} else {
			svc.Redis = rds
			svc.Cache = gocache.NewNode(rds, syncx.NewSingleFlight(),
				gocache.NewStat("goldmonitor"), cachekeys.ErrNotFound)
		}
	}

	historyCSV := filepath.Join(c.DataDir, historyFileName)
	repoSet, err := repo.New(repo.Dependencies{
		DBConn:     svc.DBConn,
		Cache:      svc.Cache,
		TTL:        svc.TTL,
		HistoryCSV: historyCSV,
	})
	if err != nil {
		log.Fatalf("failed to build repositories: %v", err)
	}
	svc.Repo = repoSet

	svc.Persist = histpersist.NewService(histpersist.Config{
		SQLConn: svc.DBConn,
		Cache:   svc.Cache,
		TTL:     svc.TTL,
		CSVPath: historyCSV,
	})

	return svc
}

// FetchLock returns the distributed guard against concurrent full-window
// fetches, or nil when Redis is not wired. The lock expires on its own, so
// a crashed holder never blocks the next run for long.
func (s *ServiceContext) FetchLock() *redis.RedisLock {
	if s.Redis == nil {
		return nil
	}
	lock := redis.NewRedisLock(s.Redis, cachekeys.FetchLockKey())
	if secs := int(cachekeys.FetchLockTTL(s.TTL) / time.Second); secs > 0 {
		lock.SetExpire(secs)
	}
	return lock
}
