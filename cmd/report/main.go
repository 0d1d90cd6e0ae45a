package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/esseedoubleyou/goldmonitor/internal/cli"
	"github.com/esseedoubleyou/goldmonitor/internal/config"
	"github.com/esseedoubleyou/goldmonitor/internal/repo"
	"github.com/esseedoubleyou/goldmonitor/internal/svc"
	"github.com/esseedoubleyou/goldmonitor/pkg/journal"
	marketpkg "github.com/esseedoubleyou/goldmonitor/pkg/market"
	"github.com/esseedoubleyou/goldmonitor/pkg/metrics"
	narrativepkg "github.com/esseedoubleyou/goldmonitor/pkg/narrative"
	reportpkg "github.com/esseedoubleyou/goldmonitor/pkg/report"
	"github.com/esseedoubleyou/goldmonitor/pkg/timeseries"
)

var configFile = flag.String("f", "etc/goldmonitor.yaml", "the config file")

// runResult carries what a pipeline run produced, for the journal record and
// exit logging. Fields are filled progressively so a failed run still
// journals whatever it got through.
type runResult struct {
	window       int
	fetched      int
	failed       []string
	score        float64
	assessment   string
	narrativeSrc string
	cbStatus     string
	reportPath   string
}

func fatalf(format string, args ...interface{}) {
	logx.Errorf(format, args...)
	os.Exit(1)
}

func main() {
	var (
		days    = flag.Int("days", 0, "fetch window in days (0 uses the configured window)")
		noFetch = flag.Bool("no-fetch", false, "skip provider fetches and run on stored history only")
		noAI    = flag.Bool("no-ai", false, "skip the model call and use the deterministic narrative")
	)
	flag.Parse()
	logx.MustSetup(logx.LogConf{})
	logx.DisableStat()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logx.Errorf("load config %s: %v, continuing with defaults", *configFile, err)
		cfg = config.DefaultConfig()
	}
	cli.LogConfigSummary(cfg)
	svcCtx := svc.NewServiceContext(*cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logx.Infof("received signal %s, cancelling run", sig)
		cancel()
	}()

	started := time.Now()
	res, runErr := run(ctx, svcCtx, *days, *noFetch, *noAI)

	rec := &journal.RunRecord{
		StartedAt:         started,
		WindowDays:        res.window,
		MetricsFetched:    res.fetched,
		MetricsFailed:     res.failed,
		Score:             res.score,
		Assessment:        res.assessment,
		NarrativeSource:   res.narrativeSrc,
		CentralBankStatus: res.cbStatus,
		ReportPath:        res.reportPath,
		Success:           runErr == nil,
	}
	if runErr != nil {
		rec.ErrorMessage = runErr.Error()
	}
	if path, err := svcCtx.Journal.WriteRun(rec); err != nil {
		logx.Errorf("write run journal: %v", err)
	} else {
		logx.Infof("run journaled to %s", path)
	}

	if runErr != nil {
		fatalf("report run failed: %v", runErr)
	}
	logx.Infof("report written to %s (score %.1f, %s)", res.reportPath, res.score, res.assessment)
}

// run executes one end-to-end report cycle: stored history plus fresh
// observations, derived metrics, regime score, narrative, rendered report,
// then persistence of everything the next run needs.
func run(ctx context.Context, svcCtx *svc.ServiceContext, days int, noFetch, noAI bool) (runResult, error) {
	res := runResult{window: days}
	if res.window <= 0 {
		res.window = svcCtx.Config.WindowDays
	}

	if !noFetch {
		if lock := svcCtx.FetchLock(); lock != nil {
			acquired, err := lock.AcquireCtx(ctx)
			if err != nil {
				return res, fmt.Errorf("acquire fetch lock: %w", err)
			}
			if !acquired {
				return res, fmt.Errorf("another run holds the fetch lock")
			}
			defer func() {
				if _, err := lock.ReleaseCtx(context.Background()); err != nil {
					logx.Errorf("release fetch lock: %v", err)
				}
			}()
		}
	}

	hist, err := svcCtx.Repo.History.Load(ctx)
	if errors.Is(err, repo.ErrNoHistory) {
		logx.Info("no stored history, starting from live observations")
		hist = map[string]timeseries.Series{}
	} else if err != nil {
		return res, fmt.Errorf("load stored history: %w", err)
	}

	fresh := map[string]timeseries.Series{}
	var extras metrics.Extras
	if noFetch {
		logx.Info("provider fetch disabled, running on stored history")
	} else {
		fresh = svcCtx.Gateway.FetchAll(ctx, marketpkg.LastDays(res.window))
		res.fetched = len(fresh)
		for _, name := range svcCtx.Gateway.Metrics() {
			if _, ok := fresh[name]; !ok {
				res.failed = append(res.failed, name)
			}
		}
		if shares, sharesErr := svcCtx.Gateway.SharesOutstanding(ctx); sharesErr != nil {
			logx.Infof("shares outstanding unavailable: %v", sharesErr)
		} else {
			extras = metrics.Extras{GLDShares: shares, GLDSharesValid: true}
		}
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	merged := make(map[string]timeseries.Series, len(hist)+len(fresh))
	for name, s := range hist {
		merged[name] = s
	}
	for name, s := range fresh {
		m, mergeErr := timeseries.Merge(merged[name], s)
		if mergeErr != nil {
			logx.Errorf("merge %s: %v, keeping stored series", name, mergeErr)
			res.failed = append(res.failed, name)
			continue
		}
		merged[name] = m
	}
	sort.Strings(res.failed)
	if len(merged) == 0 {
		return res, fmt.Errorf("no observations available, nothing to report on")
	}

	snap := metrics.NewEngine().ComputeSnapshot(merged, extras)
	sig := svcCtx.CBStore.Latest(time.Now())
	res.cbStatus = string(sig.Status)

	score := svcCtx.Scorer.Score(snap, sig)
	res.score = score.Value
	res.assessment = string(score.Assessment)

	synth := svcCtx.Synthesizer
	if noAI && synth.Enabled() {
		offCfg := svcCtx.NarrativeConfig.Clone()
		offCfg.APIKey = ""
		offline, synthErr := narrativepkg.NewSynthesizer(offCfg)
		if synthErr != nil {
			return res, fmt.Errorf("build offline synthesizer: %w", synthErr)
		}
		synth = offline
	}
	nr := synth.Synthesize(ctx, narrativepkg.Input{Snapshot: snap, Score: score, Signal: sig})
	res.narrativeSrc = nr.Source

	asOf := time.Now()
	content, err := svcCtx.Renderer.Render(reportpkg.Input{
		Snapshot:    snap,
		Score:       score,
		Tuning:      svcCtx.Config.RegimeConfig(),
		Signal:      sig,
		Narrative:   nr.Text,
		GeneratedAt: asOf,
	})
	if err != nil {
		return res, fmt.Errorf("render report: %w", err)
	}
	path, err := reportpkg.Save(svcCtx.Config.ReportDir, asOf, content)
	if err != nil {
		return res, fmt.Errorf("save report: %w", err)
	}
	res.reportPath = path

	if err := svcCtx.Persist.RecordHistory(ctx, merged); err != nil {
		logx.Errorf("record history: %v", err)
	}
	svcCtx.Persist.RecordSnapshot(ctx, snap)
	svcCtx.Persist.RecordSignal(ctx, sig)
	svcCtx.Persist.RecordReport(ctx, asOf.Format("2006-01"), content)

	return res, nil
}
