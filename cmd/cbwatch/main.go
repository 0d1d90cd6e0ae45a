package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/esseedoubleyou/goldmonitor/internal/cli"
	"github.com/esseedoubleyou/goldmonitor/internal/config"
	"github.com/esseedoubleyou/goldmonitor/internal/svc"
)

const (
	defaultCheckInterval = 6 * time.Hour
	checkTimeout         = 30 * time.Second
	shutdownTimeout      = 10 * time.Second
)

var (
	checksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goldmonitor_cbwatch_checks_total",
			Help: "Total WGC listing checks by result",
		},
		[]string{"result"},
	)
	detectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "goldmonitor_cbwatch_detections_total",
			Help: "Total new quarterly reports detected",
		},
	)
	lastCheckUnix = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "goldmonitor_cbwatch_last_check_timestamp_seconds",
			Help: "Unix time of the last completed check",
		},
	)
)

func main() {
	configPath := flag.String("f", "etc/goldmonitor.yaml", "the config file")
	metricsAddr := flag.String("metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")
	once := flag.Bool("once", false, "run a single check and exit")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("[main] Starting central-bank report watcher...")

	appCfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("[main] Warning: failed to load app config: %v", err)
		appCfg = config.DefaultConfig()
	}
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("[main] %s", line)
	}

	svcCtx := svc.NewServiceContext(*appCfg)
	interval := svcCtx.CBConfig.CheckInterval
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	log.Printf("[main] Check interval: %s, state file: %s", interval, svcCtx.CBConfig.StateFile)

	prometheus.MustRegister(checksTotal, detectionsTotal, lastCheckUnix)
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			log.Printf("[metrics] Serving Prometheus metrics at %s/metrics", *metricsAddr)
			if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
				log.Printf("[metrics] Server stopped: %v", serveErr)
			}
		}()
		defer srv.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		checkOnce(ctx, svcCtx)
		return
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runWatcher(ctx, svcCtx, interval)
	}()

	log.Println("[main] Watcher started. Press Ctrl+C to stop.")

	<-ctx.Done()
	log.Println("[main] Shutdown signal received, stopping watcher...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[main] Watcher stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("[main] Shutdown timeout exceeded, forcing exit")
	}
}

// runWatcher polls the WGC listing page on a fixed schedule.
func runWatcher(ctx context.Context, svcCtx *svc.ServiceContext, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run once immediately on startup
	checkOnce(ctx, svcCtx)

	for {
		select {
		case <-ctx.Done():
			log.Println("[watch] Stopping report watcher")
			return
		case <-ticker.C:
			checkOnce(ctx, svcCtx)
		}
	}
}

// checkOnce runs a single listing check. Detection notices go out through the
// monitor's notifier; this layer only logs and counts.
func checkOnce(parentCtx context.Context, svcCtx *svc.ServiceContext) {
	if parentCtx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parentCtx, checkTimeout)
	defer cancel()

	start := time.Now()
	quarter, err := svcCtx.CBMonitor.CheckForNewReport(ctx)
	elapsed := time.Since(start)
	lastCheckUnix.SetToCurrentTime()

	if err != nil {
		checksTotal.WithLabelValues("error").Inc()
		log.Printf("[watch] [ERROR] %v, took %dms", err, elapsed.Milliseconds())
		return
	}
	checksTotal.WithLabelValues("ok").Inc()
	if quarter == "" {
		log.Printf("[watch] [OK] No new report, took %dms", elapsed.Milliseconds())
		return
	}
	detectionsTotal.Inc()
	log.Printf("[watch] [OK] New quarterly report detected: %s, took %dms", quarter, elapsed.Milliseconds())
	log.Printf("[watch] Record the figure once transcribed: cbdata -quarter %s -tonnes <value> -source <report>", quarter)
}
