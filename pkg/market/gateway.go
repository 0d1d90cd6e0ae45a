package market

import (
	"context"
	"fmt"
	"sync"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/esseedoubleyou/goldmonitor/pkg/timeseries"
)

const defaultFetchConcurrency = 4

// Gateway resolves the configured metric chains against built providers.
type Gateway struct {
	providers    map[string]Provider
	series       map[string][]SourceRef
	sharesSymbol string
	concurrency  int
}

// GatewayOption customises gateway behaviour.
type GatewayOption func(*Gateway)

// WithConcurrency bounds the number of metrics fetched in parallel.
func WithConcurrency(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

// NewGateway wires built providers to the configured series chains.
func NewGateway(cfg *Config, providers map[string]Provider, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		providers:    providers,
		series:       cfg.Series,
		sharesSymbol: cfg.SharesSymbol,
		concurrency:  defaultFetchConcurrency,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FetchAll pulls every configured metric inside w. Metrics whose whole chain
// fails are logged and omitted so one dead source never blocks the rest.
func (g *Gateway) FetchAll(ctx context.Context, w Window) map[string]timeseries.Series {
	results := make(map[string]timeseries.Series, len(g.series))
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, g.concurrency)
	)
	for metric := range g.series {
		wg.Add(1)
		go func(metric string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			s, err := g.Fetch(ctx, metric, w)
			if err != nil {
				logx.WithContext(ctx).Errorw("market: series unavailable",
					logx.Field("series", metric),
					logx.Field("err", err.Error()))
				return
			}
			mu.Lock()
			results[metric] = s
			mu.Unlock()
		}(metric)
	}
	wg.Wait()
	return results
}

// Fetch walks the fallback chain for one metric and returns the first usable
// series, renamed to the metric and with the source scale applied.
func (g *Gateway) Fetch(ctx context.Context, metric string, w Window) (timeseries.Series, error) {
	chain, ok := g.series[metric]
	if !ok {
		return timeseries.Series{}, fmt.Errorf("market: no sources configured for %s", metric)
	}
	var lastErr error
	for _, src := range chain {
		provider, ok := g.providers[src.Provider]
		if !ok {
			lastErr = fmt.Errorf("market: provider %s not built", src.Provider)
			continue
		}
		s, err := provider.Observations(ctx, src.Symbol, w)
		if err != nil {
			lastErr = err
			logx.WithContext(ctx).Infow("market: source failed, trying next",
				logx.Field("series", metric),
				logx.Field("provider", provider.Name()),
				logx.Field("symbol", src.Symbol),
				logx.Field("err", err.Error()))
			continue
		}
		if s.Len() == 0 {
			lastErr = fmt.Errorf("market: %s/%s returned no observations", src.Provider, src.Symbol)
			continue
		}
		if src.Scale != 1 && src.Scale != 0 {
			for i := range s.Points {
				s.Points[i].Value *= src.Scale
			}
		}
		s.Name = metric
		return s, nil
	}
	return timeseries.Series{}, fmt.Errorf("market: all sources for %s failed: %w", metric, lastErr)
}

// SharesOutstanding reports shares outstanding for the configured ETF symbol
// from the first provider able to. Callers treat failure as an absent value.
func (g *Gateway) SharesOutstanding(ctx context.Context) (float64, error) {
	if g.sharesSymbol == "" {
		return 0, fmt.Errorf("market: no shares symbol configured")
	}
	var lastErr error
	for name, provider := range g.providers {
		counter, ok := provider.(ShareCounter)
		if !ok {
			continue
		}
		shares, err := counter.SharesOutstanding(ctx, g.sharesSymbol)
		if err != nil {
			lastErr = fmt.Errorf("market: %s shares lookup: %w", name, err)
			continue
		}
		return shares, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("market: no provider reports shares outstanding")
	}
	return 0, lastErr
}

// Metrics lists the configured series names.
func (g *Gateway) Metrics() []string {
	names := make([]string, 0, len(g.series))
	for metric := range g.series {
		names = append(names, metric)
	}
	return names
}
