package market

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/esseedoubleyou/goldmonitor/pkg/timeseries"
)

type stubProvider struct {
	name   string
	series map[string]timeseries.Series
	errs   map[string]error
	delay  time.Duration

	mu      sync.Mutex
	calls   []string
	active  int
	maxSeen int
}

func (s *stubProvider) Observations(ctx context.Context, symbol string, w Window) (timeseries.Series, error) {
	s.mu.Lock()
	s.calls = append(s.calls, symbol)
	s.active++
	if s.active > s.maxSeen {
		s.maxSeen = s.active
	}
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	s.active--
	s.mu.Unlock()

	if err, ok := s.errs[symbol]; ok {
		return timeseries.Series{}, err
	}
	return s.series[symbol], nil
}

func (s *stubProvider) Name() string { return s.name }

type shareStub struct {
	stubProvider
	shares    float64
	sharesErr error
}

func (s *shareStub) SharesOutstanding(ctx context.Context, symbol string) (float64, error) {
	if s.sharesErr != nil {
		return 0, s.sharesErr
	}
	return s.shares, nil
}

func obsSeries(name string, n int) timeseries.Series {
	pts := make([]timeseries.Point, n)
	for i := range pts {
		pts[i] = timeseries.Point{
			Date:  time.Date(2025, 6, 1+i, 0, 0, 0, 0, time.UTC),
			Value: float64(100 + i),
		}
	}
	return timeseries.Series{Name: name, Points: pts}
}

func TestGatewayFetchWalksChain(t *testing.T) {
	primary := &stubProvider{
		name: "fred",
		errs: map[string]error{"GOLDPMGBD228NLBM": errors.New("upstream down")},
	}
	backup := &stubProvider{
		name:   "yahoo",
		series: map[string]timeseries.Series{"GLD": obsSeries("GLD", 3)},
	}

	cfg := &Config{Series: map[string][]SourceRef{
		"gold_spot": {
			{Provider: "fred", Symbol: "GOLDPMGBD228NLBM", Scale: 1},
			{Provider: "yahoo", Symbol: "GLD", Scale: 10},
		},
	}}
	g := NewGateway(cfg, map[string]Provider{"fred": primary, "yahoo": backup})

	s, err := g.Fetch(context.Background(), "gold_spot", LastDays(30))
	require.NoError(t, err)
	require.Equal(t, "gold_spot", s.Name)
	require.Equal(t, 3, s.Len())
	require.InDelta(t, 1000.0, s.Points[0].Value, 1e-9)
	require.Equal(t, []string{"GOLDPMGBD228NLBM"}, primary.calls)
	require.Equal(t, []string{"GLD"}, backup.calls)
}

func TestGatewayFetchSkipsEmptySeries(t *testing.T) {
	empty := &stubProvider{
		name:   "fred",
		series: map[string]timeseries.Series{"SP500": {Name: "SP500"}},
	}
	full := &stubProvider{
		name:   "yahoo",
		series: map[string]timeseries.Series{"^GSPC": obsSeries("^GSPC", 2)},
	}

	cfg := &Config{Series: map[string][]SourceRef{
		"sp500": {
			{Provider: "fred", Symbol: "SP500", Scale: 1},
			{Provider: "yahoo", Symbol: "^GSPC", Scale: 1},
		},
	}}
	g := NewGateway(cfg, map[string]Provider{"fred": empty, "yahoo": full})

	s, err := g.Fetch(context.Background(), "sp500", LastDays(30))
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	require.Equal(t, "sp500", s.Name)
}

func TestGatewayFetchReportsExhaustedChain(t *testing.T) {
	broken := &stubProvider{
		name: "fred",
		errs: map[string]error{"DFII10": errors.New("500")},
	}
	cfg := &Config{Series: map[string][]SourceRef{
		"real_yield": {{Provider: "fred", Symbol: "DFII10", Scale: 1}},
	}}
	g := NewGateway(cfg, map[string]Provider{"fred": broken})

	_, err := g.Fetch(context.Background(), "real_yield", LastDays(30))
	require.Error(t, err)
	require.Contains(t, err.Error(), "all sources for real_yield failed")

	_, err = g.Fetch(context.Background(), "unknown_metric", LastDays(30))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no sources configured")
}

func TestGatewayFetchAllOmitsFailedMetrics(t *testing.T) {
	provider := &stubProvider{
		name: "fred",
		series: map[string]timeseries.Series{
			"DFII10": obsSeries("DFII10", 4),
			"DGS10":  obsSeries("DGS10", 4),
		},
		errs: map[string]error{"CPIAUCSL": errors.New("down")},
	}
	cfg := &Config{Series: map[string][]SourceRef{
		"real_yield":    {{Provider: "fred", Symbol: "DFII10", Scale: 1}},
		"nominal_yield": {{Provider: "fred", Symbol: "DGS10", Scale: 1}},
		"cpi":           {{Provider: "fred", Symbol: "CPIAUCSL", Scale: 1}},
	}}
	g := NewGateway(cfg, map[string]Provider{"fred": provider})

	got := g.FetchAll(context.Background(), LastDays(30))
	require.Len(t, got, 2)
	require.Contains(t, got, "real_yield")
	require.Contains(t, got, "nominal_yield")
	require.NotContains(t, got, "cpi")
	require.Equal(t, "real_yield", got["real_yield"].Name)
}

func TestGatewayFetchAllBoundsConcurrency(t *testing.T) {
	series := make(map[string]timeseries.Series)
	chains := make(map[string][]SourceRef)
	for _, symbol := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		series[symbol] = obsSeries(symbol, 2)
		chains["metric_"+symbol] = []SourceRef{{Provider: "stub", Symbol: symbol, Scale: 1}}
	}
	provider := &stubProvider{name: "stub", series: series, delay: 10 * time.Millisecond}

	g := NewGateway(&Config{Series: chains}, map[string]Provider{"stub": provider}, WithConcurrency(2))
	got := g.FetchAll(context.Background(), LastDays(30))

	require.Len(t, got, 8)
	require.LessOrEqual(t, provider.maxSeen, 2)
}

func TestGatewaySharesOutstanding(t *testing.T) {
	counter := &shareStub{stubProvider: stubProvider{name: "yahoo"}, shares: 312_400_000}
	plain := &stubProvider{name: "fred"}

	g := NewGateway(
		&Config{SharesSymbol: "GLD", Series: map[string][]SourceRef{}},
		map[string]Provider{"yahoo": counter, "fred": plain},
	)
	shares, err := g.SharesOutstanding(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 312_400_000, shares, 1e-6)

	noCounter := NewGateway(
		&Config{SharesSymbol: "GLD", Series: map[string][]SourceRef{}},
		map[string]Provider{"fred": plain},
	)
	_, err = noCounter.SharesOutstanding(context.Background())
	require.Error(t, err)
}
