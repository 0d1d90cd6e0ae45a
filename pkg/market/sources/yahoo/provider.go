package yahoo

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/esseedoubleyou/goldmonitor/pkg/market"
	"github.com/esseedoubleyou/goldmonitor/pkg/timeseries"
)

const defaultProviderTimeout = 20 * time.Second

// Provider adapts the Yahoo client to the generic market.Provider contract.
// It also satisfies market.ShareCounter for the ETF shares lookup.
type Provider struct {
	client     *Client
	timeout    time.Duration
	providerID string
}

type providerConfig struct {
	timeout       time.Duration
	clientOptions []Option
}

// ProviderOption customises the Yahoo provider.
type ProviderOption func(*providerConfig)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(cfg *providerConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithClientOptions passes options to the underlying Yahoo client.
func WithClientOptions(options ...Option) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.clientOptions = append(cfg.clientOptions, options...)
	}
}

// NewProvider constructs a Yahoo market provider.
func NewProvider(opts ...ProviderOption) *Provider {
	cfg := &providerConfig{
		timeout: defaultProviderTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Provider{
		client:  NewClient(cfg.clientOptions...),
		timeout: cfg.timeout,
	}
}

func init() {
	market.RegisterProvider("yahoo", func(name string, cfg *market.ProviderConfig) (market.Provider, error) {
		opts := []ProviderOption{}
		clientOptions := []Option{}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		if cfg.BaseURL != "" {
			clientOptions = append(clientOptions, WithBaseURL(cfg.BaseURL))
		}
		if cfg.HTTPTimeout > 0 {
			clientOptions = append(clientOptions, WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
		}
		if cfg.MaxRetries > 0 {
			clientOptions = append(clientOptions, WithMaxRetries(cfg.MaxRetries))
		}
		if len(clientOptions) > 0 {
			opts = append(opts, WithClientOptions(clientOptions...))
		}
		provider := NewProvider(opts...)
		provider.providerID = name
		return provider, nil
	})
}

// Observations implements market.Provider.
func (p *Provider) Observations(ctx context.Context, symbol string, w market.Window) (timeseries.Series, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.client.DailyCloses(ctx, symbol, w.Start, w.End)
}

// SharesOutstanding implements market.ShareCounter.
func (p *Provider) SharesOutstanding(ctx context.Context, symbol string) (float64, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	return p.client.SharesOutstanding(ctx, symbol)
}

// Name implements market.Provider.
func (p *Provider) Name() string {
	if strings.TrimSpace(p.providerID) != "" {
		return p.providerID
	}
	return "yahoo"
}

func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, p.timeout)
}
