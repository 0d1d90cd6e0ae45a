// Package yahoo fetches daily closes from the public Yahoo Finance chart API.
// It needs no key, which makes it the fallback of choice for series FRED does
// not carry and for outage cover on the ones it does.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/esseedoubleyou/goldmonitor/pkg/timeseries"
)

const (
	defaultBaseURL          = "https://query1.finance.yahoo.com"
	defaultHTTPTimeout      = 15 * time.Second
	defaultMaxRetries       = 3
	defaultRetryBackoffBase = 150 * time.Millisecond
	// Yahoo rejects requests without a browser-like user agent.
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// ErrNoQuoteData indicates the response carried no usable quote payload.
var ErrNoQuoteData = errors.New("yahoo: no quote data in response")

// Client wraps access to the Yahoo Finance chart and quoteSummary endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	userAgent  string
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the default API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithMaxRetries adjusts the retry budget.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient constructs a Yahoo Finance client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries: defaultMaxRetries,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			DefaultKeyStatistics struct {
				SharesOutstanding struct {
					Raw float64 `json:"raw"`
				} `json:"sharesOutstanding"`
			} `json:"defaultKeyStatistics"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteSummary"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("yahoo: %s: %s", e.Code, e.Description)
}

// DailyCloses fetches 1d-interval closes for symbol between start and end.
// Null closes (holidays, halts) are skipped. Timestamps are truncated to
// their UTC day.
func (c *Client) DailyCloses(ctx context.Context, symbol string, start, end time.Time) (timeseries.Series, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", strconv.FormatInt(start.UTC().Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.UTC().Unix(), 10))
	rawURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	var payload chartResponse
	if err := c.get(ctx, rawURL, &payload); err != nil {
		return timeseries.Series{}, err
	}
	if payload.Chart.Error != nil {
		return timeseries.Series{}, payload.Chart.Error
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return timeseries.Series{}, ErrNoQuoteData
	}

	result := payload.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	points := make([]timeseries.Point, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, timeseries.Point{
			Date:  timeseries.Day(time.Unix(ts, 0).UTC()),
			Value: *closes[i],
		})
	}
	return timeseries.Series{Name: symbol, Points: points}, nil
}

// SharesOutstanding reports shares outstanding for an ETF or stock symbol via
// the quoteSummary endpoint.
func (c *Client) SharesOutstanding(ctx context.Context, symbol string) (float64, error) {
	rawURL := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=defaultKeyStatistics", c.baseURL, url.PathEscape(symbol))

	var payload quoteSummaryResponse
	if err := c.get(ctx, rawURL, &payload); err != nil {
		return 0, err
	}
	if payload.QuoteSummary.Error != nil {
		return 0, payload.QuoteSummary.Error
	}
	if len(payload.QuoteSummary.Result) == 0 {
		return 0, ErrNoQuoteData
	}
	shares := payload.QuoteSummary.Result[0].DefaultKeyStatistics.SharesOutstanding.Raw
	if shares <= 0 {
		return 0, fmt.Errorf("yahoo: shares outstanding missing for %s", symbol)
	}
	return shares, nil
}

// get issues a GET with the browser user agent and decodes into result.
func (c *Client) get(ctx context.Context, rawURL string, result interface{}) error {
	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("yahoo: build request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("yahoo: read response: %w", readErr)
			} else if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				lastErr = fmt.Errorf("yahoo: http status %d: %s", resp.StatusCode, string(body))
			} else {
				if result != nil {
					if err := json.Unmarshal(body, result); err != nil {
						return fmt.Errorf("yahoo: decode response: %w", err)
					}
				}
				return nil
			}
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}
	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("yahoo: request failed without error detail")
}
