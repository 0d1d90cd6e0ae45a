// Package fred fetches observation series from the St. Louis Fed FRED API.
package fred

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

	"golang.org/x/time/rate"

	"github.com/esseedoubleyou/goldmonitor/pkg/timeseries"
)

const (
	defaultBaseURL          = "https://api.stlouisfed.org/fred"
	defaultHTTPTimeout      = 15 * time.Second
	defaultMaxRetries       = 3
	defaultRetryBackoffBase = 150 * time.Millisecond
	// FRED allows 120 requests per minute per key.
	defaultRateLimit = rate.Limit(2)

	dateLayout = "2006-01-02"
	// FRED marks absent observations with a bare dot.
	missingMarker = "."
)

// ErrMissingAPIKey indicates the client was built without a FRED API key.
var ErrMissingAPIKey = errors.New("fred: api key required")

// Client wraps access to the FRED observations endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxRetries int
	limiter    *rate.Limiter
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

// WithRateLimit overrides the request rate cap, in requests per second.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// NewClient constructs a FRED API client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries: defaultMaxRetries,
		limiter:    rate.NewLimiter(defaultRateLimit, 1),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

type observationsResponse struct {
	Observations []observationRow `json:"observations"`
}

type observationRow struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// Observations fetches the named series between start and end inclusive.
// Rows carrying the missing marker are skipped rather than surfaced as NaN.
func (c *Client) Observations(ctx context.Context, seriesID string, start, end time.Time) (timeseries.Series, error) {
	if c.apiKey == "" {
		return timeseries.Series{}, ErrMissingAPIKey
	}

	q := url.Values{}
	q.Set("series_id", seriesID)
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")
	if !start.IsZero() {
		q.Set("observation_start", start.UTC().Format(dateLayout))
	}
	if !end.IsZero() {
		q.Set("observation_end", end.UTC().Format(dateLayout))
	}

	var payload observationsResponse
	if err := c.get(ctx, c.baseURL+"/series/observations?"+q.Encode(), &payload); err != nil {
		return timeseries.Series{}, err
	}

	points := make([]timeseries.Point, 0, len(payload.Observations))
	for _, row := range payload.Observations {
		if row.Value == missingMarker || row.Value == "" {
			continue
		}
		date, err := time.ParseInLocation(dateLayout, row.Date, time.UTC)
		if err != nil {
			return timeseries.Series{}, fmt.Errorf("fred: parse date %q: %w", row.Date, err)
		}
		value, err := strconv.ParseFloat(row.Value, 64)
		if err != nil {
			return timeseries.Series{}, fmt.Errorf("fred: parse value %q at %s: %w", row.Value, row.Date, err)
		}
		points = append(points, timeseries.Point{Date: date, Value: value})
	}
	return timeseries.Series{Name: seriesID, Points: points}, nil
}

// get issues a rate-limited GET and decodes the response into result.
func (c *Client) get(ctx context.Context, rawURL string, result interface{}) error {
	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("fred: build request: %w", err)
		}

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
				lastErr = fmt.Errorf("fred: read response: %w", readErr)
			} else if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				lastErr = fmt.Errorf("fred: http status %d: %s", resp.StatusCode, string(body))
			} else {
				if result != nil {
					if err := json.Unmarshal(body, result); err != nil {
						return fmt.Errorf("fred: decode response: %w", err)
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
	return fmt.Errorf("fred: request failed without error detail")
}
