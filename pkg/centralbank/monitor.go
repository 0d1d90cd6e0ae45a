package centralbank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/zeromicro/go-zero/core/logx"
	"golang.org/x/net/html"
)

// DefaultReportURL is the WGC page listing quarterly Gold Demand Trends
// publications.
const DefaultReportURL = "https://www.gold.org/goldhub/research/gold-demand-trends"

// maxReportLinks bounds how many listing links are inspected; newer reports
// sort first on the WGC page.
const maxReportLinks = 5

// quarterMention matches the quarter formats WGC uses in link text, e.g.
// "Q3 2025", "Q1-2025", "Q4'24".
var quarterMention = regexp.MustCompile(`(?i)Q([1-4])[\s\-']+(\d{2,4})`)

// Notifier delivers a detection notice to the human maintainer.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Monitor watches the WGC listing page for quarters it has not seen before.
// Seen quarters persist in a small JSON state file so repeated checks stay
// quiet until the next publication.
type Monitor struct {
	url       string
	statePath string
	client    *http.Client
	notifier  Notifier
	now       func() time.Time
}

// MonitorOption adjusts monitor behaviour.
type MonitorOption func(*Monitor)

// WithHTTPClient overrides the HTTP client used for page fetches.
func WithHTTPClient(client *http.Client) MonitorOption {
	return func(m *Monitor) {
		if client != nil {
			m.client = client
		}
	}
}

// WithNotifier sets the delivery channel for detection notices.
func WithNotifier(n Notifier) MonitorOption {
	return func(m *Monitor) { m.notifier = n }
}

// WithReportURL overrides the listing page, used by tests.
func WithReportURL(url string) MonitorOption {
	return func(m *Monitor) {
		if url != "" {
			m.url = url
		}
	}
}

// NewMonitor builds a monitor persisting state at statePath.
func NewMonitor(statePath string, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		url:       DefaultReportURL,
		statePath: statePath,
		client:    &http.Client{Timeout: 15 * time.Second},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type monitorState struct {
	CheckedQuarters []string `json:"checked_quarters"`
	LastCheck       string   `json:"last_check"`
}

// CheckForNewReport fetches the listing page and returns the first quarter
// label not seen before, empty when nothing new was published. Detection
// appends to the state file and notifies; extraction stays with the human.
func (m *Monitor) CheckForNewReport(ctx context.Context) (string, error) {
	body, err := m.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("check WGC reports page: %w", err)
	}

	links := reportLinks(body)
	if len(links) > maxReportLinks {
		links = links[:maxReportLinks]
	}

	state, err := m.loadState()
	if err != nil {
		return "", err
	}
	seen := make(map[string]struct{}, len(state.CheckedQuarters))
	for _, q := range state.CheckedQuarters {
		seen[q] = struct{}{}
	}

	for _, link := range links {
		quarter, ok := normalizeQuarter(link.text)
		if !ok {
			continue
		}
		if _, done := seen[quarter]; done {
			continue
		}

		state.CheckedQuarters = append(state.CheckedQuarters, quarter)
		if err := m.saveState(state); err != nil {
			return "", err
		}

		reportURL := link.href
		if reportURL != "" && !strings.HasPrefix(reportURL, "http") {
			reportURL = "https://www.gold.org" + reportURL
		}
		logx.Infow("new WGC report detected",
			logx.Field("quarter", quarter),
			logx.Field("url", reportURL),
		)
		m.notify(ctx, quarter, reportURL)
		return quarter, nil
	}

	logx.Infow("no new WGC reports", logx.Field("checked", len(state.CheckedQuarters)))
	return "", nil
}

func (m *Monitor) fetch(ctx context.Context) ([]byte, error) {
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := m.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		return err
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

type reportLink struct {
	href string
	text string
}

// reportLinks extracts anchors whose href mentions the gold-demand-trends
// slug, in document order.
func reportLinks(page []byte) []reportLink {
	doc, err := html.Parse(strings.NewReader(string(page)))
	if err != nil {
		return nil
	}
	var out []reportLink
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			var href string
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					href = attr.Val
					break
				}
			}
			if strings.Contains(strings.ToLower(href), "gold-demand-trends") {
				out = append(out, reportLink{href: href, text: nodeText(n)})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// normalizeQuarter turns a link-text mention into the curated Q<n>_<yyyy>
// label, expanding two-digit years.
func normalizeQuarter(text string) (string, bool) {
	match := quarterMention.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	year := match[2]
	if len(year) == 2 {
		year = "20" + year
	}
	return fmt.Sprintf("Q%s_%s", match[1], year), true
}

func (m *Monitor) loadState() (*monitorState, error) {
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &monitorState{}, nil
		}
		return nil, fmt.Errorf("read monitor state: %w", err)
	}
	var state monitorState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode monitor state: %w", err)
	}
	return &state, nil
}

func (m *Monitor) saveState(state *monitorState) error {
	state.LastCheck = m.now().UTC().Format(time.RFC3339)
	if err := os.MkdirAll(filepath.Dir(m.statePath), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode monitor state: %w", err)
	}
	if err := os.WriteFile(m.statePath, data, 0o644); err != nil {
		return fmt.Errorf("write monitor state: %w", err)
	}
	return nil
}

func (m *Monitor) notify(ctx context.Context, quarter, reportURL string) {
	if m.notifier == nil {
		return
	}
	subject := fmt.Sprintf("New WGC Gold Report: %s", quarter)
	body := fmt.Sprintf(`New WGC Gold Demand Trends report detected.

Quarter: %s
Report:  %s

Manual action required:
 1. Download the PDF report from the URL above.
 2. Find the "Central Banks & Other Institutions" row in the demand table.
 3. Record the net tonnes purchased for the quarter.
 4. Run: cbdata -quarter %s -tonnes <tonnes>

The monthly report reads the curated CSV once it is updated.`, quarter, reportURL, quarter)

	if err := m.notifier.Notify(ctx, subject, body); err != nil {
		logx.Errorw("report notification failed",
			logx.Field("quarter", quarter),
			logx.Field("error", err.Error()),
		)
	}
}
