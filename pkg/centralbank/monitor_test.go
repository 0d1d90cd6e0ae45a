package centralbank

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
}

func (r *recordingNotifier) Notify(_ context.Context, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	r.bodies = append(r.bodies, body)
	return nil
}

const listingPage = `<html><body>
<ul>
<li><a href="/goldhub/research/gold-demand-trends/gold-demand-trends-q1-2025">Gold Demand Trends Q1 2025</a></li>
<li><a href="/goldhub/research/gold-demand-trends/gold-demand-trends-q4-2024">Gold Demand Trends Q4'24</a></li>
<li><a href="/goldhub/research/other-research">Central bank survey</a></li>
</ul>
</body></html>`

func TestCheckForNewReportDetectsAndRemembers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(listingPage))
	}))
	defer srv.Close()

	notifier := &recordingNotifier{}
	statePath := filepath.Join(t.TempDir(), "cb_monitor_state.json")
	m := NewMonitor(statePath,
		WithReportURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithNotifier(notifier),
	)
	ctx := context.Background()

	quarter, err := m.CheckForNewReport(ctx)
	require.NoError(t, err)
	require.Equal(t, "Q1_2025", quarter)
	require.Len(t, notifier.subjects, 1)
	require.Contains(t, notifier.subjects[0], "Q1_2025")
	require.Contains(t, notifier.bodies[0], "cbdata -quarter Q1_2025")

	// The other listed quarter is still unseen.
	quarter, err = m.CheckForNewReport(ctx)
	require.NoError(t, err)
	require.Equal(t, "Q4_2024", quarter, "two-digit year expands")

	// Everything seen now; stays quiet.
	quarter, err = m.CheckForNewReport(ctx)
	require.NoError(t, err)
	require.Empty(t, quarter)
	require.Len(t, notifier.subjects, 2)

	state, err := m.loadState()
	require.NoError(t, err)
	require.Equal(t, []string{"Q1_2025", "Q4_2024"}, state.CheckedQuarters)
	require.NotEmpty(t, state.LastCheck)
}

func TestCheckForNewReportSurfacesFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewMonitor(filepath.Join(t.TempDir(), "state.json"),
		WithReportURL(srv.URL),
		WithHTTPClient(srv.Client()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // stop the retry loop immediately
	_, err := m.CheckForNewReport(ctx)
	require.Error(t, err)
}

func TestNormalizeQuarter(t *testing.T) {
	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"Gold Demand Trends Q3 2025", "Q3_2025", true},
		{"Gold Demand Trends Q4'24", "Q4_2024", true},
		{"Q2-2025 full year outlook", "Q2_2025", true},
		{"Annual review 2025", "", false},
	}
	for _, tc := range cases {
		got, ok := normalizeQuarter(tc.text)
		require.Equal(t, tc.ok, ok, tc.text)
		require.Equal(t, tc.want, got, tc.text)
	}
}
