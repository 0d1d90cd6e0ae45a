package fred

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dnaeon/go-vcr/cassette"
	"github.com/dnaeon/go-vcr/recorder"
	"github.com/stretchr/testify/assert"
)

// This test uses go-vcr to record/replay a real FRED observations call.
// It skips by default if cassette is absent and RECORD_CASSETTES != 1.
// Recording needs FRED_API_KEY in the environment.
func TestClient_Observations_Recorded(t *testing.T) {
	cassettePath := filepath.Join("testdata", "cassettes", "fred_dfii10.yaml")
	if _, err := os.Stat(cassettePath); os.IsNotExist(err) {
		if os.Getenv("RECORD_CASSETTES") != "1" {
			t.Skipf("cassette missing; set RECORD_CASSETTES=1 to record: %s", cassettePath)
		}
		err := os.MkdirAll(filepath.Dir(cassettePath), 0o755)
		assert.NoError(t, err, "mkdir cassettes dir should succeed")
	}

	apiKey := os.Getenv("FRED_API_KEY")
	if apiKey == "" {
		apiKey = "cassette-key"
	}

	r, err := recorder.New(cassettePath)
	assert.NoError(t, err, "recorder.New should not error")
	assert.NotNil(t, r, "recorder should not be nil")
	defer func() { _ = r.Stop() }()

	// Scrub the key from recorded interactions before they hit disk.
	r.AddFilter(func(i *cassette.Interaction) error {
		if u, err := url.Parse(i.URL); err == nil {
			q := u.Query()
			if q.Get("api_key") != "" {
				q.Set("api_key", "REDACTED")
				u.RawQuery = q.Encode()
				i.URL = u.String()
			}
		}
		return nil
	})

	// Match replays with the api_key stripped so the cassette works without
	// the key it was recorded with.
	r.SetMatcher(func(req *http.Request, i cassette.Request) bool {
		recorded, err := url.Parse(i.URL)
		if err != nil {
			return false
		}
		want := recorded.Query()
		got := req.URL.Query()
		want.Del("api_key")
		got.Del("api_key")
		return req.Method == i.Method && req.URL.Path == recorded.Path && got.Encode() == want.Encode()
	})

	httpClient := &http.Client{Transport: r}
	client := NewClient(apiKey, WithHTTPClient(httpClient), WithRateLimit(1000))
	ctx := context.Background()

	end := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	s, err := client.Observations(ctx, "DFII10", end.AddDate(0, 0, -30), end)
	assert.NoError(t, err, "Observations should not error")
	assert.Greater(t, s.Len(), 0, "series should not be empty")
	assert.Equal(t, "DFII10", s.Name)
}
