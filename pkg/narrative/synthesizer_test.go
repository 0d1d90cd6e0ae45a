package narrative

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func disabledConfig() *Config {
	return &Config{
		BaseURL:             "https://api.openai.com/v1",
		Model:               "gpt-4o",
		MaxCompletionTokens: 1500,
		Temperature:         0.7,
		Timeout:             time.Minute,
	}
}

func TestSynthesizeFallbackWhenDisabled(t *testing.T) {
	s, err := NewSynthesizer(disabledConfig())
	require.NoError(t, err)
	require.False(t, s.Enabled())

	res := s.Synthesize(context.Background(), sampleInput())
	require.Equal(t, SourceFallback, res.Source)

	for _, want := range []string{
		"**Market Regime:** MILDLY BULLISH (Score: 2.75)",
		"real yields have fallen by 5.0%",
		"the US dollar has weakened by 2.0%",
		"Gold spot prices increased by 3.0%",
		"✅ Real yields falling (+1.0)",
		"**Position Recommendation:** Maintain or slightly increase position",
		"**Conviction Level:** Moderate conviction",
	} {
		require.Contains(t, res.Text, want)
	}
}

func TestSynthesizeFallbackWithEmptySnapshot(t *testing.T) {
	s, err := NewSynthesizer(disabledConfig())
	require.NoError(t, err)

	in := sampleInput()
	in.Snapshot = nil

	res := s.Synthesize(context.Background(), in)
	require.Equal(t, SourceFallback, res.Source)
	require.Contains(t, res.Text, "real yields show no 30-day reading")
	require.Contains(t, res.Text, "the US dollar shows no 30-day reading")
	require.Contains(t, res.Text, "Gold spot prices show no 30-day reading")
}

func TestSynthesizeUsesModel(t *testing.T) {
	var (
		mu       sync.Mutex
		lastBody []byte
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		lastBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionPayload("Synthesized regime analysis.")))
	}))
	defer server.Close()

	cfg := testClientConfig(server.URL)
	s, err := NewSynthesizer(cfg, WithHTTPClient(server.Client()))
	require.NoError(t, err)
	require.True(t, s.Enabled())

	res := s.Synthesize(context.Background(), sampleInput())
	require.Equal(t, SourceLLM, res.Source)
	require.Equal(t, "Synthesized regime analysis.", res.Text)

	mu.Lock()
	defer mu.Unlock()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(lastBody, &payload))

	messages := payload["messages"].([]any)
	require.Len(t, messages, 2)

	system := messages[0].(map[string]any)
	require.Equal(t, systemPrompt, system["content"])

	user := messages[1].(map[string]any)
	content, ok := user["content"].(string)
	require.True(t, ok)
	require.Contains(t, content, "## Current Market State (as of 2025-05-30)")
	require.Contains(t, content, "### Regime Score: 2.75 (MILDLY BULLISH)")
}

func TestSynthesizeFallsBackOnAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"prompt rejected","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	s, err := NewSynthesizer(testClientConfig(server.URL), WithHTTPClient(server.Client()))
	require.NoError(t, err)

	res := s.Synthesize(context.Background(), sampleInput())
	require.Equal(t, SourceFallback, res.Source)
	require.Contains(t, res.Text, "**Market Regime:**")
	require.Contains(t, res.Text, "fallback analysis")
}

func TestSynthesizeWithPromptOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brief.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("Assessment only: {{.Assessment}}"), 0o644))

	var (
		mu       sync.Mutex
		captured string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(body, &payload)
		mu.Lock()
		if msgs, ok := payload["messages"].([]any); ok && len(msgs) == 2 {
			captured, _ = msgs[1].(map[string]any)["content"].(string)
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionPayload("ok")))
	}))
	defer server.Close()

	cfg := testClientConfig(server.URL)
	cfg.PromptFile = path

	s, err := NewSynthesizer(cfg, WithHTTPClient(server.Client()))
	require.NoError(t, err)

	res := s.Synthesize(context.Background(), sampleInput())
	require.Equal(t, SourceLLM, res.Source)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "Assessment only: MILDLY BULLISH", captured)
}

func TestNewSynthesizerRejectsBadTemplate(t *testing.T) {
	cfg := disabledConfig()
	cfg.PromptFile = filepath.Join(t.TempDir(), "missing.tmpl")

	_, err := NewSynthesizer(cfg)
	require.Error(t, err)
}
