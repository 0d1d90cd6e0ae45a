package narrative

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromReader(t *testing.T) {
	t.Setenv(envAPIKey, "override-key")
	t.Setenv(envTimeout, "45s")
	t.Setenv(envMaxRetries, "5")

	data := `
base_url: "https://llm.internal.example.com/v1"
api_key: "${OPENAI_API_KEY}"
model: "gpt-4o-mini"
max_completion_tokens: 900
temperature: 0.4
timeout: "30s"
max_retries: 2
`

	cfg, err := LoadConfigFromReader(strings.NewReader(data))
	require.NoError(t, err)

	require.Equal(t, "https://llm.internal.example.com/v1", cfg.BaseURL)
	require.Equal(t, "override-key", cfg.APIKey)
	require.Equal(t, "gpt-4o-mini", cfg.Model)
	require.Equal(t, 900, cfg.MaxCompletionTokens)
	require.InDelta(t, 0.4, cfg.Temperature, 0.0001)
	require.Equal(t, 45*time.Second, cfg.Timeout)
	require.Equal(t, 5, cfg.MaxRetries)
	require.True(t, cfg.Enabled())
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(envAPIKey, "")
	t.Setenv(envBaseURL, "")
	t.Setenv(envModel, "")
	t.Setenv(envTimeout, "")
	t.Setenv(envMaxRetries, "")

	cfg, err := LoadConfigFromReader(strings.NewReader(""))
	require.NoError(t, err)

	require.Equal(t, "https://api.openai.com/v1", cfg.BaseURL)
	require.Equal(t, "gpt-4o", cfg.Model)
	require.Equal(t, 1500, cfg.MaxCompletionTokens)
	require.InDelta(t, 0.7, cfg.Temperature, 0.0001)
	require.Equal(t, 60*time.Second, cfg.Timeout)
	require.Equal(t, 3, cfg.MaxRetries)
	require.False(t, cfg.Enabled())
}

func TestLoadConfigZeroTemperatureSticks(t *testing.T) {
	t.Setenv(envAPIKey, "")

	cfg, err := LoadConfigFromReader(strings.NewReader("temperature: 0\n"))
	require.NoError(t, err)
	require.Zero(t, cfg.Temperature)
}

func TestConfigMissingKeyIsNotAnError(t *testing.T) {
	cfg := &Config{
		BaseURL:             "https://api.openai.com/v1",
		Model:               "gpt-4o",
		MaxCompletionTokens: 1500,
		Temperature:         0.7,
		Timeout:             time.Minute,
	}
	require.NoError(t, cfg.Validate())
	require.False(t, cfg.Enabled())
}

func TestConfigValidation(t *testing.T) {
	base := func() *Config {
		return &Config{
			BaseURL:             "https://api.openai.com/v1",
			Model:               "gpt-4o",
			MaxCompletionTokens: 1500,
			Temperature:         0.7,
			Timeout:             time.Minute,
		}
	}

	t.Run("missing base url", func(t *testing.T) {
		cfg := base()
		cfg.BaseURL = " "
		require.Error(t, cfg.Validate())
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := base()
		cfg.Model = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("temperature out of range", func(t *testing.T) {
		cfg := base()
		cfg.Temperature = 2.5
		require.Error(t, cfg.Validate())
	})

	t.Run("non-positive token budget", func(t *testing.T) {
		cfg := base()
		cfg.MaxCompletionTokens = 0
		require.Error(t, cfg.Validate())
	})

	t.Run("negative retries", func(t *testing.T) {
		cfg := base()
		cfg.MaxRetries = -1
		require.Error(t, cfg.Validate())
	})
}

func TestLoadConfigRejectsBadTimeout(t *testing.T) {
	t.Setenv(envTimeout, "")

	_, err := LoadConfigFromReader(strings.NewReader(`timeout: "soon"`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid timeout")
}
