package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskly/internal/llm"
)

func newViper(values map[string]string) *viper.Viper {
	v := viper.New()
	v.SetDefault("DATABASE_URL", "taskly.db")
	v.SetDefault("REPORT_INTERVAL_HOURS", "5")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("RECOMMENDATION_MODE", ModeRules)
	v.SetDefault("FETCH_RETRY_DELAY", "1s")
	v.SetDefault("LLM_PROVIDER", "openai")
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(newViper(nil))
	require.NoError(t, err)
	assert.Equal(t, "taskly.db", cfg.DatabaseURL)
	assert.Equal(t, 5*time.Hour, cfg.ReportInterval)
	assert.Equal(t, time.Second, cfg.FetchRetryDelay)
	assert.Equal(t, llm.ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.False(t, cfg.ModelRecommendations())
	assert.Error(t, cfg.RequireTelegram())
	assert.Error(t, cfg.RequireJWT())
}

func TestFromViper_OpenAIKeyFallback(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]string{"OPENAI_API_KEY": "sk-1"}))
	require.NoError(t, err)
	assert.Equal(t, "sk-1", cfg.LLM.APIKey)

	cfg, err = fromViper(newViper(map[string]string{"OPENAI_API_KEY": "sk-1", "LLM_API_KEY": "sk-2"}))
	require.NoError(t, err)
	assert.Equal(t, "sk-2", cfg.LLM.APIKey)

	cfg, err = fromViper(newViper(map[string]string{"OPENAI_API_KEY": "sk-1", "LLM_PROVIDER": "ollama"}))
	require.NoError(t, err)
	assert.Empty(t, cfg.LLM.APIKey)
	assert.Equal(t, "llama3.2", cfg.LLM.Model)
}

func TestFromViper_Overrides(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]string{
		"TELEGRAM_TOKEN":        " tok ",
		"REPORT_INTERVAL_HOURS": "0.5",
		"DIGEST_TIME":           "08:30",
		"JWT_SECRET":            "0123456789abcdef",
		"RECOMMENDATION_MODE":   "MODEL",
		"FETCH_RETRY_DELAY":     "250ms",
	}))
	require.NoError(t, err)
	assert.Equal(t, "tok", cfg.TelegramToken)
	assert.Equal(t, 30*time.Minute, cfg.ReportInterval)
	assert.Equal(t, "08:30", cfg.DigestTime)
	assert.True(t, cfg.ModelRecommendations())
	assert.Equal(t, 250*time.Millisecond, cfg.FetchRetryDelay)
	assert.NoError(t, cfg.RequireTelegram())
	assert.NoError(t, cfg.RequireJWT())
}

func TestFromViper_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"provider":    {"LLM_PROVIDER": "bedrock"},
		"mode":        {"RECOMMENDATION_MODE": "magic"},
		"retry delay": {"FETCH_RETRY_DELAY": "soon"},
		"digest time": {"DIGEST_TIME": "25:00"},
	}
	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := fromViper(newViper(values))
			assert.Error(t, err)
		})
	}
}

func TestParseInterval(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseInterval(""))
	assert.Equal(t, time.Duration(0), parseInterval("-1"))
	assert.Equal(t, time.Duration(0), parseInterval("x"))
	assert.Equal(t, 2*time.Hour, parseInterval("2"))
}
