package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"taskly/internal/llm"
)

// Recommendation modes.
const (
	ModeRules = "rules"
	ModeModel = "model"
)

// Config keeps runtime settings for the bot and the HTTP API.
type Config struct {
	TelegramToken      string
	DatabaseURL        string        `validate:"required"`
	ReportInterval     time.Duration `validate:"gte=0"`
	DigestTime         string        `validate:"omitempty,datetime=15:04"`
	HTTPAddr           string        `validate:"required"`
	JWTSecret          string
	RecommendationMode string        `validate:"oneof=rules model"`
	FetchRetryDelay    time.Duration `validate:"gte=0"`
	LLM                llm.Config
}

// ModelRecommendations reports whether recommendations are phrased by the
// language model.
func (c Config) ModelRecommendations() bool {
	return c.RecommendationMode == ModeModel
}

// RequireTelegram checks the settings the bot cannot run without.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}

// RequireJWT checks the settings the HTTP API cannot run without.
func (c Config) RequireJWT() error {
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	return nil
}

var validate = validator.New()

// Load reads .env (when present) and the environment, with sane defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[warn] read .env: %v", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("DATABASE_URL", "taskly.db")
	v.SetDefault("REPORT_INTERVAL_HOURS", "5")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("RECOMMENDATION_MODE", ModeRules)
	v.SetDefault("FETCH_RETRY_DELAY", "1s")
	v.SetDefault("LLM_PROVIDER", string(llm.ProviderOpenAI))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		TelegramToken:      strings.TrimSpace(v.GetString("TELEGRAM_TOKEN")),
		DatabaseURL:        strings.TrimSpace(v.GetString("DATABASE_URL")),
		ReportInterval:     parseInterval(strings.TrimSpace(v.GetString("REPORT_INTERVAL_HOURS"))),
		DigestTime:         strings.TrimSpace(v.GetString("DIGEST_TIME")),
		HTTPAddr:           strings.TrimSpace(v.GetString("HTTP_ADDR")),
		JWTSecret:          strings.TrimSpace(v.GetString("JWT_SECRET")),
		RecommendationMode: strings.ToLower(strings.TrimSpace(v.GetString("RECOMMENDATION_MODE"))),
	}

	delay, err := time.ParseDuration(strings.TrimSpace(v.GetString("FETCH_RETRY_DELAY")))
	if err != nil {
		return cfg, fmt.Errorf("FETCH_RETRY_DELAY: %w", err)
	}
	cfg.FetchRetryDelay = delay

	provider, err := llm.ValidateProvider(strings.ToLower(strings.TrimSpace(v.GetString("LLM_PROVIDER"))))
	if err != nil {
		return cfg, fmt.Errorf("LLM_PROVIDER: %w", err)
	}
	cfg.LLM = llm.Config{
		Provider: provider,
		Model:    strings.TrimSpace(v.GetString("LLM_MODEL")),
		APIKey:   strings.TrimSpace(v.GetString("LLM_API_KEY")),
		BaseURL:  strings.TrimSpace(v.GetString("LLM_BASE_URL")),
	}
	if cfg.LLM.APIKey == "" && provider == llm.ProviderOpenAI {
		cfg.LLM.APIKey = strings.TrimSpace(v.GetString("OPENAI_API_KEY"))
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = llm.DefaultModel(provider)
	}

	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// parseInterval reads a whole or fractional number of hours. Anything
// unparsable or non-positive disables the interval.
func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
