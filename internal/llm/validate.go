package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIURL = "https://api.openai.com/v1"

// KeyValidator checks personal OpenAI keys before they are stored.
type KeyValidator struct {
	BaseURL string
	HTTP    *http.Client
}

func NewKeyValidator() *KeyValidator {
	return &KeyValidator{
		BaseURL: defaultOpenAIURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Validate reports whether the provider accepts key. Transport errors are
// returned; a rejected key is (false, nil).
func (v *KeyValidator) Validate(ctx context.Context, key string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, fmt.Errorf("API key is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(v.BaseURL, "/")+"/models", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.HTTP.Do(req)
	if err != nil {
		return false, fmt.Errorf("validate key: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}
