// Package llm wraps the chat-model providers behind a single text-in,
// text-out call.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// Provider identifies the LLM provider to use.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

const (
	DefaultOllamaURL = "http://localhost:11434"
	defaultMaxTokens = 1024
)

var defaultModels = map[Provider]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderOllama:    "llama3.2",
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderGemini:    "gemini-2.0-flash",
}

// Config holds configuration for creating a chat model.
type Config struct {
	Provider Provider `mapstructure:"provider" validate:"omitempty,oneof=openai ollama anthropic gemini"`
	Model    string   `mapstructure:"model"`
	APIKey   string   `mapstructure:"api_key"`
	BaseURL  string   `mapstructure:"base_url"`
}

// Enabled reports whether the config can reach a model at all.
func (c Config) Enabled() bool {
	switch c.Provider {
	case ProviderOllama:
		return true
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		return c.APIKey != ""
	default:
		return false
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(p Provider) string {
	return defaultModels[p]
}

// ValidateProvider checks if the given provider string is supported.
func ValidateProvider(p string) (Provider, error) {
	switch Provider(p) {
	case ProviderOpenAI, ProviderOllama, ProviderAnthropic, ProviderGemini:
		return Provider(p), nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", p)
	}
}

// NewChatModel creates an eino chat model for the configured provider.
func NewChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultModel(cfg.Provider)
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			Model:   modelName,
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
		})

	case ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOllamaURL
		}
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: baseURL,
			Model:   modelName,
		})

	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required")
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     modelName,
			MaxTokens: defaultMaxTokens,
		})

	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required")
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  modelName,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: openai, ollama, anthropic, gemini)", cfg.Provider)
	}
}

// Request is a single model call: a system instruction, the user's message
// and optional JSON context sent as a second user message.
type Request struct {
	System  string
	Prompt  string
	Context json.RawMessage
}

// Completer answers a Request with free-form text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Client adapts an eino chat model to Completer.
type Client struct {
	chat model.BaseChatModel
}

func NewClient(chat model.BaseChatModel) *Client {
	return &Client{chat: chat}
}

func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(req.System),
		schema.UserMessage(req.Prompt),
	}
	if len(req.Context) > 0 {
		messages = append(messages, schema.UserMessage(string(req.Context)))
	}

	resp, err := c.chat.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("llm generate: empty response")
	}
	return strings.TrimSpace(resp.Content), nil
}

// Factory builds completers from the server config, or from a user's
// personal OpenAI key when one is stored in their settings.
type Factory struct {
	cfg Config

	mu     sync.Mutex
	shared Completer
	build  func(ctx context.Context, cfg Config) (Completer, error)
}

func NewFactory(cfg Config) *Factory {
	return &Factory{cfg: cfg, build: buildClient}
}

// NewStaticFactory serves the same completer for every key.
func NewStaticFactory(c Completer) *Factory {
	return &Factory{
		cfg:    Config{Provider: ProviderOllama},
		shared: c,
		build: func(context.Context, Config) (Completer, error) {
			return c, nil
		},
	}
}

// Enabled reports whether any completer can be built without a personal key.
func (f *Factory) Enabled() bool {
	return f != nil && (f.shared != nil || f.cfg.Enabled())
}

// ForKey returns a completer. A non-empty personal key selects OpenAI with
// that key; otherwise the shared server completer is used.
func (f *Factory) ForKey(ctx context.Context, personalKey string) (Completer, error) {
	personalKey = strings.TrimSpace(personalKey)
	if personalKey != "" {
		cfg := Config{Provider: ProviderOpenAI, APIKey: personalKey}
		if f.cfg.Provider == ProviderOpenAI {
			cfg.Model = f.cfg.Model
		}
		return f.build(ctx, cfg)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shared != nil {
		return f.shared, nil
	}
	if !f.cfg.Enabled() {
		return nil, fmt.Errorf("no language model configured")
	}
	c, err := f.build(ctx, f.cfg)
	if err != nil {
		return nil, err
	}
	f.shared = c
	return c, nil
}

func buildClient(ctx context.Context, cfg Config) (Completer, error) {
	chat, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create model: %w", err)
	}
	return NewClient(chat), nil
}
