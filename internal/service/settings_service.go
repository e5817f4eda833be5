package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"taskly/internal/llm"
	"taskly/internal/model"
	"taskly/internal/repository"
)

var (
	// ErrInvalidSettings is returned when a settings update fails validation.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrInvalidAPIKey is returned when a personal key is rejected by the
	// provider.
	ErrInvalidAPIKey = errors.New("invalid api key")
)

// KeyChecker verifies a personal OpenAI key.
type KeyChecker interface {
	Validate(ctx context.Context, key string) (bool, error)
}

// SettingsUpdate carries the fields a client wants to change. Nil fields
// are left as they are.
type SettingsUpdate struct {
	Language      *string `json:"language"`
	Theme         *string `json:"theme"`
	Notifications *bool   `json:"notifications"`
	OpenAIAPIKey  *string `json:"openai_api_key"`
}

// SettingsService manages preferences, push registrations and the
// per-user model selection.
type SettingsService struct {
	settings *repository.SettingsRepository
	users    *repository.UserRepository
	models   *llm.Factory
	keys     KeyChecker
}

func NewSettingsService(settings *repository.SettingsRepository, users *repository.UserRepository, models *llm.Factory, keys KeyChecker) *SettingsService {
	return &SettingsService{settings: settings, users: users, models: models, keys: keys}
}

func (s *SettingsService) Get(ctx context.Context, ownerID string) (*model.Settings, error) {
	return s.settings.GetOrCreate(ctx, ownerID)
}

// Update applies the non-nil fields. An API key is stored as given; use
// SetAPIKey to check it against the provider first.
func (s *SettingsService) Update(ctx context.Context, ownerID string, upd SettingsUpdate) (*model.Settings, error) {
	settings, err := s.settings.GetOrCreate(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if upd.Language != nil {
		settings.Language = strings.TrimSpace(*upd.Language)
	}
	if upd.Theme != nil {
		settings.Theme = strings.TrimSpace(*upd.Theme)
	}
	if upd.Notifications != nil {
		settings.Notifications = *upd.Notifications
	}
	if upd.OpenAIAPIKey != nil {
		settings.OpenAIAPIKey = strings.TrimSpace(*upd.OpenAIAPIKey)
	}
	if err := validate.Struct(settings); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if err := s.settings.Save(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// SetAPIKey validates a personal key with the provider and stores it. An
// empty key clears the stored one.
func (s *SettingsService) SetAPIKey(ctx context.Context, ownerID, key string) error {
	key = strings.TrimSpace(key)
	if key != "" && s.keys != nil {
		ok, err := s.keys.Validate(ctx, key)
		if err != nil {
			return fmt.Errorf("validate api key: %w", err)
		}
		if !ok {
			return ErrInvalidAPIKey
		}
	}
	_, err := s.Update(ctx, ownerID, SettingsUpdate{OpenAIAPIKey: &key})
	return err
}

func (s *SettingsService) RegisterDevice(ctx context.Context, ownerID, token string) (*model.DeviceToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty device token", ErrInvalidSettings)
	}
	return s.settings.RegisterDevice(ctx, ownerID, token)
}

// Devices lists the push registrations handed to the delivery service.
func (s *SettingsService) Devices(ctx context.Context, ownerID string) ([]model.DeviceToken, error) {
	return s.settings.ListDevices(ctx, ownerID)
}

// ModelsEnabled reports whether the owner can reach a model, either through
// a personal key or the server configuration.
func (s *SettingsService) ModelsEnabled(ctx context.Context, ownerID string) bool {
	if s.models.Enabled() {
		return true
	}
	settings, err := s.settings.GetOrCreate(ctx, ownerID)
	return err == nil && settings.OpenAIAPIKey != ""
}

// CompleterFor returns the model client for the owner, preferring their
// personal key.
func (s *SettingsService) CompleterFor(ctx context.Context, ownerID string) (llm.Completer, error) {
	settings, err := s.settings.GetOrCreate(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.models.ForKey(ctx, settings.OpenAIAPIKey)
}

// Profile returns the store for the name the assistant learned about the
// owner.
func (s *SettingsService) Profile(ownerID string) *Profile {
	return &Profile{users: s.users, ownerID: ownerID}
}

// Profile persists the assistant's cached name on the user record.
type Profile struct {
	users   *repository.UserRepository
	ownerID string
}

func (p *Profile) CachedName(ctx context.Context) (string, error) {
	user, err := p.users.FindByID(ctx, p.ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("find user: %w", err)
	}
	return user.AssistantName, nil
}

func (p *Profile) CacheName(ctx context.Context, name string) error {
	return p.users.SetAssistantName(ctx, p.ownerID, name)
}
