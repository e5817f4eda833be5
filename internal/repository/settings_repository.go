package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"taskly/internal/model"
)

// SettingsRepository manages user preferences and push registrations.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetOrCreate returns the owner's settings, creating the defaults on first use.
func (r *SettingsRepository) GetOrCreate(ctx context.Context, ownerID string) (*model.Settings, error) {
	var settings model.Settings
	db := r.db.WithContext(ctx)
	err := db.Where("owner_id = ?", ownerID).First(&settings).Error
	switch {
	case err == nil:
		return &settings, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		settings = model.Settings{OwnerID: ownerID, Language: "he", Theme: "light", Notifications: true}
		if err := db.Create(&settings).Error; err != nil {
			return nil, fmt.Errorf("create settings: %w", err)
		}
		return &settings, nil
	default:
		return nil, fmt.Errorf("find settings: %w", err)
	}
}

func (r *SettingsRepository) Save(ctx context.Context, settings *model.Settings) error {
	if err := r.db.WithContext(ctx).Save(settings).Error; err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// RegisterDevice stores a push token. A token moving to another owner is
// reassigned.
func (r *SettingsRepository) RegisterDevice(ctx context.Context, ownerID, token string) (*model.DeviceToken, error) {
	var device model.DeviceToken
	db := r.db.WithContext(ctx)
	err := db.Where("token = ?", token).First(&device).Error
	switch {
	case err == nil:
		if device.OwnerID != ownerID {
			if err := db.Model(&device).Update("owner_id", ownerID).Error; err != nil {
				return nil, fmt.Errorf("update device token: %w", err)
			}
		}
		return &device, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		device = model.DeviceToken{OwnerID: ownerID, Token: token}
		if err := db.Create(&device).Error; err != nil {
			return nil, fmt.Errorf("create device token: %w", err)
		}
		return &device, nil
	default:
		return nil, fmt.Errorf("find device token: %w", err)
	}
}

func (r *SettingsRepository) ListDevices(ctx context.Context, ownerID string) ([]model.DeviceToken, error) {
	var devices []model.DeviceToken
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("list device tokens: %w", err)
	}
	return devices, nil
}
