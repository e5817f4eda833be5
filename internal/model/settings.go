package model

import "time"

// Settings is the per-user preferences record.
type Settings struct {
	OwnerID       string    `gorm:"primaryKey;type:text" json:"-"`
	Language      string    `gorm:"default:he" json:"language" validate:"omitempty,oneof=he en"`
	Theme         string    `gorm:"default:light" json:"theme" validate:"omitempty,oneof=light dark"`
	Notifications bool      `json:"notifications"`
	OpenAIAPIKey  string    `json:"openai_api_key,omitempty"`
	CreatedAt     time.Time `json:"-"`
	UpdatedAt     time.Time `json:"-"`
}

// DeviceToken is a push-delivery registration for a user's device.
type DeviceToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   string    `gorm:"index;not null" json:"-"`
	Token     string    `gorm:"uniqueIndex;not null" json:"token"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}
