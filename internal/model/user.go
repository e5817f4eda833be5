package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User owns tasks. Telegram users carry their chat identity; API users are
// created from the token subject.
type User struct {
	ID            string `gorm:"primaryKey;type:text"`
	TelegramID    *int64 `gorm:"uniqueIndex"`
	FirstName     string
	LastName      string
	Username      string
	AssistantName string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
