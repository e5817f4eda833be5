package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecommendationType categorises a recommendation for display.
type RecommendationType string

const (
	RecUrgent       RecommendationType = "urgent"
	RecOverdue      RecommendationType = "overdue"
	RecMotivation   RecommendationType = "motivation"
	RecTaskAnalysis RecommendationType = "task_analysis"
)

// Recommendation is derived, regenerable advice. It is never a source of truth.
type Recommendation struct {
	ID        string             `gorm:"primaryKey;type:text" json:"id"`
	OwnerID   string             `gorm:"index;not null" json:"owner"`
	Content   string             `gorm:"not null" json:"content"`
	Type      RecommendationType `gorm:"not null" json:"type"`
	Reasoning string             `json:"reasoning,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

func (r *Recommendation) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
