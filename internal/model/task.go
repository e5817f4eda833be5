package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DueDateType tells how a task's due date is interpreted.
type DueDateType string

const (
	DueDate    DueDateType = "date"
	DueUnknown DueDateType = "unknown"
	DueUrgent  DueDateType = "urgent"
	DueASAP    DueDateType = "asap"
)

// Status is the progress of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Recurrence is the repeat pattern of a recurring task.
type Recurrence string

const (
	RecurDaily   Recurrence = "daily"
	RecurWeekly  Recurrence = "weekly"
	RecurMonthly Recurrence = "monthly"
)

// Task represents a single user-owned item of work.
type Task struct {
	ID                string      `gorm:"primaryKey;type:text" json:"id"`
	OwnerID           string      `gorm:"index;not null" json:"owner"`
	Title             string      `gorm:"not null" json:"title"`
	Description       string      `json:"description,omitempty"`
	DueDate           *time.Time  `json:"due_date,omitempty"`
	DueDateType       DueDateType `gorm:"default:unknown" json:"due_date_type"`
	Status            Status      `gorm:"index;default:pending" json:"status"`
	IsRecurring       bool        `gorm:"default:false" json:"is_recurring"`
	RecurrencePattern Recurrence  `json:"recurrence_pattern,omitempty"`
	IsArchived        bool        `gorm:"index;default:false" json:"is_archived"`
	LastCompletedAt   *time.Time  `json:"last_completed_at,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// IsCompleted reports whether the task is done.
func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// ShortID is the prefix shown in chat lists and accepted by commands.
func (t Task) ShortID() string {
	if len(t.ID) < 8 {
		return t.ID
	}
	return t.ID[:8]
}
