package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FollowUp is a reminder attached to a task. Notified only ever moves from
// false to true.
type FollowUp struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	TaskID    string    `gorm:"index;size:36;not null" json:"task_id"`
	UserID    string    `gorm:"index;size:36;not null;default:''" json:"user_id"`
	Title     string    `gorm:"not null" json:"title"`
	DueDate   time.Time `gorm:"index;not null" json:"due_date"`
	Notified  bool      `gorm:"not null;default:false;index" json:"notified"`
	CreatedAt time.Time `json:"created_at"`

	// TaskTitle is filled by joined reads only.
	TaskTitle string `gorm:"->;-:migration" json:"task_title,omitempty"`
}

func (f *FollowUp) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.DueDate = f.DueDate.UTC()
	return nil
}

// Due reports whether the follow-up should fire at now.
func (f FollowUp) Due(now time.Time) bool {
	return !f.Notified && !now.Before(f.DueDate)
}

// FollowUpInput represents data required to create a follow-up.
type FollowUpInput struct {
	TaskID  string    `json:"task_id"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"due_date"`
}
