package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Frequency controls how often a digest may be sent.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyCustom:
		return true
	}
	return false
}

// EmailPreferences holds a user's digest settings. LastSentAt only moves
// forward; nil means a digest was never sent.
type EmailPreferences struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	UserID     string     `gorm:"uniqueIndex;size:36;not null" json:"user_id"`
	Enabled    bool       `gorm:"not null;default:false" json:"enabled"`
	Frequency  Frequency  `gorm:"size:16;not null;default:daily" json:"frequency"`
	CustomCron *string    `json:"custom_cron"`
	LastSentAt *time.Time `json:"last_sent_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (EmailPreferences) TableName() string {
	return "email_preferences"
}

func (p *EmailPreferences) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// PreferencesInput is the editable part of EmailPreferences.
type PreferencesInput struct {
	Enabled    bool      `json:"enabled"`
	Frequency  Frequency `json:"frequency"`
	CustomCron string    `json:"custom_cron"`
}
