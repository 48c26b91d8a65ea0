package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission is the platform notification permission of a user.
type Permission string

const (
	PermissionUnsupported Permission = "unsupported"
	PermissionDefault     Permission = "default"
	PermissionGranted     Permission = "granted"
	PermissionDenied      Permission = "denied"
)

// User stores account metadata and the linked notification channel.
type User struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	Email            string     `gorm:"uniqueIndex;not null" json:"email"`
	Name             string     `json:"name"`
	APIToken         string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	TelegramChatID   int64      `gorm:"index" json:"-"`
	NotifyPermission Permission `gorm:"size:16;not null;default:default" json:"notify_permission"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.APIToken == "" {
		u.APIToken = uuid.NewString()
	}
	if u.NotifyPermission == "" {
		u.NotifyPermission = PermissionDefault
	}
	return nil
}

// DisplayName falls back to the local part of the email.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	for i := 0; i < len(u.Email); i++ {
		if u.Email[i] == '@' {
			return u.Email[:i]
		}
	}
	return u.Email
}
