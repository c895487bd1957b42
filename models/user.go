package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// DefaultDisplayName is shown for members that never set one.
	DefaultDisplayName = "Member"
	// DefaultAvatar is the fallback avatar symbol.
	DefaultAvatar = "🧑"
)

// User represents a group member. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string         `gorm:"size:255;index" json:"email"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	DisplayName  string         `gorm:"size:64" json:"display_name"`
	Avatar       string         `gorm:"size:32" json:"avatar"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Name returns the display name with the default applied.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return DefaultDisplayName
}

// AvatarOrDefault returns the avatar symbol with the default applied.
func (u User) AvatarOrDefault() string {
	if u.Avatar != "" {
		return u.Avatar
	}
	return DefaultAvatar
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
