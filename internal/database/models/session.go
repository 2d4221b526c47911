package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a server-side login session. Only the SHA-256 of the opaque
// cookie token is stored.
type Session struct {
	Base
	TokenHash string    `gorm:"uniqueIndex;not null;size:64" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Session) TableName() string {
	return "sessions"
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
