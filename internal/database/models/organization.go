package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Organization struct {
	Base
	Name        string     `gorm:"not null" json:"name"`
	Description *string    `gorm:"type:text" json:"description,omitempty"`
	Category    *string    `json:"category,omitempty"` // free-text tag: academic, sports, arts, ...
	CollegeID   *uuid.UUID `gorm:"type:uuid;index" json:"college_id,omitempty"`

	// Relationships
	College *College     `gorm:"foreignKey:CollegeID" json:"college,omitempty"`
	Members []Membership `gorm:"foreignKey:OrganizationID" json:"members"`
}

func (Organization) TableName() string {
	return "organizations"
}

// Membership links one user to one organization with a free-text role label.
// Rows are hard-deleted so the (user, organization) pair can be re-joined.
type Membership struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_user_org" json:"user_id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_user_org;index" json:"organization_id"`
	Role           string    `gorm:"not null;default:'member'" json:"role"` // member, officer, ...
	CreatedAt      time.Time `json:"created_at"`

	User         *User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Organization *Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"organization,omitempty"`
}

func (Membership) TableName() string {
	return "memberships"
}

func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
