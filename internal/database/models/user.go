package models

import "github.com/google/uuid"

type Role string

const (
	RoleMember  Role = "member"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleOfficer, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	Base
	Name      string     `json:"name"`
	Email     string     `gorm:"uniqueIndex;not null" json:"email"`
	Image     string     `json:"image,omitempty"`
	Role      Role       `gorm:"not null;default:'member'" json:"role"`
	CollegeID *uuid.UUID `gorm:"type:uuid;index" json:"college_id,omitempty"`

	// Relationships
	College     *College     `gorm:"foreignKey:CollegeID" json:"college,omitempty"`
	Memberships []Membership `gorm:"foreignKey:UserID" json:"memberships,omitempty"`
	Accounts    []Account    `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Account links a user to an identity at an OAuth provider.
type Account struct {
	Base
	UserID            uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Provider          string    `gorm:"not null;uniqueIndex:idx_accounts_provider_account" json:"provider"`
	ProviderAccountID string    `gorm:"not null;uniqueIndex:idx_accounts_provider_account" json:"provider_account_id"`

	// Encrypted with the server's age identity
	AccessToken string `gorm:"type:text" json:"-"`
	TokenType   string `json:"-"`
	Scope       string `json:"-"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}
