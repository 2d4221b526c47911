package dto

import (
	"time"

	"github.com/hugh/clubhub/internal/auth"
	"github.com/hugh/clubhub/internal/database/models"
)

// SessionResponse is the body of GET /api/v1/auth/session.
type SessionResponse struct {
	User    *auth.SessionView `json:"user"`
	Expires time.Time         `json:"expires"`
}

type UserDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Image       string          `json:"image,omitempty"`
	Role        string          `json:"role"`
	College     *CollegeDTO     `json:"college,omitempty"`
	Memberships []MembershipDTO `json:"memberships"`
}

// MembershipDTO is one organization on a user profile.
type MembershipDTO struct {
	OrganizationID   string    `json:"organization_id"`
	OrganizationName string    `json:"organization_name"`
	Role             string    `json:"role"`
	JoinedAt         time.Time `json:"joined_at"`
}

func NewUserDTO(u *models.User) UserDTO {
	out := UserDTO{
		ID:          u.ID.String(),
		Name:        u.Name,
		Image:       u.Image,
		Role:        string(u.Role),
		Memberships: make([]MembershipDTO, 0, len(u.Memberships)),
	}
	if u.College != nil {
		c := NewCollegeDTO(u.College)
		out.College = &c
	}
	for _, m := range u.Memberships {
		if m.Organization == nil {
			continue
		}
		out.Memberships = append(out.Memberships, MembershipDTO{
			OrganizationID:   m.OrganizationID.String(),
			OrganizationName: m.Organization.Name,
			Role:             m.Role,
			JoinedAt:         m.CreatedAt,
		})
	}
	return out
}
