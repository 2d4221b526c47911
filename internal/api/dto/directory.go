package dto

import (
	"strings"
	"time"

	"github.com/hugh/clubhub/internal/api/validation"
	"github.com/hugh/clubhub/internal/database/models"
)

type CollegeDTO struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Domains []string `json:"domains,omitempty"`
}

type MemberDTO struct {
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	Image    string    `json:"image,omitempty"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type OrganizationDTO struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description *string     `json:"description"`
	Category    *string     `json:"category"`
	College     *CollegeDTO `json:"college"`
	Members     []MemberDTO `json:"members"`
	CreatedAt   time.Time   `json:"created_at"`
}

type JoinRequest struct {
	Role string `json:"role"`
}

func (r *JoinRequest) Validate() map[string]string {
	errors := make(map[string]string)

	r.Role = strings.TrimSpace(r.Role)
	if ok, msg := validation.IsValidRoleLabel(r.Role); !ok {
		errors["role"] = msg
	}

	return errors
}

func NewCollegeDTO(c *models.College) CollegeDTO {
	return CollegeDTO{
		ID:      c.ID.String(),
		Name:    c.Name,
		Domains: c.DomainNames(),
	}
}

func NewOrganizationDTO(o *models.Organization) OrganizationDTO {
	out := OrganizationDTO{
		ID:          o.ID.String(),
		Name:        o.Name,
		Description: o.Description,
		Category:    o.Category,
		Members:     make([]MemberDTO, 0, len(o.Members)),
		CreatedAt:   o.CreatedAt,
	}
	if o.College != nil {
		c := NewCollegeDTO(o.College)
		out.College = &c
	}
	for _, m := range o.Members {
		member := MemberDTO{
			UserID:   m.UserID.String(),
			Role:     m.Role,
			JoinedAt: m.CreatedAt,
		}
		if m.User != nil {
			member.Name = m.User.Name
			member.Image = m.User.Image
		}
		out.Members = append(out.Members, member)
	}
	return out
}

func NewOrganizationDTOs(orgs []models.Organization) []OrganizationDTO {
	out := make([]OrganizationDTO, len(orgs))
	for i := range orgs {
		out[i] = NewOrganizationDTO(&orgs[i])
	}
	return out
}
