package web

import (
	"github.com/hugh/clubhub/internal/api/dto"
	"github.com/hugh/clubhub/internal/auth"
)

// PageData is the template context shared by all pages. Each page reads
// only the fields it needs.
type PageData struct {
	Session   *auth.SessionView
	CSRFToken string

	Query         string
	Organizations []dto.OrganizationDTO
	Organization  *dto.OrganizationDTO
	IsMember      bool
	Profile       *dto.UserDTO

	Providers []string
	Redirect  string
	Error     string
}
