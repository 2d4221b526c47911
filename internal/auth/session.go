package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/clubhub/internal/database/models"
	"github.com/hugh/clubhub/pkg/crypto"
	"gorm.io/gorm"
)

// SessionView is the session object handed to pages and API clients.
// The base fields come from the session row; the rest is attached by
// Enrich on every read.
type SessionView struct {
	UserID  uuid.UUID `json:"user_id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Image   string    `json:"image,omitempty"`
	Expires time.Time `json:"expires"`

	Role              models.Role        `json:"role,omitempty"`
	CollegeID         *uuid.UUID         `json:"college_id,omitempty"`
	College           *CollegeView       `json:"college,omitempty"`
	OrganizationRoles []OrganizationRole `json:"organization_roles,omitempty"`
}

type CollegeView struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Domains []string  `json:"domains"`
}

type OrganizationRole struct {
	OrganizationID   uuid.UUID `json:"organization_id"`
	OrganizationName string    `json:"organization_name"`
	Role             string    `json:"role"`
}

// Enriched reports whether Enrich attached the user's record.
func (v *SessionView) Enriched() bool {
	return v != nil && v.Role != ""
}

// IsMember reports whether the session user belongs to orgID.
func (v *SessionView) IsMember(orgID uuid.UUID) bool {
	if v == nil {
		return false
	}
	for _, r := range v.OrganizationRoles {
		if r.OrganizationID == orgID {
			return true
		}
	}
	return false
}

func baseView(user *models.User, expires time.Time) *SessionView {
	return &SessionView{
		UserID:  user.ID,
		Name:    user.Name,
		Email:   user.Email,
		Image:   user.Image,
		Expires: expires,
	}
}

// Session resolves a raw session token to the enriched view.
func (s *Service) Session(ctx context.Context, token string) (*SessionView, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	var session models.Session
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("token_hash = ?", crypto.HashToken(token)).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if session.Expired(s.now()) {
		if err := s.db.WithContext(ctx).Unscoped().Delete(&session).Error; err != nil {
			s.logger.Debug("removing expired session failed", "error", err)
		}
		return nil, ErrSessionExpired
	}
	if session.User == nil {
		return nil, ErrSessionNotFound
	}

	return s.Enrich(ctx, baseView(session.User, session.ExpiresAt)), nil
}

// Enrich attaches role, college and organization roles from the current
// tables. It never fails: when the user is gone the view is returned as
// given, and when the store errors the view is returned as given and the
// degradation is logged and counted.
func (s *Service) Enrich(ctx context.Context, view *SessionView) *SessionView {
	if view == nil {
		return nil
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Preload("College.Domains").
		Preload("Memberships", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Memberships.Organization").
		First(&user, "id = ?", view.UserID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.EnrichDegraded()
			s.logger.Warn("session enrichment failed", "user_id", view.UserID, "error", err)
		}
		return view
	}

	out := *view
	out.Role = user.Role
	out.CollegeID = user.CollegeID
	out.College = nil
	if user.College != nil {
		out.College = &CollegeView{
			ID:      user.College.ID,
			Name:    user.College.Name,
			Domains: user.College.DomainNames(),
		}
	}

	out.OrganizationRoles = make([]OrganizationRole, 0, len(user.Memberships))
	for _, m := range user.Memberships {
		if m.Organization == nil {
			continue
		}
		out.OrganizationRoles = append(out.OrganizationRoles, OrganizationRole{
			OrganizationID:   m.OrganizationID,
			OrganizationName: m.Organization.Name,
			Role:             m.Role,
		})
	}

	return &out
}

// SignOut removes the session. Unknown tokens are not an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Unscoped().
		Where("token_hash = ?", crypto.HashToken(token)).
		Delete(&models.Session{}).Error
}
