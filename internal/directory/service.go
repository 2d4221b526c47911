// Package directory answers organization listing and search, and manages
// organization memberships.
package directory

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/clubhub/internal/database/models"
	"github.com/hugh/clubhub/internal/metrics"
	"gorm.io/gorm"
)

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrMembershipExists     = errors.New("user is already a member of this organization")
	ErrMembershipNotFound   = errors.New("membership not found")
	ErrInvalidRole          = errors.New("invalid membership role")
)

const (
	DefaultMemberRole = "member"
	maxRoleLength     = 32
)

type Service struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

func NewService(db *gorm.DB, m *metrics.Metrics) *Service {
	return &Service{db: db, metrics: m}
}

// ListParams selects one page of a listing. Page is 1-based.
type ListParams struct {
	Query   string
	Page    int
	PerPage int
}

// Offset is the number of rows before the page. ok is false when the
// page lies beyond any representable offset.
func (p ListParams) Offset() (offset int, ok bool) {
	if p.Page <= 1 || p.PerPage <= 0 {
		return 0, true
	}
	if p.Page-1 > math.MaxInt/p.PerPage {
		return 0, false
	}
	return (p.Page - 1) * p.PerPage, true
}

// Page is one window of a listing plus the size of the whole result.
type Page struct {
	Items   []models.Organization
	Total   int64
	Page    int
	PerPage int
}

// ListOrganizations returns every organization whose name, description or
// category contains query, ignoring case, newest first. An empty query
// returns all organizations. Each organization carries its college and
// its members (oldest first) with their users.
func (s *Service) ListOrganizations(ctx context.Context, query string) ([]models.Organization, error) {
	s.metrics.Search(query != "")

	orgs := []models.Organization{}
	if unmatchable(query) {
		return orgs, nil
	}

	err := withDetails(s.filtered(s.db.WithContext(ctx), query)).
		Order("created_at DESC").
		Order("id ASC").
		Find(&orgs).Error
	if err != nil {
		return nil, err
	}
	return orgs, nil
}

// ListOrganizationsPage is ListOrganizations windowed by p.
func (s *Service) ListOrganizationsPage(ctx context.Context, p ListParams) (*Page, error) {
	s.metrics.Search(p.Query != "")

	page := &Page{Items: []models.Organization{}, Page: p.Page, PerPage: p.PerPage}
	if unmatchable(p.Query) {
		return page, nil
	}

	db := s.db.WithContext(ctx)

	if err := s.filtered(db.Model(&models.Organization{}), p.Query).Count(&page.Total).Error; err != nil {
		return nil, err
	}

	offset, ok := p.Offset()
	if !ok {
		return page, nil
	}

	q := withDetails(s.filtered(db, p.Query)).
		Order("created_at DESC").
		Order("id ASC")
	if p.PerPage > 0 {
		q = q.Offset(offset).Limit(p.PerPage)
	}

	if err := q.Find(&page.Items).Error; err != nil {
		return nil, err
	}
	return page, nil
}

// GetOrganization returns one organization with the same detail as a listing.
func (s *Service) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	err := withDetails(s.db.WithContext(ctx)).First(&org, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, err
	}
	return &org, nil
}

// ListColleges returns all colleges with their domains, by name.
func (s *Service) ListColleges(ctx context.Context) ([]models.College, error) {
	colleges := []models.College{}
	err := s.db.WithContext(ctx).
		Preload("Domains", func(db *gorm.DB) *gorm.DB {
			return db.Order("domain ASC")
		}).
		Order("name ASC").
		Find(&colleges).Error
	if err != nil {
		return nil, err
	}
	return colleges, nil
}

func (s *Service) filtered(db *gorm.DB, query string) *gorm.DB {
	if query == "" {
		return db
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	return db.Where(
		`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\')`,
		pattern, pattern, pattern,
	)
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("College").
		Preload("Members", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Members.User")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes every character of s match literally in a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// unmatchable reports queries no stored text can contain. Postgres rejects
// NUL in text parameters, so these never reach the database.
func unmatchable(query string) bool {
	return strings.ContainsRune(query, 0)
}
