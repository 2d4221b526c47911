package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/clubhub/internal/database/models"
	"gorm.io/gorm"
)

// CollegeLinker maps email domains to colleges and performs the
// assign-once write of a user's college.
type CollegeLinker struct {
	db *gorm.DB
}

func NewCollegeLinker(db *gorm.DB) *CollegeLinker {
	return &CollegeLinker{db: db}
}

// EmailDomain returns the lower-cased text after the last '@', or "" when
// the address has no usable domain.
func EmailDomain(email string) string {
	i := strings.LastIndexByte(email, '@')
	if i < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[i+1:]))
}

// MatchDomain returns the college whose domain set contains the email's
// domain, or nil when there is none.
func (l *CollegeLinker) MatchDomain(ctx context.Context, email string) (*models.College, error) {
	domain := EmailDomain(email)
	if domain == "" {
		return nil, nil
	}

	var cd models.CollegeDomain
	err := l.db.WithContext(ctx).
		Preload("College").
		Where("domain = ?", domain).
		Order("created_at ASC").
		First(&cd).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return cd.College, nil
}

// Assign sets the college of the user with this email, but only if the
// user has none. It returns ErrUserNotFound while the user row does not
// exist yet, so callers can retry.
func (l *CollegeLinker) Assign(ctx context.Context, email string, collegeID uuid.UUID) error {
	db := l.db.WithContext(ctx)

	res := db.Model(&models.User{}).
		Where("email = ? AND college_id IS NULL", email).
		Update("college_id", collegeID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// Nothing updated: either the user is not there yet or already has a college.
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}
