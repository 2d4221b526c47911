package directory

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hugh/clubhub/internal/database"
	"github.com/hugh/clubhub/internal/database/models"
)

// AddMember puts the user in the organization with the given role label
// (default "member"). Joining twice yields ErrMembershipExists, also when
// two joins race.
func (s *Service) AddMember(ctx context.Context, userID, orgID uuid.UUID, role string) (*models.Membership, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		role = DefaultMemberRole
	}
	if utf8.RuneCountInString(role) > maxRoleLength {
		return nil, ErrInvalidRole
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Organization{}).Where("id = ?", orgID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrOrganizationNotFound
	}

	if err := db.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrUserNotFound
	}

	m := &models.Membership{
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
	}
	if err := db.Create(m).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrMembershipExists
		}
		return nil, err
	}
	return m, nil
}

// RemoveMember deletes the membership row so the pair can join again later.
func (s *Service) RemoveMember(ctx context.Context, userID, orgID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND organization_id = ?", userID, orgID).
		Delete(&models.Membership{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMembershipNotFound
	}
	return nil
}
