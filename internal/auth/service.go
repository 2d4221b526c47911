package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/clubhub/internal/api/validation"
	"github.com/hugh/clubhub/internal/database"
	"github.com/hugh/clubhub/internal/database/models"
	"github.com/hugh/clubhub/internal/metrics"
	"github.com/hugh/clubhub/pkg/crypto"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email is already linked to another account")
	ErrMissingEmail    = errors.New("identity has no valid email")
	ErrInvalidIdentity = errors.New("identity is missing provider account")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
)

const (
	sessionTokenBytes = 32
	defaultSessionTTL = 30 * 24 * time.Hour
)

// Identity is what an OAuth provider confirmed about the signing-in user.
type Identity struct {
	Provider          string
	ProviderAccountID string
	Email             string
	Name              string
	Image             string
	AccessToken       string
	TokenType         string
	Scope             string
}

// ServiceDeps are the collaborators of Service. Only Backfiller is required.
type ServiceDeps struct {
	Backfiller Backfiller
	Encryptor  *crypto.Encryptor
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	SessionTTL time.Duration
}

type Service struct {
	db         *gorm.DB
	linker     *CollegeLinker
	backfiller Backfiller
	encryptor  *crypto.Encryptor
	metrics    *metrics.Metrics
	logger     *slog.Logger
	sessionTTL time.Duration
	now        func() time.Time
}

func NewService(db *gorm.DB, deps ServiceDeps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Service{
		db:         db,
		linker:     NewCollegeLinker(db),
		backfiller: deps.Backfiller,
		encryptor:  deps.Encryptor,
		metrics:    deps.Metrics,
		logger:     logger.With("component", "auth"),
		sessionTTL: ttl,
		now:        time.Now,
	}
}

// OnSignIn runs before the user record is ensured. For an email with no
// user yet it looks up the college owning the email domain and schedules
// the college backfill. It never rejects a sign-in: every failure is
// logged and counted.
func (s *Service) OnSignIn(ctx context.Context, id Identity) {
	if id.Email == "" {
		return
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", id.Email).Count(&count).Error; err != nil {
		s.metrics.SignIn(metrics.SignInError)
		s.logger.Warn("sign-in user lookup failed", "provider", id.Provider, "error", err)
		return
	}
	if count > 0 {
		s.metrics.SignIn(metrics.SignInExisting)
		return
	}
	s.metrics.SignIn(metrics.SignInNew)

	college, err := s.linker.MatchDomain(ctx, id.Email)
	if err != nil {
		s.metrics.Backfill(metrics.BackfillError)
		s.logger.Warn("college lookup failed", "domain", EmailDomain(id.Email), "error", err)
		return
	}
	if college == nil {
		s.metrics.Backfill(metrics.BackfillNoMatch)
		return
	}

	if s.backfiller == nil {
		return
	}
	if err := s.backfiller.Schedule(ctx, id.Email, college.ID); err != nil {
		s.metrics.Backfill(metrics.BackfillError)
		s.logger.Warn("scheduling college backfill failed", "college_id", college.ID, "error", err)
		return
	}
	s.metrics.Backfill(metrics.BackfillScheduled)
}

// EnsureUser returns the user linked to the identity's provider account,
// creating user and account together on first sign-in. A malformed email
// yields ErrMissingEmail. An email already owned by a user without this
// account yields ErrEmailTaken.
func (s *Service) EnsureUser(ctx context.Context, id Identity) (*models.User, error) {
	id.Email = strings.TrimSpace(id.Email)
	if !validation.IsValidEmail(id.Email) {
		return nil, ErrMissingEmail
	}
	if id.Provider == "" || id.ProviderAccountID == "" {
		return nil, ErrInvalidIdentity
	}

	db := s.db.WithContext(ctx)

	accessToken, err := s.sealToken(id.AccessToken)
	if err != nil {
		return nil, err
	}

	account, err := s.findAccount(db, id)
	switch {
	case err == nil:
		if account.User == nil {
			return nil, ErrUserNotFound
		}
		if err := db.Model(account).Updates(map[string]any{
			"access_token": accessToken,
			"token_type":   id.TokenType,
			"scope":        id.Scope,
		}).Error; err != nil {
			return nil, fmt.Errorf("updating account token: %w", err)
		}
		return account.User, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var existing models.User
	err = db.Where("email = ?", id.Email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user := models.User{
		Name:  validation.SanitizeString(id.Name),
		Email: id.Email,
		Image: id.Image,
		Role:  models.RoleMember,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.Account{
			UserID:            user.ID,
			Provider:          id.Provider,
			ProviderAccountID: id.ProviderAccountID,
			AccessToken:       accessToken,
			TokenType:         id.TokenType,
			Scope:             id.Scope,
		}).Error
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return s.resolveConflict(db, id)
		}
		return nil, err
	}

	return &user, nil
}

func (s *Service) findAccount(db *gorm.DB, id Identity) (*models.Account, error) {
	var account models.Account
	err := db.Preload("User").
		Where("provider = ? AND provider_account_id = ?", id.Provider, id.ProviderAccountID).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// resolveConflict handles a unique violation on first sign-in. A concurrent
// callback for the same provider account wins the race and its user is
// returned. Anything else means the email belongs to someone else.
func (s *Service) resolveConflict(db *gorm.DB, id Identity) (*models.User, error) {
	account, err := s.findAccount(db, id)
	switch {
	case err == nil && account.User != nil:
		s.logger.Debug("sign-in raced with itself", "provider", id.Provider, "user_id", account.UserID)
		return account.User, nil
	case err == nil, errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrEmailTaken
	default:
		return nil, err
	}
}

// Authenticate is the full sign-in: the sign-in hook, the user record,
// and a new session. It returns the enriched view and the raw session
// token for the cookie.
func (s *Service) Authenticate(ctx context.Context, id Identity) (*SessionView, string, error) {
	s.OnSignIn(ctx, id)

	user, err := s.EnsureUser(ctx, id)
	if err != nil {
		return nil, "", err
	}

	token, err := crypto.NewToken(sessionTokenBytes)
	if err != nil {
		return nil, "", err
	}

	session := models.Session{
		TokenHash: crypto.HashToken(token),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.sessionTTL),
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, "", fmt.Errorf("creating session: %w", err)
	}

	s.logger.Info("user signed in", "user_id", user.ID, "provider", id.Provider)

	return s.Enrich(ctx, baseView(user, session.ExpiresAt)), token, nil
}

// GetUserProfile loads a user with college and memberships.
func (s *Service) GetUserProfile(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Preload("College").
		Preload("Memberships", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Memberships.Organization").
		First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) sealToken(token string) (string, error) {
	if s.encryptor == nil || token == "" {
		return "", nil
	}
	sealed, err := s.encryptor.EncryptString(token)
	if err != nil {
		return "", fmt.Errorf("encrypting access token: %w", err)
	}
	return sealed, nil
}
