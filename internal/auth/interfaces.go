package auth

import (
	"context"

	"github.com/google/uuid"
)

// Provider is an OAuth identity provider.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for the confirmed identity.
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// Backfiller schedules the deferred college assignment for a new user.
// Implementations must not block on the assignment itself.
type Backfiller interface {
	Schedule(ctx context.Context, email string, collegeID uuid.UUID) error
}

// CollegeAssigner sets a user's college if it has none yet.
type CollegeAssigner interface {
	Assign(ctx context.Context, email string, collegeID uuid.UUID) error
}

// SessionResolver resolves a raw session token to its enriched view.
type SessionResolver interface {
	Session(ctx context.Context, token string) (*SessionView, error)
}

// Compile-time interface satisfaction checks
var (
	_ Provider        = (*GitHubProvider)(nil)
	_ Backfiller      = (*LocalBackfiller)(nil)
	_ CollegeAssigner = (*CollegeLinker)(nil)
	_ SessionResolver = (*Service)(nil)
)
