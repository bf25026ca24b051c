package user

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
)

var (
	ErrNotFound   = serrors.NotFound("USER_NOT_FOUND", "user not found")
	ErrEmailTaken = serrors.Conflict("EMAIL_TAKEN", "this email is already registered")
	// ErrFederatedIDTaken is returned when a provider subject is already
	// linked to another account.
	ErrFederatedIDTaken = serrors.Conflict("FEDERATED_ID_TAKEN", "this identity is already linked to another account")
)

type FindParams struct {
	BranchID uuid.UUID
	Status   Status
	Limit    int
	Offset   int
}

// Secret is a stored token digest with its expiry.
type Secret struct {
	Digest    string
	ExpiresAt time.Time
}

type Repository interface {
	Create(ctx context.Context, u User) error
	Update(ctx context.Context, u User) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetPaginated(ctx context.Context, params *FindParams) ([]User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	// Cross-tenant lookups used before a tenant is known.
	FindLoginCandidate(ctx context.Context, email string) (User, error)
	FindByFederatedID(ctx context.Context, subject string) (User, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	// The refresh slot holds at most one live refresh token per user.
	GetRefreshToken(ctx context.Context, id uuid.UUID) (*Secret, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, s *Secret) error
	// RotateRefreshToken swaps the slot only if it still holds oldDigest and
	// reports whether the swap happened.
	RotateRefreshToken(ctx context.Context, id uuid.UUID, oldDigest string, next *Secret) (bool, error)

	GetInvite(ctx context.Context, id uuid.UUID) (*Secret, error)
	SetInvite(ctx context.Context, id uuid.UUID, s *Secret) error
}
