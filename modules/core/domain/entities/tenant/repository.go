package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
)

var (
	ErrNotFound  = serrors.NotFound("TENANT_NOT_FOUND", "organization not found")
	ErrSlugTaken = serrors.Conflict("TENANT_EXISTS", "an organization with this name already exists")
)

type Repository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	// GetBySlug resolves an active tenant across tenants for public lookup
	// and slug-scoped login.
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, t *Tenant) error
	// MarkOnboarded sets onboarded_at only if it is still empty and reports
	// whether this call won.
	MarkOnboarded(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}
