package branch

import (
	"context"

	"github.com/google/uuid"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
)

var (
	ErrNotFound  = serrors.NotFound("BRANCH_NOT_FOUND", "branch not found")
	ErrCodeTaken = serrors.Conflict("BRANCH_CODE_TAKEN", "a branch with this code already exists")
)

type FindParams struct {
	// BranchID narrows the listing to one branch when set.
	BranchID uuid.UUID
	Limit    int
	Offset   int
}

type Repository interface {
	Create(ctx context.Context, b *Branch) error
	Update(ctx context.Context, b *Branch) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Branch, error)
	GetByCode(ctx context.Context, code string) (*Branch, error)
	GetPaginated(ctx context.Context, params *FindParams) ([]*Branch, error)
	Count(ctx context.Context) (int64, error)
}
