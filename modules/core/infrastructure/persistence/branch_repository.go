package persistence

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/branch"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/infrastructure/persistence/models"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/composables"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/isolation"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/repo"
)

var branchesTable = isolation.Table{
	Name:          "branches",
	TenantColumn:  "tenant_id",
	DeletedColumn: "deleted",
	UpdatedColumn: "updated_at",
}

var branchColumns = []string{
	"id", "tenant_id", "name", "code", "address", "phone", "manager_id", "created_at", "updated_at",
}

type BranchRepository struct{}

func NewBranchRepository() branch.Repository {
	return &BranchRepository{}
}

func (r *BranchRepository) Create(ctx context.Context, b *branch.Branch) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	values := ToDBBranch(b)
	if b.TenantID() == uuid.Nil {
		delete(values, "tenant_id")
	}
	values["deleted"] = false
	ins, err := branchesTable.Insert(isolation.Use(ctx), values)
	if err != nil {
		return err
	}
	if _, err := repo.Exec(ctx, tx, ins); err != nil {
		if repo.IsUniqueViolation(err) {
			return branch.ErrCodeTaken.Wrap(err)
		}
		return errors.Wrap(err, "insert branch")
	}
	return nil
}

func (r *BranchRepository) Update(ctx context.Context, b *branch.Branch) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	upd, err := branchesTable.Update(isolation.Use(ctx), map[string]any{
		"name":       b.Name(),
		"address":    b.Address(),
		"phone":      b.Phone(),
		"manager_id": nullUUID(b.ManagerID()),
		"updated_at": b.UpdatedAt(),
	})
	if err != nil {
		return err
	}
	n, err := repo.Exec(ctx, tx, upd.Where(sq.Eq{"id": b.ID().String()}))
	if err != nil {
		return errors.Wrap(err, "update branch")
	}
	if n == 0 {
		return branch.ErrNotFound
	}
	return nil
}

func (r *BranchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	del := branchesTable.SoftDelete(isolation.Use(ctx), time.Now().UTC()).Where(sq.Eq{"id": id.String()})
	n, err := repo.Exec(ctx, tx, del)
	if err != nil {
		return errors.Wrap(err, "delete branch")
	}
	if n == 0 {
		return branch.ErrNotFound
	}
	return nil
}

func (r *BranchRepository) GetByID(ctx context.Context, id uuid.UUID) (*branch.Branch, error) {
	return r.get(ctx, sq.Eq{"id": id.String()})
}

func (r *BranchRepository) GetByCode(ctx context.Context, code string) (*branch.Branch, error) {
	return r.get(ctx, sq.Eq{"code": branch.NormalizeCode(code)})
}

func (r *BranchRepository) GetPaginated(ctx context.Context, params *branch.FindParams) ([]*branch.Branch, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	q := branchesTable.Select(isolation.Use(ctx), branchColumns...).OrderBy("code")
	if params.BranchID != uuid.Nil {
		q = q.Where(sq.Eq{"id": params.BranchID.String()})
	}
	if params.Limit > 0 {
		q = q.Limit(uint64(params.Limit)).Offset(uint64(params.Offset))
	}
	var rows []models.Branch
	if err := repo.Select(ctx, tx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "select branches")
	}
	out := make([]*branch.Branch, 0, len(rows))
	for i := range rows {
		b, err := ToDomainBranch(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *BranchRepository) Count(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := repo.Get(ctx, tx, &n, branchesTable.Select(isolation.Use(ctx), "COUNT(*)")); err != nil {
		return 0, errors.Wrap(err, "count branches")
	}
	return n, nil
}

func (r *BranchRepository) get(ctx context.Context, where sq.Sqlizer) (*branch.Branch, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var row models.Branch
	if err := repo.Get(ctx, tx, &row, branchesTable.Select(isolation.Use(ctx), branchColumns...).Where(where)); err != nil {
		if repo.IsNoRows(err) {
			return nil, branch.ErrNotFound
		}
		return nil, errors.Wrap(err, "select branch")
	}
	return ToDomainBranch(&row)
}
