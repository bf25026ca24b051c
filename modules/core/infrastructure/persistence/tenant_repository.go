package persistence

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/tenant"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/infrastructure/persistence/models"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/composables"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/isolation"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/repo"
)

// A tenant row is scoped by its own id: a caller only ever sees its tenant.
var tenantsTable = isolation.Table{
	Name:          "tenants",
	TenantColumn:  "id",
	UpdatedColumn: "updated_at",
}

var tenantColumns = []string{
	"id", "name", "slug", "country", "currency", "language",
	"is_active", "onboarded_at", "created_at", "updated_at",
}

type TenantRepository struct{}

func NewTenantRepository() tenant.Repository {
	return &TenantRepository{}
}

func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	b, err := tenantsTable.Insert(isolation.Use(ctx), ToDBTenant(t))
	if err != nil {
		return err
	}
	if _, err := repo.Exec(ctx, tx, b); err != nil {
		if repo.IsUniqueViolation(err) {
			return tenant.ErrSlugTaken.Wrap(err)
		}
		return errors.Wrap(err, "insert tenant")
	}
	return nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	return r.get(ctx, tenantsTable.Select(isolation.Use(ctx), tenantColumns...).Where(sq.Eq{"id": id.String()}))
}

func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	f := isolation.Unscoped(ctx, "tenant slug lookup")
	return r.get(ctx, tenantsTable.Select(f, tenantColumns...).Where(sq.Eq{"slug": slug, "is_active": true}))
}

func (r *TenantRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	f := isolation.Unscoped(ctx, "tenant slug availability")
	exists, err := repo.Exists(ctx, tx, tenantsTable.Select(f, "id").Where(sq.Eq{"slug": slug}))
	if err != nil {
		return false, errors.Wrap(err, "check tenant slug")
	}
	return exists, nil
}

func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	b, err := tenantsTable.Update(isolation.Use(ctx), map[string]any{
		"name":       t.Name(),
		"country":    t.Country(),
		"currency":   t.Currency(),
		"language":   t.Language(),
		"is_active":  t.IsActive(),
		"updated_at": t.UpdatedAt(),
	})
	if err != nil {
		return err
	}
	n, err := repo.Exec(ctx, tx, b.Where(sq.Eq{"id": t.ID().String()}))
	if err != nil {
		return errors.Wrap(err, "update tenant")
	}
	if n == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

func (r *TenantRepository) MarkOnboarded(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	b, err := tenantsTable.Update(isolation.Use(ctx), map[string]any{
		"onboarded_at": at,
		"updated_at":   at,
	})
	if err != nil {
		return false, err
	}
	n, err := repo.Exec(ctx, tx, b.Where(sq.Eq{"id": id.String(), "onboarded_at": nil}))
	if err != nil {
		return false, errors.Wrap(err, "mark tenant onboarded")
	}
	return n == 1, nil
}

func (r *TenantRepository) get(ctx context.Context, b sq.SelectBuilder) (*tenant.Tenant, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	var row models.Tenant
	if err := repo.Get(ctx, tx, &row, b); err != nil {
		if repo.IsNoRows(err) {
			return nil, tenant.ErrNotFound
		}
		return nil, errors.Wrap(err, "select tenant")
	}
	return ToDomainTenant(&row)
}
