// Package isolation builds tenant-scoped SQL for repositories.
//
// Every read, update and soft delete against a tenant-scoped table goes
// through a Table, which appends the tenant predicate derived from the
// tenant context and, independently, the not-deleted predicate. Inserts are
// stamped with the context tenant. Cross-tenant access exists only through
// Unscoped, which requires a reason and is logged.
package isolation

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
)

var (
	ErrNoTenant       = errors.New("isolation: no tenant in context")
	ErrTenantMismatch = errors.New("isolation: row tenant differs from context tenant")
	ErrTenantColumn   = errors.New("isolation: tenant column is immutable")
)

// Filter is the tenant scope of a single unit of work.
type Filter struct {
	tenantID uuid.UUID
	unscoped bool
	reason   string
}

// For derives the filter for tc. Anonymous contexts match no rows.
func For(tc tenancy.Context) Filter {
	return Filter{tenantID: tc.TenantID}
}

// Use derives the filter from the tenant context attached to ctx.
func Use(ctx context.Context) Filter {
	return For(tenancy.Use(ctx))
}

// Unscoped lifts the tenant predicate for a named cross-tenant lookup.
// The not-deleted predicate still applies.
func Unscoped(ctx context.Context, reason string) Filter {
	logrus.WithContext(ctx).WithField("reason", reason).Debug("isolation: unscoped query")
	return Filter{unscoped: true, reason: reason}
}

func (f Filter) TenantID() uuid.UUID {
	return f.tenantID
}

func (f Filter) IsUnscoped() bool {
	return f.unscoped
}

// TenantPredicate restricts column to the filter's tenant. It yields an
// always-false predicate for anonymous filters and nil when unscoped.
func (f Filter) TenantPredicate(column string) sq.Sqlizer {
	if f.unscoped {
		return nil
	}
	if f.tenantID == uuid.Nil {
		return sq.Expr("1 = 0")
	}
	return sq.Eq{column: f.tenantID.String()}
}

// NotDeleted hides soft-deleted rows.
func NotDeleted(column string) sq.Sqlizer {
	return sq.Eq{column: false}
}

// Table describes how a table participates in isolation. An empty
// TenantColumn marks a global table; an empty DeletedColumn marks a table
// without soft delete.
type Table struct {
	Name          string
	TenantColumn  string
	DeletedColumn string
	UpdatedColumn string
}

func (t Table) scope(f Filter) []sq.Sqlizer {
	var preds []sq.Sqlizer
	if t.TenantColumn != "" {
		if p := f.TenantPredicate(t.TenantColumn); p != nil {
			preds = append(preds, p)
		}
	}
	if t.DeletedColumn != "" {
		preds = append(preds, NotDeleted(t.DeletedColumn))
	}
	return preds
}

func (t Table) Select(f Filter, columns ...string) sq.SelectBuilder {
	b := sq.Select(columns...).From(t.Name)
	for _, p := range t.scope(f) {
		b = b.Where(p)
	}
	return b
}

// Update starts a scoped update. The tenant column cannot be assigned.
func (t Table) Update(f Filter, set map[string]any) (sq.UpdateBuilder, error) {
	if t.TenantColumn != "" {
		if _, ok := set[t.TenantColumn]; ok {
			return sq.UpdateBuilder{}, ErrTenantColumn
		}
	}
	b := sq.Update(t.Name).SetMap(set)
	for _, p := range t.scope(f) {
		b = b.Where(p)
	}
	return b, nil
}

// SoftDelete flags matching rows as deleted instead of removing them.
func (t Table) SoftDelete(f Filter, now time.Time) sq.UpdateBuilder {
	b := sq.Update(t.Name).Set(t.DeletedColumn, true)
	if t.UpdatedColumn != "" {
		b = b.Set(t.UpdatedColumn, now)
	}
	for _, p := range t.scope(f) {
		b = b.Where(p)
	}
	return b
}

// Insert stamps the tenant column with the filter's tenant. A value already
// present for the tenant column must agree with it.
func (t Table) Insert(f Filter, values map[string]any) (sq.InsertBuilder, error) {
	if t.TenantColumn != "" {
		if f.unscoped || f.tenantID == uuid.Nil {
			return sq.InsertBuilder{}, ErrNoTenant
		}
		if v, ok := values[t.TenantColumn]; ok && v != f.tenantID.String() && v != f.tenantID {
			return sq.InsertBuilder{}, ErrTenantMismatch
		}
		values[t.TenantColumn] = f.tenantID.String()
	}
	return sq.Insert(t.Name).SetMap(values), nil
}
