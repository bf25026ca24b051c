package isolation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
)

var branches = Table{
	Name:          "branches",
	TenantColumn:  "tenant_id",
	DeletedColumn: "deleted",
	UpdatedColumn: "updated_at",
}

func TestSelect_TenantScoped(t *testing.T) {
	t.Parallel()
	tenantID := uuid.New()

	query, args, err := branches.Select(For(tenancy.System(tenantID)), "id", "name").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM branches WHERE tenant_id = ? AND deleted = ?", query)
	assert.Equal(t, []any{tenantID.String(), false}, args)
}

func TestSelect_AnonymousMatchesNothing(t *testing.T) {
	t.Parallel()

	query, args, err := branches.Select(Use(context.Background()), "id").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM branches WHERE 1 = 0 AND deleted = ?", query)
	assert.Equal(t, []any{false}, args)
}

func TestSelect_UnscopedKeepsSoftDelete(t *testing.T) {
	t.Parallel()

	query, _, err := branches.Select(Unscoped(context.Background(), "test"), "id").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM branches WHERE deleted = ?", query)
}

func TestSelect_GlobalTable(t *testing.T) {
	t.Parallel()
	global := Table{Name: "settings"}

	query, _, err := global.Select(For(tenancy.Anonymous), "key").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT key FROM settings", query)
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	tenantID := uuid.New()
	f := For(tenancy.System(tenantID))

	t.Run("Scoped", func(t *testing.T) {
		b, err := branches.Update(f, map[string]any{"name": "Main"})
		require.NoError(t, err)
		query, args, err := b.Where("id = ?", "b1").ToSql()
		require.NoError(t, err)
		assert.Equal(t, "UPDATE branches SET name = ? WHERE tenant_id = ? AND deleted = ? AND id = ?", query)
		assert.Equal(t, []any{"Main", tenantID.String(), false, "b1"}, args)
	})

	t.Run("Tenant_Column_Rejected", func(t *testing.T) {
		_, err := branches.Update(f, map[string]any{"tenant_id": uuid.New().String()})
		require.ErrorIs(t, err, ErrTenantColumn)
	})
}

func TestSoftDelete(t *testing.T) {
	t.Parallel()
	tenantID := uuid.New()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	query, args, err := branches.SoftDelete(For(tenancy.System(tenantID)), now).Where("id = ?", "b1").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE branches SET deleted = ?, updated_at = ? WHERE tenant_id = ? AND deleted = ? AND id = ?", query)
	assert.Equal(t, []any{true, now, tenantID.String(), false, "b1"}, args)
}

func TestInsert(t *testing.T) {
	t.Parallel()
	tenantID := uuid.New()
	f := For(tenancy.System(tenantID))

	t.Run("Stamps_Tenant", func(t *testing.T) {
		b, err := branches.Insert(f, map[string]any{"id": "b1", "name": "Main"})
		require.NoError(t, err)
		query, args, err := b.ToSql()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO branches (id,name,tenant_id) VALUES (?,?,?)", query)
		assert.Equal(t, []any{"b1", "Main", tenantID.String()}, args)
	})

	t.Run("Mismatch_Rejected", func(t *testing.T) {
		_, err := branches.Insert(f, map[string]any{"tenant_id": uuid.New().String()})
		require.ErrorIs(t, err, ErrTenantMismatch)
	})

	t.Run("Anonymous_Rejected", func(t *testing.T) {
		_, err := branches.Insert(For(tenancy.Anonymous), map[string]any{"id": "b1"})
		require.ErrorIs(t, err, ErrNoTenant)
	})

	t.Run("Unscoped_Rejected", func(t *testing.T) {
		_, err := branches.Insert(Unscoped(context.Background(), "test"), map[string]any{"id": "b1"})
		require.ErrorIs(t, err, ErrNoTenant)
	})
}
