package persistence_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/aggregates/user"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/tenant"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/infrastructure/persistence"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/itf"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
)

func TestUserRepository_RotateRefreshToken(t *testing.T) {
	t.Parallel()
	env := itf.NewTestContext().Build(t)
	tenants := persistence.NewTenantRepository()
	users := persistence.NewUserRepository()

	org := tenant.New("Acme Pharmacy", "acme-pharmacy")
	ctx := env.As(tenancy.System(org.ID()))
	require.NoError(t, tenants.Create(ctx, org))

	u := user.New("owner@acme.test", "Amal", "Saleh", tenancy.RoleSuperAdmin, user.WithTenantID(org.ID()))
	require.NoError(t, users.Create(ctx, u))

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, users.SetRefreshToken(ctx, u.ID(), &user.Secret{Digest: "first", ExpiresAt: expires}))

	ok, err := users.RotateRefreshToken(ctx, u.ID(), "first", &user.Secret{Digest: "second", ExpiresAt: expires})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = users.RotateRefreshToken(ctx, u.ID(), "first", &user.Secret{Digest: "third", ExpiresAt: expires})
	require.NoError(t, err)
	assert.False(t, ok, "a consumed digest must not rotate twice")

	s, err := users.GetRefreshToken(ctx, u.ID())
	require.NoError(t, err)
	assert.Equal(t, "second", s.Digest)

	t.Run("Other_Tenant_Cannot_Rotate", func(t *testing.T) {
		foreign := env.As(tenancy.System(uuid.New()))
		ok, err := users.RotateRefreshToken(foreign, u.ID(), "second", &user.Secret{Digest: "x", ExpiresAt: expires})
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = users.GetByID(foreign, u.ID())
		require.ErrorIs(t, err, user.ErrNotFound)
	})

	t.Run("Anonymous_Sees_Nothing", func(t *testing.T) {
		_, err := users.GetByID(env.Ctx, u.ID())
		require.ErrorIs(t, err, user.ErrNotFound)
	})
}
