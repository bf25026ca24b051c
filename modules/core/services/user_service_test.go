package services_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/aggregates/user"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/branch"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/services"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/authz"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/itf"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
)

func TestUserService_BranchAdmin(t *testing.T) {
	t.Parallel()
	env := setupTest(t)
	admin := registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
	adminCtx := actingAs(t, env, admin)
	branches := itf.GetService[services.BranchService](env)
	users := itf.GetService[services.UserService](env)

	north, err := branches.Create(adminCtx, &services.BranchDTO{Name: "North", Code: "NORTH"})
	require.NoError(t, err)
	south, err := branches.Create(adminCtx, &services.BranchDTO{Name: "South", Code: "SOUTH"})
	require.NoError(t, err)

	manager := inviteAndAccept(t, env, adminCtx, &services.InviteDTO{
		Email:      "north@acme.test",
		Role:       "BranchAdmin",
		BranchCode: "NORTH",
	})
	assert.Equal(t, north.ID(), manager.User.BranchID())
	ctx := actingAs(t, env, manager)

	southStaff, err := users.Invite(adminCtx, &services.InviteDTO{
		Email:      "south@acme.test",
		Role:       "SectionAdmin",
		BranchCode: "SOUTH",
	})
	require.NoError(t, err)

	t.Run("Invite_Defaults_To_Own_Branch", func(t *testing.T) {
		u, err := users.Invite(ctx, &services.InviteDTO{Email: "clerk@acme.test", Role: "SectionAdmin"})
		require.NoError(t, err)
		assert.Equal(t, north.ID(), u.BranchID())
		assert.Equal(t, user.StatusInvited, u.Status())
	})

	t.Run("Cannot_Invite_Into_Other_Branch", func(t *testing.T) {
		_, err := users.Invite(ctx, &services.InviteDTO{
			Email:    "x@acme.test",
			Role:     "SectionAdmin",
			BranchID: south.ID().String(),
		})
		require.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("Cannot_Invite_SuperAdmin", func(t *testing.T) {
		_, err := users.Invite(ctx, &services.InviteDTO{Email: "boss@acme.test", Role: "SuperAdmin"})
		require.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("Cannot_Suspend_Other_Branch", func(t *testing.T) {
		_, err := users.Suspend(ctx, southStaff.ID())
		require.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("Cannot_Suspend_Self", func(t *testing.T) {
		_, err := users.Suspend(ctx, manager.User.ID())
		require.ErrorIs(t, err, services.ErrSelfAction)
	})

	t.Run("List_Is_Branch_Scoped", func(t *testing.T) {
		list, err := users.List(ctx, &user.FindParams{})
		require.NoError(t, err)
		require.NotEmpty(t, list)
		for _, u := range list {
			assert.Equal(t, north.ID(), u.BranchID())
		}
	})

	t.Run("Cannot_Read_Other_Branch_User", func(t *testing.T) {
		_, err := users.GetByID(ctx, southStaff.ID())
		require.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("Cannot_Create_Branch", func(t *testing.T) {
		_, err := branches.Create(ctx, &services.BranchDTO{Name: "East", Code: "EAST"})
		require.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("Cannot_Update_Other_Branch", func(t *testing.T) {
		_, err := branches.Update(ctx, south.ID(), &services.BranchDTO{Name: "South 2", Code: "SOUTH"})
		require.ErrorIs(t, err, authz.ErrForbidden)
	})

	t.Run("Updates_Own_Branch", func(t *testing.T) {
		b, err := branches.Update(ctx, north.ID(), &services.BranchDTO{Name: "North Central", Code: "NORTH", Phone: "+966 11 000"})
		require.NoError(t, err)
		assert.Equal(t, "North Central", b.Name())
	})
}

func TestUserService_SectionAdmin(t *testing.T) {
	t.Parallel()
	env := setupTest(t)
	admin := registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
	adminCtx := actingAs(t, env, admin)
	_, err := itf.GetService[services.BranchService](env).Create(adminCtx, &services.BranchDTO{Name: "Main", Code: "MAIN"})
	require.NoError(t, err)

	clerk := inviteAndAccept(t, env, adminCtx, &services.InviteDTO{
		Email:      "clerk@acme.test",
		Role:       "SectionAdmin",
		BranchCode: "MAIN",
	})
	ctx := actingAs(t, env, clerk)
	users := itf.GetService[services.UserService](env)

	list, err := itf.GetService[services.BranchService](env).List(ctx, &branch.FindParams{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = users.Invite(ctx, &services.InviteDTO{Email: "x@acme.test", Role: "SectionAdmin"})
	require.ErrorIs(t, err, authz.ErrForbidden)

	_, err = users.Suspend(ctx, admin.User.ID())
	require.ErrorIs(t, err, authz.ErrForbidden)
}

func TestUserService_Suspend(t *testing.T) {
	t.Parallel()
	env := setupTest(t)
	admin := registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
	adminCtx := actingAs(t, env, admin)
	staff := inviteAndAccept(t, env, adminCtx, &services.InviteDTO{Email: "staff@acme.test", Role: "SuperAdmin"})
	users := itf.GetService[services.UserService](env)
	auth := itf.GetService[services.AuthService](env)

	suspended, err := users.Suspend(adminCtx, staff.User.ID())
	require.NoError(t, err)
	assert.Equal(t, user.StatusSuspended, suspended.Status())

	_, err = auth.Login(env.Ctx, &services.LoginDTO{Email: "staff@acme.test", Password: testPassword})
	require.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = auth.Refresh(env.Ctx, &services.RefreshDTO{RefreshToken: staff.Tokens.RefreshToken})
	require.ErrorIs(t, err, services.ErrRefreshNotFound)

	require.NoError(t, users.Delete(adminCtx, staff.User.ID()))
	_, err = users.GetByID(adminCtx, staff.User.ID())
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestUserService_TenantIsolation(t *testing.T) {
	t.Parallel()
	env := setupTest(t)
	acme := registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
	other := registerOrg(t, env, "Other Pharmacy", "owner@other.test")
	acmeCtx := actingAs(t, env, acme)
	users := itf.GetService[services.UserService](env)
	branches := itf.GetService[services.BranchService](env)

	otherBranch, err := branches.Create(actingAs(t, env, other), &services.BranchDTO{Name: "Main", Code: "MAIN"})
	require.NoError(t, err)

	t.Run("Foreign_User_Is_Not_Found", func(t *testing.T) {
		_, err := users.GetByID(acmeCtx, other.User.ID())
		require.ErrorIs(t, err, user.ErrNotFound)

		_, err = users.Suspend(acmeCtx, other.User.ID())
		require.ErrorIs(t, err, user.ErrNotFound)
	})

	t.Run("Foreign_Branch_Is_Not_Found", func(t *testing.T) {
		_, err := branches.GetByID(acmeCtx, otherBranch.ID())
		assert.True(t, serrors.IsKind(err, serrors.KindNotFound))

		require.Error(t, branches.Delete(acmeCtx, otherBranch.ID()))
		_, err = branches.GetByID(actingAs(t, env, other), otherBranch.ID())
		require.NoError(t, err)
	})

	t.Run("Same_Code_In_Another_Tenant", func(t *testing.T) {
		_, err := branches.Create(acmeCtx, &services.BranchDTO{Name: "Main", Code: "MAIN"})
		require.NoError(t, err)
	})

	t.Run("Foreign_Manager_Is_Rejected", func(t *testing.T) {
		_, err := branches.Create(acmeCtx, &services.BranchDTO{
			Name:      "Managed",
			Code:      "MGD",
			ManagerID: other.User.ID().String(),
		})
		require.ErrorIs(t, err, services.ErrManagerOutsideTenant)
	})

	t.Run("Anonymous_Is_Unauthenticated", func(t *testing.T) {
		_, err := users.GetByID(env.Ctx, acme.User.ID())
		require.ErrorIs(t, err, authz.ErrUnauthenticated)
	})

	t.Run("Forged_Tenant_Sees_Nothing", func(t *testing.T) {
		forged := env.As(tenancy.Context{TenantID: uuid.New(), UserID: acme.User.ID(), Role: tenancy.RoleSuperAdmin})
		list, err := users.List(forged, &user.FindParams{})
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
