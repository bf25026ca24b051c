package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/aggregates/user"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/domain/entities/tenant"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/services"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/itf"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
)

// fakeBroker vouches for a fixed identity regardless of the credential.
type fakeBroker struct {
	identity *services.FederatedIdentity
	err      error
}

func (b *fakeBroker) VerifyCredential(context.Context, string) (*services.FederatedIdentity, error) {
	return b.identity, b.err
}

func (b *fakeBroker) ExchangeCode(context.Context, string) (*services.FederatedIdentity, error) {
	return b.identity, b.err
}

func withBroker(b services.IdentityBroker) func(*core.ModuleOptions) {
	return func(opts *core.ModuleOptions) {
		opts.Broker = b
	}
}

func TestAuthService_Register(t *testing.T) {
	t.Parallel()

	t.Run("Creates_Tenant_And_SuperAdmin", func(t *testing.T) {
		t.Parallel()
		env := setupTest(t)
		registered := itf.Capture[*tenant.RegisteredEvent](env)

		res := registerOrg(t, env, "Acme Pharmacy", "Owner@Acme.test")

		assert.True(t, res.IsNewUser)
		assert.Equal(t, "acme-pharmacy", res.Tenant.Slug())
		assert.Equal(t, "SAR", res.Tenant.Currency())
		assert.Equal(t, "owner@acme.test", res.User.Email())
		assert.Equal(t, tenancy.RoleSuperAdmin, res.User.Role())
		assert.Equal(t, user.StatusActive, res.User.Status())
		assert.Equal(t, res.Tenant.ID(), res.User.TenantID())
		assert.NotEmpty(t, res.Tokens.AccessToken)
		assert.NotEmpty(t, res.Tokens.RefreshToken)

		events := registered()
		require.Len(t, events, 1)
		assert.Equal(t, res.User.ID(), events[0].AdminID)
	})

	t.Run("Duplicate_Organization_Is_Conflict", func(t *testing.T) {
		t.Parallel()
		env := setupTest(t)
		registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")

		_, err := itf.GetService[services.AuthService](env).Register(env.Ctx, &services.RegisterDTO{
			OrganizationName: "ACME  pharmacy!",
			AdminName:        "Someone Else",
			Email:            "other@acme.test",
			Password:         testPassword,
		})
		require.ErrorIs(t, err, tenant.ErrSlugTaken)
		assert.True(t, serrors.IsKind(err, serrors.KindConflict))
	})

	t.Run("Duplicate_Email_Rolls_Back_Tenant", func(t *testing.T) {
		t.Parallel()
		env := setupTest(t)
		registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
		auth := itf.GetService[services.AuthService](env)

		_, err := auth.Register(env.Ctx, &services.RegisterDTO{
			OrganizationName: "Second Pharmacy",
			AdminName:        "Owner",
			Email:            "OWNER@acme.test",
			Password:         testPassword,
		})
		require.ErrorIs(t, err, user.ErrEmailTaken)

		avail, err := itf.GetService[services.TenantService](env).Availability(env.Ctx, "Second Pharmacy", "")
		require.NoError(t, err)
		assert.True(t, avail.Available)
	})

	t.Run("Weak_Password", func(t *testing.T) {
		t.Parallel()
		env := setupTest(t)

		_, err := itf.GetService[services.AuthService](env).Register(env.Ctx, &services.RegisterDTO{
			OrganizationName: "Acme Pharmacy",
			AdminName:        "Owner",
			Email:            "owner@acme.test",
			Password:         "short",
		})
		require.ErrorIs(t, err, services.ErrWeakPassword)
	})

	t.Run("Unsluggable_Name", func(t *testing.T) {
		t.Parallel()
		env := setupTest(t)

		_, err := itf.GetService[services.AuthService](env).Register(env.Ctx, &services.RegisterDTO{
			OrganizationName: "!!!",
			AdminName:        "Owner",
			Email:            "owner@acme.test",
			Password:         testPassword,
		})
		require.ErrorIs(t, err, services.ErrInvalidOrgName)
	})
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()
	env := setupTest(t)
	registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
	registerOrg(t, env, "Other Pharmacy", "owner@other.test")
	auth := itf.GetService[services.AuthService](env)

	t.Run("Success", func(t *testing.T) {
		res, err := auth.Login(env.Ctx, &services.LoginDTO{Email: "Owner@Acme.test", Password: testPassword})
		require.NoError(t, err)
		assert.Equal(t, "acme-pharmacy", res.Tenant.Slug())
		assert.False(t, res.IsNewUser)
	})

	t.Run("With_Matching_Slug", func(t *testing.T) {
		_, err := auth.Login(env.Ctx, &services.LoginDTO{
			Email:      "owner@acme.test",
			Password:   testPassword,
			TenantSlug: "acme-pharmacy",
		})
		require.NoError(t, err)
	})

	for name, dto := range map[string]*services.LoginDTO{
		"Wrong_Password": {Email: "owner@acme.test", Password: "wrong-pass1"},
		"Unknown_Email":  {Email: "nobody@acme.test", Password: testPassword},
		"Foreign_Slug":   {Email: "owner@acme.test", Password: testPassword, TenantSlug: "other-pharmacy"},
		"Unknown_Slug":   {Email: "owner@acme.test", Password: testPassword, TenantSlug: "nope"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.Login(env.Ctx, dto)
			require.ErrorIs(t, err, services.ErrInvalidCredentials)
		})
	}

	t.Run("Invalid_Input", func(t *testing.T) {
		_, err := auth.Login(env.Ctx, &services.LoginDTO{Email: "not-an-email"})
		require.Error(t, err)
		assert.True(t, serrors.IsKind(err, serrors.KindValidation))
	})
}

func TestAuthService_Refresh(t *testing.T) {
	t.Parallel()

	t.Run("Rotates_Token", func(t *testing.T) {
		t.Parallel()
		env := setupTest(t)
		res := registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
		auth := itf.GetService[services.AuthService](env)

		next, err := auth.Refresh(env.Ctx, &services.RefreshDTO{RefreshToken: res.Tokens.RefreshToken})
		require.NoError(t, err)
		assert.NotEqual(t, res.Tokens.RefreshToken, next.Tokens.RefreshToken)
		assert.Equal(t, res.User.ID(), next.User.ID())

		_, err = auth.Refresh(env.Ctx, &services.RefreshDTO{RefreshToken: res.Tokens.RefreshToken})
		require.ErrorIs(t, err, services.ErrRefreshMismatch)
	})

	t.Run("Concurrent_Refresh_Has_One_Winner", func(t *testing.T) {
		t.Parallel()
		env := setupTest(t)
		res := registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
		auth := itf.GetService[services.AuthService](env)

		const callers = 4
		var wg sync.WaitGroup
		errs := make([]error, callers)
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = auth.Refresh(env.Ctx, &services.RefreshDTO{RefreshToken: res.Tokens.RefreshToken})
			}()
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			require.ErrorIs(t, err, services.ErrRefreshMismatch)
		}
		assert.Equal(t, 1, wins)
	})

	t.Run("Garbage_Token", func(t *testing.T) {
		t.Parallel()
		env := setupTest(t)

		_, err := itf.GetService[services.AuthService](env).Refresh(env.Ctx, &services.RefreshDTO{RefreshToken: "garbage"})
		require.ErrorIs(t, err, services.ErrRefreshNotFound)
	})

	t.Run("Expired_Token", func(t *testing.T) {
		t.Parallel()
		clock := &testClock{}
		env := setupTest(t, withClock(clock))
		res := registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
		auth := itf.GetService[services.AuthService](env)

		clock.Advance(25 * time.Hour)
		_, err := auth.Refresh(env.Ctx, &services.RefreshDTO{RefreshToken: res.Tokens.RefreshToken})
		require.ErrorIs(t, err, services.ErrRefreshExpired)
	})

	t.Run("After_Logout", func(t *testing.T) {
		t.Parallel()
		env := setupTest(t)
		res := registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
		auth := itf.GetService[services.AuthService](env)

		require.NoError(t, auth.Logout(actingAs(t, env, res)))
		_, err := auth.Refresh(env.Ctx, &services.RefreshDTO{RefreshToken: res.Tokens.RefreshToken})
		require.ErrorIs(t, err, services.ErrRefreshNotFound)
	})
}

func TestAuthService_WhoAmI(t *testing.T) {
	t.Parallel()
	env := setupTest(t)
	res := registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
	auth := itf.GetService[services.AuthService](env)

	session, err := auth.WhoAmI(actingAs(t, env, res))
	require.NoError(t, err)
	assert.Equal(t, res.User.ID(), session.User.ID())
	assert.Equal(t, res.Tenant.ID(), session.Tenant.ID())

	_, err = auth.WhoAmI(env.Ctx)
	assert.True(t, serrors.IsKind(err, serrors.KindUnauthenticated))
}

func TestAuthService_AcceptInvite(t *testing.T) {
	t.Parallel()
	env := setupTest(t)
	admin := registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
	ctx := actingAs(t, env, admin)
	auth := itf.GetService[services.AuthService](env)
	invites := itf.Capture[*user.InvitedEvent](env)

	invited, err := itf.GetService[services.UserService](env).Invite(ctx, &services.InviteDTO{
		Email: "staff@acme.test",
		Role:  string(tenancy.RoleSuperAdmin),
	})
	require.NoError(t, err)
	assert.Equal(t, user.StatusInvited, invited.Status())

	_, err = auth.Login(env.Ctx, &services.LoginDTO{Email: "staff@acme.test", Password: testPassword})
	require.ErrorIs(t, err, services.ErrInvalidCredentials)

	seen := invites()
	require.Len(t, seen, 1)
	token := seen[0].Token

	res, err := auth.AcceptInvite(env.Ctx, &services.AcceptInviteDTO{
		Token:     token,
		Password:  testPassword,
		FirstName: "Noor",
	})
	require.NoError(t, err)
	assert.Equal(t, invited.ID(), res.User.ID())
	assert.Equal(t, user.StatusActive, res.User.Status())
	assert.Equal(t, "Noor", res.User.FirstName())

	t.Run("Token_Is_Single_Use", func(t *testing.T) {
		_, err := auth.AcceptInvite(env.Ctx, &services.AcceptInviteDTO{Token: token, Password: testPassword})
		require.ErrorIs(t, err, services.ErrInviteInvalid)
	})

	t.Run("Garbage_Token", func(t *testing.T) {
		_, err := auth.AcceptInvite(env.Ctx, &services.AcceptInviteDTO{Token: "nope", Password: testPassword})
		require.ErrorIs(t, err, services.ErrInviteInvalid)
	})

	t.Run("Can_Log_In", func(t *testing.T) {
		_, err := auth.Login(env.Ctx, &services.LoginDTO{Email: "staff@acme.test", Password: testPassword})
		require.NoError(t, err)
	})
}

func TestAuthService_AcceptInvite_Expired(t *testing.T) {
	t.Parallel()
	clock := &testClock{}
	env := setupTest(t, withClock(clock), func(opts *core.ModuleOptions) {
		opts.InviteTTL = time.Minute
	})
	admin := registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
	auth := itf.GetService[services.AuthService](env)
	invites := itf.Capture[*user.InvitedEvent](env)

	_, err := itf.GetService[services.UserService](env).Invite(actingAs(t, env, admin), &services.InviteDTO{
		Email: "late@acme.test",
		Role:  string(tenancy.RoleSuperAdmin),
	})
	require.NoError(t, err)
	seen := invites()
	require.Len(t, seen, 1)

	clock.Advance(2 * time.Minute)
	_, err = auth.AcceptInvite(env.Ctx, &services.AcceptInviteDTO{Token: seen[0].Token, Password: testPassword})
	require.ErrorIs(t, err, services.ErrInviteExpired)

	_, err = auth.Login(env.Ctx, &services.LoginDTO{Email: "late@acme.test", Password: testPassword})
	require.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestAuthService_FederatedLogin(t *testing.T) {
	t.Parallel()

	identity := &services.FederatedIdentity{
		Subject:   "google|123",
		Email:     "owner@acme.test",
		FirstName: "Amal",
	}

	t.Run("Disabled_Without_Broker", func(t *testing.T) {
		t.Parallel()
		env := setupTest(t)

		_, err := itf.GetService[services.AuthService](env).FederatedLogin(env.Ctx, &services.FederatedLoginDTO{
			Credential: "id-token",
			TenantSlug: "acme-pharmacy",
		})
		require.ErrorIs(t, err, services.ErrFederationDisabled)
	})

	t.Run("New_Organization", func(t *testing.T) {
		t.Parallel()
		env := setupTest(t, withBroker(&fakeBroker{identity: identity}))
		auth := itf.GetService[services.AuthService](env)

		res, err := auth.FederatedLogin(env.Ctx, &services.FederatedLoginDTO{
			Credential:        "id-token",
			IsNewOrganization: true,
			Organization:      &services.OrganizationDTO{Name: "Acme Pharmacy", Currency: "SAR"},
		})
		require.NoError(t, err)
		assert.True(t, res.IsNewUser)
		assert.Equal(t, "acme-pharmacy", res.Tenant.Slug())
		assert.Equal(t, "google|123", res.User.FederatedID())
		assert.Equal(t, tenancy.RoleSuperAdmin, res.User.Role())

		again, err := auth.FederatedLogin(env.Ctx, &services.FederatedLoginDTO{
			Code:       "auth-code",
			TenantSlug: "acme-pharmacy",
		})
		require.NoError(t, err)
		assert.False(t, again.IsNewUser)
		assert.Equal(t, res.User.ID(), again.User.ID())
	})

	t.Run("Join_Without_Account_Creates_Nothing", func(t *testing.T) {
		t.Parallel()
		env := setupTest(t, withBroker(&fakeBroker{identity: &services.FederatedIdentity{
			Subject: "google|999",
			Email:   "stranger@example.test",
		}}))
		registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
		auth := itf.GetService[services.AuthService](env)

		_, err := auth.FederatedLogin(env.Ctx, &services.FederatedLoginDTO{
			Credential: "id-token",
			TenantSlug: "acme-pharmacy",
		})
		require.ErrorIs(t, err, services.ErrAccountNotFound)

		_, err = auth.Login(env.Ctx, &services.LoginDTO{Email: "stranger@example.test", Password: testPassword})
		require.ErrorIs(t, err, services.ErrInvalidCredentials)
		var users int
		require.NoError(t, env.DB.Get(&users, "SELECT COUNT(*) FROM users WHERE email = ?", "stranger@example.test"))
		assert.Zero(t, users)
	})

	t.Run("Join_Requires_Slug", func(t *testing.T) {
		t.Parallel()
		env := setupTest(t, withBroker(&fakeBroker{identity: identity}))

		_, err := itf.GetService[services.AuthService](env).FederatedLogin(env.Ctx, &services.FederatedLoginDTO{Credential: "id-token"})
		require.Error(t, err)
		assert.True(t, serrors.IsKind(err, serrors.KindValidation))
	})

	t.Run("Links_Invited_User", func(t *testing.T) {
		t.Parallel()
		env := setupTest(t, withBroker(&fakeBroker{identity: &services.FederatedIdentity{
			Subject: "google|555",
			Email:   "staff@acme.test",
		}}))
		admin := registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
		_, err := itf.GetService[services.UserService](env).Invite(actingAs(t, env, admin), &services.InviteDTO{
			Email: "staff@acme.test",
			Role:  string(tenancy.RoleSuperAdmin),
		})
		require.NoError(t, err)

		res, err := itf.GetService[services.AuthService](env).FederatedLogin(env.Ctx, &services.FederatedLoginDTO{
			Credential: "id-token",
			TenantSlug: "acme-pharmacy",
		})
		require.NoError(t, err)
		assert.Equal(t, user.StatusActive, res.User.Status())
		assert.Equal(t, "google|555", res.User.FederatedID())
	})

	t.Run("Links_Existing_Password_Account", func(t *testing.T) {
		t.Parallel()
		env := setupTest(t, withBroker(&fakeBroker{identity: &services.FederatedIdentity{
			Subject: "google|321",
			Email:   "owner@acme.test",
		}}))
		admin := registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
		auth := itf.GetService[services.AuthService](env)

		res, err := auth.FederatedLogin(env.Ctx, &services.FederatedLoginDTO{
			Credential: "id-token",
			TenantSlug: "acme-pharmacy",
		})
		require.NoError(t, err)
		assert.False(t, res.IsNewUser)
		assert.Equal(t, admin.User.ID(), res.User.ID())
		assert.Equal(t, "google|321", res.User.FederatedID())

		var users, tenants int
		require.NoError(t, env.DB.Get(&users, "SELECT COUNT(*) FROM users WHERE email = ?", "owner@acme.test"))
		require.NoError(t, env.DB.Get(&tenants, "SELECT COUNT(*) FROM tenants"))
		assert.Equal(t, 1, users)
		assert.Equal(t, 1, tenants)

		_, err = auth.Login(env.Ctx, &services.LoginDTO{Email: "owner@acme.test", Password: testPassword})
		require.NoError(t, err)
	})

	t.Run("Rejects_Foreign_Subject", func(t *testing.T) {
		t.Parallel()
		broker := &fakeBroker{identity: &services.FederatedIdentity{
			Subject: "google|321",
			Email:   "owner@acme.test",
		}}
		env := setupTest(t, withBroker(broker))
		registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
		auth := itf.GetService[services.AuthService](env)
		dto := &services.FederatedLoginDTO{Credential: "id-token", TenantSlug: "acme-pharmacy"}

		_, err := auth.FederatedLogin(env.Ctx, dto)
		require.NoError(t, err)

		broker.identity = &services.FederatedIdentity{Subject: "google|other", Email: "owner@acme.test"}
		_, err = auth.FederatedLogin(env.Ctx, dto)
		require.ErrorIs(t, err, services.ErrIdentityMismatch)
	})

	t.Run("Relinks_Subject_After_Delete", func(t *testing.T) {
		t.Parallel()
		env := setupTest(t, withBroker(&fakeBroker{identity: &services.FederatedIdentity{
			Subject: "google|777",
			Email:   "staff@acme.test",
		}}))
		admin := registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
		adminCtx := actingAs(t, env, admin)
		users := itf.GetService[services.UserService](env)
		auth := itf.GetService[services.AuthService](env)
		dto := &services.FederatedLoginDTO{Credential: "id-token", TenantSlug: "acme-pharmacy"}
		invite := &services.InviteDTO{Email: "staff@acme.test", Role: string(tenancy.RoleSuperAdmin)}

		_, err := users.Invite(adminCtx, invite)
		require.NoError(t, err)
		first, err := auth.FederatedLogin(env.Ctx, dto)
		require.NoError(t, err)
		require.NoError(t, users.Delete(adminCtx, first.User.ID()))

		_, err = users.Invite(adminCtx, invite)
		require.NoError(t, err)
		second, err := auth.FederatedLogin(env.Ctx, dto)
		require.NoError(t, err)
		assert.NotEqual(t, first.User.ID(), second.User.ID())
		assert.Equal(t, "google|777", second.User.FederatedID())
		assert.Equal(t, user.StatusActive, second.User.Status())
	})

	t.Run("Provider_Error_Passes_Through", func(t *testing.T) {
		t.Parallel()
		env := setupTest(t, withBroker(&fakeBroker{err: services.ErrProviderUnavailable}))

		_, err := itf.GetService[services.AuthService](env).FederatedLogin(env.Ctx, &services.FederatedLoginDTO{
			Credential: "id-token",
			TenantSlug: "acme-pharmacy",
		})
		require.ErrorIs(t, err, services.ErrProviderUnavailable)
	})
}
