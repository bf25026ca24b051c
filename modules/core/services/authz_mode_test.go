package services_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/services"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/testhelpers"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/authz"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/itf"
)

func TestAuthzMode_SwitchesAtRuntime(t *testing.T) {
	t.Parallel()
	flags := testhelpers.WithAuthzMode(t, authz.ModeShadow)
	env := setupTest(t, func(opts *core.ModuleOptions) {
		opts.Authz.FlagProvider = flags.Provider()
	})
	admin := registerOrg(t, env, "Acme Pharmacy", "owner@acme.test")
	adminCtx := actingAs(t, env, admin)
	branches := itf.GetService[services.BranchService](env)

	_, err := branches.Create(adminCtx, &services.BranchDTO{Name: "Main", Code: "MAIN"})
	require.NoError(t, err)
	clerk := inviteAndAccept(t, env, adminCtx, &services.InviteDTO{
		Email:      "clerk@acme.test",
		Role:       "SectionAdmin",
		BranchCode: "MAIN",
	})
	clerkCtx := actingAs(t, env, clerk)

	// Shadow mode logs the denial and lets the call through.
	_, err = branches.Create(clerkCtx, &services.BranchDTO{Name: "Shadow", Code: "SHD"})
	require.NoError(t, err)

	flags.Set(authz.ModeEnforce)
	_, err = branches.Create(clerkCtx, &services.BranchDTO{Name: "Enforced", Code: "ENF"})
	require.ErrorIs(t, err, authz.ErrForbidden)

	flags.Set(authz.ModeDisabled)
	_, err = branches.Create(clerkCtx, &services.BranchDTO{Name: "Open", Code: "OPN"})
	require.NoError(t, err)
}
