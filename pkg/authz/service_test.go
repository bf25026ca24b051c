package authz

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
)

const testPolicy = `
# comment lines are skipped
p, role:superadmin, *, *
p, role:branchadmin, branches, read
p, role:branchadmin, branches, update
`

var (
	branchRead   = Permission{Object: "branches", Action: "read"}
	branchUpdate = Permission{Object: "branches", Action: "update"}
	branchDelete = Permission{Object: "branches", Action: "delete"}
)

func newTestService(t *testing.T, mode Mode) *Service {
	t.Helper()
	svc, err := NewService(Config{Policy: testPolicy, FlagProvider: StaticMode(mode)})
	require.NoError(t, err)
	return svc
}

func userCtx(role tenancy.Role, branchID uuid.UUID) context.Context {
	return tenancy.WithContext(context.Background(), tenancy.Context{
		TenantID: uuid.New(),
		UserID:   uuid.New(),
		Role:     role,
		BranchID: branchID,
	})
}

func TestService_Require(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, ModeEnforce)

	cases := []struct {
		name    string
		role    tenancy.Role
		perm    Permission
		allowed bool
	}{
		{name: "SuperAdmin_Wildcard", role: tenancy.RoleSuperAdmin, perm: branchDelete, allowed: true},
		{name: "BranchAdmin_Read", role: tenancy.RoleBranchAdmin, perm: branchRead, allowed: true},
		{name: "BranchAdmin_Update", role: tenancy.RoleBranchAdmin, perm: branchUpdate, allowed: true},
		{name: "BranchAdmin_Delete_Denied", role: tenancy.RoleBranchAdmin, perm: branchDelete},
		{name: "SectionAdmin_Denied", role: tenancy.RoleSectionAdmin, perm: branchRead},
		{name: "Unknown_Role_Denied", role: tenancy.Role("Pharmacist"), perm: branchRead},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := svc.Require(userCtx(tc.role, uuid.Nil), tc.perm)
			if tc.allowed {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrForbidden)
			assert.Equal(t, serrors.KindForbidden, serrors.KindOf(err))
		})
	}
}

func TestService_AnonymousIsUnauthenticated(t *testing.T) {
	t.Parallel()
	for _, mode := range []Mode{ModeEnforce, ModeShadow, ModeDisabled} {
		svc := newTestService(t, mode)
		err := svc.Require(context.Background(), branchRead)
		require.ErrorIs(t, err, ErrUnauthenticated, "mode %s", mode)
	}
}

func TestService_ShadowModeAllows(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, ModeShadow)
	require.NoError(t, svc.Require(userCtx(tenancy.RoleSectionAdmin, uuid.Nil), branchDelete))
}

func TestService_RequireBranch(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, ModeEnforce)
	branchX, branchY := uuid.New(), uuid.New()

	require.NoError(t, svc.RequireBranch(userCtx(tenancy.RoleBranchAdmin, branchX), branchX))
	require.ErrorIs(t, svc.RequireBranch(userCtx(tenancy.RoleBranchAdmin, branchX), branchY), ErrForbidden)
	require.ErrorIs(t, svc.RequireBranch(userCtx(tenancy.RoleSectionAdmin, uuid.Nil), branchY), ErrForbidden)
	require.NoError(t, svc.RequireBranch(userCtx(tenancy.RoleSuperAdmin, uuid.Nil), branchY))
}

func TestService_RequireRoleAssignment(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, ModeEnforce)

	require.NoError(t, svc.RequireRoleAssignment(userCtx(tenancy.RoleBranchAdmin, uuid.New()), tenancy.RoleSectionAdmin))
	require.ErrorIs(t, svc.RequireRoleAssignment(userCtx(tenancy.RoleBranchAdmin, uuid.New()), tenancy.RoleSuperAdmin), ErrForbidden)
	assert.False(t, CanAssignRole(tenancy.RoleSuperAdmin, tenancy.Role("Owner")))
}

func TestNewService_PolicyFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "policy.csv")
	require.NoError(t, os.WriteFile(path, []byte("p, role:sectionadmin, branches, read\n"), 0o600))

	svc, err := NewService(Config{PolicyPath: path})
	require.NoError(t, err)
	require.NoError(t, svc.Require(userCtx(tenancy.RoleSectionAdmin, uuid.Nil), branchRead))
}

func TestNewService_MalformedPolicy(t *testing.T) {
	t.Parallel()
	_, err := NewService(Config{Policy: "p, role:x, branches"})
	require.Error(t, err)
}

func TestFileFlagProvider(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "flags.yaml")
	provider := NewFileFlagProvider(path, ModeEnforce)
	assert.Equal(t, ModeEnforce, provider.Mode())

	require.NoError(t, os.WriteFile(path, []byte("mode: shadow\n"), 0o600))
	assert.Equal(t, ModeShadow, provider.Mode())

	require.NoError(t, os.WriteFile(path, []byte(": not yaml"), 0o600))
	assert.Equal(t, ModeShadow, provider.Mode())
}

func TestService_Check_Concurrent(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, ModeEnforce)

	var wg sync.WaitGroup
	results := make([]bool, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.Check(NewRequest(tenancy.RoleBranchAdmin, branchUpdate))
			assert.NoError(t, err)
			results[i] = ok
		}()
	}
	wg.Wait()
	for _, ok := range results {
		assert.True(t, ok)
	}
}
