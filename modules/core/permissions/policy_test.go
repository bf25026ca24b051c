package permissions_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/permissions"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/authz"
)

func TestPolicy_MatchesFixtures(t *testing.T) {
	t.Parallel()
	svc, err := authz.NewService(authz.Config{Policy: permissions.Policy})
	require.NoError(t, err)

	cases, err := authz.LoadFixtures("testdata/policy_fixtures.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, cases)

	mismatches, err := svc.Verify(cases)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestPolicy_ReportsMismatch(t *testing.T) {
	t.Parallel()
	svc, err := authz.NewService(authz.Config{Policy: permissions.Policy})
	require.NoError(t, err)

	mismatches, err := svc.Verify([]authz.FixtureCase{
		{Role: "SectionAdmin", Object: "users", Action: "delete", Allow: true},
		{Role: "Pharmacist", Object: "users", Action: "read", Allow: true},
	})
	require.NoError(t, err)
	require.Len(t, mismatches, 2)
	assert.False(t, mismatches[0].Got)
	assert.Equal(t, "unknown role", mismatches[1].Reason)
}
