// Package testhelpers holds fixtures shared by the core module's tests.
package testhelpers

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/authz"
)

// AuthzFlags is a flag file owned by a single test.
type AuthzFlags struct {
	t    testing.TB
	path string
}

// WithAuthzMode writes a flag file holding mode into a per test directory.
// Provider reads it on every check, so Set takes effect immediately.
func WithAuthzMode(t testing.TB, mode authz.Mode) *AuthzFlags {
	t.Helper()
	f := &AuthzFlags{t: t, path: filepath.Join(t.TempDir(), "authz_flags.yaml")}
	f.Set(mode)
	return f
}

func (f *AuthzFlags) Set(mode authz.Mode) {
	f.t.Helper()
	require.NoError(f.t, os.WriteFile(f.path, []byte(fmt.Sprintf("mode: %s\n", mode)), 0o644))
}

func (f *AuthzFlags) Provider() authz.FlagProvider {
	return authz.NewFileFlagProvider(f.path, authz.ModeEnforce)
}
