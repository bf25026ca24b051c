package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_SkipsMissingFiles(t *testing.T) {
	tmp := t.TempDir()
	present := filepath.Join(tmp, ".env.local")
	require.NoError(t, os.WriteFile(present, []byte("PHARMACY_TEST_ENV_LOAD=ok\n"), 0o600))
	t.Setenv("PHARMACY_TEST_ENV_LOAD", "")
	require.NoError(t, os.Unsetenv("PHARMACY_TEST_ENV_LOAD"))

	n, err := LoadEnv([]string{filepath.Join(tmp, ".env"), present})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "ok", os.Getenv("PHARMACY_TEST_ENV_LOAD"))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GO_APP_ENV", Development)
	t.Setenv("JWT_SECRET", "")

	c, err := Load(nil)
	require.NoError(t, err)
	t.Cleanup(c.Unload)

	assert.Equal(t, 15*time.Minute, c.Auth.AccessTokenTTL)
	assert.Equal(t, 720*time.Hour, c.Auth.RefreshTokenTTL)
	assert.Equal(t, devJWTSecret, c.Auth.JWTSecret)
	assert.Equal(t, "enforce", c.Authz.Mode)
	assert.Equal(t, "localhost:3200", c.SocketAddress)
	assert.False(t, c.Federation.Enabled())
	assert.NotNil(t, c.Logger())
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("GO_APP_ENV", Production)
	t.Setenv("JWT_SECRET", "")

	_, err := Load(nil)
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "too-short")
	_, err = Load(nil)
	require.Error(t, err)
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load(nil)
	require.ErrorContains(t, err, "DB_DRIVER")
}

func TestDatabaseOptions_DSN(t *testing.T) {
	sqlite := DatabaseOptions{Driver: "sqlite3", Path: "/tmp/x.db"}
	assert.Equal(t, "file:/tmp/x.db", sqlite.DSN())

	pg := DatabaseOptions{Driver: "postgres", Host: "db", Port: "5432", User: "u", Name: "n", Password: "p", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u dbname=n password=p sslmode=disable", pg.DSN())
}
