package repo

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMigrations = fstest.MapFS{
	"00001_items.sql": &fstest.MapFile{Data: []byte(`-- +goose Up
CREATE TABLE items (id INTEGER PRIMARY KEY, code TEXT NOT NULL UNIQUE);

-- +goose Down
DROP TABLE items;
`)},
}

func TestParseDialect(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"postgres", "PostgreSQL", "pgx"} {
		d, err := ParseDialect(in)
		require.NoError(t, err)
		assert.Equal(t, Postgres, d)
	}
	d, err := ParseDialect(" sqlite ")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)

	_, err = ParseDialect("mysql")
	require.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		"app.db?_foreign_keys=on&_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL",
		sqliteDSN("app.db"),
	)
	assert.Equal(t,
		"app.db?_busy_timeout=50&_foreign_keys=on&_txlock=immediate&_journal_mode=WAL",
		sqliteDSN("app.db?_busy_timeout=50"),
	)
}

func TestSQLite_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := Open(ctx, SQLite, filepath.Join(t.TempDir(), "repo.db"), PoolOptions{MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	assert.Equal(t, SQLite, DialectOf(db))

	applied, err := Migrate(ctx, db, testMigrations)
	require.NoError(t, err)
	assert.Len(t, applied, 1)

	n, err := Exec(ctx, db, sq.Insert("items").Columns("code").Values("MAIN"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = Exec(ctx, db, sq.Insert("items").Columns("code").Values("MAIN"))
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	ok, err := Exists(ctx, db, sq.Select("id").From("items").Where(sq.Eq{"code": "MAIN"}))
	require.NoError(t, err)
	assert.True(t, ok)

	var code string
	err = Get(ctx, db, &code, sq.Select("code").From("items").Where(sq.Eq{"code": "NONE"}))
	assert.True(t, IsNoRows(err))

	status, err := MigrationStatus(ctx, db, testMigrations)
	require.NoError(t, err)
	require.Len(t, status, 1)

	_, err = Rollback(ctx, db, testMigrations)
	require.NoError(t, err)
}

func TestIsUniqueViolation_Postgres(t *testing.T) {
	t.Parallel()
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(ErrNoRows))
}
