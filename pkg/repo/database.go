package repo

import (
	"context"
	"io/fs"
	"strings"
	"time"

	"github.com/go-faster/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", errors.Errorf("unsupported database driver %q", s)
	}
}

func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite3"
}

func (d Dialect) gooseDialect() goose.Dialect {
	if d == Postgres {
		return goose.DialectPostgres
	}
	return goose.DialectSQLite3
}

type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// sqliteParams make SQLite behave under concurrent writers: writers take the
// lock at BEGIN and wait instead of failing with SQLITE_BUSY.
var sqliteParams = []string{
	"_foreign_keys=on",
	"_busy_timeout=10000",
	"_txlock=immediate",
	"_journal_mode=WAL",
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, p := range sqliteParams {
		key := p[:strings.IndexByte(p, '=')+1]
		if strings.Contains(dsn, key) {
			continue
		}
		dsn += sep + p
		sep = "&"
	}
	return dsn
}

// Open connects and pings the database.
func Open(ctx context.Context, dialect Dialect, dsn string, opts PoolOptions) (*sqlx.DB, error) {
	if dialect == SQLite {
		dsn = sqliteDSN(dsn)
	}
	db, err := sqlx.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return db, nil
}

// DialectOf infers the dialect from the driver an open handle was built with.
func DialectOf(db *sqlx.DB) Dialect {
	if strings.HasPrefix(db.DriverName(), "pgx") || db.DriverName() == "postgres" {
		return Postgres
	}
	return SQLite
}

func newMigrator(db *sqlx.DB, migrations fs.FS) (*goose.Provider, error) {
	p, err := goose.NewProvider(DialectOf(db).gooseDialect(), db.DB, migrations)
	if err != nil {
		return nil, errors.Wrap(err, "init migrations")
	}
	return p, nil
}

// Migrate applies every pending migration found at the root of migrations.
func Migrate(ctx context.Context, db *sqlx.DB, migrations fs.FS) ([]*goose.MigrationResult, error) {
	p, err := newMigrator(db, migrations)
	if err != nil {
		return nil, err
	}
	res, err := p.Up(ctx)
	if err != nil {
		return res, errors.Wrap(err, "apply migrations")
	}
	return res, nil
}

// MigrationStatus lists every known migration and whether it is applied.
func MigrationStatus(ctx context.Context, db *sqlx.DB, migrations fs.FS) ([]*goose.MigrationStatus, error) {
	p, err := newMigrator(db, migrations)
	if err != nil {
		return nil, err
	}
	return p.Status(ctx)
}

// Rollback reverts the most recently applied migration.
func Rollback(ctx context.Context, db *sqlx.DB, migrations fs.FS) (*goose.MigrationResult, error) {
	p, err := newMigrator(db, migrations)
	if err != nil {
		return nil, err
	}
	return p.Down(ctx)
}
