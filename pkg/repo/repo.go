// Package repo holds the database plumbing shared by repositories: the
// executor abstraction over pools and transactions, squirrel execution
// helpers and driver-neutral error classification.
package repo

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// Tx is satisfied by both *sqlx.DB and *sqlx.Tx.
type Tx interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

var (
	_ Tx = (*sqlx.DB)(nil)
	_ Tx = (*sqlx.Tx)(nil)
)

// ErrNoRows is returned by Get when nothing matched.
var ErrNoRows = sql.ErrNoRows

// build renders b with '?' placeholders and rebinds them for the driver.
func build(tx Tx, b sq.Sqlizer) (string, []any, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return "", nil, errors.Wrap(err, "build query")
	}
	return tx.Rebind(query), args, nil
}

func Get(ctx context.Context, tx Tx, dest any, b sq.Sqlizer) error {
	query, args, err := build(tx, b)
	if err != nil {
		return err
	}
	return tx.GetContext(ctx, dest, query, args...)
}

func Select(ctx context.Context, tx Tx, dest any, b sq.Sqlizer) error {
	query, args, err := build(tx, b)
	if err != nil {
		return err
	}
	return tx.SelectContext(ctx, dest, query, args...)
}

// Exec runs b and returns the number of affected rows.
func Exec(ctx context.Context, tx Tx, b sq.Sqlizer) (int64, error) {
	query, args, err := build(tx, b)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return n, nil
}

// Exists reports whether b, a SELECT, matches at least one row.
func Exists(ctx context.Context, tx Tx, b sq.SelectBuilder) (bool, error) {
	var n int
	if err := Get(ctx, tx, &n, sq.Select("COUNT(*)").FromSelect(b.Limit(1), "q")); err != nil {
		return false, err
	}
	return n > 0, nil
}

func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation recognizes unique constraint failures from both the
// Postgres and SQLite drivers.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
