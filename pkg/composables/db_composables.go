package composables

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/constants"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/repo"
)

var (
	ErrNoTx = errors.New("no transaction found in context")
	ErrNoDB = errors.New("no database found in context")
)

func WithDB(ctx context.Context, db *sqlx.DB) context.Context {
	return context.WithValue(ctx, constants.DBKey, db)
}

func UseDB(ctx context.Context) (*sqlx.DB, error) {
	db, ok := ctx.Value(constants.DBKey).(*sqlx.DB)
	if !ok || db == nil {
		return nil, ErrNoDB
	}
	return db, nil
}

func WithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, constants.TxKey, tx)
}

// UseTx returns the ambient transaction, falling back to the database handle.
func UseTx(ctx context.Context) (repo.Tx, error) {
	if tx, ok := ctx.Value(constants.TxKey).(*sqlx.Tx); ok && tx != nil {
		return tx, nil
	}
	return UseDB(ctx)
}

func InTransaction(ctx context.Context) bool {
	tx, ok := ctx.Value(constants.TxKey).(*sqlx.Tx)
	return ok && tx != nil
}

// InTx runs fn as one unit of work. It joins the ambient transaction when
// there is one; otherwise it begins a transaction that commits when fn
// returns nil and rolls back on error or panic.
func InTx(ctx context.Context, fn func(context.Context) error) (err error) {
	if InTransaction(ctx) {
		return fn(ctx)
	}
	db, err := UseDB(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(WithTx(ctx, tx)); err != nil {
		if rErr := tx.Rollback(); rErr != nil {
			return errors.Join(err, rErr)
		}
		return err
	}
	return tx.Commit()
}
