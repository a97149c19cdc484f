// Package dbx holds the small database plumbing the repositories share: a
// DBTX interface satisfied by both *sql.DB and *sql.Tx, so the same
// repository code runs inside and outside a transaction, and a WithTx helper
// that scopes a function to one transaction.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the query surface repositories are written against. Passing a
// *sql.Tx groups their writes into one transaction; passing the *sql.DB runs
// them standalone.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// Registration uses it to land the account row and its starter grant ledger
// entry together:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    created, err := repos.Users(tx).Create(ctx, user)
//	    if err != nil {
//	        return err
//	    }
//	    return repos.Transactions(tx).Record(ctx, grant)
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
