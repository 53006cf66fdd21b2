// Package dbx provides the store handle abstractions shared by repositories:
// a minimal query interface (DBTX) satisfied by *sql.DB, *sql.Conn and *sql.Tx,
// and a Runner that scopes each unit of work to one acquired handle.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is the subset of database/sql used by repositories.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Runner hands a store handle to fn and releases it when fn returns,
// on every exit path.
type Runner interface {
	// Conn runs fn on a single pooled connection.
	Conn(ctx context.Context, fn func(ctx context.Context, q DBTX) error) error
	// Tx runs fn inside a transaction, committing only if fn returns nil.
	Tx(ctx context.Context, fn func(ctx context.Context, q DBTX) error) error
}

// SQLRunner is a Runner over a *sql.DB pool.
type SQLRunner struct {
	db *sql.DB
}

func NewRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

func (r *SQLRunner) Conn(ctx context.Context, fn func(ctx context.Context, q DBTX) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	return fn(ctx, conn)
}

func (r *SQLRunner) Tx(ctx context.Context, fn func(ctx context.Context, q DBTX) error) error {
	return WithTx(ctx, r.db, nil, fn)
}

// WithTx begins a transaction, runs fn with the transactional handle, and then
// commits on success or rolls back on error or panic. Panics are rethrown.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
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
