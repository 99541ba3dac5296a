// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package store

import (
	"context"
	"database/sql"

	"songforge/platform/security"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx is an explicit transaction handle spanning multiple repository calls.
// Operations passed the same handle share a single commit/rollback boundary.
type Tx struct {
	tx *sql.Tx
}

// Begin opens an explicit transaction on the given database handle.
func Begin(ctx context.Context, db *sql.DB) (*Tx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, security.WrapError(security.CodeDatabaseError, "begin_tx", "", "failed to begin transaction", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return security.WrapError(security.CodeDatabaseError, "commit_tx", "", "failed to commit transaction", err)
	}
	return nil
}

// Rollback rolls the transaction back. Calling it after Commit is a no-op.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return security.WrapError(security.CodeDatabaseError, "rollback_tx", "", "failed to roll back transaction", err)
	}
	return nil
}
