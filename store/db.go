// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"songforge/platform/security"
)

const (
	openMaxRetries = 5
	pingTimeout    = 5 * time.Second
)

// Open connects to Postgres and verifies the connection with a ping,
// retrying with linear backoff while the database comes up.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= openMaxRetries; attempt++ {
		db, err := sql.Open("postgres", dsn)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err = db.PingContext(pingCtx)
			cancel()
			if err == nil {
				return db, nil
			}
			db.Close()
		}
		lastErr = err

		if attempt < openMaxRetries {
			backoff := time.Duration(attempt) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, security.WrapError(security.CodeDatabaseError, "open_database", "",
					"connection aborted", ctx.Err())
			}
		}
	}
	return nil, security.WrapError(security.CodeDatabaseError, "open_database", "",
		fmt.Sprintf("connection failed after %d attempts", openMaxRetries), lastErr)
}
