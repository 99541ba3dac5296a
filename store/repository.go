// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"songforge/platform/security"
	"songforge/platform/shared/logger"
)

// Operations slower than this emit a WARN log with the recorded duration.
const slowSpanThreshold = 3 * time.Millisecond

const (
	defaultListLimit = 50
	maxListLimit     = 500
	defaultSortField = "created_at"
)

// ListOptions controls a paginated list query.
type ListOptions struct {
	SortField  string
	Descending bool
	Limit      int
	Cursor     string
	WithTotal  bool
}

// Page is one window of a paginated result set. NextCursor is empty when
// the final page has been reached. Total is set only when requested.
type Page[T Entity] struct {
	Items      []T
	NextCursor string
	Total      *int64
}

// Repository provides guarded CRUD and cursor pagination for one entity
// kind. Constructed around a database handle and mediated by the row guard
// on every operation; a nil security context permits only system-managed
// kinds.
type Repository[T Entity] struct {
	db    *sql.DB
	guard *security.RowGuard
	desc  Descriptor[T]
	log   *logger.Logger
}

// NewRepository builds a repository for one entity kind.
func NewRepository[T Entity](db *sql.DB, guard *security.RowGuard, desc Descriptor[T], log *logger.Logger) *Repository[T] {
	if log == nil {
		log = logger.New("store")
	}
	return &Repository[T]{db: db, guard: guard, desc: desc, log: log}
}

// GetByID fetches one row visible to the context. Rows the context may not
// see and rows that do not exist are both ENTITY_NOT_FOUND.
func (r *Repository[T]) GetByID(ctx context.Context, sctx *security.Context, id string) (T, error) {
	var out T
	err := r.span(ctx, sctx, "get_by_id", func(q querier) error {
		var err error
		out, err = r.getByID(ctx, q, sctx, id)
		return err
	})
	return out, err
}

// GetByIDTx is GetByID inside an explicit transaction handle.
func (r *Repository[T]) GetByIDTx(ctx context.Context, tx *Tx, sctx *security.Context, id string) (T, error) {
	return r.getByID(ctx, tx.tx, sctx, id)
}

// List returns one page of rows visible to the context, ordered by
// (sort_field, id) with the id as a stable tiebreaker.
func (r *Repository[T]) List(ctx context.Context, sctx *security.Context, opts ListOptions) (*Page[T], error) {
	var out *Page[T]
	err := r.span(ctx, sctx, "list_paginated", func(q querier) error {
		var err error
		out, err = r.list(ctx, q, sctx, opts)
		return err
	})
	return out, err
}

// ListTx is List inside an explicit transaction handle.
func (r *Repository[T]) ListTx(ctx context.Context, tx *Tx, sctx *security.Context, opts ListOptions) (*Page[T], error) {
	return r.list(ctx, tx.tx, sctx, opts)
}

// Create inserts a new entity. Ownership columns are assigned by the row
// guard before the insert; if the context cannot supply the required owner
// column the write fails without touching the store.
func (r *Repository[T]) Create(ctx context.Context, sctx *security.Context, e T) error {
	return r.span(ctx, sctx, "create", func(q querier) error {
		return r.create(ctx, q, sctx, e)
	})
}

// CreateTx is Create inside an explicit transaction handle.
func (r *Repository[T]) CreateTx(ctx context.Context, tx *Tx, sctx *security.Context, e T) error {
	return r.create(ctx, tx.tx, sctx, e)
}

// Update rewrites every non-id column of an existing visible row. A row the
// context may not see is ENTITY_NOT_FOUND.
func (r *Repository[T]) Update(ctx context.Context, sctx *security.Context, e T) error {
	return r.span(ctx, sctx, "update", func(q querier) error {
		return r.update(ctx, q, sctx, e)
	})
}

// UpdateTx is Update inside an explicit transaction handle.
func (r *Repository[T]) UpdateTx(ctx context.Context, tx *Tx, sctx *security.Context, e T) error {
	return r.update(ctx, tx.tx, sctx, e)
}

// Delete soft-deletes a visible row by stamping deleted_at.
func (r *Repository[T]) Delete(ctx context.Context, sctx *security.Context, id string) error {
	return r.span(ctx, sctx, "delete", func(q querier) error {
		return r.delete(ctx, q, sctx, id)
	})
}

// DeleteTx is Delete inside an explicit transaction handle.
func (r *Repository[T]) DeleteTx(ctx context.Context, tx *Tx, sctx *security.Context, id string) error {
	return r.delete(ctx, tx.tx, sctx, id)
}

// VerifyFetched checks ownership of an entity reached through a foreign
// key. Mismatches surface as ENTITY_NOT_FOUND.
func (r *Repository[T]) VerifyFetched(sctx *security.Context, e T) error {
	owner, tenant := r.desc.OwnerOf(e)
	return r.guard.VerifyOwnership(sctx, r.desc.Schema, owner, tenant)
}

func (r *Repository[T]) getByID(ctx context.Context, q querier, sctx *security.Context, id string) (T, error) {
	var zero T

	filters, err := r.guard.ReadFilters(sctx, r.desc.Schema)
	if err != nil {
		return zero, err
	}

	where := []string{"id = $1", "deleted_at IS NULL"}
	args := []interface{}{id}
	for _, f := range filters {
		args = append(args, f.Value)
		where = append(where, fmt.Sprintf("%s = $%d", f.Column, len(args)))
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(r.desc.Columns, ", "), r.desc.Schema.Table, strings.Join(where, " AND "))

	row := q.QueryRowContext(ctx, query, args...)
	e, err := r.desc.Scan(row)
	if err == sql.ErrNoRows {
		return zero, security.NewError(security.CodeEntityNotFound, "get_by_id", r.desc.Schema.Table, "entity not found")
	}
	if err != nil {
		return zero, security.WrapError(security.CodeDatabaseError, "get_by_id", r.desc.Schema.Table, "query failed", err)
	}
	return e, nil
}

func (r *Repository[T]) list(ctx context.Context, q querier, sctx *security.Context, opts ListOptions) (*Page[T], error) {
	filters, err := r.guard.ReadFilters(sctx, r.desc.Schema)
	if err != nil {
		return nil, err
	}

	sortName := opts.SortField
	if sortName == "" {
		sortName = defaultSortField
	}
	sort, ok := r.desc.SortFields[sortName]
	if !ok {
		return nil, security.NewError(security.CodeBadRequest, "list_paginated", r.desc.Schema.Table,
			fmt.Sprintf("unknown sort field %q", sortName))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	where := []string{"deleted_at IS NULL"}
	var args []interface{}
	for _, f := range filters {
		args = append(args, f.Value)
		where = append(where, fmt.Sprintf("%s = $%d", f.Column, len(args)))
	}

	if opts.Cursor != "" {
		cursor, err := DecodeCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}
		if cursor.Field != sortName {
			return nil, security.NewError(security.CodeBadRequest, "list_paginated", r.desc.Schema.Table,
				fmt.Sprintf("cursor field %q does not match sort field %q", cursor.Field, sortName))
		}
		// Direction-reversed keyset comparison: DESC pages match rows
		// strictly below the bookmark, ASC strictly above.
		cmp := ">"
		if opts.Descending {
			cmp = "<"
		}
		valuePlaceholder := fmt.Sprintf("$%d", len(args)+1)
		if sort.Timestamp {
			valuePlaceholder += "::timestamptz"
		}
		args = append(args, cursor.Value)
		args = append(args, cursor.ID)
		where = append(where, fmt.Sprintf("(%s, id) %s (%s, $%d)", sort.Column, cmp, valuePlaceholder, len(args)))
	}

	var total *int64
	if opts.WithTotal {
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s",
			r.desc.Schema.Table, strings.Join(where, " AND "))
		var n int64
		if err := q.QueryRowContext(ctx, countQuery, args...).Scan(&n); err != nil {
			return nil, security.WrapError(security.CodeDatabaseError, "list_paginated", r.desc.Schema.Table, "count failed", err)
		}
		total = &n
	}

	dir := "ASC"
	if opts.Descending {
		dir = "DESC"
	}

	// Fetch limit+1 to probe for a next page.
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s %s, id %s LIMIT %d",
		strings.Join(r.desc.Columns, ", "), r.desc.Schema.Table, strings.Join(where, " AND "),
		sort.Column, dir, dir, limit+1)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, security.WrapError(security.CodeDatabaseError, "list_paginated", r.desc.Schema.Table, "query failed", err)
	}
	defer rows.Close()

	items := make([]T, 0, limit)
	for rows.Next() {
		e, err := r.desc.Scan(rows)
		if err != nil {
			return nil, security.WrapError(security.CodeDatabaseError, "list_paginated", r.desc.Schema.Table, "scan failed", err)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, security.WrapError(security.CodeDatabaseError, "list_paginated", r.desc.Schema.Table, "row iteration failed", err)
	}

	page := &Page[T]{Total: total}
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		page.NextCursor = EncodeCursor(Cursor{
			Field: sortName,
			Value: r.desc.SortValue(last, sortName),
			ID:    last.EntityID(),
		})
	}
	page.Items = items
	return page, nil
}

func (r *Repository[T]) create(ctx context.Context, q querier, sctx *security.Context, e T) error {
	assignments, err := r.guard.OwnershipAssignment(sctx, r.desc.Schema)
	if err != nil {
		return err
	}
	for _, a := range assignments {
		r.desc.SetOwner(e, a.Column, a.Value)
	}

	placeholders := make([]string, len(r.desc.Columns))
	for i := range r.desc.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.desc.Schema.Table, strings.Join(r.desc.Columns, ", "), strings.Join(placeholders, ", "))

	if _, err := q.ExecContext(ctx, query, r.desc.Values(e)...); err != nil {
		return security.WrapError(security.CodeDatabaseError, "create", r.desc.Schema.Table, "insert failed", err)
	}
	return nil
}

func (r *Repository[T]) update(ctx context.Context, q querier, sctx *security.Context, e T) error {
	filters, err := r.guard.ReadFilters(sctx, r.desc.Schema)
	if err != nil {
		return err
	}

	values := r.desc.Values(e)
	sets := make([]string, 0, len(r.desc.Columns)-1)
	args := make([]interface{}, 0, len(values)+len(filters)+1)
	// Columns[0] is "id"; it anchors the WHERE clause instead.
	for i := 1; i < len(r.desc.Columns); i++ {
		args = append(args, values[i])
		sets = append(sets, fmt.Sprintf("%s = $%d", r.desc.Columns[i], len(args)))
	}

	args = append(args, e.EntityID())
	where := []string{fmt.Sprintf("id = $%d", len(args)), "deleted_at IS NULL"}
	for _, f := range filters {
		args = append(args, f.Value)
		where = append(where, fmt.Sprintf("%s = $%d", f.Column, len(args)))
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		r.desc.Schema.Table, strings.Join(sets, ", "), strings.Join(where, " AND "))

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return security.WrapError(security.CodeDatabaseError, "update", r.desc.Schema.Table, "update failed", err)
	}
	return r.requireRow(res, "update")
}

func (r *Repository[T]) delete(ctx context.Context, q querier, sctx *security.Context, id string) error {
	filters, err := r.guard.ReadFilters(sctx, r.desc.Schema)
	if err != nil {
		return err
	}

	args := []interface{}{id}
	where := []string{"id = $1", "deleted_at IS NULL"}
	for _, f := range filters {
		args = append(args, f.Value)
		where = append(where, fmt.Sprintf("%s = $%d", f.Column, len(args)))
	}

	query := fmt.Sprintf("UPDATE %s SET deleted_at = NOW() WHERE %s",
		r.desc.Schema.Table, strings.Join(where, " AND "))

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return security.WrapError(security.CodeDatabaseError, "delete", r.desc.Schema.Table, "delete failed", err)
	}
	return r.requireRow(res, "delete")
}

func (r *Repository[T]) requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return security.WrapError(security.CodeDatabaseError, op, r.desc.Schema.Table, "rows affected unavailable", err)
	}
	if n == 0 {
		return security.NewError(security.CodeEntityNotFound, op, r.desc.Schema.Table, "entity not found")
	}
	return nil
}

// span runs fn inside its own transaction: commit on clean return, rollback
// on any error. A rollback failure while handling another error is logged
// but never replaces the original cause.
func (r *Repository[T]) span(ctx context.Context, sctx *security.Context, op string, fn func(q querier) error) error {
	start := time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return security.WrapError(security.CodeDatabaseError, op, r.desc.Schema.Table, "failed to begin transaction", err)
	}

	tenantID, userID := identity(sctx)

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			r.log.ErrorWithErr(tenantID, userID, "", "rollback failed after operation error", rbErr, map[string]interface{}{
				"operation": op,
				"table":     r.desc.Schema.Table,
			})
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return security.WrapError(security.CodeDatabaseError, op, r.desc.Schema.Table, "failed to commit transaction", err)
	}

	if elapsed := time.Since(start); elapsed > slowSpanThreshold {
		r.log.WarnWithDuration(tenantID, userID, "", "slow repository operation", float64(elapsed.Microseconds())/1000.0, map[string]interface{}{
			"operation": op,
			"table":     r.desc.Schema.Table,
		})
	}
	return nil
}

func identity(sctx *security.Context) (tenantID, userID string) {
	if sctx == nil {
		return "", ""
	}
	tenantID, _ = sctx.TenantID()
	userID, _ = sctx.UserID()
	return tenantID, userID
}
