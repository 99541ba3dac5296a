// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package store

import (
	"songforge/platform/security"
)

// Entity is the minimal surface every persisted record exposes.
type Entity interface {
	EntityID() string
}

// RowScanner abstracts *sql.Row and *sql.Rows for descriptor scan funcs.
type RowScanner interface {
	Scan(dest ...interface{}) error
}

// SortField describes one column a kind may be paginated by. Timestamp
// columns get an explicit cast in the keyset comparison so the cursor's
// string value compares chronologically.
type SortField struct {
	Column    string
	Timestamp bool
}

// Descriptor binds a repository to one entity kind. The ownership columns
// are declared once here, at registration; the row guard never probes the
// schema at query time.
type Descriptor[T Entity] struct {
	// Schema names the table and its ownership columns. An empty
	// OwnerColumn or TenantColumn means the kind has no such column.
	Schema security.TableSchema

	// Columns lists every persisted column in insert order. The first
	// entry must be "id".
	Columns []string

	// SortFields whitelists the pagination sort fields for this kind.
	SortFields map[string]SortField

	// Scan reads one row in Columns order into a new entity.
	Scan func(row RowScanner) (T, error)

	// Values extracts the entity's column values in Columns order.
	Values func(e T) []interface{}

	// SetOwner stamps an ownership column on a new entity before insert.
	SetOwner func(e T, column, value string)

	// OwnerOf returns the entity's stored owner and tenant values, empty
	// when the schema has no such column. Used for post-fetch verification
	// of rows reached through foreign keys.
	OwnerOf func(e T) (owner, tenant string)

	// SortValue renders the entity's value for a sort field as the string
	// carried in a cursor (RFC 3339 UTC for timestamps).
	SortValue func(e T, field string) string
}
