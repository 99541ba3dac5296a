// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

// Package store implements the generic repository layer over PostgreSQL.
// Every read and write is mediated by the security row guard; each
// operation runs inside its own scoped transaction span unless the caller
// supplies an explicit Tx handle. Pagination is cursor-based with a
// (sort_field, id) keyset tiebreaker.
package store
