// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

// Package security implements the identity and row-level access control core.
// A SecurityContext is materialized once per request and threaded explicitly
// through every repository call; the RowGuard translates the context into
// column filters, ownership assignments and post-fetch verification for each
// entity kind, according to the kind's table pattern.
package security
