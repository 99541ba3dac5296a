// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

// Package policy implements the content guards: the profanity filter, the
// PII detector, the living-artist normalizer, and the release policy
// enforcer. Pattern tables are compiled once from the taxonomy at
// construction and shared read-only across workers.
package policy
