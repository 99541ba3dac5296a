// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

// Package retrieval implements the deterministic pinned retriever: the
// same (source, query, top_k, seed) always yields the same chunk sequence,
// and any chunk can be fetched again by its content hash alone, from the
// process cache or from a persistent hash index.
package retrieval
