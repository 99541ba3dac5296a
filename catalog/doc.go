// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

// Package catalog defines the persisted entity kinds of the music service
// and their repository descriptors. Ownership columns are declared here
// once per kind; songs and producer notes use user_id while lyrics and
// personas use owner_id, and the row guard handles either.
package catalog
