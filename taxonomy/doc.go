// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

// Package taxonomy loads the policy configuration tables from a directory
// of YAML files: the profanity list, PII patterns, the living-artist
// registry, and rubric overrides. Tables are loaded once at startup and
// shared read-only; a hot reload swaps the whole table set atomically and
// keeps the previous set when any file fails to parse.
package taxonomy
