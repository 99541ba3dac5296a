// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

// Package logger provides structured JSON logging for the SongForge trust
// core. Every entry carries the component name plus the tenant, user and
// request identifiers of the originating security context so that log lines
// from concurrent requests can be correlated.
package logger
