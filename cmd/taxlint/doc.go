// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

// Command taxlint validates a taxonomy directory and optional blueprint
// directory with the exact load and compile paths the service uses.
package main
