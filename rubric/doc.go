// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

// Package rubric scores generated artifacts against a genre blueprint:
// five metric calculators, a weighted compositor with override and A/B
// resolution, and a threshold validator producing PASS, BORDERLINE, or
// FAIL with improvement suggestions.
package rubric
