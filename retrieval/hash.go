// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package retrieval

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"songforge/platform/security"
)

// ContentHash computes the canonical chunk hash: SHA-256 over the UTF-8
// bytes of source_id, chunk text, and the RFC 3339 UTC timestamp (empty
// when absent), newline separated. Hex encoded lowercase, 64 chars.
func ContentHash(sourceID, text string, timestamp *time.Time) string {
	ts := ""
	if timestamp != nil {
		ts = timestamp.UTC().Format(time.RFC3339)
	}
	sum := sha256.Sum256([]byte(sourceID + "\n" + text + "\n" + ts))
	return hex.EncodeToString(sum[:])
}

// ValidateHash checks that a caller-supplied hash is 64 lowercase hex
// characters.
func ValidateHash(hash string) error {
	if len(hash) != 64 {
		return security.NewError(security.CodeBadRequest, "validate_hash", "", "content hash must be 64 hex characters")
	}
	for i := 0; i < len(hash); i++ {
		c := hash[i]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') {
			continue
		}
		return security.NewError(security.CodeBadRequest, "validate_hash", "", "content hash must be lowercase hex")
	}
	return nil
}
