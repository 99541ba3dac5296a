// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package store

import (
	"encoding/base64"
	"encoding/json"

	"songforge/platform/security"
)

// Cursor is the opaque pagination bookmark: the sort field, the last seen
// sort value, and the primary id as tiebreaker. It carries only these three
// keys because the filter may evolve between pages; the cursor is a
// bookmark, not a snapshot.
type Cursor struct {
	Field string `json:"field"`
	Value string `json:"value"`
	ID    string `json:"id"`
}

// EncodeCursor serializes a cursor to its opaque wire form.
func EncodeCursor(c Cursor) string {
	raw, _ := json.Marshal(c)
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeCursor parses an opaque cursor. Invalid base64, invalid JSON, or
// missing keys yield BAD_REQUEST.
func DecodeCursor(encoded string) (Cursor, error) {
	var c Cursor

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return c, security.WrapError(security.CodeBadRequest, "decode_cursor", "", "cursor is not valid base64", err)
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, security.WrapError(security.CodeBadRequest, "decode_cursor", "", "cursor is not valid JSON", err)
	}
	if c.Field == "" || c.Value == "" || c.ID == "" {
		return c, security.NewError(security.CodeBadRequest, "decode_cursor", "", "cursor is missing field, value, or id")
	}
	return c, nil
}
