// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package store

import (
	"encoding/base64"
	"testing"

	"songforge/platform/security"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{Field: "updated_at", Value: "2026-08-20T10:00:00Z", ID: "3f0c2a9e"}

	out, err := DecodeCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestDecodeCursorMalformed(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"invalid base64", "!!!not-base64!!!"},
		{"invalid json", base64.StdEncoding.EncodeToString([]byte("{not json"))},
		{"missing keys", base64.StdEncoding.EncodeToString([]byte(`{"field":"updated_at"}`))},
		{"empty", base64.StdEncoding.EncodeToString([]byte(`{}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCursor(tt.encoded)
			if security.ErrCode(err) != security.CodeBadRequest {
				t.Errorf("expected BAD_REQUEST, got %v", err)
			}
		})
	}
}
