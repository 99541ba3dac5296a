// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package retrieval

import (
	"context"
	"time"
)

// Source is a registered external knowledge provider.
type Source struct {
	ID        string
	Kind      string
	ServerID  string
	Scopes    []string
	AllowList []string
	DenyList  []string
	Config    map[string]interface{}
	Weight    float64
	Active    bool
}

// Candidate is one record returned by an upstream before local filtering
// and hashing. Timestamp is nil when the upstream carries none.
type Candidate struct {
	Text      string
	Score     float64
	Metadata  map[string]interface{}
	Timestamp *time.Time
}

// Chunk is a retrieved record with its content hash. Chunks are immutable
// once returned.
type Chunk struct {
	Text        string                 `json:"text"`
	Score       float64                `json:"score"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Timestamp   *time.Time             `json:"timestamp,omitempty"`
	ContentHash string                 `json:"content_hash"`
	SourceID    string                 `json:"source_id"`
}

// Citation is an immutable hashed reference to one retrieved chunk, the
// form consumed by the rubric scorer.
type Citation struct {
	SourceID    string
	ChunkText   string
	Timestamp   *time.Time
	Weight      float64
	ContentHash string
}

// NewCitation builds a citation with its content hash computed.
func NewCitation(sourceID, chunkText string, timestamp *time.Time, weight float64) Citation {
	return Citation{
		SourceID:    sourceID,
		ChunkText:   chunkText,
		Timestamp:   timestamp,
		Weight:      weight,
		ContentHash: ContentHash(sourceID, chunkText, timestamp),
	}
}

// Upstream is the external retrieval contract. Implementations return an
// ordered candidate list for (query, top_k, seed); the retriever performs
// all filtering and hashing locally.
type Upstream interface {
	Retrieve(ctx context.Context, query string, topK int, seed int64, scopes []string, config map[string]interface{}) ([]Candidate, error)
}
