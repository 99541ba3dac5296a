// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"songforge/platform/security"
	"songforge/platform/shared/logger"
)

// Retriever executes the deterministic retrieval pipeline. The process
// cache races to set idempotently (same hash, same bytes); the optional
// persistent index backs retrieve-by-hash across processes.
type Retriever struct {
	registry *ServerRegistry
	cache    sync.Map // "<source_id>/<hash>" -> *Chunk
	index    HashIndex
	log      *logger.Logger
}

// NewRetriever builds a retriever over the server registry. index may be
// nil; retrieve-by-hash then serves from the process cache only.
func NewRetriever(registry *ServerRegistry, index HashIndex) *Retriever {
	return &Retriever{
		registry: registry,
		index:    index,
		log:      logger.New("retrieval"),
	}
}

// RetrieveChunks runs the pinned pipeline: active check, scope validation,
// seeded upstream call, deny-wins filtering, deterministic ordering,
// truncation, hashing, and caching. Upstream failures propagate; no chunk
// is ever fabricated on error.
func (r *Retriever) RetrieveChunks(ctx context.Context, source Source, query string, topK int, seed int64) ([]Chunk, error) {
	if !source.Active {
		return nil, security.NewError(security.CodeBadRequest, "retrieve_chunks", "",
			fmt.Sprintf("source %q is not active", source.ID))
	}
	if topK <= 0 {
		return nil, security.NewError(security.CodeBadRequest, "retrieve_chunks", "", "top_k must be positive")
	}

	upstream, err := r.registry.Resolve(source.ServerID, source.Scopes)
	if err != nil {
		return nil, err
	}

	candidates, err := upstream.Retrieve(ctx, query, topK, seed, source.Scopes, source.Config)
	if err != nil {
		return nil, fmt.Errorf("upstream retrieval from %q failed: %w", source.ServerID, err)
	}

	filtered := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if admitted(c.Text, source.AllowList, source.DenyList) {
			filtered = append(filtered, c)
		}
	}

	// Equal scores order by (source_id, text); with seeded upstream calls
	// this is what makes replays reproducible.
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Score != filtered[j].Score {
			return filtered[i].Score > filtered[j].Score
		}
		return filtered[i].Text < filtered[j].Text
	})

	if len(filtered) > topK {
		filtered = filtered[:topK]
	}

	chunks := make([]Chunk, 0, len(filtered))
	for _, c := range filtered {
		chunk := Chunk{
			Text:        c.Text,
			Score:       c.Score,
			Metadata:    c.Metadata,
			Timestamp:   c.Timestamp,
			ContentHash: ContentHash(source.ID, c.Text, c.Timestamp),
			SourceID:    source.ID,
		}
		chunks = append(chunks, chunk)
		r.cacheChunk(chunk)
		if r.index != nil {
			if err := r.index.Put(ctx, chunk); err != nil {
				r.log.Warn("", "", "", "persistent index write failed", map[string]interface{}{
					"source_id": source.ID,
					"hash":      chunk.ContentHash,
					"error":     err.Error(),
				})
			}
		}
	}
	return chunks, nil
}

// RetrieveByHash returns a previously retrieved chunk by its content hash:
// process cache first, then the persistent index when configured.
func (r *Retriever) RetrieveByHash(ctx context.Context, sourceID, hash string) (*Chunk, error) {
	if err := ValidateHash(hash); err != nil {
		return nil, err
	}

	if v, ok := r.cache.Load(cacheKey(sourceID, hash)); ok {
		return v.(*Chunk), nil
	}

	if r.index != nil {
		chunk, found, err := r.index.Get(ctx, sourceID, hash)
		if err != nil {
			return nil, err
		}
		if found {
			r.cacheChunk(*chunk)
			return chunk, nil
		}
	}

	return nil, security.NewError(security.CodeEntityNotFound, "retrieve_by_hash", "",
		fmt.Sprintf("no chunk with hash %s for source %q", hash, sourceID))
}

// VerifyReplay re-runs a retrieval and compares the result sequence
// against the expected hashes. A mismatch is a DETERMINISM_VIOLATION.
func (r *Retriever) VerifyReplay(ctx context.Context, source Source, query string, topK int, seed int64, expected []string) error {
	chunks, err := r.RetrieveChunks(ctx, source, query, topK, seed)
	if err != nil {
		return err
	}
	got := make([]string, len(chunks))
	for i, c := range chunks {
		got[i] = c.ContentHash
	}
	if ListDigest(got) != ListDigest(expected) {
		return security.NewError(security.CodeDeterminismViolation, "verify_replay", "",
			fmt.Sprintf("replay of source %q diverged from pinned sequence", source.ID))
	}
	return nil
}

// ListDigest hashes an ordered hash sequence, the quantity compared across
// replay runs.
func ListDigest(hashes []string) string {
	sum := sha256.Sum256([]byte(strings.Join(hashes, "\n")))
	return hex.EncodeToString(sum[:])
}

// NormalizeSourceWeights scales a weight map by 1/sum when the sum exceeds
// 1.0, preserving proportions; otherwise the map is returned unchanged.
func NormalizeSourceWeights(weights map[string]float64) map[string]float64 {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum <= 1.0 {
		return weights
	}
	out := make(map[string]float64, len(weights))
	for k, w := range weights {
		out[k] = w / sum
	}
	return out
}

// admitted applies allow/deny rules: deny wins; with an allow list at
// least one allowed substring must appear; with no lists, accept.
func admitted(text string, allowList, denyList []string) bool {
	for _, d := range denyList {
		if strings.Contains(text, d) {
			return false
		}
	}
	if len(allowList) == 0 {
		return true
	}
	for _, a := range allowList {
		if strings.Contains(text, a) {
			return true
		}
	}
	return false
}

func (r *Retriever) cacheChunk(chunk Chunk) {
	c := chunk
	r.cache.LoadOrStore(cacheKey(chunk.SourceID, chunk.ContentHash), &c)
}

func cacheKey(sourceID, hash string) string {
	return sourceID + "/" + hash
}
