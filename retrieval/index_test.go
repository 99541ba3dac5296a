// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndexRoundTrip(t *testing.T) {
	index := NewMemoryIndex()
	ctx := context.Background()

	chunk := Chunk{Text: "body", Score: 0.9, SourceID: "A", ContentHash: ContentHash("A", "body", nil)}
	require.NoError(t, index.Put(ctx, chunk))

	got, found, err := index.Get(ctx, "A", chunk.ContentHash)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "body", got.Text)

	_, found, err = index.Get(ctx, "A", ContentHash("A", "other", nil))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisIndexRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	index := NewRedisIndex(client, 0)
	ctx := context.Background()

	ts := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	chunk := Chunk{
		Text:        "redis body",
		Score:       0.75,
		Metadata:    map[string]interface{}{"page": "3"},
		Timestamp:   &ts,
		SourceID:    "A",
		ContentHash: ContentHash("A", "redis body", &ts),
	}
	require.NoError(t, index.Put(ctx, chunk))

	got, found, err := index.Get(ctx, "A", chunk.ContentHash)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, chunk.Text, got.Text)
	assert.Equal(t, chunk.ContentHash, got.ContentHash)
	require.NotNil(t, got.Timestamp)
	assert.True(t, ts.Equal(*got.Timestamp))

	_, found, err = index.Get(ctx, "A", ContentHash("A", "missing", nil))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisIndexTTL(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	index := NewRedisIndex(client, time.Minute)
	ctx := context.Background()

	chunk := Chunk{Text: "expiring", SourceID: "A", ContentHash: ContentHash("A", "expiring", nil)}
	require.NoError(t, index.Put(ctx, chunk))

	srv.FastForward(2 * time.Minute)

	// Eviction is lossless for correctness: the entry is simply gone.
	_, found, err := index.Get(ctx, "A", chunk.ContentHash)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRetrieverBackedByRedisIndex(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	index := NewRedisIndex(client, 0)

	upstream := &frozenUpstream{candidates: []Candidate{{Text: "x", Score: 0.9}}}
	r := newRetrieverWith(t, upstream, index)
	ctx := context.Background()

	chunks, err := r.RetrieveChunks(ctx, testSource(), "q", 1, 42)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	// A second retriever with a cold cache resolves the hash through Redis.
	cold := newRetrieverWith(t, &frozenUpstream{}, index)
	got, err := cold.RetrieveByHash(ctx, "A", chunks[0].ContentHash)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Text)
}
