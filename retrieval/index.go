// Copyright 2025 SongForge
// SPDX-License-Identifier: BUSL-1.1

package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-redis/redis/v8"
	"google.golang.org/api/option"
)

// HashIndex is a persistent content_hash to chunk mapping the host may
// provide. Writes are idempotent: the same hash always maps to the same
// bytes, so last-write-wins is safe.
type HashIndex interface {
	Put(ctx context.Context, chunk Chunk) error
	Get(ctx context.Context, sourceID, hash string) (*Chunk, bool, error)
}

// MemoryIndex is an in-process HashIndex. Useful on its own for tests and
// as the default when no external store is configured.
type MemoryIndex struct {
	chunks sync.Map
}

// NewMemoryIndex creates an empty in-process index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Put stores a chunk.
func (m *MemoryIndex) Put(ctx context.Context, chunk Chunk) error {
	c := chunk
	m.chunks.LoadOrStore(cacheKey(chunk.SourceID, chunk.ContentHash), &c)
	return nil
}

// Get fetches a chunk by source and hash.
func (m *MemoryIndex) Get(ctx context.Context, sourceID, hash string) (*Chunk, bool, error) {
	if v, ok := m.chunks.Load(cacheKey(sourceID, hash)); ok {
		return v.(*Chunk), true, nil
	}
	return nil, false, nil
}

// RedisIndex keeps chunks in Redis as JSON values.
type RedisIndex struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIndex wraps an existing Redis client. A zero ttl keeps entries
// until evicted by Redis itself; eviction never loses correctness since
// hash-based re-retrieval recomputes.
func NewRedisIndex(client *redis.Client, ttl time.Duration) *RedisIndex {
	return &RedisIndex{client: client, ttl: ttl}
}

// NewRedisIndexFromAddr dials Redis with the timeouts used across the
// platform.
func NewRedisIndexFromAddr(addr, password string, db int, ttl time.Duration) *RedisIndex {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return NewRedisIndex(client, ttl)
}

func redisKey(sourceID, hash string) string {
	return "songforge:chunk:" + sourceID + ":" + hash
}

// Put stores the chunk JSON.
func (r *RedisIndex) Put(ctx context.Context, chunk Chunk) error {
	raw, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(chunk.SourceID, chunk.ContentHash), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write chunk to redis: %w", err)
	}
	return nil
}

// Get fetches and decodes a chunk; a missing key is not an error.
func (r *RedisIndex) Get(ctx context.Context, sourceID, hash string) (*Chunk, bool, error) {
	raw, err := r.client.Get(ctx, redisKey(sourceID, hash)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read chunk from redis: %w", err)
	}
	var chunk Chunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, false, fmt.Errorf("failed to decode chunk from redis: %w", err)
	}
	return &chunk, true, nil
}

// S3Index keeps chunks as JSON objects in an S3 bucket under
// chunks/<source_id>/<hash>.json. Works against S3-compatible stores via
// a custom endpoint.
type S3Index struct {
	client *s3.Client
	bucket string
}

// NewS3Index wraps an existing S3 client.
func NewS3Index(client *s3.Client, bucket string) *S3Index {
	return &S3Index{client: client, bucket: bucket}
}

// NewS3ClientFromConfig builds an S3 client from explicit settings. Empty
// accessKey falls back to the ambient credential chain; endpoint is for
// S3-compatible services.
func NewS3ClientFromConfig(ctx context.Context, region, accessKey, secretKey, endpoint string) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func s3Key(sourceID, hash string) string {
	return "chunks/" + sourceID + "/" + hash + ".json"
}

// Put writes the chunk object.
func (s *S3Index) Put(ctx context.Context, chunk Chunk) error {
	raw, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s3Key(chunk.SourceID, chunk.ContentHash)),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to write chunk to s3: %w", err)
	}
	return nil
}

// Get reads and decodes a chunk object; a missing key is not an error.
func (s *S3Index) Get(ctx context.Context, sourceID, hash string) (*Chunk, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3Key(sourceID, hash)),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read chunk from s3: %w", err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read chunk body from s3: %w", err)
	}
	var chunk Chunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, false, fmt.Errorf("failed to decode chunk from s3: %w", err)
	}
	return &chunk, true, nil
}

// GCSIndex keeps chunks as JSON objects in a Google Cloud Storage bucket.
type GCSIndex struct {
	client *storage.Client
	bucket string
}

// NewGCSIndex wraps an existing GCS client.
func NewGCSIndex(client *storage.Client, bucket string) *GCSIndex {
	return &GCSIndex{client: client, bucket: bucket}
}

// NewGCSIndexFromCredentials dials GCS. An empty credentials path uses
// application default credentials.
func NewGCSIndexFromCredentials(ctx context.Context, bucket, credentialsFile string) (*GCSIndex, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return NewGCSIndex(client, bucket), nil
}

// Put writes the chunk object.
func (g *GCSIndex) Put(ctx context.Context, chunk Chunk) error {
	raw, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk: %w", err)
	}
	w := g.client.Bucket(g.bucket).Object(s3Key(chunk.SourceID, chunk.ContentHash)).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return fmt.Errorf("failed to write chunk to gcs: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize chunk write to gcs: %w", err)
	}
	return nil
}

// Get reads and decodes a chunk object; a missing object is not an error.
func (g *GCSIndex) Get(ctx context.Context, sourceID, hash string) (*Chunk, bool, error) {
	r, err := g.client.Bucket(g.bucket).Object(s3Key(sourceID, hash)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read chunk from gcs: %w", err)
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read chunk body from gcs: %w", err)
	}
	var chunk Chunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, false, fmt.Errorf("failed to decode chunk from gcs: %w", err)
	}
	return &chunk, true, nil
}
