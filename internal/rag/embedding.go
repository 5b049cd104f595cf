package rag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"renkioo/server/internal/llm"
)

const (
	cacheTTL     = 24 * time.Hour
	maxBatchSize = 100
)

// CachedEmbedding holds a cached embedding with expiration
type CachedEmbedding struct {
	Vector    []float32
	CreatedAt time.Time
}

// EmbeddingCache fronts the embedding model with an in-memory TTL cache so
// repeated memory writes and searches do not re-embed identical text.
type EmbeddingCache struct {
	model llm.EmbeddingModel
	cache map[string]*CachedEmbedding
	mu    sync.RWMutex
}

// NewEmbeddingCache creates a caching layer over an embedding model.
func NewEmbeddingCache(model llm.EmbeddingModel) *EmbeddingCache {
	return &EmbeddingCache{
		model: model,
		cache: make(map[string]*CachedEmbedding),
	}
}

// Embed returns the embedding for a single text.
func (c *EmbeddingCache) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.getFromCache(text); ok {
		return vec, nil
	}

	vectors, err := c.model.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding generated")
	}

	c.putInCache(text, vectors[0])
	return vectors[0], nil
}

// EmbedBatch returns embeddings for multiple texts in input order, filling
// cache misses with as few model calls as possible.
func (c *EmbeddingCache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if vec, ok := c.getFromCache(text); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	for start := 0; start < len(missing); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		vectors, err := c.model.Embed(ctx, missing[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("embedding count mismatch: want %d, got %d", end-start, len(vectors))
		}
		for i, vec := range vectors {
			c.putInCache(missing[start+i], vec)
			out[missingIdx[start+i]] = vec
		}
	}
	return out, nil
}

// CacheSize returns the number of live cache entries.
func (c *EmbeddingCache) CacheSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Purge drops expired entries.
func (c *EmbeddingCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for key, entry := range c.cache {
		if now.Sub(entry.CreatedAt) > cacheTTL {
			delete(c.cache, key)
		}
	}
}

func (c *EmbeddingCache) getFromCache(text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.cache[text]
	if !ok || time.Since(entry.CreatedAt) > cacheTTL {
		return nil, false
	}
	return entry.Vector, true
}

func (c *EmbeddingCache) putInCache(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[text] = &CachedEmbedding{Vector: vec, CreatedAt: time.Now()}
}
