package rag

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	mu      sync.Mutex
	batches [][]string
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]string(nil), texts...))

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func (s *stubEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func TestEmbedCachesRepeatedText(t *testing.T) {
	stub := &stubEmbedder{}
	cache := NewEmbeddingCache(stub)
	ctx := context.Background()

	first, err := cache.Embed(ctx, "a small orange fox")
	require.NoError(t, err)
	second, err := cache.Embed(ctx, "a small orange fox")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, stub.callCount(), "second call is served from cache")
	assert.Equal(t, 1, cache.CacheSize())
}

func TestEmbedBatchOnlyEmbedsMisses(t *testing.T) {
	stub := &stubEmbedder{}
	cache := NewEmbeddingCache(stub)
	ctx := context.Background()

	_, err := cache.Embed(ctx, "seen before")
	require.NoError(t, err)

	vectors, err := cache.EmbedBatch(ctx, []string{"brand new", "seen before", "also new"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, vec := range vectors {
		assert.NotEmpty(t, vec, "vector %d", i)
	}

	require.Equal(t, 2, stub.callCount())
	assert.Equal(t, []string{"brand new", "also new"}, stub.batches[1],
		"only the misses reach the model, in order")
	assert.Equal(t, 3, cache.CacheSize())
}

func TestEmbedBatchEmpty(t *testing.T) {
	cache := NewEmbeddingCache(&stubEmbedder{})
	vectors, err := cache.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestPurgeDropsExpiredEntries(t *testing.T) {
	stub := &stubEmbedder{}
	cache := NewEmbeddingCache(stub)
	ctx := context.Background()

	_, err := cache.Embed(ctx, "old entry")
	require.NoError(t, err)

	cache.mu.Lock()
	cache.cache["old entry"].CreatedAt = time.Now().Add(-2 * cacheTTL)
	cache.mu.Unlock()

	cache.Purge()
	assert.Equal(t, 0, cache.CacheSize())

	_, err = cache.Embed(ctx, "old entry")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.callCount(), "expired entry is re-embedded")
}
