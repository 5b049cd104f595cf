package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"renkioo/server/internal/interfaces"
)

// minSearchScore filters out weakly related memories. Cosine scores from
// text-embedding-3-small land well below the old 0.7 rule of thumb for
// related children's-story text, so the floor sits lower.
const minSearchScore = 0.25

const defaultSearchLimit = 5

// MemoryStore keeps child-scoped memories in Qdrant with embeddings from
// the caching layer. It implements interfaces.VectorStore.
type MemoryStore struct {
	index      *VectorIndex
	embeddings *EmbeddingCache
}

// NewMemoryStore creates a memory store over a vector index.
func NewMemoryStore(index *VectorIndex, embeddings *EmbeddingCache) *MemoryStore {
	return &MemoryStore{index: index, embeddings: embeddings}
}

// StoreMemory embeds the memory content (unless an embedding is already
// attached) and upserts it.
func (s *MemoryStore) StoreMemory(ctx context.Context, memory *interfaces.Memory) error {
	if memory.Content == "" {
		return fmt.Errorf("memory content is empty")
	}
	if memory.ID == "" {
		memory.ID = uuid.NewString()
	}
	if memory.Timestamp == 0 {
		memory.Timestamp = time.Now().Unix()
	}

	vector := memory.Embedding
	if len(vector) == 0 {
		var err error
		vector, err = s.embeddings.Embed(ctx, memory.Content)
		if err != nil {
			return fmt.Errorf("failed to generate embedding: %w", err)
		}
	}

	payload := map[string]any{
		"child_id":  memory.ChildID,
		"type":      string(memory.Type),
		"content":   memory.Content,
		"timestamp": memory.Timestamp,
	}
	for k, v := range memory.Metadata {
		if _, reserved := payload[k]; reserved {
			continue
		}
		payload[k] = v
	}

	return s.index.Upsert(ctx, memory.ID, vector, payload)
}

// SearchMemories embeds the query and returns the child's closest memories,
// best first.
func (s *MemoryStore) SearchMemories(ctx context.Context, childID, query string, limit int) ([]*interfaces.Memory, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	queryVector, err := s.embeddings.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	points, err := s.index.Search(ctx, queryVector, childID, limit, minSearchScore)
	if err != nil {
		return nil, err
	}

	memories := make([]*interfaces.Memory, 0, len(points))
	for _, point := range points {
		memories = append(memories, pointToMemory(point))
	}
	return memories, nil
}

// DeleteChildMemories removes every memory belonging to a child.
func (s *MemoryStore) DeleteChildMemories(ctx context.Context, childID string) error {
	return s.index.DeleteByChild(ctx, childID)
}

func pointToMemory(point *qdrant.ScoredPoint) *interfaces.Memory {
	memory := &interfaces.Memory{
		ID:       point.GetId().GetUuid(),
		Metadata: make(map[string]interface{}),
	}

	for key, value := range point.GetPayload() {
		switch key {
		case "child_id":
			memory.ChildID = value.GetStringValue()
		case "type":
			memory.Type = interfaces.MemoryType(value.GetStringValue())
		case "content":
			memory.Content = value.GetStringValue()
		case "timestamp":
			memory.Timestamp = value.GetIntegerValue()
		default:
			memory.Metadata[key] = valueToAny(value)
		}
	}
	return memory
}

// valueToAny unwraps the payload value kinds the store writes: strings,
// numbers, bools, and lists of those.
func valueToAny(value *qdrant.Value) interface{} {
	switch kind := value.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := kind.ListValue.GetValues()
		out := make([]interface{}, 0, len(items))
		for _, item := range items {
			out = append(out, valueToAny(item))
		}
		return out
	default:
		return nil
	}
}
