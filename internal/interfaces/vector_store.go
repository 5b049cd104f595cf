package interfaces

import "context"

// MemoryType represents the kind of event a memory records
type MemoryType string

const (
	MemoryStoryCompleted  MemoryType = "story_completed"
	MemoryDrawingAnalyzed MemoryType = "drawing_analyzed"
	MemoryChatNote        MemoryType = "chat_note"
)

// Memory represents one child-scoped memory with its vector embedding
type Memory struct {
	ID        string                 `json:"id"`
	ChildID   string                 `json:"child_id"`
	Type      MemoryType             `json:"type"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Embedding []float32              `json:"-"`
	Timestamp int64                  `json:"timestamp"`
}

// VectorStore defines the interface for the assistant's memory store
type VectorStore interface {
	// StoreMemory stores a memory with its embedding
	StoreMemory(ctx context.Context, memory *Memory) error

	// SearchMemories searches a child's memories by semantic similarity
	SearchMemories(ctx context.Context, childID, query string, limit int) ([]*Memory, error)

	// DeleteChildMemories removes every memory belonging to a child
	DeleteChildMemories(ctx context.Context, childID string) error
}
