package rag

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// vectorSize matches the text-embedding-3-small dimension.
const vectorSize = 1536

// VectorIndex wraps the Qdrant client around one collection of child
// memories.
type VectorIndex struct {
	client     *qdrant.Client
	collection string
}

// NewVectorIndex connects to Qdrant over grpc.
func NewVectorIndex(host string, port int, apiKey, collection string) (*VectorIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	return &VectorIndex{client: client, collection: collection}, nil
}

// EnsureCollection creates the memory collection if it does not exist yet.
func (v *VectorIndex) EnsureCollection(ctx context.Context) error {
	exists, err := v.client.CollectionExists(ctx, v.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", v.collection, err)
	}
	if exists {
		return nil
	}

	err = v.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", v.collection, err)
	}
	return nil
}

// Upsert writes one point. The id must be a UUID string.
func (v *VectorIndex) Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error {
	_, err := v.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: v.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(id),
			Vectors: qdrant.NewVectors(vector...),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point %s: %w", id, err)
	}
	return nil
}

// Search returns the closest points for one child, best first.
func (v *VectorIndex) Search(ctx context.Context, vector []float32, childID string, limit int, minScore float32) ([]*qdrant.ScoredPoint, error) {
	points, err := v.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: v.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		ScoreThreshold: qdrant.PtrOf(minScore),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("child_id", childID),
			},
		},
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}
	return points, nil
}

// DeleteByChild removes every point belonging to one child.
func (v *VectorIndex) DeleteByChild(ctx context.Context, childID string) error {
	_, err := v.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: v.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("child_id", childID),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to delete memories for child %s: %w", childID, err)
	}
	return nil
}

// HealthCheck verifies the Qdrant connection.
func (v *VectorIndex) HealthCheck(ctx context.Context) error {
	if _, err := v.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant unhealthy: %w", err)
	}
	return nil
}

// Close closes the grpc connection.
func (v *VectorIndex) Close() error {
	return v.client.Close()
}
