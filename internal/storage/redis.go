package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"renkioo/server/internal/config"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Helper methods for common operations
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Session snapshot cache
const (
	snapshotKeyPrefix = "story:snapshot:"
	snapshotTTL       = 24 * time.Hour

	assetKeyPrefix = "asset:"
	assetKeyTTL    = 7 * 24 * time.Hour
)

// StoreSessionSnapshot caches the latest serializable view of a session so
// a reconnecting client can resume without touching MySQL.
func (s *RedisStore) StoreSessionSnapshot(ctx context.Context, storyID string, snapshot interface{}) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot for %s: %w", storyID, err)
	}
	if err := s.Set(ctx, snapshotKeyPrefix+storyID, data, snapshotTTL); err != nil {
		return fmt.Errorf("failed to cache snapshot for %s: %w", storyID, err)
	}
	return nil
}

// GetSessionSnapshot returns the cached snapshot JSON, or nil when none is
// cached.
func (s *RedisStore) GetSessionSnapshot(ctx context.Context, storyID string) ([]byte, error) {
	data, err := s.client.Get(ctx, snapshotKeyPrefix+storyID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot for %s: %w", storyID, err)
	}
	return data, nil
}

// DeleteSessionSnapshot drops the cached snapshot after a story ends.
func (s *RedisStore) DeleteSessionSnapshot(ctx context.Context, storyID string) error {
	return s.Del(ctx, snapshotKeyPrefix+storyID)
}

// SetAssetPath records where a generated asset landed on disk, keyed by the
// generator's cache key.
func (s *RedisStore) SetAssetPath(ctx context.Context, kind, key, path string) error {
	return s.Set(ctx, assetKeyPrefix+kind+":"+key, path, assetKeyTTL)
}

// GetAssetPath returns the recorded path, or "" when the asset is unknown.
func (s *RedisStore) GetAssetPath(ctx context.Context, kind, key string) (string, error) {
	path, err := s.client.Get(ctx, assetKeyPrefix+kind+":"+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read asset key %s:%s: %w", kind, key, err)
	}
	return path, nil
}
