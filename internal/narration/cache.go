package narration

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// CachedAudio is the sidecar metadata written next to each cached mp3.
type CachedAudio struct {
	Key       string    `json:"key"`
	FilePath  string    `json:"file_path"`
	Text      string    `json:"text"`
	Voice     string    `json:"voice"`
	Speed     float64   `json:"speed"`
	FileSize  int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
}

// Cache is an md5-keyed disk cache of rendered narration. Page text rarely
// changes, so hits are the common case on re-reads.
type Cache struct {
	dir     string
	entries map[string]*CachedAudio
	mu      sync.RWMutex
}

// NewCache creates a cache rooted at dir.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir, entries: make(map[string]*CachedAudio)}
}

// Initialize creates the cache directory and reloads the index from the
// .meta sidecars of any earlier run.
func (c *Cache) Initialize() error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create audio cache directory: %w", err)
	}

	files, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to read audio cache directory: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".meta") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(c.dir, f.Name()))
		if err != nil {
			continue
		}
		var entry CachedAudio
		if err := json.Unmarshal(data, &entry); err != nil || entry.Key == "" {
			continue
		}
		if _, err := os.Stat(entry.FilePath); err != nil {
			continue
		}
		c.entries[entry.Key] = &entry
	}
	return nil
}

// CacheKey derives the cache key for one narration request.
func CacheKey(text, voice string, speed float64) string {
	data := fmt.Sprintf("%s|%s|%.2f", text, voice, speed)
	hash := md5.Sum([]byte(data))
	return hex.EncodeToString(hash[:])
}

// Get returns the on-disk path for a key, when cached.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	return entry.FilePath, true
}

// Put writes the audio and its sidecar, then indexes it.
func (c *Cache) Put(key string, data []byte, text, voice string, speed float64) (string, error) {
	path := filepath.Join(c.dir, key+".mp3")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}

	entry := &CachedAudio{
		Key:       key,
		FilePath:  path,
		Text:      text,
		Voice:     voice,
		Speed:     speed,
		FileSize:  int64(len(data)),
		CreatedAt: time.Now(),
	}
	meta, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal audio metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta", meta, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio metadata: %w", err)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return path, nil
}

// Size returns the number of cached narrations.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
