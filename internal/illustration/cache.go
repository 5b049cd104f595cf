package illustration

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

	"go.uber.org/atomic"
)

// CachedImage is the sidecar metadata written next to each cached png.
type CachedImage struct {
	Key          string    `json:"key"`
	FilePath     string    `json:"file_path"`
	Prompt       string    `json:"prompt"`
	Style        string    `json:"style"`
	ColoringPage bool      `json:"coloring_page"`
	FileSize     int64     `json:"file_size"`
	CreatedAt    time.Time `json:"created_at"`
}

// Cache is an md5-keyed disk cache of rendered illustrations. Every image
// lands as {key}.png with a {key}.png.meta sidecar so the index survives
// restarts.
type Cache struct {
	dir     string
	entries map[string]*CachedImage
	mu      sync.RWMutex

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a cache rooted at dir.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir, entries: make(map[string]*CachedImage)}
}

// Initialize creates the cache directory and reloads the index from the
// .meta sidecars of any earlier run.
func (c *Cache) Initialize() error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	files, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
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
		var entry CachedImage
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

// CacheKey derives the cache key for one rendered prompt.
func CacheKey(prompt, style string, coloringPage bool) string {
	data := fmt.Sprintf("%s|%s|%t", prompt, style, coloringPage)
	hash := md5.Sum([]byte(data))
	return hex.EncodeToString(hash[:])
}

// Get returns the on-disk path for a key, when cached.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.misses.Inc()
		return "", false
	}
	c.hits.Inc()
	return entry.FilePath, true
}

// Put writes the image and its sidecar, then indexes it.
func (c *Cache) Put(key string, data []byte, prompt, style string, coloringPage bool) (string, error) {
	path := filepath.Join(c.dir, key+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	entry := &CachedImage{
		Key:          key,
		FilePath:     path,
		Prompt:       prompt,
		Style:        style,
		ColoringPage: coloringPage,
		FileSize:     int64(len(data)),
		CreatedAt:    time.Now(),
	}
	meta, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta", meta, 0o644); err != nil {
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return path, nil
}

// Stats returns hit/miss counters and the live entry count.
func (c *Cache) Stats() (hits, misses int64, entries int) {
	c.mu.RLock()
	entries = len(c.entries)
	c.mu.RUnlock()
	return c.hits.Load(), c.misses.Load(), entries
}
