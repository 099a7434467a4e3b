package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// FileCache stores entries under a directory on disk. Model archives run
// to tens of megabytes, so the payload is written as a raw file with a
// small JSON sidecar carrying the expiration instead of wrapping the
// bytes in JSON.
type FileCache struct {
	dir string
}

// NewFileCache creates a file-based cache rooted at dir.
// The directory is created if it doesn't exist.
func NewFileCache(dir string) (Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// entryMeta is the sidecar written next to each payload.
type entryMeta struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// Get retrieves a value from the cache.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, meta := c.paths(key)

	raw, err := os.ReadFile(meta)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var m entryMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		// Corrupt sidecar - treat as miss
		c.evict(key)
		return nil, false, nil
	}
	if !m.ExpiresAt.IsZero() && time.Now().After(m.ExpiresAt) {
		c.evict(key)
		return nil, false, nil
	}

	data, err := os.ReadFile(payload)
	if os.IsNotExist(err) {
		c.evict(key)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value in the cache. A zero ttl means the entry never
// expires.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	payload, meta := c.paths(key)
	if err := os.MkdirAll(filepath.Dir(payload), 0755); err != nil {
		return err
	}

	m := entryMeta{}
	if ttl > 0 {
		m.ExpiresAt = time.Now().Add(ttl)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}

	// Payload first so a crash between the two writes leaves no entry
	// that Get would consider live.
	if err := os.WriteFile(payload, data, 0644); err != nil {
		return err
	}
	return os.WriteFile(meta, raw, 0644)
}

// Delete removes a value from the cache.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	c.evict(key)
	return nil
}

// Close does nothing for file cache.
func (c *FileCache) Close() error {
	return nil
}

// evict removes both files of an entry, ignoring absence.
func (c *FileCache) evict(key string) {
	payload, meta := c.paths(key)
	_ = os.Remove(meta)
	_ = os.Remove(payload)
}

// paths converts a cache key to payload and sidecar file paths.
// The first 2 hash chars form a subdirectory to spread entries out.
func (c *FileCache) paths(key string) (payload, meta string) {
	hash := Hash([]byte(key))
	base := filepath.Join(c.dir, hash[:2], hash[2:])
	return base + ".bin", base + ".meta.json"
}

// Ensure FileCache implements Cache.
var _ Cache = (*FileCache)(nil)
