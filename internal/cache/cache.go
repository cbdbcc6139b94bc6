// Package cache stores parsed external stats dumps so repeated ingestion
// runs against the same dump files skip the multi-hundred-MB reparse. Keys
// fingerprint the source file, so an updated dump naturally misses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// Cache is a byte-value cache with per-entry TTL.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// FileKey derives a cache key from a file's identity: path, size and
// modification time. Any change to the file yields a different key.
func FileKey(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	id := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	hash := sha256.Sum256([]byte(id))
	return "kbmetrics:v1:" + hex.EncodeToString(hash[:]), nil
}
