package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ArchiveKey builds the cache key for a model archive fetched from url.
// Hashing the URL keeps keys filesystem and Redis safe regardless of the
// characters the zoo URL contains.
func ArchiveKey(url string) string {
	return "archive:" + Hash([]byte(url))
}
