package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface every pipeline stage caches through.
// Writes are idempotent upserts keyed by deterministic hashes, so concurrent
// writers for the same key produce redundant identical entries, not corruption.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Cache key categories. Each category carries its own TTL (see CacheConfig).
const (
	CategorySearch    = "search"
	CategoryClaims    = "claims"
	CategoryEmbedding = "embed"
	CategoryNLI       = "nli"
	CategoryResult    = "result"
	CategoryFactCheck = "factcheck"
)

// Key builds a deterministic composite cache key from a category and the
// content parts that identify the unit of work.
func Key(category string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return "verdex:v1:" + category + ":" + hex.EncodeToString(hash[:])
}

// ContentHash returns the hex SHA-256 of normalized text. Used both for
// evidence dedup and as a cache key component.
func ContentHash(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])
}
