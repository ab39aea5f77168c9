// Package cache provides byte caches for fetched JSON:API documents and
// exported graphs.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry, for CLI usage
//   - [RedisCache]: shared cache for server deployments
//   - [NullCache]: disables caching
//
// # Keys
//
// A [Keyer] builds backend-independent keys. [ScopedKeyer] prefixes every key
// so that several configurations can share one backend:
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "staging:")
//	key := keyer.HTTPKey("api.example.com", "/articles?include=author")
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values with an optional TTL.
//
// Get reports a miss as (nil, false, nil); errors are reserved for backend
// failures. Implementations are safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer builds cache keys.
type Keyer interface {
	// HTTPKey keys a raw response body fetched from url within namespace.
	HTTPKey(namespace, url string) string
	// GraphKey keys an exported graph built from a document.
	GraphKey(documentHash string, opts GraphKeyOpts) string
}

// GraphKeyOpts are the materialization settings that change an export.
type GraphKeyOpts struct {
	Type           string `json:"type,omitempty"`
	SkipUndeclared bool   `json:"skip_undeclared,omitempty"`
	SchemaHash     string `json:"schema_hash,omitempty"`
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HTTPKey returns "http:<namespace>:<url>".
func (DefaultKeyer) HTTPKey(namespace, url string) string {
	return "http:" + namespace + ":" + url
}

// GraphKey returns "graph:<sha256 of hash and options>".
func (DefaultKeyer) GraphKey(documentHash string, opts GraphKeyOpts) string {
	return hashKey("graph", documentHash, opts)
}
