// Package cache implements a two-tier cache: a sharded in-process memory
// tier in front of a shared Redis tier, with namespaces, tag invalidation
// and hit/miss statistics.
package cache

import (
	"context"
	"time"
)

// Item is a stored value with the tags it was written with.
type Item struct {
	Value []byte
	Tags  []string
}

// Store is one cache tier. Get returns ErrCacheMiss when the key is absent.
type Store interface {
	Name() string
	Get(ctx context.Context, key string) (Item, error)
	// Set stores value under key; ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error
	Delete(ctx context.Context, key string) error
	// InvalidateTags removes every key carrying any of tags and reports how many were removed.
	InvalidateTags(ctx context.Context, tags []string) (int, error)
	Exists(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error
	Close() error
}

// RemoteStore is a tier that can be temporarily unreachable.
type RemoteStore interface {
	Store
	Available() bool
}

// Serializer converts typed values to the bytes stored in the tiers.
type Serializer interface {
	Serialize(v any) ([]byte, error)
	Deserialize(data []byte, v any) error
	Name() string
}

// Cache is the surface the consistency patterns build on.
type Cache interface {
	Get(ctx context.Context, key string, opts Options) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, opts Options) error
	Delete(ctx context.Context, key, namespace string) error
	InvalidateByTags(ctx context.Context, tags ...string) error
	// TTL resolves the memory tier TTL that Set would use for opts.
	TTL(opts Options) time.Duration
	Serializer() Serializer
}
