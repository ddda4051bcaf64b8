// Package pattern layers cache consistency strategies over a cache.Cache:
// cache-aside, write-through, write-behind and refresh-ahead.
package pattern

import "context"

// Loader fetches a value from the system of record.
type Loader[T any] func(ctx context.Context) (T, error)

// Writer persists a value and returns what was stored.
type Writer[T any] func(ctx context.Context, data T) (T, error)

// Deleter removes a value from the system of record.
type Deleter func(ctx context.Context) error
