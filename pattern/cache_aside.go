package pattern

import (
	"context"
	"errors"

	"github.com/KOMKZ/go-yogan-cache/cache"
	"github.com/KOMKZ/go-yogan-cache/errcode"
	"github.com/KOMKZ/go-yogan-cache/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CacheAside reads through the cache and loads on miss. Concurrent misses
// on one key share a single loader call.
type CacheAside[T any] struct {
	cache  cache.Cache
	logger *logger.CtxZapLogger
	sf     singleflight.Group
}

func NewCacheAside[T any](c cache.Cache, log *logger.CtxZapLogger) *CacheAside[T] {
	if log == nil {
		log = logger.GetLogger(ModuleName)
	}
	return &CacheAside[T]{cache: c, logger: log}
}

// Get returns the cached value or the loader's result, which is then cached.
// Loader errors are returned and nothing is cached. A transient cache
// failure is handled like a miss; any other cache error skips the cache and
// calls loader directly.
func (p *CacheAside[T]) Get(ctx context.Context, key string, loader Loader[T], opts cache.Options) (T, error) {
	var zero T
	if loader == nil {
		return zero, ErrNilCallback
	}

	v, ok, err := cache.GetValue[T](ctx, p.cache, key, opts)
	switch {
	case err == nil && ok:
		return v, nil
	case errors.Is(err, cache.ErrDeserialize):
		// undecodable entry is overwritten by the load below
		p.logger.WarnCtx(ctx, "cache-aside dropped undecodable entry",
			zap.String("key", key), zap.Error(err))
	case errcode.IsTransient(err):
		// store outage reads as a miss; the set below may still land
		p.logger.WarnCtx(ctx, "cache-aside treating store failure as miss",
			zap.String("key", key), zap.Error(err))
	case err != nil:
		kind, _ := errcode.KindOf(err)
		p.logger.WarnCtx(ctx, "cache-aside bypassing cache",
			zap.String("key", key), zap.Stringer("kind", kind), zap.Error(err))
		return loader(ctx)
	}

	logical, _ := cache.LogicalKey(key, opts.Namespace)
	res, err, _ := p.sf.Do(logical, func() (any, error) {
		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if err := cache.SetValue(ctx, p.cache, key, loaded, opts); err != nil {
			p.logger.WarnCtx(ctx, "cache-aside set failed",
				zap.String("key", key), zap.Error(err))
		}
		return loaded, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}

// Invalidate evicts one key from both tiers.
func (p *CacheAside[T]) Invalidate(ctx context.Context, key, namespace string) error {
	return p.cache.Delete(ctx, key, namespace)
}

func (p *CacheAside[T]) InvalidateByTags(ctx context.Context, tags ...string) error {
	return p.cache.InvalidateByTags(ctx, tags...)
}
