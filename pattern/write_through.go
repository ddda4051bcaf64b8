package pattern

import (
	"context"

	"github.com/KOMKZ/go-yogan-cache/cache"
	"github.com/KOMKZ/go-yogan-cache/logger"
	"go.uber.org/zap"
)

// WriteThrough persists first and updates the cache only after the
// system of record accepted the change.
type WriteThrough[T any] struct {
	cache  cache.Cache
	logger *logger.CtxZapLogger
}

func NewWriteThrough[T any](c cache.Cache, log *logger.CtxZapLogger) *WriteThrough[T] {
	if log == nil {
		log = logger.GetLogger(ModuleName)
	}
	return &WriteThrough[T]{cache: c, logger: log}
}

// Write calls writer and caches the value it returns.
func (p *WriteThrough[T]) Write(ctx context.Context, key string, data T, writer Writer[T], opts cache.Options) (T, error) {
	var zero T
	if writer == nil {
		return zero, ErrNilCallback
	}
	if _, err := cache.LogicalKey(key, opts.Namespace); err != nil {
		return zero, err
	}
	if err := cache.ValidateTags(opts.Tags); err != nil {
		return zero, err
	}

	saved, err := writer(ctx, data)
	if err != nil {
		return zero, err
	}
	if err := cache.SetValue(ctx, p.cache, key, saved, opts); err != nil {
		p.logger.WarnCtx(ctx, "write-through cache update failed",
			zap.String("key", key), zap.Error(err))
	}
	return saved, nil
}

// Delete calls deleter and evicts the key once it succeeded.
func (p *WriteThrough[T]) Delete(ctx context.Context, key string, deleter Deleter, namespace string) error {
	if deleter == nil {
		return ErrNilCallback
	}
	if _, err := cache.LogicalKey(key, namespace); err != nil {
		return err
	}
	if err := deleter(ctx); err != nil {
		return err
	}
	return p.cache.Delete(ctx, key, namespace)
}

// Read is a typed cache lookup without loading.
func (p *WriteThrough[T]) Read(ctx context.Context, key string, opts cache.Options) (T, bool, error) {
	return cache.GetValue[T](ctx, p.cache, key, opts)
}
