package pattern

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-cache/cache"
	"github.com/KOMKZ/go-yogan-cache/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheAside_MissThenHit(t *testing.T) {
	c := newTestCache(t)
	p := NewCacheAside[product](c, logger.NewNop())
	ctx := context.Background()

	var calls atomic.Int32
	loader := func(ctx context.Context) (product, error) {
		calls.Add(1)
		return product{ID: 1, Name: "lamp"}, nil
	}

	got, err := p.Get(ctx, "1", loader, cache.Options{Namespace: "products"})
	require.NoError(t, err)
	assert.Equal(t, "lamp", got.Name)

	got, err = p.Get(ctx, "1", loader, cache.Options{Namespace: "products"})
	require.NoError(t, err)
	assert.Equal(t, "lamp", got.Name)
	assert.Equal(t, int32(1), calls.Load())

	cached, ok, err := cache.GetValue[product](ctx, c, "1", cache.Options{Namespace: "products"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, cached.ID)
}

func TestCacheAside_LoaderErrorPropagates(t *testing.T) {
	c := newTestCache(t)
	p := NewCacheAside[product](c, logger.NewNop())
	ctx := context.Background()

	boom := errors.New("db down")
	_, err := p.Get(ctx, "k", func(ctx context.Context) (product, error) {
		return product{}, boom
	}, cache.Options{})
	assert.ErrorIs(t, err, boom)

	_, ok, err := c.Get(ctx, "k", cache.Options{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheAside_ConcurrentMissesShareOneLoad(t *testing.T) {
	c := newTestCache(t)
	p := NewCacheAside[product](c, logger.NewNop())
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	loader := func(ctx context.Context) (product, error) {
		calls.Add(1)
		<-release
		return product{ID: 9}, nil
	}

	var wg sync.WaitGroup
	results := make([]product, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := p.Get(ctx, "hot", loader, cache.Options{})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	// let every goroutine reach the singleflight barrier
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, 9, r.ID)
	}
}

func TestCacheAside_InvalidKeyFallsBackToLoader(t *testing.T) {
	c := newTestCache(t)
	p := NewCacheAside[product](c, logger.NewNop())

	got, err := p.Get(context.Background(), "", func(ctx context.Context) (product, error) {
		return product{ID: 3}, nil
	}, cache.Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, got.ID)
	assert.Equal(t, int64(0), c.Stats().Sets)
}

// failingGetCache fails every Get with err and passes everything else through.
type failingGetCache struct {
	cache.Cache
	err error
}

func (f *failingGetCache) Get(ctx context.Context, key string, opts cache.Options) ([]byte, bool, error) {
	return nil, false, f.err
}

func TestCacheAside_TransientGetFailureLoadsAndCaches(t *testing.T) {
	inner := newTestCache(t)
	c := &failingGetCache{Cache: inner, err: cache.ErrStoreGet.Wrap(errors.New("connection reset"))}
	p := NewCacheAside[product](c, logger.NewNop())
	ctx := context.Background()

	got, err := p.Get(ctx, "k", func(ctx context.Context) (product, error) {
		return product{ID: 5}, nil
	}, cache.Options{})
	require.NoError(t, err)
	assert.Equal(t, 5, got.ID)

	cached, ok, err := cache.GetValue[product](ctx, inner, "k", cache.Options{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, cached.ID)
}

func TestCacheAside_UndecodableEntryIsReloaded(t *testing.T) {
	c := newTestCache(t)
	p := NewCacheAside[product](c, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("not-json"), cache.Options{}))

	got, err := p.Get(ctx, "k", func(ctx context.Context) (product, error) {
		return product{ID: 4}, nil
	}, cache.Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, got.ID)

	cached, ok, err := cache.GetValue[product](ctx, c, "k", cache.Options{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, cached.ID)
}

func TestCacheAside_NilLoader(t *testing.T) {
	p := NewCacheAside[product](newTestCache(t), logger.NewNop())
	_, err := p.Get(context.Background(), "k", nil, cache.Options{})
	assert.ErrorIs(t, err, ErrNilCallback)
}

func TestCacheAside_Invalidate(t *testing.T) {
	c := newTestCache(t)
	p := NewCacheAside[product](c, logger.NewNop())
	ctx := context.Background()

	var calls atomic.Int32
	loader := func(ctx context.Context) (product, error) {
		calls.Add(1)
		return product{ID: int(calls.Load())}, nil
	}
	opts := cache.Options{Namespace: "products", Tags: []string{"catalog"}}

	_, err := p.Get(ctx, "1", loader, opts)
	require.NoError(t, err)
	require.NoError(t, p.Invalidate(ctx, "1", "products"))

	got, err := p.Get(ctx, "1", loader, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ID)

	require.NoError(t, p.InvalidateByTags(ctx, "catalog"))
	got, err = p.Get(ctx, "1", loader, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ID)
}
