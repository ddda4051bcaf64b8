package pattern

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-cache/cache"
	"github.com/KOMKZ/go-yogan-cache/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func newTestRefreshAhead(t *testing.T, c cache.Cache, log *logger.CtxZapLogger) *RefreshAhead[product] {
	t.Helper()
	if log == nil {
		log = logger.NewNop()
	}
	ra, err := NewRefreshAhead[product](c, RefreshAheadConfig{Threshold: 0.8, Workers: 2}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ra.Shutdown(context.Background()) })
	return ra
}

// countingLoader returns a product whose Stock is the call number.
func countingLoader(calls *atomic.Int32) Loader[product] {
	return func(ctx context.Context) (product, error) {
		n := calls.Add(1)
		return product{ID: 1, Stock: int(n)}, nil
	}
}

func TestRefreshAhead_MissLoadsAndSchedules(t *testing.T) {
	c := newTestCache(t)
	ra := newTestRefreshAhead(t, c, nil)
	ctx := context.Background()

	var calls atomic.Int32
	got, err := ra.Get(ctx, "1", countingLoader(&calls), cache.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
	assert.True(t, ra.IsScheduled("1", ""))
	assert.Equal(t, 1, ra.Scheduled())

	got, err = ra.Get(ctx, "1", countingLoader(&calls), cache.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, ra.Scheduled())
}

func TestRefreshAhead_RefreshesBeforeExpiry(t *testing.T) {
	c := newTestCache(t)
	ra := newTestRefreshAhead(t, c, nil)
	ctx := context.Background()
	opts := cache.Options{MemoryTTL: 50 * time.Millisecond}

	assert.InDelta(t, float64(40*time.Millisecond), float64(ra.Delay(opts)), float64(time.Microsecond))

	var calls atomic.Int32
	_, err := ra.Get(ctx, "1", countingLoader(&calls), opts)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return calls.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	// the cached value comes from a background refresh
	assert.Eventually(t, func() bool {
		v, ok, err := cache.GetValue[product](ctx, c, "1", opts)
		return err == nil && ok && v.Stock >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRefreshAhead_CancelRefresh(t *testing.T) {
	ra := newTestRefreshAhead(t, newTestCache(t), nil)
	ctx := context.Background()
	opts := cache.Options{MemoryTTL: 30 * time.Millisecond, Namespace: "products"}

	var calls atomic.Int32
	_, err := ra.Get(ctx, "1", countingLoader(&calls), opts)
	require.NoError(t, err)

	ra.CancelRefresh("1", "products")
	assert.False(t, ra.IsScheduled("1", "products"))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0, ra.Scheduled())
}

func TestRefreshAhead_LoaderFailureIsRetried(t *testing.T) {
	log, logs := logger.NewObserved("pattern", zapcore.WarnLevel)
	ra := newTestRefreshAhead(t, newTestCache(t), log)
	ctx := context.Background()
	opts := cache.Options{MemoryTTL: 20 * time.Millisecond}

	var calls atomic.Int32
	loader := func(ctx context.Context) (product, error) {
		if calls.Add(1) == 1 {
			return product{ID: 1}, nil
		}
		return product{}, errors.New("upstream unavailable")
	}

	_, err := ra.Get(ctx, "1", loader, opts)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return calls.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, ra.IsScheduled("1", ""))
	assert.GreaterOrEqual(t, logs.FilterMessage("refresh-ahead loader failed").Len(), 1)
}

func TestRefreshAhead_SynchronousLoaderError(t *testing.T) {
	ra := newTestRefreshAhead(t, newTestCache(t), nil)

	boom := errors.New("not found")
	_, err := ra.Get(context.Background(), "1", func(ctx context.Context) (product, error) {
		return product{}, boom
	}, cache.Options{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, ra.Scheduled())
}

func TestRefreshAhead_Shutdown(t *testing.T) {
	c := newTestCache(t)
	ra, err := NewRefreshAhead[product](c, RefreshAheadConfig{}, logger.NewNop())
	require.NoError(t, err)
	ctx := context.Background()
	opts := cache.Options{MemoryTTL: 30 * time.Millisecond}

	var calls atomic.Int32
	for _, k := range []string{"a", "b", "c"} {
		_, err := ra.Get(ctx, k, countingLoader(&calls), opts)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, ra.Scheduled())

	require.NoError(t, ra.Shutdown(ctx))
	assert.Equal(t, 0, ra.Scheduled())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())

	// reads keep working without scheduling
	_, err = ra.Get(ctx, "d", countingLoader(&calls), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, ra.Scheduled())
	assert.NoError(t, ra.Shutdown(ctx))
}

func TestRefreshAhead_InvalidInput(t *testing.T) {
	ra := newTestRefreshAhead(t, newTestCache(t), nil)
	ctx := context.Background()

	_, err := ra.Get(ctx, "k", nil, cache.Options{})
	assert.ErrorIs(t, err, ErrNilCallback)

	var calls atomic.Int32
	_, err = ra.Get(ctx, "", countingLoader(&calls), cache.Options{})
	assert.ErrorIs(t, err, cache.ErrInvalidKey)
	assert.Equal(t, int32(0), calls.Load())

	_, err = NewRefreshAhead[product](newTestCache(t), RefreshAheadConfig{Threshold: 1.5}, logger.NewNop())
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Second, cfg.WriteBehind.FlushInterval)
	assert.Equal(t, 16, cfg.WriteBehind.FlushWorkers)
	assert.Equal(t, 0.8, cfg.RefreshAhead.Threshold)
	assert.Equal(t, 8, cfg.RefreshAhead.Workers)
}
