package pattern

import (
	"context"
	"errors"
	"testing"

	"github.com/KOMKZ/go-yogan-cache/cache"
	"github.com/KOMKZ/go-yogan-cache/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThrough_WriterFirstThenCache(t *testing.T) {
	c := newTestCache(t)
	p := NewWriteThrough[product](c, logger.NewNop())
	ctx := context.Background()

	var seenCached bool
	writer := func(ctx context.Context, in product) (product, error) {
		_, seenCached, _ = c.Get(ctx, "1", cache.Options{})
		in.Stock = 42
		return in, nil
	}

	saved, err := p.Write(ctx, "1", product{ID: 1}, writer, cache.Options{})
	require.NoError(t, err)
	assert.False(t, seenCached, "cache must be updated after the writer")
	assert.Equal(t, 42, saved.Stock)

	got, ok, err := p.Read(ctx, "1", cache.Options{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, got.Stock)
}

func TestWriteThrough_WriterErrorLeavesCache(t *testing.T) {
	c := newTestCache(t)
	p := NewWriteThrough[product](c, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, cache.SetValue(ctx, c, "1", product{ID: 1, Stock: 5}, cache.Options{}))

	boom := errors.New("constraint violation")
	_, err := p.Write(ctx, "1", product{ID: 1, Stock: 6}, func(ctx context.Context, in product) (product, error) {
		return product{}, boom
	}, cache.Options{})
	assert.ErrorIs(t, err, boom)

	got, ok, err := p.Read(ctx, "1", cache.Options{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, got.Stock)
}

func TestWriteThrough_Delete(t *testing.T) {
	c := newTestCache(t)
	p := NewWriteThrough[product](c, logger.NewNop())
	ctx := context.Background()
	opts := cache.Options{Namespace: "products"}

	require.NoError(t, cache.SetValue(ctx, c, "1", product{ID: 1}, opts))

	boom := errors.New("fk violation")
	err := p.Delete(ctx, "1", func(ctx context.Context) error { return boom }, "products")
	assert.ErrorIs(t, err, boom)
	_, ok, _ := p.Read(ctx, "1", opts)
	assert.True(t, ok)

	require.NoError(t, p.Delete(ctx, "1", func(ctx context.Context) error { return nil }, "products"))
	_, ok, _ = p.Read(ctx, "1", opts)
	assert.False(t, ok)
}

func TestWriteThrough_InvalidInputSkipsWriter(t *testing.T) {
	p := NewWriteThrough[product](newTestCache(t), logger.NewNop())
	ctx := context.Background()

	called := false
	writer := func(ctx context.Context, in product) (product, error) {
		called = true
		return in, nil
	}

	_, err := p.Write(ctx, "", product{}, writer, cache.Options{})
	assert.ErrorIs(t, err, cache.ErrInvalidKey)
	_, err = p.Write(ctx, "k", product{}, writer, cache.Options{Tags: []string{""}})
	assert.ErrorIs(t, err, cache.ErrInvalidTag)
	assert.False(t, called)

	_, err = p.Write(ctx, "k", product{}, nil, cache.Options{})
	assert.ErrorIs(t, err, ErrNilCallback)
	assert.ErrorIs(t, p.Delete(ctx, "k", nil, ""), ErrNilCallback)
}
