package cache

import "context"

// GetValue reads key and decodes it into T with the cache's serializer.
// A value that fails to decode is reported as an error, not a miss.
func GetValue[T any](ctx context.Context, c Cache, key string, opts Options) (T, bool, error) {
	var zero T
	data, ok, err := c.Get(ctx, key, opts)
	if err != nil || !ok {
		return zero, false, err
	}

	var v T
	if err := c.Serializer().Deserialize(data, &v); err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// SetValue encodes v with the cache's serializer and stores it.
func SetValue[T any](ctx context.Context, c Cache, key string, v T, opts Options) error {
	data, err := c.Serializer().Serialize(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, opts)
}
