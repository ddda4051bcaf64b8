package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_PriorityOrder(t *testing.T) {
	loader := NewLoader()
	loader.AddSource(NewMapSource("high", 100, map[string]interface{}{"redis.url": "redis://high:6379"}))
	loader.AddSource(NewMapSource("low", 10, map[string]interface{}{
		"redis.url":        "redis://low:6379",
		"cache.key_prefix": "low:",
	}))
	require.NoError(t, loader.Load())

	assert.Equal(t, "redis://high:6379", loader.GetString("redis.url"))
	assert.Equal(t, "low:", loader.GetString("cache.key_prefix"))
	assert.True(t, loader.IsSet("cache.key_prefix"))
	assert.False(t, loader.IsSet("cache.memory_ttl"))
	assert.NotNil(t, loader.GetViper())
}

func TestFileSource(t *testing.T) {
	path := writeFile(t, "cache.yaml", `
redis:
  url: redis://file:6379/1
cache:
  memory_ttl: 2m
  max_entries: 50
`)
	data, err := NewFileSource(path, 10).Load()
	require.NoError(t, err)
	assert.Equal(t, "redis://file:6379/1", data["redis.url"])
	assert.Equal(t, "2m", data["cache.memory_ttl"])
	assert.Equal(t, 50, data["cache.max_entries"])

	missing, err := NewFileSource(filepath.Join(t.TempDir(), "nope.yaml"), 10).Load()
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestEnvSource_Bindings(t *testing.T) {
	t.Setenv("CACHE_REDIS_URL", "redis://env:6379")
	t.Setenv("CACHE_MEMORY_TTL", "")
	t.Setenv("OTHER_REDIS_URL", "redis://ignored:6379")

	data, err := NewEnvSource("CACHE", 50).AddBindings(Bindings()).Load()
	require.NoError(t, err)
	assert.Equal(t, "redis://env:6379", data["redis.url"])
	_, ok := data["cache.memory_ttl"]
	assert.False(t, ok, "empty variables are ignored")
}

func TestEnvSource_WithoutBindings(t *testing.T) {
	src := NewEnvSource("APP", 50)
	src.environ = func() []string {
		return []string{"APP_REDIS_URL=redis://x:1", "PATH=/bin", "APPX_Y=1"}
	}
	data, err := src.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"redis.url": "redis://x:1"}, data)
}

func TestDotEnvSource(t *testing.T) {
	path := writeFile(t, ".env", "CACHE_KEY_PREFIX=dot:\nCACHE_MAX_ENTRIES=7\n")

	data, err := NewDotEnvSource(path, "CACHE", 30).AddBindings(Bindings()).Load()
	require.NoError(t, err)
	assert.Equal(t, "dot:", data["cache.key_prefix"])
	assert.Equal(t, "7", data["cache.max_entries"])
	_, set := os.LookupEnv("CACHE_KEY_PREFIX")
	assert.False(t, set, "process environment untouched")

	missing, err := NewDotEnvSource(filepath.Join(t.TempDir(), ".env"), "CACHE", 30).Load()
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestLoaderBuilder_Layering(t *testing.T) {
	file := writeFile(t, "cache.yaml", "cache:\n  key_prefix: \"file:\"\n  max_entries: 1\n  memory_ttl: 1m\n")
	dotenv := writeFile(t, ".env", "CACHE_MAX_ENTRIES=2\nCACHE_MEMORY_TTL=2m\n")
	t.Setenv("CACHE_MEMORY_TTL", "3m")

	loader, err := NewLoaderBuilder().
		WithConfigFile(file).
		WithDotEnv(dotenv).
		WithOverrides(map[string]interface{}{"redis.url": "redis://override:6379"}).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "file:", loader.GetString("cache.key_prefix"))
	assert.Equal(t, "2", loader.GetString("cache.max_entries"))
	assert.Equal(t, "3m", loader.GetString("cache.memory_ttl"))
	assert.Equal(t, "redis://override:6379", loader.GetString("redis.url"))
}
