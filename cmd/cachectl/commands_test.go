package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KOMKZ/go-yogan-cache/cache"
	"github.com/KOMKZ/go-yogan-cache/config"
	"github.com/KOMKZ/go-yogan-cache/di"
	"github.com/KOMKZ/go-yogan-cache/logger"
	"github.com/KOMKZ/go-yogan-cache/redis"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	stackOptions = func() []di.StackOption {
		return []di.StackOption{di.WithLoggerManager(logger.NewManager(logger.ManagerConfig{}))}
	}
}

type fixture struct {
	mr     *miniredis.Miniredis
	config string
	dotenv string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	cfg := filepath.Join(dir, "cache.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(
		"redis:\n  url: redis://"+mr.Addr()+"\n  max_retries: -1\ncache:\n  key_prefix: \"ctl:\"\n"), 0o600))
	return &fixture{mr: mr, config: cfg, dotenv: filepath.Join(dir, ".env")}
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--config", f.config, "--env-file", f.dotenv))
	err := root.Execute()
	return out.String(), err
}

// seed writes tagged entries through a separate stack sharing the same redis.
func (f *fixture) seed(t *testing.T) {
	t.Helper()
	stack, err := di.NewStack(config.Settings{
		Redis: redis.Config{URL: "redis://" + f.mr.Addr()},
		Cache: cache.Config{KeyPrefix: "ctl:"},
	}, stackOptions()...)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, stack.Start(ctx, true))
	defer stack.Shutdown(ctx)

	mgr := stack.Cache()
	require.NoError(t, cache.SetValue(ctx, mgr, "a", 1, cache.Options{}.WithTags("red")))
	require.NoError(t, cache.SetValue(ctx, mgr, "b", 2, cache.Options{}.WithTags("blue")))
	require.NoError(t, cache.SetValue(ctx, mgr, "c", 3, cache.Options{Namespace: "ns"}))
}

func TestHealthCommand(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, "health")
	require.NoError(t, err)

	var resp struct {
		Status string                     `json:"status"`
		Checks map[string]json.RawMessage `json:"checks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Contains(t, resp.Checks, "redis")
	assert.Contains(t, resp.Checks, "cache")
}

func TestHealthCommand_RedisDown(t *testing.T) {
	f := newFixture(t)
	f.mr.Close()

	out, err := f.run(t, "health")
	assert.Error(t, err)
	assert.Contains(t, out, `"unhealthy"`)
}

func TestStatsCommand(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	out, err := f.run(t, "stats")
	require.NoError(t, err)

	var report struct {
		Stats  cache.Stats `json:"stats"`
		Sample struct {
			Remote struct {
				Connected bool  `json:"connected"`
				Keys      int64 `json:"keys"`
			} `json:"remote"`
		} `json:"sample"`
		Health string `json:"health"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Sample.Remote.Connected)
	assert.GreaterOrEqual(t, report.Sample.Remote.Keys, int64(3))
	assert.Equal(t, "healthy", report.Health)
}

func TestInvalidateCommand(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	out, err := f.run(t, "invalidate", "--tags", "red")
	require.NoError(t, err)
	assert.Contains(t, out, "invalidated tags [red]")
	assert.False(t, f.mr.Exists("ctl:a"))
	assert.True(t, f.mr.Exists("ctl:b"))

	_, err = f.run(t, "invalidate")
	assert.Error(t, err, "tags are required")
}

func TestDeleteCommand(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	out, err := f.run(t, "delete", "--key", "c", "--namespace", "ns")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted c")
	assert.False(t, f.mr.Exists("ctl:ns:c"))
	assert.True(t, f.mr.Exists("ctl:a"))
}

func TestClearCommand(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	f.mr.Set("other:key", "kept")

	_, err := f.run(t, "clear")
	require.NoError(t, err)
	for _, k := range f.mr.Keys() {
		assert.NotContains(t, k, "ctl:")
	}
	assert.True(t, f.mr.Exists("other:key"))
}

func TestRunCommand_StopsWithContext(t *testing.T) {
	f := newFixture(t)
	root := newRootCmd()
	root.SetArgs([]string{"run", "--require-remote", "--stop-timeout", "2s",
		"--config", f.config, "--env-file", f.dotenv})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, root.ExecuteContext(ctx))
}

func TestRunCommand_RequireRemoteFails(t *testing.T) {
	f := newFixture(t)
	f.mr.Close()

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--require-remote", "--config", f.config, "--env-file", f.dotenv})
	assert.ErrorIs(t, root.Execute(), redis.ErrConnect)
}
