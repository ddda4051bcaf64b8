package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_Defaults(t *testing.T) {
	loader, err := NewLoaderBuilder().WithEnvPrefix("").Build()
	require.NoError(t, err)

	s, err := LoadSettings(loader)
	require.NoError(t, err)

	assert.Equal(t, ModeTiered, s.Mode)
	assert.True(t, s.RemoteEnabled())
	assert.Equal(t, "redis://localhost:6379/0", s.Redis.URL)
	assert.Equal(t, 10*time.Second, s.Redis.ConnectTimeout)
	assert.Equal(t, 5*time.Minute, s.Cache.MemoryTTL)
	assert.Equal(t, 10*time.Minute, s.Cache.RemoteTTL)
	assert.Equal(t, 10000, s.Cache.MaxEntries)
	assert.Equal(t, "cache:", s.Cache.KeyPrefix)
	assert.Equal(t, 5*time.Second, s.Patterns.WriteBehind.FlushInterval)
	assert.InDelta(t, 0.8, s.Patterns.RefreshAhead.Threshold, 1e-9)
	assert.Equal(t, 30*time.Second, s.Monitor.Interval)
	assert.Equal(t, "info", s.Logger.Level)
}

func TestLoadSettings_FromEnvironment(t *testing.T) {
	t.Setenv("CACHE_REDIS_URL", "redis://cache-1:6380/2")
	t.Setenv("CACHE_REDIS_MAX_RETRIES", "-1")
	t.Setenv("CACHE_MEMORY_TTL", "90s")
	t.Setenv("CACHE_MAX_ENTRIES", "500")
	t.Setenv("CACHE_REFRESH_AHEAD_THRESHOLD", "0.5")
	t.Setenv("CACHE_MONITOR_SLOW_QUERY_THRESHOLD", "250ms")
	t.Setenv("CACHE_ALERT_MIN_HIT_RATE", "0.6")
	t.Setenv("CACHE_ALERT_SKIP_IDLE_HIT_RATE", "true")
	t.Setenv("CACHE_LOG_LEVEL", "debug")
	t.Setenv("CACHE_TELEMETRY_ENABLED", "true")
	t.Setenv("CACHE_TELEMETRY_EXPORTER", "otlp")
	t.Setenv("CACHE_TELEMETRY_ENDPOINT", "collector:4317")

	s, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "redis://cache-1:6380/2", s.Redis.URL)
	assert.Equal(t, -1, s.Redis.MaxRetries)
	assert.Equal(t, 90*time.Second, s.Cache.MemoryTTL)
	assert.Equal(t, 3*time.Minute, s.Cache.RemoteTTL)
	assert.Equal(t, 500, s.Cache.MaxEntries)
	assert.InDelta(t, 0.5, s.Patterns.RefreshAhead.Threshold, 1e-9)
	assert.Equal(t, 250*time.Millisecond, s.Monitor.SlowQueryThreshold)
	assert.InDelta(t, 0.6, s.Monitor.Alerts.MinHitRate, 1e-9)
	assert.True(t, s.Monitor.Alerts.SkipIdleHitRate)
	assert.Equal(t, "debug", s.Logger.Level)
	assert.True(t, s.Telemetry.Enabled)
	assert.Equal(t, "otlp", s.Telemetry.Exporter.Type)
	assert.Equal(t, "collector:4317", s.Telemetry.Exporter.Endpoint)
	assert.Equal(t, "go-yogan-cache", s.Telemetry.ServiceName)
}

func TestLoadSettings_MemoryModeSkipsRedis(t *testing.T) {
	loader, err := NewLoaderBuilder().WithEnvPrefix("").WithOverrides(map[string]interface{}{
		"mode":      ModeMemory,
		"redis.url": "not a url",
	}).Build()
	require.NoError(t, err)

	s, err := LoadSettings(loader)
	require.NoError(t, err)
	assert.False(t, s.RemoteEnabled())
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]interface{}
	}{
		{name: "unknown mode", overrides: map[string]interface{}{"mode": "disk"}},
		{name: "bad redis url", overrides: map[string]interface{}{"redis.url": "http://x"}},
		{name: "negative entries", overrides: map[string]interface{}{"cache.max_entries": -5}},
		{name: "threshold out of range", overrides: map[string]interface{}{"patterns.refresh_ahead.threshold": 1.5}},
		{name: "alert rate out of range", overrides: map[string]interface{}{"monitor.alerts.max_error_rate": 3}},
		{name: "log level", overrides: map[string]interface{}{"logger.level": "loud"}},
		{name: "otlp without endpoint", overrides: map[string]interface{}{
			"telemetry.enabled":       true,
			"telemetry.exporter.type": "otlp",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader, err := NewLoaderBuilder().WithEnvPrefix("").WithOverrides(tt.overrides).Build()
			require.NoError(t, err)
			_, err = LoadSettings(loader)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadSettings_DecodeError(t *testing.T) {
	loader, err := NewLoaderBuilder().WithEnvPrefix("").WithOverrides(map[string]interface{}{
		"cache.memory_ttl": "soon",
	}).Build()
	require.NoError(t, err)

	_, err = LoadSettings(loader)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestLoad_SampleConfig(t *testing.T) {
	s, err := Load("../configs/cache.yaml", "")
	require.NoError(t, err)

	assert.Equal(t, ModeTiered, s.Mode)
	assert.Equal(t, "cache:", s.Cache.KeyPrefix)
	assert.Equal(t, 500*1024*1024, int(s.Monitor.Alerts.MaxRemoteMemory))
	assert.False(t, s.Telemetry.Enabled)
	assert.Contains(t, s.Telemetry.ResourceAttrs, "deployment")
}
