package config

// EnvPrefix is prepended to every bound variable.
const EnvPrefix = "CACHE"

// Bindings maps config keys to environment variable names (without prefix).
func Bindings() map[string]string {
	return map[string]string{
		"mode": "MODE",

		"redis.url":                    "REDIS_URL",
		"redis.connect_timeout":        "REDIS_CONNECT_TIMEOUT",
		"redis.command_timeout":        "REDIS_COMMAND_TIMEOUT",
		"redis.keep_alive":             "REDIS_KEEP_ALIVE",
		"redis.family":                 "REDIS_FAMILY",
		"redis.pool_size":              "REDIS_POOL_SIZE",
		"redis.max_retries":            "REDIS_MAX_RETRIES",
		"redis.max_reconnect_attempts": "REDIS_MAX_RECONNECT_ATTEMPTS",
		"redis.reconnect_base_delay":   "REDIS_RECONNECT_BASE_DELAY",
		"redis.reconnect_max_delay":    "REDIS_RECONNECT_MAX_DELAY",

		"cache.memory_ttl":     "MEMORY_TTL",
		"cache.remote_ttl":     "REMOTE_TTL",
		"cache.max_entries":    "MAX_ENTRIES",
		"cache.shards":         "SHARDS",
		"cache.key_prefix":     "KEY_PREFIX",
		"cache.sweep_interval": "SWEEP_INTERVAL",

		"patterns.write_behind.flush_interval": "WRITE_BEHIND_FLUSH_INTERVAL",
		"patterns.write_behind.flush_workers":  "WRITE_BEHIND_FLUSH_WORKERS",
		"patterns.refresh_ahead.threshold":     "REFRESH_AHEAD_THRESHOLD",
		"patterns.refresh_ahead.workers":       "REFRESH_AHEAD_WORKERS",

		"monitor.interval":             "MONITOR_INTERVAL",
		"monitor.history_size":         "MONITOR_HISTORY_SIZE",
		"monitor.alert_history_size":   "MONITOR_ALERT_HISTORY_SIZE",
		"monitor.response_window":      "MONITOR_RESPONSE_WINDOW",
		"monitor.slow_query_threshold": "MONITOR_SLOW_QUERY_THRESHOLD",

		"monitor.alerts.min_hit_rate":       "ALERT_MIN_HIT_RATE",
		"monitor.alerts.max_error_rate":     "ALERT_MAX_ERROR_RATE",
		"monitor.alerts.max_avg_response":   "ALERT_MAX_AVG_RESPONSE",
		"monitor.alerts.max_remote_memory":  "ALERT_MAX_REMOTE_MEMORY",
		"monitor.alerts.max_slow_queries":   "ALERT_MAX_SLOW_QUERIES",
		"monitor.alerts.skip_idle_hit_rate": "ALERT_SKIP_IDLE_HIT_RATE",

		"logger.level":          "LOG_LEVEL",
		"logger.encoding":       "LOG_ENCODING",
		"logger.base_log_dir":   "LOG_DIR",
		"logger.enable_file":    "LOG_ENABLE_FILE",
		"logger.enable_console": "LOG_ENABLE_CONSOLE",

		"telemetry.enabled":           "TELEMETRY_ENABLED",
		"telemetry.service_name":      "TELEMETRY_SERVICE_NAME",
		"telemetry.tracing":           "TELEMETRY_TRACING",
		"telemetry.export_interval":   "TELEMETRY_EXPORT_INTERVAL",
		"telemetry.exporter.type":     "TELEMETRY_EXPORTER",
		"telemetry.exporter.endpoint": "TELEMETRY_ENDPOINT",
		"telemetry.exporter.insecure": "TELEMETRY_INSECURE",
	}
}
