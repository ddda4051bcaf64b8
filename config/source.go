// Package config loads cache settings from layered sources (YAML file, .env
// file, environment variables) merged by priority through viper.
package config

// ConfigSource is one layer of configuration.
// Suggested priorities: defaults 1, file 10, .env 30, environment 50, overrides 100.
type ConfigSource interface {
	Name() string
	Priority() int
	// Load returns dot-separated keys, e.g. "redis.connect_timeout".
	Load() (map[string]interface{}, error)
}

// MapSource serves a fixed map. Useful for programmatic overrides and tests.
type MapSource struct {
	name     string
	priority int
	data     map[string]interface{}
}

// NewMapSource copies data into a new source.
func NewMapSource(name string, priority int, data map[string]interface{}) *MapSource {
	cp := make(map[string]interface{}, len(data))
	for k, v := range data {
		cp[k] = v
	}
	return &MapSource{name: name, priority: priority, data: cp}
}

func (s *MapSource) Name() string {
	return "map:" + s.name
}

func (s *MapSource) Priority() int {
	return s.priority
}

func (s *MapSource) Load() (map[string]interface{}, error) {
	cp := make(map[string]interface{}, len(s.data))
	for k, v := range s.data {
		cp[k] = v
	}
	return cp, nil
}
