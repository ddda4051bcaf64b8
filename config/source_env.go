package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvSource maps environment variables onto config keys.
// With bindings only the bound variables are read; without bindings every
// PREFIX_A_B variable becomes key "a.b".
type EnvSource struct {
	prefix   string
	priority int
	bindings map[string]string // config key -> env var
	lookup   func(string) (string, bool)
	environ  func() []string
}

func NewEnvSource(prefix string, priority int) *EnvSource {
	return &EnvSource{
		prefix:   prefix,
		priority: priority,
		bindings: make(map[string]string),
		lookup:   os.LookupEnv,
		environ:  os.Environ,
	}
}

// AddBinding maps key to envKey. envKey gets the prefix unless it already has it.
func (s *EnvSource) AddBinding(key, envKey string) *EnvSource {
	s.bindings[key] = envKey
	return s
}

// AddBindings registers several bindings at once.
func (s *EnvSource) AddBindings(bindings map[string]string) *EnvSource {
	for k, v := range bindings {
		s.bindings[k] = v
	}
	return s
}

func (s *EnvSource) Name() string {
	return "env:" + s.prefix
}

func (s *EnvSource) Priority() int {
	return s.priority
}

func (s *EnvSource) Load() (map[string]interface{}, error) {
	result := make(map[string]interface{})

	if len(s.bindings) > 0 {
		for key, envKey := range s.bindings {
			if value, ok := s.lookup(s.fullKey(envKey)); ok && value != "" {
				result[key] = value
			}
		}
		return result, nil
	}

	if s.prefix == "" {
		return result, nil
	}
	prefix := s.prefix + "_"
	for _, kv := range s.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, prefix))
		result[strings.ReplaceAll(key, "_", ".")] = value
	}
	return result, nil
}

func (s *EnvSource) fullKey(envKey string) string {
	if s.prefix == "" || strings.HasPrefix(envKey, s.prefix+"_") {
		return envKey
	}
	return s.prefix + "_" + envKey
}

// DotEnvSource reads a .env file with godotenv without touching the process
// environment, then applies the same bindings as EnvSource.
type DotEnvSource struct {
	path string
	env  *EnvSource
}

func NewDotEnvSource(path, prefix string, priority int) *DotEnvSource {
	return &DotEnvSource{path: path, env: NewEnvSource(prefix, priority)}
}

func (s *DotEnvSource) AddBindings(bindings map[string]string) *DotEnvSource {
	s.env.AddBindings(bindings)
	return s
}

func (s *DotEnvSource) Name() string {
	return "dotenv:" + s.path
}

func (s *DotEnvSource) Priority() int {
	return s.env.priority
}

func (s *DotEnvSource) Load() (map[string]interface{}, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return map[string]interface{}{}, nil
	}
	vars, err := godotenv.Read(s.path)
	if err != nil {
		return nil, fmt.Errorf("read dotenv file %s: %w", s.path, err)
	}

	s.env.lookup = func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
	s.env.environ = func() []string {
		out := make([]string, 0, len(vars))
		for k, v := range vars {
			out = append(out, k+"="+v)
		}
		return out
	}
	return s.env.Load()
}
