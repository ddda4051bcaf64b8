package errcode

import (
	"testing"
)

func TestRegistry_Register(t *testing.T) {
	registry := &Registry{codes: make(map[int]string)}

	registry.Register(New(70, 1, "cache", "cache.invalid_key", "invalid cache key"))
	registry.Register(New(71, 1, "redis", "redis.connect", "connect failed"))

	if registry.Count() != 2 {
		t.Errorf("expected 2 registered codes, got %d", registry.Count())
	}

	codes := registry.GetAll()
	if codes[700001] != "cache:cache.invalid_key" {
		t.Errorf("unexpected entry %s", codes[700001])
	}
}

func TestRegistry_Register_Idempotent(t *testing.T) {
	registry := &Registry{codes: make(map[int]string)}

	registry.Register(New(70, 1, "cache", "cache.invalid_key", "invalid cache key"))
	registry.Register(New(70, 1, "cache", "cache.invalid_key", "invalid cache key"))

	if registry.Count() != 1 {
		t.Errorf("expected 1 registered code, got %d", registry.Count())
	}
}

func TestRegistry_Register_Conflict(t *testing.T) {
	registry := &Registry{codes: make(map[int]string)}
	registry.Register(New(70, 1, "cache", "cache.invalid_key", "invalid cache key"))

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic for conflicting error code")
		}
	}()

	registry.Register(New(70, 1, "cache", "cache.invalid_tag", "invalid tag"))
}

func TestRegistry_Lock(t *testing.T) {
	registry := &Registry{codes: make(map[int]string)}
	registry.Lock()

	if !registry.IsLocked() {
		t.Fatalf("registry should be locked")
	}

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic when registering into a locked registry")
		}
	}()
	registry.Register(New(70, 9, "cache", "cache.late", "late"))
}
