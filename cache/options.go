package cache

import (
	"strings"
	"time"
)

// Options tune a single operation. The zero value uses manager defaults,
// no namespace, no tags and both tiers.
type Options struct {
	MemoryTTL  time.Duration
	RemoteTTL  time.Duration
	Namespace  string
	Tags       []string
	SkipMemory bool
	SkipRemote bool
}

// WithTags returns a copy of o carrying tags.
func (o Options) WithTags(tags ...string) Options {
	o.Tags = append(append([]string(nil), o.Tags...), tags...)
	return o
}

// InNamespace returns a copy of o bound to ns.
func (o Options) InNamespace(ns string) Options {
	o.Namespace = ns
	return o
}

// LogicalKey joins namespace and key as "ns:key" and rejects empty keys.
func LogicalKey(key, namespace string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", ErrInvalidKey.WithMsg("cache key must not be empty")
	}
	if namespace == "" {
		return key, nil
	}
	return namespace + ":" + key, nil
}

// ValidateTags rejects blank tags.
func ValidateTags(tags []string) error {
	for _, t := range tags {
		if strings.TrimSpace(t) == "" {
			return ErrInvalidTag.WithMsg("cache tag must not be empty")
		}
	}
	return nil
}
