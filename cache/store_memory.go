package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// memoryItem is one memory tier entry.
type memoryItem struct {
	key        string
	value      []byte
	tags       []string
	insertedAt time.Time
	expiresAt  time.Time
}

func (i *memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

// memoryShard is an independently locked LRU partition. The tag index
// lives under the same lock as the entries it points to. epoch advances on
// every write, delete and invalidation that touches the shard.
type memoryShard struct {
	mu       sync.RWMutex
	items    map[string]*list.Element
	lru      *list.List
	tags     map[string]map[string]struct{}
	capacity int
	epoch    uint64
}

func newMemoryShard(capacity int) *memoryShard {
	return &memoryShard{
		items:    make(map[string]*list.Element),
		lru:      list.New(),
		tags:     make(map[string]map[string]struct{}),
		capacity: capacity,
	}
}

func (s *memoryShard) indexLocked(item *memoryItem) {
	for _, tag := range item.tags {
		keys, ok := s.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.tags[tag] = keys
		}
		keys[item.key] = struct{}{}
	}
}

func (s *memoryShard) unindexLocked(item *memoryItem) {
	for _, tag := range item.tags {
		keys, ok := s.tags[tag]
		if !ok {
			continue
		}
		delete(keys, item.key)
		if len(keys) == 0 {
			delete(s.tags, tag)
		}
	}
}

func (s *memoryShard) removeLocked(el *list.Element) {
	item := el.Value.(*memoryItem)
	s.unindexLocked(item)
	s.lru.Remove(el)
	delete(s.items, item.key)
}

// MemoryStore is the in-process tier: xxhash-sharded, LRU-bounded per shard,
// with expiry checked on read and reclaimed by a background sweeper.
type MemoryStore struct {
	shards []*memoryShard
	now    func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewMemoryStore splits maxEntries evenly across shards and starts the
// sweeper when sweepInterval > 0.
func NewMemoryStore(maxEntries, shards int, sweepInterval time.Duration) *MemoryStore {
	if shards <= 0 {
		shards = 16
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	perShard := (maxEntries + shards - 1) / shards

	s := &MemoryStore{
		shards: make([]*memoryShard, shards),
		now:    time.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i] = newMemoryShard(perShard)
	}

	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	} else {
		close(s.done)
	}
	return s
}

func (s *MemoryStore) Name() string {
	return "memory"
}

func (s *MemoryStore) shard(key string) *memoryShard {
	return s.shards[xxhash.Sum64String(key)%uint64(len(s.shards))]
}

func (s *MemoryStore) Get(ctx context.Context, key string) (Item, error) {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	el, ok := sh.items[key]
	if !ok {
		return Item{}, ErrCacheMiss
	}
	item := el.Value.(*memoryItem)
	if item.expired(s.now()) {
		sh.removeLocked(el)
		return Item{}, ErrCacheMiss
	}
	sh.lru.MoveToFront(el)
	return Item{Value: item.value, Tags: item.tags}, nil
}

// Epoch returns the invalidation epoch of key's shard. Pass it to
// SetIfUnchanged to fill the tier from a slower source.
func (s *MemoryStore) Epoch(key string) uint64 {
	sh := s.shard(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.epoch
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	item := s.newItem(key, value, ttl, tags)
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.epoch++
	sh.putLocked(item)
	return nil
}

// SetIfUnchanged stores the value only when no write, delete or
// invalidation reached key's shard since epoch was read. It does not
// advance the epoch itself.
func (s *MemoryStore) SetIfUnchanged(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string, epoch uint64) bool {
	item := s.newItem(key, value, ttl, tags)
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.epoch != epoch {
		return false
	}
	sh.putLocked(item)
	return true
}

func (s *MemoryStore) newItem(key string, value []byte, ttl time.Duration, tags []string) *memoryItem {
	now := s.now()
	item := &memoryItem{
		key:        key,
		value:      append([]byte(nil), value...),
		tags:       dedupeTags(tags),
		insertedAt: now,
	}
	if ttl > 0 {
		item.expiresAt = now.Add(ttl)
	}
	return item
}

func (s *memoryShard) putLocked(item *memoryItem) {
	if el, ok := s.items[item.key]; ok {
		s.unindexLocked(el.Value.(*memoryItem))
		el.Value = item
		s.lru.MoveToFront(el)
		s.indexLocked(item)
		return
	}

	for s.lru.Len() >= s.capacity {
		s.removeLocked(s.lru.Back())
	}
	s.items[item.key] = s.lru.PushFront(item)
	s.indexLocked(item)
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	sh := s.shard(key)
	sh.mu.Lock()
	sh.epoch++
	if el, ok := sh.items[key]; ok {
		sh.removeLocked(el)
	}
	sh.mu.Unlock()
	return nil
}

// InvalidateTags advances every shard's epoch, since a remote value
// carrying one of tags may be on its way into any shard.
func (s *MemoryStore) InvalidateTags(ctx context.Context, tags []string) (int, error) {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.epoch++
		for _, tag := range tags {
			for key := range sh.tags[tag] {
				if el, ok := sh.items[key]; ok {
					sh.removeLocked(el)
					removed++
				}
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	sh := s.shard(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	el, ok := sh.items[key]
	if !ok {
		return false, nil
	}
	return !el.Value.(*memoryItem).expired(s.now()), nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.epoch++
		sh.items = make(map[string]*list.Element)
		sh.lru.Init()
		sh.tags = make(map[string]map[string]struct{})
		sh.mu.Unlock()
	}
	return nil
}

// Close stops the sweeper. Entries stay readable.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
	return nil
}

// Len counts entries, including expired ones not yet swept.
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += sh.lru.Len()
		sh.mu.RUnlock()
	}
	return n
}

// TagCount counts distinct indexed tags. A tag present in several shards
// is counted once per shard.
func (s *MemoryStore) TagCount() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.tags)
		sh.mu.RUnlock()
	}
	return n
}

// Sweep removes expired entries and reports how many were dropped.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for el := sh.lru.Front(); el != nil; {
			next := el.Next()
			if el.Value.(*memoryItem).expired(now) {
				sh.removeLocked(el)
				removed++
			}
			el = next
		}
		sh.mu.Unlock()
	}
	return removed
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
