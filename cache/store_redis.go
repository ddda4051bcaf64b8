package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldData = "d"
	fieldTags = "t"

	tagKeyPrefix = "__tag__:"
	scanCount    = 100
)

// RemoteConn is the part of the remote connection the store needs.
// *redis.Connection from this module satisfies it.
type RemoteConn interface {
	IsReady() bool
	Client() (redis.UniversalClient, error)
}

// RedisStore is the shared tier. Each value is a hash holding the payload
// and its tag list; each tag is a set of the remote keys carrying it.
type RedisStore struct {
	conn      RemoteConn
	keyPrefix string
}

func NewRedisStore(conn RemoteConn, keyPrefix string) *RedisStore {
	return &RedisStore{
		conn:      conn,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisStore) Name() string {
	return "redis"
}

// Available reports whether the connection is ready.
func (s *RedisStore) Available() bool {
	return s.conn != nil && s.conn.IsReady()
}

func (s *RedisStore) buildKey(key string) string {
	return s.keyPrefix + key
}

func (s *RedisStore) tagKey(tag string) string {
	return s.keyPrefix + tagKeyPrefix + tag
}

func (s *RedisStore) client() (redis.UniversalClient, error) {
	if s.conn == nil {
		return nil, ErrStoreGet.WithMsg("remote tier not configured")
	}
	return s.conn.Client()
}

func (s *RedisStore) Get(ctx context.Context, key string) (Item, error) {
	client, err := s.client()
	if err != nil {
		return Item{}, ErrStoreGet.Wrap(err)
	}

	vals, err := client.HMGet(ctx, s.buildKey(key), fieldData, fieldTags).Result()
	if err != nil {
		return Item{}, ErrStoreGet.Wrap(err)
	}
	data, ok := vals[0].(string)
	if !ok {
		return Item{}, ErrCacheMiss
	}

	item := Item{Value: []byte(data)}
	if raw, ok := vals[1].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &item.Tags); err != nil {
			return Item{}, ErrDeserialize.Wrapf(err, "decode tags of %s", key)
		}
	}
	return item, nil
}

// Set writes the value hash and registers the key in every tag set. A tag
// set's TTL only ever grows, so it outlives its longest-lived member.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	client, err := s.client()
	if err != nil {
		return ErrStoreSet.Wrap(err)
	}

	tags = dedupeTags(tags)
	rawTags := ""
	if len(tags) > 0 {
		b, err := json.Marshal(tags)
		if err != nil {
			return ErrSerialize.Wrap(err)
		}
		rawTags = string(b)
	}

	fullKey := s.buildKey(key)
	pipe := client.Pipeline()
	pipe.HSet(ctx, fullKey, fieldData, value, fieldTags, rawTags)
	if ttl > 0 {
		pipe.PExpire(ctx, fullKey, ttl)
	} else {
		pipe.Persist(ctx, fullKey)
	}
	for _, tag := range tags {
		tk := s.tagKey(tag)
		pipe.SAdd(ctx, tk, fullKey)
		if ttl > 0 {
			pipe.ExpireNX(ctx, tk, ttl)
			pipe.ExpireGT(ctx, tk, ttl)
		} else {
			pipe.Persist(ctx, tk)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return ErrStoreSet.Wrap(err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	client, err := s.client()
	if err != nil {
		return ErrStoreDelete.Wrap(err)
	}
	if err := client.Del(ctx, s.buildKey(key)).Err(); err != nil {
		return ErrStoreDelete.Wrap(err)
	}
	return nil
}

// InvalidateTags deletes the members of each tag set that still carry the
// tag. Members rewritten without the tag survive.
func (s *RedisStore) InvalidateTags(ctx context.Context, tags []string) (int, error) {
	client, err := s.client()
	if err != nil {
		return 0, ErrStoreDelete.Wrap(err)
	}

	removed := 0
	for _, tag := range tags {
		n, err := s.invalidateTag(ctx, client, tag)
		removed += n
		if err != nil {
			return removed, ErrStoreDelete.Wrapf(err, "invalidate tag %s", tag)
		}
	}
	return removed, nil
}

// invalidateTag drops the memberships it read before checking them, so a
// Set racing the invalidation either is deleted here or keeps its
// membership for the next one. An emptied set is removed by redis.
func (s *RedisStore) invalidateTag(ctx context.Context, client redis.UniversalClient, tag string) (int, error) {
	tk := s.tagKey(tag)
	members, err := client.SMembers(ctx, tk).Result()
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, nil
	}

	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := client.SRem(ctx, tk, args...).Err(); err != nil {
		return 0, err
	}

	pipe := client.Pipeline()
	cmds := make([]*redis.StringCmd, len(members))
	for i, m := range members {
		cmds[i] = pipe.HGet(ctx, m, fieldTags)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	var victims []string
	for i, m := range members {
		if raw, err := cmds[i].Result(); err == nil && tagListContains(raw, tag) {
			victims = append(victims, m)
		}
	}
	if len(victims) == 0 {
		return 0, nil
	}

	pipe = client.Pipeline()
	dels := make([]*redis.IntCmd, len(victims))
	for i, v := range victims {
		dels[i] = pipe.Del(ctx, v)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	removed := 0
	for _, d := range dels {
		removed += int(d.Val())
	}
	return removed, nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	client, err := s.client()
	if err != nil {
		return false, ErrStoreGet.Wrap(err)
	}
	n, err := client.Exists(ctx, s.buildKey(key)).Result()
	if err != nil {
		return false, ErrStoreGet.Wrap(err)
	}
	return n > 0, nil
}

// Clear deletes every key under the prefix, scanning each master node
// when the client is a cluster client.
func (s *RedisStore) Clear(ctx context.Context) error {
	client, err := s.client()
	if err != nil {
		return ErrStoreDelete.Wrap(err)
	}

	match := escapeGlob(s.keyPrefix) + "*"
	if cc, ok := client.(*redis.ClusterClient); ok {
		err = cc.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return deleteByScan(ctx, node, match)
		})
	} else {
		err = deleteByScan(ctx, client, match)
	}
	if err != nil {
		return ErrStoreDelete.Wrap(err)
	}
	return nil
}

// Close is a no-op; the connection is owned by the caller.
func (s *RedisStore) Close() error {
	return nil
}

func deleteByScan(ctx context.Context, client redis.Cmdable, match string) error {
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			// one DEL per key keeps cluster slots apart
			pipe := client.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func tagListContains(raw, tag string) bool {
	if raw == "" {
		return false
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return false
	}
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}
