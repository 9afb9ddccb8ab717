// Package cache provides a small JSON value cache with an in-memory and a Redis backend.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/pkg/metrics"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Cache stores JSON-encodable values with a TTL.
type Cache interface {
	// Get decodes the cached value into dst and reports whether the key was present.
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

func record(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	metrics.CacheLookups.WithLabelValues(backend, result).Inc()
}

// Memory is a process-local cache backed by go-cache.
type Memory struct {
	c *gocache.Cache
}

func NewMemory(defaultTTL, cleanup time.Duration) *Memory {
	return &Memory{c: gocache.New(defaultTTL, cleanup)}
}

func (m *Memory) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	v, ok := m.c.Get(key)
	record("memory", ok)
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(v.([]byte), dst)
}

func (m *Memory) Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(key, b, ttl)
	return nil
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		m.c.Delete(k)
	}
	return nil
}

// Redis shares cached values between API instances.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "linkage:cache:"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		record("redis", false)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	record("redis", true)
	return true, json.Unmarshal(b, dst)
}

func (r *Redis) Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, b, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	return r.client.Del(ctx, full...).Err()
}

// New picks Redis when a client is configured, otherwise the in-memory cache.
func New(client *redis.Client, defaultTTL, cleanup time.Duration) Cache {
	if client != nil {
		return NewRedis(client, "")
	}
	return NewMemory(defaultTTL, cleanup)
}
