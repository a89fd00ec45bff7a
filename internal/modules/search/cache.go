package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"songmail/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache stores raw search payloads. A miss is (nil, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// CachedAdapter serves repeated queries from the cache. Failures are never
// cached, and a broken cache only costs a direct upstream call.
type CachedAdapter struct {
	adapter Adapter
	cache   Cache
	ttl     time.Duration
}

func NewCachedAdapter(adapter Adapter, cache Cache, ttl time.Duration) *CachedAdapter {
	return &CachedAdapter{adapter: adapter, cache: cache, ttl: ttl}
}

func cacheKey(query string, limit int) string {
	return fmt.Sprintf("search:%d:%s", limit, strings.ToLower(strings.TrimSpace(query)))
}

func (c *CachedAdapter) Search(ctx context.Context, query string, limit int) ([]domain.Candidate, error) {
	limit = clampLimit(limit)
	key := cacheKey(query, limit)

	data, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("search cache read failed")
	}
	if data != nil {
		var candidates []domain.Candidate
		if err := json.Unmarshal(data, &candidates); err == nil && len(candidates) > 0 {
			return candidates, nil
		}
	}

	candidates, err := c.adapter.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(candidates); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("search cache write failed")
		}
	}
	return candidates, nil
}

// RedisCache keeps search payloads in Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "songmail:"}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

func (r *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, data, ttl).Err()
}

// defaultMemoryEntries bounds MemoryCache when no Redis is configured.
const defaultMemoryEntries = 1024

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache is the fallback when no Redis is configured. It holds at most
// maxEntries keys: a full cache first drops expired entries, then the entry
// closest to expiry.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		maxEntries: defaultMemoryEntries,
		now:        time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	if e.expired(m.now()) {
		delete(m.entries, key)
		return nil, nil
	}
	return e.data, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e := memoryEntry{data: data}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}

	if _, ok := m.entries[key]; !ok && len(m.entries) >= m.maxEntries {
		m.evict(now)
	}
	m.entries[key] = e
	return nil
}

// evict makes room for one entry. Callers hold mu.
func (m *MemoryCache) evict(now time.Time) {
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
		}
	}
	if len(m.entries) < m.maxEntries {
		return
	}

	var victim string
	var soonest time.Time
	for k, e := range m.entries {
		if e.expiresAt.IsZero() {
			continue
		}
		if victim == "" || e.expiresAt.Before(soonest) {
			victim, soonest = k, e.expiresAt
		}
	}
	if victim == "" {
		for k := range m.entries {
			victim = k
			break
		}
	}
	delete(m.entries, victim)
}
