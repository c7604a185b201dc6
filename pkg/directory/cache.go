package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/apimgmt/pkg/cache"
	"github.com/dmitrymomot/apimgmt/pkg/logger"
)

// APICache stores API definitions by id.
type APICache interface {
	// Get returns the cached API and whether it was present.
	Get(ctx context.Context, id string) (*API, bool)

	// Set stores api under its id.
	Set(ctx context.Context, api *API) error

	// Delete drops the cached entry for id.
	Delete(ctx context.Context, id string) error
}

// CachedAPIs serves FindAPIByID from an APICache and falls back to the
// wrapped lookup on a miss. Unknown ids are not cached.
type CachedAPIs struct {
	next   APILookup
	cache  APICache
	logger *slog.Logger
}

type CachedAPIsOption func(*CachedAPIs)

func WithCacheLogger(l *slog.Logger) CachedAPIsOption {
	return func(c *CachedAPIs) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCachedAPIs wraps next with c.
func NewCachedAPIs(next APILookup, c APICache, opts ...CachedAPIsOption) *CachedAPIs {
	ca := &CachedAPIs{
		next:   next,
		cache:  c,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(ca)
	}
	ca.logger = ca.logger.With(logger.Component("directory.cache"))
	return ca
}

func (c *CachedAPIs) FindAPIByID(ctx context.Context, id string) (*API, error) {
	if api, ok := c.cache.Get(ctx, id); ok {
		return api, nil
	}

	api, err := c.next.FindAPIByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, api); err != nil {
		c.logger.WarnContext(ctx, "failed to cache api", logger.APIID(id), logger.Error(err))
	}
	return api, nil
}

// Invalidate drops id from the cache so the next lookup reloads it.
func (c *CachedAPIs) Invalidate(ctx context.Context, id string) error {
	return c.cache.Delete(ctx, id)
}

// LRUCache is an in-process APICache.
type LRUCache struct {
	lru *cache.LRU[string, API]
}

// NewLRUCache keeps up to capacity APIs for ttl each.
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	return &LRUCache{lru: cache.NewLRU[string, API](capacity, ttl)}
}

func (c *LRUCache) Get(_ context.Context, id string) (*API, bool) {
	api, ok := c.lru.Get(id)
	if !ok {
		return nil, false
	}
	api.Groups = slices.Clone(api.Groups)
	return &api, true
}

func (c *LRUCache) Set(_ context.Context, api *API) error {
	if api == nil {
		return nil
	}
	stored := *api
	stored.Groups = slices.Clone(api.Groups)
	c.lru.Put(api.ID, stored)
	return nil
}

func (c *LRUCache) Delete(_ context.Context, id string) error {
	c.lru.Remove(id)
	return nil
}

// RedisCache shares cached APIs between nodes through Redis.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

type RedisCacheOption func(*RedisCache)

func WithRedisKeyPrefix(prefix string) RedisCacheOption {
	return func(c *RedisCache) {
		c.prefix = prefix
	}
}

func WithRedisLogger(l *slog.Logger) RedisCacheOption {
	return func(c *RedisCache) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewRedisCache stores entries for ttl. A zero ttl keeps them until deleted.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) key(id string) string {
	return c.prefix + "api:" + id
}

// Get treats every read or decode failure as a miss.
func (c *RedisCache) Get(ctx context.Context, id string) (*API, bool) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "redis cache read failed", logger.APIID(id), logger.Error(err))
		}
		return nil, false
	}

	var api API
	if err := json.Unmarshal(raw, &api); err != nil {
		c.logger.WarnContext(ctx, "redis cache entry is corrupt", logger.APIID(id), logger.Error(err))
		return nil, false
	}
	return &api, true
}

func (c *RedisCache) Set(ctx context.Context, api *API) error {
	if api == nil {
		return nil
	}
	raw, err := json.Marshal(api)
	if err != nil {
		return fmt.Errorf("encode api %q: %w", api.ID, err)
	}
	if err := c.client.Set(ctx, c.key(api.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache api %q: %w", api.ID, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("evict api %q: %w", id, err)
	}
	return nil
}

// CacheConfig selects the APICache placed in front of the directory.
type CacheConfig struct {
	Backend  string        `env:"DIRECTORY_CACHE" envDefault:"lru"` // Backend is one of "none", "lru" or "redis".
	Capacity int           `env:"DIRECTORY_CACHE_CAPACITY" envDefault:"1024"`
	TTL      time.Duration `env:"DIRECTORY_CACHE_TTL" envDefault:"1m"`
}
