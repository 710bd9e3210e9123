package geoclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/core/model"
)

const cacheKeyPrefix = "geocode:"

// Cache stores geocoding results keyed by normalised address
type Cache interface {
	Get(ctx context.Context, key string) (*model.Coordinates, error)
	Set(ctx context.Context, key string, coords *model.Coordinates) error
}

// ErrCacheMiss is returned by Cache.Get when the key is absent
var ErrCacheMiss = errors.New("geocode cache miss")

// RedisCache is a Cache backed by Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client and checks the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return rdb, nil
}

// NewRedisCache creates a cache whose entries expire after ttl
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached coordinates or ErrCacheMiss
func (c *RedisCache) Get(ctx context.Context, key string) (*model.Coordinates, error) {
	val, err := c.client.Get(ctx, cacheKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get geocode from cache: %w", err)
	}

	var coords model.Coordinates
	if err := json.Unmarshal(val, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal geocode from cache: %w", err)
	}
	return &coords, nil
}

// Set stores coordinates under key
func (c *RedisCache) Set(ctx context.Context, key string, coords *model.Coordinates) error {
	val, err := json.Marshal(coords)
	if err != nil {
		return fmt.Errorf("failed to marshal geocode for cache: %w", err)
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+key, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set geocode in cache: %w", err)
	}
	return nil
}

// CachedGeocoder consults a Cache before delegating to another Geocoder.
// Only successful lookups are cached; cache failures fall through to the provider.
type CachedGeocoder struct {
	next   Geocoder
	cache  Cache
	logger *zap.Logger
}

// NewCachedGeocoder wraps next with cache
func NewCachedGeocoder(next Geocoder, cache Cache, logger *zap.Logger) *CachedGeocoder {
	return &CachedGeocoder{next: next, cache: cache, logger: logger}
}

// CacheKey normalises an address for cache lookups
func CacheKey(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Geocode implements Geocoder
func (g *CachedGeocoder) Geocode(ctx context.Context, address string) (*model.Coordinates, error) {
	key := CacheKey(address)

	coords, err := g.cache.Get(ctx, key)
	if err == nil {
		g.logger.Debug("Geocode cache hit", zap.String("address", address))
		return coords, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		g.logger.Warn("Geocode cache read failed", zap.String("address", address), zap.Error(err))
	}

	coords, err = g.next.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	if err := g.cache.Set(ctx, key, coords); err != nil {
		g.logger.Warn("Geocode cache write failed", zap.String("address", address), zap.Error(err))
	}

	return coords, nil
}
