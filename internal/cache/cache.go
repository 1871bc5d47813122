/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for computed
// playlist projections, which are expensive to rebuild on every list
// screen load.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Default TTL values. Projections are invalidated eagerly on store
// events; the TTLs only bound staleness when an event is missed.
const (
	DefaultPreviewsTTL = 5 * time.Minute
	DefaultDetailTTL   = 1 * time.Minute
	DefaultSourcesTTL  = 10 * time.Minute
)

// Key prefixes for Redis cache.
const (
	KeyPreviews = "skald:cache:previews"
	KeyDetail   = "skald:cache:detail:" // + playlist uuid
	KeySources  = "skald:cache:sources" // episode source picker
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL overrides
	PreviewsTTL time.Duration
	DetailTTL   time.Duration
	SourcesTTL  time.Duration

	// Fallback behavior
	DisableOnError bool // If true, disable caching on Redis errors
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		PreviewsTTL:    DefaultPreviewsTTL,
		DetailTTL:      DefaultDetailTTL,
		SourcesTTL:     DefaultSourcesTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback. Values
// round-trip through JSON, so callers own the concrete types.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// New creates a new cache instance. A missing Redis is not an error;
// the cache runs disabled and every lookup misses.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// get retrieves a value from cache and unmarshals it.
func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
}

// set stores a value in cache with TTL.
func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}

// delete removes a key from cache.
func (c *Cache) delete(ctx context.Context, key string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}

	return nil
}

// deletePattern deletes all keys matching a pattern.
func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	if !c.IsAvailable() {
		return nil
	}

	// Use SCAN to find keys (safer than KEYS for production)
	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err, "delete_batch")
				return err
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return nil
}

// GetPreviews retrieves the cached preview list into dest.
func (c *Cache) GetPreviews(ctx context.Context, dest any) bool {
	found, err := c.get(ctx, KeyPreviews, dest)
	if err != nil || !found {
		return false
	}
	c.logger.Debug().Msg("previews cache hit")
	return true
}

// SetPreviews caches the preview list.
func (c *Cache) SetPreviews(ctx context.Context, previews any) error {
	c.logger.Debug().Msg("caching previews")
	return c.set(ctx, KeyPreviews, previews, c.config.PreviewsTTL)
}

// InvalidatePreviews removes the preview list from cache.
func (c *Cache) InvalidatePreviews(ctx context.Context) error {
	c.logger.Debug().Msg("invalidating previews cache")
	return c.delete(ctx, KeyPreviews)
}

// GetDetail retrieves a cached playlist detail into dest.
func (c *Cache) GetDetail(ctx context.Context, playlistUUID string, dest any) bool {
	found, err := c.get(ctx, KeyDetail+playlistUUID, dest)
	if err != nil || !found {
		return false
	}
	c.logger.Debug().Str("playlist_uuid", playlistUUID).Msg("detail cache hit")
	return true
}

// SetDetail caches a playlist detail.
func (c *Cache) SetDetail(ctx context.Context, playlistUUID string, detail any) error {
	c.logger.Debug().Str("playlist_uuid", playlistUUID).Msg("caching detail")
	return c.set(ctx, KeyDetail+playlistUUID, detail, c.config.DetailTTL)
}

// InvalidateDetail removes one playlist detail from cache.
func (c *Cache) InvalidateDetail(ctx context.Context, playlistUUID string) error {
	c.logger.Debug().Str("playlist_uuid", playlistUUID).Msg("invalidating detail cache")
	return c.delete(ctx, KeyDetail+playlistUUID)
}

// InvalidateDetails removes every cached playlist detail.
func (c *Cache) InvalidateDetails(ctx context.Context) error {
	c.logger.Debug().Msg("invalidating all detail caches")
	return c.deletePattern(ctx, KeyDetail+"*")
}

// GetSources retrieves the cached episode source picker into dest.
func (c *Cache) GetSources(ctx context.Context, dest any) bool {
	found, err := c.get(ctx, KeySources, dest)
	if err != nil || !found {
		return false
	}
	c.logger.Debug().Msg("sources cache hit")
	return true
}

// SetSources caches the episode source picker.
func (c *Cache) SetSources(ctx context.Context, sources any) error {
	c.logger.Debug().Msg("caching sources")
	return c.set(ctx, KeySources, sources, c.config.SourcesTTL)
}

// InvalidateSources removes the episode source picker from cache.
func (c *Cache) InvalidateSources(ctx context.Context) error {
	c.logger.Debug().Msg("invalidating sources cache")
	return c.delete(ctx, KeySources)
}

// FlushAll removes all cached data (use sparingly).
func (c *Cache) FlushAll(ctx context.Context) error {
	c.logger.Warn().Msg("flushing all cache data")
	return c.deletePattern(ctx, "skald:cache:*")
}
