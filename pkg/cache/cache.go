// Package cache provides a Redis-backed response cache for static exchange
// endpoints. The exchange serves product and currency listings that change
// rarely; caching them keeps repeated lookups off the wire. Entries carry a
// caller-chosen TTL and expire through Redis itself.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss indicates the requested key was not found in cache.
var ErrCacheMiss = errors.New("cache miss")

// Key identifies one cached response.
type Key struct {
	// Endpoint is the request path (e.g. "/products").
	Endpoint string

	// Query are the request query parameters, if any.
	Query url.Values
}

// String generates a deterministic cache key string.
// Format: cbpro:endpoint:query1=val1:query2=val2
func (k Key) String() string {
	parts := []string{"cbpro"}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.Query) > 0 {
		keys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Query.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}

// Manager handles caching operations with a Redis backend.
type Manager struct {
	redis *redis.Client
}

// NewManager creates a cache manager.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{redis: redisClient}
}

// Get retrieves a cached response body. Returns ErrCacheMiss if the key is
// absent or expired.
func (m *Manager) Get(ctx context.Context, key Key) ([]byte, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			cacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		cacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}
	cacheHits.Inc()
	return data, nil
}

// Set stores a response body under key for the given TTL. A non-positive
// TTL stores nothing.
func (m *Manager) Set(ctx context.Context, key Key, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	cacheSize.Add(float64(len(data)))
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		cacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
