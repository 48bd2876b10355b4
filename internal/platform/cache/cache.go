// Package cache provides an optional redis-backed read cache for availability
// responses. Bookings invalidate the affected (center, date) key, so staleness
// is bounded by the TTL and only ever shows a slot as more occupied than it is
// after a cancellation, never less.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const availabilityTTL = 30 * time.Second

// AvailabilityCache caches serialized availability responses per center+date.
// A nil *AvailabilityCache is a no-op, so callers need no redis-configured
// branch.
type AvailabilityCache struct {
	client *redis.Client
}

// New connects to redis using a URL (redis://host:port/db). Returns an error
// if the URL is malformed or the server is unreachable.
func New(ctx context.Context, redisURL string) (*AvailabilityCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &AvailabilityCache{client: client}, nil
}

func key(centerID, date string) string {
	return "availability:" + centerID + ":" + date
}

// Get unmarshals a cached availability response into dest. Returns false on
// miss or any redis/decode error; errors are not distinguished from misses.
func (c *AvailabilityCache) Get(ctx context.Context, centerID, date string, dest interface{}) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key(centerID, date)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// Set stores an availability response with a short TTL.
func (c *AvailabilityCache) Set(ctx context.Context, centerID, date string, value interface{}) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, key(centerID, date), raw, availabilityTTL)
}

// Invalidate drops the cached response for a center+date. Called whenever
// occupancy or center configuration changes.
func (c *AvailabilityCache) Invalidate(ctx context.Context, centerID, date string) {
	if c == nil {
		return
	}
	c.client.Del(ctx, key(centerID, date))
}

// Close releases the underlying redis connection.
func (c *AvailabilityCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
