package cache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/ragbot/internal/telemetry"
	"github.com/mohammad-safakhou/ragbot/models"
)

// Cache categories. Unknown categories fall back to a one hour TTL.
const (
	CategorySession = "session"
	CategoryVector  = "vector"
	CategoryQuery   = "query"
	CategoryDefault = "default"
)

const defaultTTL = time.Hour

const queryKeyPrefix = "query:"

var usedMemoryRe = regexp.MustCompile(`used_memory:(\d+)`)

// TTLConfig holds the per-category expiry, in seconds.
type TTLConfig struct {
	Session int
	Vector  int
	Query   int
}

// Cache is the categorized TTL result cache. Every operation swallows
// store errors and returns a safe default: a degraded cache costs
// latency, never correctness.
type Cache struct {
	client *redis.Client
	ttl    TTLConfig
	logger *log.Logger
}

func New(client *redis.Client, ttl TTLConfig, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.New(log.Writer(), "[CACHE] ", log.LstdFlags)
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func (c *Cache) ttlFor(category string) time.Duration {
	switch category {
	case CategorySession:
		return time.Duration(c.ttl.Session) * time.Second
	case CategoryVector:
		return time.Duration(c.ttl.Vector) * time.Second
	case CategoryQuery:
		return time.Duration(c.ttl.Query) * time.Second
	default:
		return defaultTTL
	}
}

// Set serializes value and writes it with the category TTL. Expiry is
// re-armed on every write. Returns false instead of an error so callers
// can treat "could not cache" as non-fatal.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, category string) bool {
	var payload string
	switch v := value.(type) {
	case string:
		payload = v
	default:
		data, err := json.Marshal(value)
		if err != nil {
			c.logger.Printf("error serializing %s: %v", key, err)
			return false
		}
		payload = string(data)
	}

	ttl := c.ttlFor(category)
	if err := c.client.SetEx(ctx, key, payload, ttl).Err(); err != nil {
		c.logger.Printf("error setting %s: %v", key, err)
		return false
	}
	return true
}

// Get returns the deserialized value, or the raw string when the stored
// value was written as a plain string rather than JSON.
func (c *Cache) Get(ctx context.Context, key string) (interface{}, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Printf("error getting %s: %v", key, err)
		}
		return nil, false
	}

	var out interface{}
	if err := json.Unmarshal([]byte(val), &out); err != nil {
		return val, true
	}
	return out, true
}

func (c *Cache) Delete(ctx context.Context, key string) bool {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Printf("error deleting %s: %v", key, err)
		return false
	}
	return true
}

func (c *Cache) Exists(ctx context.Context, key string) bool {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		c.logger.Printf("error checking %s: %v", key, err)
		return false
	}
	return n == 1
}

// TTL returns the remaining lifetime of key in seconds, or -1 when the
// key is absent or the store is unreachable.
func (c *Cache) TTL(ctx context.Context, key string) int64 {
	d, err := c.client.TTL(ctx, key).Result()
	if err != nil {
		c.logger.Printf("error getting TTL for %s: %v", key, err)
		return -1
	}
	if d < 0 {
		return int64(d) // -1 no expiry, -2 absent
	}
	return int64(d / time.Second)
}

// Expire re-arms the TTL of an existing key.
func (c *Cache) Expire(ctx context.Context, key string, seconds int) bool {
	if err := c.client.Expire(ctx, key, time.Duration(seconds)*time.Second).Err(); err != nil {
		c.logger.Printf("error setting TTL for %s: %v", key, err)
		return false
	}
	return true
}

// ClearByPattern deletes all keys matching a glob and returns the count
// removed. Matching nothing is not an error.
func (c *Cache) ClearByPattern(ctx context.Context, pattern string) int {
	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil {
		c.logger.Printf("error clearing by pattern %s: %v", pattern, err)
		return 0
	}
	if len(keys) == 0 {
		return 0
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Printf("error clearing by pattern %s: %v", pattern, err)
		return 0
	}
	c.logger.Printf("cleared %d keys matching %s", len(keys), pattern)
	return len(keys)
}

// Stats enumerates every key and classifies it by name prefix and TTL
// liveness. O(n) in key count; this is an operational endpoint, not a
// hot path.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	keys, err := c.client.Keys(ctx, "*").Result()
	if err != nil {
		return models.CacheStats{}, err
	}

	stats := models.CacheStats{TotalKeys: len(keys)}

	// used_memory is best effort; miniredis and some proxies reject INFO.
	if info, err := c.client.Info(ctx, "memory").Result(); err == nil {
		if m := usedMemoryRe.FindStringSubmatch(info); m != nil {
			stats.MemoryUsage, _ = strconv.ParseInt(m[1], 10, 64)
		}
	}

	for _, key := range keys {
		switch {
		case strings.HasPrefix(key, "session:"):
			stats.Categories.Sessions++
		case strings.HasPrefix(key, queryKeyPrefix):
			stats.Categories.Queries++
		case strings.HasPrefix(key, "vector:"):
			stats.Categories.Vectors++
		default:
			stats.Categories.Other++
		}

		if d, err := c.client.TTL(ctx, key).Result(); err == nil && d > 0 {
			stats.KeysByTTL.Expiring++
		} else if err == nil {
			stats.KeysByTTL.Persistent++
		}
	}

	return stats, nil
}

// NormalizeQuery canonicalizes query text before key derivation so that
// trivially different spellings share a cache entry.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// QueryKey derives the cache key for a query: the query namespace plus a
// collision-free encoding of the normalized text. The prefix keeps query
// entries addressable by pattern clearing.
func QueryKey(query string) string {
	return queryKeyPrefix + base64.StdEncoding.EncodeToString([]byte(NormalizeQuery(query)))
}

// CacheQueryResult stores an answered query under the query category.
func (c *Cache) CacheQueryResult(ctx context.Context, query, answer string, sources []models.Source, warmed bool) bool {
	result := models.QueryResult{
		Query:     query,
		Answer:    answer,
		Sources:   sources,
		Timestamp: time.Now().UTC(),
		Warmed:    warmed,
	}
	return c.Set(ctx, QueryKey(query), result, CategoryQuery)
}

// CachedQueryResult looks up a previously answered query. A stored value
// that does not decode as a QueryResult counts as a miss.
func (c *Cache) CachedQueryResult(ctx context.Context, query string) (*models.QueryResult, bool) {
	val, err := c.client.Get(ctx, QueryKey(query)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Printf("error getting cached query: %v", err)
		}
		telemetry.CacheMisses.Inc()
		return nil, false
	}

	var result models.QueryResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		c.logger.Printf("discarding undecodable cached query result: %v", err)
		telemetry.CacheMisses.Inc()
		return nil, false
	}
	telemetry.CacheHits.Inc()
	return &result, true
}
