package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/ragbot/models"
)

func testCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, TTLConfig{Session: 86400, Vector: 21600, Query: 3600}, nil), mr
}

func TestSetGetRoundTrip(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	if !c.Set(ctx, "k1", map[string]string{"a": "b"}, CategoryQuery) {
		t.Fatal("set failed")
	}
	got, ok := c.Get(ctx, "k1")
	if !ok {
		t.Fatal("expected hit")
	}
	m, ok := got.(map[string]interface{})
	if !ok {
		t.Fatalf("expected decoded map, got %T", got)
	}
	if m["a"] != "b" {
		t.Fatalf("unexpected value: %v", m)
	}
}

func TestGetMiss(t *testing.T) {
	c, _ := testCache(t)
	if _, ok := c.Get(context.Background(), "missing"); ok {
		t.Fatal("expected miss")
	}
}

func TestGetRawStringFallback(t *testing.T) {
	c, mr := testCache(t)
	// A plain string that is not valid JSON comes back verbatim.
	mr.Set("raw", "not json at all")

	got, ok := c.Get(context.Background(), "raw")
	if !ok {
		t.Fatal("expected hit")
	}
	if got != "not json at all" {
		t.Fatalf("expected raw string, got %v", got)
	}
}

func TestCategoryTTLs(t *testing.T) {
	c, mr := testCache(t)
	ctx := context.Background()

	cases := []struct {
		key      string
		category string
		want     time.Duration
	}{
		{"s", CategorySession, 86400 * time.Second},
		{"v", CategoryVector, 21600 * time.Second},
		{"q", CategoryQuery, 3600 * time.Second},
		{"x", "bogus", time.Hour},
	}
	for _, tc := range cases {
		if !c.Set(ctx, tc.key, "val", tc.category) {
			t.Fatalf("set %s failed", tc.key)
		}
		if got := mr.TTL(tc.key); got != tc.want {
			t.Errorf("%s: ttl = %s, want %s", tc.category, got, tc.want)
		}
	}
}

func TestExpiryRemovesEntry(t *testing.T) {
	c, mr := testCache(t)
	ctx := context.Background()

	c.Set(ctx, "gone", "val", CategoryQuery)
	mr.FastForward(3601 * time.Second)

	if _, ok := c.Get(ctx, "gone"); ok {
		t.Fatal("expected entry to expire")
	}
	if c.Exists(ctx, "gone") {
		t.Fatal("expired key should not exist")
	}
}

func TestDeleteAndExists(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", "v", CategoryQuery)
	if !c.Exists(ctx, "k") {
		t.Fatal("expected key to exist")
	}
	if !c.Delete(ctx, "k") {
		t.Fatal("delete failed")
	}
	if c.Exists(ctx, "k") {
		t.Fatal("expected key gone")
	}
	// Deleting an absent key is still a success.
	if !c.Delete(ctx, "k") {
		t.Fatal("delete of absent key should succeed")
	}
}

func TestTTLAndExpire(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	c.Set(ctx, "k", "v", CategoryQuery)
	ttl := c.TTL(ctx, "k")
	if ttl <= 0 || ttl > 3600 {
		t.Fatalf("unexpected ttl %d", ttl)
	}
	if c.TTL(ctx, "absent") != -2 {
		t.Fatalf("absent key should report -2, got %d", c.TTL(ctx, "absent"))
	}

	if !c.Expire(ctx, "k", 10) {
		t.Fatal("expire failed")
	}
	if ttl := c.TTL(ctx, "k"); ttl <= 0 || ttl > 10 {
		t.Fatalf("ttl after expire = %d", ttl)
	}
}

func TestClearByPattern(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	c.Set(ctx, "query:a", "1", CategoryQuery)
	c.Set(ctx, "query:b", "2", CategoryQuery)
	c.Set(ctx, "session:x", "3", CategorySession)

	if n := c.ClearByPattern(ctx, "query:*"); n != 2 {
		t.Fatalf("cleared %d, want 2", n)
	}
	if c.Exists(ctx, "query:a") || c.Exists(ctx, "query:b") {
		t.Fatal("query keys should be gone")
	}
	if !c.Exists(ctx, "session:x") {
		t.Fatal("session key should survive")
	}
	if n := c.ClearByPattern(ctx, "nomatch:*"); n != 0 {
		t.Fatalf("cleared %d on empty match, want 0", n)
	}
}

func TestClearEverythingThenStatsEmpty(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	c.Set(ctx, "session:1", "a", CategorySession)
	c.Set(ctx, "query:1", "b", CategoryQuery)
	c.Set(ctx, "vector:1", "c", CategoryVector)

	if n := c.ClearByPattern(ctx, "*"); n != 3 {
		t.Fatalf("cleared %d, want 3", n)
	}
	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalKeys != 0 {
		t.Fatalf("total keys after clear = %d, want 0", stats.TotalKeys)
	}
	if stats.Categories.Sessions != 0 || stats.Categories.Queries != 0 || stats.Categories.Vectors != 0 {
		t.Fatalf("categories after clear = %+v", stats.Categories)
	}
}

func TestStatsClassification(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	c.Set(ctx, "session:1", "a", CategorySession)
	c.Set(ctx, "query:1", "b", CategoryQuery)
	c.Set(ctx, "query:2", "c", CategoryQuery)
	c.Set(ctx, "vector:1", "d", CategoryVector)
	c.Set(ctx, "misc", "e", "bogus")

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalKeys != 5 {
		t.Fatalf("total = %d, want 5", stats.TotalKeys)
	}
	if stats.Categories.Sessions != 1 || stats.Categories.Queries != 2 ||
		stats.Categories.Vectors != 1 || stats.Categories.Other != 1 {
		t.Fatalf("unexpected categories: %+v", stats.Categories)
	}
	if stats.KeysByTTL.Expiring != 5 {
		t.Fatalf("expiring = %d, want 5", stats.KeysByTTL.Expiring)
	}
}

func TestQueryKeyNormalization(t *testing.T) {
	if QueryKey("  Latest News ") != QueryKey("latest news") {
		t.Fatal("normalized spellings should share a key")
	}
	if QueryKey("latest news") == QueryKey("breaking news") {
		t.Fatal("different queries should not collide")
	}
}

func TestQueryResultRoundTrip(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	sources := []models.Source{{Title: "BBC", Link: "http://example.com/a"}}
	if !c.CacheQueryResult(ctx, "Latest News", "answer text", sources, true) {
		t.Fatal("cache write failed")
	}

	got, ok := c.CachedQueryResult(ctx, "latest news")
	if !ok {
		t.Fatal("expected hit for normalized spelling")
	}
	if got.Answer != "answer text" || !got.Warmed {
		t.Fatalf("unexpected result: %+v", got)
	}
	if len(got.Sources) != 1 || got.Sources[0].Link != "http://example.com/a" {
		t.Fatalf("unexpected sources: %+v", got.Sources)
	}
	if got.Timestamp.IsZero() {
		t.Fatal("timestamp should be set")
	}
}

func TestCachedQueryResultUndecodableIsMiss(t *testing.T) {
	c, mr := testCache(t)
	mr.Set(QueryKey("weird"), "][ not json")

	if _, ok := c.CachedQueryResult(context.Background(), "weird"); ok {
		t.Fatal("undecodable value must count as a miss")
	}
}
