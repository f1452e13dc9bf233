package session_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mohammad-safakhou/ragbot/internal/cache"
	"github.com/mohammad-safakhou/ragbot/internal/session"
	"github.com/mohammad-safakhou/ragbot/models"
)

// Exercises the session store and the result cache against a real redis
// server, not the in-process fake.
func TestRedisRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	redisC, err := tcRedis.RunContainer(ctx, testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")))
	if err != nil {
		t.Fatalf("redis container: %v", err)
	}
	defer func() { _ = redisC.Terminate(ctx) }()

	redisHost, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	redisPort, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port())})
	defer func() { _ = client.Close() }()

	store := session.New(client, 86400, nil)
	id, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := store.AddMessage(ctx, id, models.Message{Role: models.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("add message: %v", err)
	}
	msgs, err := store.History(ctx, id)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hi" {
		t.Fatalf("history = %+v", msgs)
	}
	if ttl := store.TTL(ctx, id); ttl <= 0 || ttl > 86400 {
		t.Fatalf("ttl = %d", ttl)
	}

	c := cache.New(client, cache.TTLConfig{Session: 86400, Vector: 21600, Query: 3600}, nil)
	if !c.CacheQueryResult(ctx, "latest news", "answer", []models.Source{{Title: "T", Link: "http://t"}}, true) {
		t.Fatal("cache write failed")
	}
	got, ok := c.CachedQueryResult(ctx, "Latest News")
	if !ok || got.Answer != "answer" || !got.Warmed {
		t.Fatalf("cached result = %+v ok=%v", got, ok)
	}

	// INFO works on real redis, so stats report memory usage too.
	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Categories.Sessions != 1 || stats.Categories.Queries != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.MemoryUsage <= 0 {
		t.Fatalf("memory usage = %d", stats.MemoryUsage)
	}

	if err := store.Clear(ctx, id); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, models.ErrSessionNotFound) {
		t.Fatalf("after clear err = %v", err)
	}
}
