// Package server wires the HTTP surface: echo bootstrap, dependency
// construction, route registration, and graceful teardown of the cache
// warmer.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/ragbot/config"
	"github.com/mohammad-safakhou/ragbot/internal/cache"
	"github.com/mohammad-safakhou/ragbot/internal/chat"
	"github.com/mohammad-safakhou/ragbot/internal/ingest"
	"github.com/mohammad-safakhou/ragbot/internal/rag"
	ragbleve "github.com/mohammad-safakhou/ragbot/internal/rag/bleve"
	"github.com/mohammad-safakhou/ragbot/internal/rag/chroma"
	"github.com/mohammad-safakhou/ragbot/internal/session"
	"github.com/mohammad-safakhou/ragbot/internal/storage"
	"github.com/mohammad-safakhou/ragbot/provider"
	openai "github.com/mohammad-safakhou/ragbot/provider/openai"
)

func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Shared dependencies (top-level DI).
	ctx := context.Background()
	rdb, err := storage.Conn(ctx,
		cfg.Storage.Redis.Host, cfg.Storage.Redis.Port,
		cfg.Storage.Redis.Password, cfg.Storage.Redis.DB,
		cfg.Storage.Redis.Timeout)
	if err != nil {
		return fmt.Errorf("redis connection failed (%s:%s): %w",
			cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, err)
	}

	resultCache := cache.New(rdb, cache.TTLConfig{
		Session: cfg.Cache.SessionTTL,
		Vector:  cfg.Cache.VectorTTL,
		Query:   cfg.Cache.QueryTTL,
	}, nil)
	sessions := session.New(rdb, cfg.Cache.SessionTTL, nil)

	var llm provider.Provider = openai.NewClient(
		cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.BaseURL,
		cfg.Providers.OpenAI.CompletionModel, cfg.Providers.OpenAI.EmbeddingModel,
		cfg.Providers.OpenAI.Temperature, cfg.Providers.OpenAI.MaxTokens,
		cfg.Providers.OpenAI.Timeout)

	var store rag.VectorStore
	switch cfg.RAG.Vector.Driver {
	case "bleve":
		store, err = ragbleve.New()
		if err != nil {
			return fmt.Errorf("opening bleve index: %w", err)
		}
	default:
		store = chroma.New(cfg.RAG.Vector.ChromaURL, cfg.RAG.Vector.Collection, llm, nil)
	}

	generator := rag.NewGenerator(llm)
	feed := ingest.New(cfg.Ingest.FeedURL, cfg.Ingest.MaxArticles,
		cfg.Ingest.ChunkChars, cfg.Ingest.FetchFullArticles, nil)
	orch := chat.NewOrchestrator(resultCache, sessions, store, generator,
		cfg.RAG.TopK, cfg.RAG.RequestTimeout, nil)

	warmer := cache.NewWarmer(resultCache, store, generator,
		cfg.Cache.Warming.Queries(),
		time.Duration(cfg.Cache.Warming.IntervalMinutes)*time.Minute,
		cfg.RAG.TopK, cfg.Cache.Warming.Enabled, nil)
	warmer.Start()

	api := e.Group("/api")
	(&ChatHandler{Orch: orch}).Register(api)
	(&SessionsHandler{Sessions: sessions}).Register(api)
	(&CacheHandler{Cache: resultCache, Warmer: warmer}).Register(api)
	(&RAGHandler{Feed: feed, Store: store, TopK: cfg.RAG.TopK, Redis: rdb}).Register(api)

	// Stop warming before the listener goes away.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		warmer.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	addr := cfg.General.Listen
	if addr == "" {
		addr = ":3000"
	}
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
