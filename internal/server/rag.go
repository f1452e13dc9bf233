package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/ragbot/internal/ingest"
	"github.com/mohammad-safakhou/ragbot/internal/rag"
)

// RAGHandler exposes the ingestion and retrieval surface: fetching the
// feed, (re)building the vector store, and raw similarity search.
type RAGHandler struct {
	Feed  *ingest.Service
	Store rag.VectorStore
	TopK  int
	Redis *redis.Client
}

func (h *RAGHandler) Register(g *echo.Group) {
	g.GET("/articles", h.articles)
	g.GET("/chunks", h.chunks)
	g.POST("/initialize-rag", h.initialize)
	g.POST("/search", h.search)
	g.GET("/health", h.health)
}

func (h *RAGHandler) articles(c echo.Context) error {
	articles := h.Feed.Articles()
	if len(articles) == 0 {
		fetched, err := h.Feed.FetchFeed(c.Request().Context())
		if err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
		articles = fetched
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":    len(articles),
		"articles": articles,
	})
}

func (h *RAGHandler) chunks(c echo.Context) error {
	chunks := h.Feed.Chunks()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":  len(chunks),
		"chunks": chunks,
	})
}

// initialize rebuilds the vector store from a fresh feed fetch.
func (h *RAGHandler) initialize(c echo.Context) error {
	ctx := c.Request().Context()

	if _, err := h.Feed.FetchFeed(ctx); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	chunks := h.Feed.Chunks()

	if err := h.Store.Clear(ctx); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if err := h.Store.Store(ctx, chunks); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"initialized": true,
		"chunks":      len(chunks),
	})
}

func (h *RAGHandler) search(c echo.Context) error {
	var req struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = h.TopK
	}

	chunks, err := h.Store.Retrieve(c.Request().Context(), req.Query, topK)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"query":   req.Query,
		"results": chunks,
	})
}

func (h *RAGHandler) health(c echo.Context) error {
	redisOK := h.Redis.Ping(c.Request().Context()).Err() == nil
	status := "ok"
	code := http.StatusOK
	if !redisOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]interface{}{
		"status": status,
		"redis":  redisOK,
	})
}
