package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/ragbot/internal/cache"
)

type CacheHandler struct {
	Cache  *cache.Cache
	Warmer *cache.Warmer
}

func (h *CacheHandler) Register(g *echo.Group) {
	g.GET("/cache/stats", h.stats)
	g.POST("/cache/warm", h.warm)
	g.DELETE("/cache/clear", h.clear)
	g.DELETE("/cache/clear/:pattern", h.clear)
}

func (h *CacheHandler) stats(c echo.Context) error {
	stats, err := h.Cache.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

// warm runs one synchronous warming cycle. Available even when
// background warming is disabled; this is an explicit operator action.
func (h *CacheHandler) warm(c echo.Context) error {
	warmed := h.Warmer.WarmOnce(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]interface{}{"warmed": warmed})
}

func (h *CacheHandler) clear(c echo.Context) error {
	pattern := c.Param("pattern")
	if pattern == "" {
		pattern = "*"
	}
	cleared := h.Cache.ClearByPattern(c.Request().Context(), pattern)
	return c.JSON(http.StatusOK, map[string]interface{}{"pattern": pattern, "cleared": cleared})
}
