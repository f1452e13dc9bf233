package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/ragbot/internal/session"
	"github.com/mohammad-safakhou/ragbot/models"
)

type SessionsHandler struct {
	Sessions *session.Store
}

func (h *SessionsHandler) Register(g *echo.Group) {
	g.POST("/session", h.create)
	g.GET("/sessions", h.list)
	g.GET("/session/:id/history", h.history)
	g.DELETE("/session/:id", h.clear)
	g.PUT("/session/:id/refresh", h.refresh)
	g.GET("/session/:id/ttl", h.ttl)
}

func (h *SessionsHandler) create(c echo.Context) error {
	id, err := h.Sessions.Create(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{"session_id": id})
}

func (h *SessionsHandler) list(c echo.Context) error {
	summaries, err := h.Sessions.All(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sessions": summaries})
}

func (h *SessionsHandler) history(c echo.Context) error {
	msgs, err := h.Sessions.History(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "session not found or expired")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"messages": msgs})
}

func (h *SessionsHandler) clear(c echo.Context) error {
	if err := h.Sessions.Clear(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]bool{"cleared": true})
}

func (h *SessionsHandler) refresh(c echo.Context) error {
	if !h.Sessions.Refresh(c.Request().Context(), c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found or expired")
	}
	return c.JSON(http.StatusOK, map[string]bool{"refreshed": true})
}

func (h *SessionsHandler) ttl(c echo.Context) error {
	id := c.Param("id")
	ttl := h.Sessions.TTL(c.Request().Context(), id)
	return c.JSON(http.StatusOK, map[string]interface{}{"session_id": id, "ttl": ttl})
}
