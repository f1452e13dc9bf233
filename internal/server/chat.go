package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/ragbot/internal/chat"
	"github.com/mohammad-safakhou/ragbot/models"
)

type ChatHandler struct {
	Orch *chat.Orchestrator
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("/chat", h.chat)
}

func (h *ChatHandler) chat(c echo.Context) error {
	var req chat.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resp, err := h.Orch.Answer(c.Request().Context(), req)
	if err != nil {
		var verr *chat.ValidationError
		var uerr *chat.UpstreamError
		switch {
		case errors.As(err, &verr):
			return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
		case errors.Is(err, models.ErrSessionNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "session not found or expired")
		case errors.As(err, &uerr):
			// Retrieval/generation collaborators are upstream of us;
			// session-store failures stay our fault.
			return echo.NewHTTPError(http.StatusBadGateway, uerr.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, resp)
}
