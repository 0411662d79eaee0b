package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/sitechat/internal/chat"
)

// Chatter runs one chat turn.
type Chatter interface {
	Chat(ctx context.Context, req chat.ChatRequest) (chat.Result, error)
}

type ChatHandler struct {
	Pipeline Chatter
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("", h.chat)
}

func (h *ChatHandler) chat(c echo.Context) error {
	var req chat.ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	res, err := h.Pipeline.Chat(c.Request().Context(), req)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, res)
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrSessionRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrSessionNotFound), errors.Is(err, chat.ErrSiteNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
