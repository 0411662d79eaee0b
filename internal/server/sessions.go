package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/sitechat/internal/store"
)

type SessionsHandler struct {
	Store *store.Store
}

func (h *SessionsHandler) Register(g *echo.Group) {
	g.POST("", h.create)
	g.GET("/:session_id", h.get)
	g.GET("/:session_id/messages", h.messages)
}

func (h *SessionsHandler) create(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.SiteID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "site_id required")
	}
	ctx := c.Request().Context()
	if _, err := h.Store.GetSite(ctx, req.SiteID); err != nil {
		return storeError(err, "site not found")
	}
	sess, err := h.Store.CreateSession(ctx, req.SiteID)
	if err != nil {
		return storeError(err, "site not found")
	}
	return c.JSON(http.StatusCreated, sessionResponse(sess))
}

func (h *SessionsHandler) get(c echo.Context) error {
	ctx := c.Request().Context()
	sess, err := h.Store.GetSession(ctx, c.Param("session_id"))
	if err != nil {
		return storeError(err, "session not found")
	}
	msgs, err := h.Store.ListMessages(ctx, sess.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, SessionDetail{SessionResponse: sessionResponse(sess), Messages: msgs})
}

func (h *SessionsHandler) messages(c echo.Context) error {
	ctx := c.Request().Context()
	sess, err := h.Store.GetSession(ctx, c.Param("session_id"))
	if err != nil {
		return storeError(err, "session not found")
	}
	msgs, err := h.Store.ListMessages(ctx, sess.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, msgs)
}
