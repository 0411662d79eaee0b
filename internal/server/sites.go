package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/sitechat/internal/helpers"
	"github.com/mohammad-safakhou/sitechat/internal/queue/streams"
	"github.com/mohammad-safakhou/sitechat/internal/store"
)

// JobEnqueuer publishes scrape jobs and returns the task id.
type JobEnqueuer interface {
	EnqueueScrape(ctx context.Context, siteID int64, url, source string) (string, error)
}

// SiteIndex drops the vectors of a deleted site.
type SiteIndex interface {
	DeleteBySite(ctx context.Context, siteID int64)
}

type SitesHandler struct {
	Store  *store.Store
	Index  SiteIndex
	Jobs   JobEnqueuer
	Logger *log.Logger
}

// Register mounts the site routes. Mutating routes go through guard when it
// is non-nil.
func (h *SitesHandler) Register(g *echo.Group, guard echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if guard != nil {
		mw = append(mw, guard)
	}
	g.GET("", h.list)
	g.POST("", h.create, mw...)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.delete, mw...)
	g.GET("/:id/pages", h.pages)
	g.POST("/:id/scrape", h.scrape, mw...)
}

func (h *SitesHandler) list(c echo.Context) error {
	sites, err := h.Store.ListSites(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sites)
}

func (h *SitesHandler) create(c echo.Context) error {
	var req CreateSiteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if !helpers.IsHTTPURL(req.URL) {
		return echo.NewHTTPError(http.StatusBadRequest, "url must be an absolute http(s) url")
	}
	canonical, err := helpers.CanonicalURL(req.URL)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" {
			req.Title = nil
		} else {
			req.Title = &t
		}
	}
	ctx := c.Request().Context()
	site, err := h.Store.CreateSite(ctx, canonical, req.Title)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			existing, lookupErr := h.Store.GetSiteByURL(ctx, canonical)
			if lookupErr != nil {
				return echo.NewHTTPError(http.StatusConflict, "site already exists")
			}
			return echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("site already exists with id %d", existing.ID))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, site)
}

func (h *SitesHandler) get(c echo.Context) error {
	id, err := siteID(c)
	if err != nil {
		return err
	}
	site, err := h.Store.GetSite(c.Request().Context(), id)
	if err != nil {
		return storeError(err, "site not found")
	}
	return c.JSON(http.StatusOK, site)
}

func (h *SitesHandler) delete(c echo.Context) error {
	id, err := siteID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.Store.DeleteSite(ctx, id); err != nil {
		return storeError(err, "site not found")
	}
	if h.Index != nil {
		h.Index.DeleteBySite(ctx, id)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SitesHandler) pages(c echo.Context) error {
	id, err := siteID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.Store.GetSite(ctx, id); err != nil {
		return storeError(err, "site not found")
	}
	pages, err := h.Store.ListPages(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pages)
}

func (h *SitesHandler) scrape(c echo.Context) error {
	id, err := siteID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	site, err := h.Store.ClaimScraping(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyScraping) {
			return echo.NewHTTPError(http.StatusBadRequest, store.ErrAlreadyScraping.Error())
		}
		return storeError(err, "site not found")
	}
	if h.Jobs == nil {
		h.releaseClaim(site.ID)
		return echo.NewHTTPError(http.StatusInternalServerError, "job queue not configured")
	}
	taskID, err := h.Jobs.EnqueueScrape(ctx, site.ID, site.URL, streams.SourceAPI)
	if err != nil {
		h.releaseClaim(site.ID)
		return echo.NewHTTPError(http.StatusInternalServerError, "enqueue scrape: "+err.Error())
	}
	return c.JSON(http.StatusAccepted, ScrapeResponse{TaskID: taskID, SiteID: site.ID, Status: string(store.SiteStatusScraping)})
}

// releaseClaim marks the site failed so a later trigger can claim it again.
func (h *SitesHandler) releaseClaim(id int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Store.SetSiteStatus(ctx, id, store.SiteStatusFailed); err != nil && h.Logger != nil {
		h.Logger.Printf("warn: release claim on site %d: %v", id, err)
	}
}

func siteID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid site id")
	}
	return id, nil
}

func storeError(err error, notFound string) error {
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
