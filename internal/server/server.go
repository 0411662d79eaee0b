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
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/sitechat/config"
	"github.com/mohammad-safakhou/sitechat/internal/metrics"
	"github.com/mohammad-safakhou/sitechat/internal/runtime"
	"github.com/mohammad-safakhou/sitechat/internal/store"
)

// Options carries everything the router needs. Index and Jobs may be nil;
// the scrape trigger then answers 500.
type Options struct {
	Config config.ServerConfig
	Store  *store.Store
	Index  SiteIndex
	Jobs   JobEnqueuer
	Chat   Chatter
	Logger *log.Logger
}

// NewRouter builds the echo instance with every API route mounted.
func NewRouter(o Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	baseLogger := o.Logger
	if baseLogger == nil {
		baseLogger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
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
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}

	origins := o.Config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Cookie"},
		AllowCredentials: true,
	}))
	e.Use(recordMetrics)

	e.GET("/healthz", func(c echo.Context) error {
		if o.Store != nil {
			if err := o.Store.Ping(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
		}
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var guard echo.MiddlewareFunc
	if secret := strings.TrimSpace(o.Config.JWTSecret); secret != "" {
		guard = runtime.EchoAuthMiddleware([]byte(secret))
	}

	api := e.Group("/api")
	sh := &SitesHandler{Store: o.Store, Index: o.Index, Jobs: o.Jobs, Logger: baseLogger}
	sh.Register(api.Group("/sites"), guard)
	ssh := &SessionsHandler{Store: o.Store}
	ssh.Register(api.Group("/sessions"))
	ch := &ChatHandler{Pipeline: o.Chat}
	ch.Register(api.Group("/chat"))
	return e
}

func recordMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		code := c.Response().Status
		if err != nil {
			code = http.StatusInternalServerError
			var he *echo.HTTPError
			if errors.As(err, &he) {
				code = he.Code
			}
		}
		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request().Method, path, strconv.Itoa(code)).Inc()
		return err
	}
}

// Run serves the API and, when configured, the re-crawl scheduler until ctx
// is cancelled.
func Run(ctx context.Context, d *runtime.Deps) error {
	cfg := d.Config
	logger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	opts := Options{Config: cfg.Server, Store: d.Store, Chat: d.Chat, Logger: logger}
	if d.Index != nil {
		opts.Index = d.Index
	}
	if d.Jobs != nil {
		opts.Jobs = d.Jobs
	}
	e := NewRouter(opts)

	if cronSpec := strings.TrimSpace(cfg.Scheduler.RecrawlCron); cronSpec != "" {
		if d.Jobs == nil || d.Redis == nil {
			return errors.New("scheduler.recrawl_cron requires the redis queue")
		}
		sched, err := NewScheduler(cronSpec, d.Store, d.Jobs, d.Redis, nil)
		if err != nil {
			return err
		}
		sched.Start(ctx)
		logger.Printf("recrawl scheduled with %q, next run %s", cronSpec, sched.Next(time.Now()).Format(time.RFC3339))
	}

	addr := cfg.Server.Port
	if addr != "" && addr[0] != ':' {
		addr = ":" + addr
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", addr)
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	}
}
