// Package facade implements the thin REST surface named in spec §6: branch
// management, per-kind node CRUD/query, and the `GET /diff/data` wire
// contract. Grounded on the teacher's internal/server (Echo instance setup,
// CORS/request-id/recover middleware, slog request logging) but the route
// table is new — the teacher's server never had a graph facade.
package facade

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"github.com/branchgraph/branchgraph/internal/branchreg"
	"github.com/branchgraph/branchgraph/internal/config"
	"github.com/branchgraph/branchgraph/internal/diff"
	"github.com/branchgraph/branchgraph/internal/merge"
	"github.com/branchgraph/branchgraph/internal/nodemgr"
	"github.com/branchgraph/branchgraph/pkg/apperror"
	"github.com/branchgraph/branchgraph/pkg/logger"
)

var Module = fx.Module("facade",
	fx.Provide(NewEcho),
	fx.Invoke(registerRoutes, StartServer),
)

// EchoParams are the dependencies for creating an Echo instance.
type EchoParams struct {
	fx.In

	Config     *config.Config
	Log        *slog.Logger
	HTTPLogger *logger.HTTPLogger
}

// NewEcho creates and configures an Echo instance.
func NewEcho(p EchoParams) *echo.Echo {
	cfg := p.Config
	log := p.Log
	httpLogger := p.HTTPLogger

	e := echo.New()
	e.Debug = cfg.Debug
	e.HideBanner = true
	e.HidePort = !cfg.Debug
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(log)

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOriginFunc: func(origin string) (bool, error) { return true, nil },
			AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		}),
		middleware.RequestID(),
		middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			Skipper: func(c echo.Context) bool {
				p := c.Request().URL.Path
				return p == "/health" || p == "/healthz"
			},
			LogURI: true, LogStatus: true, LogLatency: true, LogError: true, LogMethod: true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				durMS := v.Latency.Milliseconds()
				if v.Error != nil {
					httpLogger.LogRequest(v.Method, v.URI, v.Status, durMS, v.Error)
					log.Error("request failed", logger.Error(v.Error), slog.String("uri", v.URI))
				} else {
					httpLogger.LogRequest(v.Method, v.URI, v.Status, durMS, nil)
					log.Info("request", slog.String("method", v.Method), slog.String("uri", v.URI), slog.Int("status", v.Status))
				}
				return nil
			},
		}),
		middleware.Recover(),
	)

	return e
}

// StartServer starts the HTTP server with graceful shutdown, matching the
// teacher's lifecycle-hook pattern.
func StartServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, log *slog.Logger) {
	log = log.With(logger.Scope("facade"))
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting HTTP facade", slog.String("address", server.Addr))
			go func() {
				if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
					log.Error("facade server error", logger.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	})
}

// Handlers holds the core components the route table dispatches into.
type Handlers struct {
	Branches *branchreg.Registry
	Nodes    *nodemgr.Manager
	Diffs    *diff.Engine
	Merges   *merge.Engine
}

func registerRoutes(e *echo.Echo, branches *branchreg.Registry, nodes *nodemgr.Manager, diffs *diff.Engine, merges *merge.Engine) {
	h := &Handlers{Branches: branches, Nodes: nodes, Diffs: diffs, Merges: merges}

	e.GET("/health", h.health)
	e.GET("/healthz", h.health)

	e.GET("/branches", h.listBranches)
	e.GET("/branches/:name", h.getBranch)
	e.POST("/branches", h.createBranch)
	e.DELETE("/branches/:name", h.deleteBranch)
	e.POST("/branches/:name/rebase", h.rebaseBranch)
	e.POST("/branches/:name/merge", h.mergeBranch)

	e.GET("/nodes/:kind/:id", h.getNode)
	e.GET("/nodes/:kind", h.queryNodes)
	e.POST("/nodes/:kind", h.createNode)
	e.PATCH("/nodes/:kind/:id", h.updateAttribute)
	e.DELETE("/nodes/:kind/:id", h.deleteNode)

	e.GET("/diff/data", h.diffData)
}

func (h *Handlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func queryBranch(c echo.Context) string {
	b := c.QueryParam("branch")
	if b == "" {
		return "main"
	}
	return b
}

func parseTimeParam(c echo.Context, name string, fallback time.Time) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperror.ErrBadRequest.WithMessage(fmt.Sprintf("invalid %s: %v", name, err))
	}
	return t, nil
}

func splitFilterPath(raw string) []string {
	return strings.Split(raw, "__")
}
