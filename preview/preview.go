// Package preview serves the generated site from the build output
// directory, for checking synced posts and the comment widget locally
// before pushing.
package preview

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	blog "github.com/ddnio/ddnio.github.io"
)

// Server is the local static file server.
type Server struct {
	echo *echo.Echo
	cfg  blog.PreviewConfig
	log  *zap.Logger
}

// New builds a server for the configured output directory.
func New(cfg blog.PreviewConfig, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := os.Stat(cfg.Dir); err != nil {
		return nil, fmt.Errorf("preview: output dir %s: %w (run the site build first)", cfg.Dir, err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	e.Use(noCache)
	e.Static("/", cfg.Dir)

	return &Server{echo: e, cfg: cfg, log: log}, nil
}

// noCache keeps the browser from holding on to stale preview builds.
func noCache(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", "no-store")
		return next(c)
	}
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("preview server listening",
		zap.String("addr", s.cfg.Addr),
		zap.String("dir", s.cfg.Dir),
	)
	if err := s.echo.Start(s.cfg.Addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("preview: serve: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
