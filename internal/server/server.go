// Package server exposes submission scoring over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"k8s.io/klog/v2"

	"github.com/piwi3910/TreePack/internal/model"
)

// Options configures New.
type Options struct {
	Addr      string
	BodyLimit string // echo size syntax, e.g. "8M"
	MaxN      int
}

// DefaultOptions returns the settings used by the serve command.
func DefaultOptions() Options {
	return Options{
		Addr:      ":8080",
		BodyLimit: "8M",
		MaxN:      model.MaxGroupSize,
	}
}

// Server wraps the echo instance and its routes.
type Server struct {
	echo *echo.Echo
	addr string
}

// New builds a Server with its routes registered.
func New(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(opts.BodyLimit))

	health := NewHealthHandler()
	scorer := NewScoreHandler(opts.MaxN)

	e.GET("/health", health.Check)
	api := e.Group("/api")
	api.GET("/health", health.Check)
	api.POST("/score", scorer.Score)

	return &Server{echo: e, addr: opts.Addr}
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		klog.Infof("listening on %s", s.addr)
		errc <- s.echo.Start(s.addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
