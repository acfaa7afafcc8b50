// Package httpserver is the read-only dashboard API over computed aggregates
// and alignment reports. It never mutates pipeline state; recomputation stays
// with the scheduler-driven CLI commands.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shockwave22/StreamPulse/internal/config"
	"github.com/shockwave22/StreamPulse/internal/domain"
)

type dashboardService interface {
	Titles() []domain.Title
	Aggregates(ctx context.Context, titleSlug, source string, from, to time.Time) ([]domain.DailyAggregate, error)
	Compare(ctx context.Context, titleSlug string, from, to time.Time) (domain.AlignmentReport, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app            dashboardService
	metricsHandler http.Handler
	healthChecks   []HealthCheck
	startTime      time.Time
}

// NewServer builds the router. errorMiddleware and httpMetrics are injected
// so the server does not own a metrics registry; either may be nil in tests.
func NewServer(cfg *config.Config, app dashboardService, metricsHandler http.Handler,
	httpMetrics, errorMiddleware echo.MiddlewareFunc, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		app:            app,
		metricsHandler: metricsHandler,
		healthChecks:   healthChecks,
		startTime:      time.Now(),
	}

	srv.registerRoutes(httpMetrics, errorMiddleware)

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Echo exposes the router for handler tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
