// Package server provides the HTTP API for devinsight.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/devinsight/devinsight/internal/recordstore"
	"github.com/devinsight/devinsight/pkg/models"
)

// Answerer is the query engine surface the API exposes.
type Answerer interface {
	Answer(ctx context.Context, query string, f models.Filters) (models.AnswerResult, error)
}

// Server provides HTTP endpoints for questions and reports.
type Server struct {
	echo   *echo.Echo
	engine Answerer
	store  recordstore.Store
	logger *zap.Logger
	config *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates the HTTP server.
func NewServer(engine Answerer, store recordstore.Store, logger *zap.Logger, cfg *Config) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8000,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:   e,
		engine: engine,
		store:  store,
		logger: logger,
		config: cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/", s.handleRoot)
	s.echo.GET("/health", s.handleHealth)

	// /query and /chat are kept as aliases for older frontends.
	s.echo.POST("/ask", s.handleAsk)
	s.echo.POST("/query", s.handleAsk)
	s.echo.POST("/chat", s.handleAsk)

	s.echo.GET("/reports", s.handleReports)
	s.echo.GET("/issues/recent", s.handleRecentIssues)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
