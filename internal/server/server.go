// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package server exposes the analysis engine over HTTP.
//
// The API is stateless: every analyze call carries its own content and
// every scan call names its own project directory. Scans through the
// API are read-only; only the CLI rewrites files in place.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rectifyhq/rectify/internal/config"
	"github.com/rectifyhq/rectify/internal/engine"
	"github.com/rectifyhq/rectify/internal/rules"
	"github.com/rectifyhq/rectify/pkg/logging"
)

// Version is the service version reported by GET /health.
const Version = "0.1.0"

// Server wires the engine, config and metrics behind a Gin router.
type Server struct {
	cfg     *config.Config
	eng     *engine.Engine
	log     *logging.Logger
	metrics *Metrics
	router  *gin.Engine
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger.
func WithServerLogger(log *logging.Logger) ServerOption {
	return func(s *Server) { s.log = log }
}

// WithEngine replaces the analysis engine, used by tests.
func WithEngine(eng *engine.Engine) ServerOption {
	return func(s *Server) { s.eng = eng }
}

// WithDebug switches Gin out of release mode.
func WithDebug(debug bool) ServerOption {
	return func(s *Server) {
		if debug {
			gin.SetMode(gin.DebugMode)
		}
	}
}

// New builds a Server from the given config.
func New(cfg *config.Config, opts ...ServerOption) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:     cfg,
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.Default()
	}
	if s.eng == nil {
		s.eng = engine.New(rules.DefaultRegistry(), engine.WithLogger(s.log))
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the configured Gin router, used by tests and embedders.
func (s *Server) Router() *gin.Engine { return s.router }

// buildRouter assembles middleware and routes.
//
// Endpoints:
//
//	GET  /health             - Liveness and version
//	GET  /metrics            - Prometheus metrics
//	POST /v1/analyze         - Analyze and fix a single document
//	POST /v1/detect-language - Classify a document
//	GET  /v1/languages       - List supported languages
//	POST /v1/scan            - Analyze a project directory (read-only)
func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestObserver())

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/analyze", s.handleAnalyze)
		v1.POST("/detect-language", s.handleDetectLanguage)
		v1.GET("/languages", s.handleLanguages)
		v1.POST("/scan", s.handleScan)
	}
	return router
}

// requestObserver logs each request and feeds the HTTP counter. The
// route template is used as the path label so path cardinality stays
// bounded.
func (s *Server) requestObserver() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		s.metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, fmt.Sprintf("%d", status)).Inc()
		s.log.Debug("http request",
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	}
}
