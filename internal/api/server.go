// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api wires the gin engine that exposes intent recognition and
// routing over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/intentrouter/internal/api/handlers"
	"github.com/traylinx/intentrouter/internal/buildinfo"
	"github.com/traylinx/intentrouter/internal/config"
	"github.com/traylinx/intentrouter/internal/logging"
)

// Dependencies are the collaborators served by the API.
type Dependencies struct {
	Recognizer handlers.IntentRecognizer
	Router     handlers.DecisionRouter
	// Audit is nil when auditing is disabled.
	Audit handlers.AuditStore
	// Gatherer backs GET /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server is the HTTP API server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
}

// NewServer builds the gin engine and registers every route.
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logging.GinLogrusLogger(), gin.Recovery())

	h := handlers.NewHandler(deps.Recognizer, deps.Router, deps.Audit)
	v1 := engine.Group("/v1")
	{
		v1.POST("/intents/recognize", h.Recognize)
		v1.POST("/intents/route", h.Route)
		v1.GET("/metrics", h.GetMetrics)
		v1.POST("/metrics/reset", h.ResetMetrics)
		v1.DELETE("/cache", h.ClearCache)
		v1.GET("/audit/recent", h.RecentDecisions)
	}
	if deps.Gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "build": buildinfo.Current()})
	})

	return &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:              cfg.Address(),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("API server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	log.Info("API server stopped")
	return ctx.Err()
}
