// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package handlers implements the gin handlers of the /v1 API.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/intentrouter/internal/intelligence"
	"github.com/traylinx/intentrouter/internal/intelligence/feedback"
	"github.com/traylinx/intentrouter/internal/intelligence/metrics"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
	"github.com/traylinx/intentrouter/internal/learning"
	"github.com/traylinx/intentrouter/internal/logging"
)

// MaxMessageLength bounds the message accepted by the intent endpoints.
const MaxMessageLength = 4096

// IntentRecognizer is the recognition surface the handlers depend on.
type IntentRecognizer interface {
	RecognizeIntent(ctx context.Context, message string, convCtx *types.ConversationContext, opts intelligence.RecognizeOptions) *types.Intent
	GetMetrics() metrics.Snapshot
	ResetMetrics()
	ClearCache(ctx context.Context) error
	LearningStats() learning.Stats
}

// DecisionRouter derives routing decisions.
type DecisionRouter interface {
	Route(ctx context.Context, intent *types.Intent, convCtx *types.ConversationContext) *types.RoutingDecision
}

// AuditStore serves the audit trail.
type AuditStore interface {
	GetRecent(ctx context.Context, tenantID string, limit int) ([]*feedback.DecisionRecord, error)
	GetStats(ctx context.Context) (*feedback.Stats, error)
}

// RecognizeRequest is the body of POST /v1/intents/recognize and
// POST /v1/intents/route.
type RecognizeRequest struct {
	Message string                     `json:"message" binding:"required"`
	Context *types.ConversationContext `json:"context,omitempty"`
	Options *RequestOptions            `json:"options,omitempty"`
}

// RequestOptions mirror intelligence.RecognizeOptions on the wire.
type RequestOptions struct {
	ForceRefresh bool     `json:"force_refresh,omitempty"`
	CacheTTLMs   int64    `json:"cache_ttl_ms,omitempty"`
	Engines      []string `json:"engines,omitempty"`
}

// RouteResponse is the body returned by POST /v1/intents/route.
type RouteResponse struct {
	Intent   *types.Intent          `json:"intent"`
	Decision *types.RoutingDecision `json:"decision"`
}

// Handler serves the /v1 endpoints.
type Handler struct {
	recognizer IntentRecognizer
	router     DecisionRouter
	audit      AuditStore
}

// NewHandler creates a handler. audit may be nil when auditing is disabled.
func NewHandler(recognizer IntentRecognizer, router DecisionRouter, audit AuditStore) *Handler {
	return &Handler{recognizer: recognizer, router: router, audit: audit}
}

func (req *RecognizeRequest) validate() (intelligence.RecognizeOptions, error) {
	var opts intelligence.RecognizeOptions
	if len(req.Message) > MaxMessageLength {
		return opts, fmt.Errorf("message exceeds %d bytes", MaxMessageLength)
	}
	if req.Options == nil {
		return opts, nil
	}
	opts.ForceRefresh = req.Options.ForceRefresh
	if req.Options.CacheTTLMs < 0 {
		return opts, fmt.Errorf("cache_ttl_ms must not be negative")
	}
	opts.CacheTTL = time.Duration(req.Options.CacheTTLMs) * time.Millisecond
	for _, name := range req.Options.Engines {
		kind := types.EngineKind(name)
		switch kind {
		case types.EnginePattern, types.EngineStatistical, types.EngineExternalAI:
			opts.Engines = append(opts.Engines, kind)
		default:
			return opts, fmt.Errorf("unknown engine %q", name)
		}
	}
	return opts, nil
}

func (h *Handler) bind(c *gin.Context) (*RecognizeRequest, intelligence.RecognizeOptions, bool) {
	var req RecognizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return nil, intelligence.RecognizeOptions{}, false
	}
	opts, err := req.validate()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, opts, false
	}
	return &req, opts, true
}

// Recognize handles POST /v1/intents/recognize.
//
// Response:
//   - 200: The recognized intent
//   - 400: Invalid request body
func (h *Handler) Recognize(c *gin.Context) {
	req, opts, ok := h.bind(c)
	if !ok {
		return
	}
	intent := h.recognizer.RecognizeIntent(c.Request.Context(), req.Message, req.Context, opts)
	log.WithFields(log.Fields{
		"request_id": logging.RequestID(c),
		"intent":     intent.Type,
	}).Debugf("recognized in %dms", intent.Metadata.ProcessingTimeMs)
	c.JSON(http.StatusOK, intent)
}

// Route handles POST /v1/intents/route: recognition followed by routing.
//
// Response:
//   - 200: RouteResponse
//   - 400: Invalid request body
func (h *Handler) Route(c *gin.Context) {
	req, opts, ok := h.bind(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	intent := h.recognizer.RecognizeIntent(ctx, req.Message, req.Context, opts)
	decision := h.router.Route(ctx, intent, req.Context)
	c.JSON(http.StatusOK, RouteResponse{Intent: intent, Decision: decision})
}
