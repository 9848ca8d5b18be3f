// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/intentrouter/internal/intelligence/metrics"
	"github.com/traylinx/intentrouter/internal/learning"
)

// MetricsResponse is the body of GET /v1/metrics.
type MetricsResponse struct {
	metrics.Snapshot
	Learning learning.Stats `json:"learning"`
}

// GetMetrics handles GET /v1/metrics.
func (h *Handler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, MetricsResponse{
		Snapshot: h.recognizer.GetMetrics(),
		Learning: h.recognizer.LearningStats(),
	})
}

// ResetMetrics handles POST /v1/metrics/reset.
func (h *Handler) ResetMetrics(c *gin.Context) {
	h.recognizer.ResetMetrics()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ClearCache handles DELETE /v1/cache.
func (h *Handler) ClearCache(c *gin.Context) {
	if err := h.recognizer.ClearCache(c.Request.Context()); err != nil {
		log.Errorf("Failed to clear intent cache: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear cache"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RecentDecisions handles GET /v1/audit/recent?tenant_id=&limit=.
//
// Response:
//   - 200: {"records": [...], "stats": {...}}
//   - 400: Invalid limit
//   - 503: Auditing disabled
func (h *Handler) RecentDecisions(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit collector not enabled"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	records, err := h.audit.GetRecent(ctx, c.Query("tenant_id"), limit)
	if err != nil {
		log.Errorf("Failed to read audit records: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read audit records"})
		return
	}
	stats, err := h.audit.GetStats(ctx)
	if err != nil {
		log.Errorf("Failed to read audit stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read audit stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "stats": stats})
}
