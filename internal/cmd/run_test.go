// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/intentrouter/internal/config"
)

const warnOnEscalation = `id: warn-escalation
name: Warn on escalation
event: escalation_required
action: log_warning
enabled: true
`

func TestBuild_WiresEveryComponent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	hooksDir := filepath.Join(dir, "hooks")
	require.NoError(t, os.MkdirAll(hooksDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(hooksDir, "warn.yaml"), []byte(warnOnEscalation), 0o644))

	cfg := config.Default()
	cfg.Audit.Enabled = true
	cfg.Audit.DBPath = filepath.Join(dir, "audit.db")
	cfg.Hooks.Enabled = true
	cfg.Hooks.Dir = hooksDir

	app, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { assert.NoError(t, app.Shutdown(context.Background())) }()

	require.NotNil(t, app.Audit)
	require.NotNil(t, app.Hooks)
	assert.Len(t, app.Hooks.GetHooks(), 1)

	body := `{"message":"Socorro! É uma emergência!","context":{"tenant_id":"clinic-1"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/intents/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	app.Server.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"escalation_type":"immediate"`)

	w = httptest.NewRecorder()
	app.Server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "go_goroutines")
	assert.Contains(t, w.Body.String(), "intentrouter_routing_decisions_total")
}

func TestBuild_InvalidWeights(t *testing.T) {
	cfg := config.Default()
	cfg.Intelligence.Weights = config.EngineWeights{}

	app, err := Build(context.Background(), cfg)
	assert.Error(t, err)
	assert.Nil(t, app)
}
