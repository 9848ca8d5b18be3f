// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/intentrouter/internal/hooks"
)

func TestLogFormatter(t *testing.T) {
	entry := &log.Entry{
		Logger:  log.New(),
		Time:    time.Date(2026, 3, 10, 14, 5, 0, 0, time.UTC),
		Level:   log.WarnLevel,
		Message: "engine failed\n",
		Data:    log.Fields{"request_id": "abcd1234", "tenant_id": "salon-1", "engine": "external_ai"},
	}

	out, err := (&LogFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-03-10 14:05:00] [abcd1234] [warn ] engine failed | engine=external_ai, tenant_id=salon-1\n", string(out))
}

func TestLogFormatter_NoRequestID(t *testing.T) {
	entry := &log.Entry{Logger: log.New(), Time: time.Now(), Level: log.InfoLevel, Message: "ready", Data: log.Fields{}}
	out, err := (&LogFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Contains(t, string(out), "[--------] [info ] ready\n")
}

func TestConfigureLogOutput_File(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, ConfigureLogOutput(true, dir, 1))
	defer func() { require.NoError(t, ConfigureLogOutput(false, "", 0)) }()

	log.Info("written to file")

	data, err := os.ReadFile(filepath.Join(dir, "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestHideAPIKey(t *testing.T) {
	assert.Equal(t, "sk-a...wxyz", HideAPIKey("sk-abcdefghijklmnopqrstuvwxyz"))
	assert.Equal(t, "ab...ef", HideAPIKey("abcdef"))
	assert.Equal(t, "a...c", HideAPIKey("abc"))
	assert.Equal(t, "ab", HideAPIKey("ab"))
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	SetupBaseLogger()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	prev := log.GetLevel()
	log.SetLevel(log.DebugLevel)
	t.Cleanup(func() {
		log.SetOutput(os.Stdout)
		log.SetLevel(prev)
	})
	return &buf
}

func TestGinLogrusLogger(t *testing.T) {
	buf := captureLogs(t)
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinLogrusLogger())
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, RequestID(c)) })
	router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	router.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id", w.Body.String())
	assert.Equal(t, "fixed-id", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 8)

	out := buf.String()
	assert.Contains(t, out, "[fixed-id] [debug]")
	assert.Contains(t, out, "GET /bad")
	assert.True(t, strings.Contains(out, "[warn ]"))
}

func TestSubscribeEvents(t *testing.T) {
	buf := captureLogs(t)
	bus := hooks.NewEventBus()
	defer bus.Shutdown()

	subs := SubscribeEvents(bus)
	assert.Len(t, subs, 3)

	bus.Publish(&hooks.EventContext{
		Event:        hooks.EventEngineFailed,
		RequestID:    "req-7",
		TenantID:     "salon-1",
		Data:         map[string]any{"engine": "external_ai", "latency_ms": int64(2000)},
		ErrorMessage: "engine timed out",
	})

	out := buf.String()
	assert.Contains(t, out, "[req-7] [warn ]")
	assert.Contains(t, out, "engine=external_ai")
	assert.Contains(t, out, "error=engine timed out")
	assert.NotContains(t, out, "latency_ms")
}
