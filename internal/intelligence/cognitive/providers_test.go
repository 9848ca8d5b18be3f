// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cognitive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicCompleter_Complete(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "{\"intent\":\"price_inquiry\",\"confidence\":0.9}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 9}
		}`)
	}))
	defer srv.Close()

	c, err := NewAnthropicCompleter(ProviderOptions{APIKey: "test", BaseURL: srv.URL})
	require.NoError(t, err)

	reply, err := c.Complete(context.Background(), "system text", "quanto custa")
	require.NoError(t, err)
	assert.Contains(t, reply, "price_inquiry")
	assert.Contains(t, body, "quanto custa")
	assert.Contains(t, body, "system text")
}

func TestAnthropicCompleter_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"type":"error","error":{"type":"api_error","message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewAnthropicCompleter(ProviderOptions{APIKey: "test", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "s", "p")
	assert.Error(t, err)
}

func TestGeminiCompleter_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "generateContent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"intent\":"},{"text":"\"business_hours\"}"}]}}]}`)
	}))
	defer srv.Close()

	c, err := NewGeminiCompleter(context.Background(), ProviderOptions{APIKey: "test", BaseURL: srv.URL})
	require.NoError(t, err)

	reply, err := c.Complete(context.Background(), "system", "que horas abre")
	require.NoError(t, err)
	assert.Equal(t, `{"intent":"business_hours"}`, reply)
}

func TestGeminiCompleter_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	c, err := NewGeminiCompleter(context.Background(), ProviderOptions{APIKey: "test", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "system", "oi")
	assert.ErrorIs(t, err, ErrNoTextInResponse)
}
