// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const escalationHook = `id: staff-alert
name: Staff alert
event: escalation_required
condition: Data.escalation == "supervisor" && TenantID == "clinic-1"
action: notify_webhook
enabled: true
params:
  url: %s
  secret: s3cret
`

func writeHook(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestHookManager_LoadHooks(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "a.yaml", "id: a\nname: A\nevent: engine_failed\naction: log_warning\nenabled: true\n")
	writeHook(t, dir, "b.yml", "id: b\nname: B\nevent: engine_failed\naction: log_warning\nenabled: false\n")
	writeHook(t, dir, "broken.yaml", "id: [unterminated\n")
	writeHook(t, dir, "notes.txt", "ignored")

	m, err := NewHookManager(dir, NewEventBus())
	require.NoError(t, err)
	require.NoError(t, m.LoadHooks())

	hooks := m.GetHooks()
	require.Len(t, hooks, 1)
	assert.Equal(t, "a", hooks[0].ID)
	assert.NotNil(t, m.GetHook("a"))
	assert.Nil(t, m.GetHook("b"))
}

func TestHookManager_LoadHooksCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "hooks")
	m, err := NewHookManager(dir, NewEventBus())
	require.NoError(t, err)
	require.NoError(t, m.LoadHooks())
	assert.DirExists(t, dir)
	assert.Equal(t, dir, m.GetHooksDir())
}

func TestHookManager_EvaluateCondition(t *testing.T) {
	m, err := NewHookManager(t.TempDir(), NewEventBus())
	require.NoError(t, err)

	ctx := &EventContext{
		Event:    EventEscalationRequired,
		TenantID: "clinic-1",
		Data:     map[string]any{"escalation": "supervisor", "confidence": 0.9},
	}

	tests := []struct {
		condition string
		want      bool
		wantErr   bool
	}{
		{"", true, false},
		{"true", true, false},
		{`Data.escalation == "supervisor"`, true, false},
		{`TenantID == "other"`, false, false},
		{`Data.confidence > 0.8`, true, false},
		{`Event == "escalation_required" && Error == ""`, true, false},
		{`Data.escalation`, false, true},
		{`(((`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			got, err := m.EvaluateCondition(&Hook{Condition: tt.condition}, ctx)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHookManager_DispatchesWebhook(t *testing.T) {
	var hits int32
	var body []byte
	var signature string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		signature = r.Header.Get("X-Hook-Signature")
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeHook(t, dir, "alert.yaml", fmt.Sprintf(escalationHook, srv.URL))

	bus := NewEventBus()
	defer bus.Shutdown()
	m, err := NewHookManager(dir, bus)
	require.NoError(t, err)
	require.NoError(t, m.LoadHooks())
	m.SubscribeToAllEvents()

	bus.Publish(&EventContext{
		Event:    EventEscalationRequired,
		TenantID: "other-tenant",
		Data:     map[string]any{"escalation": "supervisor"},
	})
	bus.Publish(&EventContext{
		Event:     EventEscalationRequired,
		TenantID:  "clinic-1",
		RequestID: "req-1",
		Data:      map[string]any{"escalation": "supervisor"},
	})

	require.Eventually(t, func() bool { return atomic.LoadInt32(&hits) == 1 }, 2*time.Second, 10*time.Millisecond)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "escalation_required", payload["event"])
	assert.Equal(t, "staff-alert", payload["hook_id"])
	assert.Equal(t, "clinic-1", payload["tenant_id"])
	assert.Equal(t, "req-1", payload["request_id"])

	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write(body)
	assert.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), signature)
}

func TestWebhookHandler_RetriesThenFails(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	h := NewWebhookHandler()
	h.backoff = []time.Duration{time.Millisecond, time.Millisecond}

	err := h.Handle(&Hook{ID: "x", Params: map[string]any{"url": srv.URL}}, &EventContext{Event: EventEngineFailed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after retries")
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestWebhookHandler_RejectsInsecureAndMissingURL(t *testing.T) {
	h := NewWebhookHandler()
	assert.Error(t, h.Handle(&Hook{Params: map[string]any{}}, &EventContext{}))
	assert.Error(t, h.Handle(&Hook{Params: map[string]any{"url": "http://example.com/hook"}}, &EventContext{}))
}

func TestWebhookHandler_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := NewWebhookHandler()
	hook := &Hook{Params: map[string]any{"url": srv.URL}}
	for i := 0; i < webhookRateLimit; i++ {
		require.NoError(t, h.Handle(hook, &EventContext{}))
	}
	err := h.Handle(hook, &EventContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestNewConditionEnv_LiftsDecisionPayload(t *testing.T) {
	ts := time.Date(2026, 3, 2, 21, 15, 0, 0, time.UTC)
	env := NewConditionEnv(&EventContext{
		Event:     EventRoutingDecision,
		Timestamp: ts,
		TenantID:  "clinic-1",
		Data: map[string]any{
			"intent_type": "emergency",
			"intent":      struct{}{},
			"confidence":  0.45,
			"domain":      "healthcare",
			"escalation":  "immediate",
			"priority":    "critical",
		},
	})

	assert.Equal(t, "routing_decision", env.Event)
	assert.Equal(t, 21, env.Hour)
	assert.Equal(t, "emergency", env.Intent)
	assert.Equal(t, 0.45, env.Confidence)
	assert.Equal(t, "healthcare", env.Domain)
	assert.Equal(t, "immediate", env.Escalation)
	assert.True(t, env.Escalated)
	assert.Equal(t, "critical", env.Priority)

	env = NewConditionEnv(&EventContext{Event: EventIntentRecognized, Data: map[string]any{"intent": "complaint", "escalation": "none"}})
	assert.Equal(t, "complaint", env.Intent)
	assert.False(t, env.Escalated)
	assert.NotNil(t, env.Data)
}

func TestHookManager_DomainConditions(t *testing.T) {
	m, err := NewHookManager(t.TempDir(), NewEventBus())
	require.NoError(t, err)

	evt := &EventContext{
		Event:     EventEscalationRequired,
		Timestamp: time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC),
		TenantID:  "clinic-1",
		Data: map[string]any{
			"intent_type": "booking_request",
			"confidence":  0.4,
			"domain":      "healthcare",
			"escalation":  "medical_review",
			"priority":    "low",
		},
	}
	tests := []struct {
		condition string
		want      bool
	}{
		{`Escalated && Domain == "healthcare"`, true},
		{`Escalation == "medical_review" && Confidence < 0.5`, true},
		{`Intent in ["emergency", "complaint"]`, false},
		{`Hour >= 18 || Hour < 8`, true},
		{`Priority == "critical"`, false},
		{`Data.domain == Domain`, true},
	}
	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			got, err := m.EvaluateCondition(&Hook{Condition: tt.condition}, evt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHookManager_RejectsInvalidHooks(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "ok.yaml", "id: ok\nevent: escalation_required\naction: log_warning\nenabled: true\ncondition: Escalated\n")
	writeHook(t, dir, "typo.yaml", "id: typo\nevent: escalation_required\naction: log_warning\nenabled: true\ncondition: Escalatd\n")
	writeHook(t, dir, "number.yaml", "id: number\nevent: escalation_required\naction: log_warning\nenabled: true\ncondition: Confidence + 1\n")
	writeHook(t, dir, "event.yaml", "id: event\nevent: booking_created\naction: log_warning\nenabled: true\n")
	writeHook(t, dir, "action.yaml", "id: action\nevent: escalation_required\naction: send_sms\nenabled: true\n")
	writeHook(t, dir, "noid.yaml", "event: escalation_required\naction: log_warning\nenabled: true\n")
	writeHook(t, dir, "zz-dup.yaml", "id: ok\nevent: routing_decision\naction: log_warning\nenabled: true\n")

	m, err := NewHookManager(dir, NewEventBus())
	require.NoError(t, err)
	require.NoError(t, m.LoadHooks())

	hooks := m.GetHooks()
	require.Len(t, hooks, 1)
	assert.Equal(t, "ok", hooks[0].ID)
	assert.Equal(t, EventEscalationRequired, hooks[0].Event)
}

// recordingManager loads hooks that use a "record" action capturing every
// firing.
func recordingManager(t *testing.T, bus *EventBus, files map[string]string) (*HookManager, func() []string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeHook(t, dir, name, content)
	}
	m, err := NewHookManager(dir, bus)
	require.NoError(t, err)

	var mu sync.Mutex
	var fired []string
	m.RegisterAction("record", func(hook *Hook, evt *EventContext) error {
		mu.Lock()
		defer mu.Unlock()
		fired = append(fired, hook.ID+"@"+evt.TenantID)
		return nil
	})
	require.NoError(t, m.LoadHooks())
	m.SubscribeToAllEvents()
	return m, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), fired...)
	}
}

func TestHookManager_TenantScopeAndCooldown(t *testing.T) {
	bus := NewEventBus()
	defer bus.Shutdown()
	m, fired := recordingManager(t, bus, map[string]string{
		"clinic.yaml": "id: clinic\nevent: escalation_required\naction: record\nenabled: true\ntenants: [clinic-1]\ncondition: Escalated\n",
		"storm.yaml":  "id: storm\nevent: escalation_required\naction: record\nenabled: true\ncooldown: 10m\n",
	})
	clock := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	publish := func(tenant string) {
		bus.Publish(&EventContext{Event: EventEscalationRequired, TenantID: tenant, Data: map[string]any{"escalation": "supervisor"}})
	}
	publish("clinic-1")
	publish("salon-9")
	publish("clinic-1")
	clock = clock.Add(11 * time.Minute)
	publish("salon-9")
	m.Close()

	assert.ElementsMatch(t, []string{
		"clinic@clinic-1", "storm@clinic-1",
		"storm@salon-9",
		"clinic@clinic-1",
		"storm@salon-9",
	}, fired())
}

func TestHookManager_ListSortedWithDurations(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "b.yaml", "id: b-hook\nevent: engine_failed\naction: log_warning\nenabled: true\ncooldown: 90s\n")
	writeHook(t, dir, "a.yaml", "id: c-hook\nevent: routing_decision\naction: log_warning\nenabled: true\n")
	writeHook(t, dir, "c.yaml", "id: a-hook\nevent: intent_recognized\naction: log_warning\nenabled: true\n")

	m, err := NewHookManager(dir, NewEventBus())
	require.NoError(t, err)
	require.NoError(t, m.LoadHooks())

	var ids []string
	for _, h := range m.GetHooks() {
		ids = append(ids, h.ID)
	}
	assert.Equal(t, []string{"a-hook", "b-hook", "c-hook"}, ids)
	assert.Equal(t, 90*time.Second, m.GetHook("b-hook").Cooldown)
}
