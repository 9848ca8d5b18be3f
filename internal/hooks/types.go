// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hooks

import (
	"time"

	"github.com/expr-lang/expr/vm"
)

// HookEvent defines the type of event that can trigger a hook.
type HookEvent string

const (
	EventIntentRecognized     HookEvent = "intent_recognized"
	EventEngineFailed         HookEvent = "engine_failed"
	EventOrchestratorFallback HookEvent = "orchestrator_fallback"
	EventRoutingDecision      HookEvent = "routing_decision"
	EventEscalationRequired   HookEvent = "escalation_required"
)

// AllEvents lists every event the pipeline publishes.
var AllEvents = []HookEvent{
	EventIntentRecognized,
	EventEngineFailed,
	EventOrchestratorFallback,
	EventRoutingDecision,
	EventEscalationRequired,
}

// HookAction defines the action to be performed when a hook is triggered.
type HookAction string

const (
	ActionNotifyWebhook HookAction = "notify_webhook"
	ActionLogWarning    HookAction = "log_warning"
)

// Hook represents a single automation rule loaded from a YAML file.
type Hook struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description" json:"description"`
	Event       HookEvent  `yaml:"event" json:"event"`
	Condition   string     `yaml:"condition" json:"condition"`
	Action      HookAction `yaml:"action" json:"action"`
	// Tenants restricts the hook to these tenant IDs; empty matches all.
	Tenants []string `yaml:"tenants" json:"tenants,omitempty"`
	// Cooldown suppresses repeated firing for the same tenant, e.g. "10m".
	Cooldown time.Duration  `yaml:"cooldown" json:"cooldown,omitempty"`
	Params   map[string]any `yaml:"params" json:"params"`
	Enabled  bool           `yaml:"enabled" json:"enabled"`

	// FilePath is the source file (not in YAML)
	FilePath string `yaml:"-" json:"file_path,omitempty"`

	program *vm.Program
}

// ConditionEnv is what a hook condition sees. The named fields are lifted
// from the event payload; Data keeps the raw payload for anything else.
//
//	condition: Escalated && Domain == "healthcare" && Hour >= 18
type ConditionEnv struct {
	Event      string
	Timestamp  time.Time
	Hour       int
	RequestID  string
	TenantID   string
	SessionID  string
	Intent     string
	Confidence float64
	Domain     string
	Escalation string
	Escalated  bool
	Priority   string
	Engine     string
	Error      string
	Data       map[string]any
}

// EventContext is the payload of a published event.
type EventContext struct {
	Event        HookEvent      `json:"event"`
	Timestamp    time.Time      `json:"timestamp"`
	RequestID    string         `json:"request_id,omitempty"`
	TenantID     string         `json:"tenant_id,omitempty"`
	SessionID    string         `json:"session_id,omitempty"`
	Data         map[string]any `json:"data"`
	ErrorMessage string         `json:"error,omitempty"`
}

// ActionHandler is a function that executes a hook action.
type ActionHandler func(hook *Hook, ctx *EventContext) error
