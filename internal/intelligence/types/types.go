// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package types defines the shared data model of the intent classification and
// routing pipeline: the closed intent catalog, entities, conversation context,
// engine votes and routing decisions.
package types

import (
	"slices"
	"time"
)

// IntentType is one value of the closed intent catalog.
type IntentType string

const (
	IntentBookingRequest    IntentType = "booking_request"
	IntentBookingCancel     IntentType = "booking_cancel"
	IntentBookingReschedule IntentType = "booking_reschedule"
	IntentBookingInquiry    IntentType = "booking_inquiry"
	IntentServiceInquiry    IntentType = "service_inquiry"
	IntentAvailabilityCheck IntentType = "availability_check"
	IntentPriceInquiry      IntentType = "price_inquiry"
	IntentBusinessHours     IntentType = "business_hours"
	IntentLocationInquiry   IntentType = "location_inquiry"
	IntentGeneralGreeting   IntentType = "general_greeting"
	IntentComplaint         IntentType = "complaint"
	IntentCompliment        IntentType = "compliment"
	IntentEscalationRequest IntentType = "escalation_request"
	IntentEmergency         IntentType = "emergency"
	IntentOther             IntentType = "other"
)

// Catalog lists every intent type in declaration order. Tie-breaks across the
// pipeline use this order.
var Catalog = []IntentType{
	IntentBookingRequest,
	IntentBookingCancel,
	IntentBookingReschedule,
	IntentBookingInquiry,
	IntentServiceInquiry,
	IntentAvailabilityCheck,
	IntentPriceInquiry,
	IntentBusinessHours,
	IntentLocationInquiry,
	IntentGeneralGreeting,
	IntentComplaint,
	IntentCompliment,
	IntentEscalationRequest,
	IntentEmergency,
	IntentOther,
}

var catalogIndex = func() map[IntentType]int {
	idx := make(map[IntentType]int, len(Catalog))
	for i, t := range Catalog {
		idx[t] = i
	}
	return idx
}()

// CatalogIndex returns the declaration position of t, or len(Catalog) for
// values outside the catalog.
func CatalogIndex(t IntentType) int {
	if i, ok := catalogIndex[t]; ok {
		return i
	}
	return len(Catalog)
}

// ParseIntentType maps a raw string onto the catalog. Unknown values map to
// IntentOther and ok=false.
func ParseIntentType(s string) (IntentType, bool) {
	t := IntentType(s)
	if _, ok := catalogIndex[t]; ok {
		return t, true
	}
	return IntentOther, false
}

// Business domains known to the routing layer.
const (
	DomainHealthcare = "healthcare"
	DomainBeauty     = "beauty"
	DomainLegal      = "legal"
	DomainFitness    = "fitness"
	DomainEducation  = "education"
	DomainAutomotive = "automotive"
	DomainOther      = "other"
)

// Entity is a typed span extracted from a normalized message.
type Entity struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
}

// Message is one turn of the conversation history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// TenantConfig is the read-only per-tenant configuration supplied by the host.
type TenantConfig struct {
	Domain             string              `json:"domain,omitempty" yaml:"domain"`
	AIPersonality      string              `json:"ai_personality,omitempty" yaml:"ai-personality"`
	EscalationTriggers []string            `json:"escalation_triggers,omitempty" yaml:"escalation-triggers"`
	DomainKeywords     map[string][]string `json:"domain_keywords,omitempty" yaml:"domain-keywords"`
	// RoutingRules are boolean expressions evaluated by the router; a match
	// escalates with the rule's outcome.
	RoutingRules []CustomRule `json:"routing_rules,omitempty" yaml:"routing-rules"`
	Timezone     string       `json:"timezone,omitempty" yaml:"timezone"`
}

// CustomRule is a tenant supplied escalation rule.
type CustomRule struct {
	Name       string         `json:"name" yaml:"name"`
	Condition  string         `json:"condition" yaml:"condition"`
	Escalation EscalationType `json:"escalation" yaml:"escalation"`
}

// ConversationContext is the per-conversation state passed in by the caller.
// The pipeline only reads it.
type ConversationContext struct {
	SessionID           string        `json:"session_id"`
	UserID              string        `json:"user_id"`
	TenantID            string        `json:"tenant_id"`
	ConversationHistory []Message     `json:"conversation_history,omitempty"`
	TenantConfig        *TenantConfig `json:"tenant_config,omitempty"`
	LastIntent          IntentType    `json:"last_intent,omitempty"`
}

// TenantDomain returns the configured tenant domain, or "".
func (c *ConversationContext) TenantDomain() string {
	if c == nil || c.TenantConfig == nil {
		return ""
	}
	return c.TenantConfig.Domain
}

// Turn returns the 1-based turn number of the message being classified.
func (c *ConversationContext) Turn() int {
	if c == nil {
		return 1
	}
	return len(c.ConversationHistory) + 1
}

// AlternativeIntent is a runner-up of the ensemble vote.
type AlternativeIntent struct {
	Type  IntentType `json:"type"`
	Score float64    `json:"score"`
}

// IntentContext carries the conversational facts attached to an Intent.
type IntentContext struct {
	BusinessDomain     string              `json:"business_domain,omitempty"`
	ConversationTurn   int                 `json:"conversation_turn"`
	AlternativeIntents []AlternativeIntent `json:"alternative_intents,omitempty"`
	EngineConsensus    int                 `json:"engine_consensus"`
}

// IntentMetadata records how an Intent was produced.
type IntentMetadata struct {
	RequestID        string       `json:"request_id,omitempty"`
	PerEngineResults []EngineVote `json:"per_engine_results,omitempty"`
	Enhanced         bool         `json:"enhanced"`
	FromCache        bool         `json:"from_cache"`
	ProcessingTimeMs int64        `json:"processing_time_ms"`
	Reasoning        string       `json:"reasoning,omitempty"`
}

// Intent is the classified purpose of a message.
type Intent struct {
	Type       IntentType     `json:"type"`
	Confidence float64        `json:"confidence"`
	Entities   []Entity       `json:"entities"`
	Context    IntentContext  `json:"context"`
	Metadata   IntentMetadata `json:"metadata"`
}

// NewIntent returns an intent with no entities.
func NewIntent(t IntentType, confidence float64) *Intent {
	return &Intent{Type: t, Confidence: confidence, Entities: []Entity{}}
}

// Clone returns a deep copy so cached values cannot be mutated by callers.
func (i *Intent) Clone() *Intent {
	if i == nil {
		return nil
	}
	out := *i
	out.Entities = slices.Clone(i.Entities)
	out.Context.AlternativeIntents = slices.Clone(i.Context.AlternativeIntents)
	if i.Metadata.PerEngineResults != nil {
		out.Metadata.PerEngineResults = make([]EngineVote, len(i.Metadata.PerEngineResults))
		for k, v := range i.Metadata.PerEngineResults {
			v.Intent = v.Intent.Clone()
			out.Metadata.PerEngineResults[k] = v
		}
	}
	return &out
}

// EngineKind identifies a classifier variant.
type EngineKind string

const (
	EnginePattern     EngineKind = "pattern"
	EngineStatistical EngineKind = "statistical"
	EngineExternalAI  EngineKind = "external_ai"
)

// EngineVote is one engine's contribution to a single ensemble run.
type EngineVote struct {
	Engine    EngineKind `json:"engine"`
	Weight    float64    `json:"weight"`
	Intent    *Intent    `json:"intent"`
	LatencyMs int64      `json:"latency_ms"`
	Succeeded bool       `json:"succeeded"`
	Error     string     `json:"error,omitempty"`
}

// EscalationType is the terminal state of the escalation decision table.
type EscalationType string

const (
	EscalationNone          EscalationType = "none"
	EscalationImmediate     EscalationType = "immediate"
	EscalationHumanReview   EscalationType = "human_review"
	EscalationHumanAgent    EscalationType = "human_agent"
	EscalationMedicalReview EscalationType = "medical_review"
	EscalationSupervisor    EscalationType = "supervisor"
)

// Priority of a routing decision.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// SuggestedAction is a next step proposed to the host application.
type SuggestedAction struct {
	Action   string   `json:"action"`
	Priority Priority `json:"priority"`
}

// ConfidenceFactors explains the decision confidence.
type ConfidenceFactors struct {
	BaseConfidence  float64 `json:"base_confidence"`
	EntityCount     int     `json:"entity_count"`
	EngineConsensus int     `json:"engine_consensus"`
}

// DecisionMetadata is the audit trail of a routing decision.
type DecisionMetadata struct {
	DecisionID        string            `json:"decision_id"`
	RulesApplied      []string          `json:"rules_applied"`
	ConfidenceFactors ConfidenceFactors `json:"confidence_factors"`
	ProcessingTimeMs  int64             `json:"processing_time_ms"`
	Fallback          bool              `json:"fallback,omitempty"`
}

// RoutingDecision is the handling decision derived from an Intent.
type RoutingDecision struct {
	PrimaryDomain      string            `json:"primary_domain"`
	AlternativeDomains []string          `json:"alternative_domains"`
	EscalationRequired bool              `json:"escalation_required"`
	EscalationType     EscalationType    `json:"escalation_type"`
	Confidence         float64           `json:"confidence"`
	Priority           Priority          `json:"priority"`
	SuggestedActions   []SuggestedAction `json:"suggested_actions"`
	Metadata           DecisionMetadata  `json:"metadata"`
}

// Clone returns a deep copy of the decision.
func (d *RoutingDecision) Clone() *RoutingDecision {
	if d == nil {
		return nil
	}
	out := *d
	out.AlternativeDomains = slices.Clone(d.AlternativeDomains)
	out.SuggestedActions = slices.Clone(d.SuggestedActions)
	out.Metadata.RulesApplied = slices.Clone(d.Metadata.RulesApplied)
	return &out
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
