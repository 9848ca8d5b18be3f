// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package routing turns a classified intent into a handling decision: business
// domain, alternative domains, escalation, priority and suggested actions.
package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/intentrouter/internal/config"
	"github.com/traylinx/intentrouter/internal/hooks"
	"github.com/traylinx/intentrouter/internal/intelligence/metrics"
	"github.com/traylinx/intentrouter/internal/intelligence/pattern"
	"github.com/traylinx/intentrouter/internal/intelligence/textnorm"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

// ErrNilIntent is reported when Route is called without an intent.
var ErrNilIntent = errors.New("routing: nil intent")

// Options wires a Router. Zero values fall back to the defaults of
// config.RoutingConfig.
type Options struct {
	BusinessHoursStart int
	BusinessHoursEnd   int
	Location           *time.Location
	LoadThreshold      float64
	LoadSource         LoadSource
	CustomRules        []types.CustomRule
	Metrics            *metrics.Collector
	Events             *hooks.EventBus

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// OptionsFromConfig maps the routing configuration onto Options.
func OptionsFromConfig(cfg config.RoutingConfig) Options {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return Options{
		BusinessHoursStart: cfg.BusinessHoursStart,
		BusinessHoursEnd:   cfg.BusinessHoursEnd,
		Location:           loc,
		LoadThreshold:      cfg.LoadThreshold,
		LoadSource:         ConstantLoad(cfg.StaticLoad),
		CustomRules:        cfg.CustomRules,
	}
}

// Router is the routing decision engine. It is safe for concurrent use.
type Router struct {
	hoursStart    int
	hoursEnd      int
	location      *time.Location
	loadThreshold float64
	load          LoadSource
	customRules   []types.CustomRule
	evaluator     *ConditionEvaluator
	metrics       *metrics.Collector
	events        *hooks.EventBus
	now           func() time.Time
}

// NewRouter creates a router.
func NewRouter(opts Options) *Router {
	r := &Router{
		hoursStart:    opts.BusinessHoursStart,
		hoursEnd:      opts.BusinessHoursEnd,
		location:      opts.Location,
		loadThreshold: opts.LoadThreshold,
		load:          opts.LoadSource,
		customRules:   opts.CustomRules,
		evaluator:     NewConditionEvaluator(),
		metrics:       opts.Metrics,
		events:        opts.Events,
		now:           opts.Now,
	}
	if r.hoursStart == 0 && r.hoursEnd == 0 {
		r.hoursStart, r.hoursEnd = 8, 18
	}
	if r.location == nil {
		r.location = time.UTC
	}
	if r.loadThreshold <= 0 {
		r.loadThreshold = 0.8
	}
	if r.load == nil {
		r.load = ConstantLoad(0)
	}
	if r.now == nil {
		r.now = time.Now
	}
	for _, rule := range r.customRules {
		if _, err := r.evaluator.Compile(rule.Condition); err != nil {
			log.Warnf("Custom routing rule %q will never match: %v", rule.Name, err)
		}
	}
	return r
}

// Route derives the routing decision for intent. It never fails: an internal
// error or panic yields a safe default (tenant domain or other, no
// escalation, medium priority, no actions).
func (r *Router) Route(ctx context.Context, intent *types.Intent, convCtx *types.ConversationContext) *types.RoutingDecision {
	start := r.now()
	decision, err := r.route(ctx, intent, convCtx, start)
	if err != nil {
		log.WithField("tenant_id", tenantID(convCtx)).Errorf("routing failed, using safe default: %v", err)
		decision = safeDefault(intent, convCtx)
	}
	decision.Metadata.ProcessingTimeMs = r.now().Sub(start).Milliseconds()

	if r.metrics != nil {
		r.metrics.RecordDecision(decision)
	}
	r.publish(intent, decision, convCtx)
	return decision
}

func (r *Router) route(_ context.Context, intent *types.Intent, convCtx *types.ConversationContext, start time.Time) (d *types.RoutingDecision, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d, err = nil, fmt.Errorf("route: %v", rec)
		}
	}()
	if intent == nil {
		return nil, ErrNilIntent
	}

	f := &facts{
		intent:        intent,
		convCtx:       convCtx,
		primaryDomain: pattern.RouteToDomain(intent, convCtx),
		hour:          start.In(r.locationFor(convCtx)).Hour(),
		load:          r.load.Load(),
		lastUserText:  lastUserMessage(convCtx),
	}
	if convCtx != nil {
		f.turns = len(convCtx.ConversationHistory)
	}

	d = &types.RoutingDecision{
		PrimaryDomain:      f.primaryDomain,
		AlternativeDomains: []string{},
		EscalationType:     types.EscalationNone,
		Confidence:         types.Clamp01(intent.Confidence),
		Priority:           priorityFor(intent),
		Metadata: types.DecisionMetadata{
			DecisionID:   uuid.NewString(),
			RulesApplied: []string{},
			ConfidenceFactors: types.ConfidenceFactors{
				BaseConfidence:  intent.Confidence,
				EntityCount:     len(intent.Entities),
				EngineConsensus: intent.Context.EngineConsensus,
			},
		},
	}

	seen := make(map[string]bool)
	for _, rule := range alternativeRules {
		if !rule.when(r, f) {
			continue
		}
		d.Metadata.RulesApplied = append(d.Metadata.RulesApplied, rule.name)
		if !seen[rule.domain] {
			seen[rule.domain] = true
			d.AlternativeDomains = append(d.AlternativeDomains, rule.domain)
		}
	}

	if name, outcome := r.escalate(f, start); outcome != types.EscalationNone {
		d.EscalationRequired = true
		d.EscalationType = outcome
		d.Metadata.RulesApplied = append(d.Metadata.RulesApplied, name)
	}

	d.SuggestedActions = suggestedActions(f)
	return d, nil
}

// escalate walks the escalation table, then the tenant and global custom rules.
func (r *Router) escalate(f *facts, now time.Time) (string, types.EscalationType) {
	for _, row := range escalationRules {
		if row.when(f) {
			return row.name, row.outcome
		}
	}

	var rules []types.CustomRule
	if f.convCtx != nil && f.convCtx.TenantConfig != nil {
		rules = append(rules, f.convCtx.TenantConfig.RoutingRules...)
	}
	rules = append(rules, r.customRules...)
	if len(rules) == 0 {
		return "", types.EscalationNone
	}

	local := now.In(r.locationFor(f.convCtx))
	env := RuleEnv{
		Intent: IntentEnv{
			Type:        string(f.intent.Type),
			Confidence:  f.intent.Confidence,
			EntityCount: len(f.intent.Entities),
			Consensus:   f.intent.Context.EngineConsensus,
		},
		Domain:      f.primaryDomain,
		TenantID:    tenantID(f.convCtx),
		Turns:       f.turns,
		LastMessage: f.lastUserText,
		Hour:        local.Hour(),
		DayOfWeek:   local.Weekday().String()[:3],
		Load:        f.load,
	}
	for _, rule := range rules {
		if rule.Condition == "" || rule.Escalation == "" || rule.Escalation == types.EscalationNone {
			continue
		}
		ok, err := r.evaluator.Evaluate(rule.Condition, env)
		if err != nil {
			log.Debugf("custom rule %q skipped: %v", rule.Name, err)
			continue
		}
		if ok {
			return "custom:" + rule.Name, rule.Escalation
		}
	}
	return "", types.EscalationNone
}

func (r *Router) locationFor(convCtx *types.ConversationContext) *time.Location {
	if convCtx != nil && convCtx.TenantConfig != nil && convCtx.TenantConfig.Timezone != "" {
		if loc, err := time.LoadLocation(convCtx.TenantConfig.Timezone); err == nil {
			return loc
		}
	}
	return r.location
}

func (r *Router) publish(intent *types.Intent, d *types.RoutingDecision, convCtx *types.ConversationContext) {
	if r.events == nil {
		return
	}
	requestID := ""
	var intentCopy *types.Intent
	if intent != nil {
		requestID = intent.Metadata.RequestID
		intentCopy = intent.Clone()
	}
	data := map[string]any{
		"decision_id": d.Metadata.DecisionID,
		"domain":      d.PrimaryDomain,
		"escalation":  string(d.EscalationType),
		"priority":    string(d.Priority),
		"confidence":  d.Confidence,
		"decision":    d.Clone(),
		"intent":      intentCopy,
	}
	if intent != nil {
		data["intent_type"] = string(intent.Type)
	}
	evt := &hooks.EventContext{
		Event: hooks.EventRoutingDecision,
		// Tenant-local so hook conditions on Hour agree with after_hours.
		Timestamp: r.now().In(r.locationFor(convCtx)),
		RequestID: requestID,
		TenantID:  tenantID(convCtx),
		SessionID: sessionID(convCtx),
		Data:      data,
	}
	r.events.PublishAsync(evt)

	if d.EscalationRequired {
		esc := *evt
		esc.Event = hooks.EventEscalationRequired
		r.events.PublishAsync(&esc)
	}
}

func safeDefault(intent *types.Intent, convCtx *types.ConversationContext) *types.RoutingDecision {
	domain := convCtx.TenantDomain()
	if domain == "" {
		domain = types.DomainOther
	}
	conf := 0.0
	if intent != nil {
		conf = types.Clamp01(intent.Confidence)
	}
	return &types.RoutingDecision{
		PrimaryDomain:      domain,
		AlternativeDomains: []string{},
		EscalationType:     types.EscalationNone,
		Confidence:         conf,
		Priority:           types.PriorityMedium,
		SuggestedActions:   []types.SuggestedAction{},
		Metadata: types.DecisionMetadata{
			DecisionID:   uuid.NewString(),
			RulesApplied: []string{},
			Fallback:     true,
		},
	}
}

func lastUserMessage(convCtx *types.ConversationContext) string {
	if convCtx == nil {
		return ""
	}
	for i := len(convCtx.ConversationHistory) - 1; i >= 0; i-- {
		m := convCtx.ConversationHistory[i]
		if strings.EqualFold(m.Role, "user") {
			return textnorm.Normalize(m.Content)
		}
	}
	return ""
}

func tenantID(c *types.ConversationContext) string {
	if c == nil {
		return ""
	}
	return c.TenantID
}

func sessionID(c *types.ConversationContext) string {
	if c == nil {
		return ""
	}
	return c.SessionID
}
