// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package routing

import (
	"strings"

	"github.com/traylinx/intentrouter/internal/intelligence/pattern"
	"github.com/traylinx/intentrouter/internal/intelligence/textnorm"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

// facts are the inputs every decision table reads.
type facts struct {
	intent        *types.Intent
	convCtx       *types.ConversationContext
	primaryDomain string
	turns         int
	hour          int
	load          float64
	lastUserText  string
}

// alternativeRule adds a domain when its predicate holds. All rules run.
type alternativeRule struct {
	name   string
	when   func(r *Router, f *facts) bool
	domain string
}

var alternativeRules = []alternativeRule{
	{
		name: "after_hours",
		when: func(r *Router, f *facts) bool {
			return f.intent.Type == types.IntentEmergency && (f.hour < r.hoursStart || f.hour > r.hoursEnd)
		},
		domain: types.DomainHealthcare,
	},
	{
		name:   "system_load",
		when:   func(r *Router, f *facts) bool { return f.load > r.loadThreshold },
		domain: types.DomainOther,
	},
	{
		name:   "emergency_priority",
		when:   func(_ *Router, f *facts) bool { return f.intent.Type == types.IntentEmergency },
		domain: types.DomainHealthcare,
	},
	{
		name: "cross_domain_legal",
		when: func(_ *Router, f *facts) bool {
			return pattern.EntitiesMention(f.intent.Entities, pattern.DomainKeywords(types.DomainLegal, f.convCtx))
		},
		domain: types.DomainLegal,
	},
}

// escalationRule is one row of the ordered escalation table; the first
// matching row wins.
type escalationRule struct {
	name    string
	when    func(f *facts) bool
	outcome types.EscalationType
}

var escalationRules = []escalationRule{
	{
		name:    "emergency_escalation",
		when:    func(f *facts) bool { return f.intent.Type == types.IntentEmergency },
		outcome: types.EscalationImmediate,
	},
	{
		name:    "long_conversation_low_confidence",
		when:    func(f *facts) bool { return f.intent.Confidence < 0.6 && f.turns > 6 },
		outcome: types.EscalationHumanReview,
	},
	{
		name:    "explicit_escalation_request",
		when:    func(f *facts) bool { return f.intent.Type == types.IntentEscalationRequest },
		outcome: types.EscalationHumanAgent,
	},
	{
		name: "healthcare_low_confidence",
		when: func(f *facts) bool {
			return f.primaryDomain == types.DomainHealthcare && f.intent.Confidence < 0.5
		},
		outcome: types.EscalationMedicalReview,
	},
	{
		name:    "tenant_escalation_trigger",
		when:    tenantTriggerHit,
		outcome: types.EscalationSupervisor,
	},
}

func tenantTriggerHit(f *facts) bool {
	if f.convCtx == nil || f.convCtx.TenantConfig == nil || f.lastUserText == "" {
		return false
	}
	padded := " " + f.lastUserText + " "
	for _, trigger := range f.convCtx.TenantConfig.EscalationTriggers {
		if t := textnorm.Normalize(trigger); t != "" && strings.Contains(padded, " "+t+" ") {
			return true
		}
	}
	return false
}

// priorityRule is one row of the ordered priority table.
type priorityRule struct {
	when     func(in *types.Intent) bool
	priority types.Priority
}

var priorityRules = []priorityRule{
	{func(in *types.Intent) bool { return in.Type == types.IntentEmergency }, types.PriorityCritical},
	{func(in *types.Intent) bool { return in.Type == types.IntentEscalationRequest }, types.PriorityHigh},
	{func(in *types.Intent) bool { return in.Confidence > 0.8 }, types.PriorityHigh},
	{func(in *types.Intent) bool { return in.Confidence > 0.6 }, types.PriorityMedium},
}

func priorityFor(in *types.Intent) types.Priority {
	for _, row := range priorityRules {
		if row.when(in) {
			return row.priority
		}
	}
	return types.PriorityLow
}

func action(name string, p types.Priority) types.SuggestedAction {
	return types.SuggestedAction{Action: name, Priority: p}
}

// intentActions are the suggested next steps per intent type.
var intentActions = map[types.IntentType][]types.SuggestedAction{
	types.IntentBookingRequest:    {action("check_availability", types.PriorityHigh), action("collect_booking_details", types.PriorityMedium)},
	types.IntentBookingCancel:     {action("confirm_cancellation", types.PriorityHigh)},
	types.IntentBookingReschedule: {action("check_availability", types.PriorityHigh), action("confirm_reschedule", types.PriorityMedium)},
	types.IntentBookingInquiry:    {action("lookup_booking", types.PriorityMedium)},
	types.IntentServiceInquiry:    {action("send_service_catalog", types.PriorityMedium)},
	types.IntentAvailabilityCheck: {action("check_availability", types.PriorityHigh)},
	types.IntentPriceInquiry:      {action("provide_pricing", types.PriorityMedium)},
	types.IntentBusinessHours:     {action("send_business_hours", types.PriorityLow)},
	types.IntentLocationInquiry:   {action("send_location", types.PriorityLow)},
	types.IntentGeneralGreeting:   {action("send_greeting", types.PriorityLow)},
	types.IntentComplaint:         {action("log_complaint", types.PriorityHigh), action("offer_support", types.PriorityMedium)},
	types.IntentCompliment:        {action("send_thanks", types.PriorityLow)},
	types.IntentEscalationRequest: {action("transfer_to_human", types.PriorityHigh)},
	types.IntentEmergency:         {action("escalate_immediately", types.PriorityCritical), action("send_emergency_instructions", types.PriorityCritical)},
	types.IntentOther:             {action("ask_clarification", types.PriorityLow)},
}

func suggestedActions(f *facts) []types.SuggestedAction {
	out := append([]types.SuggestedAction{}, intentActions[f.intent.Type]...)
	if f.convCtx == nil || len(f.convCtx.ConversationHistory) == 0 {
		for _, a := range out {
			if a.Action == "send_greeting" {
				return out
			}
		}
		out = append(out, action("send_greeting", types.PriorityLow))
	}
	return out
}
