// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/intentrouter/internal/hooks"
)

// SubscribeEvents logs pipeline events that need operator attention.
func SubscribeEvents(bus *hooks.EventBus) []*hooks.Subscription {
	logEvent := func(level log.Level, msg string) func(*hooks.EventContext) {
		return func(evt *hooks.EventContext) {
			fields := log.Fields{
				"request_id": evt.RequestID,
				"tenant_id":  evt.TenantID,
			}
			for _, k := range []string{"engine", "intent", "intent_type", "domain", "escalation", "priority"} {
				if v, ok := evt.Data[k].(string); ok {
					fields[k] = v
				}
			}
			if evt.ErrorMessage != "" {
				fields["error"] = evt.ErrorMessage
			}
			log.WithFields(fields).Log(level, msg)
		}
	}
	return []*hooks.Subscription{
		bus.Subscribe(hooks.EventEngineFailed, logEvent(log.WarnLevel, "engine failed")),
		bus.Subscribe(hooks.EventOrchestratorFallback, logEvent(log.ErrorLevel, "orchestrator fell back to pattern matching")),
		bus.Subscribe(hooks.EventEscalationRequired, logEvent(log.InfoLevel, "escalation required")),
	}
}
