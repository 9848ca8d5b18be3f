// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

func TestCollector_Recognitions(t *testing.T) {
	c := NewCollector(nil)
	c.RecordRecognition(types.NewIntent(types.IntentBookingRequest, 0.9), SourceEnsemble, 30, true)
	c.RecordRecognition(types.NewIntent(types.IntentBookingRequest, 0.7), SourceCache, 0, true)
	c.RecordRecognition(types.NewIntent(types.IntentOther, 0.3), SourceEnsemble, 60, false)

	s := c.Snapshot()
	assert.Equal(t, int64(3), s.TotalRecognitions)
	assert.Equal(t, int64(2), s.SuccessfulRecognitions)
	assert.Equal(t, int64(1), s.CacheHits)
	assert.InDelta(t, 30.0, s.AverageProcessingTimeMs, 1e-9)
	assert.Equal(t, int64(2), s.IntentAccuracy[types.IntentBookingRequest].Count)
	assert.InDelta(t, 0.8, s.IntentAccuracy[types.IntentBookingRequest].AverageConfidence, 1e-9)
}

func TestCollector_EnginePerformance(t *testing.T) {
	c := NewCollector(nil)
	c.RecordEngine(types.EngineVote{Engine: types.EnginePattern, Succeeded: true, LatencyMs: 2})
	c.RecordEngine(types.EngineVote{Engine: types.EngineExternalAI, Succeeded: false, LatencyMs: 100})
	c.RecordEngine(types.EngineVote{Engine: types.EngineExternalAI, Succeeded: true, LatencyMs: 300})

	perf := c.Snapshot().EnginePerformance
	require.Contains(t, perf, types.EngineExternalAI)
	assert.Equal(t, int64(2), perf[types.EngineExternalAI].Calls)
	assert.Equal(t, int64(1), perf[types.EngineExternalAI].Failures)
	assert.InDelta(t, 0.5, perf[types.EngineExternalAI].SuccessRate, 1e-9)
	assert.InDelta(t, 200.0, perf[types.EngineExternalAI].AverageLatencyMs, 1e-9)
	assert.Equal(t, 1.0, perf[types.EnginePattern].SuccessRate)
}

func TestCollector_DecisionsAndReset(t *testing.T) {
	c := NewCollector(nil)
	c.RecordDecision(&types.RoutingDecision{EscalationRequired: true})
	c.RecordDecision(&types.RoutingDecision{})
	c.RecordDecision(nil)
	c.RecordRecognition(types.NewIntent(types.IntentOther, 0.5), SourceFallback, 5, true)

	s := c.Snapshot()
	assert.Equal(t, int64(2), s.RoutingDecisions)
	assert.Equal(t, int64(1), s.Escalations)
	assert.Equal(t, int64(1), s.Fallbacks)

	before := s.LastReset
	c.Reset()
	s = c.Snapshot()
	assert.Zero(t, s.TotalRecognitions)
	assert.Zero(t, s.RoutingDecisions)
	assert.Empty(t, s.IntentAccuracy)
	assert.Empty(t, s.EnginePerformance)
	assert.False(t, s.LastReset.Before(before))
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector(nil)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.RecordRecognition(types.NewIntent(types.IntentComplaint, 0.5), SourceEnsemble, 1, true)
				c.RecordEngine(types.EngineVote{Engine: types.EnginePattern, Succeeded: true})
				_ = c.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1000), c.Snapshot().TotalRecognitions)
}

func TestExporter(t *testing.T) {
	reg := prometheus.NewRegistry()
	exp := NewExporter(reg)
	c := NewCollector(exp)

	c.RecordRecognition(types.NewIntent(types.IntentEmergency, 1), SourceEnsemble, 12, true)
	c.RecordEngine(types.EngineVote{Engine: types.EngineStatistical, Succeeded: false, LatencyMs: 4})
	c.RecordDecision(&types.RoutingDecision{PrimaryDomain: "healthcare", EscalationType: types.EscalationImmediate, Priority: types.PriorityCritical})

	assert.Equal(t, 1.0, testutil.ToFloat64(exp.recognitions.WithLabelValues("emergency", "ensemble")))
	assert.Equal(t, 1.0, testutil.ToFloat64(exp.engineVotes.WithLabelValues("statistical", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(exp.routingDecisions.WithLabelValues("healthcare", "immediate", "critical")))

	c.Reset()
	assert.Equal(t, 1.0, testutil.ToFloat64(exp.recognitions.WithLabelValues("emergency", "ensemble")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
