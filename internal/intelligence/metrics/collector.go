// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics keeps running counters of the recognition pipeline and
// optionally mirrors them to Prometheus.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

// Source tells where a recognition result came from.
type Source string

const (
	SourceEnsemble Source = "ensemble"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

type intentStats struct {
	count         int64
	confidenceSum float64
}

type engineStats struct {
	calls      int64
	successes  int64
	failures   int64
	latencySum int64
}

// Collector tracks recognition and routing counters.
// Counters are atomics; per-intent and per-engine maps are guarded by mu.
type Collector struct {
	totalRecognitions      atomic.Int64
	successfulRecognitions atomic.Int64
	cacheHits              atomic.Int64
	fallbacks              atomic.Int64
	escalations            atomic.Int64
	decisions              atomic.Int64

	mu                sync.RWMutex
	totalProcessingMs int64
	intents           map[types.IntentType]*intentStats
	engines           map[types.EngineKind]*engineStats
	lastReset         time.Time

	exporter *Exporter
}

// IntentAccuracy summarizes how often and how confidently an intent won.
type IntentAccuracy struct {
	Count             int64   `json:"count"`
	AverageConfidence float64 `json:"average_confidence"`
}

// EnginePerformance summarizes the health of one engine.
type EnginePerformance struct {
	Calls            int64   `json:"calls"`
	Successes        int64   `json:"successes"`
	Failures         int64   `json:"failures"`
	SuccessRate      float64 `json:"success_rate"`
	AverageLatencyMs float64 `json:"average_latency_ms"`
}

// Snapshot is a point-in-time copy of a Collector.
type Snapshot struct {
	TotalRecognitions       int64                                  `json:"total_recognitions"`
	SuccessfulRecognitions  int64                                  `json:"successful_recognitions"`
	CacheHits               int64                                  `json:"cache_hits"`
	Fallbacks               int64                                  `json:"fallbacks"`
	AverageProcessingTimeMs float64                                `json:"average_processing_time_ms"`
	IntentAccuracy          map[types.IntentType]IntentAccuracy    `json:"intent_accuracy"`
	EnginePerformance       map[types.EngineKind]EnginePerformance `json:"engine_performance"`
	RoutingDecisions        int64                                  `json:"routing_decisions"`
	Escalations             int64                                  `json:"escalations"`
	LastReset               time.Time                              `json:"last_reset"`
}

// NewCollector creates a collector. exporter may be nil.
func NewCollector(exporter *Exporter) *Collector {
	return &Collector{
		intents:   make(map[types.IntentType]*intentStats),
		engines:   make(map[types.EngineKind]*engineStats),
		lastReset: time.Now(),
		exporter:  exporter,
	}
}

// RecordRecognition counts one finished recognizeIntent call.
// success is false when no engine produced a usable vote.
func (c *Collector) RecordRecognition(intent *types.Intent, source Source, processingMs int64, success bool) {
	c.totalRecognitions.Add(1)
	if success {
		c.successfulRecognitions.Add(1)
	}
	switch source {
	case SourceCache:
		c.cacheHits.Add(1)
	case SourceFallback:
		c.fallbacks.Add(1)
	}

	c.mu.Lock()
	c.totalProcessingMs += processingMs
	if intent != nil {
		st, ok := c.intents[intent.Type]
		if !ok {
			st = &intentStats{}
			c.intents[intent.Type] = st
		}
		st.count++
		st.confidenceSum += intent.Confidence
	}
	c.mu.Unlock()

	if c.exporter != nil && intent != nil {
		c.exporter.observeRecognition(intent.Type, source, processingMs)
	}
}

// RecordEngine counts one engine vote.
func (c *Collector) RecordEngine(vote types.EngineVote) {
	c.mu.Lock()
	st, ok := c.engines[vote.Engine]
	if !ok {
		st = &engineStats{}
		c.engines[vote.Engine] = st
	}
	st.calls++
	if vote.Succeeded {
		st.successes++
	} else {
		st.failures++
	}
	st.latencySum += vote.LatencyMs
	c.mu.Unlock()

	if c.exporter != nil {
		c.exporter.observeEngine(vote)
	}
}

// RecordDecision counts one routing decision.
func (c *Collector) RecordDecision(d *types.RoutingDecision) {
	if d == nil {
		return
	}
	c.decisions.Add(1)
	if d.EscalationRequired {
		c.escalations.Add(1)
	}
	if c.exporter != nil {
		c.exporter.observeDecision(d)
	}
}

// Snapshot returns the current counters.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{
		TotalRecognitions:      c.totalRecognitions.Load(),
		SuccessfulRecognitions: c.successfulRecognitions.Load(),
		CacheHits:              c.cacheHits.Load(),
		Fallbacks:              c.fallbacks.Load(),
		RoutingDecisions:       c.decisions.Load(),
		Escalations:            c.escalations.Load(),
		IntentAccuracy:         make(map[types.IntentType]IntentAccuracy),
		EnginePerformance:      make(map[types.EngineKind]EnginePerformance),
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	s.LastReset = c.lastReset
	if s.TotalRecognitions > 0 {
		s.AverageProcessingTimeMs = float64(c.totalProcessingMs) / float64(s.TotalRecognitions)
	}
	for t, st := range c.intents {
		s.IntentAccuracy[t] = IntentAccuracy{
			Count:             st.count,
			AverageConfidence: st.confidenceSum / float64(st.count),
		}
	}
	for k, st := range c.engines {
		s.EnginePerformance[k] = EnginePerformance{
			Calls:            st.calls,
			Successes:        st.successes,
			Failures:         st.failures,
			SuccessRate:      float64(st.successes) / float64(st.calls),
			AverageLatencyMs: float64(st.latencySum) / float64(st.calls),
		}
	}
	return s
}

// Reset zeroes every counter. Prometheus series are cumulative and are not
// reset.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRecognitions.Store(0)
	c.successfulRecognitions.Store(0)
	c.cacheHits.Store(0)
	c.fallbacks.Store(0)
	c.decisions.Store(0)
	c.escalations.Store(0)
	c.totalProcessingMs = 0
	c.intents = make(map[types.IntentType]*intentStats)
	c.engines = make(map[types.EngineKind]*engineStats)
	c.lastReset = time.Now()
}
