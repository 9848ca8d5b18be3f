// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

// Exporter mirrors collector events into Prometheus series.
type Exporter struct {
	recognitions     *prometheus.CounterVec
	recognitionTime  *prometheus.HistogramVec
	engineVotes      *prometheus.CounterVec
	engineLatency    *prometheus.HistogramVec
	routingDecisions *prometheus.CounterVec
}

// NewExporter registers the series on reg.
func NewExporter(reg prometheus.Registerer) *Exporter {
	factory := promauto.With(reg)
	return &Exporter{
		recognitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intentrouter_recognitions_total",
				Help: "Total number of recognized messages",
			},
			[]string{"intent", "source"},
		),
		recognitionTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intentrouter_recognition_duration_seconds",
				Help:    "Duration of intent recognition in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"source"},
		),
		engineVotes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intentrouter_engine_votes_total",
				Help: "Total number of engine votes by outcome",
			},
			[]string{"engine", "status"},
		),
		engineLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intentrouter_engine_latency_seconds",
				Help:    "Latency of individual classification engines in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"engine"},
		),
		routingDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intentrouter_routing_decisions_total",
				Help: "Total number of routing decisions",
			},
			[]string{"domain", "escalation", "priority"},
		),
	}
}

func (e *Exporter) observeRecognition(intent types.IntentType, source Source, processingMs int64) {
	e.recognitions.WithLabelValues(string(intent), string(source)).Inc()
	e.recognitionTime.WithLabelValues(string(source)).Observe(msToSeconds(processingMs))
}

func (e *Exporter) observeEngine(vote types.EngineVote) {
	status := "success"
	if !vote.Succeeded {
		status = "failure"
	}
	e.engineVotes.WithLabelValues(string(vote.Engine), status).Inc()
	e.engineLatency.WithLabelValues(string(vote.Engine)).Observe(msToSeconds(vote.LatencyMs))
}

func (e *Exporter) observeDecision(d *types.RoutingDecision) {
	e.routingDecisions.WithLabelValues(d.PrimaryDomain, string(d.EscalationType), string(d.Priority)).Inc()
}

func msToSeconds(ms int64) float64 {
	return (time.Duration(ms) * time.Millisecond).Seconds()
}
