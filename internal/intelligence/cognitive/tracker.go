// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cognitive

import (
	"sync"
)

const (
	lowConfidenceMark  = 0.60
	highConfidenceMark = 0.90
)

// Tracker records the confidence distribution of parsed replies.
type Tracker struct {
	mu sync.RWMutex
	// Metrics
	totalClassifications int
	confidenceSum        float64
	lowConfidenceCount   int // < 0.60
	highConfidenceCount  int // > 0.90
	malformedCount       int
}

// TrackerStats is a snapshot of a Tracker.
type TrackerStats struct {
	TotalClassifications int     `json:"total_classifications"`
	AverageConfidence    float64 `json:"average_confidence"`
	LowConfidenceCount   int     `json:"low_confidence_count"`
	HighConfidenceCount  int     `json:"high_confidence_count"`
	MalformedCount       int     `json:"malformed_count"`
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Record adds one parsed reply.
func (t *Tracker) Record(confidence float64, malformed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.totalClassifications++
	t.confidenceSum += confidence
	if confidence < lowConfidenceMark {
		t.lowConfidenceCount++
	} else if confidence > highConfidenceMark {
		t.highConfidenceCount++
	}
	if malformed {
		t.malformedCount++
	}
}

// Stats returns the confidence distribution.
func (t *Tracker) Stats() TrackerStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	avg := 0.0
	if t.totalClassifications > 0 {
		avg = t.confidenceSum / float64(t.totalClassifications)
	}
	return TrackerStats{
		TotalClassifications: t.totalClassifications,
		AverageConfidence:    avg,
		LowConfidenceCount:   t.lowConfidenceCount,
		HighConfidenceCount:  t.highConfidenceCount,
		MalformedCount:       t.malformedCount,
	}
}

// Reset clears all counters.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalClassifications = 0
	t.confidenceSum = 0
	t.lowConfidenceCount = 0
	t.highConfidenceCount = 0
	t.malformedCount = 0
}
