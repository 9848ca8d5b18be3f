// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package learning

import (
	"time"

	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

// Entry records one classification outcome for a normalized message.
type Entry struct {
	IntentType types.IntentType `json:"intent_type"`
	Confidence float64          `json:"confidence"`
	Domain     string           `json:"domain,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}

// Sample is a stored message together with its entries, oldest first.
type Sample struct {
	Message string
	Entries []Entry
}

// Stats summarizes the store contents.
type Stats struct {
	Messages     int                      `json:"messages"`
	Entries      int                      `json:"entries"`
	ByIntent     map[types.IntentType]int `json:"by_intent"`
	Evictions    int64                    `json:"evictions"`
	LastAppended time.Time                `json:"last_appended,omitempty"`
}
