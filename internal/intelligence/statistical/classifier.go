// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package statistical classifies a message by its similarity to previously
// classified messages held in the learning store.
package statistical

import (
	"context"

	"github.com/traylinx/intentrouter/internal/intelligence/entity"
	"github.com/traylinx/intentrouter/internal/intelligence/textnorm"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
	"github.com/traylinx/intentrouter/internal/learning"
)

// DefaultSimilarityThreshold is the Jaccard similarity a stored message must
// exceed to contribute.
const DefaultSimilarityThreshold = 0.3

// Classifier scores intents by token-set Jaccard similarity against the
// learning store.
type Classifier struct {
	store     *learning.Store
	threshold float64
	extractor *entity.Extractor
}

// NewClassifier creates a classifier reading from store.
func NewClassifier(store *learning.Store, threshold float64) *Classifier {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Classifier{
		store:     store,
		threshold: threshold,
		extractor: entity.NewReducedExtractor(),
	}
}

// Name identifies the engine in logs and vote metadata.
func (c *Classifier) Name() string { return string(types.EngineStatistical) }

// Kind reports EngineStatistical.
func (c *Classifier) Kind() types.EngineKind { return types.EngineStatistical }

// Classify returns the intent with the highest accumulated
// similarity×confidence. An empty store yields {other, 0}.
func (c *Classifier) Classify(ctx context.Context, normalizedText string, _ *types.ConversationContext) (*types.Intent, error) {
	scores := make([]float64, len(types.Catalog))
	query := textnorm.Tokens(normalizedText)

	for _, sample := range c.store.Snapshot() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sim := Jaccard(query, textnorm.Tokens(sample.Message))
		if sim <= c.threshold {
			continue
		}
		for _, e := range sample.Entries {
			idx := types.CatalogIndex(e.IntentType)
			if idx == len(types.Catalog) {
				continue
			}
			scores[idx] += sim * e.Confidence
		}
	}

	winner, best := types.IntentOther, 0.0
	for idx, s := range scores {
		if s > best {
			winner, best = types.Catalog[idx], s
		}
	}
	if best > 1 {
		best = 1
	}

	intent := types.NewIntent(winner, best)
	intent.Entities = c.extractor.Extract(normalizedText)
	return intent, nil
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
