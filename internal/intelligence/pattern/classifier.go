// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pattern scores a closed catalog of intents against keyword and
// phrase patterns and adjusts the scores with conversational context.
package pattern

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/traylinx/intentrouter/internal/intelligence/entity"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

// DefaultThreshold is the score an intent must exceed to be a candidate.
const DefaultThreshold = 0.1

const (
	keywordShare = 0.6
	phraseShare  = 0.4

	// fallbackConfidence is reported for types.IntentOther when nothing matched.
	fallbackConfidence = 0.5

	// prefixMinLen is the shortest keyword that also matches as a token prefix.
	prefixMinLen = 4
)

var (
	// ErrUnknownIntent is returned when a catalog file names an intent type
	// outside the closed catalog.
	ErrUnknownIntent = errors.New("unknown intent type")
	// ErrEmptyPattern is returned for a catalog pattern with nothing to match.
	ErrEmptyPattern = errors.New("pattern has neither keywords nor phrases")
)

// Match is a scored catalog intent.
type Match struct {
	Type       types.IntentType `json:"type"`
	Confidence float64          `json:"confidence"`
}

// Classifier is the keyword/phrase engine of the ensemble.
// The catalog can be swapped at runtime; all methods are safe for concurrent use.
type Classifier struct {
	mu        sync.RWMutex
	catalog   compiled
	threshold float64
	extractor *entity.Extractor

	// watcher for hot-reloading the catalog file
	watcher     *fsnotify.Watcher
	stopWatcher chan struct{}
}

// NewClassifier creates a classifier over the default catalog.
//
// Parameters:
//   - threshold: Minimum score an intent must exceed (default: 0.1)
func NewClassifier(threshold float64) *Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	c, err := compile(DefaultCatalog())
	if err != nil {
		panic("pattern: invalid default catalog: " + err.Error())
	}
	return &Classifier{
		catalog:   c,
		threshold: threshold,
		extractor: entity.NewExtractor(),
	}
}

// Name implements the ensemble classifier interface.
func (c *Classifier) Name() string { return string(types.EnginePattern) }

// Kind implements the ensemble classifier interface.
func (c *Classifier) Kind() types.EngineKind { return types.EnginePattern }

// SetCatalog validates and installs a new catalog.
func (c *Classifier) SetCatalog(entries []IntentPatterns) error {
	compiled, err := compile(entries)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.catalog = compiled
	c.mu.Unlock()
	return nil
}

// Matches scores every catalog intent against normalizedText and returns the
// candidates above the threshold, boosted by context and sorted by confidence
// descending (ties by catalog order).
func (c *Classifier) Matches(normalizedText string, convCtx *types.ConversationContext) []Match {
	c.mu.RLock()
	catalog := c.catalog
	c.mu.RUnlock()

	tokens := strings.Fields(normalizedText)
	padded := " " + normalizedText + " "

	var out []Match
	for idx, patterns := range catalog {
		best := 0.0
		for _, cp := range patterns {
			if s := cp.score(tokens, padded); s > best {
				best = s
			}
		}
		if best <= c.threshold {
			continue
		}
		out = append(out, Match{Type: types.Catalog[idx], Confidence: best})
	}

	for i := range out {
		out[i].Confidence = types.Clamp01(out[i].Confidence + contextBonus(out[i].Type, convCtx))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return types.CatalogIndex(out[i].Type) < types.CatalogIndex(out[j].Type)
	})
	return out
}

// Best returns the winning match, or {other, 0.5} when nothing matched.
func (c *Classifier) Best(normalizedText string, convCtx *types.ConversationContext) Match {
	if m := c.Matches(normalizedText, convCtx); len(m) > 0 {
		return m[0]
	}
	return Match{Type: types.IntentOther, Confidence: fallbackConfidence}
}

// Classify implements the ensemble classifier interface.
func (c *Classifier) Classify(_ context.Context, normalizedText string, convCtx *types.ConversationContext) (*types.Intent, error) {
	best := c.Best(normalizedText, convCtx)
	intent := types.NewIntent(best.Type, best.Confidence)
	intent.Entities = c.extractor.Extract(normalizedText)
	return intent, nil
}

func (cp compiledPattern) score(tokens []string, padded string) float64 {
	var s float64
	if len(cp.keywords) > 0 {
		hits := 0
		for _, k := range cp.keywords {
			if keywordHit(k, tokens, padded) {
				hits++
			}
		}
		s += keywordShare * float64(hits) / float64(len(cp.keywords))
	}
	if len(cp.phrases) > 0 {
		hits := 0
		for _, ph := range cp.phrases {
			if strings.Contains(padded, ph) {
				hits++
			}
		}
		s += phraseShare * float64(hits) / float64(len(cp.phrases))
	}
	return s * cp.weight
}

func keywordHit(keyword string, tokens []string, padded string) bool {
	if strings.Contains(keyword, " ") {
		return strings.Contains(padded, " "+keyword+" ")
	}
	for _, t := range tokens {
		if t == keyword {
			return true
		}
		if len(keyword) >= prefixMinLen && strings.HasPrefix(t, keyword) {
			return true
		}
	}
	return false
}

func contextBonus(t types.IntentType, convCtx *types.ConversationContext) float64 {
	var bonus float64
	if convCtx == nil {
		return bonus
	}
	if next, ok := flowBonus[convCtx.LastIntent]; ok {
		bonus += next[t]
	}
	if t == types.IntentGeneralGreeting && convCtx.Turn() == 1 {
		bonus += greetingFirstTurnBonus
	}
	if d := convCtx.TenantDomain(); d != "" {
		bonus += domainAffinity[d][t]
	}
	return bonus
}
