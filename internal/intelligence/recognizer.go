// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package intelligence runs the classification ensemble: several independent
// engines vote on the intent of a message, the votes are merged into one
// Intent, and results are cached, learned from and measured.
package intelligence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/intentrouter/internal/hooks"
	"github.com/traylinx/intentrouter/internal/intelligence/cache"
	"github.com/traylinx/intentrouter/internal/intelligence/entity"
	"github.com/traylinx/intentrouter/internal/intelligence/metrics"
	"github.com/traylinx/intentrouter/internal/intelligence/pattern"
	"github.com/traylinx/intentrouter/internal/intelligence/textnorm"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
	"github.com/traylinx/intentrouter/internal/learning"
)

// DefaultEngineTimeout bounds a single engine call.
const DefaultEngineTimeout = 2 * time.Second

// RecognizerConfig wires a Recognizer. Only Engines is required.
type RecognizerConfig struct {
	Engines []Engine

	// Pattern is used alone when the ensemble itself fails. When nil, the
	// registered pattern engine or a default one is used.
	Pattern *pattern.Classifier

	Cache         cache.Store
	CacheTTL      time.Duration
	Learning      *learning.Store
	Metrics       *metrics.Collector
	Events        *hooks.EventBus
	EngineTimeout time.Duration
}

// RecognizeOptions tune a single RecognizeIntent call.
type RecognizeOptions struct {
	// ForceRefresh skips the cache lookup; the result is still cached.
	ForceRefresh bool
	// CacheTTL overrides the default cache lifetime.
	CacheTTL time.Duration
	// Engines restricts the run to the given kinds. Empty means all.
	Engines []types.EngineKind
}

// Recognizer is the ensemble orchestrator. It is safe for concurrent use.
type Recognizer struct {
	engines       []Engine
	pattern       *pattern.Classifier
	cache         cache.Store
	cacheTTL      time.Duration
	learning      *learning.Store
	metrics       *metrics.Collector
	events        *hooks.EventBus
	engineTimeout time.Duration

	// hook for tests
	beforeVote func()
}

// NewRecognizer validates the engine weights and fills defaults for every
// optional collaborator.
func NewRecognizer(cfg RecognizerConfig) (*Recognizer, error) {
	engines, err := validateEngines(cfg.Engines)
	if err != nil {
		return nil, err
	}

	r := &Recognizer{
		engines:       engines,
		pattern:       cfg.Pattern,
		cache:         cfg.Cache,
		cacheTTL:      cfg.CacheTTL,
		learning:      cfg.Learning,
		metrics:       cfg.Metrics,
		events:        cfg.Events,
		engineTimeout: cfg.EngineTimeout,
	}
	if r.pattern == nil {
		for _, e := range engines {
			if pc, ok := e.Classifier.(*pattern.Classifier); ok {
				r.pattern = pc
				break
			}
		}
	}
	if r.pattern == nil {
		r.pattern = pattern.NewClassifier(pattern.DefaultThreshold)
	}
	if r.cache == nil {
		r.cache = cache.NewMemoryCache(cache.DefaultHighWaterMark)
	}
	if r.cacheTTL <= 0 {
		r.cacheTTL = cache.DefaultTTL
	}
	if r.learning == nil {
		r.learning = learning.NewStore(learning.DefaultEntriesPerMessage, learning.DefaultMaxMessages)
	}
	if r.metrics == nil {
		r.metrics = metrics.NewCollector(nil)
	}
	if r.engineTimeout <= 0 {
		r.engineTimeout = DefaultEngineTimeout
	}
	return r, nil
}

// Engines returns the registered engine kinds in registration order.
func (r *Recognizer) Engines() []types.EngineKind {
	out := make([]types.EngineKind, len(r.engines))
	for i, e := range r.engines {
		out[i] = e.Classifier.Kind()
	}
	return out
}

// RecognizeIntent classifies message for the conversation. It always returns a
// well-formed Intent: engine failures become neutral votes, and a failure of
// the ensemble itself falls back to the pattern engine alone with
// Metadata.Enhanced set.
//
// Parameters:
//   - ctx: Cancellation is propagated into every engine
//   - message: Raw user message
//   - convCtx: Conversation state; may be nil
//   - opts: Per-call cache and engine options
//
// Returns:
//   - *types.Intent: A result the caller owns
func (r *Recognizer) RecognizeIntent(ctx context.Context, message string, convCtx *types.ConversationContext, opts RecognizeOptions) *types.Intent {
	start := time.Now()
	requestID := uuid.NewString()
	normalized := textnorm.Normalize(message)
	logger := log.WithFields(log.Fields{
		"request_id": requestID,
		"tenant_id":  tenantID(convCtx),
	})

	intent, err := r.recognize(ctx, normalized, convCtx, opts, requestID, start, logger)
	if err != nil {
		logger.Warnf("ensemble failed, using pattern engine only: %v", err)
		return r.fallback(ctx, normalized, convCtx, requestID, start, err)
	}
	return intent
}

func (r *Recognizer) recognize(ctx context.Context, normalized string, convCtx *types.ConversationContext, opts RecognizeOptions, requestID string, start time.Time, logger *log.Entry) (intent *types.Intent, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			intent, err = nil, fmt.Errorf("recognize: %v", rec)
		}
	}()

	key := cache.Key(normalized, sessionID(convCtx), tenantID(convCtx))
	if !opts.ForceRefresh {
		hit, errGet := r.cache.Get(ctx, key)
		switch {
		case errGet == nil:
			hit.Metadata.FromCache = true
			r.metrics.RecordRecognition(hit, metrics.SourceCache, time.Since(start).Milliseconds(), true)
			logger.Debugf("cache hit for %s", hit.Type)
			return hit, nil
		case !errors.Is(errGet, cache.ErrCacheMiss):
			logger.Warnf("cache lookup failed: %v", errGet)
		}
	}

	engines, err := r.selectEngines(opts.Engines)
	if err != nil {
		return nil, err
	}

	votes := r.runEngines(ctx, engines, normalized, convCtx)
	if r.beforeVote != nil {
		r.beforeVote()
	}
	b := castVotes(votes)

	intent = types.NewIntent(b.winner, b.confidence)
	intent.Entities = b.entities
	domain := pattern.RouteToDomain(intent, convCtx)
	postProcess(intent, domain)

	intent.Context = types.IntentContext{
		BusinessDomain:     domain,
		ConversationTurn:   convCtx.Turn(),
		AlternativeIntents: b.alternatives,
		EngineConsensus:    b.consensus,
	}
	intent.Metadata = types.IntentMetadata{
		RequestID:        requestID,
		PerEngineResults: votes,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}

	// A cancelled call keeps its result out of the learning store; any
	// failed vote also keeps it out of the cache.
	cancelled := ctx.Err() != nil

	if b.decided && !cancelled {
		r.learning.Append(normalized, learning.Entry{
			IntentType: intent.Type,
			Confidence: intent.Confidence,
			Domain:     domain,
			Timestamp:  time.Now(),
		})
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = r.cacheTTL
	}
	if !cancelled && allSucceeded(votes) {
		if errSet := r.cache.Set(ctx, key, intent, ttl); errSet != nil {
			logger.Warnf("cache write failed: %v", errSet)
		}
	}

	for _, v := range votes {
		r.metrics.RecordEngine(v)
		if !v.Succeeded {
			r.publish(&hooks.EventContext{
				Event:        hooks.EventEngineFailed,
				RequestID:    requestID,
				TenantID:     tenantID(convCtx),
				SessionID:    sessionID(convCtx),
				Data:         map[string]any{"engine": string(v.Engine), "latency_ms": v.LatencyMs},
				ErrorMessage: v.Error,
			})
		}
	}
	r.metrics.RecordRecognition(intent, metrics.SourceEnsemble, intent.Metadata.ProcessingTimeMs, b.decided)
	r.publish(&hooks.EventContext{
		Event:     hooks.EventIntentRecognized,
		RequestID: requestID,
		TenantID:  tenantID(convCtx),
		SessionID: sessionID(convCtx),
		Data: map[string]any{
			"intent":     string(intent.Type),
			"confidence": intent.Confidence,
			"consensus":  intent.Context.EngineConsensus,
			"domain":     domain,
		},
	})

	logger.WithFields(log.Fields{
		"intent":     intent.Type,
		"confidence": intent.Confidence,
		"consensus":  b.consensus,
	}).Debug("intent recognized")
	return intent, nil
}

func allSucceeded(votes []types.EngineVote) bool {
	for _, v := range votes {
		if !v.Succeeded {
			return false
		}
	}
	return true
}

func (r *Recognizer) selectEngines(kinds []types.EngineKind) ([]Engine, error) {
	if len(kinds) == 0 {
		return r.engines, nil
	}
	want := make(map[types.EngineKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []Engine
	for _, e := range r.engines {
		if want[e.Classifier.Kind()] {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoEngines
	}
	return out, nil
}

// runEngines fans out to every engine and places each vote at its engine's
// index.
func (r *Recognizer) runEngines(ctx context.Context, engines []Engine, text string, convCtx *types.ConversationContext) []types.EngineVote {
	votes := make([]types.EngineVote, len(engines))
	var wg sync.WaitGroup
	for i, e := range engines {
		wg.Add(1)
		go func(i int, e Engine) {
			defer wg.Done()
			votes[i] = r.runEngine(ctx, e, text, convCtx)
		}(i, e)
	}
	wg.Wait()
	return votes
}

type engineResult struct {
	intent *types.Intent
	err    error
}

func (r *Recognizer) runEngine(parent context.Context, e Engine, text string, convCtx *types.ConversationContext) types.EngineVote {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, r.engineTimeout)
	defer cancel()

	done := make(chan engineResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- engineResult{err: fmt.Errorf("%w: %v", ErrEnginePanic, rec)}
			}
		}()
		intent, err := e.Classifier.Classify(ctx, text, convCtx)
		done <- engineResult{intent: intent, err: err}
	}()

	var res engineResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	if res.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(res.err, ErrEngineTimeout) {
		res.err = fmt.Errorf("%w after %s", ErrEngineTimeout, r.engineTimeout)
	}
	if res.err == nil && res.intent == nil {
		res.err = errors.New("engine returned no intent")
	}

	vote := types.EngineVote{
		Engine:    e.Classifier.Kind(),
		Weight:    e.Weight,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if res.err != nil {
		log.WithField("engine", e.Classifier.Name()).Warnf("engine failed: %v", res.err)
		vote.Intent = types.NewIntent(types.IntentOther, failedVoteConfidence)
		vote.Error = res.err.Error()
		return vote
	}
	res.intent.Confidence = types.Clamp01(res.intent.Confidence)
	vote.Intent = res.intent
	vote.Succeeded = true
	return vote
}

// fallback classifies with the pattern engine alone.
func (r *Recognizer) fallback(ctx context.Context, normalized string, convCtx *types.ConversationContext, requestID string, start time.Time, cause error) *types.Intent {
	intent := r.patternOnly(ctx, normalized, convCtx)
	for i := range intent.Entities {
		intent.Entities[i].Confidence = types.Clamp01(intent.Entities[i].Confidence)
	}
	intent.Entities = entity.Dedupe(intent.Entities)
	intent.Context.BusinessDomain = pattern.RouteToDomain(intent, convCtx)
	intent.Context.ConversationTurn = convCtx.Turn()
	intent.Metadata = types.IntentMetadata{
		RequestID:        requestID,
		Enhanced:         true,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}

	r.metrics.RecordRecognition(intent, metrics.SourceFallback, intent.Metadata.ProcessingTimeMs, true)
	r.publish(&hooks.EventContext{
		Event:        hooks.EventOrchestratorFallback,
		RequestID:    requestID,
		TenantID:     tenantID(convCtx),
		SessionID:    sessionID(convCtx),
		Data:         map[string]any{"intent": string(intent.Type)},
		ErrorMessage: cause.Error(),
	})
	return intent
}

func (r *Recognizer) patternOnly(ctx context.Context, normalized string, convCtx *types.ConversationContext) (intent *types.Intent) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("pattern fallback panicked: %v", rec)
			intent = types.NewIntent(types.IntentOther, 0.5)
		}
	}()
	intent, err := r.pattern.Classify(ctx, normalized, convCtx)
	if err != nil || intent == nil {
		return types.NewIntent(types.IntentOther, 0.5)
	}
	return intent
}

func (r *Recognizer) publish(evt *hooks.EventContext) {
	if r.events != nil {
		r.events.PublishAsync(evt)
	}
}

// GetMetrics returns a snapshot of the recognition counters.
func (r *Recognizer) GetMetrics() metrics.Snapshot {
	return r.metrics.Snapshot()
}

// ResetMetrics zeroes the recognition counters.
func (r *Recognizer) ResetMetrics() {
	r.metrics.Reset()
}

// ClearCache drops every cached result.
func (r *Recognizer) ClearCache(ctx context.Context) error {
	return r.cache.Clear(ctx)
}

// LearningStats summarizes the learning store.
func (r *Recognizer) LearningStats() learning.Stats {
	return r.learning.Stats()
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
