// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package intelligence

import (
	"context"
	"errors"

	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

var (
	// ErrInvalidWeights is returned when no registered engine has a positive weight.
	ErrInvalidWeights = errors.New("engine weights must sum to more than zero")
	// ErrEngineTimeout marks a vote whose engine did not answer in time.
	ErrEngineTimeout = errors.New("engine timed out")
	// ErrEnginePanic marks a vote whose engine panicked.
	ErrEnginePanic = errors.New("engine panicked")
	// ErrNoEngines is returned when an engine filter selects nothing.
	ErrNoEngines = errors.New("no engines selected")
)

// Classifier is one engine of the ensemble. Implementations are the pattern,
// statistical and external-AI classifiers.
type Classifier interface {
	Name() string
	Kind() types.EngineKind
	Classify(ctx context.Context, normalizedText string, convCtx *types.ConversationContext) (*types.Intent, error)
}

// Engine is a Classifier registered with its voting weight.
type Engine struct {
	Classifier Classifier
	Weight     float64
}

// validateEngines drops zero-weight engines and checks the remaining weights.
func validateEngines(engines []Engine) ([]Engine, error) {
	out := make([]Engine, 0, len(engines))
	sum := 0.0
	for _, e := range engines {
		if e.Classifier == nil || e.Weight <= 0 {
			continue
		}
		if e.Weight > 1 {
			return nil, ErrInvalidWeights
		}
		sum += e.Weight
		out = append(out, e)
	}
	if sum <= 0 {
		return nil, ErrInvalidWeights
	}
	return out, nil
}
