// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package routing

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// IntentEnv is the intent as seen by custom rule conditions.
type IntentEnv struct {
	Type        string
	Confidence  float64
	EntityCount int
	Consensus   int
}

// RuleEnv is the environment custom rule conditions are evaluated against,
// e.g. `Intent.Type == "complaint" && Turns > 3`.
type RuleEnv struct {
	Intent      IntentEnv
	Domain      string
	TenantID    string
	Turns       int
	LastMessage string
	Hour        int
	DayOfWeek   string
	Load        float64
}

// ConditionEvaluator compiles and caches rule conditions.
type ConditionEvaluator struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

// NewConditionEvaluator creates a new condition evaluator.
func NewConditionEvaluator() *ConditionEvaluator {
	return &ConditionEvaluator{
		programs: make(map[string]*vm.Program),
	}
}

// Compile type-checks condition against RuleEnv and caches the program.
func (e *ConditionEvaluator) Compile(condition string) (*vm.Program, error) {
	e.mu.RLock()
	program, exists := e.programs[condition]
	e.mu.RUnlock()
	if exists {
		return program, nil
	}

	program, err := expr.Compile(condition, expr.Env(RuleEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile condition '%s': %w", condition, err)
	}
	e.mu.Lock()
	e.programs[condition] = program
	e.mu.Unlock()
	return program, nil
}

// Evaluate evaluates a condition string against env.
func (e *ConditionEvaluator) Evaluate(condition string, env RuleEnv) (bool, error) {
	if condition == "" || condition == "true" {
		return true, nil
	}

	program, err := e.Compile(condition)
	if err != nil {
		return false, err
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("failed to run condition '%s': %w", condition, err)
	}

	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("condition '%s' did not return a boolean", condition)
	}
	return result, nil
}
