// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package routing

// LoadSource reports current system load in [0, 1].
type LoadSource interface {
	Load() float64
}

// ConstantLoad always reports the same load.
type ConstantLoad float64

// Load implements LoadSource.
func (p ConstantLoad) Load() float64 { return float64(p) }

// LoadFunc adapts a function to LoadSource.
type LoadFunc func() float64

// Load implements LoadSource.
func (f LoadFunc) Load() float64 { return f() }
