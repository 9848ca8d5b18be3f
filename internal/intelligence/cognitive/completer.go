// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cognitive

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoCompleter means the external-AI engine has nothing to call; the
	// service then runs without it.
	ErrNoCompleter = errors.New("no completion service configured")
	// ErrEmptyReply is returned when the service answers with blank text.
	ErrEmptyReply = errors.New("completion service returned an empty reply")
	// ErrUnknownProvider is returned by NewCompleter for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown completion provider")
	// ErrMissingAPIKey is returned when a provider is configured without a key.
	ErrMissingAPIKey = errors.New("completion provider requires an API key")
	// ErrNoTextInResponse is returned when a provider response has no text part.
	ErrNoTextInResponse = errors.New("no text content in completion response")
)

// Completer is a black-box natural-language completion service: prompt in,
// text out. Failures must be returned, never panicked.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, system, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}

// StaticCompleter always answers with Reply, or Err when set.
type StaticCompleter struct {
	Reply string
	Err   error
}

// Complete implements Completer.
func (s StaticCompleter) Complete(ctx context.Context, _, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Err != nil {
		return "", s.Err
	}
	return s.Reply, nil
}

// ProviderOptions selects and configures a hosted completion provider.
type ProviderOptions struct {
	Provider  string
	APIKey    string
	Model     string
	MaxTokens int64
	BaseURL   string
}

// NewCompleter builds the completer named by opts.Provider ("anthropic" or
// "gemini"). An empty provider returns ErrNoCompleter.
func NewCompleter(ctx context.Context, opts ProviderOptions) (Completer, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "":
		return nil, ErrNoCompleter
	case "anthropic", "claude":
		return NewAnthropicCompleter(opts)
	case "gemini", "google":
		return NewGeminiCompleter(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, opts.Provider)
	}
}
