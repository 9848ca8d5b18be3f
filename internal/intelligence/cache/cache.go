// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cache memoizes ensemble results per (message, session, tenant).
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

// ErrCacheMiss is returned by Get when no unexpired entry exists.
var ErrCacheMiss = errors.New("cache miss")

// DefaultTTL is used when a caller does not request one.
const DefaultTTL = 5 * time.Minute

// Store is a TTL cache of classified intents. Implementations store and
// return deep copies so cached values are never shared with callers.
type Store interface {
	Get(ctx context.Context, key string) (*types.Intent, error)
	Set(ctx context.Context, key string, intent *types.Intent, ttl time.Duration) error
	// EvictExpired removes expired entries and returns how many were removed.
	EvictExpired(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)
}

// Key derives the cache key of a normalized message in a session of a tenant:
// the first 16 hex characters of SHA-256("message|session|tenant").
func Key(normalizedMessage, sessionID, tenantID string) string {
	sum := sha256.Sum256([]byte(normalizedMessage + "|" + sessionID + "|" + tenantID))
	return hex.EncodeToString(sum[:])[:16]
}
