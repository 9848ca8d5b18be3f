// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"strings"
	"time"

	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

// IntelligenceConfig defines the recognition ensemble settings.
type IntelligenceConfig struct {
	// Weights are the per-engine voting weights. They must sum to more than zero.
	Weights EngineWeights `yaml:"weights" json:"weights"`

	// PatternThreshold is the minimum pattern score an intent must exceed.
	// Default: 0.1.
	PatternThreshold float64 `yaml:"pattern-threshold" json:"pattern-threshold"`

	// SimilarityThreshold is the Jaccard similarity a learned message must
	// exceed to vote in the statistical engine. Default: 0.3.
	SimilarityThreshold float64 `yaml:"similarity-threshold" json:"similarity-threshold"`

	// EngineTimeoutMs bounds each engine call. Default: 2000.
	EngineTimeoutMs int `yaml:"engine-timeout-ms" json:"engine-timeout-ms"`

	// PatternCatalogFile optionally replaces the built-in pattern catalog.
	PatternCatalogFile string `yaml:"pattern-catalog-file" json:"pattern-catalog-file"`

	// WatchCatalog reloads PatternCatalogFile when it changes.
	WatchCatalog bool `yaml:"watch-catalog" json:"watch-catalog"`

	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	Learning   LearningConfig   `yaml:"learning" json:"learning"`
	ExternalAI ExternalAIConfig `yaml:"external-ai" json:"external-ai"`
}

// EngineWeights holds the voting weight of each engine kind.
type EngineWeights struct {
	Pattern     float64 `yaml:"pattern" json:"pattern"`
	Statistical float64 `yaml:"statistical" json:"statistical"`
	ExternalAI  float64 `yaml:"external-ai" json:"external-ai"`
}

// For returns the weight configured for kind.
func (w EngineWeights) For(kind types.EngineKind) float64 {
	switch kind {
	case types.EnginePattern:
		return w.Pattern
	case types.EngineStatistical:
		return w.Statistical
	case types.EngineExternalAI:
		return w.ExternalAI
	}
	return 0
}

// CacheConfig selects and tunes the result cache.
type CacheConfig struct {
	// Backend is "memory" (default) or "redis".
	Backend string `yaml:"backend" json:"backend"`
	// TTLSeconds is the default entry lifetime. Default: 300.
	TTLSeconds int `yaml:"ttl-seconds" json:"ttl-seconds"`
	// HighWaterMark bounds the in-memory cache. Default: 100.
	HighWaterMark int `yaml:"high-water-mark" json:"high-water-mark"`

	Redis RedisConfig `yaml:"redis" json:"redis"`
}

// RedisConfig is used when CacheConfig.Backend is "redis".
type RedisConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	Password  string `yaml:"password" json:"-"`
	DB        int    `yaml:"db" json:"db"`
	KeyPrefix string `yaml:"key-prefix" json:"key-prefix"`
}

// LearningConfig bounds the in-process learning store.
type LearningConfig struct {
	// EntriesPerMessage caps the history kept per distinct message. Default: 10.
	EntriesPerMessage int `yaml:"entries-per-message" json:"entries-per-message"`
	// MaxMessages caps the distinct messages tracked. Default: 1000.
	MaxMessages int `yaml:"max-messages" json:"max-messages"`
	// RetentionHours prunes samples older than this. 0 disables pruning.
	RetentionHours int `yaml:"retention-hours" json:"retention-hours"`
	// JanitorIntervalMinutes is how often pruning runs. Default: 10.
	JanitorIntervalMinutes int `yaml:"janitor-interval-minutes" json:"janitor-interval-minutes"`
}

// ExternalAIConfig configures the completion provider behind the external-AI
// engine. An empty Provider disables the engine.
type ExternalAIConfig struct {
	// Provider is "anthropic" or "gemini".
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model" json:"model"`
	// APIKey falls back to ANTHROPIC_API_KEY or GEMINI_API_KEY.
	APIKey    string `yaml:"api-key" json:"-"`
	BaseURL   string `yaml:"base-url" json:"base-url"`
	MaxTokens int    `yaml:"max-tokens" json:"max-tokens"`
}

func defaultIntelligence() IntelligenceConfig {
	return IntelligenceConfig{
		Weights: EngineWeights{
			Pattern:     0.3,
			Statistical: 0.3,
			ExternalAI:  0.4,
		},
		PatternThreshold:    0.1,
		SimilarityThreshold: 0.3,
		EngineTimeoutMs:     2000,
		Cache: CacheConfig{
			Backend:       "memory",
			TTLSeconds:    300,
			HighWaterMark: 100,
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "intentrouter:intent:",
			},
		},
		Learning: LearningConfig{
			EntriesPerMessage:      10,
			MaxMessages:            1000,
			RetentionHours:         24,
			JanitorIntervalMinutes: 10,
		},
	}
}

// SanitizeIntelligence clamps thresholds into range and resolves provider keys
// from the environment.
func (cfg *Config) SanitizeIntelligence() {
	if cfg == nil {
		return
	}
	ic := &cfg.Intelligence

	w := &ic.Weights
	for _, v := range []*float64{&w.Pattern, &w.Statistical, &w.ExternalAI} {
		if *v < 0 {
			*v = 0
		}
		if *v > 1 {
			*v = 1
		}
	}

	if ic.PatternThreshold < 0 || ic.PatternThreshold >= 1 {
		ic.PatternThreshold = 0.1
	}
	if ic.SimilarityThreshold < 0 || ic.SimilarityThreshold >= 1 {
		ic.SimilarityThreshold = 0.3
	}
	if ic.EngineTimeoutMs <= 0 {
		ic.EngineTimeoutMs = 2000
	}
	ic.PatternCatalogFile = strings.TrimSpace(ic.PatternCatalogFile)

	c := &ic.Cache
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend != "redis" {
		c.Backend = "memory"
	}
	if c.TTLSeconds <= 0 {
		c.TTLSeconds = 300
	}
	if c.HighWaterMark <= 0 {
		c.HighWaterMark = 100
	}
	c.Redis.Addr = strings.TrimSpace(c.Redis.Addr)
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "intentrouter:intent:"
	}

	l := &ic.Learning
	if l.EntriesPerMessage <= 0 {
		l.EntriesPerMessage = 10
	}
	if l.MaxMessages <= 0 {
		l.MaxMessages = 1000
	}
	if l.RetentionHours < 0 {
		l.RetentionHours = 0
	}
	if l.JanitorIntervalMinutes <= 0 {
		l.JanitorIntervalMinutes = 10
	}

	ai := &ic.ExternalAI
	ai.Provider = strings.ToLower(strings.TrimSpace(ai.Provider))
	ai.APIKey = strings.TrimSpace(ai.APIKey)
	if ai.APIKey == "" {
		switch ai.Provider {
		case "anthropic", "claude":
			ai.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "gemini", "google":
			ai.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
}

// EngineTimeout returns EngineTimeoutMs as a duration.
func (ic IntelligenceConfig) EngineTimeout() time.Duration {
	return time.Duration(ic.EngineTimeoutMs) * time.Millisecond
}

// CacheTTL returns the default cache lifetime.
func (ic IntelligenceConfig) CacheTTL() time.Duration {
	return time.Duration(ic.Cache.TTLSeconds) * time.Second
}
