// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package intelligence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/intentrouter/internal/config"
	"github.com/traylinx/intentrouter/internal/intelligence/cognitive"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

func testIntelligenceConfig() *config.IntelligenceConfig {
	cfg := config.Default()
	cfg.Sanitize()
	return &cfg.Intelligence
}

func TestService_DefaultEngines(t *testing.T) {
	s := NewService(testIntelligenceConfig(), nil, nil)
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Shutdown(context.Background())

	r := s.Recognizer()
	require.NotNil(t, r)
	assert.Equal(t, []types.EngineKind{types.EnginePattern, types.EngineStatistical}, r.Engines())
	assert.Nil(t, s.Cognitive())
	assert.NotNil(t, s.Learning())
	assert.NotNil(t, s.Metrics())
}

func TestService_WithCompleter(t *testing.T) {
	s := NewService(testIntelligenceConfig(), nil, nil)
	s.SetCompleter(cognitive.StaticCompleter{Reply: `{"intent":"booking_request","confidence":0.95,"reasoning":"wants a slot"}`})
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Shutdown(context.Background())

	r := s.Recognizer()
	assert.Equal(t, []types.EngineKind{types.EnginePattern, types.EngineStatistical, types.EngineExternalAI}, r.Engines())

	in := r.RecognizeIntent(context.Background(), "Quero agendar uma manicure para amanhã às 14h", beautyCtx(), RecognizeOptions{})
	assert.Equal(t, types.IntentBookingRequest, in.Type)
	assert.Equal(t, 2, in.Context.EngineConsensus)
	assert.InDelta(t, 0.925, in.Confidence, 1e-9)

	stats := s.Cognitive().Tracker().Stats()
	assert.Equal(t, 1, stats.TotalClassifications)
}

func TestService_RedisBackend(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := testIntelligenceConfig()
	cfg.Cache.Backend = "redis"
	cfg.Cache.Redis.Addr = mr.Addr()

	s := NewService(cfg, nil, nil)
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Shutdown(context.Background())

	ctx := context.Background()
	r := s.Recognizer()
	r.RecognizeIntent(ctx, "oi", nil, RecognizeOptions{})
	in := r.RecognizeIntent(ctx, "oi", nil, RecognizeOptions{})
	assert.True(t, in.Metadata.FromCache)
	assert.Len(t, mr.Keys(), 1)

	require.NoError(t, r.ClearCache(ctx))
	assert.Empty(t, mr.Keys())
}

func TestService_RedisUnavailable(t *testing.T) {
	cfg := testIntelligenceConfig()
	cfg.Cache.Backend = "redis"
	cfg.Cache.Redis.Addr = "127.0.0.1:1"

	s := NewService(cfg, nil, nil)
	assert.Error(t, s.Initialize(context.Background()))
	assert.Nil(t, s.Recognizer())
}

func TestService_PatternCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`intents:
  - intent: location_inquiry
    patterns:
      - keywords: [endereco, onde]
        phrases: [onde fica]
`), 0644))

	cfg := testIntelligenceConfig()
	cfg.PatternCatalogFile = path
	s := NewService(cfg, nil, nil)
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Shutdown(context.Background())

	in := s.Recognizer().RecognizeIntent(context.Background(), "Onde fica o endereço?", nil, RecognizeOptions{})
	assert.Equal(t, types.IntentLocationInquiry, in.Type)

	cfg.PatternCatalogFile = filepath.Join(t.TempDir(), "missing.yaml")
	assert.Error(t, NewService(cfg, nil, nil).Initialize(context.Background()))
}

func TestService_InvalidWeights(t *testing.T) {
	cfg := testIntelligenceConfig()
	cfg.Weights = config.EngineWeights{}
	err := NewService(cfg, nil, nil).Initialize(context.Background())
	assert.ErrorIs(t, err, ErrInvalidWeights)
}

func TestService_ExportsPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(testIntelligenceConfig(), nil, reg)
	require.NoError(t, s.Initialize(context.Background()))
	defer s.Shutdown(context.Background())

	s.Recognizer().RecognizeIntent(context.Background(), "oi", nil, RecognizeOptions{})

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "intentrouter_recognitions_total")
	assert.Contains(t, names, "intentrouter_engine_votes_total")
}
