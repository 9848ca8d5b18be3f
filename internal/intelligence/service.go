// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package intelligence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/intentrouter/internal/config"
	"github.com/traylinx/intentrouter/internal/hooks"
	"github.com/traylinx/intentrouter/internal/intelligence/cache"
	"github.com/traylinx/intentrouter/internal/intelligence/cognitive"
	"github.com/traylinx/intentrouter/internal/intelligence/metrics"
	"github.com/traylinx/intentrouter/internal/intelligence/pattern"
	"github.com/traylinx/intentrouter/internal/intelligence/statistical"
	"github.com/traylinx/intentrouter/internal/learning"
)

// Service owns the lifecycle of every recognition component: the engines,
// the cache backend, the learning store and its janitor, and the metrics.
type Service struct {
	// config holds the intelligence configuration
	config *config.IntelligenceConfig

	events     *hooks.EventBus
	registerer prometheus.Registerer

	// mu protects concurrent access to service state
	mu          sync.RWMutex
	initialized bool

	completer  cognitive.Completer
	recognizer *Recognizer
	pattern    *pattern.Classifier
	cognitive  *cognitive.Classifier
	cache      cache.Store
	redis      *cache.RedisCache
	learning   *learning.Store
	janitor    *learning.Janitor
	metrics    *metrics.Collector
}

// NewService creates a new Service instance.
// The service is not usable until Initialize() is called.
//
// Parameters:
//   - cfg: The intelligence configuration
//   - events: Event bus for recognition events (may be nil)
//   - reg: Prometheus registerer for metric export (may be nil)
//
// Returns:
//   - *Service: A new service instance
func NewService(cfg *config.IntelligenceConfig, events *hooks.EventBus, reg prometheus.Registerer) *Service {
	if cfg == nil {
		c := config.Default().Intelligence
		cfg = &c
	}
	return &Service{
		config:     cfg,
		events:     events,
		registerer: reg,
	}
}

// SetCompleter installs a completer for the external-AI engine, overriding the
// configured provider. Must be called before Initialize.
func (s *Service) SetCompleter(c cognitive.Completer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completer = c
}

// Initialize builds the engines and their collaborators.
//
// Parameters:
//   - ctx: Context for backend connections
//
// Returns:
//   - error: Configuration or connection errors
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	cfg := s.config
	log.Info("Initializing intelligence services...")

	var exporter *metrics.Exporter
	if s.registerer != nil {
		exporter = metrics.NewExporter(s.registerer)
	}
	s.metrics = metrics.NewCollector(exporter)

	switch cfg.Cache.Backend {
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Address:   cfg.Cache.Redis.Addr,
			Password:  cfg.Cache.Redis.Password,
			DB:        cfg.Cache.Redis.DB,
			KeyPrefix: cfg.Cache.Redis.KeyPrefix,
		})
		if err != nil {
			return fmt.Errorf("intelligence: redis cache: %w", err)
		}
		s.redis = rc
		s.cache = rc
		log.Infof("Result cache: redis at %s", cfg.Cache.Redis.Addr)
	default:
		s.cache = cache.NewMemoryCache(cfg.Cache.HighWaterMark)
		log.Infof("Result cache: memory (high-water mark %d)", cfg.Cache.HighWaterMark)
	}

	s.learning = learning.NewStore(cfg.Learning.EntriesPerMessage, cfg.Learning.MaxMessages)
	s.janitor = learning.NewJanitor(
		s.learning,
		time.Duration(cfg.Learning.RetentionHours)*time.Hour,
		time.Duration(cfg.Learning.JanitorIntervalMinutes)*time.Minute,
	)

	s.pattern = pattern.NewClassifier(cfg.PatternThreshold)
	if cfg.PatternCatalogFile != "" {
		if err := s.pattern.LoadCatalog(cfg.PatternCatalogFile); err != nil {
			return fmt.Errorf("intelligence: pattern catalog: %w", err)
		}
		if cfg.WatchCatalog {
			if err := s.pattern.StartWatcher(cfg.PatternCatalogFile); err != nil {
				log.Warnf("Failed to watch pattern catalog: %v", err)
			}
		}
	}

	engines := []Engine{
		{Classifier: s.pattern, Weight: cfg.Weights.Pattern},
		{Classifier: statistical.NewClassifier(s.learning, cfg.SimilarityThreshold), Weight: cfg.Weights.Statistical},
	}

	completer := s.completer
	if completer == nil {
		c, err := cognitive.NewCompleter(ctx, cognitive.ProviderOptions{
			Provider:  cfg.ExternalAI.Provider,
			APIKey:    cfg.ExternalAI.APIKey,
			Model:     cfg.ExternalAI.Model,
			MaxTokens: int64(cfg.ExternalAI.MaxTokens),
			BaseURL:   cfg.ExternalAI.BaseURL,
		})
		switch {
		case err == nil:
			completer = c
		case errors.Is(err, cognitive.ErrNoCompleter):
			log.Info("External-AI engine disabled (no provider configured)")
		default:
			log.Warnf("External-AI engine disabled: %v", err)
		}
	}
	if completer != nil {
		s.cognitive = cognitive.NewClassifier(completer)
		engines = append(engines, Engine{Classifier: s.cognitive, Weight: cfg.Weights.ExternalAI})
	}

	r, err := NewRecognizer(RecognizerConfig{
		Engines:       engines,
		Pattern:       s.pattern,
		Cache:         s.cache,
		CacheTTL:      cfg.CacheTTL(),
		Learning:      s.learning,
		Metrics:       s.metrics,
		Events:        s.events,
		EngineTimeout: cfg.EngineTimeout(),
	})
	if err != nil {
		return fmt.Errorf("intelligence: %w", err)
	}
	s.recognizer = r
	s.janitor.Start()
	s.initialized = true

	log.Infof("Intelligence services initialized (engines: %v)", r.Engines())
	return nil
}

// Recognizer returns the ensemble orchestrator, or nil before Initialize.
func (s *Service) Recognizer() *Recognizer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recognizer
}

// Metrics returns the shared metrics collector.
func (s *Service) Metrics() *metrics.Collector {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

// Learning returns the learning store.
func (s *Service) Learning() *learning.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.learning
}

// Cognitive returns the external-AI classifier, or nil when disabled.
func (s *Service) Cognitive() *cognitive.Classifier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cognitive
}

// Shutdown stops background routines and closes backend connections.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil
	}
	log.Info("Shutting down intelligence services...")

	s.janitor.Stop()
	s.pattern.StopWatcher()

	var errs []error
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	s.initialized = false
	return errors.Join(errs...)
}
