// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cmd assembles the intent routing service from configuration and
// runs it until the process is signalled.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/intentrouter/internal/api"
	"github.com/traylinx/intentrouter/internal/config"
	"github.com/traylinx/intentrouter/internal/hooks"
	"github.com/traylinx/intentrouter/internal/intelligence"
	"github.com/traylinx/intentrouter/internal/intelligence/feedback"
	"github.com/traylinx/intentrouter/internal/logging"
	"github.com/traylinx/intentrouter/internal/routing"
)

// App holds every long-lived component of the service.
type App struct {
	Config       *config.Config
	Events       *hooks.EventBus
	Hooks        *hooks.HookManager
	Intelligence *intelligence.Service
	Router       *routing.Router
	Audit        *feedback.Collector
	Registry     *prometheus.Registry
	Server       *api.Server
}

// Build creates and initializes the components described by cfg.
//
// Parameters:
//   - ctx: Context for initialization (redis ping, schema creation)
//   - cfg: The application configuration
//
// Returns:
//   - *App: The assembled application
//   - error: The first initialization error; partially built components are shut down
func Build(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	app := &App{
		Config:   cfg,
		Events:   hooks.NewEventBus(),
		Registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			_ = app.Shutdown(context.Background())
		}
	}()

	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Events.RegisterMetrics(app.Registry)
	logging.SubscribeEvents(app.Events)

	if cfg.Hooks.Enabled {
		if app.Hooks, err = hooks.NewHookManager(cfg.Hooks.Dir, app.Events); err != nil {
			return nil, fmt.Errorf("hooks: %w", err)
		}
		if err = app.Hooks.LoadHooks(); err != nil {
			return nil, fmt.Errorf("hooks: %w", err)
		}
		app.Hooks.SubscribeToAllEvents()
		if cfg.Hooks.Watch {
			if errWatch := app.Hooks.StartWatcher(); errWatch != nil {
				log.Warnf("Failed to watch hooks directory: %v", errWatch)
			}
		}
		log.Infof("Loaded %d automation hooks from %s", len(app.Hooks.GetHooks()), app.Hooks.GetHooksDir())
	}

	app.Intelligence = intelligence.NewService(&cfg.Intelligence, app.Events, app.Registry)
	if err = app.Intelligence.Initialize(ctx); err != nil {
		return nil, err
	}

	opts := routing.OptionsFromConfig(cfg.Routing)
	opts.Metrics = app.Intelligence.Metrics()
	opts.Events = app.Events
	app.Router = routing.NewRouter(opts)

	deps := api.Dependencies{
		Recognizer: app.Intelligence.Recognizer(),
		Router:     app.Router,
		Gatherer:   app.Registry,
	}
	if cfg.Audit.Enabled {
		if app.Audit, err = feedback.NewCollector(cfg.Audit.DBPath, cfg.Audit.RetentionDays); err != nil {
			return nil, fmt.Errorf("audit: %w", err)
		}
		if err = app.Audit.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("audit: %w", err)
		}
		app.Audit.Subscribe(app.Events)
		deps.Audit = app.Audit
	}

	app.Server = api.NewServer(cfg, deps)
	return app, nil
}

// Shutdown stops every component in reverse start order.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	// Drain queued events before the audit store closes
	if a.Events != nil {
		a.Events.Shutdown()
	}
	if a.Hooks != nil {
		a.Hooks.Close()
	}
	if a.Audit != nil {
		errs = append(errs, a.Audit.Shutdown(ctx))
	}
	if a.Intelligence != nil {
		errs = append(errs, a.Intelligence.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// StartService builds the service and runs it until SIGINT or SIGTERM.
//
// Parameters:
//   - cfg: The application configuration
func StartService(cfg *config.Config) {
	ctxSignal, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := Build(ctxSignal, cfg)
	if err != nil {
		log.Errorf("failed to build service: %v", err)
		return
	}

	err = app.Server.Run(ctxSignal)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("service exited with error: %v", err)
	}
	if err := app.Shutdown(context.Background()); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}
