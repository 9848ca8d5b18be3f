// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the intent routing server.
// The server classifies inbound customer messages with an ensemble of
// engines and derives a routing decision for each of them.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/intentrouter/internal/buildinfo"
	"github.com/traylinx/intentrouter/internal/cmd"
	"github.com/traylinx/intentrouter/internal/config"
	"github.com/traylinx/intentrouter/internal/logging"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = "config.yaml"
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	// Load environment variables from .env if present.
	if wd, err := os.Getwd(); err == nil {
		if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil && !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "hooks":
			os.Exit(handleHooksCommand(os.Args[2:], os.Stdout))
		case "classify":
			os.Exit(handleClassifyCommand(os.Args[2:], os.Stdout))
		}
	}

	var configPath string
	var showVersion bool
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	fmt.Printf("intentrouter Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
	if showVersion {
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		os.Exit(1)
	}

	if err := logging.ConfigureLogOutput(cfg.LoggingToFile, cfg.LogsDir, cfg.LogsMaxSizeMB); err != nil {
		log.Errorf("failed to configure log output: %v", err)
		os.Exit(1)
	}
	logging.SetDebug(cfg.Debug)
	if key := cfg.Intelligence.ExternalAI.APIKey; key != "" {
		log.Infof("External-AI provider %s (key %s)", cfg.Intelligence.ExternalAI.Provider, logging.HideAPIKey(key))
	}

	cmd.StartService(cfg)
	logging.CloseLogOutputs()
}

// loadConfig reads configPath; a missing file yields the defaults.
func loadConfig(configPath string) (*config.Config, error) {
	return config.LoadConfigOptional(configPath, true)
}
