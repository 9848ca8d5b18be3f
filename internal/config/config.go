// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the intent router
// server. It handles loading and parsing the YAML configuration file and
// provides structured access to the server, intelligence, routing, audit and
// hooks settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort    = 8320
	DefaultLogsDir = "logs"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the network host/interface on which the API server will bind.
	// Default is empty ("") to bind all interfaces.
	Host string `yaml:"host" json:"-"`
	// Port is the network port on which the API server will listen.
	Port int `yaml:"port" json:"-"`

	// Debug enables or disables debug-level logging and other debug features.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile controls whether application logs are written to rotating files or stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogsDir is the directory for rotating log files.
	LogsDir string `yaml:"logs-dir" json:"logs-dir"`

	// LogsMaxSizeMB is the size at which the active log file is rotated.
	LogsMaxSizeMB int `yaml:"logs-max-size-mb" json:"logs-max-size-mb"`

	// Intelligence configures the recognition ensemble.
	Intelligence IntelligenceConfig `yaml:"intelligence" json:"intelligence"`

	// Routing configures the routing decision engine.
	Routing RoutingConfig `yaml:"routing" json:"routing"`

	// Audit configures persistence of routing decisions.
	Audit AuditConfig `yaml:"audit" json:"audit"`

	// Hooks configures user defined automation hooks.
	Hooks HooksConfig `yaml:"hooks" json:"hooks"`
}

// AuditConfig controls the SQLite audit trail of routing decisions.
type AuditConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// DBPath is the SQLite database file. Default: "./data/audit.db".
	DBPath string `yaml:"db-path" json:"db-path"`
	// RetentionDays drops decisions older than this many days. 0 uses 30.
	RetentionDays int `yaml:"retention-days" json:"retention-days"`
}

// HooksConfig controls the automation hook manager.
type HooksConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Dir holds the *.yaml hook definitions. Empty uses ~/.intentrouter/hooks.
	Dir string `yaml:"dir" json:"dir"`
	// Watch reloads hooks when the directory changes.
	Watch bool `yaml:"watch" json:"watch"`
}

// LoadConfig reads the YAML configuration from configFile.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads YAML from configFile.
// If optional is true and the file is missing, it returns the default Config.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		if optional && (os.IsNotExist(err) || errors.Is(err, syscall.EISDIR)) {
			cfg := Default()
			cfg.Sanitize()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Set defaults before unmarshal so that absent keys keep defaults.
	cfg := Default()
	if len(strings.TrimSpace(string(data))) > 0 {
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.Sanitize()
	return cfg, nil
}

// Default returns a configuration populated with default values.
func Default() *Config {
	cfg := &Config{
		Host:          "",
		Port:          DefaultPort,
		LogsDir:       DefaultLogsDir,
		LogsMaxSizeMB: 10,
		Intelligence:  defaultIntelligence(),
		Routing:       defaultRouting(),
		Audit: AuditConfig{
			Enabled:       false,
			DBPath:        "./data/audit.db",
			RetentionDays: 30,
		},
		Hooks: HooksConfig{
			Enabled: false,
			Watch:   true,
		},
	}
	return cfg
}

// Sanitize normalizes every section after unmarshal.
func (cfg *Config) Sanitize() {
	if cfg == nil {
		return
	}
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = DefaultPort
	}
	cfg.LogsDir = strings.TrimSpace(cfg.LogsDir)
	if cfg.LogsDir == "" {
		cfg.LogsDir = DefaultLogsDir
	}
	if cfg.LogsMaxSizeMB <= 0 {
		cfg.LogsMaxSizeMB = 10
	}

	cfg.SanitizeIntelligence()
	cfg.SanitizeRouting()

	cfg.Audit.DBPath = strings.TrimSpace(cfg.Audit.DBPath)
	if cfg.Audit.DBPath == "" {
		cfg.Audit.DBPath = "./data/audit.db"
	}
	if cfg.Audit.RetentionDays < 0 {
		cfg.Audit.RetentionDays = 0
	}
	cfg.Hooks.Dir = strings.TrimSpace(cfg.Hooks.Dir)
}

// Address returns the listen address for the HTTP server.
func (cfg *Config) Address() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}
