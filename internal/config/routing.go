// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"strings"
	"time"

	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

// RoutingConfig defines the routing decision engine settings.
type RoutingConfig struct {
	// BusinessHoursStart and BusinessHoursEnd bound the local hours (inclusive)
	// considered in-hours. Defaults: 8 and 18.
	BusinessHoursStart int `yaml:"business-hours-start" json:"business-hours-start"`
	BusinessHoursEnd   int `yaml:"business-hours-end" json:"business-hours-end"`

	// Timezone is used when the tenant does not configure one. Default: "UTC".
	Timezone string `yaml:"timezone" json:"timezone"`

	// LoadThreshold above which the system_load alternative rule fires. Default: 0.8.
	LoadThreshold float64 `yaml:"load-threshold" json:"load-threshold"`

	// StaticLoad is the value reported by the constant load source.
	StaticLoad float64 `yaml:"static-load" json:"static-load"`

	// CustomRules are evaluated for every tenant after the built-in escalation rows.
	CustomRules []types.CustomRule `yaml:"custom-rules" json:"custom-rules"`
}

func defaultRouting() RoutingConfig {
	return RoutingConfig{
		BusinessHoursStart: 8,
		BusinessHoursEnd:   18,
		Timezone:           "UTC",
		LoadThreshold:      0.8,
	}
}

// SanitizeRouting validates hours, the timezone and drops incomplete custom rules.
func (cfg *Config) SanitizeRouting() {
	if cfg == nil {
		return
	}
	rc := &cfg.Routing
	if rc.BusinessHoursStart < 0 || rc.BusinessHoursStart > 23 {
		rc.BusinessHoursStart = 8
	}
	if rc.BusinessHoursEnd < 0 || rc.BusinessHoursEnd > 23 || rc.BusinessHoursEnd < rc.BusinessHoursStart {
		rc.BusinessHoursEnd = 18
	}
	rc.Timezone = strings.TrimSpace(rc.Timezone)
	if _, err := time.LoadLocation(rc.Timezone); rc.Timezone == "" || err != nil {
		rc.Timezone = "UTC"
	}
	if rc.LoadThreshold <= 0 || rc.LoadThreshold > 1 {
		rc.LoadThreshold = 0.8
	}
	if rc.StaticLoad < 0 {
		rc.StaticLoad = 0
	}

	out := make([]types.CustomRule, 0, len(rc.CustomRules))
	for _, r := range rc.CustomRules {
		r.Name = strings.TrimSpace(r.Name)
		r.Condition = strings.TrimSpace(r.Condition)
		if r.Condition == "" || r.Escalation == "" || r.Escalation == types.EscalationNone {
			continue
		}
		if r.Name == "" {
			r.Name = "custom_rule"
		}
		out = append(out, r)
	}
	rc.CustomRules = out
}
