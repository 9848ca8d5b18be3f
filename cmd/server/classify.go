// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/traylinx/intentrouter/internal/cmd"
	"github.com/traylinx/intentrouter/internal/intelligence"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

// handleClassifyCommand recognizes and routes a single message offline and
// prints the result as JSON.
func handleClassifyCommand(args []string, w io.Writer) int {
	flagSet := flag.NewFlagSet("classify", flag.ContinueOnError)
	flagSet.SetOutput(w)
	configPath := flagSet.String("config", DefaultConfigPath, "Configure File Path")
	message := flagSet.String("message", "", "Message to classify")
	tenantDomain := flagSet.String("domain", "", "Tenant business domain")
	timeout := flagSet.Duration("timeout", 10*time.Second, "Overall timeout")
	if err := flagSet.Parse(args); err != nil {
		return 1
	}
	if *message == "" {
		fmt.Fprintln(w, "Error: --message required")
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 1
	}
	// Offline runs never touch the audit store or the hooks directory.
	cfg.Audit.Enabled = false
	cfg.Hooks.Enabled = false

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	app, err := cmd.Build(ctx, cfg)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 1
	}
	defer app.Shutdown(context.Background())

	convCtx := &types.ConversationContext{SessionID: "cli"}
	if *tenantDomain != "" {
		convCtx.TenantConfig = &types.TenantConfig{Domain: *tenantDomain}
	}
	intent := app.Intelligence.Recognizer().RecognizeIntent(ctx, *message, convCtx, intelligence.RecognizeOptions{})
	decision := app.Router.Route(ctx, intent, convCtx)

	out, err := json.MarshalIndent(map[string]any{"intent": intent, "decision": decision}, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(w, string(out))
	return 0
}
