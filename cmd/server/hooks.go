// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/traylinx/intentrouter/internal/config"
	"github.com/traylinx/intentrouter/internal/hooks"
)

// HooksCommand represents available hooks subcommands
type HooksCommand string

const (
	HooksList HooksCommand = "list"
	HooksTest HooksCommand = "test"
)

// HooksOptions holds the command-line options for hooks commands
type HooksOptions struct {
	Command    HooksCommand
	ConfigPath string
	HookID     string
	Event      string
	TenantID   string
	Data       string // JSON data for test
	Format     string
}

// ParseHooksCommand parses command arguments
func ParseHooksCommand(args []string) (*HooksOptions, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing subcommand")
	}

	opts := &HooksOptions{Command: HooksCommand(args[0])}
	flagSet := flag.NewFlagSet("hooks", flag.ContinueOnError)
	flagSet.StringVar(&opts.ConfigPath, "config", DefaultConfigPath, "Configure File Path")
	flagSet.StringVar(&opts.HookID, "id", "", "Target hook ID")
	flagSet.StringVar(&opts.Event, "event", string(hooks.EventEscalationRequired), "Event type for test")
	flagSet.StringVar(&opts.TenantID, "tenant", "", "Tenant ID of the simulated event")
	flagSet.StringVar(&opts.Data, "data", "{}", "JSON data payload for test")
	flagSet.StringVar(&opts.Format, "format", "table", "Output format (table/json)")

	if err := flagSet.Parse(args[1:]); err != nil {
		return nil, err
	}
	return opts, nil
}

func printHooksUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: intentrouter hooks <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  list           List all enabled hooks")
	fmt.Fprintln(w, "  test           Test hook conditions against a simulated event")
	fmt.Fprintln(w, "\nExamples:")
	fmt.Fprintln(w, "  intentrouter hooks list --format json")
	fmt.Fprintln(w, `  intentrouter hooks test --event escalation_required --tenant clinic-1 --data '{"escalation":"supervisor"}'`)
}

func handleHooksCommand(args []string, w io.Writer) int {
	opts, err := ParseHooksCommand(args)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		printHooksUsage(w)
		return 1
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 1
	}
	manager, err := getHookManager(cfg)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 1
	}

	switch opts.Command {
	case HooksList:
		return doHooksList(w, manager, opts)
	case HooksTest:
		return doHooksTest(w, manager, opts)
	default:
		fmt.Fprintf(w, "Unknown command: %s\n", opts.Command)
		printHooksUsage(w)
		return 1
	}
}

func getHookManager(cfg *config.Config) (*hooks.HookManager, error) {
	// A standalone bus; nothing is published from the CLI.
	manager, err := hooks.NewHookManager(cfg.Hooks.Dir, hooks.NewEventBus())
	if err != nil {
		return nil, err
	}
	if err := manager.LoadHooks(); err != nil {
		return nil, err
	}
	return manager, nil
}

func doHooksList(w io.Writer, manager *hooks.HookManager, opts *HooksOptions) int {
	allHooks := manager.GetHooks()
	if len(allHooks) == 0 {
		fmt.Fprintln(w, "No hooks configured.")
		fmt.Fprintf(w, "Create hook files in: %s\n", manager.GetHooksDir())
		return 0
	}

	if opts.Format == "json" {
		data, err := json.MarshalIndent(allHooks, "", "  ")
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintln(w, string(data))
		return 0
	}

	fmt.Fprintln(w, "Configured Hooks")
	fmt.Fprintln(w, "================")
	fmt.Fprintf(w, "Hooks Directory: %s\n", manager.GetHooksDir())
	fmt.Fprintf(w, "Total Hooks: %d\n\n", len(allHooks))
	for i, hook := range allHooks {
		fmt.Fprintf(w, "[%d] %s\n", i+1, hook.Name)
		fmt.Fprintf(w, "    ID: %s\n", hook.ID)
		fmt.Fprintf(w, "    Event: %s\n", hook.Event)
		fmt.Fprintf(w, "    Action: %s\n", hook.Action)
		if hook.Condition != "" {
			fmt.Fprintf(w, "    Condition: %s\n", hook.Condition)
		}
		if len(hook.Tenants) > 0 {
			fmt.Fprintf(w, "    Tenants: %s\n", strings.Join(hook.Tenants, ", "))
		}
		if hook.Cooldown > 0 {
			fmt.Fprintf(w, "    Cooldown: %s\n", hook.Cooldown)
		}
		if hook.Description != "" {
			fmt.Fprintf(w, "    Description: %s\n", hook.Description)
		}
		fmt.Fprintf(w, "    File: %s\n\n", hook.FilePath)
	}
	return 0
}

func doHooksTest(w io.Writer, manager *hooks.HookManager, opts *HooksOptions) int {
	var data map[string]any
	if err := json.Unmarshal([]byte(opts.Data), &data); err != nil {
		fmt.Fprintf(w, "Error parsing data JSON: %v\n", err)
		return 1
	}

	evt := &hooks.EventContext{
		Event:     hooks.HookEvent(opts.Event),
		Timestamp: time.Now(),
		TenantID:  opts.TenantID,
		Data:      data,
	}

	candidates := manager.GetHooks()
	if opts.HookID != "" {
		hook := manager.GetHook(opts.HookID)
		if hook == nil {
			fmt.Fprintf(w, "Error: Hook with ID '%s' not found\n", opts.HookID)
			return 1
		}
		candidates = []*hooks.Hook{hook}
	}

	fmt.Fprintf(w, "Testing %d hook(s) against %s\n", len(candidates), evt.Event)
	matched, failed := 0, 0
	for _, hook := range candidates {
		switch {
		case hook.Event != evt.Event:
			fmt.Fprintf(w, "  %s: event mismatch (expects %s)\n", hook.ID, hook.Event)
		default:
			ok, err := manager.EvaluateCondition(hook, evt)
			switch {
			case err != nil:
				failed++
				fmt.Fprintf(w, "  %s: condition failed: %v\n", hook.ID, err)
			case ok:
				matched++
				fmt.Fprintf(w, "  %s: would execute %s\n", hook.ID, hook.Action)
			default:
				fmt.Fprintf(w, "  %s: condition not met\n", hook.ID)
			}
		}
	}
	fmt.Fprintf(w, "Matched: %d, Failed: %d\n", matched, failed)
	if failed > 0 {
		return 1
	}
	return 0
}
