// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hooks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidHook is returned for hook files that cannot be activated.
	ErrInvalidHook = errors.New("invalid hook")
	// ErrNotBoolean is returned when a condition yields a non-boolean value.
	ErrNotBoolean = errors.New("condition did not return boolean")
)

// reloadDelay lets editors finish writing before the directory is re-read.
const reloadDelay = 100 * time.Millisecond

// HookManager loads automation hooks from a directory and runs their actions
// when a matching pipeline event is published.
type HookManager struct {
	hooksDir       string
	eventBus       *EventBus
	mu             sync.RWMutex
	hooks          map[HookEvent][]*Hook
	actionHandlers map[HookAction]ActionHandler

	fireMu    sync.Mutex
	lastFired map[string]time.Time
	now       func() time.Time
	inflight  sync.WaitGroup

	watcher     *fsnotify.Watcher
	stopWatcher chan struct{}
}

// NewHookManager creates a manager for hooksDir. An empty hooksDir uses
// ~/.intentrouter/hooks. Built-in actions are registered; custom actions must
// be registered before LoadHooks.
func NewHookManager(hooksDir string, eventBus *EventBus) (*HookManager, error) {
	if hooksDir == "" {
		base, err := os.UserHomeDir()
		if err != nil {
			if base, err = os.Getwd(); err != nil {
				return nil, fmt.Errorf("resolve hooks directory: %w", err)
			}
		}
		hooksDir = filepath.Join(base, ".intentrouter", "hooks")
	}

	manager := &HookManager{
		hooksDir:       hooksDir,
		eventBus:       eventBus,
		hooks:          make(map[HookEvent][]*Hook),
		actionHandlers: make(map[HookAction]ActionHandler),
		lastFired:      make(map[string]time.Time),
		now:            time.Now,
		stopWatcher:    make(chan struct{}),
	}
	RegisterBuiltInActions(manager)
	return manager, nil
}

// LoadHooks replaces the active hook table with the enabled hooks found in
// the directory. Files that fail to parse or validate are logged and skipped;
// a later file reusing an ID is skipped as well.
func (m *HookManager) LoadHooks() error {
	if err := os.MkdirAll(m.hooksDir, 0o755); err != nil {
		return fmt.Errorf("failed to create hooks directory: %w", err)
	}

	byEvent := make(map[HookEvent][]*Hook)
	seen := make(map[string]string)
	err := filepath.WalkDir(m.hooksDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isHookFile(path) {
			return nil
		}
		hook, errLoad := m.loadHookFile(path)
		switch {
		case errLoad != nil:
			log.Errorf("Skipping hook file %s: %v", path, errLoad)
		case hook == nil:
		case seen[hook.ID] != "":
			log.Errorf("Skipping hook file %s: id %q already defined in %s", path, hook.ID, seen[hook.ID])
		default:
			seen[hook.ID] = path
			byEvent[hook.Event] = append(byEvent[hook.Event], hook)
			log.Debugf("Loaded hook %s for event %s", hook.ID, hook.Event)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.hooks = byEvent
	m.mu.Unlock()

	log.Infof("Loaded %d hooks from %s", len(seen), m.hooksDir)
	return nil
}

func isHookFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// loadHookFile parses and validates one file. Disabled hooks yield nil.
func (m *HookManager) loadHookFile(path string) (*Hook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var hook Hook
	if err = yaml.Unmarshal(data, &hook); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHook, err)
	}
	if !hook.Enabled {
		return nil, nil
	}
	hook.FilePath = path
	if err = m.validate(&hook); err != nil {
		return nil, err
	}
	return &hook, nil
}

func (m *HookManager) validate(hook *Hook) error {
	if strings.TrimSpace(hook.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidHook)
	}
	if !slices.Contains(AllEvents, hook.Event) {
		return fmt.Errorf("%w: unknown event %q", ErrInvalidHook, hook.Event)
	}
	m.mu.RLock()
	_, ok := m.actionHandlers[hook.Action]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidHook, hook.Action)
	}
	if hook.Cooldown < 0 {
		return fmt.Errorf("%w: negative cooldown", ErrInvalidHook)
	}
	program, err := compileCondition(hook.Condition)
	if err != nil {
		return fmt.Errorf("%w: condition: %v", ErrInvalidHook, err)
	}
	hook.program = program
	return nil
}

// compileCondition type-checks condition against ConditionEnv. An empty
// condition always matches and yields a nil program.
func compileCondition(condition string) (*vm.Program, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return nil, nil
	}
	return expr.Compile(condition, expr.Env(ConditionEnv{}), expr.AsBool())
}

// SubscribeToAllEvents subscribes the manager to every pipeline event once at
// startup; reloads only swap the hook table.
func (m *HookManager) SubscribeToAllEvents() {
	for _, evt := range AllEvents {
		m.eventBus.Subscribe(evt, m.handleEvent)
	}
}

func (m *HookManager) handleEvent(evt *EventContext) {
	m.mu.RLock()
	candidates := m.hooks[evt.Event]
	m.mu.RUnlock()
	if len(candidates) == 0 {
		return
	}

	env := NewConditionEnv(evt)
	for _, hook := range candidates {
		if !hook.appliesTo(evt.TenantID) {
			continue
		}
		matches, err := runCondition(hook.program, env)
		if err != nil {
			log.WithField("tenant_id", evt.TenantID).Warnf("Hook %s condition failed: %v", hook.ID, err)
			continue
		}
		if !matches {
			continue
		}
		if !m.claim(hook, evt.TenantID) {
			log.Debugf("Hook %s cooling down for tenant %q", hook.ID, evt.TenantID)
			continue
		}
		log.WithFields(log.Fields{
			"request_id": evt.RequestID,
			"tenant_id":  evt.TenantID,
		}).Infof("Executing hook %s (action %s)", hook.ID, hook.Action)
		m.inflight.Add(1)
		go func(hook *Hook) {
			defer m.inflight.Done()
			m.executeAction(hook, evt)
		}(hook)
	}
}

func (h *Hook) appliesTo(tenantID string) bool {
	return len(h.Tenants) == 0 || slices.Contains(h.Tenants, tenantID)
}

// claim records a firing unless the hook is still cooling down for tenantID.
func (m *HookManager) claim(hook *Hook, tenantID string) bool {
	if hook.Cooldown <= 0 {
		return true
	}
	key := hook.ID + "\x00" + tenantID
	now := m.now()

	m.fireMu.Lock()
	defer m.fireMu.Unlock()
	if last, ok := m.lastFired[key]; ok && now.Sub(last) < hook.Cooldown {
		return false
	}
	m.lastFired[key] = now
	return true
}

// NewConditionEnv lifts the well-known payload keys of evt into a
// ConditionEnv. The router's payload carries intent_type; the recognizer's
// carries intent as a string.
func NewConditionEnv(evt *EventContext) ConditionEnv {
	env := ConditionEnv{
		Event:     string(evt.Event),
		Timestamp: evt.Timestamp,
		Hour:      evt.Timestamp.Hour(),
		RequestID: evt.RequestID,
		TenantID:  evt.TenantID,
		SessionID: evt.SessionID,
		Error:     evt.ErrorMessage,
		Data:      evt.Data,
	}
	if env.Data == nil {
		env.Data = map[string]any{}
	}
	env.Intent = stringField(evt.Data, "intent_type")
	if env.Intent == "" {
		env.Intent = stringField(evt.Data, "intent")
	}
	env.Confidence = floatField(evt.Data, "confidence")
	env.Domain = stringField(evt.Data, "domain")
	env.Escalation = stringField(evt.Data, "escalation")
	env.Escalated = env.Escalation != "" && env.Escalation != "none"
	env.Priority = stringField(evt.Data, "priority")
	env.Engine = stringField(evt.Data, "engine")
	return env
}

func stringField(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func floatField(data map[string]any, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func runCondition(program *vm.Program, env ConditionEnv) (bool, error) {
	if program == nil {
		return true, nil
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}
	result, ok := out.(bool)
	if !ok {
		return false, ErrNotBoolean
	}
	return result, nil
}

func (m *HookManager) executeAction(hook *Hook, evt *EventContext) {
	m.mu.RLock()
	handler, exists := m.actionHandlers[hook.Action]
	m.mu.RUnlock()

	if !exists {
		log.Warnf("No handler registered for action: %s", hook.Action)
		return
	}
	if err := handler(hook, evt); err != nil {
		log.Errorf("Action %s failed for hook %s: %v", hook.Action, hook.ID, err)
	}
}

// RegisterAction registers a handler for a specific action type.
func (m *HookManager) RegisterAction(action HookAction, handler ActionHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actionHandlers[action] = handler
}

// StartWatcher reloads the hooks whenever a file in the directory changes.
func (m *HookManager) StartWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err = watcher.Add(m.hooksDir); err != nil {
		watcher.Close()
		return err
	}
	m.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isHookFile(event.Name) || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				log.Infof("Hook file %s changed, reloading", event.Name)
				time.Sleep(reloadDelay)
				if errLoad := m.LoadHooks(); errLoad != nil {
					log.Errorf("Failed to reload hooks: %v", errLoad)
				}
			case errWatch, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Errorf("Hooks watcher error: %v", errWatch)
			case <-m.stopWatcher:
				return
			}
		}
	}()
	return nil
}

// StopWatcher stops the file watcher.
func (m *HookManager) StopWatcher() {
	if m.watcher == nil {
		return
	}
	select {
	case <-m.stopWatcher:
	default:
		close(m.stopWatcher)
	}
	m.watcher.Close()
	m.watcher = nil
}

// Close stops the watcher and waits for running actions to finish.
func (m *HookManager) Close() {
	m.StopWatcher()
	m.inflight.Wait()
}

// GetHooksDir returns the hooks directory path.
func (m *HookManager) GetHooksDir() string {
	return m.hooksDir
}

// GetHooks returns every active hook ordered by ID.
func (m *HookManager) GetHooks() []*Hook {
	m.mu.RLock()
	result := make([]*Hook, 0)
	for _, hooks := range m.hooks {
		result = append(result, hooks...)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// GetHook returns a hook by ID.
func (m *HookManager) GetHook(id string) *Hook {
	for _, h := range m.GetHooks() {
		if h.ID == id {
			return h
		}
	}
	return nil
}

// EvaluateCondition evaluates h's condition against evt, ignoring tenant
// scoping and cooldowns. Hooks that were not loaded by the manager are
// compiled on the fly.
func (m *HookManager) EvaluateCondition(h *Hook, evt *EventContext) (bool, error) {
	program := h.program
	if program == nil && strings.TrimSpace(h.Condition) != "" {
		var err error
		if program, err = compileCondition(h.Condition); err != nil {
			return false, err
		}
	}
	return runCondition(program, NewConditionEnv(evt))
}
