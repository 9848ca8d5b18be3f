// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cognitive implements the external-AI classifier: it asks a hosted
// completion service to label a message and parses the structured reply.
package cognitive

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

const (
	// malformedConfidence is reported when the reply cannot be understood.
	malformedConfidence = 0.5
	// defaultReplyConfidence is used when the reply omits a confidence.
	defaultReplyConfidence = 0.5
	// recentMessages is how much history the prompt carries.
	recentMessages = 3
)

// Classifier is the external-AI engine of the ensemble.
type Classifier struct {
	completer Completer
	tracker   *Tracker
}

// NewClassifier creates a classifier backed by completer.
func NewClassifier(completer Completer) *Classifier {
	return &Classifier{completer: completer, tracker: NewTracker()}
}

// Name identifies the engine in logs and vote metadata.
func (c *Classifier) Name() string { return string(types.EngineExternalAI) }

// Kind reports EngineExternalAI.
func (c *Classifier) Kind() types.EngineKind { return types.EngineExternalAI }

// Tracker exposes the reply confidence distribution.
func (c *Classifier) Tracker() *Tracker { return c.tracker }

// Classify sends text and a context summary to the completion service.
// Service errors are returned; unparseable replies are not errors and yield
// {other, 0.5} with a reasoning note.
func (c *Classifier) Classify(ctx context.Context, text string, convCtx *types.ConversationContext) (*types.Intent, error) {
	if c.completer == nil {
		return nil, ErrNoCompleter
	}
	reply, err := c.completer.Complete(ctx, systemPrompt(), userPrompt(text, convCtx))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reply) == "" {
		return nil, ErrEmptyReply
	}
	intent, malformed := ParseReply(reply)
	c.tracker.Record(intent.Confidence, malformed)
	return intent, nil
}

func systemPrompt() string {
	names := make([]string, len(types.Catalog))
	for i, t := range types.Catalog {
		names[i] = string(t)
	}
	var b strings.Builder
	b.WriteString("You classify customer messages sent to a scheduling business.\n")
	b.WriteString("Answer with a single JSON object and nothing else:\n")
	b.WriteString(`{"intent": string, "confidence": number between 0 and 1, "entities": [{"type": string, "value": string, "confidence": number}], "reasoning": string}`)
	b.WriteString("\nThe intent must be one of: ")
	b.WriteString(strings.Join(names, ", "))
	b.WriteString(".\nEntity types: date, time, phone, name, email, urgency, service.")
	return b.String()
}

func userPrompt(text string, convCtx *types.ConversationContext) string {
	return fmt.Sprintf("Message: %q\nContext: %s", text, contextSummary(convCtx))
}

// contextSummary renders the parts of convCtx the model needs as JSON.
func contextSummary(convCtx *types.ConversationContext) string {
	summary := `{}`
	summary, _ = sjson.Set(summary, "turn", convCtx.Turn())
	if convCtx == nil {
		return summary
	}
	if d := convCtx.TenantDomain(); d != "" {
		summary, _ = sjson.Set(summary, "business_domain", d)
	}
	if convCtx.TenantConfig != nil && convCtx.TenantConfig.AIPersonality != "" {
		summary, _ = sjson.Set(summary, "personality", convCtx.TenantConfig.AIPersonality)
	}
	if convCtx.LastIntent != "" {
		summary, _ = sjson.Set(summary, "last_intent", string(convCtx.LastIntent))
	}
	history := convCtx.ConversationHistory
	if len(history) > recentMessages {
		history = history[len(history)-recentMessages:]
	}
	for _, m := range history {
		summary, _ = sjson.Set(summary, "recent_messages.-1", map[string]string{"role": m.Role, "content": m.Content})
	}
	return summary
}

// ParseReply extracts the classification from a free-text reply. The second
// return value reports whether the reply had to be replaced by the fallback.
func ParseReply(reply string) (*types.Intent, bool) {
	block := extractJSON(stripFences(reply))
	if block == "" || !gjson.Valid(block) {
		return fallback("reply did not contain a valid JSON object"), true
	}

	parsed := gjson.Parse(block)
	raw := parsed.Get("intent").String()
	intentType, ok := types.ParseIntentType(strings.ToLower(strings.TrimSpace(raw)))
	if !ok {
		return fallback(fmt.Sprintf("unknown intent %q in reply", raw)), true
	}

	confidence := defaultReplyConfidence
	if v := parsed.Get("confidence"); v.Exists() {
		confidence = types.Clamp01(v.Float())
	}

	intent := types.NewIntent(intentType, confidence)
	intent.Metadata.Reasoning = parsed.Get("reasoning").String()

	if entities := parsed.Get("entities"); entities.IsArray() {
		var decoded []types.Entity
		if err := json.Unmarshal([]byte(entities.Raw), &decoded); err == nil {
			for _, e := range decoded {
				if e.Type == "" || e.Value == "" {
					continue
				}
				e.Confidence = types.Clamp01(e.Confidence)
				intent.Entities = append(intent.Entities, e)
			}
		}
	}
	return intent, false
}

func fallback(reason string) *types.Intent {
	intent := types.NewIntent(types.IntentOther, malformedConfidence)
	intent.Metadata.Reasoning = reason
	return intent
}

func stripFences(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	body := s[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{}") {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return body
}

// extractJSON returns the first balanced {...} block of s, or "".
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
