// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package entity extracts typed spans (dates, times, phone numbers, names,
// e-mail addresses, urgency markers, services) from normalized message text.
package entity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

// Entity type names.
const (
	TypeDate    = "date"
	TypeTime    = "time"
	TypePhone   = "phone"
	TypeName    = "name"
	TypeEmail   = "email"
	TypeUrgency = "urgency"
	TypeService = "service"
)

const (
	firstMatchConfidence = 0.8
	confidenceStep       = 0.1
)

// normalizer maps the submatches of one regex hit onto a canonical value.
// ok=false drops the hit.
type normalizer func(groups []string) (value string, ok bool)

type rule struct {
	entityType string
	patterns   []*regexp.Regexp
	normalize  normalizer
}

// Extractor applies an ordered list of regular expressions per entity type.
// It is safe for concurrent use; all state is fixed at construction.
type Extractor struct {
	rules []rule
}

// NewExtractor returns an extractor for every registered entity type.
func NewExtractor() *Extractor {
	return &Extractor{rules: defaultRules()}
}

// NewReducedExtractor returns an extractor limited to dates, times and phone
// numbers.
func NewReducedExtractor() *Extractor {
	return NewExtractorFor(TypeDate, TypeTime, TypePhone)
}

// NewExtractorFor returns an extractor limited to the given entity types, in
// registration order.
func NewExtractorFor(entityTypes ...string) *Extractor {
	want := make(map[string]bool, len(entityTypes))
	for _, t := range entityTypes {
		want[t] = true
	}
	var rules []rule
	for _, r := range defaultRules() {
		if want[r.entityType] {
			rules = append(rules, r)
		}
	}
	return &Extractor{rules: rules}
}

// Extract returns every entity found in normalizedText. Confidence starts at
// 0.8 for the first match of a type and drops by 0.1 for each further match of
// that type; it is not floored, callers clamp.
func (e *Extractor) Extract(normalizedText string) []types.Entity {
	out := make([]types.Entity, 0)
	if normalizedText == "" {
		return out
	}
	for _, r := range e.rules {
		var spans [][2]int
		n := 0
		for _, re := range r.patterns {
			for _, loc := range re.FindAllStringSubmatchIndex(normalizedText, -1) {
				start, end := loc[0], loc[1]
				if overlaps(spans, start, end) {
					continue
				}
				groups := make([]string, len(loc)/2)
				for g := range groups {
					if loc[2*g] >= 0 {
						groups[g] = normalizedText[loc[2*g]:loc[2*g+1]]
					}
				}
				value, ok := r.normalize(groups)
				if !ok {
					continue
				}
				spans = append(spans, [2]int{start, end})
				out = append(out, types.Entity{
					Type:       r.entityType,
					Value:      value,
					Confidence: firstMatchConfidence - confidenceStep*float64(n),
					Start:      start,
					End:        end,
				})
				n++
			}
		}
	}
	return out
}

func overlaps(spans [][2]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && end > s[0] {
			return true
		}
	}
	return false
}

// Dedupe keeps one entity per (type, lower-cased value), the one with the
// highest confidence. First-seen order is preserved.
func Dedupe(entities []types.Entity) []types.Entity {
	index := make(map[string]int, len(entities))
	out := make([]types.Entity, 0, len(entities))
	for _, ent := range entities {
		key := ent.Type + "\x00" + strings.ToLower(ent.Value)
		if i, ok := index[key]; ok {
			if ent.Confidence > out[i].Confidence {
				out[i] = ent
			}
			continue
		}
		index[key] = len(out)
		out = append(out, ent)
	}
	return out
}

func defaultRules() []rule {
	return []rule{
		{
			entityType: TypeDate,
			patterns: compile(
				`\bdepois de amanha\b`,
				`\b(hoje|amanha|today|tomorrow)\b`,
				`\b(segunda|terca|quarta|quinta|sexta|sabado|domingo)(?:[ -]feira)?\b`,
				`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`,
				`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`,
			),
			normalize: normalizeDate,
		},
		{
			entityType: TypeTime,
			patterns: compile(
				`\b([01]?\d|2[0-3]):([0-5]\d)\b`,
				`\b([01]?\d|2[0-3]) ?h(?:rs?)?([0-5]\d)?\b`,
				`\b(1[0-2]|0?[1-9]) ?(am|pm)\b`,
			),
			normalize: normalizeTime,
		},
		{
			entityType: TypePhone,
			patterns: compile(
				`\+?\d[\d -]{6,16}\d`,
			),
			normalize: normalizePhone,
		},
		{
			entityType: TypeName,
			patterns: compile(
				`\b(?:meu nome e|me chamo|my name is)\s+([a-z]+(?:\s[a-z]+)?)`,
			),
			normalize: func(g []string) (string, bool) {
				name := strings.TrimSpace(g[1])
				return name, name != ""
			},
		},
		{
			entityType: TypeEmail,
			patterns: compile(
				`[a-z0-9._+-]+@[a-z0-9-]+(?:\.[a-z0-9-]+)+`,
			),
			normalize: func(g []string) (string, bool) { return g[0], true },
		},
		{
			entityType: TypeUrgency,
			patterns: compile(
				`\b(urgente|urgencia|emergencia|socorro|imediatamente|agora mesmo|urgent|emergency|asap)\b`,
			),
			normalize: func(g []string) (string, bool) { return g[1], true },
		},
		{
			entityType: TypeService,
			patterns: compile(
				`\b(manicure|pedicure|corte|cabelo|barba|massagem|consulta|exame|limpeza|depilacao|sobrancelha|maquiagem|tratamento|terapia|aula|revisao|treino|haircut|massage|appointment)\b`,
			),
			normalize: func(g []string) (string, bool) { return g[1], true },
		},
	}
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

var relativeDates = map[string]string{
	"depois de amanha": "day_after_tomorrow",
	"hoje":             "today",
	"today":            "today",
	"amanha":           "tomorrow",
	"tomorrow":         "tomorrow",
}

var weekdays = map[string]string{
	"segunda": "monday", "terca": "tuesday", "quarta": "wednesday", "quinta": "thursday",
	"sexta": "friday", "sabado": "saturday", "domingo": "sunday",
	"monday": "monday", "tuesday": "tuesday", "wednesday": "wednesday", "thursday": "thursday",
	"friday": "friday", "saturday": "saturday", "sunday": "sunday",
}

func normalizeDate(g []string) (string, bool) {
	if v, ok := relativeDates[g[0]]; ok {
		return v, true
	}
	if len(g) > 1 {
		if v, ok := relativeDates[g[1]]; ok {
			return v, true
		}
		if v, ok := weekdays[g[1]]; ok {
			return v, true
		}
	}
	if len(g) >= 3 && g[1] != "" && g[2] != "" {
		day, errDay := strconv.Atoi(g[1])
		month, errMonth := strconv.Atoi(g[2])
		if errDay != nil || errMonth != nil {
			return "", false
		}
		if day < 1 || day > 31 || month < 1 || month > 12 {
			return "", false
		}
		if len(g) >= 4 && g[3] != "" {
			return fmt.Sprintf("%02d/%02d/%s", day, month, g[3]), true
		}
		return fmt.Sprintf("%02d/%02d", day, month), true
	}
	return "", false
}

func normalizeTime(g []string) (string, bool) {
	hour, err := strconv.Atoi(g[1])
	if err != nil {
		return "", false
	}
	minute := 0
	if len(g) > 2 && g[2] != "" {
		switch g[2] {
		case "am":
			if hour == 12 {
				hour = 0
			}
		case "pm":
			if hour < 12 {
				hour += 12
			}
		default:
			if minute, err = strconv.Atoi(g[2]); err != nil {
				return "", false
			}
		}
	}
	if hour > 23 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

func normalizePhone(g []string) (string, bool) {
	var b strings.Builder
	for _, r := range g[0] {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 8 || len(digits) > 13 {
		return "", false
	}
	return digits, true
}
