// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package textnorm turns raw channel messages into the canonical form every
// classifier, the cache key and the learning store operate on.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var emailRe = regexp.MustCompile(`[a-z0-9._+-]+@[a-z0-9-]+(?:\.[a-z0-9-]+)+`)

// Normalize lower-cases s, strips accents and punctuation and collapses
// whitespace. Separators that sit between two digits (14:00, 25/12,
// 99999-0000), a '+' that starts a number and e-mail addresses are kept so
// that times, dates, phone numbers and addresses survive.
func Normalize(s string) string {
	s = StripAccents(strings.ToLower(s))

	fields := strings.Fields(s)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		loc := emailRe.FindStringIndex(f)
		if loc == nil {
			parts = append(parts, clean(f))
			continue
		}
		addr := strings.Trim(f[loc[0]:loc[1]], ".-_+")
		parts = append(parts, clean(f[:loc[0]]), addr, clean(f[loc[1]:]))
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func clean(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for i, r := range rs {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
			continue
		case (r == ':' || r == '/' || r == '-' || r == '.') && digitAt(rs, i-1) && digitAt(rs, i+1):
			b.WriteRune(r)
			lastSpace = false
			continue
		case r == '+' && digitAt(rs, i+1):
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// StripAccents removes combining marks ("amanhã" -> "amanha").
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Tokens splits an already normalized string into its distinct words.
func Tokens(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func digitAt(rs []rune, i int) bool {
	return i >= 0 && i < len(rs) && unicode.IsDigit(rs[i])
}
