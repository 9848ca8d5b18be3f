// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/intentrouter/internal/intelligence/textnorm"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

func valuesOf(entities []types.Entity, entityType string) []string {
	var out []string
	for _, e := range entities {
		if e.Type == entityType {
			out = append(out, e.Value)
		}
	}
	return out
}

func TestExtract_BookingMessage(t *testing.T) {
	text := textnorm.Normalize("Quero agendar uma manicure para amanhã às 14h")
	entities := NewExtractor().Extract(text)

	assert.Equal(t, []string{"tomorrow"}, valuesOf(entities, TypeDate))
	assert.Equal(t, []string{"14:00"}, valuesOf(entities, TypeTime))
	assert.Equal(t, []string{"manicure"}, valuesOf(entities, TypeService))
}

func TestExtract_SpansReferToNormalizedText(t *testing.T) {
	text := "amanha as 14:00"
	entities := NewExtractor().Extract(text)
	require.NotEmpty(t, entities)
	for _, e := range entities {
		assert.True(t, e.Start >= 0 && e.End <= len(text) && e.Start < e.End)
	}
	assert.Equal(t, "amanha", text[entities[0].Start:entities[0].End])
}

func TestExtract_ConfidenceDecreasesPerType(t *testing.T) {
	entities := NewExtractor().Extract("hoje amanha sexta feira")
	dates := []types.Entity{}
	for _, e := range entities {
		if e.Type == TypeDate {
			dates = append(dates, e)
		}
	}
	require.Len(t, dates, 3)
	assert.InDelta(t, 0.8, dates[0].Confidence, 1e-9)
	assert.InDelta(t, 0.7, dates[1].Confidence, 1e-9)
	assert.InDelta(t, 0.6, dates[2].Confidence, 1e-9)
}

func TestExtract_ConfidenceIsNotFloored(t *testing.T) {
	text := "hoje hoje hoje hoje hoje hoje hoje hoje hoje hoje"
	entities := NewExtractor().Extract(text)
	require.Len(t, entities, 10)
	assert.Less(t, entities[9].Confidence, 0.0)
}

func TestExtract_DayAfterTomorrowWinsOverTomorrow(t *testing.T) {
	entities := NewExtractor().Extract("depois de amanha")
	assert.Equal(t, []string{"day_after_tomorrow"}, valuesOf(entities, TypeDate))
}

func TestExtract_TimeForms(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"as 9:30", "09:30"},
		{"as 14h", "14:00"},
		{"as 14h30", "14:30"},
		{"at 3pm", "15:00"},
		{"at 12am", "00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, []string{tt.want}, valuesOf(NewExtractor().Extract(tt.in), TypeTime))
		})
	}
}

func TestExtract_NumericDates(t *testing.T) {
	assert.Equal(t, []string{"25/12"}, valuesOf(NewExtractor().Extract("dia 25/12"), TypeDate))
	assert.Equal(t, []string{"05/01/2025"}, valuesOf(NewExtractor().Extract("dia 5/1/2025"), TypeDate))
	assert.Empty(t, valuesOf(NewExtractor().Extract("dia 45/13"), TypeDate))
}

func TestExtract_PhoneDigitsOnly(t *testing.T) {
	text := textnorm.Normalize("Meu telefone é +55 (11) 99999-0000")
	assert.Equal(t, []string{"5511999990000"}, valuesOf(NewExtractor().Extract(text), TypePhone))
	assert.Empty(t, valuesOf(NewExtractor().Extract("codigo 1234"), TypePhone))
}

func TestExtract_NameAndUrgency(t *testing.T) {
	entities := NewExtractor().Extract("meu nome e maria silva e e urgente")
	assert.Equal(t, []string{"maria silva"}, valuesOf(entities, TypeName))
	assert.Equal(t, []string{"urgente"}, valuesOf(entities, TypeUrgency))
}

func TestExtract_Email(t *testing.T) {
	text := textnorm.Normalize("Meu email é Ana.Souza@clinica.com.br, obrigada")
	assert.Equal(t, []string{"ana.souza@clinica.com.br"}, valuesOf(NewExtractor().Extract(text), TypeEmail))
}

func TestReducedExtractor_OnlyDateTimePhone(t *testing.T) {
	entities := NewReducedExtractor().Extract("me chamo joao quero manicure amanha as 10h socorro")
	for _, e := range entities {
		assert.Contains(t, []string{TypeDate, TypeTime, TypePhone}, e.Type)
	}
	assert.Len(t, entities, 2)
}

func TestDedupe_IdempotentForRepeatedPhrases(t *testing.T) {
	ex := NewExtractor()
	twice := Dedupe(ex.Extract(textnorm.Normalize("amanhã às 14:00, amanhã às 14:00")))
	once := Dedupe(ex.Extract(textnorm.Normalize("amanhã às 14:00")))

	require.Len(t, twice, len(once))
	for i := range once {
		assert.Equal(t, once[i].Type, twice[i].Type)
		assert.Equal(t, once[i].Value, twice[i].Value)
		assert.Equal(t, once[i].Confidence, twice[i].Confidence)
	}
}

func TestDedupe_KeepsHighestConfidence(t *testing.T) {
	in := []types.Entity{
		{Type: "name", Value: "Ana", Confidence: 0.4},
		{Type: "name", Value: "ana", Confidence: 0.9},
		{Type: "date", Value: "ana", Confidence: 0.1},
	}
	out := Dedupe(in)
	require.Len(t, out, 2)
	assert.Equal(t, 0.9, out[0].Confidence)
	assert.Equal(t, "date", out[1].Type)
}

func TestExtract_Empty(t *testing.T) {
	assert.Empty(t, NewExtractor().Extract(""))
}
