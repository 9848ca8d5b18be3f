// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pattern

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/traylinx/intentrouter/internal/intelligence/textnorm"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

// Pattern is one keyword/phrase rule of an intent.
//
// Keywords are matched against message tokens: a keyword of four or more
// characters also matches any token it prefixes ("agend" matches "agendar"
// and "agendamento"). Phrases are matched as whole-word substrings.
type Pattern struct {
	Keywords []string `yaml:"keywords" json:"keywords"`
	Phrases  []string `yaml:"phrases" json:"phrases"`
	// Weight scales the pattern score. Zero means 1.0.
	Weight float64 `yaml:"weight" json:"weight"`
}

// IntentPatterns groups the patterns of a single intent.
type IntentPatterns struct {
	Intent   types.IntentType `yaml:"intent" json:"intent"`
	Patterns []Pattern        `yaml:"patterns" json:"patterns"`
}

// CatalogFile is the on-disk layout of a pattern catalog override.
type CatalogFile struct {
	Intents []IntentPatterns `yaml:"intents"`
}

// LoadCatalogFile reads and validates a YAML pattern catalog.
func LoadCatalogFile(path string) ([]IntentPatterns, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern catalog: %w", err)
	}
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse pattern catalog: %w", err)
	}
	if len(file.Intents) == 0 {
		return nil, fmt.Errorf("no intents found in pattern catalog %s", path)
	}
	return file.Intents, nil
}

type compiledPattern struct {
	keywords []string
	phrases  []string
	weight   float64
}

// compiled holds one slot per catalog intent, indexed by types.CatalogIndex.
type compiled [][]compiledPattern

func compile(entries []IntentPatterns) (compiled, error) {
	out := make(compiled, len(types.Catalog))
	for _, e := range entries {
		t, ok := types.ParseIntentType(string(e.Intent))
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, e.Intent)
		}
		for i, p := range e.Patterns {
			cp := compiledPattern{weight: p.Weight}
			if cp.weight == 0 {
				cp.weight = 1
			}
			if cp.weight < 0 || cp.weight > 1 {
				return nil, fmt.Errorf("intent %s pattern %d: weight %.2f out of (0,1]", t, i, p.Weight)
			}
			for _, k := range p.Keywords {
				if k = textnorm.Normalize(k); k != "" {
					cp.keywords = append(cp.keywords, k)
				}
			}
			for _, ph := range p.Phrases {
				if ph = textnorm.Normalize(ph); ph != "" {
					cp.phrases = append(cp.phrases, " "+ph+" ")
				}
			}
			if len(cp.keywords) == 0 && len(cp.phrases) == 0 {
				return nil, fmt.Errorf("intent %s pattern %d: %w", t, i, ErrEmptyPattern)
			}
			idx := types.CatalogIndex(t)
			out[idx] = append(out[idx], cp)
		}
	}
	return out, nil
}

func pat(weight float64, keywords []string, phrases ...string) Pattern {
	return Pattern{Keywords: keywords, Phrases: phrases, Weight: weight}
}

func kw(k ...string) []string { return k }

// DefaultCatalog returns the built-in Portuguese/English pattern catalog.
func DefaultCatalog() []IntentPatterns {
	return []IntentPatterns{
		{Intent: types.IntentBookingRequest, Patterns: []Pattern{
			pat(1.0, kw("quero", "agend"), "quero agendar", "quero marcar"),
			pat(0.9, kw("agend", "marc"), "gostaria de agendar", "gostaria de marcar", "posso agendar", "da para marcar"),
			pat(0.9, kw("marc", "horario"), "marcar um horario", "marcar horario"),
			pat(0.9, kw("reserv"), "fazer uma reserva", "quero reservar"),
			pat(0.9, kw("book", "appointment", "schedule"), "book an appointment", "i want to book", "schedule an appointment"),
		}},
		{Intent: types.IntentBookingCancel, Patterns: []Pattern{
			pat(1.0, kw("cancel", "desmarc"), "quero cancelar", "cancelar meu agendamento", "cancelar a consulta", "desmarcar"),
			pat(0.9, kw("cancel"), "cancel my appointment", "cancel my booking"),
		}},
		{Intent: types.IntentBookingReschedule, Patterns: []Pattern{
			pat(1.0, kw("remarc", "reagend"), "quero remarcar", "preciso remarcar", "quero reagendar"),
			pat(0.9, kw("muda", "alter", "troc", "horario"), "mudar o horario", "trocar o horario", "alterar o horario", "alterar o agendamento"),
			pat(0.9, kw("reschedul"), "reschedule my appointment", "change my appointment"),
		}},
		{Intent: types.IntentBookingInquiry, Patterns: []Pattern{
			pat(0.9, kw("agendamento", "marcado", "confirm"), "meu agendamento", "tenho horario marcado", "confirmar meu horario", "qual o meu horario"),
			pat(0.8, kw("booking", "appointment"), "my booking", "my appointment"),
		}},
		{Intent: types.IntentServiceInquiry, Patterns: []Pattern{
			pat(1.0, kw("servic", "oferec", "faze", "trabalh"), "quais servicos", "voces fazem", "o que voces oferecem", "voces trabalham com"),
			pat(0.9, kw("tratamento", "procedimento", "opcoes"), "quais tratamentos", "que procedimentos"),
			pat(0.9, kw("services", "offer"), "what services", "do you offer"),
		}},
		{Intent: types.IntentAvailabilityCheck, Patterns: []Pattern{
			pat(1.0, kw("disponiv", "vaga", "livre", "horario"), "tem horario", "tem vaga", "horario disponivel", "esta livre"),
			pat(0.9, kw("available", "availability", "slot"), "are you available", "any slots", "free slot"),
		}},
		{Intent: types.IntentPriceInquiry, Patterns: []Pattern{
			pat(1.0, kw("quanto", "cust", "preco", "valor"), "quanto custa", "qual o valor", "qual o preco", "quanto e"),
			pat(0.9, kw("price", "cost", "much"), "how much", "what is the price"),
		}},
		{Intent: types.IntentBusinessHours, Patterns: []Pattern{
			pat(1.0, kw("horario", "funcionamento", "abre", "fecha", "aberto"), "horario de funcionamento", "que horas abre", "que horas fecha", "estao abertos"),
			pat(0.9, kw("open", "close", "hours"), "opening hours", "what time do you open", "what time do you close"),
		}},
		{Intent: types.IntentLocationInquiry, Patterns: []Pattern{
			pat(1.0, kw("onde", "endereco", "fica", "localiz"), "onde fica", "qual o endereco", "como chego", "onde voces ficam"),
			pat(0.9, kw("where", "address", "located"), "where are you", "what is the address"),
		}},
		{Intent: types.IntentGeneralGreeting, Patterns: []Pattern{
			pat(1.0, kw("ola", "oi"), "ola", "oi tudo bem"),
			pat(0.9, kw("bom", "boa", "dia", "tarde", "noite"), "bom dia", "boa tarde", "boa noite"),
			pat(0.9, kw("hello", "hi", "hey"), "good morning", "good afternoon", "good evening"),
		}},
		{Intent: types.IntentComplaint, Patterns: []Pattern{
			pat(1.0, kw("reclam", "insatisf", "pessim", "horrivel", "absurdo"), "quero reclamar", "pessimo atendimento", "muito insatisfeito", "isso e um absurdo"),
			pat(0.9, kw("problema", "errado", "ruim", "demor"), "tive um problema", "deu errado", "atendimento ruim", "demorou muito"),
			pat(0.9, kw("complain", "terrible", "awful"), "i want to complain", "terrible service"),
		}},
		{Intent: types.IntentCompliment, Patterns: []Pattern{
			pat(1.0, kw("obrigad", "parabens", "otimo", "excelente", "adorei", "maravilh"), "muito obrigado", "muito obrigada", "adorei o atendimento", "excelente servico"),
			pat(0.9, kw("thank", "great", "excellent", "love"), "thank you", "great service"),
		}},
		{Intent: types.IntentEscalationRequest, Patterns: []Pattern{
			pat(1.0, kw("atendente", "humano", "gerente", "pessoa", "responsavel"), "falar com um atendente", "falar com uma pessoa", "falar com o gerente", "quero falar com"),
			pat(0.9, kw("human", "agent", "manager", "person"), "talk to a human", "speak to a person", "talk to the manager"),
		}},
		{Intent: types.IntentEmergency, Patterns: []Pattern{
			pat(1.0, kw("socorro", "emergencia", "urgente"), "socorro", "e uma emergencia", "e urgente"),
			pat(1.0, kw("sangr", "desmai", "acidente", "dor"), "muita dor", "esta sangrando", "desmaiou", "sofri um acidente"),
			pat(0.9, kw("emergency", "urgent", "help"), "it is an emergency", "i need help now"),
		}},
	}
}

// flowBonus rewards intents that usually follow the previous one.
var flowBonus = map[types.IntentType]map[types.IntentType]float64{
	types.IntentPriceInquiry: {
		types.IntentBookingRequest: 0.3,
	},
	types.IntentAvailabilityCheck: {
		types.IntentBookingRequest: 0.3,
	},
	types.IntentServiceInquiry: {
		types.IntentPriceInquiry:      0.2,
		types.IntentBookingRequest:    0.2,
		types.IntentAvailabilityCheck: 0.1,
	},
	types.IntentBookingInquiry: {
		types.IntentBookingCancel:     0.2,
		types.IntentBookingReschedule: 0.2,
	},
	types.IntentGeneralGreeting: {
		types.IntentServiceInquiry: 0.1,
		types.IntentBookingRequest: 0.1,
	},
	types.IntentBusinessHours: {
		types.IntentAvailabilityCheck: 0.2,
	},
	types.IntentLocationInquiry: {
		types.IntentBusinessHours: 0.1,
	},
	types.IntentComplaint: {
		types.IntentEscalationRequest: 0.3,
	},
}

// domainAffinity nudges intents that are typical for a tenant's business.
var domainAffinity = map[string]map[types.IntentType]float64{
	types.DomainHealthcare: {
		types.IntentBookingRequest:    0.1,
		types.IntentEmergency:         0.2,
		types.IntentAvailabilityCheck: 0.05,
	},
	types.DomainBeauty: {
		types.IntentBookingRequest: 0.1,
		types.IntentServiceInquiry: 0.1,
		types.IntentPriceInquiry:   0.1,
	},
	types.DomainLegal: {
		types.IntentServiceInquiry: 0.1,
		types.IntentComplaint:      0.05,
	},
	types.DomainFitness: {
		types.IntentAvailabilityCheck: 0.1,
		types.IntentBookingRequest:    0.05,
	},
	types.DomainEducation: {
		types.IntentServiceInquiry: 0.05,
		types.IntentPriceInquiry:   0.05,
	},
	types.DomainAutomotive: {
		types.IntentPriceInquiry:      0.1,
		types.IntentAvailabilityCheck: 0.05,
	},
}

const greetingFirstTurnBonus = 0.3
