// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pattern

import (
	"strings"

	"github.com/traylinx/intentrouter/internal/intelligence/textnorm"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

// DomainOrder is the scan order of RouteToDomain.
var DomainOrder = []string{
	types.DomainHealthcare,
	types.DomainBeauty,
	types.DomainLegal,
	types.DomainFitness,
	types.DomainEducation,
	types.DomainAutomotive,
}

var domainKeywords = map[string][]string{
	types.DomainHealthcare: {"consulta", "medico", "medica", "exame", "dentista", "clinica", "saude", "terapia", "doctor", "dentist"},
	types.DomainBeauty:     {"manicure", "pedicure", "cabelo", "corte", "barba", "maquiagem", "sobrancelha", "depilacao", "salao", "estetica", "massagem", "haircut"},
	types.DomainLegal:      {"advogado", "advogada", "juridico", "processo", "contrato", "direito", "lawyer", "attorney"},
	types.DomainFitness:    {"treino", "academia", "personal", "pilates", "yoga", "musculacao"},
	types.DomainEducation:  {"aula", "curso", "professor", "professora", "escola", "tutor"},
	types.DomainAutomotive: {"revisao", "carro", "oficina", "mecanico", "pneu", "moto"},
}

// DomainKeywords returns the built-in keywords of domain, extended with the
// tenant's own list when convCtx carries one.
func DomainKeywords(domain string, convCtx *types.ConversationContext) []string {
	out := append([]string(nil), domainKeywords[domain]...)
	if convCtx != nil && convCtx.TenantConfig != nil {
		for _, k := range convCtx.TenantConfig.DomainKeywords[domain] {
			if k = textnorm.Normalize(k); k != "" {
				out = append(out, k)
			}
		}
	}
	return out
}

// RouteToDomain infers the business domain of intent. A configured tenant
// domain is returned verbatim; otherwise the first domain in DomainOrder whose
// keyword list hits an entity value wins. Falls back to types.DomainOther.
func RouteToDomain(intent *types.Intent, convCtx *types.ConversationContext) string {
	if d := convCtx.TenantDomain(); d != "" {
		return d
	}
	if intent == nil {
		return types.DomainOther
	}
	for _, domain := range DomainOrder {
		if EntitiesMention(intent.Entities, DomainKeywords(domain, convCtx)) {
			return domain
		}
	}
	return types.DomainOther
}

// EntitiesMention reports whether any entity value contains one of keywords.
func EntitiesMention(entities []types.Entity, keywords []string) bool {
	for _, e := range entities {
		value := strings.ToLower(e.Value)
		for _, k := range keywords {
			if strings.Contains(value, k) {
				return true
			}
		}
	}
	return false
}
