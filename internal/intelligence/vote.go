// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package intelligence

import (
	"sort"

	"github.com/traylinx/intentrouter/internal/intelligence/entity"
	"github.com/traylinx/intentrouter/internal/intelligence/types"
)

const (
	// failedVoteConfidence is the neutral vote recorded for a failed engine.
	failedVoteConfidence = 0.3
	maxAlternatives      = 3
)

type tally struct {
	scoreSum      float64
	confidenceSum float64
	votes         int
}

// adjusted is the ranking score: raw score times average confidence.
// An intent with fewer, very confident votes can outrank one with more,
// moderately confident votes.
func (t *tally) adjusted() float64 {
	return t.scoreSum * (t.confidenceSum / float64(t.votes))
}

// ballot is the outcome of weighted voting.
type ballot struct {
	winner       types.IntentType
	confidence   float64
	consensus    int
	alternatives []types.AlternativeIntent
	entities     []types.Entity
	// decided is false when no engine produced a successful vote.
	decided bool
}

// castVotes merges the successful votes. Votes are read in engine order, and
// ties on adjusted or raw score resolve by catalog order, so the result does
// not depend on which engine answered first.
func castVotes(votes []types.EngineVote) ballot {
	tallies := make(map[types.IntentType]*tally)
	var entities []types.Entity
	for _, v := range votes {
		if !v.Succeeded || v.Intent == nil {
			continue
		}
		t, ok := tallies[v.Intent.Type]
		if !ok {
			t = &tally{}
			tallies[v.Intent.Type] = t
		}
		t.scoreSum += v.Weight * v.Intent.Confidence
		t.confidenceSum += v.Intent.Confidence
		t.votes++

		for _, e := range v.Intent.Entities {
			e.Confidence = types.Clamp01(e.Confidence)
			entities = append(entities, e)
		}
	}

	if len(tallies) == 0 {
		return ballot{
			winner:     types.IntentOther,
			confidence: failedVoteConfidence,
			entities:   []types.Entity{},
		}
	}

	ranked := make([]types.IntentType, 0, len(tallies))
	for it := range tallies {
		ranked = append(ranked, it)
	}
	sort.Slice(ranked, func(i, j int) bool {
		return types.CatalogIndex(ranked[i]) < types.CatalogIndex(ranked[j])
	})

	winner := ranked[0]
	for _, it := range ranked[1:] {
		if tallies[it].adjusted() > tallies[winner].adjusted() {
			winner = it
		}
	}

	var runnersUp []types.IntentType
	for _, it := range ranked {
		if it != winner {
			runnersUp = append(runnersUp, it)
		}
	}
	sort.SliceStable(runnersUp, func(i, j int) bool {
		return tallies[runnersUp[i]].scoreSum > tallies[runnersUp[j]].scoreSum
	})
	if len(runnersUp) > maxAlternatives {
		runnersUp = runnersUp[:maxAlternatives]
	}
	alternatives := make([]types.AlternativeIntent, 0, len(runnersUp))
	for _, it := range runnersUp {
		alternatives = append(alternatives, types.AlternativeIntent{Type: it, Score: tallies[it].scoreSum})
	}

	w := tallies[winner]
	return ballot{
		winner:       winner,
		confidence:   types.Clamp01(w.confidenceSum / float64(w.votes)),
		consensus:    w.votes,
		alternatives: alternatives,
		entities:     entity.Dedupe(entities),
		decided:      true,
	}
}

// domainAdjustments are deterministic confidence bumps for (domain, intent).
var domainAdjustments = map[string]map[types.IntentType]float64{
	types.DomainHealthcare: {types.IntentBookingRequest: 0.1},
	types.DomainLegal:      {types.IntentComplaint: 0.05},
}

func postProcess(intent *types.Intent, domain string) {
	if bump, ok := domainAdjustments[domain][intent.Type]; ok {
		intent.Confidence = types.Clamp01(intent.Confidence + bump)
	}
}
