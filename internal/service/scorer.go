// internal/service/scorer.go
package service

import (
	"sort"
	"time"

	"github.com/duenorth/reminder-backend/internal/model"
)

// Score weights. The composite is used only for ordering when send capacity
// is constrained, never for eligibility.
const (
	weightAmount       = 0.40
	weightAge          = 0.30
	weightHistory      = 0.20
	weightRelationship = 0.10
)

// ExternalFactors carry the externally supplied per-customer sub-scores,
// each already in [0,1]. Missing customers default to 0.
type ExternalFactors struct {
	PaymentHistory    map[string]float64 `json:"payment_history,omitempty"`
	RelationshipValue map[string]float64 `json:"relationship_value,omitempty"`
}

// Scorer assigns each proposal a priority score in [0,1]. Amount and age are
// normalized against the current population of proposals, so scores are
// relative to this run and must be re-derived per batch, never cached.
type Scorer struct{}

// Score mutates the proposals' PriorityScore in place and returns them
// ordered highest score first, ties broken by older oldest-invoice first.
func (Scorer) Score(proposals []*model.ConsolidatedReminder, ext ExternalFactors, now time.Time) []*model.ConsolidatedReminder {
	if len(proposals) == 0 {
		return proposals
	}

	// Scoring needs a scalar per proposal; cents across currencies are
	// treated as comparable here. Display code never merges currencies.
	minAmt, maxAmt := proposals[0].TotalCents(), proposals[0].TotalCents()
	minAge, maxAge := ageDays(proposals[0], now), ageDays(proposals[0], now)
	for _, p := range proposals[1:] {
		if amt := p.TotalCents(); amt < minAmt {
			minAmt = amt
		} else if amt > maxAmt {
			maxAmt = amt
		}
		if age := ageDays(p, now); age < minAge {
			minAge = age
		} else if age > maxAge {
			maxAge = age
		}
	}

	for _, p := range proposals {
		amtScore := normalize(float64(p.TotalCents()), float64(minAmt), float64(maxAmt))
		ageScore := normalize(float64(ageDays(p, now)), float64(minAge), float64(maxAge))
		p.PriorityScore = weightAmount*amtScore +
			weightAge*ageScore +
			weightHistory*clamp01(ext.PaymentHistory[p.CustomerID]) +
			weightRelationship*clamp01(ext.RelationshipValue[p.CustomerID])
	}

	sort.SliceStable(proposals, func(i, j int) bool {
		if proposals[i].PriorityScore != proposals[j].PriorityScore {
			return proposals[i].PriorityScore > proposals[j].PriorityScore
		}
		return proposals[i].OldestDueDate.Before(proposals[j].OldestDueDate)
	})
	return proposals
}

func ageDays(p *model.ConsolidatedReminder, now time.Time) int {
	if !p.OldestDueDate.Before(now) {
		return 0
	}
	return int(now.Sub(p.OldestDueDate).Hours() / 24)
}

// normalize min-max scales v into [0,1]; a population with no spread scores
// everyone at the midpoint.
func normalize(v, min, max float64) float64 {
	if max <= min {
		return 0.5
	}
	return (v - min) / (max - min)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
