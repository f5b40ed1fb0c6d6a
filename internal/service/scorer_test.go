// internal/service/scorer_test.go
package service

import (
	"math"
	"testing"
	"time"

	"github.com/duenorth/reminder-backend/internal/model"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func proposal(customerID string, totalCents int64, daysOverdue int, now time.Time) *model.ConsolidatedReminder {
	return &model.ConsolidatedReminder{
		ID:            customerID + "-r",
		CustomerID:    customerID,
		InvoiceIDs:    []string{customerID + "-i"},
		Currency:      "EUR",
		Totals:        map[string]int64{"EUR": totalCents},
		OldestDueDate: daysAgo(now, daysOverdue),
	}
}

func TestScoreOrdersByCompositePriority(t *testing.T) {
	now := tuesdayMorning
	proposals := []*model.ConsolidatedReminder{
		proposal("small", 10000, 10, now),
		proposal("large", 100000, 50, now),
		proposal("mid", 50000, 30, now),
	}

	got := Scorer{}.Score(proposals, ExternalFactors{}, now)

	want := []string{"large", "mid", "small"}
	for i, id := range want {
		if got[i].CustomerID != id {
			t.Fatalf("position %d: expected %s, got %s (score %.3f)", i, id, got[i].CustomerID, got[i].PriorityScore)
		}
	}

	// Extremes of a min-max normalized batch with no external factors.
	if !approx(got[0].PriorityScore, 0.7) {
		t.Errorf("highest amount and age should score 0.7, got %.3f", got[0].PriorityScore)
	}
	if !approx(got[2].PriorityScore, 0) {
		t.Errorf("lowest amount and age should score 0, got %.3f", got[2].PriorityScore)
	}
}

func TestScoreExternalFactorsShiftRanking(t *testing.T) {
	now := tuesdayMorning
	proposals := []*model.ConsolidatedReminder{
		proposal("a", 50000, 30, now),
		proposal("b", 50000, 30, now),
	}

	ext := ExternalFactors{
		PaymentHistory:    map[string]float64{"b": 1.0},
		RelationshipValue: map[string]float64{"b": 1.0},
	}
	got := Scorer{}.Score(proposals, ext, now)

	if got[0].CustomerID != "b" {
		t.Fatalf("external factors should promote b, got %s first", got[0].CustomerID)
	}
	// Identical amount and age normalize to the midpoint: 0.7*0.5 = 0.35.
	if !approx(got[1].PriorityScore, 0.35) {
		t.Errorf("expected midpoint score 0.35 for a, got %.3f", got[1].PriorityScore)
	}
	if !approx(got[0].PriorityScore, 0.65) {
		t.Errorf("expected 0.35+0.2+0.1 = 0.65 for b, got %.3f", got[0].PriorityScore)
	}
}

func TestScoreTieBreaksOlderFirst(t *testing.T) {
	now := tuesdayMorning
	// Both are 40 whole days overdue, so their scores are identical, but
	// older's due date is a few hours earlier.
	older := proposal("older", 50000, 40, now)
	older.OldestDueDate = older.OldestDueDate.Add(-3 * time.Hour)
	newer := proposal("newer", 50000, 40, now)

	got := Scorer{}.Score([]*model.ConsolidatedReminder{newer, older}, ExternalFactors{}, now)

	if got[0].CustomerID != "older" {
		t.Fatalf("ties must break toward the older oldest invoice, got %s first", got[0].CustomerID)
	}
}

func TestScoreClampsExternalFactors(t *testing.T) {
	now := tuesdayMorning
	proposals := []*model.ConsolidatedReminder{proposal("a", 50000, 30, now)}

	ext := ExternalFactors{
		PaymentHistory:    map[string]float64{"a": 7.5},
		RelationshipValue: map[string]float64{"a": -2},
	}
	got := Scorer{}.Score(proposals, ext, now)

	// Single proposal: amount and age at midpoint, history clamped to 1,
	// relationship clamped to 0.
	want := 0.4*0.5 + 0.3*0.5 + 0.2*1 + 0.1*0
	if !approx(got[0].PriorityScore, want) {
		t.Errorf("expected clamped score %.3f, got %.3f", want, got[0].PriorityScore)
	}
}
