// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package feed

import (
	"math"
	"testing"
	"time"
)

func TestRankEmptyInput(t *testing.T) {
	r := NewRanker()

	got := r.Rank(nil)
	if got == nil {
		t.Fatal("Rank(nil) returned nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("Rank(nil) returned %d results, want 0", len(got))
	}

	got = r.Rank([]Candidate{})
	if len(got) != 0 {
		t.Errorf("Rank([]) returned %d results, want 0", len(got))
	}
}

func TestRankWeightedFormula(t *testing.T) {
	r := NewRanker()

	c := Candidate{
		PostID:      "p1",
		AuthorID:    "a1",
		Recency:     0.5,
		Relevance:   2.0,
		Engagement:  3.0,
		MediaBoost:  1.0,
		Credibility: 1.0,
		Virality:    0.25,
		Location:    0.1,
	}

	got := r.Rank([]Candidate{c})
	want := 0.5*1.0 + 2.0*0.9 + 3.0*1.0 + 1.0*1.2 + 1.0*0.8 + 0.25*1.3 + 0.1*1.0
	if math.Abs(got[0].FinalScore-want) > 1e-9 {
		t.Errorf("FinalScore = %v, want %v", got[0].FinalScore, want)
	}
}

func TestRankOrdersByScoreForDistinctAuthors(t *testing.T) {
	r := NewRanker()

	// Identical signals except relevance; distinct authors, so no
	// diversity penalty applies and the weighted score alone decides.
	candidates := []Candidate{
		{PostID: "low", AuthorID: "a1", Relevance: 1.0},
		{PostID: "high", AuthorID: "a2", Relevance: 5.0},
		{PostID: "mid", AuthorID: "a3", Relevance: 3.0},
	}

	got := r.Rank(candidates)
	wantOrder := []string{"high", "mid", "low"}
	for i, id := range wantOrder {
		if got[i].PostID != id {
			t.Errorf("position %d: PostID = %q, want %q", i, got[i].PostID, id)
		}
	}
}

func TestRankDiversityPenalty(t *testing.T) {
	r := NewRanker()

	// Three posts by the same prolific author and one by another.
	// After the pre-penalty sort (20, 18, 16, 15), the second and third
	// occurrences of "prolific" each lose exactly 10.
	candidates := []Candidate{
		{PostID: "p1", AuthorID: "prolific", Engagement: 20},
		{PostID: "p2", AuthorID: "prolific", Engagement: 18},
		{PostID: "p3", AuthorID: "prolific", Engagement: 16},
		{PostID: "p4", AuthorID: "other", Engagement: 15},
	}

	got := r.Rank(candidates)

	scores := make(map[string]float64, len(got))
	for _, sc := range got {
		scores[sc.PostID] = sc.FinalScore
	}

	if scores["p1"] != 20 {
		t.Errorf("first occurrence score = %v, want 20 (no penalty)", scores["p1"])
	}
	if scores["p2"] != 8 {
		t.Errorf("second occurrence score = %v, want 8 (18 - 10)", scores["p2"])
	}
	if scores["p3"] != 6 {
		t.Errorf("third occurrence score = %v, want 6 (16 - 10)", scores["p3"])
	}
	if scores["p4"] != 15 {
		t.Errorf("distinct author score = %v, want 15 (no penalty)", scores["p4"])
	}

	// The penalty reorders: the other author's post overtakes the
	// repeat occurrences.
	wantOrder := []string{"p1", "p4", "p2", "p3"}
	for i, id := range wantOrder {
		if got[i].PostID != id {
			t.Errorf("position %d: PostID = %q, want %q", i, got[i].PostID, id)
		}
	}
}

func TestRankPenaltyAppliedOncePerOccurrence(t *testing.T) {
	r := NewRanker()

	candidates := []Candidate{
		{PostID: "p1", AuthorID: "a", Engagement: 50},
		{PostID: "p2", AuthorID: "a", Engagement: 40},
	}

	got := r.Rank(candidates)
	if got[1].FinalScore != 30 {
		t.Errorf("repeat score = %v, want 30 (40 - 10, applied exactly once)", got[1].FinalScore)
	}
}

func TestRankStableTieBreak(t *testing.T) {
	r := NewRanker()

	// Equal scores, distinct authors: input order is preserved.
	candidates := []Candidate{
		{PostID: "first", AuthorID: "a1", Relevance: 2},
		{PostID: "second", AuthorID: "a2", Relevance: 2},
		{PostID: "third", AuthorID: "a3", Relevance: 2},
	}

	got := r.Rank(candidates)
	wantOrder := []string{"first", "second", "third"}
	for i, id := range wantOrder {
		if got[i].PostID != id {
			t.Errorf("position %d: PostID = %q, want %q", i, got[i].PostID, id)
		}
	}
}

func TestRankDeterministic(t *testing.T) {
	r := NewRanker()

	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	candidates := make([]Candidate, 20)
	for i := range candidates {
		candidates[i] = Candidate{
			PostID:     string(rune('a' + i)),
			AuthorID:   string(rune('a' + i%4)),
			CreatedAt:  now,
			Relevance:  float64(i % 7),
			Engagement: float64(i % 5),
		}
	}

	first := r.Rank(candidates)
	second := r.Rank(candidates)
	for i := range first {
		if first[i].PostID != second[i].PostID || first[i].FinalScore != second[i].FinalScore {
			t.Fatalf("position %d differs between runs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	r := NewRanker()

	candidates := []Candidate{
		{PostID: "p1", AuthorID: "a", Relevance: 1},
		{PostID: "p2", AuthorID: "a", Relevance: 5},
	}

	r.Rank(candidates)
	if candidates[0].PostID != "p1" || candidates[1].PostID != "p2" {
		t.Error("Rank reordered the input slice")
	}
}

func TestWeightsValidate(t *testing.T) {
	w := DefaultWeights()
	if err := w.Validate(); err != nil {
		t.Fatalf("default weights must validate: %v", err)
	}

	w.Virality = -1
	if err := w.Validate(); err == nil {
		t.Error("Validate() accepted a negative weight")
	}
}
