// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package feed

import "sort"

// Ranker orders candidate batches with a weighted-sum formula followed
// by a single-pass author-diversity correction. Pure and deterministic:
// identical inputs produce identical output, with stable tie-breaks by
// input order. Diversity tracking resets on every Rank call; author
// repeats are not tracked across pages.
type Ranker struct {
	weights Weights
	penalty float64
}

// NewRanker creates a Ranker with the default production weights.
func NewRanker() *Ranker {
	return NewRankerWithWeights(DefaultWeights())
}

// NewRankerWithWeights creates a Ranker with explicit weights.
func NewRankerWithWeights(w Weights) *Ranker {
	return &Ranker{weights: w, penalty: DiversityPenalty}
}

// Rank scores and orders a candidate batch. Empty input yields an
// empty, non-nil result. The input slice is not mutated.
func (r *Ranker) Rank(candidates []Candidate) []ScoredCandidate {
	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, ScoredCandidate{
			Candidate:  c,
			FinalScore: r.score(c),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FinalScore > scored[j].FinalScore
	})

	// Diversity pass: walk the sorted list once, penalizing every
	// candidate whose author already appeared earlier. Each repeat
	// occurrence is penalized exactly once.
	seenAuthors := make(map[string]struct{}, len(scored))
	for i := range scored {
		author := scored[i].AuthorID
		if _, repeat := seenAuthors[author]; repeat {
			scored[i].FinalScore -= r.penalty
		} else {
			seenAuthors[author] = struct{}{}
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FinalScore > scored[j].FinalScore
	})

	return scored
}

// score applies the weighted-sum formula to a candidate's signals.
func (r *Ranker) score(c Candidate) float64 {
	w := r.weights
	return c.Recency*w.Recency +
		c.Relevance*w.Relevance +
		c.Engagement*w.Engagement +
		c.MediaBoost*w.Media +
		c.Credibility*w.Credibility +
		c.Virality*w.Virality +
		c.Location*w.Location
}
