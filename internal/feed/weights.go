// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package feed

import "fmt"

// DiversityPenalty is the fixed score deduction applied to each
// candidate whose author already appeared earlier in the ranked list.
// A soft demotion rather than a hard cap, so prolific authors are
// spread out without being excluded.
const DiversityPenalty = 10.0

// Weights are the signal coefficients of the ranking formula. Tuned
// empirically; fixed at build time rather than derived at runtime.
type Weights struct {
	Recency     float64
	Relevance   float64
	Engagement  float64
	Media       float64
	Credibility float64
	Virality    float64
	Location    float64
}

// DefaultWeights returns the production ranking coefficients.
func DefaultWeights() Weights {
	return Weights{
		Recency:     1.0,
		Relevance:   0.9,
		Engagement:  1.0,
		Media:       1.2,
		Credibility: 0.8,
		Virality:    1.3,
		Location:    1.0,
	}
}

// Validate rejects weight sets that would invert or erase signals.
func (w Weights) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"recency", w.Recency},
		{"relevance", w.Relevance},
		{"engagement", w.Engagement},
		{"media", w.Media},
		{"credibility", w.Credibility},
		{"virality", w.Virality},
		{"location", w.Location},
	} {
		if f.value < 0 {
			return fmt.Errorf("ranking weight %s must be >= 0, got %v", f.name, f.value)
		}
	}
	return nil
}
