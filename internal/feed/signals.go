// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package feed

import (
	"math"
	"time"
)

// recencyHalfLife is the post age at which the recency signal halves.
const recencyHalfLife = 24 * time.Hour

// recencyScore decays hyperbolically with post age: 1.0 at publication,
// 0.5 after one half-life, approaching 0 for stale posts. Future-dated
// posts clamp to 1.0.
func recencyScore(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt)
	if age <= 0 {
		return 1.0
	}
	return 1.0 / (1.0 + age.Hours()/recencyHalfLife.Hours())
}

// engagementScore compresses the raw interaction counts with log1p so
// viral outliers do not dominate the linear ranking formula. Likes
// count double relative to views.
func engagementScore(likes, views int64) float64 {
	raw := 2*likes + views
	if raw <= 0 {
		return 0
	}
	return math.Log1p(float64(raw))
}

// boostScore maps a binary attribute (has media, verified author) to
// its unit boost value.
func boostScore(present bool) float64 {
	if present {
		return 1.0
	}
	return 0
}

// newCandidate builds a Candidate from a sourcing row, computing the
// ranking signal inputs. relevance is path-dependent: affinity-derived
// on the interest path, raw like count on the random-fresh path, zero
// on the engagement top-up (fresh top-up rows sort after interest
// matches, preserving the provider's engagement order on ties).
func newCandidate(row PostRow, categoryID int64, relevance float64, now time.Time) Candidate {
	return Candidate{
		PostID:      row.PostID,
		AuthorID:    row.AuthorID,
		CreatedAt:   row.CreatedAt,
		CategoryID:  categoryID,
		Relevance:   relevance,
		Recency:     recencyScore(row.CreatedAt, now),
		Engagement:  engagementScore(row.LikeCount, row.ViewCount),
		MediaBoost:  boostScore(row.HasMedia),
		Credibility: boostScore(row.AuthorVerified),
		Virality:    row.Virality,
		Location:    0, // optional signal, absent from sourcing rows
	}
}
