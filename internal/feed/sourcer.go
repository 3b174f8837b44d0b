// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package feed

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/feedforge/feedforge/internal/logging"
	"github.com/feedforge/feedforge/internal/metrics"
)

// Sourcing path labels for metrics.
const (
	pathInterest = "interest"
	pathTopup    = "topup"
	pathRandom   = "random"
)

// Sourcer retrieves candidate posts for a user using interest-affinity
// proportional allocation, with an engagement-ranked top-up when the
// interest categories cannot fill the limit and a random-fresh fallback
// when the user has no interests at all.
type Sourcer struct {
	provider DataProvider

	// freshnessWindow is the lookback defining which posts are eligible.
	freshnessWindow time.Duration

	logger zerolog.Logger

	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewSourcer creates a Sourcer over the given relational provider.
func NewSourcer(provider DataProvider, freshnessWindow time.Duration) *Sourcer {
	return &Sourcer{
		provider:        provider,
		freshnessWindow: freshnessWindow,
		logger:          logging.With().Str("component", "sourcer").Logger(),
		now:             time.Now,
	}
}

// GetCandidates returns up to limit candidates for the user, excluding
// the given post IDs, the user's own posts, and posts by blocked or
// muted accounts. Zero results are a valid outcome, not an error. Any
// provider failure propagates as a hard error with no partial result.
func (s *Sourcer) GetCandidates(ctx context.Context, userID string, excluded map[string]struct{}, limit int) ([]Candidate, error) {
	candidates, err := s.getCandidates(ctx, userID, excluded, limit)
	if err != nil {
		metrics.SourcingErrors.Inc()
		return nil, err
	}
	return candidates, nil
}

func (s *Sourcer) getCandidates(ctx context.Context, userID string, excluded map[string]struct{}, limit int) ([]Candidate, error) {
	if limit <= 0 {
		return []Candidate{}, nil
	}

	interests, err := s.provider.GetUserInterests(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load interests for user %s: %w", userID, err)
	}

	now := s.now()
	since := now.Add(-s.freshnessWindow)

	if len(interests) == 0 {
		s.logger.Debug().Str("user_id", userID).Msg("no interests found, using random-fresh discovery pool")
		return s.randomFresh(ctx, userID, since, excluded, limit, now)
	}

	candidates, err := s.fromInterests(ctx, userID, interests, since, excluded, limit, now)
	if err != nil {
		return nil, err
	}

	if len(candidates) < limit {
		candidates, err = s.topUp(ctx, userID, since, excluded, candidates, limit, now)
		if err != nil {
			return nil, err
		}
	}

	// Final order: relevance descending, stable so equal scores keep
	// their accumulation order for reproducibility.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Relevance > candidates[j].Relevance
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates, nil
}

// fromInterests allocates each interest category a proportional
// sub-quota of the limit, in descending affinity order, and accumulates
// category posts until the limit is reached or categories are
// exhausted.
func (s *Sourcer) fromInterests(ctx context.Context, userID string, interests []Interest, since time.Time, excluded map[string]struct{}, limit int, now time.Time) ([]Candidate, error) {
	start := time.Now()

	// Providers return interests pre-sorted; re-sorting here keeps the
	// allocation order correct for providers that do not.
	sorted := make([]Interest, len(interests))
	copy(sorted, interests)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	var totalScore float64
	for _, in := range sorted {
		totalScore += in.Score
	}
	if totalScore <= 0 {
		return []Candidate{}, nil
	}

	candidates := make([]Candidate, 0, limit)
	seen := make(map[string]struct{}, limit)

	for _, interest := range sorted {
		if len(candidates) >= limit {
			break
		}

		subQuota := int(math.Ceil(float64(limit) * interest.Score / totalScore))
		if subQuota <= 0 {
			continue
		}

		rows, err := s.provider.GetCategoryPosts(ctx, CategoryPostsQuery{
			UserID:     userID,
			CategoryID: interest.CategoryID,
			Since:      since,
			Exclude:    excluded,
			Limit:      subQuota,
		})
		if err != nil {
			return nil, fmt.Errorf("load category %d posts for user %s: %w", interest.CategoryID, userID, err)
		}

		for _, row := range rows {
			if len(candidates) >= limit {
				break
			}
			// A post can be associated with several categories; keep
			// the first (highest-affinity) occurrence only.
			if _, dup := seen[row.PostID]; dup {
				continue
			}
			seen[row.PostID] = struct{}{}

			relevance := interest.Score * (row.Percentage / 100)
			candidates = append(candidates, newCandidate(row, interest.CategoryID, relevance, now))
		}
	}

	metrics.ObserveSourcing(pathInterest, start, len(candidates))
	return candidates, nil
}

// topUp fills the shortfall from the broader engagement-ranked pool.
// Top-up candidates carry zero relevance so interest matches keep
// precedence in the final order.
func (s *Sourcer) topUp(ctx context.Context, userID string, since time.Time, excluded map[string]struct{}, candidates []Candidate, limit int, now time.Time) ([]Candidate, error) {
	start := time.Now()
	shortfall := limit - len(candidates)

	exclude := make(map[string]struct{}, len(excluded)+len(candidates))
	for id := range excluded {
		exclude[id] = struct{}{}
	}
	for _, c := range candidates {
		exclude[c.PostID] = struct{}{}
	}

	rows, err := s.provider.GetEngagementPosts(ctx, PoolQuery{
		UserID:  userID,
		Since:   since,
		Exclude: exclude,
		Limit:   shortfall,
	})
	if err != nil {
		return nil, fmt.Errorf("load engagement pool for user %s: %w", userID, err)
	}

	s.logger.Debug().
		Str("user_id", userID).
		Int("shortfall", shortfall).
		Int("filled", len(rows)).
		Msg("interest categories exhausted, topping up from engagement pool")

	for _, row := range rows {
		candidates = append(candidates, newCandidate(row, 0, 0, now))
	}

	metrics.ObserveSourcing(pathTopup, start, len(rows))
	return candidates, nil
}

// randomFresh serves users with no interest records from a randomly
// ordered discovery pool, scored by raw like count as a proxy
// relevance signal.
func (s *Sourcer) randomFresh(ctx context.Context, userID string, since time.Time, excluded map[string]struct{}, limit int, now time.Time) ([]Candidate, error) {
	start := time.Now()

	rows, err := s.provider.GetRandomFreshPosts(ctx, PoolQuery{
		UserID:  userID,
		Since:   since,
		Exclude: excluded,
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("load random-fresh pool for user %s: %w", userID, err)
	}

	candidates := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, newCandidate(row, 0, float64(row.LikeCount), now))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Relevance > candidates[j].Relevance
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	metrics.ObserveSourcing(pathRandom, start, len(candidates))
	return candidates, nil
}
