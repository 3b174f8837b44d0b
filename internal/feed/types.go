// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package feed

import (
	"context"
	"time"
)

// Candidate is a post eligible for ranking, constructed fresh per
// sourcing call from a relational query row. It is transient: either
// ranked and cached, or discarded.
type Candidate struct {
	// PostID is the opaque stable post identifier, unique within a batch.
	PostID string

	// AuthorID identifies the post's author.
	AuthorID string

	// CreatedAt is the post's creation time.
	CreatedAt time.Time

	// CategoryID is the interest category this candidate was sourced
	// through. Zero when not interest-derived (top-up and random paths).
	CategoryID int64

	// Relevance is the interest-affinity derived score, >= 0.
	Relevance float64

	// Signal inputs consumed by the ranker.
	Recency     float64
	Engagement  float64
	MediaBoost  float64
	Credibility float64
	Virality    float64
	Location    float64
}

// ScoredCandidate is a Candidate augmented with its final ranking
// score. Produced and consumed within one ranking call; the resulting
// order is the only externally visible effect.
type ScoredCandidate struct {
	Candidate

	// FinalScore is the weighted-sum score after the diversity pass.
	FinalScore float64
}

// Entry is a serialized feed queue record. Within one user's queue,
// insertion order is the ranked serving order. The score and author are
// retained so pages served from the cache carry their ranked scores.
type Entry struct {
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	Score     float64   `json:"score"`
}

// Page is the caller-facing feed page.
type Page struct {
	Data       []Entry    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination carries the opaque continuation token. HasMore is a
// heuristic: true when the returned page filled the requested limit,
// which can yield one false positive at the true end of data.
type Pagination struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// Interest is a user's affinity weight toward a topical category.
// Read-only input to the Sourcer; owned by a separate subsystem.
type Interest struct {
	CategoryID int64
	Score      float64
}

// CategoryPostsQuery parameterizes the interest-category sourcing query.
type CategoryPostsQuery struct {
	// UserID is the requesting user; their own posts and posts by
	// accounts they block or mute are excluded by the provider.
	UserID string

	// CategoryID selects posts associated with this category.
	CategoryID int64

	// Since is the freshness cutoff; only posts created at or after
	// this time are eligible.
	Since time.Time

	// Exclude lists post IDs that must not be returned.
	Exclude map[string]struct{}

	// Limit caps the row count.
	Limit int
}

// PoolQuery parameterizes the broader fallback pools (engagement-ranked
// top-up and random-fresh). Same exclusion semantics as
// CategoryPostsQuery, without a category filter.
type PoolQuery struct {
	UserID  string
	Since   time.Time
	Exclude map[string]struct{}
	Limit   int
}

// PostRow is a raw sourcing query result row.
type PostRow struct {
	PostID    string
	AuthorID  string
	CreatedAt time.Time

	// Percentage is the post-category association weight (0-100).
	// Only populated by the category query.
	Percentage float64

	LikeCount      int64
	ViewCount      int64
	HasMedia       bool
	AuthorVerified bool
	Virality       float64
}

// DataProvider is the relational query interface the Sourcer consumes.
// Implementations must apply the self/block/mute exclusions and the
// explicit Exclude sets; the Sourcer does not re-filter rows.
type DataProvider interface {
	// GetUserInterests returns the user's interest records ordered by
	// affinity score descending. An empty result is valid.
	GetUserInterests(ctx context.Context, userID string) ([]Interest, error)

	// GetCategoryPosts returns fresh posts associated with a category,
	// ordered by recency descending, with their association percentage.
	GetCategoryPosts(ctx context.Context, q CategoryPostsQuery) ([]PostRow, error)

	// GetEngagementPosts returns fresh posts ordered by a composite of
	// like and view counts descending, then recency descending.
	GetEngagementPosts(ctx context.Context, q PoolQuery) ([]PostRow, error)

	// GetRandomFreshPosts returns fresh posts in random order.
	GetRandomFreshPosts(ctx context.Context, q PoolQuery) ([]PostRow, error)
}

// QueueStore is the per-user ordered feed queue the Orchestrator reads
// and writes. Implementations propagate store-level errors unchanged;
// empty results are valid values, never errors.
type QueueStore interface {
	// Append atomically appends entries to the tail of the user's
	// queue. Returns the number appended: len(entries) on success, 0 on
	// empty input or failure, never a partial count.
	Append(ctx context.Context, userID string, entries []Entry) (int, error)

	// Range reads the zero-based range [start, start+count). Returns
	// fewer than count at the tail and an empty slice past the end;
	// out-of-range offsets are not errors.
	Range(ctx context.Context, userID string, start, count int) ([]Entry, error)

	// Size returns the current entry count.
	Size(ctx context.Context, userID string) (int, error)

	// Contains reports whether a post is present in the queue.
	Contains(ctx context.Context, userID, postID string) (bool, error)

	// PostIDs returns the set of post IDs currently queued, used for
	// duplicate filtering before appending a fresh batch.
	PostIDs(ctx context.Context, userID string) (map[string]struct{}, error)

	// RemoveOlderThan removes every entry whose CreatedAt is before the
	// cutoff and returns the number removed.
	RemoveOlderThan(ctx context.Context, userID string, cutoff time.Time) (int, error)

	// Clear deletes the user's queue entirely.
	Clear(ctx context.Context, userID string) error

	// Initialize atomically replaces the user's queue with entries and
	// returns the new entry count.
	Initialize(ctx context.Context, userID string, entries []Entry) (int, error)

	// Trim removes the oldest entries from the head until the queue
	// holds at most maxSize, returning the number removed. No-op when
	// already within budget.
	Trim(ctx context.Context, userID string, maxSize int) (int, error)

	// Users lists the IDs of all users with a queue.
	Users(ctx context.Context) ([]string, error)
}
