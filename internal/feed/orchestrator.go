// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/feedforge/feedforge/internal/logging"
	"github.com/feedforge/feedforge/internal/metrics"
)

// ErrMissingUser is returned when a page is requested without a user.
var ErrMissingUser = errors.New("user id is required")

// CandidateSource produces candidate batches for a user. Implemented
// by Sourcer; declared as an interface so tests can substitute mocks.
type CandidateSource interface {
	GetCandidates(ctx context.Context, userID string, excluded map[string]struct{}, limit int) ([]Candidate, error)
}

// CandidateRanker orders a candidate batch. Implemented by Ranker.
type CandidateRanker interface {
	Rank(candidates []Candidate) []ScoredCandidate
}

// OrchestratorConfig bounds page sizing, refill batching, and the
// per-user queue.
type OrchestratorConfig struct {
	// DefaultPageSize is used when a request passes limit <= 0.
	DefaultPageSize int

	// MaxPageSize caps the per-request limit.
	MaxPageSize int

	// RefillBatchSize is the minimum batch sourced on a queue
	// shortfall, so most subsequent page reads are cache-only.
	RefillBatchSize int

	// MaxQueueSize bounds the queue; the oldest entries are trimmed
	// past it.
	MaxQueueSize int

	// MaxEntryAge is the content-age bound enforced by MaintainUser.
	MaxEntryAge time.Duration
}

// Validate checks the orchestrator bounds for internal consistency.
func (c OrchestratorConfig) Validate() error {
	if c.DefaultPageSize <= 0 {
		return fmt.Errorf("default page size must be positive, got %d", c.DefaultPageSize)
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("max page size (%d) must be >= default page size (%d)", c.MaxPageSize, c.DefaultPageSize)
	}
	if c.RefillBatchSize <= 0 {
		return fmt.Errorf("refill batch size must be positive, got %d", c.RefillBatchSize)
	}
	if c.MaxQueueSize < c.MaxPageSize {
		return fmt.Errorf("max queue size (%d) must be >= max page size (%d)", c.MaxQueueSize, c.MaxPageSize)
	}
	if c.MaxEntryAge <= 0 {
		return fmt.Errorf("max entry age must be positive, got %v", c.MaxEntryAge)
	}
	return nil
}

// Orchestrator composes the Sourcer, Ranker, and queue store into
// cache-first page serving: pages are read from the per-user queue, and
// a shortfall triggers a source-rank-append refill before the read.
// Mutating queue sequences for one user are serialized with a per-user
// lock; different users never contend.
type Orchestrator struct {
	source CandidateSource
	ranker CandidateRanker
	queue  QueueStore
	cfg    OrchestratorConfig

	locks  *keyedMutex
	logger zerolog.Logger

	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(source CandidateSource, ranker CandidateRanker, queue QueueStore, cfg OrchestratorConfig) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestrator config: %w", err)
	}

	return &Orchestrator{
		source: source,
		ranker: ranker,
		queue:  queue,
		cfg:    cfg,
		locks:  newKeyedMutex(),
		logger: logging.With().Str("component", "orchestrator").Logger(),
		now:    time.Now,
	}, nil
}

// GetPage serves one feed page. The cursor is an opaque continuation
// token from a previous page, or empty for the first page. When the
// queue cannot cover the requested range, a refill batch is sourced,
// ranked, and appended first; a sourcing or store failure surfaces as
// an error with no partial page.
func (o *Orchestrator) GetPage(ctx context.Context, userID, cursor string, limit int) (*Page, error) {
	page, err := o.getPage(ctx, userID, cursor, limit)
	if err != nil {
		metrics.PageRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.PageRequests.WithLabelValues("ok").Inc()
	return page, nil
}

func (o *Orchestrator) getPage(ctx context.Context, userID, cursor string, limit int) (*Page, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	if limit <= 0 {
		limit = o.cfg.DefaultPageSize
	}
	if limit > o.cfg.MaxPageSize {
		limit = o.cfg.MaxPageSize
	}

	offset, err := decodeCursor(userID, cursor)
	if err != nil {
		return nil, err
	}

	// The shortfall check and refill form a read-then-write sequence
	// on the user's queue, so the whole page request holds the lock.
	o.locks.Lock(userID)
	defer o.locks.Unlock(userID)

	size, err := o.queue.Size(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read queue size for user %s: %w", userID, err)
	}

	if size < offset+limit {
		if err := o.refill(ctx, userID, offset+limit-size); err != nil {
			return nil, err
		}
		metrics.PageRefills.Inc()
	} else {
		metrics.PageCacheServes.Inc()
	}

	entries, err := o.queue.Range(ctx, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("read queue page for user %s: %w", userID, err)
	}

	page := &Page{
		Data: entries,
		Pagination: Pagination{
			// Exact-limit fill is treated as "likely more"; a false
			// positive at the true end of data costs one empty page.
			HasMore: len(entries) == limit,
		},
	}
	if page.Pagination.HasMore {
		page.Pagination.NextCursor = encodeCursor(userID, offset+len(entries))
	}

	return page, nil
}

// refill sources a fresh batch excluding everything already queued,
// ranks it, and appends it to the queue tail. The batch is at least
// RefillBatchSize even for small shortfalls. Caller holds the user
// lock.
func (o *Orchestrator) refill(ctx context.Context, userID string, shortfall int) error {
	existing, err := o.queue.PostIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("read queued post ids for user %s: %w", userID, err)
	}

	need := shortfall
	if need < o.cfg.RefillBatchSize {
		need = o.cfg.RefillBatchSize
	}

	candidates, err := o.source.GetCandidates(ctx, userID, existing, need)
	if err != nil {
		return fmt.Errorf("source candidates for user %s: %w", userID, err)
	}
	if len(candidates) == 0 {
		o.logger.Debug().Str("user_id", userID).Msg("refill sourced no candidates")
		return nil
	}

	ranked := o.ranker.Rank(candidates)

	appended, err := o.queue.Append(ctx, userID, entriesFromScored(ranked))
	if err != nil {
		return fmt.Errorf("append refill batch for user %s: %w", userID, err)
	}

	trimmed, err := o.queue.Trim(ctx, userID, o.cfg.MaxQueueSize)
	if err != nil {
		return fmt.Errorf("trim queue for user %s: %w", userID, err)
	}
	if trimmed > 0 {
		metrics.QueueEntriesEvicted.WithLabelValues("trim").Add(float64(trimmed))
	}

	o.logger.Debug().
		Str("user_id", userID).
		Int("appended", appended).
		Int("trimmed", trimmed).
		Msg("queue refilled")

	return nil
}

// Rebuild recomputes the user's queue from scratch, replacing any
// cached entries. Used after a cold recompute or user-initiated reset.
func (o *Orchestrator) Rebuild(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrMissingUser
	}

	o.locks.Lock(userID)
	defer o.locks.Unlock(userID)

	candidates, err := o.source.GetCandidates(ctx, userID, nil, o.cfg.RefillBatchSize)
	if err != nil {
		return 0, fmt.Errorf("source candidates for user %s: %w", userID, err)
	}

	ranked := o.ranker.Rank(candidates)

	count, err := o.queue.Initialize(ctx, userID, entriesFromScored(ranked))
	if err != nil {
		return 0, fmt.Errorf("initialize queue for user %s: %w", userID, err)
	}

	o.logger.Info().Str("user_id", userID).Int("entries", count).Msg("queue rebuilt")
	return count, nil
}

// MaintainUser applies both eviction policies to one user's queue:
// content-age eviction of entries older than MaxEntryAge, then a
// head trim down to MaxQueueSize. Returns the total entries removed.
func (o *Orchestrator) MaintainUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrMissingUser
	}

	o.locks.Lock(userID)
	defer o.locks.Unlock(userID)

	cutoff := o.now().Add(-o.cfg.MaxEntryAge)
	aged, err := o.queue.RemoveOlderThan(ctx, userID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("evict stale entries for user %s: %w", userID, err)
	}
	if aged > 0 {
		metrics.QueueEntriesEvicted.WithLabelValues("age").Add(float64(aged))
	}

	trimmed, err := o.queue.Trim(ctx, userID, o.cfg.MaxQueueSize)
	if err != nil {
		return aged, fmt.Errorf("trim queue for user %s: %w", userID, err)
	}
	if trimmed > 0 {
		metrics.QueueEntriesEvicted.WithLabelValues("trim").Add(float64(trimmed))
	}

	return aged + trimmed, nil
}

// Users lists all users with a cached queue, for maintenance sweeps.
func (o *Orchestrator) Users(ctx context.Context) ([]string, error) {
	return o.queue.Users(ctx)
}

// entriesFromScored converts a ranked batch into queue records,
// preserving the ranked order as insertion order.
func entriesFromScored(ranked []ScoredCandidate) []Entry {
	entries := make([]Entry, 0, len(ranked))
	for _, sc := range ranked {
		entries = append(entries, Entry{
			PostID:    sc.PostID,
			AuthorID:  sc.AuthorID,
			CreatedAt: sc.CreatedAt,
			Score:     sc.FinalScore,
		})
	}
	return entries
}
