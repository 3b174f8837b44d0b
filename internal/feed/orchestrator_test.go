// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// memQueue is an in-memory QueueStore for orchestrator tests.
type memQueue struct {
	mu     sync.Mutex
	queues map[string][]Entry

	appendErr error
}

func newMemQueue() *memQueue {
	return &memQueue{queues: make(map[string][]Entry)}
}

func (m *memQueue) Append(_ context.Context, userID string, entries []Entry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	if len(entries) == 0 {
		return 0, nil
	}
	m.queues[userID] = append(m.queues[userID], entries...)
	return len(entries), nil
}

func (m *memQueue) Range(_ context.Context, userID string, start, count int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[userID]
	if start < 0 || count <= 0 || start >= len(q) {
		return []Entry{}, nil
	}
	end := start + count
	if end > len(q) {
		end = len(q)
	}
	out := make([]Entry, end-start)
	copy(out, q[start:end])
	return out, nil
}

func (m *memQueue) Size(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[userID]), nil
}

func (m *memQueue) Contains(_ context.Context, userID, postID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.queues[userID] {
		if e.PostID == postID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memQueue) PostIDs(_ context.Context, userID string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]struct{}, len(m.queues[userID]))
	for _, e := range m.queues[userID] {
		ids[e.PostID] = struct{}{}
	}
	return ids, nil
}

func (m *memQueue) RemoveOlderThan(_ context.Context, userID string, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.queues[userID][:0:0]
	removed := 0
	for _, e := range m.queues[userID] {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.queues[userID] = kept
	return removed, nil
}

func (m *memQueue) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.queues, userID)
	return nil
}

func (m *memQueue) Initialize(_ context.Context, userID string, entries []Entry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[userID] = append([]Entry(nil), entries...)
	return len(entries), nil
}

func (m *memQueue) Trim(_ context.Context, userID string, maxSize int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[userID]
	if len(q) <= maxSize {
		return 0, nil
	}
	removed := len(q) - maxSize
	m.queues[userID] = append([]Entry(nil), q[removed:]...)
	return removed, nil
}

func (m *memQueue) Users(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]string, 0, len(m.queues))
	for u := range m.queues {
		users = append(users, u)
	}
	return users, nil
}

// mockSource records calls and serves canned candidate batches.
type mockSource struct {
	mu       sync.Mutex
	calls    int
	excluded []map[string]struct{}
	batches  [][]Candidate
	err      error
}

func (m *mockSource) GetCandidates(_ context.Context, _ string, excluded map[string]struct{}, limit int) ([]Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.excluded = append(m.excluded, excluded)
	call := m.calls
	m.calls++
	if call >= len(m.batches) {
		return []Candidate{}, nil
	}
	batch := m.batches[call]
	if len(batch) > limit {
		batch = batch[:limit]
	}
	return batch, nil
}

func candidateBatch(prefix string, n int, base time.Time) []Candidate {
	batch := make([]Candidate, n)
	for i := range batch {
		batch[i] = Candidate{
			PostID:    fmt.Sprintf("%s-%d", prefix, i),
			AuthorID:  fmt.Sprintf("%s-author-%d", prefix, i),
			CreatedAt: base,
			Relevance: float64(n - i), // descending, so ranked order == batch order
		}
	}
	return batch
}

func testOrchestrator(t *testing.T, source CandidateSource, queue QueueStore) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(source, NewRanker(), queue, OrchestratorConfig{
		DefaultPageSize: 2,
		MaxPageSize:     10,
		RefillBatchSize: 5,
		MaxQueueSize:    100,
		MaxEntryAge:     7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	return o
}

func TestGetPageColdStartRefillsQueue(t *testing.T) {
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	source := &mockSource{batches: [][]Candidate{candidateBatch("p", 5, base)}}
	queue := newMemQueue()
	o := testOrchestrator(t, source, queue)

	page, err := o.GetPage(context.Background(), "user-1", "", 2)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}

	if source.calls != 1 {
		t.Errorf("source called %d times, want 1", source.calls)
	}
	if len(page.Data) != 2 {
		t.Fatalf("page has %d entries, want 2", len(page.Data))
	}
	if page.Data[0].PostID != "p-0" || page.Data[1].PostID != "p-1" {
		t.Errorf("page order = [%s, %s], want [p-0, p-1]", page.Data[0].PostID, page.Data[1].PostID)
	}
	if !page.Pagination.HasMore {
		t.Error("HasMore = false on a full page, want true")
	}
	if page.Pagination.NextCursor == "" {
		t.Error("NextCursor empty on a full page, want a token")
	}

	// The whole refill batch was cached, not just the served page.
	size, _ := queue.Size(context.Background(), "user-1")
	if size != 5 {
		t.Errorf("queue size = %d after refill, want 5", size)
	}
}

func TestGetPageServesSecondPageFromCache(t *testing.T) {
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	source := &mockSource{batches: [][]Candidate{candidateBatch("p", 5, base)}}
	o := testOrchestrator(t, source, newMemQueue())
	ctx := context.Background()

	first, err := o.GetPage(ctx, "user-1", "", 2)
	if err != nil {
		t.Fatalf("first GetPage failed: %v", err)
	}

	second, err := o.GetPage(ctx, "user-1", first.Pagination.NextCursor, 2)
	if err != nil {
		t.Fatalf("second GetPage failed: %v", err)
	}

	if source.calls != 1 {
		t.Errorf("source called %d times, want 1 (second page from cache)", source.calls)
	}
	if len(second.Data) != 2 {
		t.Fatalf("second page has %d entries, want 2", len(second.Data))
	}
	if second.Data[0].PostID != "p-2" || second.Data[1].PostID != "p-3" {
		t.Errorf("second page = [%s, %s], want [p-2, p-3]", second.Data[0].PostID, second.Data[1].PostID)
	}
}

func TestGetPageEndOfData(t *testing.T) {
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	// One batch of five, then nothing more to source.
	source := &mockSource{batches: [][]Candidate{candidateBatch("p", 5, base)}}
	o := testOrchestrator(t, source, newMemQueue())
	ctx := context.Background()

	page, err := o.GetPage(ctx, "user-1", "", 2)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	page, err = o.GetPage(ctx, "user-1", page.Pagination.NextCursor, 2)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}

	// Offset 4, limit 2: only one entry remains, the refill attempt
	// sources nothing, and the short page ends pagination.
	last, err := o.GetPage(ctx, "user-1", page.Pagination.NextCursor, 2)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if len(last.Data) != 1 {
		t.Fatalf("last page has %d entries, want 1", len(last.Data))
	}
	if last.Pagination.HasMore {
		t.Error("HasMore = true on a short page, want false")
	}
	if last.Pagination.NextCursor != "" {
		t.Errorf("NextCursor = %q on a short page, want empty", last.Pagination.NextCursor)
	}

	if source.calls != 2 {
		t.Fatalf("source called %d times, want 2", source.calls)
	}
	// The second sourcing call excluded everything already queued.
	lastExcluded := source.excluded[1]
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("p-%d", i)
		if _, ok := lastExcluded[id]; !ok {
			t.Errorf("refill exclusion set missing queued post %s", id)
		}
	}
}

func TestGetPageLimitBounds(t *testing.T) {
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	source := &mockSource{batches: [][]Candidate{
		candidateBatch("p", 20, base),
		candidateBatch("q", 20, base),
	}}
	o := testOrchestrator(t, source, newMemQueue())
	ctx := context.Background()

	// Above the cap: clamped to MaxPageSize.
	page, err := o.GetPage(ctx, "user-1", "", 50)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if len(page.Data) != 10 {
		t.Errorf("page has %d entries with limit 50, want 10 (MaxPageSize)", len(page.Data))
	}

	// Zero or negative: the default applies.
	page, err = o.GetPage(ctx, "user-2", "", 0)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if len(page.Data) != 2 {
		t.Errorf("page has %d entries with limit 0, want 2 (DefaultPageSize)", len(page.Data))
	}
}

func TestGetPageRejectsForeignCursor(t *testing.T) {
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	source := &mockSource{batches: [][]Candidate{candidateBatch("p", 5, base)}}
	o := testOrchestrator(t, source, newMemQueue())
	ctx := context.Background()

	page, err := o.GetPage(ctx, "user-1", "", 2)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}

	if _, err := o.GetPage(ctx, "user-2", page.Pagination.NextCursor, 2); !errors.Is(err, ErrInvalidCursor) {
		t.Errorf("GetPage with foreign cursor = %v, want ErrInvalidCursor", err)
	}
}

func TestGetPageMissingUser(t *testing.T) {
	o := testOrchestrator(t, &mockSource{}, newMemQueue())

	if _, err := o.GetPage(context.Background(), "", "", 2); !errors.Is(err, ErrMissingUser) {
		t.Errorf("GetPage without user = %v, want ErrMissingUser", err)
	}
}

func TestGetPageSourcingFailureCachesNothing(t *testing.T) {
	sourceErr := errors.New("relational store down")
	source := &mockSource{err: sourceErr}
	queue := newMemQueue()
	o := testOrchestrator(t, source, queue)

	if _, err := o.GetPage(context.Background(), "user-1", "", 2); !errors.Is(err, sourceErr) {
		t.Fatalf("GetPage = %v, want wrapped sourcing error", err)
	}

	size, _ := queue.Size(context.Background(), "user-1")
	if size != 0 {
		t.Errorf("queue size = %d after sourcing failure, want 0", size)
	}
}

func TestGetPageAppendFailureSurfaces(t *testing.T) {
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	source := &mockSource{batches: [][]Candidate{candidateBatch("p", 5, base)}}
	queue := newMemQueue()
	queue.appendErr = errors.New("write failed")
	o := testOrchestrator(t, source, queue)

	if _, err := o.GetPage(context.Background(), "user-1", "", 2); !errors.Is(err, queue.appendErr) {
		t.Errorf("GetPage = %v, want wrapped append error", err)
	}
}

func TestGetPageCachedEntriesKeepScores(t *testing.T) {
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	source := &mockSource{batches: [][]Candidate{candidateBatch("p", 3, base)}}
	o := testOrchestrator(t, source, newMemQueue())

	page, err := o.GetPage(context.Background(), "user-1", "", 3)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}

	// Relevance n..1 under the 0.9 weight; scores must be present and
	// strictly descending.
	for i := 1; i < len(page.Data); i++ {
		if page.Data[i].Score >= page.Data[i-1].Score {
			t.Errorf("scores not descending: %v then %v", page.Data[i-1].Score, page.Data[i].Score)
		}
	}
	if page.Data[0].Score == 0 {
		t.Error("cached entry lost its ranked score")
	}
}

func TestRebuildReplacesQueue(t *testing.T) {
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	source := &mockSource{batches: [][]Candidate{
		candidateBatch("old", 5, base),
		candidateBatch("new", 3, base),
	}}
	queue := newMemQueue()
	o := testOrchestrator(t, source, queue)
	ctx := context.Background()

	if _, err := o.GetPage(ctx, "user-1", "", 2); err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}

	count, err := o.Rebuild(ctx, "user-1")
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Rebuild returned %d, want 3", count)
	}

	entries, _ := queue.Range(ctx, "user-1", 0, 10)
	if len(entries) != 3 {
		t.Fatalf("queue has %d entries after Rebuild, want 3", len(entries))
	}
	for _, e := range entries {
		if e.PostID[:3] != "new" {
			t.Errorf("stale entry %s survived Rebuild", e.PostID)
		}
	}
}

func TestMaintainUserAppliesBothPolicies(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	queue := newMemQueue()
	o, err := NewOrchestrator(&mockSource{}, NewRanker(), queue, OrchestratorConfig{
		DefaultPageSize: 2,
		MaxPageSize:     3,
		RefillBatchSize: 5,
		MaxQueueSize:    3,
		MaxEntryAge:     7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	o.now = func() time.Time { return now }
	ctx := context.Background()

	// One stale entry plus five fresh ones: the age policy removes the
	// stale entry, then the size policy trims the queue of five down to
	// three from the head.
	entries := []Entry{
		{PostID: "stale", AuthorID: "a", CreatedAt: now.AddDate(0, 0, -10)},
	}
	for i := 0; i < 5; i++ {
		entries = append(entries, Entry{
			PostID:    fmt.Sprintf("fresh-%d", i),
			AuthorID:  "a",
			CreatedAt: now.AddDate(0, 0, -1),
		})
	}
	if _, err := queue.Initialize(ctx, "user-1", entries); err != nil {
		t.Fatalf("seed queue: %v", err)
	}

	removed, err := o.MaintainUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("MaintainUser failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("MaintainUser removed %d, want 3 (1 stale + 2 trimmed)", removed)
	}

	remaining, _ := queue.Range(ctx, "user-1", 0, 10)
	if len(remaining) != 3 {
		t.Fatalf("queue has %d entries after maintenance, want 3", len(remaining))
	}
	wantOrder := []string{"fresh-2", "fresh-3", "fresh-4"}
	for i, id := range wantOrder {
		if remaining[i].PostID != id {
			t.Errorf("position %d: PostID = %q, want %q", i, remaining[i].PostID, id)
		}
	}
}

func TestOrchestratorConfigValidate(t *testing.T) {
	valid := OrchestratorConfig{
		DefaultPageSize: 20,
		MaxPageSize:     100,
		RefillBatchSize: 50,
		MaxQueueSize:    5000,
		MaxEntryAge:     7 * 24 * time.Hour,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*OrchestratorConfig)
	}{
		{"zero default page size", func(c *OrchestratorConfig) { c.DefaultPageSize = 0 }},
		{"max below default", func(c *OrchestratorConfig) { c.MaxPageSize = 10 }},
		{"zero refill batch", func(c *OrchestratorConfig) { c.RefillBatchSize = 0 }},
		{"queue below max page", func(c *OrchestratorConfig) { c.MaxQueueSize = 50 }},
		{"zero entry age", func(c *OrchestratorConfig) { c.MaxEntryAge = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted invalid config")
			}
		})
	}
}
