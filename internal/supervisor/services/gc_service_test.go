// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package services

import (
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// mockGC returns the scripted errors in order, then ErrNoRewrite.
type mockGC struct {
	results []error
	calls   int
}

func (m *mockGC) RunValueLogGC() error {
	if m.calls < len(m.results) {
		err := m.results[m.calls]
		m.calls++
		return err
	}
	m.calls++
	return badger.ErrNoRewrite
}

func TestCollectLoopsUntilNoRewrite(t *testing.T) {
	// Two successful passes before Badger reports nothing left.
	store := &mockGC{results: []error{nil, nil}}
	svc := NewGCService(store, time.Minute, zerolog.Nop())

	svc.collect()

	if store.calls != 3 {
		t.Errorf("RunValueLogGC called %d times, want 3 (2 rewrites + terminal no-rewrite)", store.calls)
	}
}

func TestCollectStopsOnHardError(t *testing.T) {
	store := &mockGC{results: []error{errors.New("disk failure")}}
	svc := NewGCService(store, time.Minute, zerolog.Nop())

	svc.collect()

	if store.calls != 1 {
		t.Errorf("RunValueLogGC called %d times after hard error, want 1", store.calls)
	}
}

func TestNewGCServiceDefaultsInterval(t *testing.T) {
	svc := NewGCService(&mockGC{}, 0, zerolog.Nop())
	if svc.interval != 10*time.Minute {
		t.Errorf("interval = %v, want 10m default", svc.interval)
	}
}
