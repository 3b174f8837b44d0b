// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// mockMaintainer is a hand-written FeedMaintainer for janitor tests.
type mockMaintainer struct {
	mu         sync.Mutex
	users      []string
	usersErr   error
	maintained []string
	failFor    map[string]error
	removed    int
}

func (m *mockMaintainer) Users(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users, m.usersErr
}

func (m *mockMaintainer) MaintainUser(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[userID]; ok {
		return 0, err
	}
	m.maintained = append(m.maintained, userID)
	return m.removed, nil
}

func TestSweepVisitsEveryUser(t *testing.T) {
	maintainer := &mockMaintainer{
		users:   []string{"user-a", "user-b", "user-c"},
		removed: 2,
	}
	svc := NewMaintenanceService(maintainer, MaintenanceServiceConfig{
		Interval: time.Minute,
	}, zerolog.Nop())

	if err := svc.sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if len(maintainer.maintained) != 3 {
		t.Errorf("maintained %d users, want 3: %v", len(maintainer.maintained), maintainer.maintained)
	}
}

func TestSweepSkipsFailingUsers(t *testing.T) {
	maintainer := &mockMaintainer{
		users:   []string{"user-a", "user-broken", "user-c"},
		failFor: map[string]error{"user-broken": errors.New("corrupt queue")},
	}
	svc := NewMaintenanceService(maintainer, MaintenanceServiceConfig{
		Interval: time.Minute,
	}, zerolog.Nop())

	if err := svc.sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if len(maintainer.maintained) != 2 {
		t.Errorf("maintained %d users, want 2 (failing user skipped)", len(maintainer.maintained))
	}
}

func TestSweepPropagatesUserListingError(t *testing.T) {
	listErr := errors.New("store unavailable")
	maintainer := &mockMaintainer{usersErr: listErr}
	svc := NewMaintenanceService(maintainer, MaintenanceServiceConfig{
		Interval: time.Minute,
	}, zerolog.Nop())

	if err := svc.sweep(context.Background()); !errors.Is(err, listErr) {
		t.Errorf("sweep = %v, want listing error", err)
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	maintainer := &mockMaintainer{users: []string{"user-a"}}
	svc := NewMaintenanceService(maintainer, MaintenanceServiceConfig{
		Interval: time.Hour, // only the startup sweep runs
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Give the startup sweep a moment, then stop.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop after cancellation")
	}

	maintainer.mu.Lock()
	defer maintainer.mu.Unlock()
	if len(maintainer.maintained) == 0 {
		t.Error("startup sweep never ran")
	}
}
