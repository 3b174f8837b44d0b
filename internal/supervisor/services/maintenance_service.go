// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

// Package services provides suture service wrappers for the background
// components: the feed queue janitor and the queue store's value-log
// garbage collector.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/feedforge/feedforge/internal/metrics"
)

// FeedMaintainer is the orchestrator surface the janitor needs.
// Declared here to avoid importing the feed package.
type FeedMaintainer interface {
	// Users lists all users with a cached queue.
	Users(ctx context.Context) ([]string, error)

	// MaintainUser applies the staleness and size eviction policies to
	// one user's queue, returning the number of entries removed.
	MaintainUser(ctx context.Context, userID string) (int, error)
}

// MaintenanceServiceConfig holds the janitor configuration.
type MaintenanceServiceConfig struct {
	// Interval is the time between full sweeps.
	Interval time.Duration

	// SweepRatePerSecond paces per-user maintenance so a sweep across
	// many users cannot saturate the queue store. 0 means unlimited.
	SweepRatePerSecond float64
}

// MaintenanceService periodically sweeps every user's feed queue,
// evicting stale entries and trimming oversized queues. Per-user work
// is paced by a rate limiter.
type MaintenanceService struct {
	maintainer FeedMaintainer
	config     MaintenanceServiceConfig
	limiter    *rate.Limiter
	logger     zerolog.Logger
	name       string
}

// NewMaintenanceService creates the janitor service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewMaintenanceService(maintainer FeedMaintainer, cfg MaintenanceServiceConfig, logger zerolog.Logger) *MaintenanceService {
	limit := rate.Inf
	if cfg.SweepRatePerSecond > 0 {
		limit = rate.Limit(cfg.SweepRatePerSecond)
	}

	return &MaintenanceService{
		maintainer: maintainer,
		config:     cfg,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger.With().Str("service", "maintenance").Logger(),
		name:       "maintenance-service",
	}
}

// Serve implements the suture.Service interface: sweep on startup,
// then on every tick until the context is canceled.
func (s *MaintenanceService) Serve(ctx context.Context) error {
	interval := s.config.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	s.logger.Info().
		Dur("interval", interval).
		Float64("sweep_rate_per_second", s.config.SweepRatePerSecond).
		Msg("maintenance service starting")

	if err := s.sweep(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("initial sweep failed (will retry on schedule)")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("maintenance service shutting down")
			return ctx.Err()

		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("scheduled sweep failed")
			}
		}
	}
}

// sweep runs one full maintenance pass over all users with queues.
// Per-user failures are logged and skipped so one corrupt queue cannot
// stall the whole sweep.
func (s *MaintenanceService) sweep(ctx context.Context) error {
	start := time.Now()

	users, err := s.maintainer.Users(ctx)
	if err != nil {
		return err
	}

	removed := 0
	swept := 0
	for _, userID := range users {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		n, err := s.maintainer.MaintainUser(ctx, userID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("user maintenance failed")
			continue
		}
		removed += n
		swept++
	}

	metrics.MaintenanceSweeps.Inc()
	metrics.MaintenanceSweepDuration.Observe(time.Since(start).Seconds())

	s.logger.Info().
		Int("users", swept).
		Int("entries_removed", removed).
		Dur("duration", time.Since(start)).
		Msg("maintenance sweep complete")

	return nil
}

// String returns the service name for logging.
func (s *MaintenanceService) String() string {
	return s.name
}
