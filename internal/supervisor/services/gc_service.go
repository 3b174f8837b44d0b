// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package services

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// ValueLogGC is the queue store surface the GC service needs.
type ValueLogGC interface {
	// RunValueLogGC runs one garbage collection pass. Returns
	// badger.ErrNoRewrite when there was nothing to collect.
	RunValueLogGC() error
}

// GCService periodically runs BadgerDB value-log garbage collection on
// the queue store. Badger never reclaims value-log space on its own;
// without this loop, evicted queue entries accumulate on disk.
type GCService struct {
	store    ValueLogGC
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewGCService creates the GC service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewGCService(store ValueLogGC, interval time.Duration, logger zerolog.Logger) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	return &GCService{
		store:    store,
		interval: interval,
		logger:   logger.With().Str("service", "queue-gc").Logger(),
		name:     "queue-gc-service",
	}
}

// Serve implements the suture.Service interface.
func (s *GCService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("value-log GC service starting")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("value-log GC service shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.collect()
		}
	}
}

// collect runs GC passes until Badger reports nothing left to rewrite.
// A successful pass means a value-log file was reclaimed, so another
// pass may find more.
func (s *GCService) collect() {
	passes := 0
	for {
		err := s.store.RunValueLogGC()
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("value-log GC pass failed")
			return
		}
		passes++
	}

	if passes > 0 {
		s.logger.Debug().Int("passes", passes).Msg("value-log space reclaimed")
	}
}

// String returns the service name for logging.
func (s *GCService) String() string {
	return s.name
}
