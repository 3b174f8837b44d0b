// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

// Package main is the entry point for the Feedforge server.
//
// Feedforge is the personalized-feed generation pipeline of a
// social-network backend: it sources candidate posts from relational
// storage using interest-affinity signals, ranks them with a weighted
// multi-signal formula plus an author-diversity correction, and serves
// paginated feed pages from a precomputed per-user queue in BadgerDB.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered Koanf v2 sources (env > config file > defaults)
//  2. Logging: global zerolog logger (JSON or console)
//  3. Database: DuckDB relational store (posts, interests, relationships)
//  4. Queue store: BadgerDB per-user feed queues
//  5. Feed pipeline: sourcer, ranker, and orchestrator wiring
//  6. Supervision tree: value-log GC and queue maintenance services
//
// # Configuration
//
// Everything is configurable through environment variables, for
// example:
//
//	export DATABASE_PATH=/data/feedforge.duckdb
//	export QUEUE_PATH=/data/feedqueue
//	export FEED_MAX_QUEUE_SIZE=5000
//	export MAINTENANCE_INTERVAL=15m
//	export LOG_LEVEL=info
//	./feedforge
//
// Development mode with an in-memory stack and a seeded corpus:
//
//	export DATABASE_PATH=
//	export DATABASE_SEED_MOCK_DATA=true
//	export QUEUE_IN_MEMORY=true
//	export LOG_FORMAT=console
//	./feedforge
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the
// supervision tree stops its services, then the queue store and
// database are closed.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/feedforge/feedforge/internal/config"
	"github.com/feedforge/feedforge/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("starting feedforge")

	app, err := initApp(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	errCh := app.Tree.ServeBackground(ctx)
	if err := <-errCh; err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("supervisor tree terminated unexpectedly")
	}

	if report, err := app.Tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
		}
	}

	logging.Info().Msg("feedforge stopped")
}
