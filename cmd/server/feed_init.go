// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package main

import (
	"context"
	"fmt"

	"github.com/feedforge/feedforge/internal/config"
	"github.com/feedforge/feedforge/internal/database"
	"github.com/feedforge/feedforge/internal/feed"
	"github.com/feedforge/feedforge/internal/feed/queue"
	"github.com/feedforge/feedforge/internal/logging"
	"github.com/feedforge/feedforge/internal/supervisor"
	"github.com/feedforge/feedforge/internal/supervisor/services"
)

// App holds the wired application components.
type App struct {
	DB           *database.DB
	Queue        *queue.Store
	Orchestrator *feed.Orchestrator
	Tree         *supervisor.Tree
}

// initApp wires the stores, the feed pipeline, and the supervision
// tree from the loaded configuration.
func initApp(cfg *config.Config) (*App, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	if cfg.Database.SeedMockData {
		if err := db.SeedMockData(context.Background()); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed mock data: %w", err)
		}
	}

	store, err := queue.Open(&queue.Config{
		Path:             cfg.Queue.Path,
		InMemory:         cfg.Queue.InMemory,
		SyncWrites:       cfg.Queue.SyncWrites,
		MemTableSize:     16 << 20,
		ValueLogFileSize: 64 << 20,
		NumCompactors:    2,
		Compression:      true,
		GCRatio:          cfg.Queue.GCRatio,
		GCInterval:       cfg.Queue.GCInterval,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open queue store: %w", err)
	}

	sourcer := feed.NewSourcer(db, cfg.Feed.FreshnessWindow)
	ranker := feed.NewRanker()

	orchestrator, err := feed.NewOrchestrator(sourcer, ranker, store, feed.OrchestratorConfig{
		DefaultPageSize: cfg.Feed.DefaultPageSize,
		MaxPageSize:     cfg.Feed.MaxPageSize,
		RefillBatchSize: cfg.Feed.RefillBatchSize,
		MaxQueueSize:    cfg.Feed.MaxQueueSize,
		MaxEntryAge:     cfg.Feed.MaxEntryAge,
	})
	if err != nil {
		_ = store.Close()
		_ = db.Close()
		return nil, fmt.Errorf("initialize orchestrator: %w", err)
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddDataService(services.NewGCService(store, cfg.Queue.GCInterval, logging.Logger()))

	if cfg.Maintenance.Enabled {
		tree.AddMaintenanceService(services.NewMaintenanceService(orchestrator, services.MaintenanceServiceConfig{
			Interval:           cfg.Maintenance.Interval,
			SweepRatePerSecond: cfg.Maintenance.SweepRatePerSecond,
		}, logging.Logger()))
	} else {
		logging.Info().Msg("queue maintenance disabled")
	}

	return &App{
		DB:           db,
		Queue:        store,
		Orchestrator: orchestrator,
		Tree:         tree,
	}, nil
}

// Close releases the stores in reverse initialization order.
func (a *App) Close() {
	if err := a.Queue.Close(); err != nil {
		logging.Error().Err(err).Msg("failed to close queue store")
	}
	if err := a.DB.Close(); err != nil {
		logging.Error().Err(err).Msg("failed to close database")
	}
}
