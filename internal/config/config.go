// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

// Package config loads and validates the Feedforge application configuration.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables > YAML config file > built-in
// defaults. See Load for details.
package config

import "time"

// Config is the root application configuration.
type Config struct {
	Database    DatabaseConfig    `koanf:"database"`
	Queue       QueueConfig       `koanf:"queue"`
	Feed        FeedConfig        `koanf:"feed"`
	Maintenance MaintenanceConfig `koanf:"maintenance"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// DatabaseConfig configures the DuckDB-backed relational store holding
// posts, category associations, interests, and relationship lists.
type DatabaseConfig struct {
	// Path is the database file location. Empty means in-memory, which is
	// only appropriate for tests and local experiments.
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB memory usage (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads sets the DuckDB thread count. 0 = runtime.NumCPU().
	Threads int `koanf:"threads"`

	// PreserveInsertionOrder keeps DuckDB's default result ordering.
	// Disabling reduces memory usage at the cost of unordered results.
	PreserveInsertionOrder bool `koanf:"preserve_insertion_order"`

	// SeedMockData populates a deterministic development corpus at startup.
	SeedMockData bool `koanf:"seed_mock_data"`
}

// QueueConfig configures the BadgerDB store backing the per-user feed queues.
type QueueConfig struct {
	// Path is the BadgerDB directory.
	Path string `koanf:"path"`

	// InMemory runs Badger without disk persistence. Test-only.
	InMemory bool `koanf:"in_memory"`

	// SyncWrites forces fsync on every commit. Safer, slower.
	SyncWrites bool `koanf:"sync_writes"`

	// GCInterval is how often the value-log garbage collector runs.
	GCInterval time.Duration `koanf:"gc_interval"`

	// GCRatio is the Badger value-log GC rewrite threshold (0-1).
	GCRatio float64 `koanf:"gc_ratio"`
}

// FeedConfig configures the feed pipeline: page sizing, refill batching,
// queue bounds, and candidate freshness.
type FeedConfig struct {
	// DefaultPageSize is used when a request does not specify a limit.
	DefaultPageSize int `koanf:"default_page_size"`

	// MaxPageSize caps the per-request page limit.
	MaxPageSize int `koanf:"max_page_size"`

	// RefillBatchSize is the minimum candidate batch sourced on a queue
	// shortfall. Sourcing in batches larger than one page keeps most page
	// reads cache-only.
	RefillBatchSize int `koanf:"refill_batch_size"`

	// MaxQueueSize bounds a user's queue; the oldest entries are trimmed
	// once the queue exceeds it.
	MaxQueueSize int `koanf:"max_queue_size"`

	// FreshnessWindow is the lookback window defining which posts are
	// eligible as sourcing candidates.
	FreshnessWindow time.Duration `koanf:"freshness_window"`

	// MaxEntryAge is the content-age bound for cached queue entries;
	// the maintenance sweep evicts entries older than this.
	MaxEntryAge time.Duration `koanf:"max_entry_age"`
}

// MaintenanceConfig configures the background queue janitor.
type MaintenanceConfig struct {
	// Enabled turns the periodic sweep on.
	Enabled bool `koanf:"enabled"`

	// Interval is the time between sweeps.
	Interval time.Duration `koanf:"interval"`

	// SweepRatePerSecond paces the per-user maintenance work so a sweep
	// over many users cannot saturate the queue store. 0 = unlimited.
	SweepRatePerSecond float64 `koanf:"sweep_rate_per_second"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:                   "/data/feedforge.duckdb",
			MaxMemory:              "2GB",
			Threads:                0, // 0 = use runtime.NumCPU()
			PreserveInsertionOrder: true,
			SeedMockData:           false,
		},
		Queue: QueueConfig{
			Path:       "/data/feedqueue",
			InMemory:   false,
			SyncWrites: false,
			GCInterval: 10 * time.Minute,
			GCRatio:    0.5,
		},
		Feed: FeedConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
			RefillBatchSize: 50,
			MaxQueueSize:    5000,
			FreshnessWindow: 7 * 24 * time.Hour,
			MaxEntryAge:     7 * 24 * time.Hour,
		},
		Maintenance: MaintenanceConfig{
			Enabled:            true,
			Interval:           15 * time.Minute,
			SweepRatePerSecond: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
