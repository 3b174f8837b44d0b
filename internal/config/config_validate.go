// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package config

import (
	"fmt"
	"strings"
)

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateQueue(); err != nil {
		return err
	}

	if err := c.validateFeed(); err != nil {
		return err
	}

	if err := c.validateMaintenance(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateDatabase validates the relational store configuration.
func (c *Config) validateDatabase() error {
	if c.Database.Threads < 0 {
		return fmt.Errorf("DATABASE_THREADS must be >= 0, got %d", c.Database.Threads)
	}
	if c.Database.MaxMemory == "" {
		return fmt.Errorf("DATABASE_MAX_MEMORY is required (e.g. \"2GB\")")
	}
	return nil
}

// validateQueue validates the feed queue store configuration.
func (c *Config) validateQueue() error {
	if c.Queue.Path == "" && !c.Queue.InMemory {
		return fmt.Errorf("QUEUE_PATH is required unless QUEUE_IN_MEMORY=true")
	}
	if c.Queue.GCRatio <= 0 || c.Queue.GCRatio >= 1 {
		return fmt.Errorf("QUEUE_GC_RATIO must be in (0, 1), got %v", c.Queue.GCRatio)
	}
	if c.Queue.GCInterval <= 0 {
		return fmt.Errorf("QUEUE_GC_INTERVAL must be positive, got %v", c.Queue.GCInterval)
	}
	return nil
}

// validateFeed validates the feed pipeline configuration.
func (c *Config) validateFeed() error {
	if c.Feed.DefaultPageSize <= 0 {
		return fmt.Errorf("FEED_DEFAULT_PAGE_SIZE must be positive, got %d", c.Feed.DefaultPageSize)
	}
	if c.Feed.MaxPageSize < c.Feed.DefaultPageSize {
		return fmt.Errorf("FEED_MAX_PAGE_SIZE (%d) must be >= FEED_DEFAULT_PAGE_SIZE (%d)",
			c.Feed.MaxPageSize, c.Feed.DefaultPageSize)
	}
	if c.Feed.RefillBatchSize <= 0 {
		return fmt.Errorf("FEED_REFILL_BATCH_SIZE must be positive, got %d", c.Feed.RefillBatchSize)
	}
	if c.Feed.MaxQueueSize < c.Feed.MaxPageSize {
		return fmt.Errorf("FEED_MAX_QUEUE_SIZE (%d) must be >= FEED_MAX_PAGE_SIZE (%d)",
			c.Feed.MaxQueueSize, c.Feed.MaxPageSize)
	}
	if c.Feed.FreshnessWindow <= 0 {
		return fmt.Errorf("FEED_FRESHNESS_WINDOW must be positive, got %v", c.Feed.FreshnessWindow)
	}
	if c.Feed.MaxEntryAge <= 0 {
		return fmt.Errorf("FEED_MAX_ENTRY_AGE must be positive, got %v", c.Feed.MaxEntryAge)
	}
	return nil
}

// validateMaintenance validates the janitor configuration.
func (c *Config) validateMaintenance() error {
	if !c.Maintenance.Enabled {
		return nil
	}
	if c.Maintenance.Interval <= 0 {
		return fmt.Errorf("MAINTENANCE_INTERVAL must be positive, got %v", c.Maintenance.Interval)
	}
	if c.Maintenance.SweepRatePerSecond < 0 {
		return fmt.Errorf("MAINTENANCE_SWEEP_RATE_PER_SECOND must be >= 0, got %v", c.Maintenance.SweepRatePerSecond)
	}
	return nil
}

// validateLogging validates the logging configuration.
func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled", "":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a recognized level", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console", "":
	default:
		return fmt.Errorf("LOG_FORMAT must be \"json\" or \"console\", got %q", c.Logging.Format)
	}

	return nil
}
