// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

// Package queue provides the per-user feed queue store on BadgerDB.
// Each user's queue is an ordered list of serialized entries under a
// per-user key prefix; insertion order is the ranked serving order.
package queue

import (
	"fmt"
	"time"
)

// Config holds the BadgerDB store configuration.
type Config struct {
	// Path is the directory where BadgerDB stores its files. Ignored
	// when InMemory is set.
	Path string

	// InMemory runs Badger without disk persistence. Test-only.
	InMemory bool

	// SyncWrites forces fsync after every commit. Safer, slower.
	SyncWrites bool

	// MemTableSize is the size of each memtable in bytes.
	MemTableSize int64

	// ValueLogFileSize is the size of each value log file in bytes.
	ValueLogFileSize int64

	// NumCompactors is the number of compaction workers.
	NumCompactors int

	// Compression enables Snappy compression for stored entries.
	Compression bool

	// GCRatio is the value-log garbage collection rewrite threshold.
	GCRatio float64

	// GCInterval is how often the value-log GC loop runs.
	GCInterval time.Duration
}

// DefaultConfig returns production defaults. The queue workload is
// many small JSON records, so the memtable and value log are sized
// well below Badger's defaults.
func DefaultConfig() *Config {
	return &Config{
		Path:             "/data/feedqueue",
		SyncWrites:       false,
		MemTableSize:     16 << 20, // 16MB
		ValueLogFileSize: 64 << 20, // 64MB
		NumCompactors:    2,
		Compression:      true,
		GCRatio:          0.5,
		GCInterval:       10 * time.Minute,
	}
}

// Validate checks the configuration against Badger's requirements.
func (c *Config) Validate() error {
	if c.Path == "" && !c.InMemory {
		return fmt.Errorf("queue store path is required unless running in-memory")
	}
	if c.MemTableSize <= 0 {
		return fmt.Errorf("memtable size must be positive, got %d", c.MemTableSize)
	}
	if c.ValueLogFileSize <= 0 {
		return fmt.Errorf("value log file size must be positive, got %d", c.ValueLogFileSize)
	}
	if c.NumCompactors < 2 {
		return fmt.Errorf("badger requires at least 2 compactors, got %d", c.NumCompactors)
	}
	if c.GCRatio <= 0 || c.GCRatio >= 1 {
		return fmt.Errorf("gc ratio must be in (0, 1), got %v", c.GCRatio)
	}
	if c.GCInterval <= 0 {
		return fmt.Errorf("gc interval must be positive, got %v", c.GCInterval)
	}
	return nil
}
