// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

package queue

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	badgeroptions "github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/feedforge/feedforge/internal/feed"
	"github.com/feedforge/feedforge/internal/logging"
	"github.com/feedforge/feedforge/internal/metrics"
)

// ErrClosed is returned by all operations after Close.
var ErrClosed = errors.New("feed queue store is closed")

// Key layout. Entry keys embed a zero-padded sequence number so
// Badger's lexicographic iteration yields insertion order; the per-user
// counter key holds the next sequence. User IDs are UUIDs, so the ':'
// separator cannot collide.
const (
	entryKeyPrefix   = "q:"
	counterKeyPrefix = "qs:"
	seqDigits        = 20
)

// Store is the BadgerDB-backed per-user feed queue. All multi-step
// writes (batch append, initialize, trim, staleness eviction) run in a
// single Badger transaction, so each operation is atomic; callers that
// compose read-then-write sequences across operations serialize them
// per user.
type Store struct {
	db     *badger.DB
	config Config
	closed bool
}

// Open creates the store, opening (or creating) the BadgerDB database
// at the configured path.
func Open(cfg *Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid queue store config: %w", err)
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts.InMemory = cfg.InMemory
	if cfg.InMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.MemTableSize = cfg.MemTableSize
	opts.ValueLogFileSize = cfg.ValueLogFileSize
	opts.NumCompactors = cfg.NumCompactors
	if cfg.Compression {
		opts.Compression = badgeroptions.Snappy
	}

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("feed queue store opened")

	return &Store{db: db, config: *cfg}, nil
}

// Close shuts the store down. Subsequent operations return ErrClosed.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Config returns a copy of the store configuration.
func (s *Store) Config() Config {
	return s.config
}

// RunValueLogGC runs one value-log garbage collection pass.
// badger.ErrNoRewrite means nothing needed collecting and is returned
// unchanged for the caller to ignore.
func (s *Store) RunValueLogGC() error {
	if s.closed {
		return ErrClosed
	}
	return s.db.RunValueLogGC(s.config.GCRatio)
}

func entryPrefix(userID string) []byte {
	return []byte(entryKeyPrefix + userID + ":")
}

func entryKey(userID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%0*d", entryKeyPrefix, userID, seqDigits, seq))
}

func counterKey(userID string) []byte {
	return []byte(counterKeyPrefix + userID)
}

// nextSeq reads the user's next append sequence, 0 when absent.
func nextSeq(txn *badger.Txn, userID string) (uint64, error) {
	item, err := txn.Get(counterKey(userID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read queue counter: %w", err)
	}

	var seq uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("queue counter has %d bytes, want 8", len(val))
		}
		seq = binary.BigEndian.Uint64(val)
		return nil
	})
	return seq, err
}

func setSeq(txn *badger.Txn, userID string, seq uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return txn.Set(counterKey(userID), buf)
}

// Append appends entries to the tail of the user's queue in one
// transaction. Returns len(entries) on success and 0 on empty input or
// failure, never a partial count.
func (s *Store) Append(ctx context.Context, userID string, entries []feed.Entry) (int, error) {
	start := time.Now()
	var err error
	defer func() { metrics.ObserveQueueOperation("append", start, err) }()

	if s.closed {
		err = ErrClosed
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	payloads := make([][]byte, len(entries))
	for i, e := range entries {
		payloads[i], err = json.Marshal(e)
		if err != nil {
			err = fmt.Errorf("marshal queue entry: %w", err)
			return 0, err
		}
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		seq, err := nextSeq(txn, userID)
		if err != nil {
			return err
		}
		for _, payload := range payloads {
			if err := txn.Set(entryKey(userID, seq), payload); err != nil {
				return fmt.Errorf("set queue entry: %w", err)
			}
			seq++
		}
		return setSeq(txn, userID, seq)
	})
	if err != nil {
		return 0, fmt.Errorf("append to queue for user %s: %w", userID, err)
	}

	return len(entries), nil
}

// Range reads the zero-based range [start, start+count) in insertion
// order. Out-of-range offsets yield an empty result, never an error.
func (s *Store) Range(ctx context.Context, userID string, offset, count int) ([]feed.Entry, error) {
	opStart := time.Now()
	var err error
	defer func() { metrics.ObserveQueueOperation("range", opStart, err) }()

	if s.closed {
		err = ErrClosed
		return nil, err
	}

	entries := []feed.Entry{}
	if offset < 0 || count <= 0 {
		return entries, nil
	}

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = entryPrefix(userID)
		it := txn.NewIterator(opts)
		defer it.Close()

		skipped := 0
		for it.Rewind(); it.Valid(); it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if len(entries) >= count {
				break
			}

			var entry feed.Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return fmt.Errorf("decode queue entry: %w", err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read queue range for user %s: %w", userID, err)
	}

	return entries, nil
}

// Size returns the user's current queue length.
func (s *Store) Size(ctx context.Context, userID string) (int, error) {
	start := time.Now()
	var err error
	defer func() { metrics.ObserveQueueOperation("size", start, err) }()

	if s.closed {
		err = ErrClosed
		return 0, err
	}

	count := 0
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = entryPrefix(userID)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("read queue size for user %s: %w", userID, err)
	}

	return count, nil
}

// Contains reports whether postID is present in the user's queue via a
// linear scan. An empty queue yields false.
func (s *Store) Contains(ctx context.Context, userID, postID string) (bool, error) {
	start := time.Now()
	var err error
	defer func() { metrics.ObserveQueueOperation("contains", start, err) }()

	if s.closed {
		err = ErrClosed
		return false, err
	}

	found := false
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = entryPrefix(userID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var entry feed.Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return fmt.Errorf("decode queue entry: %w", err)
			}
			if entry.PostID == postID {
				found = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("scan queue for user %s: %w", userID, err)
	}

	return found, nil
}

// PostIDs returns the set of post IDs currently queued, for duplicate
// filtering before appending fresh batches.
func (s *Store) PostIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	start := time.Now()
	var err error
	defer func() { metrics.ObserveQueueOperation("post_ids", start, err) }()

	if s.closed {
		err = ErrClosed
		return nil, err
	}

	ids := make(map[string]struct{})
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = entryPrefix(userID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var entry feed.Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return fmt.Errorf("decode queue entry: %w", err)
			}
			ids[entry.PostID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect queued post ids for user %s: %w", userID, err)
	}

	return ids, nil
}

// RemoveOlderThan removes every entry created before cutoff, in one
// transaction. Returns the number removed; 0 with no write when
// nothing qualifies.
func (s *Store) RemoveOlderThan(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	start := time.Now()
	var err error
	defer func() { metrics.ObserveQueueOperation("remove_older_than", start, err) }()

	if s.closed {
		err = ErrClosed
		return 0, err
	}

	removed := 0
	err = s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = entryPrefix(userID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var entry feed.Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return fmt.Errorf("decode queue entry: %w", err)
			}
			if !entry.CreatedAt.Before(cutoff) {
				continue
			}
			if err := txn.Delete(item.KeyCopy(nil)); err != nil {
				return fmt.Errorf("delete stale entry: %w", err)
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("evict stale entries for user %s: %w", userID, err)
	}

	return removed, nil
}

// Clear deletes the user's queue entirely, counter included.
func (s *Store) Clear(ctx context.Context, userID string) error {
	start := time.Now()
	var err error
	defer func() { metrics.ObserveQueueOperation("clear", start, err) }()

	if s.closed {
		err = ErrClosed
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return clearTxn(txn, userID)
	})
	if err != nil {
		return fmt.Errorf("clear queue for user %s: %w", userID, err)
	}
	return nil
}

// clearTxn deletes all entry keys and the counter inside txn.
func clearTxn(txn *badger.Txn, userID string) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = entryPrefix(userID)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := txn.Delete(it.Item().KeyCopy(nil)); err != nil {
			return fmt.Errorf("delete queue entry: %w", err)
		}
	}

	if err := txn.Delete(counterKey(userID)); err != nil {
		return fmt.Errorf("delete queue counter: %w", err)
	}
	return nil
}

// Initialize replaces the user's queue with entries in one transaction
// (clear then append). Returns the new entry count.
func (s *Store) Initialize(ctx context.Context, userID string, entries []feed.Entry) (int, error) {
	start := time.Now()
	var err error
	defer func() { metrics.ObserveQueueOperation("initialize", start, err) }()

	if s.closed {
		err = ErrClosed
		return 0, err
	}

	payloads := make([][]byte, len(entries))
	for i, e := range entries {
		payloads[i], err = json.Marshal(e)
		if err != nil {
			err = fmt.Errorf("marshal queue entry: %w", err)
			return 0, err
		}
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := clearTxn(txn, userID); err != nil {
			return err
		}
		if len(payloads) == 0 {
			return nil
		}
		for seq, payload := range payloads {
			if err := txn.Set(entryKey(userID, uint64(seq)), payload); err != nil {
				return fmt.Errorf("set queue entry: %w", err)
			}
		}
		return setSeq(txn, userID, uint64(len(payloads)))
	})
	if err != nil {
		return 0, fmt.Errorf("initialize queue for user %s: %w", userID, err)
	}

	return len(entries), nil
}

// Trim removes the oldest entries from the head until the queue holds
// at most maxSize, in one transaction. Returns the number removed; 0
// with no write when already within budget.
func (s *Store) Trim(ctx context.Context, userID string, maxSize int) (int, error) {
	start := time.Now()
	var err error
	defer func() { metrics.ObserveQueueOperation("trim", start, err) }()

	if s.closed {
		err = ErrClosed
		return 0, err
	}
	if maxSize < 0 {
		maxSize = 0
	}

	removed := 0
	err = s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = entryPrefix(userID)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		keys := [][]byte{}
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		if len(keys) <= maxSize {
			return nil
		}

		for _, key := range keys[:len(keys)-maxSize] {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete trimmed entry: %w", err)
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("trim queue for user %s: %w", userID, err)
	}

	return removed, nil
}

// Users lists every user with a queue, via the counter key prefix.
func (s *Store) Users(ctx context.Context) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { metrics.ObserveQueueOperation("users", start, err) }()

	if s.closed {
		err = ErrClosed
		return nil, err
	}

	users := []string{}
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(counterKeyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			users = append(users, strings.TrimPrefix(key, counterKeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list queue users: %w", err)
	}

	return users, nil
}
