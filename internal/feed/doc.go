// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

// Package feed implements the personalized-feed pipeline: candidate
// sourcing from the relational store using interest-affinity signals,
// weighted-sum ranking with an author-diversity correction, and a
// cache-first orchestrator that serves paginated feed pages from a
// per-user queue.
//
// The pipeline is composed of three stages plus glue:
//
//   - Sourcer retrieves a bounded set of eligible posts using the
//     user's interest categories, with an engagement-ranked top-up and
//     a random-fresh fallback when interest signals are thin or absent.
//   - Ranker is a pure function that combines weighted signals into a
//     single descending order and softly demotes author repeats.
//   - Orchestrator composes the two with a QueueStore so repeated
//     timeline reads are served from the precomputed per-user queue
//     instead of recomputing the ranking on every request.
//
// External collaborators (relational queries, the queue store) are
// consumed through interfaces defined in this package; concrete
// implementations live in internal/database and internal/feed/queue.
package feed
