// Feedforge - Personalized Feed Generation and Ranking Pipeline
// Copyright 2026 Feedforge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/feedforge/feedforge

// Package metrics provides Prometheus instrumentation for the feed pipeline:
// candidate sourcing latency and volume per sourcing path, queue store
// operation counts and latency, page serving outcomes, and maintenance
// sweep activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Candidate sourcing

	SourcingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_sourcing_duration_seconds",
			Help:    "Duration of candidate sourcing calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"}, // "interest", "topup", "random"
	)

	SourcedCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_sourced_candidates_total",
			Help: "Total candidates produced, by sourcing path",
		},
		[]string{"path"},
	)

	SourcingErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_sourcing_errors_total",
			Help: "Total candidate sourcing failures",
		},
	)

	// Feed queue store

	QueueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_queue_operations_total",
			Help: "Total feed queue store operations",
		},
		[]string{"operation", "status"}, // operation: append, range, trim, ...; status: ok, error
	)

	QueueOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_queue_operation_duration_seconds",
			Help:    "Duration of feed queue store operations in seconds",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	QueueEntriesEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_queue_entries_evicted_total",
			Help: "Total queue entries evicted, by policy",
		},
		[]string{"policy"}, // "trim" (size bound), "age" (staleness)
	)

	// Orchestrator

	PageRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_page_requests_total",
			Help: "Total feed page requests",
		},
		[]string{"status"}, // "ok", "error"
	)

	PageRefills = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_page_refills_total",
			Help: "Page requests that triggered a sourcing refill (cache shortfall)",
		},
	)

	PageCacheServes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_page_cache_serves_total",
			Help: "Page requests served entirely from the cached queue",
		},
	)

	// Maintenance

	MaintenanceSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_maintenance_sweeps_total",
			Help: "Total maintenance sweeps completed",
		},
	)

	MaintenanceSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_maintenance_sweep_duration_seconds",
			Help:    "Duration of full maintenance sweeps in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)
)

// ObserveQueueOperation records one queue store operation outcome.
func ObserveQueueOperation(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	QueueOperations.WithLabelValues(operation, status).Inc()
	QueueOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveSourcing records one sourcing call on the given path.
func ObserveSourcing(path string, start time.Time, produced int) {
	SourcingDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	SourcedCandidates.WithLabelValues(path).Add(float64(produced))
}
