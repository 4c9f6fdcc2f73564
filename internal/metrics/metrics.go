// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics exposes Prometheus instrumentation for the batch pipeline. The CLI is
// a short-lived process, so metrics are exported through the node_exporter textfile
// collector (see WriteTextfile) rather than a scrape endpoint.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsTotal counts terminal session outcomes per stage.
	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camsync_sessions_total",
		Help: "Sessions processed by stage and outcome",
	}, []string{"stage", "outcome"})

	// SessionDuration tracks wall time spent on one session per stage.
	SessionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "camsync_session_duration_seconds",
		Help:    "Duration of per-session stage processing",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~2.3h
	}, []string{"stage"})

	// MediaOpsTotal counts external media tool invocations.
	MediaOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camsync_media_ops_total",
		Help: "External media tool invocations by operation and result",
	}, []string{"op", "result"})

	// MediaOpDuration tracks external media tool run time.
	MediaOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "camsync_media_op_duration_seconds",
		Help:    "Duration of external media tool invocations",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 16), // 50ms to ~27min
	}, []string{"op"})

	// ArtifactsReused counts outputs that already existed and were not regenerated.
	ArtifactsReused = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camsync_artifacts_reused_total",
		Help: "Artifacts found on disk and treated as already produced",
	}, []string{"kind"})

	// CutsSkipped counts phase cuts that were not produced.
	CutsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camsync_phase_cuts_skipped_total",
		Help: "Phase cuts skipped by reason",
	}, []string{"reason"})

	// RowsSkipped counts roster rows skipped by the batch driver.
	RowsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camsync_batch_rows_skipped_total",
		Help: "Roster rows skipped by stage and reason",
	}, []string{"stage", "reason"})
)

// ObserveMediaOp records one external tool invocation.
func ObserveMediaOp(op string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	MediaOpsTotal.WithLabelValues(op, result).Inc()
	MediaOpDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// ObserveSession records one terminal session outcome.
func ObserveSession(stage, outcome string, started time.Time) {
	SessionsTotal.WithLabelValues(stage, outcome).Inc()
	SessionDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// WriteTextfile dumps the default registry in text exposition format, atomically
// replacing path. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
