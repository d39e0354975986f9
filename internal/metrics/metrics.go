// Package metrics holds the Prometheus collectors of the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	stageRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labpulse",
		Subsystem: "pipeline",
		Name:      "stage_records_total",
		Help:      "Records produced by each pipeline stage.",
	}, []string{"stage"})

	attempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labpulse",
		Subsystem: "pipeline",
		Name:      "attempts_total",
		Help:      "Pipeline attempts by outcome and failure kind.",
	}, []string{"outcome", "kind"})

	runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "labpulse",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Scheduled runs by final outcome after retries.",
	}, []string{"outcome", "kind"})

	lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "labpulse",
		Subsystem: "pipeline",
		Name:      "last_success_timestamp_seconds",
		Help:      "Completion time of the most recent successful run.",
	})
)

func init() {
	prometheus.MustRegister(stageRecords, attempts, runs, lastSuccess)
}

// Stage names used as label values.
const (
	StageExtract   = "extract"
	StageTransform = "transform"
	StageLoad      = "load"
)

// RecordStage adds n records to the counter of stage.
func RecordStage(stage string, n int) {
	stageRecords.WithLabelValues(stage).Add(float64(n))
}

// RecordAttempt counts one pipeline attempt. kind is empty on success.
func RecordAttempt(kind string) {
	if kind == "" {
		attempts.WithLabelValues("success", "").Inc()
		return
	}
	attempts.WithLabelValues("failure", kind).Inc()
}

// RecordRun counts one run after the retry policy has settled.
func RecordRun(kind string, at time.Time) {
	if kind == "" {
		runs.WithLabelValues("success", "").Inc()
		lastSuccess.Set(float64(at.Unix()))
		return
	}
	runs.WithLabelValues("failed", kind).Inc()
}
