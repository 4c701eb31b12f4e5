// Package prompush pushes csvclean metrics to a Prometheus Pushgateway.
//
// Step counts and durations are labelled by step and status. Row counts are
// labelled by kind. The Pushgateway grouping key carries the job name, so
// the per-call "job" label is not repeated on the collectors.
package prompush

import (
	"fmt"
	"sync"

	"csvclean/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultJob groups pushes when no job name is given.
const DefaultJob = "csvclean"

// stepBuckets covers single-action runs on small files up to exports of
// large tables.
var stepBuckets = prometheus.ExponentialBuckets(0.001, 4, 10)

// Backend is a Prometheus Pushgateway metrics backend. It is safe for
// concurrent use; Flush may be called more than once and each call replaces
// the previous push for the job group.
type Backend struct {
	pusher *push.Pusher
	reg    *prometheus.Registry

	steps     *prometheus.CounterVec
	durations *prometheus.HistogramVec
	rows      *prometheus.CounterVec
	batches   prometheus.Counter

	mu      sync.Mutex
	flushes int
}

// NewBackend registers the csvclean collectors on a private registry that
// Flush pushes to gatewayURL under job.
func NewBackend(job, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if job == "" {
		job = DefaultJob
	}

	b := &Backend{
		reg: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Plan actions and pipeline stages executed, by step and status.",
		}, []string{"step", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metrics.StepDuration,
			Help:    "Step duration in seconds, by step and status.",
			Buckets: stepBuckets,
		}, []string{"step", "status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Row counts by kind (read, written, deduplicated, rejected, inserted).",
		}, []string{"kind"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metrics.BatchesTotal,
			Help: "Export batches written to the database.",
		}),
	}

	for name, c := range map[string]prometheus.Collector{
		"steps":     b.steps,
		"durations": b.durations,
		"rows":      b.rows,
		"batches":   b.batches,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	b.pusher = push.New(gatewayURL, job).Gatherer(b.reg)
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta < 0 {
		// Prometheus counters panic on negative deltas.
		return
	}
	switch name {
	case metrics.StepTotal:
		b.steps.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case metrics.RowsTotal:
		b.rows.WithLabelValues(labels["kind"]).Add(delta)
	case metrics.BatchesTotal:
		b.batches.Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration {
		return
	}
	b.durations.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush replaces the job group on the Pushgateway with the current
// registry contents.
func (b *Backend) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.pusher.Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	b.flushes++
	return nil
}

// Gatherer exposes the registry, for tests and for serving /metrics.
func (b *Backend) Gatherer() prometheus.Gatherer { return b.reg }
