// Package metrics holds the Prometheus collectors of the status page server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "statuspage"

// Task outcomes recorded by the replication queue.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeDropped = "dropped"
)

// Metrics holds every collector. Build one per registry with New.
type Metrics struct {
	// Replication metrics
	QueueDepth       prometheus.Gauge
	TasksTotal       *prometheus.CounterVec
	TaskDuration     *prometheus.HistogramVec
	BatchCommits     prometheus.Counter
	DocumentsWritten *prometheus.CounterVec

	// Hydration metrics
	HydrationsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "replication",
			Name:      "queue_depth",
			Help:      "Number of replication tasks waiting in the queue",
		}),
		TasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replication",
			Name:      "tasks_total",
			Help:      "Replication tasks by name and outcome",
		}, []string{"task", "outcome"}),
		TaskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "replication",
			Name:      "task_duration_seconds",
			Help:      "Histogram of replication task durations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),
		BatchCommits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replication",
			Name:      "batch_commits_total",
			Help:      "Batches committed to the remote store",
		}),
		DocumentsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replication",
			Name:      "documents_total",
			Help:      "Remote document mutations by collection and operation",
		}, []string{"collection", "op"}),
		HydrationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hydration",
			Name:      "runs_total",
			Help:      "Cold start hydration runs by outcome",
		}, []string{"outcome"}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern and status code",
		}, []string{"route", "code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request durations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// NewUnregistered creates collectors that are not exported anywhere.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
