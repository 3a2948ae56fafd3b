package task

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes scheduler counters/gauges the way aistore exposes its
// own cluster metrics via prometheus/client_golang — an embedder scrapes
// these to watch task throughput and trap rate without instrumenting its
// own call sites.
type Metrics struct {
	TasksStarted   prometheus.Counter
	TasksResolved  prometheus.Counter
	TasksTrapped   prometheus.Counter
	TasksCancelled prometheus.Counter
	TasksActive    prometheus.Gauge
	WaitsBlocked   prometheus.Counter
}

// NewMetrics registers a fresh Metrics set on reg. Pass
// prometheus.NewRegistry() for an isolated per-Store registry (the
// common case for embedding many Stores in one process), or
// prometheus.DefaultRegisterer to publish on the process-wide registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TasksStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "canon_abi", Subsystem: "scheduler", Name: "tasks_started_total",
			Help: "Tasks that have entered STARTING.",
		}),
		TasksResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "canon_abi", Subsystem: "scheduler", Name: "tasks_resolved_total",
			Help: "Tasks that have reached RESOLVED.",
		}),
		TasksTrapped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "canon_abi", Subsystem: "scheduler", Name: "tasks_trapped_total",
			Help: "Tasks whose user code raised a trap.",
		}),
		TasksCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "canon_abi", Subsystem: "scheduler", Name: "tasks_cancelled_total",
			Help: "Tasks that resolved via a cancellation path.",
		}),
		TasksActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "canon_abi", Subsystem: "scheduler", Name: "tasks_active",
			Help: "Tasks currently between STARTING and RESOLVED.",
		}),
		WaitsBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "canon_abi", Subsystem: "scheduler", Name: "waits_blocked_total",
			Help: "waitable_set_wait calls that suspended the caller.",
		}),
	}
	reg.MustRegister(m.TasksStarted, m.TasksResolved, m.TasksTrapped, m.TasksCancelled, m.TasksActive, m.WaitsBlocked)
	return m
}
