// Package metrics exposes the pool's Prometheus instrumentation: counters
// for scheduled/completed/panicked tasks and periodic runs, a latency
// histogram, and gauges for pending/in-flight task counts.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric the pool reports. Construct exactly one per
// process with NewCollector; a second call will panic on duplicate
// registration.
type Collector struct {
	tasksScheduled  prometheus.Counter
	tasksDispatched prometheus.Counter
	tasksCompleted  prometheus.Counter
	tasksPanicked   prometheus.Counter
	periodicRuns    prometheus.Counter
	periodicErrors  prometheus.Counter

	taskLatency prometheus.Histogram

	tasksPending  prometheus.Gauge
	tasksInFlight prometheus.Gauge
}

// NewCollector creates and registers a new metrics collector.
func NewCollector() *Collector {
	c := &Collector{
		tasksScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fastpool_tasks_scheduled_total",
			Help: "Total number of tasks scheduled onto the pool.",
		}),
		tasksDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fastpool_tasks_dispatched_total",
			Help: "Total number of tasks popped off the queue by a worker.",
		}),
		tasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fastpool_tasks_completed_total",
			Help: "Total number of tasks that completed without panicking.",
		}),
		tasksPanicked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fastpool_tasks_panicked_total",
			Help: "Total number of tasks whose closure or future panicked.",
		}),
		periodicRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fastpool_periodic_runs_total",
			Help: "Total number of periodic task invocations.",
		}),
		periodicErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fastpool_periodic_errors_total",
			Help: "Total number of periodic task invocations that returned an error.",
		}),
		taskLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fastpool_task_latency_seconds",
			Help:    "Latency from task schedule to completion, in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		tasksPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fastpool_tasks_pending",
			Help: "Number of tasks currently sitting in the FIFO queue.",
		}),
		tasksInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fastpool_tasks_in_flight",
			Help: "Number of tasks currently being executed by a worker.",
		}),
	}

	prometheus.MustRegister(
		c.tasksScheduled,
		c.tasksDispatched,
		c.tasksCompleted,
		c.tasksPanicked,
		c.periodicRuns,
		c.periodicErrors,
		c.taskLatency,
		c.tasksPending,
		c.tasksInFlight,
	)

	return c
}

// RecordScheduled records a task being appended to the queue.
func (c *Collector) RecordScheduled() {
	c.tasksScheduled.Inc()
}

// RecordDispatched records a worker popping a task off the queue.
func (c *Collector) RecordDispatched() {
	c.tasksDispatched.Inc()
}

// RecordCompleted records a task completing without panicking, along with
// its schedule-to-completion latency in seconds.
func (c *Collector) RecordCompleted(latencySeconds float64) {
	c.tasksCompleted.Inc()
	c.taskLatency.Observe(latencySeconds)
}

// RecordPanicked records a task whose closure or future panicked.
func (c *Collector) RecordPanicked() {
	c.tasksPanicked.Inc()
}

// RecordPeriodicRun records one periodic task invocation, and whether it
// returned an error.
func (c *Collector) RecordPeriodicRun(failed bool) {
	c.periodicRuns.Inc()
	if failed {
		c.periodicErrors.Inc()
	}
}

// UpdateQueueStats sets the pending and in-flight gauges to a fresh
// snapshot.
func (c *Collector) UpdateQueueStats(pending, inFlight int) {
	c.tasksPending.Set(float64(pending))
	c.tasksInFlight.Set(float64(inFlight))
}

// StartServer serves /metrics on the given port until the process exits or
// the HTTP server errors.
//
// Parameters:
//   - port: HTTP server port
//
// Returns:
//   - error: non-nil if the server fails to start or stops unexpectedly
func StartServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
