package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerMetrics covers the periodic job runner.
type SchedulerMetrics struct {
	jobRuns     *prometheus.CounterVec
	jobErrors   *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	loopLag     prometheus.Histogram
}

// NewSchedulerMetrics registers scheduler collectors on the shared registry.
func NewSchedulerMetrics(registry *prometheus.Registry) *SchedulerMetrics {
	m := &SchedulerMetrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nightly",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduler job executions by job name.",
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nightly",
			Subsystem: "scheduler",
			Name:      "job_errors_total",
			Help:      "Scheduler job failures by job name.",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nightly",
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Scheduler job latency by job name.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"job"}),
		loopLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nightly",
			Subsystem: "scheduler",
			Name:      "loop_lag_seconds",
			Help:      "How far behind schedule the run loop started.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
	registry.MustRegister(m.jobRuns, m.jobErrors, m.jobDuration, m.loopLag)
	return m
}

// ObserveJob records one job execution.
func (m *SchedulerMetrics) ObserveJob(job string, elapsed time.Duration, err error) {
	m.jobRuns.WithLabelValues(job).Inc()
	m.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
	if err != nil {
		m.jobErrors.WithLabelValues(job).Inc()
	}
}

// ObserveLoopLag records how late a scheduled run started.
func (m *SchedulerMetrics) ObserveLoopLag(lag time.Duration) {
	m.loopLag.Observe(lag.Seconds())
}
