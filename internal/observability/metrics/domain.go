package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics covers pricing runs, reservation sync and AI usage.
type DomainMetrics struct {
	pricingRuns     *prometheus.CounterVec
	pricingDuration prometheus.Histogram
	datesDecided    prometheus.Counter
	datesSkipped    prometheus.Counter
	datesFailed     prometheus.Counter

	syncRuns     *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec
	pushBatches  *prometheus.CounterVec

	aiCalls        *prometheus.CounterVec
	quotaExceeded  prometheus.Counter
	signalCacheHit *prometheus.CounterVec
}

// NewDomainMetrics registers domain collectors on the shared registry.
func NewDomainMetrics(registry *prometheus.Registry) *DomainMetrics {
	m := &DomainMetrics{
		pricingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nightly",
			Subsystem: "pricing",
			Name:      "runs_total",
			Help:      "Pricing engine runs by outcome.",
		}, []string{"outcome"}),
		pricingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nightly",
			Subsystem: "pricing",
			Name:      "run_duration_seconds",
			Help:      "Full pricing run latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		datesDecided: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nightly",
			Subsystem: "pricing",
			Name:      "dates_decided_total",
			Help:      "Calendar dates that received a price decision.",
		}),
		datesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nightly",
			Subsystem: "pricing",
			Name:      "dates_skipped_locked_total",
			Help:      "Calendar dates skipped due to a locked override.",
		}),
		datesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nightly",
			Subsystem: "pricing",
			Name:      "dates_failed_total",
			Help:      "Calendar dates whose decision failed.",
		}),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nightly",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Reservation sync runs by direction and outcome.",
		}, []string{"direction", "outcome"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nightly",
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Reservation sync latency by direction.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"direction"}),
		pushBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nightly",
			Subsystem: "sync",
			Name:      "push_batches_total",
			Help:      "Price push batches by outcome.",
		}, []string{"outcome"}),
		aiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nightly",
			Subsystem: "ai",
			Name:      "calls_total",
			Help:      "LLM calls by kind and outcome.",
		}, []string{"kind", "outcome"}),
		quotaExceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nightly",
			Subsystem: "ai",
			Name:      "quota_exceeded_total",
			Help:      "Requests rejected by the daily AI quota.",
		}),
		signalCacheHit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nightly",
			Subsystem: "marketsignal",
			Name:      "cache_lookups_total",
			Help:      "Market signal cache lookups by result.",
		}, []string{"result"}),
	}
	registry.MustRegister(
		m.pricingRuns, m.pricingDuration, m.datesDecided, m.datesSkipped, m.datesFailed,
		m.syncRuns, m.syncDuration, m.pushBatches,
		m.aiCalls, m.quotaExceeded, m.signalCacheHit,
	)
	return m
}

// ObservePricingRun records a pricing run and its per-date tallies.
func (m *DomainMetrics) ObservePricingRun(outcome string, elapsed time.Duration, decided, skipped, failed int) {
	m.pricingRuns.WithLabelValues(outcome).Inc()
	m.pricingDuration.Observe(elapsed.Seconds())
	m.datesDecided.Add(float64(decided))
	m.datesSkipped.Add(float64(skipped))
	m.datesFailed.Add(float64(failed))
}

// ObserveSyncRun records a sync run.
func (m *DomainMetrics) ObserveSyncRun(direction, outcome string, elapsed time.Duration) {
	m.syncRuns.WithLabelValues(direction, outcome).Inc()
	m.syncDuration.WithLabelValues(direction).Observe(elapsed.Seconds())
}

// ObservePushBatch records the outcome of a single push batch.
func (m *DomainMetrics) ObservePushBatch(outcome string) {
	m.pushBatches.WithLabelValues(outcome).Inc()
}

// ObserveAICall records an LLM call.
func (m *DomainMetrics) ObserveAICall(kind, outcome string) {
	m.aiCalls.WithLabelValues(kind, outcome).Inc()
}

// ObserveQuotaExceeded records a daily-cap rejection.
func (m *DomainMetrics) ObserveQuotaExceeded() {
	m.quotaExceeded.Inc()
}

// ObserveSignalCache records a market signal cache lookup.
func (m *DomainMetrics) ObserveSignalCache(result string) {
	m.signalCacheHit.WithLabelValues(result).Inc()
}
