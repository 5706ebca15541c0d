package observability

import (
	"time"

	"github.com/aequasi/expensify-to-excel/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the report service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	receiptOutcomes *prometheus.CounterVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	reportsTotal    *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "expensify_request_duration_seconds",
				Help:    "Duration of pipeline operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		receiptOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expensify_receipt_outcomes_total",
				Help: "Receipt tasks by terminal outcome.",
			},
			[]string{"kind"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expensify_external_errors_total",
				Help: "Total errors from receipt hosts.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expensify_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expensify_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		reportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expensify_reports_total",
				Help: "Total report requests processed.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrReceiptOutcome counts one terminal receipt outcome.
func (m *Metrics) IncrReceiptOutcome(kind domain.OutcomeKind) {
	m.receiptOutcomes.WithLabelValues(kind.String()).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrReport increments the report counter with a status label.
func (m *Metrics) IncrReport(status string) {
	m.reportsTotal.WithLabelValues(status).Inc()
}

// GetReceiptSnapshot returns a snapshot of receipt metrics suitable for the
// GET /v1/metrics/receipts endpoint.
func (m *Metrics) GetReceiptSnapshot() *domain.ReceiptMetrics {
	downloaded := getCounterValue(m.receiptOutcomes, domain.OutcomeDownloaded.String())
	placeholders := getCounterValue(m.receiptOutcomes, domain.OutcomePlaceholder.String())
	skipped := getCounterValue(m.receiptOutcomes, domain.OutcomeSkipped.String())
	cacheHits := getCounterValue(m.cacheHits, "descriptor")
	cacheMisses := getCounterValue(m.cacheMisses, "descriptor")

	skipRate := float64(0)
	cacheHitRate := float64(0)
	if total := downloaded + placeholders + skipped; total > 0 {
		skipRate = skipped / total
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.ReceiptMetrics{
		ReportsGenerated: int64(getCounterValue(m.reportsTotal, "success")),
		ReportsFailed:    int64(getCounterValue(m.reportsTotal, "error")),
		Downloaded:       int64(downloaded),
		Placeholders:     int64(placeholders),
		Skipped:          int64(skipped),
		SkipRate:         skipRate,
		CacheHitRate:     cacheHitRate,
		Period:           "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
