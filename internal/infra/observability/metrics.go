package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the expense tracker API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration     *prometheus.HistogramVec
	externalErrors      *prometheus.CounterVec
	cacheHits           *prometheus.CounterVec
	cacheMisses         *prometheus.CounterVec
	transactionsCreated *prometheus.CounterVec
	conversionsServed   prometheus.Counter
	requestsTotal       *prometheus.CounterVec
}

// UsageStats is a snapshot of cumulative usage counters, served by the
// operational stats endpoint.
type UsageStats struct {
	TotalRequests       int64   `json:"totalRequests"`
	ErrorRate           float64 `json:"errorRate"`
	CacheHitRate        float64 `json:"cacheHitRate"`
	TransactionsCreated int64   `json:"transactionsCreated"`
	ConversionsServed   int64   `json:"conversionsServed"`
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
				Name:    "expense_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expense_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expense_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expense_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		transactionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expense_transactions_created_total",
				Help: "Total transactions created, by kind.",
			},
			[]string{"type"},
		),
		conversionsServed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "expense_currency_conversions_total",
				Help: "Total currency conversions served.",
			},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expense_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
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

// IncrTransactionCreated counts a created transaction by kind
// (ONE_TIME or RECURRING).
func (m *Metrics) IncrTransactionCreated(txType string) {
	m.transactionsCreated.WithLabelValues(txType).Inc()
}

// IncrConversion counts a served currency conversion.
func (m *Metrics) IncrConversion() {
	m.conversionsServed.Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// GetUsageSnapshot returns cumulative usage counters for the stats endpoint.
// Request totals are aggregated across every status label value; 4xx and
// 5xx statuses count as errors.
func (m *Metrics) GetUsageSnapshot() *UsageStats {
	totalRequests, errorCount := m.requestTotals()
	cacheHits := getCounterValue(m.cacheHits, "rates")
	cacheMisses := getCounterValue(m.cacheMisses, "rates")
	oneTime := getCounterValue(m.transactionsCreated, "ONE_TIME")
	recurring := getCounterValue(m.transactionsCreated, "RECURRING")

	errorRate := float64(0)
	cacheHitRate := float64(0)
	if totalRequests > 0 {
		errorRate = errorCount / totalRequests
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &UsageStats{
		TotalRequests:       int64(totalRequests),
		ErrorRate:           errorRate,
		CacheHitRate:        cacheHitRate,
		TransactionsCreated: int64(oneTime + recurring),
		ConversionsServed:   int64(getSingleCounterValue(m.conversionsServed)),
	}
}

// requestTotals sums the request counter over every recorded status
// label, classifying 4xx/5xx codes as errors.
func (m *Metrics) requestTotals() (total, errored float64) {
	families, err := m.Registry.Gather()
	if err != nil {
		return 0, 0
	}
	for _, family := range families {
		if family.GetName() != "expense_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			v := metric.GetCounter().GetValue()
			total += v
			for _, label := range metric.GetLabel() {
				if label.GetName() != "status" {
					continue
				}
				if code, convErr := strconv.Atoi(label.GetValue()); convErr == nil && code >= 400 {
					errored += v
				}
			}
		}
	}
	return total, errored
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

func getSingleCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
