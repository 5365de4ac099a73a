package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the assistant.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	retrievalDuration  *prometheus.HistogramVec
	remoteCallDuration *prometheus.HistogramVec
	retrievalOutcomes  *prometheus.CounterVec
	externalErrors     *prometheus.CounterVec
	repliesPosted      *prometheus.CounterVec
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
}

// RetrievalSnapshot is a point-in-time view of retrieval counters, served by
// GET /v1/metrics/retrievals.
type RetrievalSnapshot struct {
	Success           int64 `json:"success"`
	UserNotFound      int64 `json:"user_not_found"`
	RemoteUnavailable int64 `json:"remote_unavailable"`
	MalformedData     int64 `json:"malformed_remote_data"`
	Total             int64 `json:"total"`
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		retrievalDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "timeoff_retrieval_duration_seconds",
				Help:    "End-to-end duration of balance retrievals.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		remoteCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "timeoff_remote_call_duration_seconds",
				Help:    "Duration of accrual service calls by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		retrievalOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timeoff_retrieval_outcomes_total",
				Help: "Delivered retrieval outcomes by status.",
			},
			[]string{"status"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timeoff_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		repliesPosted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timeoff_replies_posted_total",
				Help: "Replies posted to response destinations.",
			},
			[]string{"result"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timeoff_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timeoff_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordRetrievalDuration records the end-to-end duration of a retrieval.
func (m *Metrics) RecordRetrievalDuration(status string, d time.Duration) {
	m.retrievalDuration.WithLabelValues(status).Observe(d.Seconds())
}

// RecordRemoteCallDuration records one accrual service round trip.
func (m *Metrics) RecordRemoteCallDuration(operation string, d time.Duration) {
	m.remoteCallDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrRetrievalOutcome counts one delivered outcome.
func (m *Metrics) IncrRetrievalOutcome(status string) {
	m.retrievalOutcomes.WithLabelValues(status).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrReplyPosted counts a reply post attempt result ("ok" or "error").
func (m *Metrics) IncrReplyPosted(result string) {
	m.repliesPosted.WithLabelValues(result).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// GetRetrievalSnapshot returns a snapshot of retrieval outcome counters
// suitable for the GET /v1/metrics/retrievals endpoint.
func (m *Metrics) GetRetrievalSnapshot() *RetrievalSnapshot {
	s := &RetrievalSnapshot{
		Success:           getCounterValue(m.retrievalOutcomes, "success"),
		UserNotFound:      getCounterValue(m.retrievalOutcomes, "user_not_found"),
		RemoteUnavailable: getCounterValue(m.retrievalOutcomes, "remote_unavailable"),
		MalformedData:     getCounterValue(m.retrievalOutcomes, "malformed_remote_data"),
	}
	s.Total = s.Success + s.UserNotFound + s.RemoteUnavailable + s.MalformedData
	return s
}

// getCounterValue reads the current value of a labeled counter.
func getCounterValue(vec *prometheus.CounterVec, labels ...string) int64 {
	c, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0
	}
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		return 0
	}
	return int64(metric.GetCounter().GetValue())
}
