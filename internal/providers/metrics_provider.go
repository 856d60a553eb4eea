package providers

import (
	"cftracker/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	IncUpstreamRequests(method, outcome string)
	IncUpstreamRetries(method, reason string)
	IncSyncAttempts(trigger, status string)
	ObserveSyncDuration(duration time.Duration)
	ObserveBatchDuration(duration time.Duration)
	IncRemindersSent()
	SetStudentsTotal(count int)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	persistenceDuration prometheus.Histogram
	upstreamRequests    *prometheus.CounterVec
	upstreamRetries     *prometheus.CounterVec
	syncAttempts        *prometheus.CounterVec
	syncDuration        prometheus.Histogram
	batchDuration       prometheus.Histogram
	remindersSent       prometheus.Counter
	studentsTotal       prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncUpstreamRequests(method, outcome string) {
	m.upstreamRequests.WithLabelValues(method, outcome).Inc()
}

func (m *MetricsProvider) IncUpstreamRetries(method, reason string) {
	m.upstreamRetries.WithLabelValues(method, reason).Inc()
}

func (m *MetricsProvider) IncSyncAttempts(trigger, status string) {
	m.syncAttempts.WithLabelValues(trigger, status).Inc()
}

func (m *MetricsProvider) ObserveSyncDuration(duration time.Duration) {
	m.syncDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) ObserveBatchDuration(duration time.Duration) {
	m.batchDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncRemindersSent() {
	m.remindersSent.Inc()
}

func (m *MetricsProvider) SetStudentsTotal(count int) {
	m.studentsTotal.Set(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}
	return newMetricsProvider(prometheus.DefaultRegisterer)
}

func newMetricsProvider(reg prometheus.Registerer) *MetricsProvider {
	factory := promauto.With(reg)

	return &MetricsProvider{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cftracker_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cftracker_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "cftracker_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "cftracker_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		persistenceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cftracker_persistence_duration_seconds",
			Help:    "Duration of snapshot persistence in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		upstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cftracker_upstream_requests_total",
			Help: "Codeforces API attempts by method and outcome",
		}, []string{"method", "outcome"}),

		upstreamRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cftracker_upstream_retries_total",
			Help: "Codeforces API retries by method and reason",
		}, []string{"method", "reason"}),

		syncAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cftracker_sync_attempts_total",
			Help: "Student sync attempts by trigger and status",
		}, []string{"trigger", "status"}),

		syncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cftracker_sync_duration_seconds",
			Help:    "Duration of a single student sync in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		}),

		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cftracker_batch_duration_seconds",
			Help:    "Duration of a full batch sync in seconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		}),

		remindersSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "cftracker_reminders_sent_total",
			Help: "Total number of inactivity reminders delivered",
		}),

		studentsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cftracker_students_total",
			Help: "Number of tracked students seen by the last batch",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) IncUpstreamRequests(_, _ string)                  {}
func (n *noopMetrics) IncUpstreamRetries(_, _ string)                   {}
func (n *noopMetrics) IncSyncAttempts(_, _ string)                      {}
func (n *noopMetrics) ObserveSyncDuration(_ time.Duration)              {}
func (n *noopMetrics) ObserveBatchDuration(_ time.Duration)             {}
func (n *noopMetrics) IncRemindersSent()                                {}
func (n *noopMetrics) SetStudentsTotal(_ int)                           {}
