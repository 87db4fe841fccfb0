package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/edu-certificate-api/internal/models"
	"github.com/noah-isme/edu-certificate-api/pkg/jobs"
)

// Verification outcomes recorded as metric labels.
const (
	VerificationValid       = "valid"
	VerificationRevoked     = "revoked"
	VerificationExpired     = "expired"
	VerificationNotFound    = "not_found"
	VerificationMalformed   = "malformed"
	VerificationUnavailable = "unavailable"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry            *prometheus.Registry
	handler             http.Handler
	requestDuration     *prometheus.HistogramVec
	requestTotal        *prometheus.CounterVec
	cacheLatency        prometheus.Observer
	cacheWrite          prometheus.Observer
	cacheHitRatio       prometheus.Gauge
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	certificatesIssued  *prometheus.CounterVec
	certificatesRevoked prometheus.Counter
	certificatesExpired prometheus.Counter
	verifications       *prometheus.CounterVec
	renderDuration      prometheus.Observer
	renderFallbacks     *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	issuedCount          uint64
	revokedCount         uint64
	expiredCount         uint64

	mu             sync.Mutex
	verifyCounts   map[string]uint64
	fallbackCounts map[string]uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	certificatesIssued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certificates_issued_total",
		Help: "Certificates issued, by issue mode",
	}, []string{"mode"})

	certificatesRevoked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "certificates_revoked_total",
		Help: "Certificates revoked",
	})

	certificatesExpired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "certificates_expired_total",
		Help: "Certificates moved to expired by the maintenance sweep",
	})

	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certificate_verifications_total",
		Help: "Public verification lookups, by result",
	}, []string{"result"})

	renderDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "certificate_render_duration_seconds",
		Help:    "Time spent rendering certificate documents",
		Buckets: prometheus.DefBuckets,
	})

	renderFallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certificate_render_fallbacks_total",
		Help: "Rendering stages that degraded to a fallback, by stage",
	}, []string{"stage"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		certificatesIssued, certificatesRevoked, certificatesExpired, verifications, renderDuration, renderFallbacks, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:            registry,
		handler:             handler,
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLatency:        cacheLatency,
		cacheWrite:          cacheWrite,
		cacheHitRatio:       cacheHitRatio,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		certificatesIssued:  certificatesIssued,
		certificatesRevoked: certificatesRevoked,
		certificatesExpired: certificatesExpired,
		verifications:       verifications,
		renderDuration:      renderDuration,
		renderFallbacks:     renderFallbacks,
		verifyCounts:        map[string]uint64{},
		fallbackCounts:      map[string]uint64{},
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// RegisterQueue exports a background queue's depth and counters.
func (m *MetricsService) RegisterQueue(name string, stats func() jobs.Stats) {
	if m == nil || stats == nil {
		return
	}
	labels := prometheus.Labels{"queue": name}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "job_queue_pending",
			Help:        "Jobs waiting in the queue buffer",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().Pending) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "job_queue_processed_total",
			Help:        "Jobs handled successfully",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().Processed) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "job_queue_failed_total",
			Help:        "Jobs that exhausted their retries",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().Failed) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "job_queue_dropped_total",
			Help:        "Jobs rejected because the buffer was full",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().Dropped) }),
	)
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordIssued counts a newly issued certificate.
func (m *MetricsService) RecordIssued(mode string) {
	if m == nil {
		return
	}
	m.certificatesIssued.WithLabelValues(mode).Inc()
	atomic.AddUint64(&m.issuedCount, 1)
}

// RecordRevoked counts a revocation.
func (m *MetricsService) RecordRevoked() {
	if m == nil {
		return
	}
	m.certificatesRevoked.Inc()
	atomic.AddUint64(&m.revokedCount, 1)
}

// RecordExpired counts certificates moved to expired.
func (m *MetricsService) RecordExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.certificatesExpired.Add(float64(n))
	atomic.AddUint64(&m.expiredCount, uint64(n))
}

// RecordVerification counts a public verification by result.
func (m *MetricsService) RecordVerification(result string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(result).Inc()
	m.mu.Lock()
	m.verifyCounts[result]++
	m.mu.Unlock()
}

// ObserveRender records render time and any degraded stages.
func (m *MetricsService) ObserveRender(duration time.Duration, fallbackStages []string) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(duration.Seconds())
	if len(fallbackStages) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, stage := range fallbackStages {
		m.renderFallbacks.WithLabelValues(stage).Inc()
		m.fallbackCounts[stage]++
	}
}

// Snapshot returns aggregated metrics suitable for API consumption.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	m.mu.Lock()
	verifications := make(map[string]uint64, len(m.verifyCounts))
	for k, v := range m.verifyCounts {
		verifications[k] = v
	}
	fallbacks := make(map[string]uint64, len(m.fallbackCounts))
	for k, v := range m.fallbackCounts {
		fallbacks[k] = v
	}
	m.mu.Unlock()

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CertificatesIssued:       atomic.LoadUint64(&m.issuedCount),
		CertificatesRevoked:      atomic.LoadUint64(&m.revokedCount),
		CertificatesExpired:      atomic.LoadUint64(&m.expiredCount),
		Verifications:            verifications,
		RenderFallbacks:          fallbacks,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
