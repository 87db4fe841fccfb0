package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-certificate-api/pkg/jobs"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/verify/:number", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/verify/:number", http.StatusOK, 40*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordIssued("automatic")
	m.RecordRevoked()
	m.RecordExpired(3)
	m.RecordExpired(0)
	m.RecordVerification(VerificationValid)
	m.RecordVerification(VerificationValid)
	m.RecordVerification(VerificationRevoked)
	m.ObserveRender(time.Second, []string{"qr"})

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 30.0, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(2), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.Equal(t, uint64(1), snap.CertificatesIssued)
	assert.Equal(t, uint64(1), snap.CertificatesRevoked)
	assert.Equal(t, uint64(3), snap.CertificatesExpired)
	assert.Equal(t, map[string]uint64{VerificationValid: 2, VerificationRevoked: 1}, snap.Verifications)
	assert.Equal(t, map[string]uint64{"qr": 1}, snap.RenderFallbacks)
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.RecordIssued("manual")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `certificates_issued_total{mode="manual"} 1`)
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *MetricsService
	m.RecordIssued("manual")
	m.RecordVerification(VerificationValid)
	assert.Empty(t, m.Snapshot().Verifications)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRegisterQueue(t *testing.T) {
	m := NewMetricsService()
	m.RegisterQueue("certificate-prerender", func() jobs.Stats {
		return jobs.Stats{Pending: 2, Processed: 7, Failed: 1}
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `job_queue_pending{queue="certificate-prerender"} 2`)
	assert.Contains(t, body, `job_queue_processed_total{queue="certificate-prerender"} 7`)
	assert.Contains(t, body, `job_queue_dropped_total{queue="certificate-prerender"} 0`)
}
