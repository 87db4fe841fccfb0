package models

import "time"

// SystemMetrics is a lightweight snapshot of service instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64           `json:"cache_hit_ratio"`
	CacheHits                uint64            `json:"cache_hits"`
	CacheMisses              uint64            `json:"cache_misses"`
	RequestsTotal            uint64            `json:"requests_total"`
	AverageRequestDurationMs float64           `json:"average_request_duration_ms"`
	CertificatesIssued       uint64            `json:"certificates_issued"`
	CertificatesRevoked      uint64            `json:"certificates_revoked"`
	CertificatesExpired      uint64            `json:"certificates_expired"`
	Verifications            map[string]uint64 `json:"verifications"`
	RenderFallbacks          map[string]uint64 `json:"render_fallbacks"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generated_at"`
}
