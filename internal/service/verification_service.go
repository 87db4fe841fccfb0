package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/edu-certificate-api/internal/dto"
	"github.com/noah-isme/edu-certificate-api/internal/models"
)

// Public verification messages.
const (
	verifyMsgRequired    = "certificate number is required"
	verifyMsgMalformed   = "certificate number format is invalid"
	verifyMsgNotFound    = "certificate not found"
	verifyMsgRevoked     = "certificate has been revoked"
	verifyMsgExpired     = "certificate has expired"
	verifyMsgUnavailable = "verification service temporarily unavailable"
)

type certificateNumberFinder interface {
	FindByNumber(ctx context.Context, number string) (*models.Certificate, error)
}

// VerificationService resolves public certificate numbers. It never returns errors; every failure
// is a valid=false result with a displayable reason.
type VerificationService struct {
	repo    certificateNumberFinder
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	ttl     time.Duration
	now     func() time.Time
}

// NewVerificationService constructs the verifier.
func NewVerificationService(repo certificateNumberFinder, cache *CacheService, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &VerificationService{repo: repo, cache: cache, metrics: metrics, logger: logger, ttl: ttl, now: time.Now}
}

// Verify checks the number's shape, then looks it up. Cached results are re-checked for expiry.
func (s *VerificationService) Verify(ctx context.Context, raw string) dto.VerifyCertificateResponse {
	number := NormalizeCertificateNumber(raw)
	if number == "" {
		s.metrics.RecordVerification(VerificationMalformed)
		return dto.VerifyCertificateResponse{Valid: false, Error: verifyMsgRequired}
	}
	if !ValidCertificateNumber(number) {
		s.metrics.RecordVerification(VerificationMalformed)
		return dto.VerifyCertificateResponse{Valid: false, Error: verifyMsgMalformed}
	}

	key := verifyCachePrefix + number
	var cached dto.VerifyCertificateResponse
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit && cached.Certificate != nil {
		resp, label := s.judge(cached.Certificate)
		s.metrics.RecordVerification(label)
		return resp
	}

	cert, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordVerification(VerificationNotFound)
			return dto.VerifyCertificateResponse{Valid: false, Error: verifyMsgNotFound}
		}
		s.logger.Error("certificate verification lookup failed", zap.String("certificate_number", number), zap.Error(err))
		s.metrics.RecordVerification(VerificationUnavailable)
		return dto.VerifyCertificateResponse{Valid: false, Error: verifyMsgUnavailable}
	}

	resp, label := s.judge(cert.PublicView())
	_ = s.cache.Set(ctx, key, resp, s.ttl)
	s.metrics.RecordVerification(label)
	return resp
}

// Invalidate drops the cached result for number after a state change.
func (s *VerificationService) Invalidate(ctx context.Context, number string) {
	if number == "" {
		return
	}
	_ = s.cache.Delete(ctx, verifyCachePrefix+NormalizeCertificateNumber(number))
}

func (s *VerificationService) judge(view *models.PublicCertificateView) (dto.VerifyCertificateResponse, string) {
	resp := dto.VerifyCertificateResponse{Certificate: view}
	switch {
	case view.Status == models.CertificateStatusRevoked:
		resp.Error = verifyMsgRevoked
		return resp, VerificationRevoked
	case view.Status == models.CertificateStatusExpired:
		resp.Error = verifyMsgExpired
		return resp, VerificationExpired
	case view.ExpiresAt != nil && !s.now().Before(*view.ExpiresAt):
		resp.Certificate.Status = models.CertificateStatusExpired
		resp.Error = verifyMsgExpired
		return resp, VerificationExpired
	}
	resp.Valid = true
	return resp, VerificationValid
}
