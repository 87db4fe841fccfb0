package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-certificate-api/internal/dto"
	"github.com/noah-isme/edu-certificate-api/internal/models"
	appErrors "github.com/noah-isme/edu-certificate-api/pkg/errors"
)

const sampleNumber = "AGRO-1756572958564-FO4KBD"

type cacheRepoStub struct {
	values  map[string]interface{}
	deleted []string
	getErr  error
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{values: map[string]interface{}{}}
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	if s.getErr != nil {
		return s.getErr
	}
	value, ok := s.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	switch d := dest.(type) {
	case *dto.VerifyCertificateResponse:
		*d = value.(dto.VerifyCertificateResponse)
	case *models.CertificateStats:
		*d = *value.(*models.CertificateStats)
	}
	return nil
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.values[key] = value
	return nil
}

func (s *cacheRepoStub) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
		s.deleted = append(s.deleted, key)
	}
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.deleted = append(s.deleted, pattern)
	return nil
}

func newVerificationFixture(certs ...*models.Certificate) (*VerificationService, *memCertificateRepo, *cacheRepoStub) {
	repo := newMemCertificateRepo()
	for _, c := range certs {
		repo.items[c.ID] = c
	}
	cacheRepo := newCacheRepoStub()
	metrics := NewMetricsService()
	cache := NewCacheService(cacheRepo, metrics, time.Minute, nil, true)
	return NewVerificationService(repo, cache, metrics, time.Minute, nil), repo, cacheRepo
}

func TestVerifyMalformedNumber(t *testing.T) {
	svc, _, _ := newVerificationFixture()

	resp := svc.Verify(context.Background(), "BOGUS-000-000")
	assert.False(t, resp.Valid)
	assert.Equal(t, verifyMsgMalformed, resp.Error)
	assert.Nil(t, resp.Certificate)

	resp = svc.Verify(context.Background(), "   ")
	assert.False(t, resp.Valid)
	assert.Equal(t, verifyMsgRequired, resp.Error)
}

func TestVerifyValidCertificateIsCached(t *testing.T) {
	cert := &models.Certificate{
		ID: "c1", CertificateNumber: sampleNumber, StudentName: "Jane Doe", StudentEmail: "jane@example.com",
		CourseTitle: "Agronomy", FinalGrade: 91, Status: models.CertificateStatusIssued,
	}
	svc, repo, cacheRepo := newVerificationFixture(cert)

	resp := svc.Verify(context.Background(), " agro-1756572958564-fo4kbd ")
	require.True(t, resp.Valid)
	assert.Empty(t, resp.Error)
	assert.Equal(t, "Jane Doe", resp.Certificate.StudentName)
	assert.Contains(t, cacheRepo.values, verifyCachePrefix+sampleNumber)

	repo.findErr = errors.New("database down")
	again := svc.Verify(context.Background(), sampleNumber)
	assert.True(t, again.Valid)

	snapshot := svc.metrics.Snapshot()
	assert.Equal(t, uint64(2), snapshot.Verifications[VerificationValid])
	assert.Equal(t, uint64(1), snapshot.CacheHits)
}

func TestVerifyRevokedAndExpired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	revoked := &models.Certificate{ID: "r", CertificateNumber: "CERT-1700000000000-AAAAAA", Status: models.CertificateStatusRevoked}
	expired := &models.Certificate{ID: "e", CertificateNumber: "CERT-1700000000000-BBBBBB", Status: models.CertificateStatusExpired}
	lapsed := &models.Certificate{ID: "l", CertificateNumber: "CERT-1700000000000-CCCCCC", Status: models.CertificateStatusActive, ExpiresAt: &past}
	svc, _, _ := newVerificationFixture(revoked, expired, lapsed)

	resp := svc.Verify(context.Background(), revoked.CertificateNumber)
	assert.False(t, resp.Valid)
	assert.Equal(t, verifyMsgRevoked, resp.Error)
	require.NotNil(t, resp.Certificate)

	resp = svc.Verify(context.Background(), expired.CertificateNumber)
	assert.False(t, resp.Valid)
	assert.Equal(t, verifyMsgExpired, resp.Error)

	resp = svc.Verify(context.Background(), lapsed.CertificateNumber)
	assert.False(t, resp.Valid)
	assert.Equal(t, verifyMsgExpired, resp.Error)
	assert.Equal(t, models.CertificateStatusExpired, resp.Certificate.Status)
}

func TestVerifyNotFoundAndUpstreamFailure(t *testing.T) {
	svc, repo, cacheRepo := newVerificationFixture()

	resp := svc.Verify(context.Background(), sampleNumber)
	assert.False(t, resp.Valid)
	assert.Equal(t, verifyMsgNotFound, resp.Error)

	repo.findErr = errors.New("pq: connection refused")
	resp = svc.Verify(context.Background(), sampleNumber)
	assert.False(t, resp.Valid)
	assert.Equal(t, verifyMsgUnavailable, resp.Error)
	assert.NotContains(t, resp.Error, "pq")
	assert.Empty(t, cacheRepo.values)
}

func TestVerifyInvalidate(t *testing.T) {
	svc, _, cacheRepo := newVerificationFixture()
	svc.Invalidate(context.Background(), "agro-1756572958564-fo4kbd")
	assert.Equal(t, []string{verifyCachePrefix + sampleNumber}, cacheRepo.deleted)
}
