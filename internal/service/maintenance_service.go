package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-certificate-api/internal/models"
)

const defaultMaintenanceSchedule = "@every 1h"

type certificateExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) ([]models.Certificate, error)
}

type artifactCleaner interface {
	CleanupArtifacts(ctx context.Context) (int, error)
}

type auditWriter interface {
	Create(ctx context.Context, event *models.AuditEvent) error
}

// MaintenanceReport summarises one sweep.
type MaintenanceReport struct {
	Expired          int `json:"expired"`
	ArtifactsRemoved int `json:"artifacts_removed"`
}

// MaintenanceService runs the periodic expiry and artifact cleanup sweep.
type MaintenanceService struct {
	repo         certificateExpirer
	artifacts    artifactCleaner
	verification verificationInvalidator
	audit        auditWriter
	cache        *CacheService
	metrics      *MetricsService
	logger       *zap.Logger
	schedule     string
	now          func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewMaintenanceService constructs the sweeper. artifacts, verification and audit are optional.
func NewMaintenanceService(repo certificateExpirer, artifacts artifactCleaner, verification verificationInvalidator, audit auditWriter, cache *CacheService, metrics *MetricsService, schedule string, logger *zap.Logger) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = defaultMaintenanceSchedule
	}
	return &MaintenanceService{
		repo:         repo,
		artifacts:    artifacts,
		verification: verification,
		audit:        audit,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
		schedule:     schedule,
		now:          time.Now,
	}
}

// Start registers the sweep on the cron schedule.
func (s *MaintenanceService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("certificate maintenance failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule maintenance %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("certificate maintenance scheduled", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *MaintenanceService) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// RunOnce expires due certificates and removes stale artifacts.
func (s *MaintenanceService) RunOnce(ctx context.Context) (MaintenanceReport, error) {
	var report MaintenanceReport

	expired, err := s.repo.ExpireDue(ctx, s.now().UTC())
	if err != nil {
		return report, fmt.Errorf("expire certificates: %w", err)
	}
	report.Expired = len(expired)
	for i := range expired {
		cert := expired[i]
		if s.verification != nil {
			s.verification.Invalidate(ctx, cert.CertificateNumber)
		}
		if s.audit != nil {
			event := &models.AuditEvent{
				Resource:   models.AuditResourceCertificate,
				ResourceID: &cert.ID,
				Action:     models.AuditActionExpire,
				Payload:    models.Metadata{"certificate_number": cert.CertificateNumber},
			}
			if err := s.audit.Create(ctx, event); err != nil {
				s.logger.Warn("failed to write audit event", zap.String("certificate_id", cert.ID), zap.Error(err))
			}
		}
	}
	if report.Expired > 0 {
		s.metrics.RecordExpired(report.Expired)
		_ = s.cache.Invalidate(ctx, statsCachePrefix+"*")
	}

	if s.artifacts != nil {
		removed, err := s.artifacts.CleanupArtifacts(ctx)
		if err != nil {
			s.logger.Warn("artifact cleanup failed", zap.Error(err))
		}
		report.ArtifactsRemoved = removed
	}

	s.logger.Info("certificate maintenance completed",
		zap.Int("expired", report.Expired),
		zap.Int("artifacts_removed", report.ArtifactsRemoved),
	)
	return report, nil
}
