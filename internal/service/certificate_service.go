package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-certificate-api/internal/dto"
	"github.com/noah-isme/edu-certificate-api/internal/models"
	"github.com/noah-isme/edu-certificate-api/internal/repository"
	appErrors "github.com/noah-isme/edu-certificate-api/pkg/errors"
	"github.com/noah-isme/edu-certificate-api/pkg/export"
)

const maxMintAttempts = 3

type certificateRepository interface {
	Create(ctx context.Context, cert *models.Certificate) error
	FindByID(ctx context.Context, id string) (*models.Certificate, error)
	FindOutstanding(ctx context.Context, studentID, courseID string) (*models.Certificate, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Certificate, error)
	List(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, int, error)
	Revoke(ctx context.Context, id, reason string, actorID *string, at time.Time) (*models.Certificate, error)
	Stats(ctx context.Context, filter models.StatsFilter, now time.Time) (*models.CertificateStats, error)
}

type eligibilityEvaluator interface {
	Evaluate(ctx context.Context, studentID, courseID string) (*models.EligibilityResult, error)
}

type templateResolver interface {
	Resolve(ctx context.Context, id *string) (*models.Template, error)
}

type auditStore interface {
	Create(ctx context.Context, event *models.AuditEvent) error
	ListByResource(ctx context.Context, resource, resourceID string) ([]models.AuditEvent, error)
}

type artifactManager interface {
	SchedulePrerender(ctx context.Context, certificateID string)
	DiscardArtifact(ctx context.Context, certificateID string)
}

type verificationInvalidator interface {
	Invalidate(ctx context.Context, number string)
}

// CertificateServiceConfig governs issuance defaults.
type CertificateServiceConfig struct {
	NumberPrefix  string
	Validity      time.Duration
	StatsCacheTTL time.Duration
}

// CertificateServiceParams groups constructor dependencies.
type CertificateServiceParams struct {
	Repo         certificateRepository
	Learning     learningReader
	Eligibility  eligibilityEvaluator
	Templates    templateResolver
	Audit        auditStore
	Artifacts    artifactManager
	Verification verificationInvalidator
	Cache        *CacheService
	Metrics      *MetricsService
	Validator    *validator.Validate
	Logger       *zap.Logger
	Config       CertificateServiceConfig
}

// CertificateService drives the issuance and revocation state machine.
type CertificateService struct {
	repo         certificateRepository
	learning     learningReader
	eligibility  eligibilityEvaluator
	templates    templateResolver
	audit        auditStore
	artifacts    artifactManager
	verification verificationInvalidator
	cache        *CacheService
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	minter       *NumberMinter
	csv          *export.CSVExporter
	now          func() time.Time
	cfg          CertificateServiceConfig
}

// NewCertificateService constructs the issuer.
func NewCertificateService(params CertificateServiceParams) *CertificateService {
	cfg := params.Config
	if cfg.StatsCacheTTL <= 0 {
		cfg.StatsCacheTTL = time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &CertificateService{
		repo:         params.Repo,
		learning:     params.Learning,
		eligibility:  params.Eligibility,
		templates:    params.Templates,
		audit:        params.Audit,
		artifacts:    params.Artifacts,
		verification: params.Verification,
		cache:        params.Cache,
		metrics:      params.Metrics,
		validator:    validate,
		logger:       logger,
		minter:       NewNumberMinter(cfg.NumberPrefix),
		csv:          export.NewCSVExporter(),
		now:          time.Now,
		cfg:          cfg,
	}
}

// Generate issues a certificate gated by eligibility. An existing live certificate is returned unchanged.
func (s *CertificateService) Generate(ctx context.Context, req dto.GenerateCertificateRequest, actor *models.JWTClaims) (*dto.CertificateResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid certificate request")
	}
	if !actor.Role.Privileged() {
		if actor.UserID != req.StudentID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only request their own certificates")
		}
		if req.Override {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "override issuance requires instructor or admin role")
		}
	}

	result, err := s.eligibility.Evaluate(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, err
	}
	if result.ExistingCertificate != nil {
		return &dto.CertificateResult{Success: true, Created: false, Certificate: result.ExistingCertificate}, nil
	}

	mode := models.IssueModeManual
	switch {
	case !result.IsEligible && req.Override:
		mode = models.IssueModeOverride
	case !result.IsEligible:
		return nil, appErrors.Clone(appErrors.ErrIneligible, ineligibleMessage(result.Checks))
	case req.Automatic:
		mode = models.IssueModeAutomatic
	}

	student, course, err := s.loadSnapshot(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.templates.Resolve(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}

	issuedAt := s.now().UTC()
	cert := &models.Certificate{
		StudentID:      student.ID,
		CourseID:       course.ID,
		TemplateID:     templateID(tpl),
		StudentName:    student.FullName,
		StudentEmail:   student.Email,
		CourseTitle:    course.Title,
		CourseCategory: course.Category,
		CourseLevel:    course.Level,
		DurationHours:  course.DurationHours,
		InstructorName: course.InstructorName,
		FinalGrade:     result.OverallGrade,
		IssuedAt:       issuedAt,
		ExpiresAt:      s.expiry(issuedAt, 0),
		IssuedBy:       &actor.UserID,
		Metadata:       models.Metadata{models.MetadataIssueMode: mode},
	}
	if mode == models.IssueModeOverride {
		cert.Metadata["eligibility"] = result.Checks
	}

	return s.persist(ctx, cert, models.AuditActionGenerate, mode, actor)
}

// Issue creates a certificate from explicit data without eligibility gating. Privileged callers only.
func (s *CertificateService) Issue(ctx context.Context, req dto.IssueCertificateRequest, actor *models.JWTClaims) (*dto.CertificateResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "direct issuance requires instructor or admin role")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid certificate request")
	}

	existing, err := s.repo.FindOutstanding(ctx, req.StudentID, req.CourseID)
	switch {
	case err == nil:
		return &dto.CertificateResult{Success: true, Created: false, Certificate: existing}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Upstream(err, "failed to load existing certificate")
	}

	student, course, err := s.loadSnapshot(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.templates.Resolve(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}

	issuedAt := s.now().UTC()
	if req.IssuedAt != nil {
		issuedAt = req.IssuedAt.UTC()
	}
	metadata := models.Metadata{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata[models.MetadataIssueMode] = models.IssueModeDirect

	cert := &models.Certificate{
		StudentID:      student.ID,
		CourseID:       course.ID,
		TemplateID:     templateID(tpl),
		StudentName:    firstNonEmpty(req.StudentName, student.FullName),
		StudentEmail:   firstNonEmpty(req.StudentEmail, student.Email),
		CourseTitle:    firstNonEmpty(req.CourseTitle, course.Title),
		CourseCategory: course.Category,
		CourseLevel:    course.Level,
		DurationHours:  course.DurationHours,
		InstructorName: firstNonEmpty(req.InstructorName, course.InstructorName),
		FinalGrade:     round2(req.FinalGrade),
		IssuedAt:       issuedAt,
		ExpiresAt:      s.expiry(issuedAt, req.ValidForDays),
		IssuedBy:       &actor.UserID,
		Metadata:       metadata,
	}
	return s.persist(ctx, cert, models.AuditActionIssue, models.IssueModeDirect, actor)
}

// Revoke terminally invalidates a live certificate. The record is kept for audit.
func (s *CertificateService) Revoke(ctx context.Context, id string, req dto.RevokeCertificateRequest, actor *models.JWTClaims) (*models.Certificate, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "revocation requires instructor or admin role")
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "revocation reason is required")
	}

	cert, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cert.Status.Revocable() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("certificate is already %s", cert.Status))
	}

	revoked, err := s.repo.Revoke(ctx, cert.ID, req.Reason, &actor.UserID, s.now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "certificate is no longer revocable")
		}
		s.logger.Error("failed to revoke certificate", zap.String("certificate_id", cert.ID), zap.Error(err))
		return nil, appErrors.Upstream(err, "failed to revoke certificate")
	}

	s.metrics.RecordRevoked()
	s.recordAudit(ctx, revoked.ID, models.AuditActionRevoke, &actor.UserID, models.Metadata{
		"certificate_number":  revoked.CertificateNumber,
		models.MetadataReason: req.Reason,
	})
	if s.verification != nil {
		s.verification.Invalidate(ctx, revoked.CertificateNumber)
	}
	if s.artifacts != nil {
		s.artifacts.DiscardArtifact(ctx, revoked.ID)
	}
	s.invalidateStats(ctx)
	s.logger.Info("certificate revoked", zap.String("certificate_id", revoked.ID), zap.String("actor_id", actor.UserID))
	return revoked, nil
}

// Get returns a certificate visible to the actor.
func (s *CertificateService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Certificate, error) {
	cert, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(cert, actor); err != nil {
		return nil, err
	}
	return cert, nil
}

// ListByStudent returns every certificate a student holds, newest first.
func (s *CertificateService) ListByStudent(ctx context.Context, studentID string, actor *models.JWTClaims) ([]models.Certificate, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.Privileged() && actor.UserID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only list their own certificates")
	}
	certs, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to load certificates")
	}
	if certs == nil {
		certs = []models.Certificate{}
	}
	return certs, nil
}

// ListByCourse returns a page of a course's certificates.
func (s *CertificateService) ListByCourse(ctx context.Context, courseID string, status string, page, pageSize int) ([]models.Certificate, *models.Pagination, error) {
	filter := models.CertificateFilter{CourseID: courseID, Page: page, PageSize: pageSize}
	if status != "" {
		parsed, err := models.ParseCertificateStatus(status)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		filter.Status = parsed
	}
	certs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Upstream(err, "failed to load certificates")
	}
	if certs == nil {
		certs = []models.Certificate{}
	}
	page, pageSize = pageDefaults(page, pageSize)
	return certs, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Stats aggregates issuance metrics, served from cache when possible. The bool reports a cache hit.
func (s *CertificateService) Stats(ctx context.Context, filter models.StatsFilter) (*models.CertificateStats, bool, error) {
	key := statsCacheKey(filter)
	var cached models.CertificateStats
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}
	stats, err := s.repo.Stats(ctx, filter, s.now().UTC())
	if err != nil {
		return nil, false, appErrors.Upstream(err, "failed to load certificate statistics")
	}
	_ = s.cache.Set(ctx, key, stats, s.cfg.StatsCacheTTL)
	return stats, false, nil
}

// ExportCourseRoster renders every certificate of a course as CSV.
func (s *CertificateService) ExportCourseRoster(ctx context.Context, courseID string) ([]byte, string, error) {
	var all []models.Certificate
	for page := 1; ; page++ {
		certs, total, err := s.repo.List(ctx, models.CertificateFilter{CourseID: courseID, Page: page, PageSize: 100})
		if err != nil {
			return nil, "", appErrors.Upstream(err, "failed to load certificates")
		}
		all = append(all, certs...)
		if len(certs) == 0 || len(all) >= total {
			break
		}
	}
	payload, err := s.csv.Render(export.CertificateRoster(all))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build roster")
	}
	return payload, fmt.Sprintf("certificates_%s.csv", courseID), nil
}

// History returns the audit trail for a certificate.
func (s *CertificateService) History(ctx context.Context, id string, actor *models.JWTClaims) ([]models.AuditEvent, error) {
	cert, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []models.AuditEvent{}, nil
	}
	events, err := s.audit.ListByResource(ctx, models.AuditResourceCertificate, cert.ID)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to load certificate history")
	}
	if events == nil {
		events = []models.AuditEvent{}
	}
	return events, nil
}

// persist mints a number and inserts the certificate. Number collisions re-mint; a concurrent
// issuance for the same pair resolves to the certificate that won.
func (s *CertificateService) persist(ctx context.Context, cert *models.Certificate, action, mode string, actor *models.JWTClaims) (*dto.CertificateResult, error) {
	cert.ID = uuid.NewString()
	cert.Status = models.CertificateStatusIssued

	var err error
	for attempt := 1; attempt <= maxMintAttempts; attempt++ {
		cert.CertificateNumber, err = s.minter.Mint()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mint certificate number")
		}
		err = s.repo.Create(ctx, cert)
		if !errors.Is(err, repository.ErrDuplicateCertificateNumber) {
			break
		}
		s.logger.Warn("certificate number collision", zap.String("number", cert.CertificateNumber), zap.Int("attempt", attempt))
	}

	switch {
	case err == nil:
	case errors.Is(err, repository.ErrOutstandingCertificate):
		existing, findErr := s.repo.FindOutstanding(ctx, cert.StudentID, cert.CourseID)
		if findErr != nil {
			return nil, appErrors.Upstream(findErr, "failed to load existing certificate")
		}
		return &dto.CertificateResult{Success: true, Created: false, Certificate: existing}, nil
	case errors.Is(err, repository.ErrDuplicateCertificateNumber):
		return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "could not allocate a unique certificate number")
	default:
		s.logger.Error("failed to create certificate", zap.String("student_id", cert.StudentID), zap.String("course_id", cert.CourseID), zap.Error(err))
		return nil, appErrors.Upstream(err, "failed to create certificate")
	}

	s.metrics.RecordIssued(mode)
	s.recordAudit(ctx, cert.ID, action, &actor.UserID, models.Metadata{
		"certificate_number":     cert.CertificateNumber,
		"student_id":             cert.StudentID,
		"course_id":              cert.CourseID,
		models.MetadataIssueMode: mode,
	})
	s.invalidateStats(ctx)
	if s.artifacts != nil {
		s.artifacts.SchedulePrerender(ctx, cert.ID)
	}
	s.logger.Info("certificate issued",
		zap.String("certificate_id", cert.ID),
		zap.String("certificate_number", cert.CertificateNumber),
		zap.String("mode", mode),
	)
	return &dto.CertificateResult{Success: true, Created: true, Certificate: cert}, nil
}

func (s *CertificateService) find(ctx context.Context, id string) (*models.Certificate, error) {
	cert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Upstream(err, "failed to load certificate")
	}
	return cert, nil
}

func (s *CertificateService) loadSnapshot(ctx context.Context, studentID, courseID string) (*models.User, *models.Course, error) {
	student, err := s.learning.FindStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Upstream(err, "failed to load student")
	}
	course, err := s.learning.FindCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Upstream(err, "failed to load course")
	}
	return student, course, nil
}

func (s *CertificateService) expiry(issuedAt time.Time, validForDays int) *time.Time {
	var ttl time.Duration
	switch {
	case validForDays > 0:
		ttl = time.Duration(validForDays) * 24 * time.Hour
	case s.cfg.Validity > 0:
		ttl = s.cfg.Validity
	default:
		return nil
	}
	expires := issuedAt.Add(ttl)
	return &expires
}

func (s *CertificateService) recordAudit(ctx context.Context, certificateID, action string, actorID *string, payload models.Metadata) {
	if s.audit == nil {
		return
	}
	event := &models.AuditEvent{
		Resource:   models.AuditResourceCertificate,
		ResourceID: &certificateID,
		Action:     action,
		ActorID:    actorID,
		Payload:    payload,
	}
	if err := s.audit.Create(ctx, event); err != nil {
		s.logger.Warn("failed to write audit event", zap.String("action", action), zap.String("certificate_id", certificateID), zap.Error(err))
	}
}

func (s *CertificateService) invalidateStats(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, statsCachePrefix+"*")
}

func authorizeOwner(cert *models.Certificate, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role.Privileged() || actor.UserID == cert.StudentID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "certificate belongs to another student")
}

func ineligibleMessage(checks models.EligibilityChecks) string {
	var failed []string
	if !checks.ClassProgressOK {
		failed = append(failed, "class progress below 80%")
	}
	if !checks.OverallGradeOK {
		failed = append(failed, "overall grade below 70")
	}
	if !checks.FinalExamPassed {
		failed = append(failed, "final exam not passed")
	}
	if !checks.AllEvaluationsAttempted {
		failed = append(failed, "not all evaluations attempted")
	}
	return "student is not eligible: " + strings.Join(failed, ", ")
}

func statsCacheKey(filter models.StatsFilter) string {
	key := statsCachePrefix + "course=" + filter.CourseID
	if filter.From != nil {
		key += ":from=" + filter.From.UTC().Format("2006-01-02")
	}
	if filter.To != nil {
		key += ":to=" + filter.To.UTC().Format("2006-01-02")
	}
	return key
}

func templateID(tpl *models.Template) *string {
	if tpl == nil {
		return nil
	}
	id := tpl.ID
	return &id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func pageDefaults(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
