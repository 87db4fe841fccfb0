// Package store keeps client-side certificate collections in sync with the API.
package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/edu-certificate-api/internal/dto"
	"github.com/noah-isme/edu-certificate-api/internal/models"
	appErrors "github.com/noah-isme/edu-certificate-api/pkg/errors"
)

// Op names one logical store operation. Each has its own loading and error state.
type Op string

const (
	OpEligibility        Op = "eligibility"
	OpGenerate           Op = "generate"
	OpIssue              Op = "issue"
	OpRevoke             Op = "revoke"
	OpMyCertificates     Op = "my_certificates"
	OpCourseCertificates Op = "course_certificates"
	OpStats              Op = "stats"
	OpTemplates          Op = "templates"
	OpSaveTemplate       Op = "save_template"
	OpDeleteTemplate     Op = "delete_template"
	OpVerify             Op = "verify"
	OpDownloadData       Op = "download_data"
)

// Backend is the remote data service the store reads from and writes through.
type Backend interface {
	Eligibility(ctx context.Context, studentID, courseID string) (*models.EligibilityResult, error)
	Generate(ctx context.Context, req dto.GenerateCertificateRequest) (*dto.CertificateResult, error)
	Issue(ctx context.Context, req dto.IssueCertificateRequest) (*dto.CertificateResult, error)
	Revoke(ctx context.Context, id, reason string) (*models.Certificate, error)
	StudentCertificates(ctx context.Context, studentID string) ([]models.Certificate, error)
	CourseCertificates(ctx context.Context, courseID string, page, limit int) ([]models.Certificate, *models.Pagination, error)
	Stats(ctx context.Context, filter models.StatsFilter) (*models.CertificateStats, error)
	Templates(ctx context.Context) ([]models.Template, error)
	CreateTemplate(ctx context.Context, req dto.TemplateRequest) (*models.Template, error)
	UpdateTemplate(ctx context.Context, id string, req dto.TemplateRequest) (*models.Template, error)
	DeleteTemplate(ctx context.Context, id string) error
	Verify(ctx context.Context, number string) (*dto.VerifyCertificateResponse, error)
	DownloadData(ctx context.Context, id string) (*dto.DownloadDataResponse, error)
}

// OpState is the loading/error flag pair for one operation.
type OpState struct {
	Loading bool
	Error   string
}

// CoursePage is the cached page of course certificates.
type CoursePage struct {
	CourseID     string
	Certificates []models.Certificate
	Pagination   *models.Pagination
}

// CertificateStore caches certificate collections and tracks per-operation state.
// Every call takes a sequence token. A read response is applied only if its token is still the latest for that
// operation; a confirmed write is always applied, and only its loading/error flags follow the latest token.
type CertificateStore struct {
	backend Backend
	logger  *zap.Logger
	now     func() time.Time

	mu             sync.RWMutex
	states         map[Op]OpState
	seq            map[Op]uint64
	myStudentID    string
	myCertificates []models.Certificate
	course         CoursePage
	templates      []models.Template
	templatesReady bool
	eligibility    *models.EligibilityResult
	stats          *models.CertificateStats
}

// New constructs a store over backend.
func New(backend Backend, logger *zap.Logger) *CertificateStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateStore{
		backend: backend,
		logger:  logger,
		now:     time.Now,
		states:  map[Op]OpState{},
		seq:     map[Op]uint64{},
	}
}

// State returns the loading/error flags for op.
func (s *CertificateStore) State(op Op) OpState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[op]
}

// MyCertificates returns the cached student-scoped collection.
func (s *CertificateStore) MyCertificates() []models.Certificate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCertificates(s.myCertificates)
}

// CourseCertificates returns the cached course page.
func (s *CertificateStore) CourseCertificates() CoursePage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	page := s.course
	page.Certificates = cloneCertificates(s.course.Certificates)
	if s.course.Pagination != nil {
		p := *s.course.Pagination
		page.Pagination = &p
	}
	return page
}

// Templates returns the cached templates.
func (s *CertificateStore) Templates() []models.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Template(nil), s.templates...)
}

// Eligibility returns the last eligibility result.
func (s *CertificateStore) Eligibility() *models.EligibilityResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eligibility
}

// Stats returns the last loaded statistics.
func (s *CertificateStore) Stats() *models.CertificateStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// CheckEligibility evaluates and caches eligibility for a student and course.
func (s *CertificateStore) CheckEligibility(ctx context.Context, studentID, courseID string) (*models.EligibilityResult, error) {
	token := s.begin(OpEligibility)
	result, err := s.backend.Eligibility(ctx, studentID, courseID)
	if err != nil {
		s.fail(OpEligibility, token, err)
		return nil, err
	}
	s.succeed(OpEligibility, token, func() { s.eligibility = result })
	return result, nil
}

// Generate requests issuance and merges the certificate into the loaded collections.
func (s *CertificateStore) Generate(ctx context.Context, req dto.GenerateCertificateRequest) (*dto.CertificateResult, error) {
	token := s.begin(OpGenerate)
	result, err := s.backend.Generate(ctx, req)
	if err != nil {
		s.fail(OpGenerate, token, err)
		return nil, err
	}
	s.commit(OpGenerate, token, func() { s.merge(result.Certificate) })
	return result, nil
}

// Issue performs direct issuance and merges the result.
func (s *CertificateStore) Issue(ctx context.Context, req dto.IssueCertificateRequest) (*dto.CertificateResult, error) {
	token := s.begin(OpIssue)
	result, err := s.backend.Issue(ctx, req)
	if err != nil {
		s.fail(OpIssue, token, err)
		return nil, err
	}
	s.commit(OpIssue, token, func() { s.merge(result.Certificate) })
	return result, nil
}

// Revoke revokes a certificate and marks it revoked in every cached collection.
// An empty reason fails before any request is made.
func (s *CertificateStore) Revoke(ctx context.Context, id, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		err := appErrors.Clone(appErrors.ErrValidation, "a revocation reason is required")
		s.mu.Lock()
		s.states[OpRevoke] = OpState{Error: err.Message}
		s.mu.Unlock()
		return err
	}

	token := s.begin(OpRevoke)
	updated, err := s.backend.Revoke(ctx, id, reason)
	if err != nil {
		s.fail(OpRevoke, token, err)
		return err
	}
	revokedAt := s.now().UTC()
	s.commit(OpRevoke, token, func() {
		s.markRevoked(id, reason, revokedAt, updated)
	})
	return nil
}

// LoadMyCertificates replaces the student-scoped collection.
func (s *CertificateStore) LoadMyCertificates(ctx context.Context, studentID string) ([]models.Certificate, error) {
	token := s.begin(OpMyCertificates)
	certs, err := s.backend.StudentCertificates(ctx, studentID)
	if err != nil {
		s.fail(OpMyCertificates, token, err)
		return nil, err
	}
	s.succeed(OpMyCertificates, token, func() {
		s.myStudentID = studentID
		s.myCertificates = cloneCertificates(certs)
	})
	return certs, nil
}

// LoadCourseCertificates replaces the cached course page.
func (s *CertificateStore) LoadCourseCertificates(ctx context.Context, courseID string, page, limit int) (CoursePage, error) {
	token := s.begin(OpCourseCertificates)
	certs, pagination, err := s.backend.CourseCertificates(ctx, courseID, page, limit)
	if err != nil {
		s.fail(OpCourseCertificates, token, err)
		return CoursePage{}, err
	}
	loaded := CoursePage{CourseID: courseID, Certificates: cloneCertificates(certs), Pagination: pagination}
	s.succeed(OpCourseCertificates, token, func() { s.course = loaded })
	return loaded, nil
}

// LoadStats fetches statistics for filter.
func (s *CertificateStore) LoadStats(ctx context.Context, filter models.StatsFilter) (*models.CertificateStats, error) {
	token := s.begin(OpStats)
	stats, err := s.backend.Stats(ctx, filter)
	if err != nil {
		s.fail(OpStats, token, err)
		return nil, err
	}
	s.succeed(OpStats, token, func() { s.stats = stats })
	return stats, nil
}

// LoadTemplates returns cached templates, fetching them on first use or when refresh is set.
func (s *CertificateStore) LoadTemplates(ctx context.Context, refresh bool) ([]models.Template, error) {
	s.mu.RLock()
	ready := s.templatesReady
	s.mu.RUnlock()
	if ready && !refresh {
		return s.Templates(), nil
	}

	token := s.begin(OpTemplates)
	templates, err := s.backend.Templates(ctx)
	if err != nil {
		s.fail(OpTemplates, token, err)
		return nil, err
	}
	s.succeed(OpTemplates, token, func() {
		s.templates = append([]models.Template(nil), templates...)
		s.templatesReady = true
	})
	return templates, nil
}

// SaveTemplate creates a template when id is empty, otherwise updates it, and upserts it into the cache.
func (s *CertificateStore) SaveTemplate(ctx context.Context, id string, req dto.TemplateRequest) (*models.Template, error) {
	token := s.begin(OpSaveTemplate)
	var (
		tpl *models.Template
		err error
	)
	if id == "" {
		tpl, err = s.backend.CreateTemplate(ctx, req)
	} else {
		tpl, err = s.backend.UpdateTemplate(ctx, id, req)
	}
	if err != nil {
		s.fail(OpSaveTemplate, token, err)
		return nil, err
	}
	s.commit(OpSaveTemplate, token, func() { s.upsertTemplate(*tpl) })
	return tpl, nil
}

// DeleteTemplate removes a template remotely and from the cache.
func (s *CertificateStore) DeleteTemplate(ctx context.Context, id string) error {
	token := s.begin(OpDeleteTemplate)
	if err := s.backend.DeleteTemplate(ctx, id); err != nil {
		s.fail(OpDeleteTemplate, token, err)
		return err
	}
	s.commit(OpDeleteTemplate, token, func() {
		kept := s.templates[:0]
		for _, tpl := range s.templates {
			if tpl.ID != id {
				kept = append(kept, tpl)
			}
		}
		s.templates = kept
	})
	return nil
}

// Verify checks a certificate number. Not-valid outcomes are results, not errors.
func (s *CertificateStore) Verify(ctx context.Context, number string) (*dto.VerifyCertificateResponse, error) {
	token := s.begin(OpVerify)
	result, err := s.backend.Verify(ctx, number)
	if err != nil {
		s.fail(OpVerify, token, err)
		return nil, err
	}
	s.succeed(OpVerify, token, nil)
	return result, nil
}

// DownloadData fetches everything needed to render a certificate.
func (s *CertificateStore) DownloadData(ctx context.Context, id string) (*dto.DownloadDataResponse, error) {
	token := s.begin(OpDownloadData)
	data, err := s.backend.DownloadData(ctx, id)
	if err != nil {
		s.fail(OpDownloadData, token, err)
		return nil, err
	}
	s.succeed(OpDownloadData, token, nil)
	return data, nil
}

func (s *CertificateStore) begin(op Op) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[op]++
	s.states[op] = OpState{Loading: true}
	return s.seq[op]
}

// succeed applies the result under lock when token is still current.
func (s *CertificateStore) succeed(op Op, token uint64, apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq[op] != token {
		s.logger.Debug("discarding stale response", zap.String("op", string(op)), zap.Uint64("token", token))
		return
	}
	if apply != nil {
		apply()
	}
	s.states[op] = OpState{}
}

// commit applies a write the backend has confirmed, whatever its token.
func (s *CertificateStore) commit(op Op, token uint64, apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply()
	if s.seq[op] == token {
		s.states[op] = OpState{}
	}
}

// fail records a user-facing message, leaving cached data untouched.
func (s *CertificateStore) fail(op Op, token uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq[op] != token {
		return
	}
	s.states[op] = OpState{Error: userMessage(err)}
}

func (s *CertificateStore) merge(cert *models.Certificate) {
	if cert == nil {
		return
	}
	if s.myStudentID != "" && cert.StudentID == s.myStudentID {
		s.myCertificates = upsertCertificate(s.myCertificates, *cert)
	}
	if s.course.CourseID != "" && cert.CourseID == s.course.CourseID {
		before := len(s.course.Certificates)
		s.course.Certificates = upsertCertificate(s.course.Certificates, *cert)
		if len(s.course.Certificates) > before && s.course.Pagination != nil {
			s.course.Pagination.TotalCount++
		}
	}
}

func (s *CertificateStore) markRevoked(id, reason string, at time.Time, updated *models.Certificate) {
	apply := func(certs []models.Certificate) {
		for i := range certs {
			if certs[i].ID != id {
				continue
			}
			if updated != nil {
				certs[i] = *updated
				continue
			}
			certs[i].Status = models.CertificateStatusRevoked
			certs[i].RevokedAt = &at
			metadata := models.Metadata{}
			for k, v := range certs[i].Metadata {
				metadata[k] = v
			}
			metadata[models.MetadataReason] = reason
			certs[i].Metadata = metadata
		}
	}
	apply(s.myCertificates)
	apply(s.course.Certificates)
}

func (s *CertificateStore) upsertTemplate(tpl models.Template) {
	for i := range s.templates {
		if s.templates[i].ID == tpl.ID {
			s.templates[i] = tpl
			return
		}
	}
	s.templates = append(s.templates, tpl)
}

func upsertCertificate(certs []models.Certificate, cert models.Certificate) []models.Certificate {
	for i := range certs {
		if certs[i].ID == cert.ID {
			certs[i] = cert
			return certs
		}
	}
	return append([]models.Certificate{cert}, certs...)
}

func cloneCertificates(certs []models.Certificate) []models.Certificate {
	if certs == nil {
		return nil
	}
	return append([]models.Certificate(nil), certs...)
}

func userMessage(err error) string {
	appErr := appErrors.FromError(err)
	if appErr.Code == appErrors.ErrInternal.Code {
		return "something went wrong, please try again"
	}
	return appErr.Message
}
