package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-certificate-api/internal/dto"
	"github.com/noah-isme/edu-certificate-api/internal/models"
	appErrors "github.com/noah-isme/edu-certificate-api/pkg/errors"
	"github.com/noah-isme/edu-certificate-api/pkg/export"
	"github.com/noah-isme/edu-certificate-api/pkg/jobs"
	"github.com/noah-isme/edu-certificate-api/pkg/storage"
)

// JobTypePrerender renders and stores a freshly issued certificate.
const JobTypePrerender = "certificate.prerender"

type certificateLoader interface {
	FindByID(ctx context.Context, id string) (*models.Certificate, error)
}

type certificateRenderer interface {
	Render(ctx context.Context, input export.RenderInput) (*export.RenderedCertificate, error)
}

type artifactStorage interface {
	Save(filename string, data []byte) (string, error)
	Load(filename string) ([]byte, error)
	Delete(filename string) error
	DeleteDir(dir string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type downloadLinkSigner interface {
	Generate(certificateID, relPath string) (string, time.Time, error)
	Parse(token string) (certificateID, relPath string, expiresAt time.Time, err error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// DownloadServiceConfig holds the URLs embedded in documents and links.
type DownloadServiceConfig struct {
	VerifyBaseURL string
	PublicBaseURL string
	LinkBaseURL   string
	ArtifactTTL   time.Duration
}

// CertificateDocument is a rendered, downloadable certificate.
type CertificateDocument struct {
	Filename string
	Content  []byte
	Cached   bool
}

// DownloadService assembles download data, renders documents and manages stored artifacts.
type DownloadService struct {
	repo      certificateLoader
	templates templateResolver
	renderer  certificateRenderer
	storage   artifactStorage
	signer    downloadLinkSigner
	queue     jobDispatcher
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       DownloadServiceConfig
}

// NewDownloadService constructs the download service. Storage and signer may be nil to disable artifacts and links.
func NewDownloadService(repo certificateLoader, templates templateResolver, renderer certificateRenderer, store artifactStorage, signer downloadLinkSigner, metrics *MetricsService, logger *zap.Logger, cfg DownloadServiceConfig) *DownloadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ArtifactTTL <= 0 {
		cfg.ArtifactTTL = 7 * 24 * time.Hour
	}
	cfg.VerifyBaseURL = strings.TrimRight(cfg.VerifyBaseURL, "/")
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	cfg.LinkBaseURL = strings.TrimRight(cfg.LinkBaseURL, "/")
	return &DownloadService{
		repo:      repo,
		templates: templates,
		renderer:  renderer,
		storage:   store,
		signer:    signer,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// AttachQueue wires the prerender queue once it has been built around HandlePrerender.
func (s *DownloadService) AttachQueue(queue jobDispatcher) {
	s.queue = queue
}

// QRData returns the URLs printed and encoded on the certificate.
func (s *DownloadService) QRData(cert *models.Certificate) dto.QRData {
	return dto.QRData{
		VerificationURL: s.cfg.VerifyBaseURL + "/" + cert.CertificateNumber,
		PublicURL:       s.cfg.PublicBaseURL + "/" + cert.CertificateNumber,
	}
}

// DownloadData bundles the certificate, its template and QR data for client-side rendering.
func (s *DownloadService) DownloadData(ctx context.Context, id string, actor *models.JWTClaims) (*dto.DownloadDataResponse, error) {
	cert, err := s.loadDownloadable(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	tpl, err := s.template(ctx, cert)
	if err != nil {
		return nil, err
	}
	return &dto.DownloadDataResponse{Certificate: cert, Template: tpl, QRData: s.QRData(cert)}, nil
}

// Render returns the certificate PDF, from the artifact store when already rendered.
func (s *DownloadService) Render(ctx context.Context, id string, actor *models.JWTClaims) (*CertificateDocument, error) {
	cert, err := s.loadDownloadable(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return s.document(ctx, cert)
}

// CreateDownloadLink issues a signed, expiring link to the stored artifact.
func (s *DownloadService) CreateDownloadLink(ctx context.Context, id string, actor *models.JWTClaims) (*dto.DownloadLinkResponse, error) {
	if s.signer == nil || s.storage == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download links are not configured")
	}
	cert, err := s.loadDownloadable(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if _, err := s.document(ctx, cert); err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(cert.ID, artifactDir(cert.ID))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate download token")
	}
	return &dto.DownloadLinkResponse{
		URL:       fmt.Sprintf("%s/certificates/files/%s", s.cfg.LinkBaseURL, token),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// OpenSignedLink resolves a public download token into the certificate document.
func (s *DownloadService) OpenSignedLink(ctx context.Context, token string) (*CertificateDocument, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download links are not configured")
	}
	certificateID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link")
	}
	if relPath != artifactDir(certificateID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download link mismatch")
	}
	cert, err := s.find(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if cert.Status == models.CertificateStatusRevoked {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "certificate has been revoked")
	}
	return s.document(ctx, cert)
}

// HandlePrerender is the queue handler for JobTypePrerender.
func (s *DownloadService) HandlePrerender(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypePrerender {
		return fmt.Errorf("unsupported job type %q", job.Type)
	}
	cert, err := s.repo.FindByID(ctx, job.Key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("prerender skipped, certificate missing", zap.String("certificate_id", job.Key))
			return nil
		}
		return fmt.Errorf("load certificate %s: %w", job.Key, err)
	}
	if cert.Status == models.CertificateStatusRevoked {
		return nil
	}
	_, err = s.document(ctx, cert)
	return err
}

// SchedulePrerender enqueues rendering of a new certificate. Failures are logged; download renders on demand.
func (s *DownloadService) SchedulePrerender(ctx context.Context, certificateID string) {
	if s.queue == nil || s.storage == nil {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: JobTypePrerender, Key: certificateID}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue prerender", zap.String("certificate_id", certificateID), zap.Error(err))
	}
}

// DiscardArtifact deletes every stored document for a certificate.
func (s *DownloadService) DiscardArtifact(ctx context.Context, certificateID string) {
	if s.storage == nil {
		return
	}
	if err := s.storage.DeleteDir(artifactDir(certificateID)); err != nil {
		s.logger.Warn("failed to delete certificate artifact", zap.String("certificate_id", certificateID), zap.Error(err))
	}
}

// CleanupArtifacts removes stored documents older than the artifact TTL.
func (s *DownloadService) CleanupArtifacts(ctx context.Context) (int, error) {
	if s.storage == nil {
		return 0, nil
	}
	removed, err := s.storage.CleanupOlderThan(s.cfg.ArtifactTTL)
	if err != nil {
		return 0, err
	}
	return len(removed), nil
}

// document returns the stored artifact rendered from the current template version, rendering it when missing.
func (s *DownloadService) document(ctx context.Context, cert *models.Certificate) (*CertificateDocument, error) {
	tpl, err := s.template(ctx, cert)
	if err != nil {
		return nil, err
	}
	path := artifactPath(cert.ID, tpl)
	if s.storage != nil {
		data, err := s.storage.Load(path)
		switch {
		case err == nil:
			return &CertificateDocument{Filename: export.Filename(cert.StudentName, cert.CourseTitle), Content: data, Cached: true}, nil
		case !errors.Is(err, storage.ErrNotStored):
			s.logger.Warn("failed to read certificate artifact", zap.String("certificate_id", cert.ID), zap.Error(err))
		}
	}

	start := time.Now()
	rendered, err := s.renderer.Render(ctx, export.RenderInput{
		Certificate:     cert,
		Template:        tpl,
		VerificationURL: s.QRData(cert).VerificationURL,
	})
	if err != nil {
		s.logger.Error("failed to render certificate", zap.String("certificate_id", cert.ID), zap.Error(err))
		return nil, err
	}
	stages := make([]string, 0, len(rendered.Report.Fallbacks))
	for _, fallback := range rendered.Report.Fallbacks {
		stages = append(stages, string(fallback.Stage))
	}
	s.metrics.ObserveRender(time.Since(start), stages)

	if s.storage != nil {
		if _, err := s.storage.Save(path, rendered.Content); err != nil {
			s.logger.Warn("failed to store certificate artifact", zap.String("certificate_id", cert.ID), zap.Error(err))
		}
	}
	return &CertificateDocument{Filename: rendered.Filename, Content: rendered.Content}, nil
}

func (s *DownloadService) loadDownloadable(ctx context.Context, id string, actor *models.JWTClaims) (*models.Certificate, error) {
	cert, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(cert, actor); err != nil {
		return nil, err
	}
	if cert.Status == models.CertificateStatusRevoked {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "revoked certificates cannot be downloaded")
	}
	return cert, nil
}

func (s *DownloadService) find(ctx context.Context, id string) (*models.Certificate, error) {
	cert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Upstream(err, "failed to load certificate")
	}
	return cert, nil
}

// template resolves the certificate's template, falling back to the default when it no longer exists.
func (s *DownloadService) template(ctx context.Context, cert *models.Certificate) (*models.Template, error) {
	tpl, err := s.templates.Resolve(ctx, cert.TemplateID)
	if err == nil {
		return tpl, nil
	}
	if cert.TemplateID != nil && errors.Is(err, appErrors.ErrNotFound) {
		return s.templates.Resolve(ctx, nil)
	}
	return nil, err
}

func artifactDir(certificateID string) string {
	return "certificates/" + certificateID
}

// artifactPath names the document by template id and version so a template edit renders afresh.
func artifactPath(certificateID string, tpl *models.Template) string {
	if tpl == nil {
		return artifactDir(certificateID) + "/builtin.pdf"
	}
	return fmt.Sprintf("%s/%s-%d.pdf", artifactDir(certificateID), tpl.ID, tpl.UpdatedAt.UnixMilli())
}
