package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/edu-certificate-api/internal/models"
)

// Constraint names the certificate service relies on for uniqueness.
const (
	constraintCertificateNumber = "certificates_number_key"
	constraintOutstandingPair   = "certificates_outstanding_pair"
	constraintTemplateReference = "certificates_template_id_fkey"
	pqUniqueViolation           = "23505"
	pqForeignKeyViolation       = "23503"
)

var (
	// ErrDuplicateCertificateNumber signals a certificate number collision.
	ErrDuplicateCertificateNumber = errors.New("certificate number already exists")
	// ErrOutstandingCertificate signals a live certificate already exists for the student and course.
	ErrOutstandingCertificate = errors.New("student already holds a live certificate for this course")
)

const certificateColumns = `id, certificate_number, student_id, course_id, template_id, student_name, student_email,
course_title, course_category, course_level, duration_hours, instructor_name, final_grade, status,
issued_at, expires_at, revoked_at, issued_by, metadata, created_at, updated_at`

// CertificateRepository persists certificates.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository constructs the repository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// Create inserts a certificate, translating uniqueness violations into sentinel errors.
func (r *CertificateRepository) Create(ctx context.Context, cert *models.Certificate) error {
	now := time.Now().UTC()
	if cert.CreatedAt.IsZero() {
		cert.CreatedAt = now
	}
	cert.UpdatedAt = now
	if cert.Metadata == nil {
		cert.Metadata = models.Metadata{}
	}
	const query = `INSERT INTO certificates (id, certificate_number, student_id, course_id, template_id, student_name,
student_email, course_title, course_category, course_level, duration_hours, instructor_name, final_grade, status,
issued_at, expires_at, revoked_at, issued_by, metadata, created_at, updated_at)
VALUES (:id, :certificate_number, :student_id, :course_id, :template_id, :student_name, :student_email, :course_title,
:course_category, :course_level, :duration_hours, :instructor_name, :final_grade, :status, :issued_at, :expires_at,
:revoked_at, :issued_by, :metadata, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			switch pqErr.Constraint {
			case constraintCertificateNumber:
				return ErrDuplicateCertificateNumber
			case constraintOutstandingPair:
				return ErrOutstandingCertificate
			}
		}
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

// FindByID fetches a certificate by id.
func (r *CertificateRepository) FindByID(ctx context.Context, id string) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE id = $1`
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, id); err != nil {
		return nil, err
	}
	return &cert, nil
}

// FindByNumber fetches a certificate by its public number.
func (r *CertificateRepository) FindByNumber(ctx context.Context, number string) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE certificate_number = $1`
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, number); err != nil {
		return nil, err
	}
	return &cert, nil
}

// FindOutstanding returns the live (issued or active) certificate for a student and course.
func (r *CertificateRepository) FindOutstanding(ctx context.Context, studentID, courseID string) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates
WHERE student_id = $1 AND course_id = $2 AND status IN ('issued', 'active')
ORDER BY issued_at DESC LIMIT 1`
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &cert, nil
}

// ListByStudent returns every certificate held by a student, newest first.
func (r *CertificateRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE student_id = $1 ORDER BY issued_at DESC`
	var certs []models.Certificate
	if err := r.db.SelectContext(ctx, &certs, query, studentID); err != nil {
		return nil, fmt.Errorf("list student certificates: %w", err)
	}
	return certs, nil
}

// List returns filtered, paginated certificates and the total count.
func (r *CertificateRepository) List(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, int, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM certificates`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count certificates: %w", err)
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM certificates%s ORDER BY issued_at DESC, id ASC LIMIT $%d OFFSET $%d`,
		certificateColumns, where, len(args)+1, len(args)+2)
	args = append(args, size, (page-1)*size)

	var certs []models.Certificate
	if err := r.db.SelectContext(ctx, &certs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list certificates: %w", err)
	}
	return certs, total, nil
}

// Revoke moves a live certificate to revoked and records the reason. It returns
// sql.ErrNoRows when no live certificate matched.
func (r *CertificateRepository) Revoke(ctx context.Context, id, reason string, actorID *string, at time.Time) (*models.Certificate, error) {
	query := `UPDATE certificates
SET status = 'revoked', revoked_at = $2, updated_at = $2,
    metadata = metadata || jsonb_build_object('reason', $3::text, 'rejection_reason', $3::text, 'revoked_by', $4::text)
WHERE id = $1 AND status IN ('issued', 'active')
RETURNING ` + certificateColumns
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, id, at.UTC(), reason, actorID); err != nil {
		return nil, err
	}
	return &cert, nil
}

// ExpireDue moves live certificates past their expiry to expired.
func (r *CertificateRepository) ExpireDue(ctx context.Context, now time.Time) ([]models.Certificate, error) {
	query := `UPDATE certificates SET status = 'expired', updated_at = $1
WHERE status IN ('issued', 'active') AND expires_at IS NOT NULL AND expires_at <= $1
RETURNING ` + certificateColumns
	var certs []models.Certificate
	if err := r.db.SelectContext(ctx, &certs, query, now.UTC()); err != nil {
		return nil, fmt.Errorf("expire certificates: %w", err)
	}
	return certs, nil
}

// Stats aggregates issuance metrics for the filter.
func (r *CertificateRepository) Stats(ctx context.Context, filter models.StatsFilter, now time.Time) (*models.CertificateStats, error) {
	args := []interface{}{now.UTC().AddDate(0, -1, 0)}
	var conditions []string
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, filter.From.UTC())
		conditions = append(conditions, fmt.Sprintf("issued_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, filter.To.UTC().AddDate(0, 0, 1))
		conditions = append(conditions, fmt.Sprintf("issued_at < $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	query := `SELECT
    COUNT(*) AS total_certificates,
    COUNT(*) FILTER (WHERE status IN ('issued', 'active')) AS active_certificates,
    COUNT(DISTINCT student_id) AS unique_students,
    COALESCE(ROUND(AVG(final_grade)::numeric, 2), 0) AS average_grade,
    COUNT(*) FILTER (WHERE issued_at >= $1) AS issued_last_month,
    COUNT(DISTINCT course_id) AS courses_with_certificates
FROM certificates` + where
	var stats models.CertificateStats
	if err := r.db.GetContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("certificate stats: %w", err)
	}
	return &stats, nil
}

func normalizePage(page, size int) (int, int) {
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
