package dto

import (
	"time"

	"github.com/noah-isme/edu-certificate-api/internal/models"
)

// GenerateCertificateRequest captures POST /certificates/generate payload.
type GenerateCertificateRequest struct {
	StudentID  string  `json:"student_id" validate:"required"`
	CourseID   string  `json:"course_id" validate:"required"`
	TemplateID *string `json:"template_id,omitempty"`
	Automatic  bool    `json:"automatic"`
	Override   bool    `json:"override"`
}

// IssueCertificateRequest captures the privileged direct issuance payload.
type IssueCertificateRequest struct {
	StudentID      string          `json:"student_id" validate:"required"`
	CourseID       string          `json:"course_id" validate:"required"`
	TemplateID     *string         `json:"template_id,omitempty"`
	StudentName    string          `json:"student_name,omitempty" validate:"omitempty,max=200"`
	StudentEmail   string          `json:"student_email,omitempty" validate:"omitempty,email"`
	CourseTitle    string          `json:"course_title,omitempty" validate:"omitempty,max=300"`
	InstructorName string          `json:"instructor_name,omitempty" validate:"omitempty,max=200"`
	FinalGrade     float64         `json:"final_grade" validate:"gte=0,lte=100"`
	IssuedAt       *time.Time      `json:"issued_at,omitempty"`
	ValidForDays   int             `json:"valid_for_days,omitempty" validate:"gte=0"`
	Metadata       models.Metadata `json:"metadata,omitempty"`
}

// CertificateResult wraps the outcome of generate/issue.
type CertificateResult struct {
	Success     bool                `json:"success"`
	Created     bool                `json:"created"`
	Certificate *models.Certificate `json:"certificate"`
}

// RevokeCertificateRequest captures PUT /certificates/:id/revoke payload.
type RevokeCertificateRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// RevokeCertificateResponse acknowledges a revocation.
type RevokeCertificateResponse struct {
	Success     bool                `json:"success"`
	Certificate *models.Certificate `json:"certificate,omitempty"`
}

// CertificateListResponse lists certificates.
type CertificateListResponse struct {
	Certificates []models.Certificate `json:"certificates"`
}

// VerifyCertificateResponse is the public verification outcome.
type VerifyCertificateResponse struct {
	Valid       bool                          `json:"valid"`
	Certificate *models.PublicCertificateView `json:"certificate,omitempty"`
	Error       string                        `json:"error,omitempty"`
}

// QRData carries the URLs embedded in a rendered certificate.
type QRData struct {
	VerificationURL string `json:"verification_url"`
	PublicURL       string `json:"public_url"`
}

// DownloadDataResponse bundles everything a renderer needs.
type DownloadDataResponse struct {
	Certificate *models.Certificate `json:"certificate"`
	Template    *models.Template    `json:"template"`
	QRData      QRData              `json:"qr_data"`
}

// DownloadLinkResponse returns a signed, expiring artifact link.
type DownloadLinkResponse struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
