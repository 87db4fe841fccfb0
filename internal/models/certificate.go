package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CertificateStatus is the closed set of certificate lifecycle states.
type CertificateStatus string

const (
	CertificateStatusIssued  CertificateStatus = "issued"
	CertificateStatusActive  CertificateStatus = "active"
	CertificateStatusRevoked CertificateStatus = "revoked"
	CertificateStatusExpired CertificateStatus = "expired"
)

// ParseCertificateStatus rejects values outside the lifecycle enum.
func ParseCertificateStatus(raw string) (CertificateStatus, error) {
	switch status := CertificateStatus(raw); status {
	case CertificateStatusIssued, CertificateStatusActive, CertificateStatusRevoked, CertificateStatusExpired:
		return status, nil
	default:
		return "", fmt.Errorf("unknown certificate status %q", raw)
	}
}

// Scan implements sql.Scanner and validates the stored status.
func (s *CertificateStatus) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported certificate status type %T", src)
	}
	status, err := ParseCertificateStatus(raw)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// UnmarshalJSON validates statuses arriving from remote payloads.
func (s *CertificateStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	status, err := ParseCertificateStatus(raw)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// Valid reports whether the certificate currently attests completion.
func (s CertificateStatus) Valid() bool {
	return s == CertificateStatusIssued || s == CertificateStatusActive
}

// Revocable reports whether a revoke transition is allowed from this state.
func (s CertificateStatus) Revocable() bool {
	return s.Valid()
}

// Metadata keys written by the lifecycle.
const (
	MetadataReason          = "reason"
	MetadataRejectionReason = "rejection_reason"
	MetadataRevokedBy       = "revoked_by"
	MetadataIssueMode       = "issue_mode"
)

// Issue modes recorded in metadata.
const (
	IssueModeAutomatic = "automatic"
	IssueModeManual    = "manual"
	IssueModeOverride  = "override"
	IssueModeDirect    = "direct"
)

// Metadata is a free-form JSON object stored alongside a certificate.
type Metadata map[string]interface{}

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
	out := Metadata{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("decode metadata: %w", err)
		}
	}
	*m = out
	return nil
}

// String returns the string value stored under key, if any.
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Certificate is an issued, numbered record asserting course completion.
type Certificate struct {
	ID                string            `db:"id" json:"id"`
	CertificateNumber string            `db:"certificate_number" json:"certificate_number"`
	StudentID         string            `db:"student_id" json:"student_id"`
	CourseID          string            `db:"course_id" json:"course_id"`
	TemplateID        *string           `db:"template_id" json:"template_id,omitempty"`
	StudentName       string            `db:"student_name" json:"student_name"`
	StudentEmail      string            `db:"student_email" json:"student_email"`
	CourseTitle       string            `db:"course_title" json:"course_title"`
	CourseCategory    string            `db:"course_category" json:"course_category"`
	CourseLevel       string            `db:"course_level" json:"course_level"`
	DurationHours     int               `db:"duration_hours" json:"duration_hours"`
	InstructorName    string            `db:"instructor_name" json:"instructor_name"`
	FinalGrade        float64           `db:"final_grade" json:"final_grade"`
	Status            CertificateStatus `db:"status" json:"status"`
	IssuedAt          time.Time         `db:"issued_at" json:"issued_at"`
	ExpiresAt         *time.Time        `db:"expires_at" json:"expires_at,omitempty"`
	RevokedAt         *time.Time        `db:"revoked_at" json:"revoked_at,omitempty"`
	IssuedBy          *string           `db:"issued_by" json:"issued_by,omitempty"`
	Metadata          Metadata          `db:"metadata" json:"metadata"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// PublicCertificateView exposes only what the printed certificate already shows.
type PublicCertificateView struct {
	CertificateNumber string            `json:"certificate_number"`
	StudentName       string            `json:"student_name"`
	CourseTitle       string            `json:"course_title"`
	CourseCategory    string            `json:"course_category"`
	CourseLevel       string            `json:"course_level"`
	DurationHours     int               `json:"duration_hours"`
	InstructorName    string            `json:"instructor_name"`
	FinalGrade        float64           `json:"final_grade"`
	Status            CertificateStatus `json:"status"`
	IssuedAt          time.Time         `json:"issued_at"`
	ExpiresAt         *time.Time        `json:"expires_at,omitempty"`
}

// PublicView projects the certificate onto its public-safe fields.
func (c *Certificate) PublicView() *PublicCertificateView {
	if c == nil {
		return nil
	}
	return &PublicCertificateView{
		CertificateNumber: c.CertificateNumber,
		StudentName:       c.StudentName,
		CourseTitle:       c.CourseTitle,
		CourseCategory:    c.CourseCategory,
		CourseLevel:       c.CourseLevel,
		DurationHours:     c.DurationHours,
		InstructorName:    c.InstructorName,
		FinalGrade:        c.FinalGrade,
		Status:            c.Status,
		IssuedAt:          c.IssuedAt,
		ExpiresAt:         c.ExpiresAt,
	}
}

// CertificateFilter scopes certificate listings.
type CertificateFilter struct {
	StudentID string
	CourseID  string
	Status    CertificateStatus
	Page      int
	PageSize  int
}

// StatsFilter scopes certificate statistics.
type StatsFilter struct {
	CourseID string     `form:"courseId" json:"course_id,omitempty"`
	From     *time.Time `form:"from" time_format:"2006-01-02" json:"from,omitempty"`
	To       *time.Time `form:"to" time_format:"2006-01-02" json:"to,omitempty"`
}

// CertificateStats aggregates issuance metrics.
type CertificateStats struct {
	TotalCertificates       int     `db:"total_certificates" json:"total_certificates"`
	ActiveCertificates      int     `db:"active_certificates" json:"active_certificates"`
	UniqueStudents          int     `db:"unique_students" json:"unique_students"`
	AverageGrade            float64 `db:"average_grade" json:"average_grade"`
	IssuedLastMonth         int     `db:"issued_last_month" json:"issued_last_month"`
	CoursesWithCertificates int     `db:"courses_with_certificates" json:"courses_with_certificates"`
}
