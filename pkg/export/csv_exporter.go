package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/noah-isme/edu-certificate-api/internal/models"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// RosterHeaders are the columns of a course certificate roster.
var RosterHeaders = []string{
	"certificate_number",
	"student_name",
	"student_email",
	"course_title",
	"final_grade",
	"status",
	"issued_at",
	"expires_at",
	"revoked_at",
	"revocation_reason",
}

// CertificateRoster flattens certificates into a roster dataset.
func CertificateRoster(certificates []models.Certificate) Dataset {
	rows := make([]map[string]string, 0, len(certificates))
	for _, cert := range certificates {
		rows = append(rows, map[string]string{
			"certificate_number": cert.CertificateNumber,
			"student_name":       cert.StudentName,
			"student_email":      cert.StudentEmail,
			"course_title":       cert.CourseTitle,
			"final_grade":        strconv.FormatFloat(cert.FinalGrade, 'f', 2, 64),
			"status":             string(cert.Status),
			"issued_at":          cert.IssuedAt.UTC().Format(time.RFC3339),
			"expires_at":         formatOptionalTime(cert.ExpiresAt),
			"revoked_at":         formatOptionalTime(cert.RevokedAt),
			"revocation_reason":  cert.Metadata.String(models.MetadataReason),
		})
	}
	return Dataset{Headers: RosterHeaders, Rows: rows}
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(data.Headers))
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
