package export

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-certificate-api/internal/models"
)

func TestCertificateRosterCSV(t *testing.T) {
	issued := time.Date(2025, 8, 30, 10, 0, 0, 0, time.UTC)
	revoked := issued.Add(48 * time.Hour)
	certs := []models.Certificate{
		{CertificateNumber: "AGRO-1756572958564-FO4KBD", StudentName: "Siti", StudentEmail: "siti@example.com", CourseTitle: "Rice", FinalGrade: 86.5, Status: models.CertificateStatusIssued, IssuedAt: issued},
		{CertificateNumber: "AGRO-1756572958999-ABC123", StudentName: "Budi, Jr.", CourseTitle: "Rice", FinalGrade: 71, Status: models.CertificateStatusRevoked, IssuedAt: issued, RevokedAt: &revoked, Metadata: models.Metadata{models.MetadataReason: "duplicate enrollment"}},
	}

	out, err := NewCSVExporter().Render(CertificateRoster(certs))
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, RosterHeaders, records[0])
	assert.Equal(t, "86.50", records[1][4])
	assert.Equal(t, "2025-08-30T10:00:00Z", records[1][6])
	assert.Equal(t, "", records[1][8])
	assert.Equal(t, "Budi, Jr.", records[2][1])
	assert.Equal(t, "revoked", records[2][5])
	assert.Equal(t, "duplicate enrollment", records[2][9])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}
