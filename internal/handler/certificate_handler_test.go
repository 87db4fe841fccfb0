package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-certificate-api/internal/dto"
	"github.com/noah-isme/edu-certificate-api/internal/middleware"
	"github.com/noah-isme/edu-certificate-api/internal/models"
	appErrors "github.com/noah-isme/edu-certificate-api/pkg/errors"
)

type fakeCertificateSrv struct {
	result       *dto.CertificateResult
	err          error
	revoked      *models.Certificate
	lastRevoke   dto.RevokeCertificateRequest
	lastActor    *models.JWTClaims
	list         []models.Certificate
	pagination   *models.Pagination
	lastPage     int
	lastLimit    int
	lastStatus   string
	stats        *models.CertificateStats
	statsHit     bool
	lastFilter   models.StatsFilter
	csv          []byte
	history      []models.AuditEvent
	lastGenerate dto.GenerateCertificateRequest
}

func (f *fakeCertificateSrv) Generate(_ context.Context, req dto.GenerateCertificateRequest, actor *models.JWTClaims) (*dto.CertificateResult, error) {
	f.lastGenerate = req
	f.lastActor = actor
	return f.result, f.err
}

func (f *fakeCertificateSrv) Issue(_ context.Context, _ dto.IssueCertificateRequest, actor *models.JWTClaims) (*dto.CertificateResult, error) {
	f.lastActor = actor
	return f.result, f.err
}

func (f *fakeCertificateSrv) Revoke(_ context.Context, _ string, req dto.RevokeCertificateRequest, _ *models.JWTClaims) (*models.Certificate, error) {
	f.lastRevoke = req
	return f.revoked, f.err
}

func (f *fakeCertificateSrv) Get(context.Context, string, *models.JWTClaims) (*models.Certificate, error) {
	return f.revoked, f.err
}

func (f *fakeCertificateSrv) ListByStudent(context.Context, string, *models.JWTClaims) ([]models.Certificate, error) {
	return f.list, f.err
}

func (f *fakeCertificateSrv) ListByCourse(_ context.Context, _ string, status string, page, pageSize int) ([]models.Certificate, *models.Pagination, error) {
	f.lastStatus = status
	f.lastPage = page
	f.lastLimit = pageSize
	return f.list, f.pagination, f.err
}

func (f *fakeCertificateSrv) Stats(_ context.Context, filter models.StatsFilter) (*models.CertificateStats, bool, error) {
	f.lastFilter = filter
	return f.stats, f.statsHit, f.err
}

func (f *fakeCertificateSrv) ExportCourseRoster(context.Context, string) ([]byte, string, error) {
	return f.csv, "certificates_course-1.csv", f.err
}

func (f *fakeCertificateSrv) History(context.Context, string, *models.JWTClaims) ([]models.AuditEvent, error) {
	return f.history, f.err
}

var handlerAdmin = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

func newJSONContext(method, target string, body interface{}, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func TestCertificateHandlerGenerateStatusCodes(t *testing.T) {
	svc := &fakeCertificateSrv{result: &dto.CertificateResult{Success: true, Created: true, Certificate: &models.Certificate{ID: "c1"}}}
	handler := NewCertificateHandler(svc)

	c, rec := newJSONContext(http.MethodPost, "/certificates/generate", map[string]interface{}{"student_id": "stu-1", "course_id": "course-1", "automatic": true}, handlerAdmin)
	handler.Generate(c)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, svc.lastGenerate.Automatic)
	assert.Equal(t, "admin-1", svc.lastActor.UserID)

	svc.result = &dto.CertificateResult{Success: true, Created: false, Certificate: &models.Certificate{ID: "c1"}}
	c, rec = newJSONContext(http.MethodPost, "/certificates/generate", map[string]interface{}{"student_id": "stu-1", "course_id": "course-1"}, handlerAdmin)
	handler.Generate(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCertificateHandlerGenerateErrors(t *testing.T) {
	handler := NewCertificateHandler(&fakeCertificateSrv{err: appErrors.Clone(appErrors.ErrIneligible, "student is not eligible")})

	c, rec := newJSONContext(http.MethodPost, "/certificates/generate", map[string]interface{}{"student_id": "stu-1", "course_id": "course-1"}, nil)
	handler.Generate(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newJSONContext(http.MethodPost, "/certificates/generate", map[string]interface{}{"student_id": "stu-1", "course_id": "course-1"}, handlerAdmin)
	handler.Generate(c)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, appErrors.ErrIneligible.Code, envelope.Error.Code)
}

func TestCertificateHandlerRevoke(t *testing.T) {
	svc := &fakeCertificateSrv{revoked: &models.Certificate{ID: "c1", Status: models.CertificateStatusRevoked}}
	handler := NewCertificateHandler(svc)

	c, rec := newJSONContext(http.MethodPut, "/certificates/c1/revoke", "not-an-object", handlerAdmin)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	handler.Revoke(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newJSONContext(http.MethodPut, "/certificates/c1/revoke", map[string]string{"reason": "duplicate enrollment"}, handlerAdmin)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	handler.Revoke(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "duplicate enrollment", svc.lastRevoke.Reason)

	svc.err = appErrors.Clone(appErrors.ErrInvalidState, "certificate is already revoked")
	c, rec = newJSONContext(http.MethodPut, "/certificates/c1/revoke", map[string]string{"reason": "again"}, handlerAdmin)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	handler.Revoke(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCertificateHandlerListByCourse(t *testing.T) {
	svc := &fakeCertificateSrv{
		list:       []models.Certificate{{ID: "c1"}},
		pagination: &models.Pagination{Page: 2, PageSize: 5, TotalCount: 6},
	}
	handler := NewCertificateHandler(svc)

	c, rec := newJSONContext(http.MethodGet, "/courses/course-1/certificates?page=2&limit=5&status=issued", nil, handlerAdmin)
	c.Params = gin.Params{{Key: "courseId", Value: "course-1"}}
	handler.ListByCourse(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, svc.lastPage)
	assert.Equal(t, 5, svc.lastLimit)
	assert.Equal(t, "issued", svc.lastStatus)
	var envelope struct {
		Pagination models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 6, envelope.Pagination.TotalCount)
}

func TestCertificateHandlerStats(t *testing.T) {
	svc := &fakeCertificateSrv{stats: &models.CertificateStats{TotalCertificates: 3}, statsHit: true}
	handler := NewCertificateHandler(svc)

	c, rec := newJSONContext(http.MethodGet, "/certificates/stats?courseId=course-1&from=2026-01-01", nil, handlerAdmin)
	handler.Stats(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "course-1", svc.lastFilter.CourseID)
	require.NotNil(t, svc.lastFilter.From)
	assert.Equal(t, 2026, svc.lastFilter.From.Year())

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Equal(t, float64(3), envelope.Data["total_certificates"])

	c, rec = newJSONContext(http.MethodGet, "/certificates/stats?from=yesterday", nil, handlerAdmin)
	handler.Stats(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCertificateHandlerExport(t *testing.T) {
	handler := NewCertificateHandler(&fakeCertificateSrv{csv: []byte("certificate_number\n")})

	c, rec := newJSONContext(http.MethodGet, "/courses/course-1/certificates/export", nil, handlerAdmin)
	c.Params = gin.Params{{Key: "courseId", Value: "course-1"}}
	handler.ExportCourse(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "certificates_course-1.csv")
	assert.Equal(t, "certificate_number\n", rec.Body.String())
}

type responseEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}
