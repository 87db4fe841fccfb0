package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-certificate-api/internal/dto"
	"github.com/noah-isme/edu-certificate-api/internal/middleware"
	"github.com/noah-isme/edu-certificate-api/internal/models"
	appErrors "github.com/noah-isme/edu-certificate-api/pkg/errors"
	"github.com/noah-isme/edu-certificate-api/pkg/response"
)

type certificateService interface {
	Generate(ctx context.Context, req dto.GenerateCertificateRequest, actor *models.JWTClaims) (*dto.CertificateResult, error)
	Issue(ctx context.Context, req dto.IssueCertificateRequest, actor *models.JWTClaims) (*dto.CertificateResult, error)
	Revoke(ctx context.Context, id string, req dto.RevokeCertificateRequest, actor *models.JWTClaims) (*models.Certificate, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Certificate, error)
	ListByStudent(ctx context.Context, studentID string, actor *models.JWTClaims) ([]models.Certificate, error)
	ListByCourse(ctx context.Context, courseID string, status string, page, pageSize int) ([]models.Certificate, *models.Pagination, error)
	Stats(ctx context.Context, filter models.StatsFilter) (*models.CertificateStats, bool, error)
	ExportCourseRoster(ctx context.Context, courseID string) ([]byte, string, error)
	History(ctx context.Context, id string, actor *models.JWTClaims) ([]models.AuditEvent, error)
}

// CertificateHandler exposes certificate lifecycle endpoints.
type CertificateHandler struct {
	service certificateService
}

// NewCertificateHandler constructs the handler.
func NewCertificateHandler(service certificateService) *CertificateHandler {
	return &CertificateHandler{service: service}
}

// Generate godoc
// @Summary Generate a certificate after an eligibility check
// @Tags Certificates
// @Accept json
// @Produce json
// @Param payload body dto.GenerateCertificateRequest true "Generate payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope "Existing certificate returned"
// @Failure 422 {object} response.Envelope
// @Router /certificates/generate [post]
func (h *CertificateHandler) Generate(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.GenerateCertificateRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondResult(c, result)
}

// Issue godoc
// @Summary Issue a certificate directly
// @Tags Certificates
// @Accept json
// @Produce json
// @Param payload body dto.IssueCertificateRequest true "Issue payload"
// @Success 201 {object} response.Envelope
// @Router /certificates/issue [post]
func (h *CertificateHandler) Issue(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.IssueCertificateRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Issue(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondResult(c, result)
}

// Revoke godoc
// @Summary Revoke a certificate
// @Tags Certificates
// @Accept json
// @Produce json
// @Param id path string true "Certificate ID"
// @Param payload body dto.RevokeCertificateRequest true "Revocation reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /certificates/{id}/revoke [put]
func (h *CertificateHandler) Revoke(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.RevokeCertificateRequest
	if !bindJSON(c, &req) {
		return
	}
	cert, err := h.service.Revoke(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RevokeCertificateResponse{Success: true, Certificate: cert}, nil)
}

// Get godoc
// @Summary Get a certificate
// @Tags Certificates
// @Produce json
// @Param id path string true "Certificate ID"
// @Success 200 {object} response.Envelope
// @Router /certificates/{id} [get]
func (h *CertificateHandler) Get(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	cert, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cert, nil)
}

// History godoc
// @Summary Certificate audit history
// @Tags Certificates
// @Produce json
// @Param id path string true "Certificate ID"
// @Success 200 {object} response.Envelope
// @Router /certificates/{id}/history [get]
func (h *CertificateHandler) History(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	events, err := h.service.History(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// ListByStudent godoc
// @Summary List a student's certificates
// @Tags Certificates
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/certificates [get]
func (h *CertificateHandler) ListByStudent(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	certs, err := h.service.ListByStudent(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.CertificateListResponse{Certificates: certs}, nil)
}

// ListByCourse godoc
// @Summary List a course's certificates
// @Tags Certificates
// @Produce json
// @Param courseId path string true "Course ID"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/certificates [get]
func (h *CertificateHandler) ListByCourse(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)
	certs, pagination, err := h.service.ListByCourse(c.Request.Context(), c.Param("courseId"), strings.TrimSpace(c.Query("status")), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.CertificateListResponse{Certificates: certs}, pagination)
}

// ExportCourse godoc
// @Summary Export a course's certificates as CSV
// @Tags Certificates
// @Produce text/csv
// @Param courseId path string true "Course ID"
// @Success 200 {file} file
// @Router /courses/{courseId}/certificates/export [get]
func (h *CertificateHandler) ExportCourse(c *gin.Context) {
	payload, filename, err := h.service.ExportCourseRoster(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "text/csv; charset=utf-8", filename, payload)
}

// Stats godoc
// @Summary Certificate statistics
// @Tags Certificates
// @Produce json
// @Param courseId query string false "Course ID"
// @Param from query string false "Issued from (YYYY-MM-DD)"
// @Param to query string false "Issued to (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /certificates/stats [get]
func (h *CertificateHandler) Stats(c *gin.Context) {
	var filter models.StatsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD"))
		return
	}
	start := time.Now()
	stats, cacheHit, err := h.service.Stats(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, stats, nil, meta)
}

func respondResult(c *gin.Context, result *dto.CertificateResult) {
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.JSON(c, status, result, nil)
}
