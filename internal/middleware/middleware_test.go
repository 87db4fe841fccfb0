package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-certificate-api/internal/models"
	appErrors "github.com/noah-isme/edu-certificate-api/pkg/errors"
)

type validatorStub struct {
	claims map[string]*models.JWTClaims
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v.claims[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type auditWriterStub struct {
	events []models.AuditEvent
}

func (s *auditWriterStub) Create(ctx context.Context, event *models.AuditEvent) error {
	s.events = append(s.events, *event)
	return nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() (*gin.Engine, *auditWriterStub) {
	validator := validatorStub{claims: map[string]*models.JWTClaims{
		"admin":   {UserID: "admin-1", Role: models.RoleAdmin},
		"student": {UserID: "stu-1", Role: models.RoleStudent},
	}}
	audit := &auditWriterStub{}
	r := gin.New()
	api := r.Group("/", JWT(validator))
	api.GET("/students/:studentId/certificates", RBAC(string(models.RoleAdmin), Self), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	api.POST("/certificates/:id/revoke", RequirePrivileged(), Audit(audit, nil, models.AuditActionRevoke, models.AuditResourceCertificate), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	api.POST("/templates", Audit(audit, nil, models.AuditActionTemplateCreate, models.AuditResourceTemplate), func(c *gin.Context) {
		SetAuditResource(c, "tpl-9")
		c.Status(http.StatusCreated)
	})
	return r, audit
}

func perform(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	r, _ := newTestRouter()

	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/students/stu-1/certificates", "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/students/stu-1/certificates", "forged").Code)

	req := httptest.NewRequest(http.MethodGet, "/students/stu-1/certificates", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRBACSelfAndRoles(t *testing.T) {
	r, _ := newTestRouter()

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/students/stu-1/certificates", "student").Code)
	assert.Equal(t, http.StatusForbidden, perform(r, http.MethodGet, "/students/stu-2/certificates", "student").Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/students/stu-2/certificates", "admin").Code)
	assert.Equal(t, http.StatusForbidden, perform(r, http.MethodPost, "/certificates/c1/revoke", "student").Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	r, audit := newTestRouter()

	require.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/certificates/c1/revoke", "admin").Code)
	require.Equal(t, http.StatusCreated, perform(r, http.MethodPost, "/templates", "admin").Code)
	perform(r, http.MethodPost, "/certificates/c1/revoke", "student")

	require.Len(t, audit.events, 2)
	assert.Equal(t, models.AuditActionRevoke, audit.events[0].Action)
	assert.Equal(t, "c1", *audit.events[0].ResourceID)
	assert.Equal(t, "admin-1", *audit.events[0].ActorID)
	assert.Equal(t, "tpl-9", *audit.events[1].ResourceID)
}

func TestResponseMeta(t *testing.T) {
	r := gin.New()
	var meta map[string]interface{}
	r.GET("/stats", WithResponseMeta(), func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	perform(r, http.MethodGet, "/stats", "")
	assert.Equal(t, true, meta["cache_hit"])
}
