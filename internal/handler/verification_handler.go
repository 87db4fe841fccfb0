package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-certificate-api/internal/dto"
	"github.com/noah-isme/edu-certificate-api/pkg/response"
)

type verificationService interface {
	Verify(ctx context.Context, raw string) dto.VerifyCertificateResponse
}

// VerificationHandler serves the public verification endpoint.
type VerificationHandler struct {
	service verificationService
}

// NewVerificationHandler constructs the handler.
func NewVerificationHandler(service verificationService) *VerificationHandler {
	return &VerificationHandler{service: service}
}

// Verify godoc
// @Summary Verify a certificate number
// @Description Public lookup. Always answers 200 with valid=false and a reason for unknown, revoked, expired or malformed numbers.
// @Tags Verification
// @Produce json
// @Param number path string true "Certificate number"
// @Success 200 {object} response.Envelope
// @Router /verify/{number} [get]
func (h *VerificationHandler) Verify(c *gin.Context) {
	result := h.service.Verify(c.Request.Context(), c.Param("number"))
	response.JSON(c, http.StatusOK, result, nil)
}
