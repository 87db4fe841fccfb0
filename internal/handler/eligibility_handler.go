package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-certificate-api/internal/models"
	"github.com/noah-isme/edu-certificate-api/pkg/response"
)

type eligibilityService interface {
	Evaluate(ctx context.Context, studentID, courseID string) (*models.EligibilityResult, error)
}

// EligibilityHandler exposes the eligibility check.
type EligibilityHandler struct {
	service eligibilityService
}

// NewEligibilityHandler constructs the handler.
func NewEligibilityHandler(service eligibilityService) *EligibilityHandler {
	return &EligibilityHandler{service: service}
}

// Evaluate godoc
// @Summary Evaluate certificate eligibility
// @Tags Eligibility
// @Produce json
// @Param courseId path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/eligibility/{studentId} [get]
func (h *EligibilityHandler) Evaluate(c *gin.Context) {
	result, err := h.service.Evaluate(c.Request.Context(), c.Param("studentId"), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
