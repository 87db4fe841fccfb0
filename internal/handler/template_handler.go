package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-certificate-api/internal/dto"
	"github.com/noah-isme/edu-certificate-api/internal/middleware"
	"github.com/noah-isme/edu-certificate-api/internal/models"
	"github.com/noah-isme/edu-certificate-api/pkg/response"
)

type templateService interface {
	List(ctx context.Context) ([]models.Template, error)
	Get(ctx context.Context, id string) (*models.Template, error)
	Create(ctx context.Context, req dto.TemplateRequest) (*models.Template, error)
	Update(ctx context.Context, id string, req dto.TemplateRequest) (*models.Template, error)
	Delete(ctx context.Context, id string) error
}

// TemplateHandler exposes certificate template CRUD.
type TemplateHandler struct {
	service templateService
}

// NewTemplateHandler constructs the handler.
func NewTemplateHandler(service templateService) *TemplateHandler {
	return &TemplateHandler{service: service}
}

// List godoc
// @Summary List certificate templates
// @Tags Templates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /templates [get]
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.TemplateListResponse{Templates: templates}, nil)
}

// Get godoc
// @Summary Get a certificate template
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Router /templates/{id} [get]
func (h *TemplateHandler) Get(c *gin.Context) {
	tpl, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// Create godoc
// @Summary Create a certificate template
// @Tags Templates
// @Accept json
// @Produce json
// @Param payload body dto.TemplateRequest true "Template payload"
// @Success 201 {object} response.Envelope
// @Router /templates [post]
func (h *TemplateHandler) Create(c *gin.Context) {
	var req dto.TemplateRequest
	if !bindJSON(c, &req) {
		return
	}
	tpl, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResource(c, tpl.ID)
	response.Created(c, tpl)
}

// Update godoc
// @Summary Update a certificate template
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body dto.TemplateRequest true "Template payload"
// @Success 200 {object} response.Envelope
// @Router /templates/{id} [put]
func (h *TemplateHandler) Update(c *gin.Context) {
	var req dto.TemplateRequest
	if !bindJSON(c, &req) {
		return
	}
	tpl, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// Delete godoc
// @Summary Delete a certificate template
// @Tags Templates
// @Param id path string true "Template ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /templates/{id} [delete]
func (h *TemplateHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
