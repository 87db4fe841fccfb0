package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-certificate-api/internal/dto"
	"github.com/noah-isme/edu-certificate-api/internal/models"
	"github.com/noah-isme/edu-certificate-api/internal/service"
	"github.com/noah-isme/edu-certificate-api/pkg/response"
)

const pdfContentType = "application/pdf"

type downloadService interface {
	DownloadData(ctx context.Context, id string, actor *models.JWTClaims) (*dto.DownloadDataResponse, error)
	Render(ctx context.Context, id string, actor *models.JWTClaims) (*service.CertificateDocument, error)
	CreateDownloadLink(ctx context.Context, id string, actor *models.JWTClaims) (*dto.DownloadLinkResponse, error)
	OpenSignedLink(ctx context.Context, token string) (*service.CertificateDocument, error)
}

// DownloadHandler serves certificate documents.
type DownloadHandler struct {
	service downloadService
}

// NewDownloadHandler constructs the handler.
func NewDownloadHandler(service downloadService) *DownloadHandler {
	return &DownloadHandler{service: service}
}

// DownloadData godoc
// @Summary Certificate, template and QR data for rendering
// @Tags Downloads
// @Produce json
// @Param id path string true "Certificate ID"
// @Success 200 {object} response.Envelope
// @Router /certificates/{id}/download-data [get]
func (h *DownloadHandler) DownloadData(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	data, err := h.service.DownloadData(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, data, nil)
}

// Download godoc
// @Summary Download the rendered certificate PDF
// @Tags Downloads
// @Produce application/pdf
// @Param id path string true "Certificate ID"
// @Success 200 {file} file
// @Router /certificates/{id}/download [get]
func (h *DownloadHandler) Download(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	doc, err := h.service.Render(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, pdfContentType, doc.Filename, doc.Content)
}

// CreateLink godoc
// @Summary Create a signed download link
// @Tags Downloads
// @Produce json
// @Param id path string true "Certificate ID"
// @Success 201 {object} response.Envelope
// @Router /certificates/{id}/download-link [post]
func (h *DownloadHandler) CreateLink(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	link, err := h.service.CreateDownloadLink(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// OpenLink godoc
// @Summary Download a certificate through a signed link
// @Tags Downloads
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Router /certificates/files/{token} [get]
func (h *DownloadHandler) OpenLink(c *gin.Context) {
	doc, err := h.service.OpenSignedLink(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, pdfContentType, doc.Filename, doc.Content)
}
