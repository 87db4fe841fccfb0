package dto

import "github.com/noah-isme/edu-certificate-api/internal/models"

// TemplateRequest captures template create/update payloads.
type TemplateRequest struct {
	Name           string                `json:"name" validate:"required,max=120"`
	Category       string                `json:"category" validate:"max=60"`
	Description    string                `json:"description" validate:"max=500"`
	PreviewImage   string                `json:"preview_image" validate:"omitempty,url"`
	TemplateConfig models.TemplateConfig `json:"template_config"`
	IsDefault      bool                  `json:"is_default"`
}

// TemplateListResponse lists templates.
type TemplateListResponse struct {
	Templates []models.Template `json:"templates"`
}
