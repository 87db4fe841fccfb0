package service

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/edu-certificate-api/internal/dto"
	"github.com/noah-isme/edu-certificate-api/internal/models"
	"github.com/noah-isme/edu-certificate-api/internal/repository"
	appErrors "github.com/noah-isme/edu-certificate-api/pkg/errors"
	"github.com/noah-isme/edu-certificate-api/pkg/export"
)

//go:embed templates/default.yaml
var defaultTemplatesYAML []byte

var hexColorPattern = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type templateRepository interface {
	List(ctx context.Context) ([]models.Template, error)
	FindByID(ctx context.Context, id string) (*models.Template, error)
	FindDefault(ctx context.Context) (*models.Template, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, tpl *models.Template) error
	Update(ctx context.Context, tpl *models.Template) error
	Delete(ctx context.Context, id string) error
}

// TemplateService manages certificate layouts.
type TemplateService struct {
	repo      templateRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTemplateService constructs the template service.
func NewTemplateService(repo templateRepository, validate *validator.Validate, logger *zap.Logger) *TemplateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{repo: repo, validator: validate, logger: logger}
}

// List returns all templates, default first.
func (s *TemplateService) List(ctx context.Context) ([]models.Template, error) {
	templates, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to load templates")
	}
	if templates == nil {
		templates = []models.Template{}
	}
	return templates, nil
}

// Get returns a template by id.
func (s *TemplateService) Get(ctx context.Context, id string) (*models.Template, error) {
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Upstream(err, "failed to load template")
	}
	return tpl, nil
}

// Resolve picks the template for a certificate: the explicit id when given, else the default.
// It returns nil without error when no default exists; the renderer then uses its built-in layout.
func (s *TemplateService) Resolve(ctx context.Context, id *string) (*models.Template, error) {
	if id != nil && strings.TrimSpace(*id) != "" {
		return s.Get(ctx, strings.TrimSpace(*id))
	}
	tpl, err := s.repo.FindDefault(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Upstream(err, "failed to load default template")
	}
	return tpl, nil
}

// Create validates and stores a template.
func (s *TemplateService) Create(ctx context.Context, req dto.TemplateRequest) (*models.Template, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	tpl := &models.Template{ID: uuid.NewString()}
	applyTemplateRequest(tpl, req)
	if err := s.repo.Create(ctx, tpl); err != nil {
		s.logger.Error("failed to create template", zap.Error(err))
		return nil, appErrors.Upstream(err, "failed to create template")
	}
	return tpl, nil
}

// Update replaces a template's content.
func (s *TemplateService) Update(ctx context.Context, id string, req dto.TemplateRequest) (*models.Template, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyTemplateRequest(tpl, req)
	if err := s.repo.Update(ctx, tpl); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		s.logger.Error("failed to update template", zap.String("template_id", id), zap.Error(err))
		return nil, appErrors.Upstream(err, "failed to update template")
	}
	return tpl, nil
}

// Delete removes a template no certificate references.
func (s *TemplateService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "template not found")
		case errors.Is(err, repository.ErrTemplateInUse):
			return appErrors.Clone(appErrors.ErrConflict, "template is used by issued certificates")
		}
		return appErrors.Upstream(err, "failed to delete template")
	}
	return nil
}

// SeedDefaults stores the embedded templates when none exist yet. It returns how many were created.
func (s *TemplateService) SeedDefaults(ctx context.Context) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	seeds, err := parseTemplateSeeds(defaultTemplatesYAML)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, seed := range seeds {
		if _, err := s.Create(ctx, seed); err != nil {
			return created, fmt.Errorf("seed template %s: %w", seed.Name, err)
		}
		created++
	}
	s.logger.Info("seeded certificate templates", zap.Int("count", created))
	return created, nil
}

type templateSeed struct {
	Name           string                `yaml:"name"`
	Category       string                `yaml:"category"`
	Description    string                `yaml:"description"`
	PreviewImage   string                `yaml:"preview_image"`
	IsDefault      bool                  `yaml:"is_default"`
	TemplateConfig models.TemplateConfig `yaml:"template_config"`
}

func parseTemplateSeeds(data []byte) ([]dto.TemplateRequest, error) {
	var doc struct {
		Templates []templateSeed `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse template seeds: %w", err)
	}
	out := make([]dto.TemplateRequest, 0, len(doc.Templates))
	for _, seed := range doc.Templates {
		out = append(out, dto.TemplateRequest{
			Name:           seed.Name,
			Category:       seed.Category,
			Description:    seed.Description,
			PreviewImage:   seed.PreviewImage,
			TemplateConfig: seed.TemplateConfig,
			IsDefault:      seed.IsDefault,
		})
	}
	return out, nil
}

func (s *TemplateService) validate(req dto.TemplateRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}
	return validateTemplateConfig(req.TemplateConfig)
}

func validateTemplateConfig(cfg models.TemplateConfig) error {
	if missing := cfg.MissingFields(); len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "template_config is missing positions for: "+strings.Join(missing, ", "))
	}
	for name, style := range cfg.Fields {
		if style.X < 0 || style.X > export.CanvasWidth || style.Y < 0 || style.Y > export.CanvasHeight {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is positioned outside the %gx%g canvas", name, export.CanvasWidth, export.CanvasHeight))
		}
		if style.Size < 0 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s size must not be negative", name))
		}
		if style.Color != "" && !hexColorPattern.MatchString(style.Color) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s color must be a hex value", name))
		}
	}
	if cfg.BackgroundImage != "" {
		u, err := url.Parse(cfg.BackgroundImage)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return appErrors.Clone(appErrors.ErrValidation, "background_image must be an http(s) URL")
		}
	}
	return nil
}

func applyTemplateRequest(tpl *models.Template, req dto.TemplateRequest) {
	tpl.Name = strings.TrimSpace(req.Name)
	tpl.Category = strings.TrimSpace(req.Category)
	tpl.Description = strings.TrimSpace(req.Description)
	tpl.PreviewImage = strings.TrimSpace(req.PreviewImage)
	tpl.TemplateConfig = req.TemplateConfig
	tpl.IsDefault = req.IsDefault
}
