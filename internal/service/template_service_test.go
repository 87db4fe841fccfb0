package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-certificate-api/internal/dto"
	"github.com/noah-isme/edu-certificate-api/internal/models"
	"github.com/noah-isme/edu-certificate-api/internal/repository"
	appErrors "github.com/noah-isme/edu-certificate-api/pkg/errors"
)

type templateRepoStub struct {
	items     map[string]models.Template
	order     []string
	deleteErr error
}

func newTemplateRepoStub() *templateRepoStub {
	return &templateRepoStub{items: map[string]models.Template{}}
}

func (s *templateRepoStub) List(ctx context.Context) ([]models.Template, error) {
	out := make([]models.Template, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out, nil
}

func (s *templateRepoStub) FindByID(ctx context.Context, id string) (*models.Template, error) {
	tpl, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &tpl, nil
}

func (s *templateRepoStub) FindDefault(ctx context.Context) (*models.Template, error) {
	for _, id := range s.order {
		if tpl := s.items[id]; tpl.IsDefault {
			return &tpl, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *templateRepoStub) Count(ctx context.Context) (int, error) {
	return len(s.items), nil
}

func (s *templateRepoStub) Create(ctx context.Context, tpl *models.Template) error {
	s.store(tpl)
	s.order = append(s.order, tpl.ID)
	return nil
}

func (s *templateRepoStub) Update(ctx context.Context, tpl *models.Template) error {
	if _, ok := s.items[tpl.ID]; !ok {
		return sql.ErrNoRows
	}
	s.store(tpl)
	return nil
}

func (s *templateRepoStub) Delete(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.items, id)
	return nil
}

// store round-trips the config through its JSON column encoding.
func (s *templateRepoStub) store(tpl *models.Template) {
	if tpl.IsDefault {
		for id, existing := range s.items {
			existing.IsDefault = false
			s.items[id] = existing
		}
	}
	raw, _ := tpl.TemplateConfig.Value()
	var cfg models.TemplateConfig
	_ = cfg.Scan(raw)
	copied := *tpl
	copied.TemplateConfig = cfg
	s.items[tpl.ID] = copied
}

func validTemplateRequest() dto.TemplateRequest {
	return dto.TemplateRequest{
		Name:     "Classic",
		Category: "general",
		TemplateConfig: models.TemplateConfig{
			Fields: map[string]models.FieldStyle{
				models.FieldTitle:          {X: 400, Y: 100, Size: 36, Color: "#1F2937", Font: "helvetica-bold"},
				models.FieldStudentName:    {X: 400, Y: 220, Size: 32, Color: "#1D4ED8", Font: "times-bold"},
				models.FieldCourseTitle:    {X: 400, Y: 300, Size: 24, Color: "#111827", Font: "helvetica"},
				models.FieldInstructorName: {X: 490, Y: 490, Size: 14, Color: "#1F2937", Font: "times-italic"},
				models.FieldCompletionDate: {X: 220, Y: 490, Size: 14, Color: "#1F2937", Font: "helvetica"},
				models.FieldGrade:          {X: 540, Y: 384, Size: 13, Color: "#374151", Font: "helvetica-bold"},
				models.FieldQR:             {X: 700, Y: 420, Size: 90},
			},
			BackgroundImage: "https://cdn.example.com/bg.png",
		},
	}
}

func TestTemplateServiceConfigRoundTrip(t *testing.T) {
	repo := newTemplateRepoStub()
	svc := NewTemplateService(repo, nil, nil)
	req := validTemplateRequest()

	created, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	loaded, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, req.TemplateConfig.Fields, loaded.TemplateConfig.Fields)
	assert.Equal(t, req.TemplateConfig.BackgroundImage, loaded.TemplateConfig.BackgroundImage)
}

func TestTemplateConfigFlatJSON(t *testing.T) {
	cfg := validTemplateRequest().TemplateConfig
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)

	var flat map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.Contains(t, flat, "background_image")
	assert.Contains(t, flat, models.FieldQR)

	var decoded models.TemplateConfig
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, cfg, decoded)
}

func TestTemplateConfigIgnoresUnknownKeys(t *testing.T) {
	raw := []byte(`{"title":{"x":400,"y":90,"size":36},"orientation":"landscape","version":2,"grade":{"x":"left"}}`)

	var cfg models.TemplateConfig
	require.NoError(t, cfg.Scan(raw))
	require.Len(t, cfg.Fields, 1)
	assert.Equal(t, models.FieldStyle{X: 400, Y: 90, Size: 36}, cfg.Fields[models.FieldTitle])

	assert.Error(t, cfg.Scan([]byte(`not json`)))
}

func TestTemplateServiceValidation(t *testing.T) {
	svc := NewTemplateService(newTemplateRepoStub(), nil, nil)

	missing := validTemplateRequest()
	delete(missing.TemplateConfig.Fields, models.FieldGrade)
	_, err := svc.Create(context.Background(), missing)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), models.FieldGrade)

	offCanvas := validTemplateRequest()
	offCanvas.TemplateConfig.Fields[models.FieldTitle] = models.FieldStyle{X: 900, Y: 100, Size: 20}
	_, err = svc.Create(context.Background(), offCanvas)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	badColor := validTemplateRequest()
	badColor.TemplateConfig.Fields[models.FieldTitle] = models.FieldStyle{X: 400, Y: 100, Size: 20, Color: "navy"}
	_, err = svc.Create(context.Background(), badColor)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	badBackground := validTemplateRequest()
	badBackground.TemplateConfig.BackgroundImage = "file:///etc/passwd"
	_, err = svc.Create(context.Background(), badBackground)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	unnamed := validTemplateRequest()
	unnamed.Name = ""
	_, err = svc.Create(context.Background(), unnamed)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	extra := validTemplateRequest()
	extra.TemplateConfig.Fields["watermark"] = models.FieldStyle{X: 10, Y: 10, Size: 8}
	_, err = svc.Create(context.Background(), extra)
	assert.NoError(t, err)
}

func TestTemplateServiceUpdateAndDelete(t *testing.T) {
	repo := newTemplateRepoStub()
	svc := NewTemplateService(repo, nil, nil)
	created, err := svc.Create(context.Background(), validTemplateRequest())
	require.NoError(t, err)

	req := validTemplateRequest()
	req.Name = "Classic v2"
	updated, err := svc.Update(context.Background(), created.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Classic v2", updated.Name)

	_, err = svc.Update(context.Background(), "missing", req)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	repo.deleteErr = repository.ErrTemplateInUse
	err = svc.Delete(context.Background(), created.ID)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	repo.deleteErr = nil
	require.NoError(t, svc.Delete(context.Background(), created.ID))
	assert.True(t, errors.Is(svc.Delete(context.Background(), created.ID), appErrors.ErrNotFound))
}

func TestTemplateServiceResolve(t *testing.T) {
	repo := newTemplateRepoStub()
	svc := NewTemplateService(repo, nil, nil)

	tpl, err := svc.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, tpl)

	req := validTemplateRequest()
	req.IsDefault = true
	def, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	tpl, err = svc.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, def.ID, tpl.ID)

	missing := "missing"
	_, err = svc.Resolve(context.Background(), &missing)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestTemplateServiceSeedDefaults(t *testing.T) {
	repo := newTemplateRepoStub()
	svc := NewTemplateService(repo, nil, nil)

	created, err := svc.SeedDefaults(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	def, err := svc.Resolve(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, "Classic", def.Name)
	assert.Empty(t, def.TemplateConfig.MissingFields())

	again, err := svc.SeedDefaults(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again)
}
