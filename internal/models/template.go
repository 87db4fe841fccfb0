package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Template field names understood by the renderer.
const (
	FieldTitle          = "title"
	FieldStudentName    = "student_name"
	FieldCourseTitle    = "course_title"
	FieldInstructorName = "instructor_name"
	FieldCompletionDate = "completion_date"
	FieldGrade          = "grade"
	FieldQR             = "qr"

	FieldConnective        = "connective"
	FieldCourseLevel       = "course_level"
	FieldCourseDuration    = "course_duration"
	FieldCourseCategory    = "course_category"
	FieldCertificateNumber = "certificate_number"

	backgroundImageKey = "background_image"
)

// RequiredTextFields must all carry a position in every template.
var RequiredTextFields = []string{
	FieldTitle,
	FieldStudentName,
	FieldCourseTitle,
	FieldInstructorName,
	FieldCompletionDate,
	FieldGrade,
}

// FieldStyle positions one field on the canvas.
type FieldStyle struct {
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Size  float64 `json:"size" yaml:"size"`
	Color string  `json:"color,omitempty" yaml:"color,omitempty"`
	Font  string  `json:"font,omitempty" yaml:"font,omitempty"`
}

// TemplateConfig maps field names to styles plus an optional background image.
// On the wire it is a flat object: {"title": {...}, ..., "background_image": "https://..."}.
type TemplateConfig struct {
	Fields          map[string]FieldStyle `yaml:"fields"`
	BackgroundImage string                `yaml:"background_image,omitempty"`
}

// Field returns the configured style for name.
func (c TemplateConfig) Field(name string) (FieldStyle, bool) {
	style, ok := c.Fields[name]
	return style, ok
}

// MissingFields lists required text fields without a position.
func (c TemplateConfig) MissingFields() []string {
	var missing []string
	for _, name := range RequiredTextFields {
		if _, ok := c.Fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// MarshalJSON flattens fields and background image into one object.
func (c TemplateConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(c.Fields)+1)
	for name, style := range c.Fields {
		out[name] = style
	}
	if c.BackgroundImage != "" {
		out[backgroundImageKey] = c.BackgroundImage
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the flat object form. Keys whose value is not a field style are ignored.
func (c *TemplateConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cfg := TemplateConfig{Fields: make(map[string]FieldStyle, len(raw))}
	for key, value := range raw {
		if key == backgroundImageKey {
			if err := json.Unmarshal(value, &cfg.BackgroundImage); err != nil {
				return fmt.Errorf("decode %s: %w", backgroundImageKey, err)
			}
			continue
		}
		var style FieldStyle
		if err := json.Unmarshal(value, &style); err != nil {
			continue
		}
		cfg.Fields[key] = style
	}
	*c = cfg
	return nil
}

// Value implements driver.Valuer.
func (c TemplateConfig) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *TemplateConfig) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = TemplateConfig{Fields: map[string]FieldStyle{}}
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("unsupported template config type %T", src)
	}
}

// Template is a named certificate layout.
type Template struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Category       string         `db:"category" json:"category"`
	Description    string         `db:"description" json:"description"`
	PreviewImage   string         `db:"preview_image" json:"preview_image"`
	TemplateConfig TemplateConfig `db:"template_config" json:"template_config"`
	IsDefault      bool           `db:"is_default" json:"is_default"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}
