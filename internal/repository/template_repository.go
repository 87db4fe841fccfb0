package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/edu-certificate-api/internal/models"
)

// ErrTemplateInUse signals a template still referenced by certificates.
var ErrTemplateInUse = errors.New("template is referenced by certificates")

const templateColumns = `id, name, category, description, preview_image, template_config, is_default, created_at, updated_at`

// TemplateRepository persists certificate templates.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository constructs the repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// List returns all templates, default first.
func (r *TemplateRepository) List(ctx context.Context) ([]models.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM certificate_templates ORDER BY is_default DESC, name ASC`
	var templates []models.Template
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// FindByID fetches a template by id.
func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*models.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM certificate_templates WHERE id = $1`
	var tpl models.Template
	if err := r.db.GetContext(ctx, &tpl, query, id); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// FindDefault fetches the template flagged as default.
func (r *TemplateRepository) FindDefault(ctx context.Context) (*models.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM certificate_templates WHERE is_default = TRUE LIMIT 1`
	var tpl models.Template
	if err := r.db.GetContext(ctx, &tpl, query); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Count returns the number of stored templates.
func (r *TemplateRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM certificate_templates`); err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	return total, nil
}

// Create inserts a template. A new default demotes the previous one in the same transaction.
func (r *TemplateRepository) Create(ctx context.Context, tpl *models.Template) error {
	now := time.Now().UTC()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now
	const query = `INSERT INTO certificate_templates (id, name, category, description, preview_image, template_config, is_default, created_at, updated_at)
VALUES (:id, :name, :category, :description, :preview_image, :template_config, :is_default, :created_at, :updated_at)`
	return r.withDefault(ctx, tpl, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, query, tpl); err != nil {
			return fmt.Errorf("create template: %w", err)
		}
		return nil
	})
}

// Update overwrites a template. It returns sql.ErrNoRows when the id is unknown.
func (r *TemplateRepository) Update(ctx context.Context, tpl *models.Template) error {
	tpl.UpdatedAt = time.Now().UTC()
	const query = `UPDATE certificate_templates SET name = :name, category = :category, description = :description,
preview_image = :preview_image, template_config = :template_config, is_default = :is_default, updated_at = :updated_at
WHERE id = :id`
	return r.withDefault(ctx, tpl, func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, query, tpl)
		if err != nil {
			return fmt.Errorf("update template: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update template rows: %w", err)
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// Delete removes a template. It returns sql.ErrNoRows when the id is unknown and
// ErrTemplateInUse when certificates still reference it.
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM certificate_templates WHERE id = $1`, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqForeignKeyViolation && pqErr.Constraint == constraintTemplateReference {
			return ErrTemplateInUse
		}
		return fmt.Errorf("delete template: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete template rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// InUse reports whether any certificate references the template.
func (r *TemplateRepository) InUse(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM certificates WHERE template_id = $1)`, id); err != nil {
		return false, fmt.Errorf("template usage: %w", err)
	}
	return exists, nil
}

func (r *TemplateRepository) withDefault(ctx context.Context, tpl *models.Template, write func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin template tx: %w", err)
	}
	if tpl.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE certificate_templates SET is_default = FALSE, updated_at = $2 WHERE is_default = TRUE AND id <> $1`, tpl.ID, tpl.UpdatedAt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clear default template: %w", err)
		}
	}
	if err := write(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit template tx: %w", err)
	}
	return nil
}
