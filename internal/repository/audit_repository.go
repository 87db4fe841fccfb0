package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edu-certificate-api/internal/models"
)

// AuditRepository stores audit trail events.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create stores an audit event.
func (r *AuditRepository) Create(ctx context.Context, event *models.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Payload == nil {
		event.Payload = models.Metadata{}
	}
	const query = `INSERT INTO audit_events (id, resource, resource_id, action, actor_id, payload, created_at)
VALUES (:id, :resource, :resource_id, :action, :actor_id, :payload, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create audit event: %w", err)
	}
	return nil
}

// ListByResource returns the trail of one resource, oldest first.
func (r *AuditRepository) ListByResource(ctx context.Context, resource, resourceID string) ([]models.AuditEvent, error) {
	const query = `SELECT id, resource, resource_id, action, actor_id, payload, created_at
FROM audit_events WHERE resource = $1 AND resource_id = $2 ORDER BY created_at ASC`
	var events []models.AuditEvent
	if err := r.db.SelectContext(ctx, &events, query, resource, resourceID); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
