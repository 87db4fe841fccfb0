package models

import "time"

// Audit resources.
const (
	AuditResourceCertificate = "certificate"
	AuditResourceTemplate    = "template"
)

// AuditAction constants represent actions to be logged.
const (
	AuditActionGenerate       = "CERTIFICATE_GENERATE"
	AuditActionIssue          = "CERTIFICATE_ISSUE"
	AuditActionRevoke         = "CERTIFICATE_REVOKE"
	AuditActionExpire         = "CERTIFICATE_EXPIRE"
	AuditActionTemplateCreate = "TEMPLATE_CREATE"
	AuditActionTemplateUpdate = "TEMPLATE_UPDATE"
	AuditActionTemplateDelete = "TEMPLATE_DELETE"
)

// AuditEvent represents an audit trail record.
type AuditEvent struct {
	ID         string    `db:"id" json:"id"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	ActorID    *string   `db:"actor_id" json:"actor_id,omitempty"`
	Payload    Metadata  `db:"payload" json:"payload"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
