package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-certificate-api/internal/models"
)

const auditResourceIDKey = "audit_resource_id"

// AuditWriter persists audit events.
type AuditWriter interface {
	Create(ctx context.Context, event *models.AuditEvent) error
}

// SetAuditResource records the affected resource id for routes without an :id parameter.
func SetAuditResource(c *gin.Context, id string) {
	c.Set(auditResourceIDKey, id)
}

// Audit records an audit event after successful requests.
func Audit(writer AuditWriter, logger *zap.Logger, action, resource string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if writer == nil || c.Writer.Status() >= 400 {
			return
		}

		event := &models.AuditEvent{
			Resource: resource,
			Action:   action,
			Payload: models.Metadata{
				"path":       c.FullPath(),
				"method":     c.Request.Method,
				"status":     c.Writer.Status(),
				"latency_ms": time.Since(start).Milliseconds(),
				"ip_address": c.ClientIP(),
				"user_agent": c.GetHeader("User-Agent"),
			},
		}
		if claims, ok := c.Get(ContextUserKey); ok {
			if user, ok := claims.(*models.JWTClaims); ok {
				event.ActorID = &user.UserID
			}
		}
		if id := c.Param("id"); id != "" {
			event.ResourceID = &id
		} else if value, ok := c.Get(auditResourceIDKey); ok {
			if id, ok := value.(string); ok && id != "" {
				event.ResourceID = &id
			}
		}

		if err := writer.Create(c.Request.Context(), event); err != nil {
			logger.Warn("failed to write audit event", zap.String("action", action), zap.Error(err))
		}
	}
}
