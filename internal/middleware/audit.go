package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry *models.AuditLog)
}

// Audit records one entry per successful request. The resource id is taken from the :id route
// parameter when present; handlers may override it with SetAuditResourceID.
func Audit(recorder AuditRecorder, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if recorder == nil || c.Writer.Status() >= 400 {
			return
		}

		entry := &models.AuditLog{
			Action:    action,
			Resource:  resource,
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
			CreatedAt: start,
		}
		if claims := Claims(c); claims != nil {
			userID := claims.UserID
			entry.UserID = &userID
		}
		if id := auditResourceID(c); id != "" {
			entry.ResourceID = &id
		}
		body, _ := json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})
		entry.NewValues = body

		recorder.Record(c.Request.Context(), entry)
	}
}

const auditResourceKey = "audit_resource_id"

// SetAuditResourceID names the record a handler created so Audit can reference it.
func SetAuditResourceID(c *gin.Context, id string) {
	c.Set(auditResourceKey, id)
}

func auditResourceID(c *gin.Context) string {
	if id := c.GetString(auditResourceKey); id != "" {
		return id
	}
	return c.Param("id")
}
