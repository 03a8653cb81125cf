package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-api/internal/models"
)

type auditWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// Audit records one audit entry after a successful request. It is mounted on
// endpoints whose services do not audit themselves (file staging, reports).
func Audit(repo auditWriter, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if repo == nil || c.Writer.Status() >= 400 {
			return
		}

		entry := &models.AuditLog{
			Action:    action,
			Resource:  resource,
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		}
		if session := SessionFromContext(c); session != nil {
			userID := session.UserID
			entry.UserID = &userID
			if companyID := session.CompanyID(); companyID != "" {
				entry.CompanyID = &companyID
			}
		}
		if id := c.Param("id"); id != "" {
			entry.ResourceID = &id
		}

		_ = repo.Create(c.Request.Context(), entry)
	}
}
