package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/compliance-api/internal/models"
)

type auditRecorder interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// auditTrail writes audit entries on a best-effort basis.
type auditTrail struct {
	repo   auditRecorder
	logger *zap.Logger
}

func (a auditTrail) record(ctx context.Context, session *Session, action, resource, resourceID string) {
	if a.repo == nil {
		return
	}
	entry := &models.AuditLog{Action: action, Resource: resource}
	if session != nil && session.UserID != "" {
		userID := session.UserID
		entry.UserID = &userID
		if companyID := session.CompanyID(); companyID != "" {
			entry.CompanyID = &companyID
		}
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if err := a.repo.Create(ctx, entry); err != nil && a.logger != nil {
		a.logger.Warn("failed to record audit log", zap.String("action", action), zap.String("resource", resource), zap.Error(err))
	}
}
