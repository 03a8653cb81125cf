package dto

import "github.com/noah-isme/compliance-api/internal/models"

// ReportRequest captures POST /reports payload.
type ReportRequest struct {
	Type     models.ReportType   `json:"type"`
	Format   models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
	Statuses []string            `json:"statuses" validate:"omitempty,dive,oneof=EXPIRED DUE_SOON VALID UNKNOWN"`
	AsOf     string              `json:"asOf" validate:"omitempty,civildate"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
