package dto

import (
	"time"

	"github.com/noah-isme/compliance-api/internal/compliance"
	"github.com/noah-isme/compliance-api/pkg/civil"
)

// DashboardResponse is the prioritized expiration view of a company.
type DashboardResponse struct {
	Today       civil.Date                 `json:"today"`
	Items       []compliance.ExpirableItem `json:"items"`
	Summary     compliance.Summary         `json:"summary"`
	GeneratedAt time.Time                  `json:"generatedAt"`
}

// DashboardQuery narrows the dashboard view.
type DashboardQuery struct {
	Statuses []compliance.Status
}
