package models

import "time"

// Audit actions recorded for compliance artifacts and session changes.
const (
	AuditActionLogin     = "LOGIN"
	AuditActionLogout    = "LOGOUT"
	AuditActionRegister  = "REGISTER"
	AuditActionCreate    = "CREATE"
	AuditActionUpdate    = "UPDATE"
	AuditActionDelete    = "DELETE"
	AuditActionSubscribe = "SUBSCRIBE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	CompanyID  *string   `db:"company_id" json:"companyId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
