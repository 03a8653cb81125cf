package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/compliance-api/internal/models"
)

const selfProtectionColumns = `id, company_id, probatory_disposition_date, probatory_disposition_pdf, extension_date, extension_pdf, expiration_date, drills, intervener, registration_number, created_at, updated_at`

// SelfProtectionRepository persists self-protection systems.
type SelfProtectionRepository struct {
	db *sqlx.DB
}

// NewSelfProtectionRepository constructs the repository.
func NewSelfProtectionRepository(db *sqlx.DB) *SelfProtectionRepository {
	return &SelfProtectionRepository{db: db}
}

// List returns the systems of a company in creation order.
func (r *SelfProtectionRepository) List(ctx context.Context, companyID string) ([]models.SelfProtectionSystem, error) {
	const query = `SELECT ` + selfProtectionColumns + ` FROM self_protection_systems WHERE company_id = $1 ORDER BY created_at ASC, id ASC`
	systems := make([]models.SelfProtectionSystem, 0)
	if err := r.db.SelectContext(ctx, &systems, query, companyID); err != nil {
		return nil, fmt.Errorf("list self-protection systems: %w", err)
	}
	return systems, nil
}

// Get returns a system scoped to the company.
func (r *SelfProtectionRepository) Get(ctx context.Context, companyID, id string) (*models.SelfProtectionSystem, error) {
	const query = `SELECT ` + selfProtectionColumns + ` FROM self_protection_systems WHERE id = $1 AND company_id = $2`
	var sys models.SelfProtectionSystem
	if err := r.db.GetContext(ctx, &sys, query, id, companyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get self-protection system: %w", err)
	}
	return &sys, nil
}

// Create inserts a system.
func (r *SelfProtectionRepository) Create(ctx context.Context, sys *models.SelfProtectionSystem) error {
	if sys.ID == "" {
		sys.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sys.CreatedAt = now
	sys.UpdatedAt = now
	const query = `INSERT INTO self_protection_systems (` + selfProtectionColumns + `) VALUES (:id, :company_id, :probatory_disposition_date, :probatory_disposition_pdf, :extension_date, :extension_pdf, :expiration_date, :drills, :intervener, :registration_number, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sys); err != nil {
		return fmt.Errorf("create self-protection system: %w", err)
	}
	return nil
}

// Update replaces every mutable field of the system, derived dates included.
func (r *SelfProtectionRepository) Update(ctx context.Context, sys *models.SelfProtectionSystem) error {
	sys.UpdatedAt = time.Now().UTC()
	const query = `UPDATE self_protection_systems SET probatory_disposition_date = :probatory_disposition_date, probatory_disposition_pdf = :probatory_disposition_pdf, extension_date = :extension_date, extension_pdf = :extension_pdf, expiration_date = :expiration_date, drills = :drills, intervener = :intervener, registration_number = :registration_number, updated_at = :updated_at WHERE id = :id AND company_id = :company_id`
	res, err := r.db.NamedExecContext(ctx, query, sys)
	if err != nil {
		return fmt.Errorf("update self-protection system: %w", err)
	}
	return expectAffected(res, "update self-protection system")
}

// Delete removes a system.
func (r *SelfProtectionRepository) Delete(ctx context.Context, companyID, id string) error {
	const query = `DELETE FROM self_protection_systems WHERE id = $1 AND company_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, companyID)
	if err != nil {
		return fmt.Errorf("delete self-protection system: %w", err)
	}
	return expectAffected(res, "delete self-protection system")
}
