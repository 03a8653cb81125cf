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

const certificateColumns = `id, company_id, presentation_date, expiration_date, intervener, registration_number, pdf, created_at, updated_at`

// CertificateRepository persists conservation certificates.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository constructs the repository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// List returns the certificates of a company in creation order.
func (r *CertificateRepository) List(ctx context.Context, companyID string) ([]models.ConservationCertificate, error) {
	const query = `SELECT ` + certificateColumns + ` FROM conservation_certificates WHERE company_id = $1 ORDER BY created_at ASC, id ASC`
	certs := make([]models.ConservationCertificate, 0)
	if err := r.db.SelectContext(ctx, &certs, query, companyID); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}

// Get returns a certificate scoped to the company.
func (r *CertificateRepository) Get(ctx context.Context, companyID, id string) (*models.ConservationCertificate, error) {
	const query = `SELECT ` + certificateColumns + ` FROM conservation_certificates WHERE id = $1 AND company_id = $2`
	var cert models.ConservationCertificate
	if err := r.db.GetContext(ctx, &cert, query, id, companyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return &cert, nil
}

// Create inserts a certificate.
func (r *CertificateRepository) Create(ctx context.Context, cert *models.ConservationCertificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cert.CreatedAt = now
	cert.UpdatedAt = now
	const query = `INSERT INTO conservation_certificates (` + certificateColumns + `) VALUES (:id, :company_id, :presentation_date, :expiration_date, :intervener, :registration_number, :pdf, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

// Update replaces every mutable field of the certificate.
func (r *CertificateRepository) Update(ctx context.Context, cert *models.ConservationCertificate) error {
	cert.UpdatedAt = time.Now().UTC()
	const query = `UPDATE conservation_certificates SET presentation_date = :presentation_date, expiration_date = :expiration_date, intervener = :intervener, registration_number = :registration_number, pdf = :pdf, updated_at = :updated_at WHERE id = :id AND company_id = :company_id`
	res, err := r.db.NamedExecContext(ctx, query, cert)
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	return expectAffected(res, "update certificate")
}

// Delete removes a certificate.
func (r *CertificateRepository) Delete(ctx context.Context, companyID, id string) error {
	const query = `DELETE FROM conservation_certificates WHERE id = $1 AND company_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, companyID)
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	return expectAffected(res, "delete certificate")
}
