package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/pkg/civil"
)

var qrDocumentColumns = []string{"id", "company_id", "type", "extracted_date", "upload_date", "pdf", "extraction_confidence", "date_confirmed", "created_at"}

// QRDocumentRepository persists QR inspection documents.
type QRDocumentRepository struct {
	db *sqlx.DB
}

// NewQRDocumentRepository constructs the repository.
func NewQRDocumentRepository(db *sqlx.DB) *QRDocumentRepository {
	return &QRDocumentRepository{db: db}
}

// List returns the documents of a company, optionally narrowed by type or
// confirmation state.
func (r *QRDocumentRepository) List(ctx context.Context, companyID string, filter models.QRDocumentFilter) ([]models.QRDocument, error) {
	query := psql.Select(qrDocumentColumns...).
		From("qr_documents").
		Where(squirrel.Eq{"company_id": companyID}).
		OrderBy("created_at ASC", "id ASC")
	if filter.Type != nil {
		query = query.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.Unconfirmed {
		query = query.Where(squirrel.Eq{"date_confirmed": false})
	}

	docs := make([]models.QRDocument, 0)
	if err := selectInto(ctx, r.db, &docs, query, "list qr documents"); err != nil {
		return nil, err
	}
	return docs, nil
}

// Get returns a document scoped to the company.
func (r *QRDocumentRepository) Get(ctx context.Context, companyID, id string) (*models.QRDocument, error) {
	stmt, args, err := psql.Select(qrDocumentColumns...).
		From("qr_documents").
		Where(squirrel.Eq{"id": id, "company_id": companyID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get qr document query: %w", err)
	}
	var doc models.QRDocument
	if err := r.db.GetContext(ctx, &doc, stmt, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get qr document: %w", err)
	}
	return &doc, nil
}

// Create inserts a document.
func (r *QRDocumentRepository) Create(ctx context.Context, doc *models.QRDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.CreatedAt = time.Now().UTC()
	stmt, args, err := psql.Insert("qr_documents").
		Columns(qrDocumentColumns...).
		Values(doc.ID, doc.CompanyID, doc.Type, doc.ExtractedDate, doc.UploadDate, doc.PDF, doc.ExtractionConfidence, doc.DateConfirmed, doc.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create qr document query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("create qr document: %w", err)
	}
	return nil
}

// ConfirmDate overwrites the extracted date and marks it as confirmed.
func (r *QRDocumentRepository) ConfirmDate(ctx context.Context, companyID, id string, date civil.Date) error {
	stmt, args, err := psql.Update("qr_documents").
		Set("extracted_date", date).
		Set("date_confirmed", true).
		Where(squirrel.Eq{"id": id, "company_id": companyID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build confirm qr date query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("confirm qr date: %w", err)
	}
	return expectAffected(res, "confirm qr date")
}

// Delete removes a document.
func (r *QRDocumentRepository) Delete(ctx context.Context, companyID, id string) error {
	stmt, args, err := psql.Delete("qr_documents").
		Where(squirrel.Eq{"id": id, "company_id": companyID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete qr document query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete qr document: %w", err)
	}
	return expectAffected(res, "delete qr document")
}
