package service

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/noah-isme/compliance-api/internal/compliance"
	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/internal/ocr"
	"github.com/noah-isme/compliance-api/pkg/civil"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
)

type qrDocumentStore interface {
	List(ctx context.Context, companyID string, filter models.QRDocumentFilter) ([]models.QRDocument, error)
	Get(ctx context.Context, companyID, id string) (*models.QRDocument, error)
	Create(ctx context.Context, doc *models.QRDocument) error
	ConfirmDate(ctx context.Context, companyID, id string, date civil.Date) error
	Delete(ctx context.Context, companyID, id string) error
}

type qrFiles interface {
	Store(ctx context.Context, companyID, folder string, upload FileUpload) (models.FileRef, error)
	Discard(ctx context.Context, keys ...string)
}

type extractionRecorder interface {
	RecordExtraction(source, outcome string)
}

// QRDocumentConfig tunes date extraction.
type QRDocumentConfig struct {
	// MinConfidence is the threshold at or above which an extracted date is
	// accepted without confirmation.
	MinConfidence float64
}

// QRDocumentService manages QR inspection documents.
type QRDocumentService struct {
	repo      qrDocumentStore
	files     qrFiles
	extractor ocr.Extractor
	metrics   extractionRecorder
	cache     companyCacheInvalidator
	audit     auditTrail
	clock     Clock
	logger    *zap.Logger
	cfg       QRDocumentConfig
}

// NewQRDocumentService constructs the service.
func NewQRDocumentService(repo qrDocumentStore, files qrFiles, extractor ocr.Extractor, metrics extractionRecorder, cache companyCacheInvalidator, audit auditRecorder, clock Clock, logger *zap.Logger, cfg QRDocumentConfig) *QRDocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinConfidence <= 0 || cfg.MinConfidence > 1 {
		cfg.MinConfidence = 0.8
	}
	return &QRDocumentService{
		repo:      repo,
		files:     files,
		extractor: extractor,
		metrics:   metrics,
		cache:     cache,
		audit:     auditTrail{repo: audit, logger: logger},
		clock:     clock,
		logger:    logger,
		cfg:       cfg,
	}
}

// List returns the company's documents, optionally of one type, with their
// nominal expiry filled in.
func (s *QRDocumentService) List(ctx context.Context, session *Session, filter models.QRDocumentFilter) ([]models.QRDocument, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	docs, err := s.repo.List(ctx, company.ID, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list QR documents")
	}
	for i := range docs {
		withExpiry(&docs[i])
	}
	return docs, nil
}

// Upload stores the PDF, extracts its date and persists the document.
// Dates extracted below the confidence threshold stay unconfirmed.
func (s *QRDocumentService) Upload(ctx context.Context, session *Session, rawType string, upload FileUpload) (*models.QRDocument, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	docType, ok := models.ParseQRDocumentType(rawType)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown QR document type")
	}
	if !company.Services.Enabled(docType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "service not enabled for this company")
	}

	ref, err := s.files.Store(ctx, company.ID, FolderQR(docType), upload)
	if err != nil {
		return nil, err
	}
	data, err := readUpload(upload)
	if err != nil {
		s.files.Discard(ctx, ref.Key)
		return nil, appErrors.Internal(err, "failed to read upload")
	}

	result, err := s.extractor.Extract(ctx, ocr.Document{Name: ref.Name, ContentType: ref.ContentType, Data: data})
	if err != nil {
		s.files.Discard(ctx, ref.Key)
		s.recordExtraction("none", "failed")
		if errors.Is(err, ocr.ErrNoDate) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "no se pudo extraer la fecha del documento")
		}
		return nil, appErrors.Internal(err, "failed to extract document date")
	}
	confirmed := result.Confidence >= s.cfg.MinConfidence
	outcome := "provisional"
	if confirmed {
		outcome = "confirmed"
	}
	s.recordExtraction(result.Source, outcome)

	doc := &models.QRDocument{
		CompanyID:            company.ID,
		Type:                 docType,
		ExtractedDate:        result.Date,
		UploadDate:           s.clock.Today(),
		PDF:                  ref,
		ExtractionConfidence: result.Confidence,
		DateConfirmed:        confirmed,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		s.files.Discard(ctx, ref.Key)
		return nil, appErrors.Internal(err, "failed to create QR document")
	}
	withExpiry(doc)
	s.mutated(ctx, session, models.AuditActionCreate, doc.ID)
	return doc, nil
}

// ConfirmDate replaces the extracted date with a user-confirmed one.
func (s *QRDocumentService) ConfirmDate(ctx context.Context, session *Session, id string, req dto.ConfirmDateRequest) (*models.QRDocument, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	if req.Date.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is required")
	}
	if err := s.repo.ConfirmDate(ctx, company.ID, id, req.Date); err != nil {
		return nil, storeError(err, "QR document", "confirm")
	}
	doc, err := s.repo.Get(ctx, company.ID, id)
	if err != nil {
		return nil, storeError(err, "QR document", "load")
	}
	withExpiry(doc)
	s.mutated(ctx, session, models.AuditActionUpdate, id)
	return doc, nil
}

// Delete removes a document and its PDF.
func (s *QRDocumentService) Delete(ctx context.Context, session *Session, id string) error {
	company, err := session.requireCompany()
	if err != nil {
		return err
	}
	existing, err := s.repo.Get(ctx, company.ID, id)
	if err != nil {
		return storeError(err, "QR document", "load")
	}
	if err := s.repo.Delete(ctx, company.ID, id); err != nil {
		return storeError(err, "QR document", "delete")
	}
	if existing.PDF.IsStored() {
		s.files.Discard(ctx, existing.PDF.Key)
	}
	s.mutated(ctx, session, models.AuditActionDelete, id)
	return nil
}

func (s *QRDocumentService) mutated(ctx context.Context, session *Session, action, id string) {
	if s.cache != nil {
		s.cache.InvalidateCompany(ctx, session.CompanyID())
	}
	s.audit.record(ctx, session, action, "qr_document", id)
}

func (s *QRDocumentService) recordExtraction(source, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordExtraction(source, outcome)
	}
}

func withExpiry(doc *models.QRDocument) {
	if doc.ExtractedDate.IsZero() {
		return
	}
	exp := compliance.DeriveQRNominalExpiry(doc.ExtractedDate)
	doc.ExpirationDate = &exp
}

func readUpload(upload FileUpload) ([]byte, error) {
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(upload.Content)
}
