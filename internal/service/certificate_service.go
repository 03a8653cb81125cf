package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/models"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
)

type certificateStore interface {
	List(ctx context.Context, companyID string) ([]models.ConservationCertificate, error)
	Get(ctx context.Context, companyID, id string) (*models.ConservationCertificate, error)
	Create(ctx context.Context, cert *models.ConservationCertificate) error
	Update(ctx context.Context, cert *models.ConservationCertificate) error
	Delete(ctx context.Context, companyID, id string) error
}

// CertificateService manages conservation certificates.
type CertificateService struct {
	repo certificateStore
	artifactDeps
}

// NewCertificateService constructs the service.
func NewCertificateService(repo certificateStore, files artifactFiles, cache companyCacheInvalidator, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *CertificateService {
	return &CertificateService{repo: repo, artifactDeps: newArtifactDeps(files, cache, audit, validate, logger)}
}

// List returns the company's certificates.
func (s *CertificateService) List(ctx context.Context, session *Session) ([]models.ConservationCertificate, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	certs, err := s.repo.List(ctx, company.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list certificates")
	}
	return certs, nil
}

// Create stores a new certificate and commits its PDF.
func (s *CertificateService) Create(ctx context.Context, session *Session, req dto.CertificateRequest) (*models.ConservationCertificate, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	cert, err := s.build(req)
	if err != nil {
		return nil, err
	}
	cert.CompanyID = company.ID
	err = s.persist(ctx, company.ID, FolderCertificates, nil, []*models.FileRef{&cert.PDF}, func() error {
		return s.repo.Create(ctx, cert)
	})
	if err != nil {
		return nil, storeError(err, "certificate", "create")
	}
	s.mutated(ctx, session, models.AuditActionCreate, "certificate", cert.ID)
	return cert, nil
}

// Update replaces a certificate. A replaced PDF is removed from storage.
func (s *CertificateService) Update(ctx context.Context, session *Session, id string, req dto.CertificateRequest) (*models.ConservationCertificate, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.Get(ctx, company.ID, id)
	if err != nil {
		return nil, storeError(err, "certificate", "load")
	}
	cert, err := s.build(req)
	if err != nil {
		return nil, err
	}
	cert.ID = existing.ID
	cert.CompanyID = company.ID
	cert.CreatedAt = existing.CreatedAt
	err = s.persist(ctx, company.ID, FolderCertificates, []models.FileRef{existing.PDF}, []*models.FileRef{&cert.PDF}, func() error {
		return s.repo.Update(ctx, cert)
	})
	if err != nil {
		return nil, storeError(err, "certificate", "update")
	}
	s.files.DiscardReplaced(ctx, []models.FileRef{existing.PDF}, []models.FileRef{cert.PDF})
	s.mutated(ctx, session, models.AuditActionUpdate, "certificate", cert.ID)
	return cert, nil
}

// Delete removes a certificate together with its PDF.
func (s *CertificateService) Delete(ctx context.Context, session *Session, id string) error {
	company, err := session.requireCompany()
	if err != nil {
		return err
	}
	existing, err := s.repo.Get(ctx, company.ID, id)
	if err != nil {
		return storeError(err, "certificate", "load")
	}
	if err := s.repo.Delete(ctx, company.ID, id); err != nil {
		return storeError(err, "certificate", "delete")
	}
	if existing.PDF.IsStored() {
		s.files.Discard(ctx, existing.PDF.Key)
	}
	s.mutated(ctx, session, models.AuditActionDelete, "certificate", id)
	return nil
}

func (s *CertificateService) build(req dto.CertificateRequest) (*models.ConservationCertificate, error) {
	if err := validate(s.validator, req, "invalid certificate payload"); err != nil {
		return nil, err
	}
	if req.PresentationDate.IsZero() || req.ExpirationDate.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "presentationDate and expirationDate are required")
	}
	return &models.ConservationCertificate{
		PresentationDate:   req.PresentationDate,
		ExpirationDate:     req.ExpirationDate,
		Intervener:         strings.TrimSpace(req.Intervener),
		RegistrationNumber: strings.TrimSpace(req.RegistrationNumber),
		PDF:                req.PDF.Normalize(),
	}, nil
}
