package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/compliance-api/internal/compliance"
	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/pkg/civil"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
)

type selfProtectionStore interface {
	List(ctx context.Context, companyID string) ([]models.SelfProtectionSystem, error)
	Get(ctx context.Context, companyID, id string) (*models.SelfProtectionSystem, error)
	Create(ctx context.Context, sys *models.SelfProtectionSystem) error
	Update(ctx context.Context, sys *models.SelfProtectionSystem) error
	Delete(ctx context.Context, companyID, id string) error
}

// SelfProtectionService manages self-protection systems. Extension and
// expiration dates are recomputed from the probatory disposition date on
// every write.
type SelfProtectionService struct {
	repo selfProtectionStore
	artifactDeps
}

// NewSelfProtectionService constructs the service.
func NewSelfProtectionService(repo selfProtectionStore, files artifactFiles, cache companyCacheInvalidator, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *SelfProtectionService {
	return &SelfProtectionService{repo: repo, artifactDeps: newArtifactDeps(files, cache, audit, validate, logger)}
}

// List returns the company's systems.
func (s *SelfProtectionService) List(ctx context.Context, session *Session) ([]models.SelfProtectionSystem, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	systems, err := s.repo.List(ctx, company.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list self-protection systems")
	}
	return systems, nil
}

// Create stores a new system.
func (s *SelfProtectionService) Create(ctx context.Context, session *Session, req dto.SelfProtectionRequest) (*models.SelfProtectionSystem, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	sys, err := s.build(req)
	if err != nil {
		return nil, err
	}
	sys.CompanyID = company.ID
	err = s.persist(ctx, company.ID, FolderSelfProtection, nil, fileSlots(sys), func() error {
		return s.repo.Create(ctx, sys)
	})
	if err != nil {
		return nil, storeError(err, "self-protection system", "create")
	}
	s.mutated(ctx, session, models.AuditActionCreate, "self_protection_system", sys.ID)
	return sys, nil
}

// Update replaces a system; files no longer referenced are removed.
func (s *SelfProtectionService) Update(ctx context.Context, session *Session, id string, req dto.SelfProtectionRequest) (*models.SelfProtectionSystem, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.Get(ctx, company.ID, id)
	if err != nil {
		return nil, storeError(err, "self-protection system", "load")
	}
	sys, err := s.build(req)
	if err != nil {
		return nil, err
	}
	sys.ID = existing.ID
	sys.CompanyID = company.ID
	sys.CreatedAt = existing.CreatedAt
	err = s.persist(ctx, company.ID, FolderSelfProtection, existing.Files(), fileSlots(sys), func() error {
		return s.repo.Update(ctx, sys)
	})
	if err != nil {
		return nil, storeError(err, "self-protection system", "update")
	}
	s.files.DiscardReplaced(ctx, existing.Files(), sys.Files())
	s.mutated(ctx, session, models.AuditActionUpdate, "self_protection_system", sys.ID)
	return sys, nil
}

// Delete removes a system and every attached file.
func (s *SelfProtectionService) Delete(ctx context.Context, session *Session, id string) error {
	company, err := session.requireCompany()
	if err != nil {
		return err
	}
	existing, err := s.repo.Get(ctx, company.ID, id)
	if err != nil {
		return storeError(err, "self-protection system", "load")
	}
	if err := s.repo.Delete(ctx, company.ID, id); err != nil {
		return storeError(err, "self-protection system", "delete")
	}
	s.files.Discard(ctx, models.FileRefs(existing.Files()).Keys()...)
	s.mutated(ctx, session, models.AuditActionDelete, "self_protection_system", id)
	return nil
}

func (s *SelfProtectionService) build(req dto.SelfProtectionRequest) (*models.SelfProtectionSystem, error) {
	if err := validate(s.validator, req, "invalid self-protection payload"); err != nil {
		return nil, err
	}
	anchor := s.anchor("probatoryDispositionDate", req.ProbatoryDispositionDate)
	extension, expiration := compliance.DeriveSelfProtectionDates(anchor)

	sys := &models.SelfProtectionSystem{
		ProbatoryDispositionDate: anchor,
		ProbatoryDispositionPDF:  req.ProbatoryDispositionPDF.Normalize(),
		ExtensionDate:            extension,
		ExtensionPDF:             req.ExtensionPDF.Normalize(),
		ExpirationDate:           expiration,
		Intervener:               strings.TrimSpace(req.Intervener),
		RegistrationNumber:       strings.TrimSpace(req.RegistrationNumber),
	}
	for i, drill := range req.Drills {
		sys.Drills[i] = models.Drill{
			Date: s.anchor("drills.date", drill.Date),
			PDF:  drill.PDF.Normalize(),
		}
	}
	return sys, nil
}

// anchor parses an optional date; a malformed value is logged and treated as absent.
func (s *SelfProtectionService) anchor(field, raw string) *civil.Date {
	date, err := compliance.ParseAnchor(field, raw)
	if err != nil {
		s.logger.Warn("date derivation skipped", zap.String("field", field), zap.Error(err))
		return nil
	}
	return date
}

func fileSlots(sys *models.SelfProtectionSystem) []*models.FileRef {
	refs := []*models.FileRef{&sys.ProbatoryDispositionPDF, &sys.ExtensionPDF}
	for i := range sys.Drills {
		refs = append(refs, &sys.Drills[i].PDF)
	}
	return refs
}
