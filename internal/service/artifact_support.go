package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/compliance-api/internal/models"
)

type artifactFiles interface {
	CommitAll(ctx context.Context, companyID, folder string, attached []models.FileRef, refs ...*models.FileRef) ([]string, error)
	Discard(ctx context.Context, keys ...string)
	DiscardReplaced(ctx context.Context, before, after []models.FileRef)
}

// artifactDeps bundles the collaborators shared by the artifact services.
type artifactDeps struct {
	files     artifactFiles
	cache     companyCacheInvalidator
	audit     auditTrail
	validator *validator.Validate
	logger    *zap.Logger
}

func newArtifactDeps(files artifactFiles, cache companyCacheInvalidator, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) artifactDeps {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return artifactDeps{
		files:     files,
		cache:     cache,
		audit:     auditTrail{repo: audit, logger: logger},
		validator: validate,
		logger:    logger,
	}
}

// mutated drops the company's cached dashboard and records the change.
func (d artifactDeps) mutated(ctx context.Context, session *Session, action, resource, id string) {
	if d.cache != nil {
		d.cache.InvalidateCompany(ctx, session.CompanyID())
	}
	d.audit.record(ctx, session, action, resource, id)
}

// persist commits refs into folder, runs save and removes the freshly
// committed files again when save fails. attached holds the files of the
// stored record; nil on create.
func (d artifactDeps) persist(ctx context.Context, companyID, folder string, attached []models.FileRef, refs []*models.FileRef, save func() error) error {
	created, err := d.files.CommitAll(ctx, companyID, folder, attached, refs...)
	if err != nil {
		return err
	}
	if err := save(); err != nil {
		d.files.Discard(ctx, created...)
		return err
	}
	return nil
}
