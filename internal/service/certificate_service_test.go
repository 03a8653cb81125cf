package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/pkg/civil"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
)

func certificateRequest(pdf models.FileRef) dto.CertificateRequest {
	return dto.CertificateRequest{
		PresentationDate:   civil.MustParse("2025-01-10"),
		ExpirationDate:     civil.MustParse("2026-01-10"),
		Intervener:         " Juan Pérez ",
		RegistrationNumber: "R-100",
		PDF:                pdf,
	}
}

func TestCertificateServiceLifecycle(t *testing.T) {
	repo := newMemCertificateStore()
	files := &stubArtifactFiles{}
	cache := &recordingInvalidator{}
	audit := &mockAuditRepo{}
	svc := NewCertificateService(repo, files, cache, audit, nil, nil)
	session := testSession("c1")
	ctx := context.Background()

	cert, err := svc.Create(ctx, session, certificateRequest(models.PendingFile("h1")))
	require.NoError(t, err)
	assert.Equal(t, "Juan Pérez", cert.Intervener)
	assert.Equal(t, "c1", cert.CompanyID)
	require.True(t, cert.PDF.IsStored())
	assert.Equal(t, "c1/certificates/h1.pdf", cert.PDF.Key)

	updated, err := svc.Update(ctx, session, cert.ID, certificateRequest(models.PendingFile("h2")))
	require.NoError(t, err)
	assert.Equal(t, cert.ID, updated.ID)
	assert.Equal(t, "c1/certificates/h2.pdf", updated.PDF.Key)
	assert.Equal(t, []string{"c1/certificates/h1.pdf"}, files.discardedKeys())

	certs, err := svc.List(ctx, session)
	require.NoError(t, err)
	require.Len(t, certs, 1)

	require.NoError(t, svc.Delete(ctx, session, cert.ID))
	assert.Contains(t, files.discardedKeys(), "c1/certificates/h2.pdf")
	assert.Equal(t, 3, cache.count())
	assert.Equal(t, []string{"CREATE:certificate", "UPDATE:certificate", "DELETE:certificate"}, audit.actions())
}

func TestCertificateServiceRejectsFilesOfAnotherCertificate(t *testing.T) {
	repo := newMemCertificateStore()
	files := &stubArtifactFiles{}
	svc := NewCertificateService(repo, files, nil, nil, nil, nil)
	session := testSession("c1")
	ctx := context.Background()

	first, err := svc.Create(ctx, session, certificateRequest(models.PendingFile("h1")))
	require.NoError(t, err)
	second, err := svc.Create(ctx, session, certificateRequest(models.PendingFile("h2")))
	require.NoError(t, err)

	_, err = svc.Update(ctx, session, second.ID, certificateRequest(first.PDF))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Create(ctx, session, certificateRequest(first.PDF))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	kept, err := svc.Update(ctx, session, second.ID, certificateRequest(second.PDF))
	require.NoError(t, err)
	assert.Equal(t, second.PDF.Key, kept.PDF.Key)
	assert.Empty(t, files.discardedKeys())
}

func TestCertificateServiceValidation(t *testing.T) {
	svc := NewCertificateService(newMemCertificateStore(), &stubArtifactFiles{}, nil, nil, nil, nil)
	ctx := context.Background()

	req := certificateRequest(models.FileRef{})
	req.ExpirationDate = civil.Date{}
	_, err := svc.Create(ctx, testSession("c1"), req)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	req = certificateRequest(models.FileRef{})
	req.Intervener = ""
	_, err = svc.Create(ctx, testSession("c1"), req)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Create(ctx, &Session{UserID: "u"}, certificateRequest(models.FileRef{}))
	assert.ErrorIs(t, err, appErrors.ErrNoCompany)
}

func TestCertificateServiceSaveFailureDiscardsCommittedFiles(t *testing.T) {
	repo := newMemCertificateStore()
	repo.saveErr = errors.New("db down")
	files := &stubArtifactFiles{}
	svc := NewCertificateService(repo, files, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), testSession("c1"), certificateRequest(models.PendingFile("h1")))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
	assert.Equal(t, []string{"c1/certificates/h1.pdf"}, files.discardedKeys())
}

func TestCertificateServiceScopesByCompany(t *testing.T) {
	repo := newMemCertificateStore()
	svc := NewCertificateService(repo, &stubArtifactFiles{}, nil, nil, nil, nil)
	ctx := context.Background()

	cert, err := svc.Create(ctx, testSession("c1"), certificateRequest(models.FileRef{}))
	require.NoError(t, err)

	err = svc.Delete(ctx, testSession("c2"), cert.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	_, err = svc.Update(ctx, testSession("c2"), cert.ID, certificateRequest(models.FileRef{}))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}
