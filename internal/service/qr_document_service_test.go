package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/internal/ocr"
	"github.com/noah-isme/compliance-api/pkg/civil"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
)

type stubQRFiles struct {
	stored    []string
	discarded []string
}

func (s *stubQRFiles) Store(ctx context.Context, companyID, folder string, upload FileUpload) (models.FileRef, error) {
	key := companyID + "/" + folder + "/" + upload.Filename
	s.stored = append(s.stored, key)
	return models.StoredFile(key, upload.Filename, "application/pdf", upload.Size), nil
}

func (s *stubQRFiles) Discard(ctx context.Context, keys ...string) {
	s.discarded = append(s.discarded, keys...)
}

type stubExtractor struct {
	result ocr.Result
	err    error
	seen   []byte
}

func (s *stubExtractor) Extract(ctx context.Context, doc ocr.Document) (ocr.Result, error) {
	s.seen = doc.Data
	return s.result, s.err
}

type extractionCounter struct {
	outcomes []string
}

func (e *extractionCounter) RecordExtraction(source, outcome string) {
	e.outcomes = append(e.outcomes, source+":"+outcome)
}

type qrFixture struct {
	svc       *QRDocumentService
	repo      *memQRStore
	files     *stubQRFiles
	extractor *stubExtractor
	metrics   *extractionCounter
	session   *Session
}

func newQRFixture() qrFixture {
	f := qrFixture{
		repo:      newMemQRStore(),
		files:     &stubQRFiles{},
		extractor: &stubExtractor{},
		metrics:   &extractionCounter{},
		session:   testSession("c1"),
	}
	f.session.Company.Services = models.CompanyServices{Elevators: true}
	clock := FixedClock(civil.MustParse("2025-06-01"))
	f.svc = NewQRDocumentService(f.repo, f.files, f.extractor, f.metrics, nil, nil, clock, nil, QRDocumentConfig{MinConfidence: 0.8})
	return f
}

func qrUpload() FileUpload {
	return FileUpload{Filename: "qr.pdf", Size: int64(len(samplePDF)), Content: bytes.NewReader(samplePDF)}
}

func TestQRDocumentServiceUploadConfident(t *testing.T) {
	f := newQRFixture()
	f.extractor.result = ocr.Result{Date: civil.MustParse("2025-02-10"), Confidence: 0.95, Source: ocr.SourceRemote}

	doc, err := f.svc.Upload(context.Background(), f.session, "Elevators", qrUpload())
	require.NoError(t, err)
	assert.True(t, doc.DateConfirmed)
	assert.Equal(t, "2025-06-01", doc.UploadDate.String())
	require.NotNil(t, doc.ExpirationDate)
	assert.Equal(t, "2026-02-10", doc.ExpirationDate.String())
	assert.Equal(t, samplePDF, f.extractor.seen)
	assert.Equal(t, []string{"c1/qr/Elevators/qr.pdf"}, f.files.stored)
	assert.Equal(t, []string{"remote:confirmed"}, f.metrics.outcomes)
}

func TestQRDocumentServiceLowConfidenceIsProvisional(t *testing.T) {
	f := newQRFixture()
	f.extractor.result = ocr.Result{Date: civil.MustParse("2025-02-10"), Confidence: 0.5, Source: ocr.SourcePattern}
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, f.session, "Ascensores", qrUpload())
	require.NoError(t, err)
	assert.False(t, doc.DateConfirmed)

	confirmed, err := f.svc.ConfirmDate(ctx, f.session, doc.ID, dto.ConfirmDateRequest{Date: civil.MustParse("2025-02-11")})
	require.NoError(t, err)
	assert.True(t, confirmed.DateConfirmed)
	assert.Equal(t, "2026-02-11", confirmed.ExpirationDate.String())

	_, err = f.svc.ConfirmDate(ctx, f.session, doc.ID, dto.ConfirmDateRequest{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestQRDocumentServiceRejectsDisabledService(t *testing.T) {
	f := newQRFixture()

	_, err := f.svc.Upload(context.Background(), f.session, "WaterHeaters", qrUpload())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	_, err = f.svc.Upload(context.Background(), f.session, "Unknown", qrUpload())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Empty(t, f.files.stored)
}

func TestQRDocumentServiceExtractionFailure(t *testing.T) {
	f := newQRFixture()
	f.extractor.err = ocr.ErrNoDate

	_, err := f.svc.Upload(context.Background(), f.session, "Elevators", qrUpload())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Equal(t, f.files.stored, f.files.discarded)
	assert.Equal(t, []string{"none:failed"}, f.metrics.outcomes)

	f.extractor.err = errors.New("ocr offline")
	_, err = f.svc.Upload(context.Background(), f.session, "Elevators", qrUpload())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
	assert.Empty(t, f.repo.items)
}

func TestQRDocumentServiceListAndDelete(t *testing.T) {
	f := newQRFixture()
	f.extractor.result = ocr.Result{Date: civil.MustParse("2025-02-10"), Confidence: 1, Source: ocr.SourceRemote}
	ctx := context.Background()

	doc, err := f.svc.Upload(ctx, f.session, "Elevators", qrUpload())
	require.NoError(t, err)

	elevators := models.QRElevators
	docs, err := f.svc.List(ctx, f.session, models.QRDocumentFilter{Type: &elevators})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.NotNil(t, docs[0].ExpirationDate)

	require.NoError(t, f.svc.Delete(ctx, f.session, doc.ID))
	assert.Equal(t, []string{"c1/qr/Elevators/qr.pdf"}, f.files.discarded)
}
