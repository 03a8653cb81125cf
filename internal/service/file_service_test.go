package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-api/internal/models"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
	"github.com/noah-isme/compliance-api/pkg/storage"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF")

func newTestFileService(t *testing.T) (*FileService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewFileService(store, signer, storage.NewHandleRegistry(time.Minute), nil, FileServiceConfig{MaxFileSize: 1024})
	return svc, store
}

func testSession(companyID string) *Session {
	return &Session{
		UserID: "user-1",
		Email:  "user@example.com",
		Name:   "Usuario Ejemplo",
		Company: &models.Company{
			ID:           companyID,
			UserID:       "user-1",
			IsSubscribed: true,
		},
	}
}

func pdfUpload(name string) FileUpload {
	return FileUpload{Filename: name, Size: int64(len(samplePDF)), Content: bytes.NewReader(samplePDF)}
}

func TestFileServiceStageAndCommit(t *testing.T) {
	svc, store := newTestFileService(t)
	ctx := context.Background()

	staged, err := svc.Stage(ctx, testSession("c1"), pdfUpload("acta.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", staged.ContentType)
	assert.True(t, staged.Ref.IsPending())

	ref, err := svc.Commit(ctx, "c1", FolderCertificates, staged.Ref)
	require.NoError(t, err)
	require.True(t, ref.IsStored())
	assert.True(t, strings.HasPrefix(ref.Key, "c1/certificates/"))
	assert.True(t, strings.HasSuffix(ref.Key, ".pdf"))
	assert.Equal(t, "acta.pdf", ref.Name)

	data, err := store.Read(ref.Key)
	require.NoError(t, err)
	assert.Equal(t, samplePDF, data)

	_, err = svc.Commit(ctx, "c1", FolderCertificates, staged.Ref)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestFileServiceCommitRejectsForeignFiles(t *testing.T) {
	svc, _ := newTestFileService(t)
	ctx := context.Background()

	staged, err := svc.Stage(ctx, testSession("c1"), pdfUpload("a.pdf"))
	require.NoError(t, err)

	_, err = svc.Commit(ctx, "c2", FolderEvents, staged.Ref)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Commit(ctx, "c2", FolderEvents, models.StoredFile("c1/events/x.pdf", "x.pdf", "", 0))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	unset, err := svc.Commit(ctx, "c2", FolderEvents, models.FileRef{})
	require.NoError(t, err)
	assert.True(t, unset.IsUnset())
}

func TestFileServiceCommitKeepsOnlyAttachedFiles(t *testing.T) {
	svc, store := newTestFileService(t)
	ctx := context.Background()

	attached, err := svc.Store(ctx, "c1", FolderCertificates, pdfUpload("mine.pdf"))
	require.NoError(t, err)
	other, err := svc.Store(ctx, "c1", FolderCertificates, pdfUpload("other.pdf"))
	require.NoError(t, err)

	kept, err := svc.Commit(ctx, "c1", FolderCertificates, models.StoredFile(attached.Key, "renamed.pdf", "text/plain", 1), attached)
	require.NoError(t, err)
	assert.Equal(t, attached, kept)

	_, err = svc.Commit(ctx, "c1", FolderCertificates, models.StoredFile(other.Key, "other.pdf", "", 0), attached)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Commit(ctx, "c1", FolderCertificates, models.StoredFile(attached.Key, "mine.pdf", "", 0))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	mine := models.StoredFile(attached.Key, "", "", 0)
	borrowed := models.StoredFile(other.Key, "", "", 0)
	created, err := svc.CommitAll(ctx, "c1", FolderCertificates, []models.FileRef{attached}, &mine, &borrowed)
	require.Error(t, err)
	assert.Empty(t, created)
	_, err = store.Read(attached.Key)
	assert.NoError(t, err)
	_, err = store.Read(other.Key)
	assert.NoError(t, err)
}

func TestFileServiceRejectsTraversalKeys(t *testing.T) {
	svc, store := newTestFileService(t)
	ctx := context.Background()

	victim, err := svc.Store(ctx, "c2", FolderCertificates, pdfUpload("cert.pdf"))
	require.NoError(t, err)
	escaped := "c1/../" + victim.Key

	for _, key := range []string{escaped, "c1/./" + victim.Key, "c1//" + victim.Key, `c1\..\` + victim.Key} {
		_, err = svc.Commit(ctx, "c1", FolderCertificates, models.StoredFile(key, "cert.pdf", "", 0))
		assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code), key)

		_, err = svc.Preview(ctx, testSession("c1"), key)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code), key)
	}

	svc.Discard(ctx, escaped)
	_, err = store.Read(victim.Key)
	assert.NoError(t, err)
}

func TestFileServiceStageValidation(t *testing.T) {
	svc, _ := newTestFileService(t)
	ctx := context.Background()

	_, err := svc.Stage(ctx, testSession("c1"), FileUpload{Filename: "x.txt", Size: 5, Content: strings.NewReader("hello")})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnsupportedMedia.Code))

	big := bytes.Repeat([]byte("a"), 2048)
	_, err = svc.Stage(ctx, testSession("c1"), FileUpload{Filename: "big.pdf", Size: int64(len(big)), Content: bytes.NewReader(big)})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrPayloadTooLarge.Code))

	_, err = svc.Stage(ctx, &Session{UserID: "u"}, pdfUpload("a.pdf"))
	assert.ErrorIs(t, err, appErrors.ErrNoCompany)
}

func TestFileServiceCommitAllRollsBack(t *testing.T) {
	svc, store := newTestFileService(t)
	ctx := context.Background()

	staged, err := svc.Stage(ctx, testSession("c1"), pdfUpload("a.pdf"))
	require.NoError(t, err)

	first := staged.Ref
	second := models.PendingFile("missing")
	_, err = svc.CommitAll(ctx, "c1", FolderEvents, nil, &first, &second)
	require.Error(t, err)
	require.True(t, first.IsStored())

	_, err = store.Read(first.Key)
	assert.Error(t, err)
}

func TestFileServicePreviewLifecycle(t *testing.T) {
	svc, _ := newTestFileService(t)
	ctx := context.Background()
	session := testSession("c1")

	ref, err := svc.Store(ctx, "c1", FolderCertificates, pdfUpload("cert.pdf"))
	require.NoError(t, err)

	first, err := svc.Preview(ctx, session, ref.Key)
	require.NoError(t, err)
	assert.Contains(t, first.PreviewURL, "/api/v1/files/preview/"+first.Handle)
	assert.Contains(t, first.DownloadURL, "/api/v1/files/download?token=")

	second, err := svc.Preview(ctx, session, ref.Key)
	require.NoError(t, err)
	_, err = svc.OpenPreview(ctx, first.Handle)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	download, err := svc.OpenPreview(ctx, second.Handle)
	require.NoError(t, err)
	data, err := io.ReadAll(download.File)
	require.NoError(t, err)
	download.File.Close()
	assert.Equal(t, samplePDF, data)
	assert.Equal(t, "application/pdf", download.MimeType)

	err = svc.ReleasePreview(ctx, testSession("c2"), second.Handle)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	require.NoError(t, svc.ReleasePreview(ctx, session, second.Handle))

	_, err = svc.Preview(ctx, testSession("c2"), ref.Key)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestFileServiceDiscardReleasesPreviews(t *testing.T) {
	svc, store := newTestFileService(t)
	ctx := context.Background()

	ref, err := svc.Store(ctx, "c1", FolderEvents, pdfUpload("e.pdf"))
	require.NoError(t, err)
	preview, err := svc.Preview(ctx, testSession("c1"), ref.Key)
	require.NoError(t, err)

	kept, err := svc.Store(ctx, "c1", FolderEvents, pdfUpload("k.pdf"))
	require.NoError(t, err)
	svc.DiscardReplaced(ctx, []models.FileRef{ref, kept}, []models.FileRef{kept})

	_, err = svc.OpenPreview(ctx, preview.Handle)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	_, err = store.Read(ref.Key)
	assert.Error(t, err)
	_, err = store.Read(kept.Key)
	assert.NoError(t, err)
}

func TestFileServiceOpenSigned(t *testing.T) {
	svc, _ := newTestFileService(t)
	ctx := context.Background()

	ref, err := svc.Store(ctx, "c1", FolderCertificates, pdfUpload("cert.pdf"))
	require.NoError(t, err)
	preview, err := svc.Preview(ctx, testSession("c1"), ref.Key)
	require.NoError(t, err)

	token := preview.DownloadURL[strings.Index(preview.DownloadURL, "token=")+len("token="):]
	download, err := svc.OpenSigned(ctx, token)
	require.NoError(t, err)
	download.File.Close()
	assert.Equal(t, ref.Key[len("c1/certificates/"):], download.Filename)

	_, err = svc.OpenSigned(ctx, "bogus")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
}
