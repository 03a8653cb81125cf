package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/models"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
	"github.com/noah-isme/compliance-api/pkg/storage"
)

// Storage folders per artifact kind.
const (
	FolderCertificates   = "certificates"
	FolderSelfProtection = "self-protection"
	FolderEvents         = "events"
	stagingPrefix        = "staging"
)

// FolderQR is the folder of QR documents of type t.
func FolderQR(t models.QRDocumentType) string {
	return "qr/" + string(t)
}

type fileStorage interface {
	SaveStream(key string, r io.Reader) (int64, error)
	Open(key string) (*os.File, error)
	Delete(key string) error
	Move(src, dst string) error
}

type fileSigner interface {
	Generate(owner, key string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (storage.Grant, error)
}

// FileUpload carries upload metadata and stream reader.
type FileUpload struct {
	Filename string
	Size     int64
	MimeType string
	Content  io.ReadSeeker
}

// FileDownload bundles an open file with the headers needed to stream it.
type FileDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
}

// FileServiceConfig holds validation parameters.
type FileServiceConfig struct {
	MaxFileSize  int64
	AllowedMIMEs []string
	APIPrefix    string
}

// FileService stages uploads, commits them into artifact folders and hands
// out preview handles and signed download links.
type FileService struct {
	storage fileStorage
	signer  fileSigner
	handles *storage.HandleRegistry
	logger  *zap.Logger
	cfg     FileServiceConfig
	mimeSet map[string]struct{}
}

// NewFileService constructs the service with defaults.
func NewFileService(store fileStorage, signer fileSigner, handles *storage.HandleRegistry, logger *zap.Logger, cfg FileServiceConfig) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if handles == nil {
		handles = storage.NewHandleRegistry(0)
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "image/png", "image/jpeg"}
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &FileService{
		storage: store,
		signer:  signer,
		handles: handles,
		logger:  logger,
		cfg:     cfg,
		mimeSet: mimeSet,
	}
}

// Stage saves an upload under the staging area and returns a pending ref.
// The staged file is dropped by the janitor unless committed before the
// handle expires.
func (s *FileService) Stage(ctx context.Context, session *Session, upload FileUpload) (*dto.StagedFileResponse, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	mimeType, err := s.check(upload)
	if err != nil {
		return nil, err
	}
	key := path.Join(stagingPrefix, company.ID, uuid.NewString())
	size, err := s.storage.SaveStream(key, upload.Content)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to stage upload")
	}
	h, _ := s.handles.Acquire(storage.Handle{
		Kind:        storage.HandleStaged,
		Owner:       company.ID,
		Key:         key,
		Name:        cleanFilename(upload.Filename),
		ContentType: mimeType,
		Size:        size,
	})
	return &dto.StagedFileResponse{
		Handle:      h.ID,
		Name:        h.Name,
		ContentType: h.ContentType,
		Size:        h.Size,
		ExpiresAt:   h.ExpiresAt,
		Ref:         models.PendingFile(h.ID),
	}, nil
}

// Store validates and saves an upload directly into folder.
func (s *FileService) Store(ctx context.Context, companyID, folder string, upload FileUpload) (models.FileRef, error) {
	mimeType, err := s.check(upload)
	if err != nil {
		return models.FileRef{}, err
	}
	name := cleanFilename(upload.Filename)
	key := s.targetKey(companyID, folder, name, mimeType)
	size, err := s.storage.SaveStream(key, upload.Content)
	if err != nil {
		return models.FileRef{}, appErrors.Internal(err, "failed to store file")
	}
	return models.StoredFile(key, name, mimeType, size), nil
}

// Commit turns a ref received from a client into a persistable one. Pending
// refs are moved out of staging into folder. A stored ref is only kept when
// it is one of attached, the files already on the record being saved; the
// attached copy wins over client-sent metadata.
func (s *FileService) Commit(ctx context.Context, companyID, folder string, ref models.FileRef, attached ...models.FileRef) (models.FileRef, error) {
	ref = ref.Normalize()
	switch {
	case ref.IsUnset():
		return ref, nil
	case ref.IsStored():
		if !ownsKey(companyID, ref.Key) || strings.HasPrefix(ref.Key, stagingPrefix+"/") {
			return models.FileRef{}, appErrors.Clone(appErrors.ErrValidation, "file does not belong to the company")
		}
		for _, current := range attached {
			if current.IsStored() && current.Key == ref.Key {
				return current, nil
			}
		}
		return models.FileRef{}, appErrors.Clone(appErrors.ErrValidation, "file is not attached to this record")
	}
	h, ok := s.handles.Get(ref.Handle)
	if !ok || h.Kind != storage.HandleStaged || h.Owner != companyID {
		return models.FileRef{}, appErrors.Clone(appErrors.ErrValidation, "upload handle expired or unknown")
	}
	key := s.targetKey(companyID, folder, h.Name, h.ContentType)
	if err := s.storage.Move(h.Key, key); err != nil {
		return models.FileRef{}, appErrors.Internal(err, "failed to commit upload")
	}
	s.handles.Release(h.ID)
	return models.StoredFile(key, h.Name, h.ContentType, h.Size), nil
}

// CommitAll commits every ref in place against the record's attached files
// and returns the keys created by this call. On failure the files committed
// so far are removed again.
func (s *FileService) CommitAll(ctx context.Context, companyID, folder string, attached []models.FileRef, refs ...*models.FileRef) ([]string, error) {
	created := make([]string, 0, len(refs))
	for _, ref := range refs {
		pending := ref.Normalize().IsPending()
		committed, err := s.Commit(ctx, companyID, folder, *ref, attached...)
		if err != nil {
			s.Discard(ctx, created...)
			return nil, err
		}
		*ref = committed
		if pending {
			created = append(created, committed.Key)
		}
	}
	return created, nil
}

// Discard removes stored files and releases their preview handles.
func (s *FileService) Discard(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		s.handles.ReleaseKey(key)
		if err := s.storage.Delete(key); err != nil {
			s.logger.Warn("failed to delete stored file", zap.String("key", key), zap.Error(err))
		}
	}
}

// DiscardReplaced removes the files of before that are no longer referenced by after.
func (s *FileService) DiscardReplaced(ctx context.Context, before, after []models.FileRef) {
	kept := make(map[string]struct{}, len(after))
	for _, ref := range after {
		if ref.IsStored() {
			kept[ref.Key] = struct{}{}
		}
	}
	var dropped []string
	for _, ref := range before {
		if !ref.IsStored() {
			continue
		}
		if _, ok := kept[ref.Key]; !ok {
			dropped = append(dropped, ref.Key)
		}
	}
	s.Discard(ctx, dropped...)
}

// Preview acquires a preview handle over a stored file of the session's
// company. A previous preview of the same file is superseded.
func (s *FileService) Preview(ctx context.Context, session *Session, key string) (*dto.PreviewResponse, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	key = strings.TrimSpace(key)
	if !ownsKey(company.ID, key) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	file, err := s.storage.Open(key)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	info, statErr := file.Stat()
	file.Close() //nolint:errcheck
	if statErr != nil {
		return nil, appErrors.Internal(statErr, "failed to read file metadata")
	}

	h, superseded := s.handles.Acquire(storage.Handle{
		Kind:        storage.HandlePreview,
		Owner:       company.ID,
		Key:         key,
		Name:        path.Base(key),
		ContentType: contentTypeFor(key),
		Size:        info.Size(),
	})
	if len(superseded) > 0 {
		s.logger.Debug("preview superseded", zap.String("key", key), zap.Int("released", len(superseded)))
	}
	token, _, err := s.signer.Generate(company.ID, key)
	if err != nil {
		s.handles.Release(h.ID)
		return nil, appErrors.Internal(err, "failed to generate download token")
	}
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	return &dto.PreviewResponse{
		Handle:      h.ID,
		PreviewURL:  fmt.Sprintf("%s/files/preview/%s", base, h.ID),
		DownloadURL: fmt.Sprintf("%s/files/download?token=%s", base, token),
		ExpiresAt:   h.ExpiresAt,
	}, nil
}

// OpenPreview opens the file behind a live preview handle.
func (s *FileService) OpenPreview(ctx context.Context, handle string) (*FileDownload, error) {
	h, ok := s.handles.Get(handle)
	if !ok || h.Kind != storage.HandlePreview {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "preview not found or expired")
	}
	return s.open(h.Key, h.ContentType)
}

// ReleasePreview drops a preview handle owned by the session's company.
func (s *FileService) ReleasePreview(ctx context.Context, session *Session, handle string) error {
	company, err := session.requireCompany()
	if err != nil {
		return err
	}
	h, ok := s.handles.Get(handle)
	if !ok || h.Kind != storage.HandlePreview || h.Owner != company.ID {
		return appErrors.Clone(appErrors.ErrNotFound, "preview not found or expired")
	}
	s.handles.Release(h.ID)
	return nil
}

// OpenSigned validates a download token and opens the file it grants.
func (s *FileService) OpenSigned(ctx context.Context, token string) (*FileDownload, error) {
	grant, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
	}
	if !ownsKey(grant.Owner, grant.Key) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	return s.open(grant.Key, contentTypeFor(grant.Key))
}

// RunJanitor sweeps expired handles until ctx is done; staged files whose
// handle lapsed are deleted.
func (s *FileService) RunJanitor(ctx context.Context, interval time.Duration) {
	s.handles.Run(ctx, interval, func(h storage.Handle) {
		if h.Kind != storage.HandleStaged {
			return
		}
		if err := s.storage.Delete(h.Key); err != nil {
			s.logger.Warn("failed to delete expired upload", zap.String("key", h.Key), zap.Error(err))
		}
	})
}

func (s *FileService) open(key, mimeType string) (*FileDownload, error) {
	file, err := s.storage.Open(key)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Internal(err, "failed to read file metadata")
	}
	return &FileDownload{
		File:      file,
		Filename:  path.Base(key),
		MimeType:  mimeType,
		SizeBytes: info.Size(),
	}, nil
}

func (s *FileService) check(upload FileUpload) (string, error) {
	if upload.Content == nil || upload.Size <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return "", appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	mimeType, err := detectMime(upload)
	if err != nil {
		return "", err
	}
	if _, allowed := s.mimeSet[strings.ToLower(mimeType)]; !allowed {
		return "", appErrors.Clone(appErrors.ErrUnsupportedMedia, "mime type not allowed")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Internal(err, "failed to reset upload stream")
	}
	return mimeType, nil
}

func (s *FileService) targetKey(companyID, folder, name, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = mimeExtension(mimeType)
	}
	return path.Join(companyID, folder, uuid.NewString()+ext)
}

func detectMime(upload FileUpload) (string, error) {
	header := make([]byte, 512)
	n, err := upload.Content.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.Internal(err, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Internal(err, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	detected := http.DetectContentType(header[:n])
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}
	return detected, nil
}

func mimeExtension(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "application/pdf":
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	default:
		return ".bin"
	}
}

func contentTypeFor(key string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(key))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func cleanFilename(raw string) string {
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(raw), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}

// ownsKey reports whether key is a canonical storage key under the company's
// prefix. Keys that need cleaning to compare are rejected outright.
func ownsKey(companyID, key string) bool {
	if companyID == "" || key == "" || strings.ContainsRune(key, '\\') || path.IsAbs(key) {
		return false
	}
	if path.Clean(key) != key {
		return false
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." || segment == "." {
			return false
		}
	}
	return strings.HasPrefix(key, companyID+"/")
}
