package dto

import (
	"time"

	"github.com/noah-isme/compliance-api/internal/models"
)

// StagedFileResponse describes an upload staged with POST /files. The handle
// is sent back inside a FileRef to attach the file to an artifact.
type StagedFileResponse struct {
	Handle      string         `json:"handle"`
	Name        string         `json:"name"`
	ContentType string         `json:"contentType"`
	Size        int64          `json:"size"`
	ExpiresAt   time.Time      `json:"expiresAt"`
	Ref         models.FileRef `json:"ref"`
}

// PreviewRequest asks for a transient preview of a stored file.
type PreviewRequest struct {
	Key string `json:"key" validate:"required"`
}

// PreviewResponse carries the preview handle and its URLs.
type PreviewResponse struct {
	Handle      string    `json:"handle"`
	PreviewURL  string    `json:"previewUrl"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
