package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/service"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
	"github.com/noah-isme/compliance-api/pkg/response"
)

type fileService interface {
	Stage(ctx context.Context, session *service.Session, upload service.FileUpload) (*dto.StagedFileResponse, error)
	Preview(ctx context.Context, session *service.Session, key string) (*dto.PreviewResponse, error)
	OpenPreview(ctx context.Context, handle string) (*service.FileDownload, error)
	ReleasePreview(ctx context.Context, session *service.Session, handle string) error
	OpenSigned(ctx context.Context, token string) (*service.FileDownload, error)
}

// FileHandler stages uploads and serves previews and signed downloads.
type FileHandler struct {
	service fileService
}

// NewFileHandler constructs the handler.
func NewFileHandler(svc fileService) *FileHandler {
	return &FileHandler{service: svc}
}

// Upload godoc
// @Summary Stage a file for an artifact
// @Description Returns a pending file reference to send back inside the artifact payload
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /files [post]
func (h *FileHandler) Upload(c *gin.Context) {
	upload, closeFile, err := formUpload(c, "file")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFile()

	staged, err := h.service.Stage(c.Request.Context(), sessionFromContext(c), upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, staged)
}

// Preview godoc
// @Summary Acquire a preview handle for a stored file
// @Tags Files
// @Accept json
// @Produce json
// @Param payload body dto.PreviewRequest true "Stored file key"
// @Success 200 {object} response.Envelope
// @Router /files/preview [post]
func (h *FileHandler) Preview(c *gin.Context) {
	var req dto.PreviewRequest
	if !bindJSON(c, &req, "invalid preview payload") {
		return
	}
	preview, err := h.service.Preview(c.Request.Context(), sessionFromContext(c), req.Key)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, preview)
}

// OpenPreview godoc
// @Summary Stream a file through its preview handle
// @Tags Files
// @Param handle path string true "Preview handle"
// @Success 200 {file} binary
// @Router /files/preview/{handle} [get]
func (h *FileHandler) OpenPreview(c *gin.Context) {
	download, err := h.service.OpenPreview(c.Request.Context(), c.Param("handle"))
	if err != nil {
		response.Error(c, err)
		return
	}
	streamDownload(c, download, "inline")
}

// ReleasePreview godoc
// @Summary Release a preview handle
// @Tags Files
// @Param handle path string true "Preview handle"
// @Success 204
// @Router /files/preview/{handle} [delete]
func (h *FileHandler) ReleasePreview(c *gin.Context) {
	if err := h.service.ReleasePreview(c.Request.Context(), sessionFromContext(c), c.Param("handle")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download godoc
// @Summary Download a stored file with a signed token
// @Tags Files
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /files/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	download, err := h.service.OpenSigned(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	streamDownload(c, download, "attachment")
}
