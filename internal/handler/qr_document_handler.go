package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/internal/service"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
	"github.com/noah-isme/compliance-api/pkg/response"
)

type qrDocumentService interface {
	List(ctx context.Context, session *service.Session, filter models.QRDocumentFilter) ([]models.QRDocument, error)
	Upload(ctx context.Context, session *service.Session, rawType string, upload service.FileUpload) (*models.QRDocument, error)
	ConfirmDate(ctx context.Context, session *service.Session, id string, req dto.ConfirmDateRequest) (*models.QRDocument, error)
	Delete(ctx context.Context, session *service.Session, id string) error
}

// QRDocumentHandler manages QR equipment documents.
type QRDocumentHandler struct {
	service qrDocumentService
}

// NewQRDocumentHandler constructs the handler.
func NewQRDocumentHandler(svc qrDocumentService) *QRDocumentHandler {
	return &QRDocumentHandler{service: svc}
}

// List godoc
// @Summary List QR documents
// @Tags QR documents
// @Produce json
// @Param type query string false "Document type (identifier or label)"
// @Param unconfirmed query bool false "Only documents whose date is provisional"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /qr-documents [get]
func (h *QRDocumentHandler) List(c *gin.Context) {
	var filter models.QRDocumentFilter
	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		docType, ok := models.ParseQRDocumentType(raw)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown document type"))
			return
		}
		filter.Type = &docType
	}
	if raw := c.Query("unconfirmed"); raw != "" {
		unconfirmed, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unconfirmed must be a boolean"))
			return
		}
		filter.Unconfirmed = unconfirmed
	}

	docs, err := h.service.List(c.Request.Context(), sessionFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, docs)
}

// Upload godoc
// @Summary Upload a QR document
// @Description Stores the file and extracts its inspection date; low-confidence dates stay unconfirmed
// @Tags QR documents
// @Accept multipart/form-data
// @Produce json
// @Param type formData string true "Document type"
// @Param file formData file true "Document"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /qr-documents [post]
func (h *QRDocumentHandler) Upload(c *gin.Context) {
	docType := strings.TrimSpace(c.PostForm("type"))
	if docType == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "type is required"))
		return
	}
	upload, closeFile, err := formUpload(c, "file")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFile()

	doc, err := h.service.Upload(c.Request.Context(), sessionFromContext(c), docType, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// ConfirmDate godoc
// @Summary Confirm or correct the extracted date
// @Tags QR documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.ConfirmDateRequest true "Date"
// @Success 200 {object} response.Envelope
// @Router /qr-documents/{id}/confirm-date [post]
func (h *QRDocumentHandler) ConfirmDate(c *gin.Context) {
	var req dto.ConfirmDateRequest
	if !bindJSON(c, &req, "invalid date payload") {
		return
	}
	doc, err := h.service.ConfirmDate(c.Request.Context(), sessionFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, doc)
}

// Delete godoc
// @Summary Delete a QR document
// @Tags QR documents
// @Param id path string true "Document ID"
// @Success 204
// @Router /qr-documents/{id} [delete]
func (h *QRDocumentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), sessionFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
