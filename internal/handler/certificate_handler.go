package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/internal/service"
	"github.com/noah-isme/compliance-api/pkg/response"
)

type certificateService interface {
	List(ctx context.Context, session *service.Session) ([]models.ConservationCertificate, error)
	Create(ctx context.Context, session *service.Session, req dto.CertificateRequest) (*models.ConservationCertificate, error)
	Update(ctx context.Context, session *service.Session, id string, req dto.CertificateRequest) (*models.ConservationCertificate, error)
	Delete(ctx context.Context, session *service.Session, id string) error
}

// CertificateHandler manages conservation certificates.
type CertificateHandler struct {
	service certificateService
}

// NewCertificateHandler constructs the handler.
func NewCertificateHandler(svc certificateService) *CertificateHandler {
	return &CertificateHandler{service: svc}
}

// List godoc
// @Summary List conservation certificates
// @Tags Certificates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /certificates [get]
func (h *CertificateHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Create godoc
// @Summary Create a conservation certificate
// @Tags Certificates
// @Accept json
// @Produce json
// @Param payload body dto.CertificateRequest true "Certificate"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /certificates [post]
func (h *CertificateHandler) Create(c *gin.Context) {
	var req dto.CertificateRequest
	if !bindJSON(c, &req, "invalid certificate payload") {
		return
	}
	cert, err := h.service.Create(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cert)
}

// Update godoc
// @Summary Replace a conservation certificate
// @Tags Certificates
// @Accept json
// @Produce json
// @Param id path string true "Certificate ID"
// @Param payload body dto.CertificateRequest true "Certificate"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificates/{id} [put]
func (h *CertificateHandler) Update(c *gin.Context) {
	var req dto.CertificateRequest
	if !bindJSON(c, &req, "invalid certificate payload") {
		return
	}
	cert, err := h.service.Update(c.Request.Context(), sessionFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cert)
}

// Delete godoc
// @Summary Delete a conservation certificate
// @Tags Certificates
// @Param id path string true "Certificate ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /certificates/{id} [delete]
func (h *CertificateHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), sessionFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
