package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/internal/service"
	"github.com/noah-isme/compliance-api/pkg/response"
)

type selfProtectionService interface {
	List(ctx context.Context, session *service.Session) ([]models.SelfProtectionSystem, error)
	Create(ctx context.Context, session *service.Session, req dto.SelfProtectionRequest) (*models.SelfProtectionSystem, error)
	Update(ctx context.Context, session *service.Session, id string, req dto.SelfProtectionRequest) (*models.SelfProtectionSystem, error)
	Delete(ctx context.Context, session *service.Session, id string) error
}

// SelfProtectionHandler manages self-protection systems.
type SelfProtectionHandler struct {
	service selfProtectionService
}

// NewSelfProtectionHandler constructs the handler.
func NewSelfProtectionHandler(svc selfProtectionService) *SelfProtectionHandler {
	return &SelfProtectionHandler{service: svc}
}

// List godoc
// @Summary List self-protection systems
// @Tags Self-protection
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /self-protection-systems [get]
func (h *SelfProtectionHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Create godoc
// @Summary Create a self-protection system
// @Description Extension and expiration dates are derived from the probatory disposition date
// @Tags Self-protection
// @Accept json
// @Produce json
// @Param payload body dto.SelfProtectionRequest true "System"
// @Success 201 {object} response.Envelope
// @Router /self-protection-systems [post]
func (h *SelfProtectionHandler) Create(c *gin.Context) {
	var req dto.SelfProtectionRequest
	if !bindJSON(c, &req, "invalid self-protection payload") {
		return
	}
	sys, err := h.service.Create(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sys)
}

// Update godoc
// @Summary Replace a self-protection system
// @Tags Self-protection
// @Accept json
// @Produce json
// @Param id path string true "System ID"
// @Param payload body dto.SelfProtectionRequest true "System"
// @Success 200 {object} response.Envelope
// @Router /self-protection-systems/{id} [put]
func (h *SelfProtectionHandler) Update(c *gin.Context) {
	var req dto.SelfProtectionRequest
	if !bindJSON(c, &req, "invalid self-protection payload") {
		return
	}
	sys, err := h.service.Update(c.Request.Context(), sessionFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sys)
}

// Delete godoc
// @Summary Delete a self-protection system
// @Tags Self-protection
// @Param id path string true "System ID"
// @Success 204
// @Router /self-protection-systems/{id} [delete]
func (h *SelfProtectionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), sessionFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
