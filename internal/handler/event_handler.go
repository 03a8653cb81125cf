package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/internal/service"
	"github.com/noah-isme/compliance-api/pkg/civil"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
	"github.com/noah-isme/compliance-api/pkg/response"
)

type eventService interface {
	List(ctx context.Context, session *service.Session, filter models.EventFilter) ([]models.EventInformation, error)
	Get(ctx context.Context, session *service.Session, id string) (*models.EventInformation, error)
	Create(ctx context.Context, session *service.Session, req dto.EventRequest) (*models.EventInformation, error)
	Update(ctx context.Context, session *service.Session, id string, req dto.EventRequest) (*models.EventInformation, error)
	Delete(ctx context.Context, session *service.Session, id string) error
	PDF(ctx context.Context, session *service.Session, id string) (*service.EventPDF, error)
}

// EventHandler manages incident reports.
type EventHandler struct {
	service eventService
}

// NewEventHandler constructs the handler.
func NewEventHandler(svc eventService) *EventHandler {
	return &EventHandler{service: svc}
}

// List godoc
// @Summary List events
// @Tags Events
// @Produce json
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	from, err := civil.ParseOptional(c.Query("from"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD"))
		return
	}
	to, err := civil.ParseOptional(c.Query("to"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD"))
		return
	}

	events, err := h.service.List(c.Request.Context(), sessionFromContext(c), models.EventFilter{From: from, To: to})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, events)
}

// Get godoc
// @Summary Get an event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.service.Get(c.Request.Context(), sessionFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, event)
}

// Create godoc
// @Summary Create an event
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body dto.EventRequest true "Event"
// @Success 201 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.EventRequest
	if !bindJSON(c, &req, "invalid event payload") {
		return
	}
	event, err := h.service.Create(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Update godoc
// @Summary Replace an event
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.EventRequest true "Event"
// @Success 200 {object} response.Envelope
// @Router /events/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	var req dto.EventRequest
	if !bindJSON(c, &req, "invalid event payload") {
		return
	}
	event, err := h.service.Update(c.Request.Context(), sessionFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, event)
}

// Delete godoc
// @Summary Delete an event
// @Tags Events
// @Param id path string true "Event ID"
// @Success 204
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), sessionFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// PDF godoc
// @Summary Download an event report
// @Tags Events
// @Produce application/pdf
// @Param id path string true "Event ID"
// @Success 200 {file} binary
// @Router /events/{id}/pdf [get]
func (h *EventHandler) PDF(c *gin.Context) {
	doc, err := h.service.PDF(c.Request.Context(), sessionFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", doc.Content)
}
