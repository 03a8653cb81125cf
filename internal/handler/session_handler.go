package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-api/internal/access"
	"github.com/noah-isme/compliance-api/internal/service"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
	"github.com/noah-isme/compliance-api/pkg/response"
)

type routeDecider interface {
	Decide(session *service.Session, path string) access.Decision
}

// SessionHandler answers gating questions for the client shell.
type SessionHandler struct {
	decider routeDecider
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(decider routeDecider) *SessionHandler {
	return &SessionHandler{decider: decider}
}

// Route godoc
// @Summary Decide whether the caller may open a screen
// @Tags Session
// @Produce json
// @Param path query string true "Screen path"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /session/route [get]
func (h *SessionHandler) Route(c *gin.Context) {
	path := strings.TrimSpace(c.Query("path"))
	if path == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "path is required"))
		return
	}
	response.OK(c, h.decider.Decide(sessionFromContext(c), path))
}
