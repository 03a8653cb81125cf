package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-api/internal/compliance"
	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/middleware"
	"github.com/noah-isme/compliance-api/internal/service"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
	"github.com/noah-isme/compliance-api/pkg/response"
)

type dashboardService interface {
	Dashboard(ctx context.Context, session *service.Session, query dto.DashboardQuery) (*dto.DashboardResponse, bool, error)
}

// DashboardHandler exposes the expiration dashboard.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs a new dashboard handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Get godoc
// @Summary Expiration dashboard
// @Description Every expirable item of the company, most urgent first, with a status summary
// @Tags Dashboard
// @Produce json
// @Param status query []string false "Status filter (EXPIRED, DUE_SOON, VALID, UNKNOWN)" collectionFormat(csv)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 402 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	statuses, err := parseStatusQuery(c.QueryArray("status"))
	if err != nil {
		response.Error(c, err)
		return
	}

	resp, cacheHit, err := h.service.Dashboard(c.Request.Context(), sessionFromContext(c), dto.DashboardQuery{Statuses: statuses})
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, middleware.MetaAsOf, resp.Today.String())
	response.OK(c, resp, middleware.ExtractMeta(c))
}

func parseStatusQuery(values []string) ([]compliance.Status, error) {
	var statuses []compliance.Status
	for _, value := range values {
		for _, raw := range strings.Split(value, ",") {
			raw = strings.ToUpper(strings.TrimSpace(raw))
			if raw == "" {
				continue
			}
			status, ok := compliance.ParseStatus(raw)
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status "+raw)
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}
