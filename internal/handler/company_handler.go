package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/internal/service"
	"github.com/noah-isme/compliance-api/pkg/response"
)

type companyService interface {
	Create(ctx context.Context, session *service.Session, req dto.CreateCompanyRequest) (*dto.CompanyResponse, error)
	Get(ctx context.Context, session *service.Session) (*dto.CompanyResponse, error)
	Update(ctx context.Context, session *service.Session, req dto.UpdateCompanyRequest) (*dto.CompanyResponse, error)
	AddEmployee(ctx context.Context, session *service.Session, req dto.EmployeeRequest) (*models.Employee, error)
	UpdateEmployee(ctx context.Context, session *service.Session, id string, req dto.EmployeeRequest) (*models.Employee, error)
	DeleteEmployee(ctx context.Context, session *service.Session, id string) error
	Subscribe(ctx context.Context, session *service.Session, req dto.SubscribeRequest) (*dto.CompanyResponse, error)
}

// CompanyHandler exposes company onboarding, profile and subscription endpoints.
type CompanyHandler struct {
	service companyService
}

// NewCompanyHandler constructs the handler.
func NewCompanyHandler(svc companyService) *CompanyHandler {
	return &CompanyHandler{service: svc}
}

// Create godoc
// @Summary Create the caller's company
// @Tags Company
// @Accept json
// @Produce json
// @Param payload body dto.CreateCompanyRequest true "Company"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /company [post]
func (h *CompanyHandler) Create(c *gin.Context) {
	var req dto.CreateCompanyRequest
	if !bindJSON(c, &req, "invalid company payload") {
		return
	}
	company, err := h.service.Create(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, company)
}

// Get godoc
// @Summary Get the caller's company
// @Tags Company
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /company [get]
func (h *CompanyHandler) Get(c *gin.Context) {
	company, err := h.service.Get(c.Request.Context(), sessionFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, company)
}

// Update godoc
// @Summary Partially update the company profile
// @Tags Company
// @Accept json
// @Produce json
// @Param payload body dto.UpdateCompanyRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /company [patch]
func (h *CompanyHandler) Update(c *gin.Context) {
	var req dto.UpdateCompanyRequest
	if !bindJSON(c, &req, "invalid company payload") {
		return
	}
	company, err := h.service.Update(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, company)
}

// AddEmployee godoc
// @Summary Add an employee
// @Tags Company
// @Accept json
// @Produce json
// @Param payload body dto.EmployeeRequest true "Employee"
// @Success 201 {object} response.Envelope
// @Router /company/employees [post]
func (h *CompanyHandler) AddEmployee(c *gin.Context) {
	var req dto.EmployeeRequest
	if !bindJSON(c, &req, "invalid employee payload") {
		return
	}
	employee, err := h.service.AddEmployee(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, employee)
}

// UpdateEmployee godoc
// @Summary Replace an employee
// @Tags Company
// @Accept json
// @Produce json
// @Param id path string true "Employee ID"
// @Param payload body dto.EmployeeRequest true "Employee"
// @Success 200 {object} response.Envelope
// @Router /company/employees/{id} [put]
func (h *CompanyHandler) UpdateEmployee(c *gin.Context) {
	var req dto.EmployeeRequest
	if !bindJSON(c, &req, "invalid employee payload") {
		return
	}
	employee, err := h.service.UpdateEmployee(c.Request.Context(), sessionFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, employee)
}

// DeleteEmployee godoc
// @Summary Remove an employee
// @Tags Company
// @Param id path string true "Employee ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /company/employees/{id} [delete]
func (h *CompanyHandler) DeleteEmployee(c *gin.Context) {
	if err := h.service.DeleteEmployee(c.Request.Context(), sessionFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Plans godoc
// @Summary List subscription plans
// @Tags Subscription
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subscription/plans [get]
func (h *CompanyHandler) Plans(c *gin.Context) {
	response.OK(c, service.Plans())
}

// Subscribe godoc
// @Summary Subscribe the company to a plan
// @Description Payment details are checked for presence only; next is /dashboard
// @Tags Subscription
// @Accept json
// @Produce json
// @Param payload body dto.SubscribeRequest true "Plan and payment details"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /subscription [post]
func (h *CompanyHandler) Subscribe(c *gin.Context) {
	var req dto.SubscribeRequest
	if !bindJSON(c, &req, "invalid subscription payload") {
		return
	}
	company, err := h.service.Subscribe(c.Request.Context(), sessionFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, company)
}
