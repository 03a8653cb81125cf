package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/compliance-api/internal/access"
	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/models"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
)

var plans = []models.Plan{
	{
		ID:          "basic",
		Name:        "Basic",
		Price:       decimal.Zero,
		Currency:    "USD",
		PriceSuffix: "/month",
		Tag:         "Free",
		Features:    []string{"Up to 5 devices", "Basic security features", "Email support"},
	},
	{
		ID:          "standard",
		Name:        "Standard",
		Price:       decimal.NewFromInt(10),
		Currency:    "USD",
		PriceSuffix: "/month",
		Features:    []string{"Up to 20 devices", "Advanced security features", "Priority email support"},
	},
	{
		ID:          "premium",
		Name:        "Premium",
		Price:       decimal.NewFromInt(25),
		Currency:    "USD",
		PriceSuffix: "/month",
		Tag:         "Best Value",
		Features:    []string{"Unlimited devices", "Enterprise-grade security", "24/7 phone support"},
	},
}

// Plans returns the subscription catalogue.
func Plans() []models.Plan {
	out := make([]models.Plan, len(plans))
	copy(out, plans)
	return out
}

// FindPlan looks a plan up by id.
func FindPlan(id string) (models.Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return models.Plan{}, false
}

type companyStore interface {
	Create(ctx context.Context, company *models.Company) error
	FindByUserID(ctx context.Context, userID string) (*models.Company, error)
	Update(ctx context.Context, company *models.Company) error
	Subscribe(ctx context.Context, companyID, plan string, at time.Time) error
	ListEmployees(ctx context.Context, companyID string) ([]models.Employee, error)
	AddEmployee(ctx context.Context, emp *models.Employee) error
	UpdateEmployee(ctx context.Context, emp *models.Employee) error
	DeleteEmployee(ctx context.Context, companyID, id string) error
}

// CompanyService handles onboarding, the company profile, its staff list and
// the subscription.
type CompanyService struct {
	repo      companyStore
	cache     companyCacheInvalidator
	audit     auditTrail
	validator *validator.Validate
	logger    *zap.Logger
	clock     Clock
}

// NewCompanyService constructs the service.
func NewCompanyService(repo companyStore, cache companyCacheInvalidator, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *CompanyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &CompanyService{
		repo:      repo,
		cache:     cache,
		audit:     auditTrail{repo: audit, logger: logger},
		validator: validate,
		logger:    logger,
	}
}

// WithClock replaces the wall clock used to stamp subscriptions.
func (s *CompanyService) WithClock(clock Clock) *CompanyService {
	s.clock = clock
	return s
}

// Create registers the session user's company. The user becomes its first
// administrator.
func (s *CompanyService) Create(ctx context.Context, session *Session, req dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	if session == nil || session.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if err := validate(s.validator, req, "invalid company payload"); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByUserID(ctx, session.UserID)
	switch {
	case err == nil && existing != nil:
		return nil, appErrors.Clone(appErrors.ErrConflict, "company already exists")
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Internal(err, "failed to load company")
	}

	company := &models.Company{
		UserID:      session.UserID,
		Name:        strings.TrimSpace(req.Name),
		CUIT:        strings.TrimSpace(req.CUIT),
		RamaKey:     req.RamaKey,
		OwnerEntity: req.OwnerEntity,
		Address:     req.Address,
		PostalCode:  req.PostalCode,
		City:        req.City,
		Province:    req.Province,
		Country:     req.Country,
		Locality:    req.Locality,
		Phone:       req.Phone,
		Employees: []models.Employee{
			{Name: session.Name, Email: session.Email, Role: models.EmployeeRoleAdmin},
		},
		Services: models.AllServices(),
	}
	if req.Services != nil {
		company.Services = *req.Services
	}
	if err := s.repo.Create(ctx, company); err != nil {
		return nil, appErrors.Internal(err, "failed to create company")
	}

	session.Company = company
	s.audit.record(ctx, session, models.AuditActionCreate, "company", company.ID)
	return companyResponse(company), nil
}

// Get returns the session's company.
func (s *CompanyService) Get(ctx context.Context, session *Session) (*dto.CompanyResponse, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	return companyResponse(company), nil
}

// Update merges the non-nil fields of req into the company profile.
func (s *CompanyService) Update(ctx context.Context, session *Session, req dto.UpdateCompanyRequest) (*dto.CompanyResponse, error) {
	current, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	if err := validate(s.validator, req, "invalid company payload"); err != nil {
		return nil, err
	}

	company := *current
	mergeString(&company.Name, req.Name)
	mergeString(&company.CUIT, req.CUIT)
	mergeString(&company.RamaKey, req.RamaKey)
	mergeString(&company.OwnerEntity, req.OwnerEntity)
	mergeString(&company.Address, req.Address)
	mergeString(&company.PostalCode, req.PostalCode)
	mergeString(&company.City, req.City)
	mergeString(&company.Province, req.Province)
	mergeString(&company.Country, req.Country)
	mergeString(&company.Locality, req.Locality)
	mergeString(&company.Phone, req.Phone)
	if req.Services != nil {
		company.Services = *req.Services
	}
	if strings.TrimSpace(company.Name) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}

	if err := s.repo.Update(ctx, &company); err != nil {
		return nil, storeError(err, "company", "update")
	}
	session.Company = &company
	s.cache.InvalidateCompany(ctx, company.ID)
	s.audit.record(ctx, session, models.AuditActionUpdate, "company", company.ID)
	return companyResponse(&company), nil
}

// AddEmployee appends an employee to the staff list.
func (s *CompanyService) AddEmployee(ctx context.Context, session *Session, req dto.EmployeeRequest) (*models.Employee, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	if err := validate(s.validator, req, "invalid employee payload"); err != nil {
		return nil, err
	}
	emp := &models.Employee{
		CompanyID: company.ID,
		Name:      strings.TrimSpace(req.Name),
		Role:      strings.TrimSpace(req.Role),
		Email:     strings.TrimSpace(req.Email),
	}
	if err := s.repo.AddEmployee(ctx, emp); err != nil {
		return nil, appErrors.Internal(err, "failed to add employee")
	}
	s.audit.record(ctx, session, models.AuditActionCreate, "employee", emp.ID)
	return emp, nil
}

// UpdateEmployee replaces an employee. Demoting the last administrator is rejected.
func (s *CompanyService) UpdateEmployee(ctx context.Context, session *Session, id string, req dto.EmployeeRequest) (*models.Employee, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	if err := validate(s.validator, req, "invalid employee payload"); err != nil {
		return nil, err
	}
	employees, err := s.repo.ListEmployees(ctx, company.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load employees")
	}
	current, ok := findEmployee(employees, id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
	}
	role := strings.TrimSpace(req.Role)
	if current.Role == models.EmployeeRoleAdmin && role != models.EmployeeRoleAdmin && countAdmins(employees) == 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "the last administrator cannot change role")
	}

	emp := current
	emp.Name = strings.TrimSpace(req.Name)
	emp.Role = role
	emp.Email = strings.TrimSpace(req.Email)
	if err := s.repo.UpdateEmployee(ctx, &emp); err != nil {
		return nil, storeError(err, "employee", "update")
	}
	s.audit.record(ctx, session, models.AuditActionUpdate, "employee", emp.ID)
	return &emp, nil
}

// DeleteEmployee removes an employee. The last administrator cannot be removed.
func (s *CompanyService) DeleteEmployee(ctx context.Context, session *Session, id string) error {
	company, err := session.requireCompany()
	if err != nil {
		return err
	}
	employees, err := s.repo.ListEmployees(ctx, company.ID)
	if err != nil {
		return appErrors.Internal(err, "failed to load employees")
	}
	current, ok := findEmployee(employees, id)
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "employee not found")
	}
	if current.Role == models.EmployeeRoleAdmin && countAdmins(employees) == 1 {
		return appErrors.Clone(appErrors.ErrValidation, "the last administrator cannot be removed")
	}
	if err := s.repo.DeleteEmployee(ctx, company.ID, id); err != nil {
		return storeError(err, "employee", "delete")
	}
	s.audit.record(ctx, session, models.AuditActionDelete, "employee", id)
	return nil
}

// Subscribe activates plan for the company. Payment details are checked for
// presence only.
func (s *CompanyService) Subscribe(ctx context.Context, session *Session, req dto.SubscribeRequest) (*dto.CompanyResponse, error) {
	current, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	if err := validate(s.validator, req, "invalid subscription payload"); err != nil {
		return nil, err
	}
	plan, _ := FindPlan(req.Plan)
	if err := s.repo.Subscribe(ctx, current.ID, plan.ID, s.clock.Time().UTC()); err != nil {
		return nil, storeError(err, "company", "subscribe")
	}

	company := *current
	company.IsSubscribed = true
	company.SelectedPlan = &plan.ID
	session.Company = &company
	s.audit.record(ctx, session, models.AuditActionSubscribe, "company", company.ID)
	s.logger.Info("company subscribed", zap.String("company_id", company.ID), zap.String("plan", plan.ID))
	return companyResponse(&company), nil
}

func companyResponse(company *models.Company) *dto.CompanyResponse {
	signals := access.Signals{HasSession: true, HasCompany: true, IsSubscribed: company.IsSubscribed}
	return &dto.CompanyResponse{
		Company:        company,
		EnabledModules: access.Modules(company.Services),
		Next:           access.FirstScreen(signals),
	}
}

func mergeString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func findEmployee(employees []models.Employee, id string) (models.Employee, bool) {
	for _, emp := range employees {
		if emp.ID == id {
			return emp, true
		}
	}
	return models.Employee{}, false
}

func countAdmins(employees []models.Employee) int {
	n := 0
	for _, emp := range employees {
		if emp.Role == models.EmployeeRoleAdmin {
			n++
		}
	}
	return n
}
