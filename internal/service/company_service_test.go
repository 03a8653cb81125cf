package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-api/internal/access"
	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/pkg/civil"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
)

func newCompanyFixture() (*CompanyService, *mockCompanyStore, *recordingInvalidator, *mockAuditRepo) {
	store := &mockCompanyStore{}
	cache := &recordingInvalidator{}
	audit := &mockAuditRepo{}
	return NewCompanyService(store, cache, audit, nil, nil), store, cache, audit
}

func onboardingSession() *Session {
	return &Session{UserID: "user-1", Email: "user@example.com", Name: "Usuario Ejemplo"}
}

func TestCompanyServiceCreate(t *testing.T) {
	svc, store, _, audit := newCompanyFixture()
	session := onboardingSession()

	resp, err := svc.Create(context.Background(), session, dto.CreateCompanyRequest{
		Name:     "Edificio Central",
		Services: &models.CompanyServices{Elevators: true},
	})
	require.NoError(t, err)

	assert.Equal(t, "company-1", resp.ID)
	assert.Equal(t, access.RouteSubscription, resp.Next)
	require.Len(t, resp.Employees, 1)
	assert.Equal(t, models.EmployeeRoleAdmin, resp.Employees[0].Role)
	assert.Equal(t, "user@example.com", resp.Employees[0].Email)
	assert.Equal(t, "Usuario Ejemplo", resp.Employees[0].Name)
	assert.Same(t, store.company, session.Company)
	assert.Contains(t, audit.actions(), "CREATE:company")

	var qrRoutes []string
	for _, m := range resp.EnabledModules {
		if m.QR != nil {
			qrRoutes = append(qrRoutes, m.Route)
		}
	}
	assert.Equal(t, []string{access.RouteQRElevators}, qrRoutes)

	_, err = svc.Create(context.Background(), onboardingSession(), dto.CreateCompanyRequest{Name: "Otra"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
}

func TestCompanyServiceCreateEnablesEveryQRModuleByDefault(t *testing.T) {
	svc, store, _, _ := newCompanyFixture()

	resp, err := svc.Create(context.Background(), onboardingSession(), dto.CreateCompanyRequest{Name: "Edificio"})
	require.NoError(t, err)

	assert.Equal(t, models.AllServices(), store.company.Services)
	assert.Equal(t, models.QRDocumentTypes, store.company.Services.EnabledTypes())
	qrModules := 0
	for _, m := range resp.EnabledModules {
		if m.QR != nil {
			qrModules++
		}
	}
	assert.Equal(t, len(models.QRDocumentTypes), qrModules)
}

func TestCompanyServiceCreateValidation(t *testing.T) {
	svc, _, _, _ := newCompanyFixture()

	_, err := svc.Create(context.Background(), onboardingSession(), dto.CreateCompanyRequest{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Create(context.Background(), nil, dto.CreateCompanyRequest{Name: "x"})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestCompanyServiceUpdateMergesFields(t *testing.T) {
	svc, _, cache, _ := newCompanyFixture()
	session := onboardingSession()
	_, err := svc.Create(context.Background(), session, dto.CreateCompanyRequest{Name: "Edificio", City: "Rosario"})
	require.NoError(t, err)

	phone := "341-555"
	resp, err := svc.Update(context.Background(), session, dto.UpdateCompanyRequest{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Edificio", resp.Name)
	assert.Equal(t, "Rosario", resp.City)
	assert.Equal(t, "341-555", resp.Phone)
	assert.Equal(t, 1, cache.count())

	blank := "  "
	_, err = svc.Update(context.Background(), session, dto.UpdateCompanyRequest{Name: &blank})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Update(context.Background(), onboardingSession(), dto.UpdateCompanyRequest{Phone: &phone})
	assert.ErrorIs(t, err, appErrors.ErrNoCompany)
}

func TestCompanyServiceLastAdministratorProtection(t *testing.T) {
	svc, store, _, _ := newCompanyFixture()
	session := onboardingSession()
	_, err := svc.Create(context.Background(), session, dto.CreateCompanyRequest{Name: "Edificio"})
	require.NoError(t, err)
	adminID := store.employees[0].ID

	err = svc.DeleteEmployee(context.Background(), session, adminID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.UpdateEmployee(context.Background(), session, adminID, dto.EmployeeRequest{Name: "U", Role: "Operador", Email: "u@example.com"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	second, err := svc.AddEmployee(context.Background(), session, dto.EmployeeRequest{Name: "Ana", Role: models.EmployeeRoleAdmin, Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Position)

	require.NoError(t, svc.DeleteEmployee(context.Background(), session, adminID))
	assert.Len(t, store.employees, 1)

	err = svc.DeleteEmployee(context.Background(), session, "missing")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestCompanyServiceSubscribe(t *testing.T) {
	svc, store, _, audit := newCompanyFixture()
	svc.WithClock(FixedClock(civil.MustParse("2025-06-10")))
	session := onboardingSession()
	_, err := svc.Create(context.Background(), session, dto.CreateCompanyRequest{Name: "Edificio"})
	require.NoError(t, err)

	_, err = svc.Subscribe(context.Background(), session, dto.SubscribeRequest{Plan: "standard"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	payment := dto.PaymentDetails{CardNumber: "4111", ExpiryDate: "12/30", CVV: "123", NameOnCard: "U"}
	_, err = svc.Subscribe(context.Background(), session, dto.SubscribeRequest{Plan: "gold", Payment: payment})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	resp, err := svc.Subscribe(context.Background(), session, dto.SubscribeRequest{Plan: "standard", Payment: payment})
	require.NoError(t, err)
	assert.Equal(t, access.RouteDashboard, resp.Next)
	assert.True(t, resp.IsSubscribed)
	require.NotNil(t, resp.SelectedPlan)
	assert.Equal(t, "standard", *resp.SelectedPlan)
	assert.Equal(t, "standard", store.subscribed)
	assert.Equal(t, time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC), store.subscribedAt)
	assert.True(t, session.Signals().IsSubscribed)
	assert.Contains(t, audit.actions(), "SUBSCRIBE:company")
}

func TestPlansCatalogue(t *testing.T) {
	catalogue := Plans()
	require.Len(t, catalogue, 3)
	assert.True(t, catalogue[0].IsFree())
	assert.Equal(t, "Best Value", catalogue[2].Tag)

	plan, ok := FindPlan("premium")
	require.True(t, ok)
	assert.Equal(t, "25", plan.Price.String())
	_, ok = FindPlan("gold")
	assert.False(t, ok)
}
