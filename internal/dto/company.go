package dto

import (
	"github.com/noah-isme/compliance-api/internal/access"
	"github.com/noah-isme/compliance-api/internal/models"
)

// CreateCompanyRequest captures POST /company payload.
type CreateCompanyRequest struct {
	Name        string                  `json:"name" validate:"required,max=200"`
	CUIT        string                  `json:"cuit" validate:"max=20"`
	RamaKey     string                  `json:"ramaKey"`
	OwnerEntity string                  `json:"ownerEntity"`
	Address     string                  `json:"address"`
	PostalCode  string                  `json:"postalCode"`
	City        string                  `json:"city"`
	Province    string                  `json:"province"`
	Country     string                  `json:"country"`
	Locality    string                  `json:"locality"`
	Phone       string                  `json:"phone"`
	Services    *models.CompanyServices `json:"services"`
}

// UpdateCompanyRequest is a partial merge; nil fields keep their value.
type UpdateCompanyRequest struct {
	Name        *string                 `json:"name" validate:"omitempty,min=1,max=200"`
	CUIT        *string                 `json:"cuit" validate:"omitempty,max=20"`
	RamaKey     *string                 `json:"ramaKey"`
	OwnerEntity *string                 `json:"ownerEntity"`
	Address     *string                 `json:"address"`
	PostalCode  *string                 `json:"postalCode"`
	City        *string                 `json:"city"`
	Province    *string                 `json:"province"`
	Country     *string                 `json:"country"`
	Locality    *string                 `json:"locality"`
	Phone       *string                 `json:"phone"`
	Services    *models.CompanyServices `json:"services"`
}

// EmployeeRequest creates or replaces an employee entry.
type EmployeeRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Role  string `json:"role" validate:"required,max=80"`
	Email string `json:"email" validate:"required,email"`
}

// CompanyResponse enriches the company with its navigation modules and the
// screen the session should land on.
type CompanyResponse struct {
	*models.Company
	EnabledModules []access.Module `json:"enabledModules"`
	Next           string          `json:"next"`
}

// PaymentDetails is checked for presence only; no charge is made.
type PaymentDetails struct {
	CardNumber string `json:"cardNumber" validate:"required"`
	ExpiryDate string `json:"expiryDate" validate:"required"`
	CVV        string `json:"cvv" validate:"required"`
	NameOnCard string `json:"nameOnCard" validate:"required"`
}

// SubscribeRequest captures POST /subscription payload.
type SubscribeRequest struct {
	Plan    string         `json:"plan" validate:"required,plan"`
	Payment PaymentDetails `json:"paymentDetails"`
}
