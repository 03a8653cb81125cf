package models

import (
	"database/sql/driver"
	"time"

	"github.com/shopspring/decimal"
)

// EmployeeRoleAdmin is the role assigned to the user that creates the company.
const EmployeeRoleAdmin = "Administrador"

// Company is the single organisation owned by a user.
type Company struct {
	ID           string          `db:"id" json:"id"`
	UserID       string          `db:"user_id" json:"userId"`
	Name         string          `db:"name" json:"name"`
	CUIT         string          `db:"cuit" json:"cuit"`
	RamaKey      string          `db:"rama_key" json:"ramaKey"`
	OwnerEntity  string          `db:"owner_entity" json:"ownerEntity"`
	Address      string          `db:"address" json:"address"`
	PostalCode   string          `db:"postal_code" json:"postalCode"`
	City         string          `db:"city" json:"city"`
	Province     string          `db:"province" json:"province"`
	Country      string          `db:"country" json:"country"`
	Locality     string          `db:"locality" json:"locality"`
	Phone        string          `db:"phone" json:"phone"`
	IsSubscribed bool            `db:"is_subscribed" json:"isSubscribed"`
	SelectedPlan *string         `db:"selected_plan" json:"selectedPlan,omitempty"`
	Services     CompanyServices `db:"services" json:"services"`
	Employees    []Employee      `db:"-" json:"employees"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// Employee is a member of the company staff list.
type Employee struct {
	ID        string    `db:"id" json:"id"`
	CompanyID string    `db:"company_id" json:"-"`
	Position  int       `db:"position" json:"-"`
	Name      string    `db:"name" json:"name"`
	Role      string    `db:"role" json:"role"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

// CompanyServices toggles the optional QR modules of a company; one flag per
// QRDocumentType.
type CompanyServices struct {
	Elevators               bool `json:"Elevators"`
	WaterHeaters            bool `json:"WaterHeaters"`
	FireSafetySystem        bool `json:"FireSafetySystem"`
	DetectionSystem         bool `json:"DetectionSystem"`
	ElectricalInstallations bool `json:"ElectricalInstallations"`
}

// AllServices switches every QR module on; new companies start this way and
// opt out in settings.
func AllServices() CompanyServices {
	return CompanyServices{
		Elevators:               true,
		WaterHeaters:            true,
		FireSafetySystem:        true,
		DetectionSystem:         true,
		ElectricalInstallations: true,
	}
}

// Enabled reports whether the module for t is switched on.
func (s CompanyServices) Enabled(t QRDocumentType) bool {
	switch t {
	case QRElevators:
		return s.Elevators
	case QRWaterHeaters:
		return s.WaterHeaters
	case QRFireSafetySystem:
		return s.FireSafetySystem
	case QRDetectionSystem:
		return s.DetectionSystem
	case QRElectricalInstallations:
		return s.ElectricalInstallations
	default:
		return false
	}
}

// EnabledTypes lists the enabled QR types in catalogue order.
func (s CompanyServices) EnabledTypes() []QRDocumentType {
	out := make([]QRDocumentType, 0, len(QRDocumentTypes))
	for _, t := range QRDocumentTypes {
		if s.Enabled(t) {
			out = append(out, t)
		}
	}
	return out
}

// Value persists services as JSONB.
func (s CompanyServices) Value() (driver.Value, error) {
	return valueJSON(s, "company services")
}

// Scan reads services from JSONB.
func (s *CompanyServices) Scan(src interface{}) error {
	*s = CompanyServices{}
	return scanJSON(src, s, "company services")
}

// Plan is an entry of the subscription catalogue.
type Plan struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	PriceSuffix string          `json:"priceSuffix"`
	Tag         string          `json:"tag,omitempty"`
	Features    []string        `json:"features"`
}

// IsFree reports whether the plan has no charge.
func (p Plan) IsFree() bool {
	return p.Price.IsZero()
}
