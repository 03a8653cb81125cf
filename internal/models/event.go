package models

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/compliance-api/pkg/civil"
)

// FinalChecks is the fixed checklist closing an incident report.
type FinalChecks struct {
	UsoMatafuegos           bool `json:"usoMatafuegos"`
	RequerimientosServicios bool `json:"requerimientosServicios"`
	DanoPersonas            bool `json:"danoPersonas"`
	DanosEdilicios          bool `json:"danosEdilicios"`
	Evacuacion              bool `json:"evacuacion"`
}

// FinalCheckItem pairs a checklist label with its value.
type FinalCheckItem struct {
	Key     string
	Label   string
	Checked bool
}

// Items returns the checklist in form order with its Spanish labels.
func (f FinalChecks) Items() []FinalCheckItem {
	return []FinalCheckItem{
		{Key: "usoMatafuegos", Label: "Uso de matafuegos y otros elementos de extinción.", Checked: f.UsoMatafuegos},
		{Key: "requerimientosServicios", Label: "Requerimientos de servicios médicos privados, SAME, bomberos, Defensa Civil, Guardia de auxilio y Policia.", Checked: f.RequerimientosServicios},
		{Key: "danoPersonas", Label: "Daño a personas.", Checked: f.DanoPersonas},
		{Key: "danosEdilicios", Label: "Daños edilicios.", Checked: f.DanosEdilicios},
		{Key: "evacuacion", Label: "Evacuación parcial o total del edificio.", Checked: f.Evacuacion},
	}
}

// Value persists the checklist as JSONB.
func (f FinalChecks) Value() (driver.Value, error) {
	return valueJSON(f, "final checks")
}

// Scan reads the checklist from JSONB.
func (f *FinalChecks) Scan(src interface{}) error {
	*f = FinalChecks{}
	return scanJSON(src, f, "final checks")
}

// EventInformation is an incident report. It carries no expiration semantics.
type EventInformation struct {
	ID                string         `db:"id" json:"id"`
	CompanyID         string         `db:"company_id" json:"companyId"`
	Date              civil.Date     `db:"date" json:"date"`
	Time              string         `db:"time" json:"time"`
	Description       string         `db:"description" json:"description"`
	CorrectiveActions string         `db:"corrective_actions" json:"correctiveActions"`
	Testimonials      pq.StringArray `db:"testimonials" json:"testimonials"`
	Observations      pq.StringArray `db:"observations" json:"observations"`
	FinalChecks       FinalChecks    `db:"final_checks" json:"finalChecks"`
	PhysicalEvidence  FileRefs       `db:"physical_evidence" json:"physicalEvidence"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updatedAt"`
}

// EventFilter narrows event listings by date range (inclusive).
type EventFilter struct {
	From *civil.Date
	To   *civil.Date
}
