package models

import (
	"database/sql/driver"
	"time"

	"github.com/noah-isme/compliance-api/pkg/civil"
)

// DrillCount is the fixed number of evacuation drill slots per system.
const DrillCount = 4

// Drill is one evacuation drill slot.
type Drill struct {
	Date *civil.Date `json:"date"`
	PDF  FileRef     `json:"pdf"`
}

// DrillSet holds the drill slots persisted as a JSONB array.
type DrillSet [DrillCount]Drill

// Value marshals the drills; pending files are rejected.
func (d DrillSet) Value() (driver.Value, error) {
	for _, drill := range d {
		if drill.PDF.IsPending() {
			return nil, ErrPendingFileRef
		}
	}
	return valueJSON(d, "drills")
}

// Scan reads the JSONB array. Short arrays leave trailing slots empty.
func (d *DrillSet) Scan(src interface{}) error {
	*d = DrillSet{}
	var list []Drill
	if err := scanJSON(src, &list, "drills"); err != nil {
		return err
	}
	for i := 0; i < len(list) && i < DrillCount; i++ {
		d[i] = list[i]
	}
	return nil
}

// SelfProtectionSystem is a self-protection dossier. Extension and expiration
// dates are derived from the probatory disposition date by the server.
type SelfProtectionSystem struct {
	ID                       string      `db:"id" json:"id"`
	CompanyID                string      `db:"company_id" json:"companyId"`
	ProbatoryDispositionDate *civil.Date `db:"probatory_disposition_date" json:"probatoryDispositionDate"`
	ProbatoryDispositionPDF  FileRef     `db:"probatory_disposition_pdf" json:"probatoryDispositionPdf"`
	ExtensionDate            *civil.Date `db:"extension_date" json:"extensionDate"`
	ExtensionPDF             FileRef     `db:"extension_pdf" json:"extensionPdf"`
	ExpirationDate           *civil.Date `db:"expiration_date" json:"expirationDate"`
	Drills                   DrillSet    `db:"drills" json:"drills"`
	Intervener               string      `db:"intervener" json:"intervener"`
	RegistrationNumber       string      `db:"registration_number" json:"registrationNumber"`
	CreatedAt                time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt                time.Time   `db:"updated_at" json:"updatedAt"`
}

// Files lists every stored file attached to the system.
func (s SelfProtectionSystem) Files() []FileRef {
	files := []FileRef{s.ProbatoryDispositionPDF, s.ExtensionPDF}
	for _, drill := range s.Drills {
		files = append(files, drill.PDF)
	}
	out := files[:0]
	for _, f := range files {
		if f.IsStored() {
			out = append(out, f)
		}
	}
	return out
}
