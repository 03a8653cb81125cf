package models

import (
	"time"

	"github.com/noah-isme/compliance-api/pkg/civil"
)

// ConservationCertificate is a building conservation certificate. Its
// expiration date is supplied by the author.
type ConservationCertificate struct {
	ID                 string     `db:"id" json:"id"`
	CompanyID          string     `db:"company_id" json:"companyId"`
	PresentationDate   civil.Date `db:"presentation_date" json:"presentationDate"`
	ExpirationDate     civil.Date `db:"expiration_date" json:"expirationDate"`
	Intervener         string     `db:"intervener" json:"intervener"`
	RegistrationNumber string     `db:"registration_number" json:"registrationNumber"`
	PDF                FileRef    `db:"pdf" json:"pdf"`
	CreatedAt          time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updatedAt"`
}
