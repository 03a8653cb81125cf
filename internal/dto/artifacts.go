package dto

import (
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/pkg/civil"
)

// CertificateRequest creates or replaces a conservation certificate.
type CertificateRequest struct {
	PresentationDate   civil.Date     `json:"presentationDate"`
	ExpirationDate     civil.Date     `json:"expirationDate"`
	Intervener         string         `json:"intervener" validate:"required,max=200"`
	RegistrationNumber string         `json:"registrationNumber" validate:"required,max=100"`
	PDF                models.FileRef `json:"pdf"`
}

// DrillRequest is one drill slot; Date may be blank.
type DrillRequest struct {
	Date string         `json:"date" validate:"omitempty,civildate"`
	PDF  models.FileRef `json:"pdf"`
}

// SelfProtectionRequest creates or replaces a self-protection system.
// Extension and expiration dates are always derived by the server; values
// sent by the client are ignored.
type SelfProtectionRequest struct {
	ProbatoryDispositionDate string         `json:"probatoryDispositionDate"`
	ProbatoryDispositionPDF  models.FileRef `json:"probatoryDispositionPdf"`
	ExtensionPDF             models.FileRef `json:"extensionPdf"`
	Drills                   []DrillRequest `json:"drills" validate:"max=4,dive"`
	Intervener               string         `json:"intervener" validate:"required,max=200"`
	RegistrationNumber       string         `json:"registrationNumber" validate:"required,max=100"`
}

// ConfirmDateRequest overrides the date extracted from a QR document.
type ConfirmDateRequest struct {
	Date civil.Date `json:"date"`
}

// EventRequest creates or replaces an incident report.
type EventRequest struct {
	Date              civil.Date         `json:"date"`
	Time              string             `json:"time" validate:"required,clocktime"`
	Description       string             `json:"description" validate:"required"`
	CorrectiveActions string             `json:"correctiveActions"`
	Testimonials      []string           `json:"testimonials"`
	Observations      []string           `json:"observations"`
	FinalChecks       models.FinalChecks `json:"finalChecks"`
	PhysicalEvidence  []models.FileRef   `json:"physicalEvidence" validate:"max=20"`
}
