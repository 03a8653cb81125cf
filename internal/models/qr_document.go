package models

import (
	"time"

	"github.com/noah-isme/compliance-api/pkg/civil"
)

// QRDocumentType identifies the equipment a QR inspection document covers.
type QRDocumentType string

const (
	QRElevators               QRDocumentType = "Elevators"
	QRWaterHeaters            QRDocumentType = "WaterHeaters"
	QRFireSafetySystem        QRDocumentType = "FireSafetySystem"
	QRDetectionSystem         QRDocumentType = "DetectionSystem"
	QRElectricalInstallations QRDocumentType = "ElectricalInstallations"
)

// QRDocumentTypes is the catalogue in display order.
var QRDocumentTypes = []QRDocumentType{
	QRElevators,
	QRWaterHeaters,
	QRFireSafetySystem,
	QRDetectionSystem,
	QRElectricalInstallations,
}

var qrLabels = map[QRDocumentType]string{
	QRElevators:               "Ascensores",
	QRWaterHeaters:            "Termotanques y Caldera",
	QRFireSafetySystem:        "Instalación Fija Contra Incendios",
	QRDetectionSystem:         "Detección",
	QRElectricalInstallations: "Medición de puesta a tierra",
}

// Valid reports whether t is part of the catalogue.
func (t QRDocumentType) Valid() bool {
	_, ok := qrLabels[t]
	return ok
}

// Label returns the Spanish display label.
func (t QRDocumentType) Label() string {
	if label, ok := qrLabels[t]; ok {
		return label
	}
	return string(t)
}

// ParseQRDocumentType accepts either the identifier or the display label.
func ParseQRDocumentType(raw string) (QRDocumentType, bool) {
	if t := QRDocumentType(raw); t.Valid() {
		return t, true
	}
	for t, label := range qrLabels {
		if label == raw {
			return t, true
		}
	}
	return "", false
}

// QRDocument is an inspection document whose relevant date is read from the
// uploaded PDF.
type QRDocument struct {
	ID                   string         `db:"id" json:"id"`
	CompanyID            string         `db:"company_id" json:"companyId"`
	Type                 QRDocumentType `db:"type" json:"type"`
	ExtractedDate        civil.Date     `db:"extracted_date" json:"extractedDate"`
	UploadDate           civil.Date     `db:"upload_date" json:"uploadDate"`
	PDF                  FileRef        `db:"pdf" json:"pdf"`
	ExtractionConfidence float64        `db:"extraction_confidence" json:"extractionConfidence"`
	DateConfirmed        bool           `db:"date_confirmed" json:"dateConfirmed"`
	CreatedAt            time.Time      `db:"created_at" json:"createdAt"`

	// ExpirationDate is the nominal expiry derived at read time.
	ExpirationDate *civil.Date `db:"-" json:"expirationDate,omitempty"`
}

// QRDocumentFilter narrows QR document listings.
type QRDocumentFilter struct {
	Type        *QRDocumentType
	Unconfirmed bool
}
