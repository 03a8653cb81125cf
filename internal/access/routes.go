package access

import "github.com/noah-isme/compliance-api/internal/models"

// Screen routes of the client application.
const (
	RouteLogin            = "/login"
	RouteRegister         = "/register"
	RouteCreateCompany    = "/create-company"
	RouteSubscription     = "/subscribe"
	RouteDashboard        = "/dashboard"
	RouteCertificates     = "/conservation-certificates"
	RouteSelfProtection   = "/self-protection-systems"
	RouteQRElevators      = "/qr-elevators"
	RouteQRWaterHeaters   = "/qr-water-heaters"
	RouteQRFireSafety     = "/qr-fire-safety"
	RouteQRDetection      = "/qr-detection"
	RouteElectrical       = "/electrical-installations"
	RouteEventInformation = "/event-information"
	RouteSettings         = "/settings"
	RouteWaterTanks       = "/water-tanks"
	RoutePlantSpecies     = "/plant-species"
	RouteSanitization     = "/sanitization"
)

var qrRoutes = map[models.QRDocumentType]string{
	models.QRElevators:               RouteQRElevators,
	models.QRWaterHeaters:            RouteQRWaterHeaters,
	models.QRFireSafetySystem:        RouteQRFireSafety,
	models.QRDetectionSystem:         RouteQRDetection,
	models.QRElectricalInstallations: RouteElectrical,
}

// RouteForQRType returns the list screen of a QR document type.
func RouteForQRType(t models.QRDocumentType) string {
	if route, ok := qrRoutes[t]; ok {
		return route
	}
	return RouteDashboard
}

// Module is a navigation entry of the application shell.
type Module struct {
	Route string                 `json:"route"`
	Title string                 `json:"title"`
	QR    *models.QRDocumentType `json:"qrType,omitempty"`
}

// Modules returns the navigation entries visible to a company: fixed modules
// plus the QR modules enabled in its services.
func Modules(services models.CompanyServices) []Module {
	modules := []Module{
		{Route: RouteDashboard, Title: "Dashboard"},
		{Route: RouteCertificates, Title: "Certificado de Conservación"},
		{Route: RouteSelfProtection, Title: "Sistema de Autoprotección"},
	}
	for _, t := range services.EnabledTypes() {
		qr := t
		title := "QR " + t.Label()
		if t == models.QRElectricalInstallations {
			title = t.Label()
		}
		modules = append(modules, Module{Route: RouteForQRType(t), Title: title, QR: &qr})
	}
	return append(modules,
		Module{Route: RouteEventInformation, Title: "Información del Evento"},
		Module{Route: RouteWaterTanks, Title: "Tanque de Agua"},
		Module{Route: RoutePlantSpecies, Title: "Especies Vegetales"},
		Module{Route: RouteSanitization, Title: "Sanitización, Desinsectación, Fumigación y Desratización"},
		Module{Route: RouteSettings, Title: "Configuración"},
	)
}
