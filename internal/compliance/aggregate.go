package compliance

import (
	"sort"

	"github.com/noah-isme/compliance-api/internal/access"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/pkg/civil"
)

// Item categories and display names.
const (
	CategoryCertificate    = "Certificado de Conservación"
	CategorySelfProtection = "Sistema de Autoprotección"
)

// Source identifies which collection an item came from.
type Source string

const (
	SourceCertificate    Source = "certificate"
	SourceSelfProtection Source = "self_protection_system"
	SourceQRDocument     Source = "qr_document"
)

// ExpirableItem is one row of the expiration dashboard.
type ExpirableItem struct {
	ID               string      `json:"id"`
	Source           Source      `json:"source"`
	DisplayName      string      `json:"displayName"`
	Category         string      `json:"category"`
	ExpirationDate   *civil.Date `json:"expirationDate"`
	DaysUntil        *int        `json:"daysUntil"`
	Status           Status      `json:"status"`
	StatusLabel      string      `json:"statusLabel"`
	NavigationTarget string      `json:"navigationTarget"`
	// Provisional marks QR documents whose extracted date awaits confirmation.
	Provisional bool `json:"provisional"`
}

// Aggregator projects artifacts into expirable items.
type Aggregator struct {
	classifier Classifier
}

// NewAggregator builds an aggregator using classifier.
func NewAggregator(classifier Classifier) Aggregator {
	return Aggregator{classifier: classifier}
}

// Aggregate uses the default classifier.
func Aggregate(certs []models.ConservationCertificate, systems []models.SelfProtectionSystem, docs []models.QRDocument, today civil.Date) []ExpirableItem {
	return NewAggregator(NewClassifier(DefaultDueSoonDays)).Aggregate(certs, systems, docs, today)
}

// Aggregate builds one item per certificate, self-protection system and QR
// document, ordered by days until expiration. Ties keep input order;
// undated items go last. Self-protection expirations are recomputed from the
// anchor so stale stored values never leak into the view.
func (a Aggregator) Aggregate(certs []models.ConservationCertificate, systems []models.SelfProtectionSystem, docs []models.QRDocument, today civil.Date) []ExpirableItem {
	items := make([]ExpirableItem, 0, len(certs)+len(systems)+len(docs))

	for _, cert := range certs {
		exp := cert.ExpirationDate
		items = append(items, a.item(today, &exp, ExpirableItem{
			ID:               cert.ID,
			Source:           SourceCertificate,
			DisplayName:      "Cert. " + cert.Intervener,
			Category:         CategoryCertificate,
			NavigationTarget: access.RouteCertificates,
		}))
	}

	for _, sys := range systems {
		_, exp := DeriveSelfProtectionDates(sys.ProbatoryDispositionDate)
		items = append(items, a.item(today, exp, ExpirableItem{
			ID:               sys.ID,
			Source:           SourceSelfProtection,
			DisplayName:      CategorySelfProtection,
			Category:         CategorySelfProtection,
			NavigationTarget: access.RouteSelfProtection,
		}))
	}

	for _, doc := range docs {
		exp := DeriveQRNominalExpiry(doc.ExtractedDate)
		items = append(items, a.item(today, &exp, ExpirableItem{
			ID:               doc.ID,
			Source:           SourceQRDocument,
			DisplayName:      "Doc. " + doc.Type.Label(),
			Category:         doc.Type.Label(),
			NavigationTarget: access.RouteForQRType(doc.Type),
			Provisional:      !doc.DateConfirmed,
		}))
	}

	sort.SliceStable(items, func(i, j int) bool {
		return lessByDaysUntil(items[i], items[j])
	})
	return items
}

func (a Aggregator) item(today civil.Date, exp *civil.Date, base ExpirableItem) ExpirableItem {
	cls := a.classifier.Classify(exp, today)
	base.ExpirationDate = exp
	base.DaysUntil = cls.DaysUntil
	base.Status = cls.Status
	base.StatusLabel = cls.Status.Label()
	return base
}

func lessByDaysUntil(a, b ExpirableItem) bool {
	switch {
	case a.DaysUntil == nil:
		return false
	case b.DaysUntil == nil:
		return true
	default:
		return *a.DaysUntil < *b.DaysUntil
	}
}

// Summary counts items per status.
type Summary struct {
	Total       int            `json:"total"`
	ByStatus    map[Status]int `json:"byStatus"`
	Provisional int            `json:"provisional"`
}

// Summarize counts items per status. Every status key is present.
func Summarize(items []ExpirableItem) Summary {
	summary := Summary{ByStatus: make(map[Status]int, len(Statuses))}
	for _, s := range Statuses {
		summary.ByStatus[s] = 0
	}
	for _, item := range items {
		summary.Total++
		summary.ByStatus[item.Status]++
		if item.Provisional {
			summary.Provisional++
		}
	}
	return summary
}

// FilterByStatus keeps items whose status is in statuses; an empty set keeps all.
func FilterByStatus(items []ExpirableItem, statuses ...Status) []ExpirableItem {
	if len(statuses) == 0 {
		return items
	}
	wanted := make(map[Status]struct{}, len(statuses))
	for _, s := range statuses {
		wanted[s] = struct{}{}
	}
	out := make([]ExpirableItem, 0, len(items))
	for _, item := range items {
		if _, ok := wanted[item.Status]; ok {
			out = append(out, item)
		}
	}
	return out
}
