// Package compliance holds the expiration engine: status classification,
// derived-date calculation and aggregation of artifacts into a prioritised view.
// Every function is pure; callers supply "today".
package compliance

import "github.com/noah-isme/compliance-api/pkg/civil"

// DefaultDueSoonDays is the window in which a valid item is flagged as due soon.
const DefaultDueSoonDays = 30

// Status is the expiration state of an item.
type Status string

const (
	StatusExpired Status = "EXPIRED"
	StatusDueSoon Status = "DUE_SOON"
	StatusValid   Status = "VALID"
	StatusUnknown Status = "UNKNOWN"
)

// Statuses lists every status in severity order.
var Statuses = []Status{StatusExpired, StatusDueSoon, StatusValid, StatusUnknown}

// Label returns the Spanish label shown to users.
func (s Status) Label() string {
	switch s {
	case StatusExpired:
		return "Vencido"
	case StatusDueSoon:
		return "Próximo a Vencer"
	case StatusValid:
		return "Vigente"
	default:
		return "N/A"
	}
}

// ParseStatus accepts the identifier of a status.
func ParseStatus(raw string) (Status, bool) {
	for _, s := range Statuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

// Classification is the result of classifying an expiration date.
type Classification struct {
	Status    Status
	DaysUntil *int
}

// Classifier classifies expiration dates against a due-soon window.
type Classifier struct {
	dueSoonDays int
}

// NewClassifier builds a classifier; a non-positive window falls back to DefaultDueSoonDays.
func NewClassifier(dueSoonDays int) Classifier {
	if dueSoonDays <= 0 {
		dueSoonDays = DefaultDueSoonDays
	}
	return Classifier{dueSoonDays: dueSoonDays}
}

// Classify uses the default due-soon window.
func Classify(expiration *civil.Date, today civil.Date) Classification {
	return NewClassifier(DefaultDueSoonDays).Classify(expiration, today)
}

// Classify returns the status of an item expiring on expiration. An item
// expiring today is already expired.
func (c Classifier) Classify(expiration *civil.Date, today civil.Date) Classification {
	if expiration == nil || expiration.IsZero() {
		return Classification{Status: StatusUnknown}
	}
	days := today.DaysUntil(*expiration)
	status := StatusValid
	switch {
	case days <= 0:
		status = StatusExpired
	case days <= c.dueSoonDays:
		status = StatusDueSoon
	}
	return Classification{Status: status, DaysUntil: &days}
}
