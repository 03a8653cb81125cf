package compliance

import (
	"fmt"

	"github.com/noah-isme/compliance-api/pkg/civil"
)

const (
	extensionMonths  = 12
	expirationMonths = 24
	qrValidityMonths = 12
)

// DerivationError reports an anchor date that could not be interpreted.
type DerivationError struct {
	Field string
	Raw   string
	Err   error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("derive from %s %q: %v", e.Field, e.Raw, e.Err)
}

func (e *DerivationError) Unwrap() error { return e.Err }

// DeriveSelfProtectionDates returns the extension (anchor + 12 months) and
// expiration (anchor + 24 months) of a self-protection system. A nil anchor
// yields nil dates. Days are clamped to the end of the target month.
func DeriveSelfProtectionDates(anchor *civil.Date) (extension, expiration *civil.Date) {
	if anchor == nil || anchor.IsZero() {
		return nil, nil
	}
	ext := anchor.AddMonths(extensionMonths)
	exp := anchor.AddMonths(expirationMonths)
	return &ext, &exp
}

// DeriveQRNominalExpiry returns the nominal expiry of a QR document.
func DeriveQRNominalExpiry(extracted civil.Date) civil.Date {
	return extracted.AddMonths(qrValidityMonths)
}

// ParseAnchor reads an optional anchor date. Blank input yields (nil, nil);
// malformed input yields (nil, *DerivationError) so callers can log it and
// continue without derived dates.
func ParseAnchor(field, raw string) (*civil.Date, error) {
	d, err := civil.ParseOptional(raw)
	if err != nil {
		return nil, &DerivationError{Field: field, Raw: raw, Err: err}
	}
	return d, nil
}
