// Package civil provides a calendar date without time-of-day or location.
//
// Compliance dates (presentation, expiration, drill and anchor dates) are
// calendar facts. Keeping them out of time.Time avoids off-by-one shifts when a
// date-only value is interpreted in UTC and rendered in a local zone.
package civil

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Layout is the wire format of a Date.
const Layout = "2006-01-02"

// Date is a calendar date. The zero value is the "unset" date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New builds a date, normalising overflowing components the way time.Date does.
func New(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime returns the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current date in the provided location.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return FromTime(now.In(loc))
}

// Parse reads a YYYY-MM-DD value. A trailing time component ("T...") is ignored.
func Parse(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > len(Layout) && raw[len(Layout)] == 'T' {
		raw = raw[:len(Layout)]
	}
	t, err := time.Parse(Layout, raw)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return FromTime(t), nil
}

// ParseOptional returns nil for blank input.
func ParseOptional(raw string) (*Date, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// MustParse panics on malformed input; intended for tests and constants.
func MustParse(raw string) Date {
	d, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// IsValid reports whether d names an existing calendar day.
func (d Date) IsValid() bool {
	return !d.IsZero() && New(d.Year, d.Month, d.Day) == d
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Ptr returns a pointer to a copy of d.
func (d Date) Ptr() *Date {
	return &d
}

// AddMonths moves the date by n calendar months keeping the day of month,
// clamped to the last day of the target month.
func (d Date) AddMonths(n int) Date {
	total := int(d.Month) - 1 + n
	year := d.Year + floorDiv(total, 12)
	month := time.Month(floorMod(total, 12) + 1)
	day := d.Day
	if last := daysIn(year, month); day > last {
		day = last
	}
	return Date{Year: year, Month: month, Day: day}
}

// AddYears is AddMonths(12*n).
func (d Date) AddYears(n int) Date {
	return d.AddMonths(12 * n)
}

// AddDays moves the date by n days.
func (d Date) AddDays(n int) Date {
	return New(d.Year, d.Month, d.Day+n)
}

const secondsPerDay = 24 * 60 * 60

// DaysUntil returns the number of days from d to other (negative when other is earlier).
func (d Date) DaysUntil(other Date) int {
	return int((other.midnight().Unix() - d.midnight().Unix()) / secondsPerDay)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Compare(other) < 0
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.Compare(other) > 0
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(int(d.Month) - int(other.Month))
	default:
		return sign(d.Day - other.Day)
	}
}

// MarshalJSON encodes the date as a YYYY-MM-DD string; the zero date is "".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a YYYY-MM-DD string; "" yields the zero date.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the date as a UTC midnight timestamp, which maps onto a DATE column.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.midnight(), nil
}

// Scan reads DATE columns returned either as time.Time or text.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = FromTime(v)
		return nil
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("civil: cannot scan %T into Date", src)
	}
}

func (d Date) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
