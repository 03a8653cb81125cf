package service

import (
	"time"

	"github.com/noah-isme/compliance-api/pkg/civil"
)

// Clock yields the calendar "today" used for expiration math.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// Time returns the current instant.
func (c Clock) Time() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Today returns the current civil date in the clock's location.
func (c Clock) Today() civil.Date {
	return civil.Today(c.Time(), c.Location)
}

// FixedClock pins today to date, for tests and reports run "as of" a date.
func FixedClock(date civil.Date) Clock {
	return Clock{
		Now:      func() time.Time { return time.Date(date.Year, date.Month, date.Day, 12, 0, 0, 0, time.UTC) },
		Location: time.UTC,
	}
}
