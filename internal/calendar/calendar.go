package calendar

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultBoundaryHour = 4
	dateLayout          = "2006-01-02"
)

// DefaultEpoch is day 0. Stored day indices are relative to it, so it must
// never change once data has been written.
var DefaultEpoch = time.Date(2021, time.December, 17, 0, 0, 0, 0, time.UTC)

var ErrBeforeEpoch = errors.New("date is before the calendar epoch")

// Day counts calendar days since the epoch. The epoch itself is 0.
type Day int

// Calendar converts between wall-clock instants and days.
type Calendar struct {
	epoch        time.Time
	boundaryHour int
	loc          *time.Location
}

func New(epoch time.Time, boundaryHour int, loc *time.Location) (Calendar, error) {
	if boundaryHour < 0 || boundaryHour > 23 {
		return Calendar{}, fmt.Errorf("day boundary hour %d out of range 0-23", boundaryHour)
	}
	if loc == nil {
		loc = time.Local
	}
	y, m, d := epoch.Date()
	return Calendar{
		epoch:        time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		boundaryHour: boundaryHour,
		loc:          loc,
	}, nil
}

// Default uses DefaultEpoch, a 4 AM day boundary and the local time zone.
func Default() Calendar {
	c, _ := New(DefaultEpoch, DefaultBoundaryHour, time.Local)
	return c
}

func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

func (c Calendar) BoundaryHour() int { return c.boundaryHour }

func (c Calendar) Epoch() time.Time { return c.epoch }

// Today returns the day that now belongs to. Instants before the boundary
// hour still count as the previous date.
func (c Calendar) Today(now time.Time) (Day, error) {
	local := now.In(c.Location())
	if local.Hour() < c.boundaryHour {
		local = local.AddDate(0, 0, -1)
	}
	return c.FromDate(local)
}

// FromDate maps the calendar date of t, as written in t's own location, to a
// day. The boundary hour is not applied.
func (c Calendar) FromDate(t time.Time) (Day, error) {
	y, m, d := t.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	days := int(date.Sub(c.epoch).Hours() / 24)
	if days < 0 {
		return 0, fmt.Errorf("%s: %w", date.Format(dateLayout), ErrBeforeEpoch)
	}
	return Day(days), nil
}

// Date returns midnight of day d in the calendar's location.
func (c Calendar) Date(d Day) time.Time {
	y, m, dd := c.epoch.AddDate(0, 0, int(d)).Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, c.Location())
}

func (c Calendar) Weekday(d Day) time.Weekday {
	return c.epoch.AddDate(0, 0, int(d)).Weekday()
}

func (c Calendar) DayOfMonth(d Day) int {
	return c.epoch.AddDate(0, 0, int(d)).Day()
}

// ParseDate parses a YYYY-MM-DD string into a day.
func (c Calendar) ParseDate(s string) (Day, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return 0, err
	}
	return c.FromDate(t)
}

func (c Calendar) Format(d Day) string {
	return c.Date(d).Format(dateLayout)
}
