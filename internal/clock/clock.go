// Package clock supplies "now", "today" and cancellable timers in one
// explicit time zone.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// DayLayout formats day stamps, e.g. "2024-06-01".
const DayLayout = "2006-01-02"

// Calendar pairs a clock with the time zone used for calendar-day and
// time-of-day decisions.
type Calendar struct {
	clock clockwork.Clock
	loc   *time.Location
}

// New returns a Calendar. A nil clock means the real clock; a nil location
// means time.Local.
func New(c clockwork.Clock, loc *time.Location) *Calendar {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{clock: c, loc: loc}
}

// LoadLocation resolves an IANA zone name. Empty or "Local" is time.Local.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// Now returns the current time in the calendar's location.
func (c *Calendar) Now() time.Time {
	return c.clock.Now().In(c.loc)
}

// Today returns the current day stamp.
func (c *Calendar) Today() string {
	return c.Now().Format(DayLayout)
}

// Location returns the calendar's time zone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// MinutesSinceMidnight returns the local time of day of t in minutes.
func (c *Calendar) MinutesSinceMidnight(t time.Time) int {
	lt := t.In(c.loc)
	return lt.Hour()*60 + lt.Minute()
}

// AfterFunc arms fn to run once after d. Stop on the returned timer disarms it.
func (c *Calendar) AfterFunc(d time.Duration, fn func()) clockwork.Timer {
	return c.clock.AfterFunc(d, fn)
}

// Clock exposes the underlying clock.
func (c *Calendar) Clock() clockwork.Clock {
	return c.clock
}
