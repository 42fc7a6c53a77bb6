// Package tz converts between wall-clock times in a configured IANA zone
// and absolute instants, independent of the process's local zone.
package tz

import (
	"fmt"
	"time"
)

// Clock performs wall-clock conversions for one configured zone. All
// comparisons elsewhere in the system happen on UTC instants; wall tuples
// only exist at the edges (parsing user-facing dates, rendering labels).
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock loads the zone and returns a clock bound to it. An unknown zone
// is a configuration error; callers treat it as fatal at startup.
func NewClock(zone string) (*Clock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("tz: load zone %q: %w", zone, err)
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// NewClockInLocation binds a clock to an already-loaded location.
func NewClockInLocation(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, now: time.Now}
}

// WithNow returns a copy of the clock with its time source overridden.
// Tests use this to pin "now"; the receiver keeps the real one.
func (c *Clock) WithNow(now func() time.Time) *Clock {
	clone := *c
	clone.now = now
	return &clone
}

// Now returns the current instant in UTC.
func (c *Clock) Now() time.Time {
	return c.now().UTC()
}

// Location returns the configured zone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// WallToInstant lowers a wall-clock tuple in the configured zone to a UTC
// instant, using the zone's offset at that specific moment. Around a DST
// transition this is the offset in effect then, not a fixed one.
func (c *Clock) WallToInstant(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, c.loc).UTC()
}

// InstantToWall raises a UTC instant back to the wall-clock tuple a person
// in the configured zone would read.
func (c *Clock) InstantToWall(instant time.Time) (year int, month time.Month, day, hour, minute int) {
	local := instant.In(c.loc)
	return local.Year(), local.Month(), local.Day(), local.Hour(), local.Minute()
}

// WeekdayOf returns the weekday of the instant as seen in the configured
// zone (Sunday = 0).
func (c *Clock) WeekdayOf(instant time.Time) time.Weekday {
	return instant.In(c.loc).Weekday()
}

// DayStart returns the instant at which the given calendar day begins in
// the configured zone.
func (c *Clock) DayStart(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, c.loc).UTC()
}

// NextDay advances a calendar day by walking through the zone's midnight,
// which stays correct across 23- and 25-hour DST days.
func (c *Clock) NextDay(year int, month time.Month, day int) (int, time.Month, int) {
	next := time.Date(year, month, day, 12, 0, 0, 0, c.loc).AddDate(0, 0, 1).In(c.loc)
	return next.Year(), next.Month(), next.Day()
}

// Label renders a human-readable slot label from an instant, derived purely
// from the configured zone, never from server locale.
func (c *Clock) Label(instant time.Time) string {
	return instant.In(c.loc).Format("Monday, Jan 2 at 3:04 PM")
}

// DayLabel renders a human-readable date heading.
func (c *Clock) DayLabel(instant time.Time) string {
	return instant.In(c.loc).Format("Monday, January 2")
}

// TimeLabel renders just the clock portion of an instant.
func (c *Clock) TimeLabel(instant time.Time) string {
	return instant.In(c.loc).Format("3:04 PM")
}
