// Package datetime is a tour of date and time handling: construction,
// parsing, arithmetic, calendar periods and zones.
//
// A time.Time always carries a location. Values without a zone meaning
// ("local" date-times such as a birthday or a wall-clock alarm) are kept in
// UTC here and must not be compared with instants from other zones.
// All values are immutable: AddDate, Add and In return new values.
package datetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// ErrInvalidTime is returned when a time-of-day component is out of range.
var ErrInvalidTime = errors.New("invalid time of day")

// Date returns midnight of the given calendar day with no zone meaning.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateTime returns a date and wall-clock time with no zone meaning.
func DateTime(year int, month time.Month, day, hour, min, sec, nsec int) time.Time {
	return time.Date(year, month, day, hour, min, sec, nsec, time.UTC)
}

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour, Minute, Second, Nanosecond int
}

// NewTimeOfDay validates every component instead of normalizing overflow
// the way time.Date does.
func NewTimeOfDay(hour, min, sec, nsec int) (TimeOfDay, error) {
	switch {
	case hour < 0 || hour > 23:
		return TimeOfDay{}, errors.Wrapf(ErrInvalidTime, "hour %d", hour)
	case min < 0 || min > 59:
		return TimeOfDay{}, errors.Wrapf(ErrInvalidTime, "minute %d", min)
	case sec < 0 || sec > 59:
		return TimeOfDay{}, errors.Wrapf(ErrInvalidTime, "second %d", sec)
	case nsec < 0 || nsec > 999_999_999:
		return TimeOfDay{}, errors.Wrapf(ErrInvalidTime, "nanosecond %d", nsec)
	}
	return TimeOfDay{Hour: hour, Minute: min, Second: sec, Nanosecond: nsec}, nil
}

// ClockOf returns the wall-clock part of t.
func ClockOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Nanosecond: t.Nanosecond()}
}

// On combines the time of day with the calendar day of date, keeping
// date's location.
func (c TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, c.Second, c.Nanosecond, date.Location())
}

// String uses the shortest ISO-8601 form: seconds are dropped when zero and
// the fraction is printed in groups of three digits.
func (c TimeOfDay) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%02d:%02d", c.Hour, c.Minute)
	if c.Second == 0 && c.Nanosecond == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, ":%02d", c.Second)
	switch n := c.Nanosecond; {
	case n == 0:
	case n%1_000_000 == 0:
		fmt.Fprintf(&b, ".%03d", n/1_000_000)
	case n%1_000 == 0:
		fmt.Fprintf(&b, ".%06d", n/1_000)
	default:
		fmt.Fprintf(&b, ".%09d", n)
	}
	return b.String()
}

// Zoned places a calendar day and a wall-clock time in loc.
func Zoned(date time.Time, clock TimeOfDay, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, clock.Hour, clock.Minute, clock.Second, clock.Nanosecond, loc)
}

// Components are the individual fields of a date-time.
type Components struct {
	Year       int
	Month      time.Month
	Day        int
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

// Fields extracts the components of t in t's own location.
func Fields(t time.Time) Components {
	y, m, d := t.Date()
	return Components{
		Year:       y,
		Month:      m,
		Day:        d,
		Hour:       t.Hour(),
		Minute:     t.Minute(),
		Second:     t.Second(),
		Nanosecond: t.Nanosecond(),
	}
}

var isoLocalLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseISO parses an ISO-8601 date-time. With an offset ("Z" or "+01:00")
// the result is that instant in a fixed zone; without one it is a local
// date-time in UTC.
func ParseISO(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	for _, layout := range isoLocalLayouts {
		if lt, lerr := time.Parse(layout, s); lerr == nil {
			return lt, nil
		}
	}
	return time.Time{}, errors.Wrapf(err, "parsing ISO-8601 date-time %q", s)
}

// Relative describes t relative to now, e.g. "3 days ago" or "2 weeks from now".
func Relative(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}
