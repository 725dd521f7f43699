package datetime

import (
	"strconv"
	"strings"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// Period is a date-based amount of time. Unlike time.Duration it is measured
// in calendar units whose length varies: a month is 28 to 31 days.
type Period struct {
	Years, Months, Days int
}

// PeriodBetween returns the calendar difference between the dates of start
// and end, ignoring the time of day. The result is negative when end is
// before start. Days never exceed the month they are counted in.
func PeriodBetween(start, end time.Time) Period {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()

	totalMonths := (ey*12 + int(em)) - (sy*12 + int(sm))
	days := ed - sd

	switch {
	case totalMonths > 0 && days < 0:
		totalMonths--
		anchor := AddMonths(Date(sy, sm, sd), totalMonths)
		days = int((Date(ey, em, ed).Unix() - anchor.Unix()) / secondsPerDay)
	case totalMonths < 0 && days > 0:
		totalMonths++
		days -= daysIn(ey, em)
	}

	return Period{Years: totalMonths / 12, Months: totalMonths % 12, Days: days}
}

// AddMonths adds n calendar months, clamping the day to the last day of the
// resulting month. Unlike t.AddDate(0, n, 0), January 31st plus one month is
// February 28th (or 29th), not March 3rd.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	months := y*12 + int(m) - 1 + n
	ny, nm := months/12, time.Month(months%12+1)
	if months < 0 && months%12 != 0 {
		ny--
		nm = time.Month(months%12 + 13)
	}
	if last := daysIn(ny, nm); d > last {
		d = last
	}
	return time.Date(ny, nm, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsZero reports whether all units are zero.
func (p Period) IsZero() bool { return p == Period{} }

// AddTo applies the period to t: years and months first (clamped), then days.
func (p Period) AddTo(t time.Time) time.Time {
	return AddMonths(t, p.Years*12+p.Months).AddDate(0, 0, p.Days)
}

// String formats the period as ISO-8601, e.g. "P1Y2M3D". The zero period is "P0D".
func (p Period) String() string {
	if p.IsZero() {
		return "P0D"
	}
	var b strings.Builder
	b.WriteByte('P')
	for _, u := range []struct {
		n    int
		unit byte
	}{{p.Years, 'Y'}, {p.Months, 'M'}, {p.Days, 'D'}} {
		if u.n != 0 {
			b.WriteString(strconv.Itoa(u.n))
			b.WriteByte(u.unit)
		}
	}
	return b.String()
}
