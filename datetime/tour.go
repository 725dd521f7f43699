package datetime

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
)

const (
	localDateLayout     = "2006-01-02"
	localDateTimeLayout = "2006-01-02T15:04:05.999999999"
)

// TourConfig controls Tour.
type TourConfig struct {
	// Zones names the two regions used for zoned values. Defaults to
	// Asia/Tokyo and US/Pacific.
	Zones []string

	// ListZones prints every zone ID instead of only their count.
	ListZones bool

	// Schedule is the cron expression whose next runs are shown.
	// Defaults to 09:00 on weekdays.
	Schedule string
}

func (c *TourConfig) withDefaults() TourConfig {
	out := *c
	defaults := []string{"Asia/Tokyo", "US/Pacific"}
	for len(out.Zones) < len(defaults) {
		out.Zones = append(out.Zones, defaults[len(out.Zones)])
	}
	if out.Schedule == "" {
		out.Schedule = "0 0 9 * * MON-FRI"
	}
	return out
}

// FormatLocal prints t as an ISO local date-time, without offset.
func FormatLocal(t time.Time) string { return t.Format(localDateTimeLayout) }

// FormatZoned prints t as an ISO offset date-time followed by its zone ID.
func FormatZoned(t time.Time) string {
	return fmt.Sprintf("%s[%s]", t.Format(time.RFC3339Nano), t.Location())
}

// Tour walks through construction, zones, arithmetic, field extraction,
// comparison, parsing, durations and periods, printing each step to w.
// now stands for the current instant so the output is reproducible.
func Tour(w io.Writer, now time.Time, zones *Zones, cfg TourConfig) error {
	cfg = cfg.withDefaults()
	p := func(label string, v interface{}) {
		fmt.Fprintf(w, "  %-24s %v\n", label+":", v)
	}

	primary, err := zones.Load(cfg.Zones[0])
	if err != nil {
		return err
	}
	secondary, err := zones.Load(cfg.Zones[1])
	if err != nil {
		return err
	}

	// ── Construction ─────────────────────────────────────────────────────────
	localDate := Date(2025, time.April, 20)
	clock, err := NewTimeOfDay(23, 59, 59, 0)
	if err != nil {
		return err
	}
	today := Date(now.Year(), now.Month(), now.Day())
	localDateTime := ClockOf(now).On(today)

	p("local date", localDate.Format(localDateLayout))
	p("local time", clock)
	p("current date", today.Format(localDateLayout))
	p("current time", ClockOf(now))
	p("local date-time", FormatLocal(localDateTime))

	// ── Zones ────────────────────────────────────────────────────────────────
	if ids, err := zones.IDs(); err != nil {
		p("available zones", fmt.Sprintf("unavailable (%v)", err))
	} else if cfg.ListZones {
		p("available zones", len(ids))
		for _, id := range ids {
			fmt.Fprintf(w, "    %s\n", id)
		}
	} else {
		p("available zones", fmt.Sprintf("%d (use --list-zones to print them)", len(ids)))
	}
	p("zoned", FormatZoned(Zoned(localDate, clock, primary)))

	// ── Arithmetic returns new values ────────────────────────────────────────
	p("plus 4 days", FormatLocal(localDateTime.AddDate(0, 0, 4)))
	p("minus 2 months", AddMonths(localDate, -2).Format(localDateLayout))
	p("original unchanged", localDate.Format(localDateLayout))

	f := Fields(localDateTime)
	p("fields", fmt.Sprintf("year=%d month=%d day=%d hour=%d minute=%d second=%d nano=%d",
		f.Year, int(f.Month), f.Day, f.Hour, f.Minute, f.Second, f.Nanosecond))

	yesterday := now.AddDate(0, 0, -1)
	p("now after yesterday", now.After(yesterday))

	// ── Parsing ──────────────────────────────────────────────────────────────
	parsed, err := ParseISO("2024-04-12T23:10:50.1234Z")
	if err != nil {
		return err
	}
	p("parsed", parsed.Format(time.RFC3339Nano))

	example := time.Date(2025, time.February, 21, 15, 4, 30, 133330, secondary)
	p("zoned example", FormatZoned(example))

	// ── Durations and periods ────────────────────────────────────────────────
	target := time.Date(2026, time.December, 12, 12, 12, 12, 2131233, secondary)
	p("duration until target", FormatDuration(target.Sub(now)))
	p("1000 days", FormatDuration(1000*24*time.Hour))

	future := Date(2027, time.November, 30)
	p("period until 2027-11-30", PeriodBetween(today, future))

	// Floating values have no DST, so 120h is always five calendar days.
	p("five days later", FormatLocal(localDateTime.Add(5*24*time.Hour)))
	p("five days ago", FormatLocal(localDateTime.Add(-5*24*time.Hour)))
	p("target", Relative(target, now))

	// ── Recurring schedule ───────────────────────────────────────────────────
	runs, err := NextRuns(cfg.Schedule, now.In(primary), 3)
	if err != nil {
		return errors.Wrap(err, "tour schedule")
	}
	for i, r := range runs {
		p(fmt.Sprintf("run %d of %q", i+1, cfg.Schedule), FormatZoned(r))
	}
	return nil
}
