package datetime

import (
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron"
)

// NextRuns returns the next n times a cron expression fires after from, in
// from's location. The expression has six fields (seconds first), e.g.
// "0 30 9 * * MON-FRI", or is a descriptor such as "@daily" or "@every 90m".
func NextRuns(expr string, from time.Time, n int) ([]time.Time, error) {
	if n < 0 {
		return nil, errors.Errorf("cannot compute %d runs", n)
	}
	sched, err := cron.Parse(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing schedule %q", expr)
	}

	runs := make([]time.Time, 0, n)
	next := from
	for i := 0; i < n; i++ {
		next = sched.Next(next)
		if next.IsZero() {
			break // the schedule never fires again
		}
		runs = append(runs, next)
	}
	return runs, nil
}
