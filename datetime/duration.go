package datetime

import (
	"strconv"
	"strings"
	"time"
)

// FormatDuration renders d as an ISO-8601 duration using hours, minutes and
// seconds only, e.g. "PT24000H" for 1000 days or "PT-1M-30S". The zero
// duration is "PT0S". Every non-zero component of a negative duration
// carries the sign.
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}

	sign := ""
	u := uint64(d)
	if d < 0 {
		sign = "-"
		u = uint64(-d) // also right for math.MinInt64
	}

	const nsPerSec = uint64(time.Second)
	secs, nanos := u/nsPerSec, u%nsPerSec
	hours, minutes, seconds := secs/3600, (secs%3600)/60, secs%60

	var b strings.Builder
	b.WriteString("PT")
	if hours != 0 {
		b.WriteString(sign + strconv.FormatUint(hours, 10) + "H")
	}
	if minutes != 0 {
		b.WriteString(sign + strconv.FormatUint(minutes, 10) + "M")
	}
	if seconds == 0 && nanos == 0 {
		return b.String()
	}
	b.WriteString(sign + strconv.FormatUint(seconds, 10))
	if nanos > 0 {
		frac := strconv.FormatUint(nanos+nsPerSec, 10)[1:] // zero-padded to 9 digits
		b.WriteString("." + strings.TrimRight(frac, "0"))
	}
	b.WriteByte('S')
	return b.String()
}
