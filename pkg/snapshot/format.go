package snapshot

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// FormatTimeStamp renders t in TimeLayout using t's location.
func FormatTimeStamp(t time.Time) string {
	return t.Format(TimeLayout)
}

// FormatCPULoad renders a CPU percentage rounded to one decimal place.
func FormatCPULoad(percent float64) string {
	return strconv.FormatFloat(math.Round(percent*10)/10, 'f', 1, 64)
}

// FormatUptime renders d as "H:MM:SS", with a ".ffffff" suffix when the
// microsecond part is non-zero and a "N day(s), " prefix for whole days.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	const (
		microsPerSecond = int64(time.Second / time.Microsecond)
		microsPerDay    = 24 * 3600 * microsPerSecond
	)
	micros := d.Microseconds()
	days := micros / microsPerDay
	micros -= days * microsPerDay

	secs := micros / microsPerSecond
	frac := micros % microsPerSecond
	hours := secs / 3600
	minutes := (secs % 3600) / 60
	seconds := secs % 60

	out := fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	if frac != 0 {
		out += fmt.Sprintf(".%06d", frac)
	}
	switch {
	case days == 1:
		out = "1 day, " + out
	case days > 1:
		out = fmt.Sprintf("%d days, %s", days, out)
	}
	return out
}
