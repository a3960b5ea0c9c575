package pipeline

import (
	"strings"
	"time"
)

// ReportLocation is the fixed UTC+9 zone every report is expressed in.
var ReportLocation = time.FixedZone("KST", 9*60*60)

const (
	day     = 24 * time.Hour
	halfDay = 12 * time.Hour
)

// Layouts accepted by ToLocalTime, tried in order. Layouts without an
// offset are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ToLocalTime parses an ISO-8601 timestamp and converts it to ReportLocation.
// It reports false for empty or unparseable input.
func ToLocalTime(ts string) (time.Time, bool) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.In(ReportLocation), true
		}
	}
	return time.Time{}, false
}

// timeOfDay returns the offset of t from its own midnight.
func timeOfDay(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond())
}

// positiveMod returns d mod m in [0, m).
func positiveMod(d, m time.Duration) time.Duration {
	r := d % m
	if r < 0 {
		r += m
	}
	return r
}

// CyclicTimeDelta returns t1-t2 comparing only time of day, wrapped to the
// shorter way around the clock. The result lies in (-12h, +12h].
func CyclicTimeDelta(t1, t2 time.Time) time.Duration {
	raw := timeOfDay(t1) - timeOfDay(t2)
	d := positiveMod(raw+halfDay, day) - halfDay
	if d == -halfDay {
		d = halfDay
	}
	return d
}

// isLaterCyclic reports whether a falls within the 12 hours after b on the clock.
func isLaterCyclic(a, b time.Time) bool {
	diff := positiveMod(time.Duration(a.UnixNano()-b.UnixNano()), day)
	return diff < halfDay
}

// wakeDay truncates t to its calendar date in ReportLocation.
func wakeDay(t time.Time) time.Time {
	y, m, d := t.In(ReportLocation).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ReportLocation)
}
