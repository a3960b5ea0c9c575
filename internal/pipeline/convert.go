// Package pipeline turns fetched sleep sessions into reports, trends, and deltas.
package pipeline

import (
	"errors"
	"sort"

	"github.com/theirongolddev/asleep/internal/cli"
	"github.com/theirongolddev/asleep/internal/model"
)

// ErrMissingResult is returned when a payload has no "result" object.
var ErrMissingResult = errors.New("pipeline: payload has no result object")

// WindowDays is how far before the newest wake date sessions are reported.
// The comparison is inclusive, so the window spans WindowDays+1 calendar dates.
const WindowDays = 7

// minSessionsForAverage and minSessionsForTrend gate the optional
// month_avg and trend fields.
const (
	minSessionsForAverage = 2
	minSessionsForTrend   = 3
)

// Convert builds a Report from a fetch result. It never mutates fr.
func Convert(fr *model.FetchResult) (*model.Report, error) {
	if fr == nil || fr.Result == nil {
		return nil, ErrMissingResult
	}

	sessions := SortSessions(fr.Result.SleptSessions)
	report := newReport(0)
	if len(sessions) == 0 {
		return report, nil
	}

	window := FilterWindow(sessions)
	report = newReport(len(window))

	for _, s := range window {
		report.WakeDates = append(report.WakeDates, WakeDateLabel(s))
		for i, m := range metrics {
			v, err := m.daily(s)
			if err != nil {
				v = model.NotAvailable
			}
			report.Metrics[i].Series.Daily = append(report.Metrics[i].Series.Daily, v)
		}
	}

	avg := fr.Result.AverageStats
	if len(sessions) >= minSessionsForAverage && !avg.IsEmpty() {
		for i, m := range metrics {
			if m.average == nil {
				continue
			}
			v, err := m.average(avg)
			if err != nil {
				v = model.NotAvailable
			}
			report.Metrics[i].Series.MonthAvg = &v
		}
	}

	if len(window) >= minSessionsForTrend {
		for i, m := range metrics {
			raw := make([]RawValue, len(window))
			for j, s := range window {
				raw[j] = m.raw(s)
			}
			trend, err := ClassifyTrend(raw)
			if err != nil {
				trend = model.TrendError
			}
			report.Metrics[i].Series.Trend = trend
		}
	}

	return report, nil
}

func newReport(capacity int) *model.Report {
	r := &model.Report{
		WakeDates: make([]string, 0, capacity),
		Metrics:   make([]model.NamedSeries, len(metrics)),
	}
	for i, m := range metrics {
		r.Metrics[i] = model.NamedSeries{
			Key:    m.key,
			Series: model.MetricSeries{Daily: make([]any, 0, capacity)},
		}
	}
	return r
}

// SortSessions returns a copy of sessions ordered by raw start time.
// Sessions without a start time sort first; ties keep API order.
func SortSessions(sessions []model.Session) []model.Session {
	sorted := make([]model.Session, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})
	return sorted
}

// FilterWindow keeps sessions whose wake date is on or after the newest
// session's wake date minus WindowDays. sessions must already be sorted.
// Sessions whose wake time cannot be parsed are kept, and if the newest
// session's wake time cannot be parsed nothing is filtered.
func FilterWindow(sessions []model.Session) []model.Session {
	if len(sessions) == 0 {
		return nil
	}
	last, ok := ToLocalTime(string(sessions[len(sessions)-1].WakeTime))
	if !ok {
		return sessions
	}
	cutoff := wakeDay(last).AddDate(0, 0, -WindowDays)

	out := make([]model.Session, 0, len(sessions))
	for _, s := range sessions {
		wake, ok := ToLocalTime(string(s.WakeTime))
		if !ok || !wakeDay(wake).Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// WakeDateLabel formats a session's wake date as "2006-01-02 (Mon)" in the
// report zone, falling back to the raw date prefix when unparseable.
func WakeDateLabel(s model.Session) string {
	if wake, ok := ToLocalTime(string(s.WakeTime)); ok {
		return cli.FormatWakeDate(wake)
	}
	raw := []rune(string(s.WakeTime))
	if len(raw) > 10 {
		raw = raw[:10]
	}
	return string(raw)
}
