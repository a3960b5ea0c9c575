package pipeline

import (
	"time"

	"github.com/theirongolddev/asleep/internal/cli"
	"github.com/theirongolddev/asleep/internal/model"
)

type numberField struct {
	key string
	get func(model.Session) model.Number
}

var durationFields = []numberField{
	{"sleep_latency", func(s model.Session) model.Number { return s.SleepLatency }},
	{"time_in_sleep", func(s model.Session) model.Number { return s.TimeInSleep }},
	{"time_in_deep", func(s model.Session) model.Number { return s.TimeInDeep }},
	{"time_in_rem", func(s model.Session) model.Number { return s.TimeInREM }},
	{"time_in_snoring", func(s model.Session) model.Number { return s.TimeInSnoring }},
}

var ratioFields = []numberField{
	{"sleep_efficiency", func(s model.Session) model.Number { return s.SleepEfficiency }},
	{"rem_ratio", func(s model.Session) model.Number { return s.REMRatio }},
	{"deep_ratio", func(s model.Session) model.Number { return s.DeepRatio }},
}

// CalculateDelta compares current against previous. Metrics missing on
// either side are left out of the result.
func CalculateDelta(current, previous model.Session) model.Delta {
	delta := make(model.Delta)

	if cur, ok := ToLocalTime(string(current.SleepTime)); ok {
		if prev, ok := ToLocalTime(string(previous.SleepTime)); ok {
			delta["sleep_time"] = cli.FormatSignedDuration(CyclicTimeDelta(cur, prev))
		}
	}
	if cur, ok := ToLocalTime(string(current.WakeTime)); ok {
		if prev, ok := ToLocalTime(string(previous.WakeTime)); ok {
			delta["wake_time"] = cli.FormatSignedDuration(CyclicTimeDelta(cur, prev))
		}
	}

	for _, f := range durationFields {
		cur, prev := f.get(current), f.get(previous)
		if cur.Valid && prev.Valid {
			diff := time.Duration((cur.Value - prev.Value) * float64(time.Second))
			delta[f.key] = cli.FormatSignedDuration(diff)
		}
	}

	for _, f := range ratioFields {
		cur, prev := f.get(current), f.get(previous)
		if cur.Valid && prev.Valid {
			delta[f.key] = cli.FormatSignedPercent(cur.Value - prev.Value)
		}
	}

	if cur, prev := current.SleepIndex, previous.SleepIndex; cur.Valid && prev.Valid {
		delta["sleep_score"] = cli.FormatSignedNumber(cur.Value-prev.Value, cur.Fractional || prev.Fractional)
	}

	return delta
}

// LatestPair returns the newest session and the one before it, by start time.
// ok is false when fewer than two sessions exist.
func LatestPair(sessions []model.Session) (current, previous model.Session, ok bool) {
	sorted := SortSessions(sessions)
	if len(sorted) < 2 {
		return model.Session{}, model.Session{}, false
	}
	return sorted[len(sorted)-1], sorted[len(sorted)-2], true
}

// FindSession returns the session with the given id.
func FindSession(sessions []model.Session, id string) (model.Session, bool) {
	for _, s := range sessions {
		if s.ID == id {
			return s, true
		}
	}
	return model.Session{}, false
}
