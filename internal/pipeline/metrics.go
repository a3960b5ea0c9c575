package pipeline

import (
	"math"

	"github.com/theirongolddev/asleep/internal/cli"
	"github.com/theirongolddev/asleep/internal/model"
)

// MetricKind describes how a metric is formatted and compared.
type MetricKind string

const (
	MetricTime       MetricKind = "time"
	MetricDuration   MetricKind = "duration"
	MetricPercentage MetricKind = "percentage"
	MetricScore      MetricKind = "score"
)

// Report metric keys.
const (
	KeySleepOnsetTime    = "sleep_onset_time"
	KeyWakeUpTime        = "wake_up_time"
	KeySleepOnsetLatency = "sleep_onset_latency"
	KeyTotalSleepTime    = "total_sleep_time"
	KeyDeepSleepTime     = "deep_sleep_time"
	KeySnoringTime       = "snoring_time"
	KeySleepEfficiency   = "sleep_efficiency"
	KeyREMRatio          = "rem_ratio"
	KeySleepScore        = "sleep_score"
)

// metricDescriptor bundles how one metric is rendered daily, extracted raw
// for trends, and rendered from the monthly average. A nil average means
// the metric has no monthly average.
type metricDescriptor struct {
	key     string
	label   string
	kind    MetricKind
	daily   func(model.Session) (any, error)
	raw     func(model.Session) RawValue
	average func(*model.AverageStats) (string, error)
}

// Metric is the exported view of a tracked metric. DeltaKey names the
// matching entry of a model.Delta.
type Metric struct {
	Key      string
	Label    string
	Kind     MetricKind
	DeltaKey string
}

var deltaKeys = map[string]string{
	KeySleepOnsetTime:    "sleep_time",
	KeyWakeUpTime:        "wake_time",
	KeySleepOnsetLatency: "sleep_latency",
	KeyTotalSleepTime:    "time_in_sleep",
	KeyDeepSleepTime:     "time_in_deep",
	KeySnoringTime:       "time_in_snoring",
	KeySleepEfficiency:   "sleep_efficiency",
	KeyREMRatio:          "rem_ratio",
	KeySleepScore:        "sleep_score",
}

// Metrics returns the tracked metrics in report order.
func Metrics() []Metric {
	out := make([]Metric, len(metrics))
	for i, m := range metrics {
		out[i] = Metric{Key: m.key, Label: m.label, Kind: m.kind, DeltaKey: deltaKeys[m.key]}
	}
	return out
}

// MetricValues extracts a plottable series for key, one entry per session.
// Missing values are NaN. Clock times become minutes relative to the first
// valid time, measured cyclically so a series crossing midnight stays
// continuous. ok is false for an unknown key.
func MetricValues(sessions []model.Session, key string) (values []float64, ok bool) {
	var desc *metricDescriptor
	for i := range metrics {
		if metrics[i].key == key {
			desc = &metrics[i]
			break
		}
	}
	if desc == nil {
		return nil, false
	}

	values = make([]float64, len(sessions))
	var ref RawValue
	for i, s := range sessions {
		v := desc.raw(s)
		switch {
		case !v.Valid:
			values[i] = math.NaN()
		case v.Kind == KindTime:
			if !ref.Valid {
				ref = v
			}
			values[i] = CyclicTimeDelta(v.Time, ref.Time).Minutes()
		default:
			values[i] = v.Num
		}
	}
	return values, true
}

var metrics = []metricDescriptor{
	timeMetric(KeySleepOnsetTime, "Sleep onset",
		func(s model.Session) model.Timestamp { return s.SleepTime },
		func(a *model.AverageStats) model.Timestamp { return a.SleepTime }),
	timeMetric(KeyWakeUpTime, "Wake up",
		func(s model.Session) model.Timestamp { return s.WakeTime },
		func(a *model.AverageStats) model.Timestamp { return a.WakeTime }),
	durationMetric(KeySleepOnsetLatency, "Sleep latency",
		func(s model.Session) model.Number { return s.SleepLatency },
		func(a *model.AverageStats) model.Number { return a.SleepLatency }),
	durationMetric(KeyTotalSleepTime, "Total sleep",
		func(s model.Session) model.Number { return s.TimeInSleep },
		func(a *model.AverageStats) model.Number { return a.TimeInSleep }),
	durationMetric(KeyDeepSleepTime, "Deep sleep",
		func(s model.Session) model.Number { return s.TimeInDeep },
		func(a *model.AverageStats) model.Number { return a.TimeInDeep }),
	durationMetric(KeySnoringTime, "Snoring",
		func(s model.Session) model.Number { return s.TimeInSnoring },
		func(a *model.AverageStats) model.Number { return a.TimeInSnoring }),
	percentMetric(KeySleepEfficiency, "Efficiency",
		func(s model.Session) model.Number { return s.SleepEfficiency },
		func(a *model.AverageStats) model.Number { return a.SleepEfficiency }),
	percentMetric(KeyREMRatio, "REM ratio",
		func(s model.Session) model.Number { return s.REMRatio },
		func(a *model.AverageStats) model.Number { return a.REMRatio }),
	{
		key:   KeySleepScore,
		label: "Sleep score",
		kind:  MetricScore,
		daily: func(s model.Session) (any, error) { return cli.FormatScore(s.SleepIndex) },
		raw:   func(s model.Session) RawValue { return NumericValue(s.SleepIndex) },
	},
}

func timeMetric(key, label string, get func(model.Session) model.Timestamp, avg func(*model.AverageStats) model.Timestamp) metricDescriptor {
	return metricDescriptor{
		key:   key,
		label: label,
		kind:  MetricTime,
		daily: func(s model.Session) (any, error) {
			t, _ := ToLocalTime(string(get(s)))
			return cli.FormatClock(t), nil
		},
		raw: func(s model.Session) RawValue {
			return TimeValue(ToLocalTime(string(get(s))))
		},
		average: func(a *model.AverageStats) (string, error) {
			raw := string(avg(a))
			if t, ok := ToLocalTime(raw); ok {
				return cli.FormatClock(t), nil
			}
			if raw != "" {
				return raw, nil
			}
			return model.NotAvailable, nil
		},
	}
}

func durationMetric(key, label string, get func(model.Session) model.Number, avg func(*model.AverageStats) model.Number) metricDescriptor {
	return metricDescriptor{
		key:   key,
		label: label,
		kind:  MetricDuration,
		daily: func(s model.Session) (any, error) { return cli.FormatSleepDuration(get(s)) },
		raw:   func(s model.Session) RawValue { return NumericValue(get(s)) },
		average: func(a *model.AverageStats) (string, error) {
			return cli.FormatSleepDuration(avg(a))
		},
	}
}

func percentMetric(key, label string, get func(model.Session) model.Number, avg func(*model.AverageStats) model.Number) metricDescriptor {
	return metricDescriptor{
		key:   key,
		label: label,
		kind:  MetricPercentage,
		daily: func(s model.Session) (any, error) { return cli.FormatRatio(get(s)) },
		raw:   func(s model.Session) RawValue { return NumericValue(get(s)) },
		average: func(a *model.AverageStats) (string, error) {
			return cli.FormatRatio(avg(a))
		},
	}
}
