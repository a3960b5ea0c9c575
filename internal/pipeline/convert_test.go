package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/asleep/internal/model"
)

// night builds a session that falls asleep at 23:30 KST on the given date
// and wakes at 07:00 KST the next morning.
func night(id, date, nextDate string, score int64) model.Session {
	return model.Session{
		ID:              id,
		StartTime:       model.Timestamp(date + "T23:00:00+09:00"),
		SleepTime:       model.Timestamp(date + "T23:30:00+09:00"),
		WakeTime:        model.Timestamp(nextDate + "T07:00:00+09:00"),
		SleepLatency:    model.Int(600),
		TimeInSleep:     model.Int(27000),
		TimeInDeep:      model.Int(5400),
		TimeInREM:       model.Int(6300),
		TimeInSnoring:   model.Int(125),
		SleepEfficiency: model.Float(0.91),
		REMRatio:        model.Float(0.234),
		DeepRatio:       model.Float(0.2),
		SleepIndex:      model.Int(score),
	}
}

func fetch(sessions ...model.Session) *model.FetchResult {
	return &model.FetchResult{Result: &model.ResultBody{SleptSessions: sessions}}
}

func TestConvertMissingResult(t *testing.T) {
	_, err := Convert(&model.FetchResult{})
	require.ErrorIs(t, err, ErrMissingResult)

	_, err = Convert(nil)
	require.ErrorIs(t, err, ErrMissingResult)
}

func TestConvertEmpty(t *testing.T) {
	report, err := Convert(fetch())
	require.NoError(t, err)

	assert.Empty(t, report.WakeDates)
	require.Len(t, report.Metrics, 9)
	for _, m := range report.Metrics {
		assert.Empty(t, m.Series.Daily, m.Key)
		assert.Nil(t, m.Series.MonthAvg, m.Key)
		assert.Empty(t, m.Series.Trend, m.Key)
	}
}

func TestConvertMetricOrder(t *testing.T) {
	report, err := Convert(fetch(night("a", "2024-03-01", "2024-03-02", 80)))
	require.NoError(t, err)

	keys := make([]string, len(report.Metrics))
	for i, m := range report.Metrics {
		keys[i] = m.Key
	}
	assert.Equal(t, []string{
		KeySleepOnsetTime, KeyWakeUpTime, KeySleepOnsetLatency, KeyTotalSleepTime,
		KeyDeepSleepTime, KeySnoringTime, KeySleepEfficiency, KeyREMRatio, KeySleepScore,
	}, keys)
}

func TestConvertDailyValues(t *testing.T) {
	report, err := Convert(fetch(night("a", "2024-03-01", "2024-03-02", 80)))
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-03-02 (Sat)"}, report.WakeDates)
	expect := map[string]any{
		KeySleepOnsetTime:    "23:30:00",
		KeyWakeUpTime:        "07:00:00",
		KeySleepOnsetLatency: "10 mins",
		KeyTotalSleepTime:    "7 hrs 30 mins",
		KeyDeepSleepTime:     "1 hrs 30 mins",
		KeySnoringTime:       "2 mins",
		KeySleepEfficiency:   "91%",
		KeyREMRatio:          "23%",
		KeySleepScore:        int64(80),
	}
	for key, want := range expect {
		s := report.Series(key)
		require.NotNil(t, s, key)
		assert.Equal(t, []any{want}, s.Daily, key)
	}
}

func TestConvertSortsByStartTime(t *testing.T) {
	later := night("b", "2024-03-02", "2024-03-03", 70)
	earlier := night("a", "2024-03-01", "2024-03-02", 90)

	report, err := Convert(fetch(later, earlier))
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-03-02 (Sat)", "2024-03-03 (Sun)"}, report.WakeDates)
	assert.Equal(t, []any{int64(90), int64(70)}, report.Series(KeySleepScore).Daily)
}

func TestConvertWindow(t *testing.T) {
	nights := [][2]string{
		{"2024-02-19", "2024-02-20"},
		{"2024-02-21", "2024-02-22"},
		{"2024-02-23", "2024-02-24"},
		{"2024-02-24", "2024-02-25"},
		{"2024-02-25", "2024-02-26"},
		{"2024-02-26", "2024-02-27"},
		{"2024-02-27", "2024-02-28"},
		{"2024-02-29", "2024-03-01"},
	}
	var sessions []model.Session
	for i, n := range nights {
		sessions = append(sessions, night(fmt.Sprintf("s%d", i), n[0], n[1], int64(60+i)))
	}

	report, err := Convert(fetch(sessions...))
	require.NoError(t, err)

	// Cutoff is 2024-02-23; the wakes on 02-20 and 02-22 fall outside.
	assert.Len(t, report.WakeDates, 6)
	assert.Equal(t, "2024-02-24 (Sat)", report.WakeDates[0])
	assert.Equal(t, "2024-03-01 (Fri)", report.WakeDates[5])
	for _, m := range report.Metrics {
		assert.Len(t, m.Series.Daily, len(report.WakeDates), m.Key)
	}
}

func TestConvertWindowBoundaryInclusive(t *testing.T) {
	first := night("a", "2024-02-22", "2024-02-23", 70)
	last := night("b", "2024-02-29", "2024-03-01", 75)

	report, err := Convert(fetch(first, last))
	require.NoError(t, err)
	// 02-23 is exactly seven days before 03-01.
	assert.Len(t, report.WakeDates, 2)
}

func TestConvertUnparseableWake(t *testing.T) {
	t.Run("kept and labeled by prefix", func(t *testing.T) {
		old := night("a", "2024-01-01", "2024-01-02", 70)
		bad := night("b", "2024-02-28", "2024-02-29", 72)
		bad.WakeTime = "2024-02-29 sometime"
		last := night("c", "2024-02-29", "2024-03-01", 75)

		report, err := Convert(fetch(old, bad, last))
		require.NoError(t, err)

		assert.Equal(t, []string{"2024-02-29", "2024-03-01 (Fri)"}, report.WakeDates)
		assert.Equal(t, []any{model.NotAvailable, "07:00:00"}, report.Series(KeyWakeUpTime).Daily)
	})

	t.Run("missing last wake disables filtering", func(t *testing.T) {
		old := night("a", "2023-06-01", "2023-06-02", 70)
		last := night("b", "2024-02-29", "2024-03-01", 75)
		last.WakeTime = ""

		report, err := Convert(fetch(old, last))
		require.NoError(t, err)
		assert.Equal(t, []string{"2023-06-02 (Fri)", ""}, report.WakeDates)
	})
}

func TestConvertNullFields(t *testing.T) {
	s := night("a", "2024-03-01", "2024-03-02", 0)
	s.SleepTime = ""
	s.TimeInDeep = model.Number{}
	s.SleepEfficiency = model.Number{}
	s.REMRatio = model.Float(0)
	s.SleepIndex = model.Number{}
	s.TimeInSnoring = model.Int(0)

	report, err := Convert(fetch(s))
	require.NoError(t, err)

	assert.Equal(t, []any{model.NotAvailable}, report.Series(KeySleepOnsetTime).Daily)
	assert.Equal(t, []any{model.NotAvailable}, report.Series(KeyDeepSleepTime).Daily)
	assert.Equal(t, []any{model.NotAvailable}, report.Series(KeySleepEfficiency).Daily)
	assert.Equal(t, []any{model.NotAvailable}, report.Series(KeyREMRatio).Daily)
	assert.Equal(t, []any{nil}, report.Series(KeySleepScore).Daily)
	assert.Equal(t, []any{"0 mins"}, report.Series(KeySnoringTime).Daily)
}

func TestConvertFormatterFailureIsolated(t *testing.T) {
	s := night("a", "2024-03-01", "2024-03-02", 80)
	s.TimeInSleep = model.Int(-5)

	report, err := Convert(fetch(s))
	require.NoError(t, err)

	assert.Equal(t, []any{model.NotAvailable}, report.Series(KeyTotalSleepTime).Daily)
	assert.Equal(t, []any{"1 hrs 30 mins"}, report.Series(KeyDeepSleepTime).Daily)
}

func TestConvertMonthAverage(t *testing.T) {
	avg := &model.AverageStats{
		SleepTime:       "2024-03-01T14:45:00Z",
		WakeTime:        "07:10",
		SleepLatency:    model.Float(512.7),
		TimeInSleep:     model.Int(25200),
		TimeInDeep:      model.Number{},
		SleepEfficiency: model.Float(0.886),
	}

	t.Run("present with two sessions", func(t *testing.T) {
		fr := fetch(night("a", "2024-03-01", "2024-03-02", 80), night("b", "2024-03-02", "2024-03-03", 82))
		fr.Result.AverageStats = avg

		report, err := Convert(fr)
		require.NoError(t, err)

		expect := map[string]string{
			KeySleepOnsetTime:    "23:45:00",
			KeyWakeUpTime:        "07:10",
			KeySleepOnsetLatency: "8 mins",
			KeyTotalSleepTime:    "7 hrs 0 mins",
			KeyDeepSleepTime:     model.NotAvailable,
			KeySleepEfficiency:   "89%",
			KeyREMRatio:          model.NotAvailable,
		}
		for key, want := range expect {
			s := report.Series(key)
			require.NotNil(t, s.MonthAvg, key)
			assert.Equal(t, want, *s.MonthAvg, key)
		}
		assert.Nil(t, report.Series(KeySleepScore).MonthAvg)
	})

	t.Run("counts unfiltered sessions", func(t *testing.T) {
		fr := fetch(night("a", "2023-01-01", "2023-01-02", 80), night("b", "2024-03-02", "2024-03-03", 82))
		fr.Result.AverageStats = avg

		report, err := Convert(fr)
		require.NoError(t, err)
		assert.Len(t, report.WakeDates, 1)
		assert.NotNil(t, report.Series(KeyTotalSleepTime).MonthAvg)
	})

	t.Run("absent with one session", func(t *testing.T) {
		fr := fetch(night("a", "2024-03-01", "2024-03-02", 80))
		fr.Result.AverageStats = avg

		report, err := Convert(fr)
		require.NoError(t, err)
		for _, m := range report.Metrics {
			assert.Nil(t, m.Series.MonthAvg, m.Key)
		}
	})

	t.Run("absent without stats", func(t *testing.T) {
		report, err := Convert(fetch(night("a", "2024-03-01", "2024-03-02", 80), night("b", "2024-03-02", "2024-03-03", 82)))
		require.NoError(t, err)
		for _, m := range report.Metrics {
			assert.Nil(t, m.Series.MonthAvg, m.Key)
		}
	})
}

func TestConvertTrends(t *testing.T) {
	a := night("a", "2024-03-01", "2024-03-02", 70)
	b := night("b", "2024-03-02", "2024-03-03", 75)
	c := night("c", "2024-03-03", "2024-03-04", 80)
	b.SleepTime = "2024-03-02T23:45:00+09:00"
	c.SleepTime = "2024-03-04T00:05:00+09:00"
	b.WakeTime = "2024-03-03T07:10:00+09:00"
	c.WakeTime = "2024-03-04T07:20:00+09:00"
	c.TimeInDeep = model.Number{}

	t.Run("needs three sessions", func(t *testing.T) {
		report, err := Convert(fetch(a, b))
		require.NoError(t, err)
		for _, m := range report.Metrics {
			assert.Empty(t, m.Series.Trend, m.Key)
		}
	})

	t.Run("classified per metric", func(t *testing.T) {
		report, err := Convert(fetch(a, b, c))
		require.NoError(t, err)

		assert.Equal(t, model.TrendIncreasing, report.Series(KeySleepScore).Trend)
		assert.Equal(t, model.TrendGettingLater, report.Series(KeySleepOnsetTime).Trend)
		assert.Equal(t, model.TrendGettingLater, report.Series(KeyWakeUpTime).Trend)
		assert.Equal(t, model.TrendNone, report.Series(KeyTotalSleepTime).Trend)
		assert.Equal(t, model.TrendInsufficient, report.Series(KeyDeepSleepTime).Trend)
	})
}

func TestConvertIdempotent(t *testing.T) {
	fr := fetch(
		night("b", "2024-03-02", "2024-03-03", 75),
		night("a", "2024-03-01", "2024-03-02", 70),
		night("c", "2024-03-03", "2024-03-04", 80),
	)
	before := fr.Result.SleptSessions[0].ID

	first, err := Convert(fr)
	require.NoError(t, err)
	second, err := Convert(fr)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, before, fr.Result.SleptSessions[0].ID)
}

func TestReportEncoding(t *testing.T) {
	fr := fetch(night("a", "2024-03-01", "2024-03-02", 80))
	report, err := Convert(fr)
	require.NoError(t, err)

	t.Run("json keeps order", func(t *testing.T) {
		data, err := json.Marshal(report)
		require.NoError(t, err)
		out := string(data)

		assert.True(t, strings.HasPrefix(out, `{"wake_dates":["2024-03-02 (Sat)"],"sleep_onset_time":{"daily":["23:30:00"]}`))
		assert.Less(t, strings.Index(out, `"rem_ratio"`), strings.Index(out, `"sleep_score"`))
		assert.Contains(t, out, `"sleep_score":{"daily":[80]}`)
	})

	t.Run("yaml keeps order", func(t *testing.T) {
		data, err := yaml.Marshal(report)
		require.NoError(t, err)
		out := string(data)

		assert.True(t, strings.HasPrefix(out, "wake_dates:"))
		assert.Less(t, strings.Index(out, "sleep_onset_time:"), strings.Index(out, "wake_up_time:"))
		assert.Less(t, strings.Index(out, "rem_ratio:"), strings.Index(out, "sleep_score:"))
	})
}

func TestWakeDateLabel(t *testing.T) {
	assert.Equal(t, "2024-03-02 (Sat)", WakeDateLabel(model.Session{WakeTime: "2024-03-01T22:00:00Z"}))
	assert.Equal(t, "2024/03/01", WakeDateLabel(model.Session{WakeTime: "2024/03/01 morning"}))
	assert.Equal(t, "short", WakeDateLabel(model.Session{WakeTime: "short"}))

	got := WakeDateLabel(model.Session{WakeTime: "2024年03月01日 朝"})
	assert.Equal(t, "2024年03月01日", got)
	assert.True(t, utf8.ValidString(got))
}
