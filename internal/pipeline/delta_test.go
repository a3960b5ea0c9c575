package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/asleep/internal/model"
)

func TestCalculateDeltaScore(t *testing.T) {
	t.Run("integral", func(t *testing.T) {
		d := CalculateDelta(model.Session{SleepIndex: model.Int(80)}, model.Session{SleepIndex: model.Int(75)})
		assert.Equal(t, model.Delta{"sleep_score": "+5"}, d)
	})

	t.Run("fractional on either side", func(t *testing.T) {
		d := CalculateDelta(model.Session{SleepIndex: model.Int(70)}, model.Session{SleepIndex: model.Float(72.5)})
		assert.Equal(t, "-2.5", d["sleep_score"])
	})

	t.Run("zero is positive", func(t *testing.T) {
		d := CalculateDelta(model.Session{SleepIndex: model.Int(75)}, model.Session{SleepIndex: model.Int(75)})
		assert.Equal(t, "+0", d["sleep_score"])
	})

	t.Run("missing previous omits key", func(t *testing.T) {
		d := CalculateDelta(model.Session{SleepIndex: model.Int(80)}, model.Session{})
		assert.NotContains(t, d, "sleep_score")
		assert.Empty(t, d)
	})
}

func TestCalculateDeltaTimes(t *testing.T) {
	current := model.Session{
		SleepTime: "2024-03-02T00:10:00+09:00",
		WakeTime:  "2024-03-02T06:40:00+09:00",
	}
	previous := model.Session{
		SleepTime: "2024-02-29T23:50:00+09:00",
		WakeTime:  "2024-03-01T08:05:00+09:00",
	}

	d := CalculateDelta(current, previous)
	assert.Equal(t, "+20 mins", d["sleep_time"])
	assert.Equal(t, "-1 hrs 25 mins", d["wake_time"])
}

func TestCalculateDeltaDurationsAndRatios(t *testing.T) {
	current := model.Session{
		SleepLatency:    model.Int(300),
		TimeInSleep:     model.Int(27000),
		TimeInDeep:      model.Int(4000),
		TimeInREM:       model.Int(6000),
		TimeInSnoring:   model.Int(0),
		SleepEfficiency: model.Float(0.92),
		REMRatio:        model.Float(0.25),
		DeepRatio:       model.Float(0.15),
	}
	previous := model.Session{
		SleepLatency:    model.Int(900),
		TimeInSleep:     model.Int(21600),
		TimeInDeep:      model.Int(4000),
		TimeInREM:       model.Number{},
		TimeInSnoring:   model.Int(30),
		SleepEfficiency: model.Float(0.85),
		REMRatio:        model.Float(0.5),
		DeepRatio:       model.Number{},
	}

	d := CalculateDelta(current, previous)

	assert.Equal(t, "-10 mins", d["sleep_latency"])
	assert.Equal(t, "+1 hrs 30 mins", d["time_in_sleep"])
	assert.Equal(t, "+0 mins", d["time_in_deep"])
	assert.Equal(t, "0 mins", d["time_in_snoring"])
	assert.Equal(t, "+7%", d["sleep_efficiency"])
	assert.Equal(t, "-25%", d["rem_ratio"])
	assert.NotContains(t, d, "time_in_rem")
	assert.NotContains(t, d, "deep_ratio")
	assert.NotContains(t, d, "sleep_time")

	for k := range d {
		assert.Contains(t, model.DeltaKeys, k)
	}
}

func TestLatestPair(t *testing.T) {
	a := night("a", "2024-03-01", "2024-03-02", 70)
	b := night("b", "2024-03-02", "2024-03-03", 75)
	c := night("c", "2024-03-03", "2024-03-04", 80)

	cur, prev, ok := LatestPair([]model.Session{c, a, b})
	require.True(t, ok)
	assert.Equal(t, "c", cur.ID)
	assert.Equal(t, "b", prev.ID)

	_, _, ok = LatestPair([]model.Session{a})
	assert.False(t, ok)
}

func TestFindSession(t *testing.T) {
	sessions := []model.Session{{ID: "x"}, {ID: "y"}}

	s, ok := FindSession(sessions, "y")
	require.True(t, ok)
	assert.Equal(t, "y", s.ID)

	_, ok = FindSession(sessions, "z")
	assert.False(t, ok)
}

func TestMetricValues(t *testing.T) {
	a := night("a", "2024-03-01", "2024-03-02", 70)
	b := night("b", "2024-03-02", "2024-03-03", 75)
	b.SleepTime = "2024-03-03T00:10:00+09:00"
	c := model.Session{ID: "c"}

	scores, ok := MetricValues([]model.Session{a, b, c}, KeySleepScore)
	require.True(t, ok)
	require.Len(t, scores, 3)
	assert.Equal(t, 70.0, scores[0])
	assert.Equal(t, 75.0, scores[1])
	assert.True(t, math.IsNaN(scores[2]))

	onset, ok := MetricValues([]model.Session{a, b}, KeySleepOnsetTime)
	require.True(t, ok)
	assert.Equal(t, []float64{0, 40}, onset)

	_, ok = MetricValues(nil, "nope")
	assert.False(t, ok)
}

func TestMetricsDeltaKeys(t *testing.T) {
	for _, m := range Metrics() {
		assert.Contains(t, model.DeltaKeys, m.DeltaKey, m.Key)
	}
}
