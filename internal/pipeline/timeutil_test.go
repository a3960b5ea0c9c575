package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clock(h, m, s int) time.Time {
	return time.Date(2024, 3, 1, h, m, s, 0, ReportLocation)
}

func TestToLocalTime(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		ok     bool
		expect string
	}{
		{"utc suffix", "2024-03-01T14:30:00Z", true, "2024-03-01 23:30:00"},
		{"explicit offset", "2024-03-01T23:30:00+09:00", true, "2024-03-01 23:30:00"},
		{"offset without colon", "2024-03-01T23:30:00+0900", true, "2024-03-01 23:30:00"},
		{"fractional offset without colon", "2024-03-01T14:30:00.5+0000", true, "2024-03-01 23:30:00"},
		{"fractional seconds", "2024-03-01T15:00:00.123456Z", true, "2024-03-02 00:00:00"},
		{"naive as utc", "2024-03-01T15:00:00", true, "2024-03-02 00:00:00"},
		{"space separator", "2024-03-01 15:00:00", true, "2024-03-02 00:00:00"},
		{"empty", "", false, ""},
		{"garbage", "last tuesday", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToLocalTime(tt.input)
			require.Equal(t, tt.ok, ok)
			if !ok {
				assert.True(t, got.IsZero())
				return
			}
			assert.Equal(t, tt.expect, got.Format("2006-01-02 15:04:05"))
			_, offset := got.Zone()
			assert.Equal(t, 9*60*60, offset)
		})
	}
}

func TestCyclicTimeDelta(t *testing.T) {
	t.Run("wraps across midnight", func(t *testing.T) {
		a := clock(23, 50, 0)
		b := time.Date(2024, 3, 2, 0, 10, 0, 0, ReportLocation)
		assert.Equal(t, -20*time.Minute, CyclicTimeDelta(a, b))
		assert.Equal(t, 20*time.Minute, CyclicTimeDelta(b, a))
	})

	t.Run("ignores the date component", func(t *testing.T) {
		a := time.Date(2024, 1, 1, 7, 0, 0, 0, ReportLocation)
		b := time.Date(2024, 6, 9, 6, 30, 0, 0, ReportLocation)
		assert.Equal(t, 30*time.Minute, CyclicTimeDelta(a, b))
	})

	t.Run("half day normalizes to positive", func(t *testing.T) {
		assert.Equal(t, 12*time.Hour, CyclicTimeDelta(clock(12, 0, 0), clock(0, 0, 0)))
		assert.Equal(t, 12*time.Hour, CyclicTimeDelta(clock(0, 0, 0), clock(12, 0, 0)))
	})

	t.Run("antisymmetric off the boundary", func(t *testing.T) {
		pairs := [][2]time.Time{
			{clock(1, 0, 0), clock(23, 0, 0)},
			{clock(6, 15, 30), clock(22, 45, 0)},
			{clock(10, 0, 0), clock(10, 0, 0)},
			{clock(0, 0, 1), clock(12, 0, 0)},
		}
		for _, p := range pairs {
			assert.Equal(t, -CyclicTimeDelta(p[0], p[1]), CyclicTimeDelta(p[1], p[0]))
		}
	})

	t.Run("stays within half a day", func(t *testing.T) {
		for h := 0; h < 24; h++ {
			d := CyclicTimeDelta(clock(h, 17, 0), clock(3, 0, 0))
			assert.Greater(t, d, -12*time.Hour)
			assert.LessOrEqual(t, d, 12*time.Hour)
		}
	})
}

func TestIsLaterCyclic(t *testing.T) {
	assert.True(t, isLaterCyclic(clock(23, 15, 0), clock(23, 0, 0)))
	assert.True(t, isLaterCyclic(time.Date(2024, 3, 2, 0, 5, 0, 0, ReportLocation), clock(23, 55, 0)))
	assert.False(t, isLaterCyclic(clock(23, 0, 0), clock(23, 15, 0)))
	assert.False(t, isLaterCyclic(clock(12, 0, 0), clock(0, 0, 0)))
	// Equal times count as later.
	assert.True(t, isLaterCyclic(clock(8, 0, 0), clock(8, 0, 0)))
}

func TestWakeDay(t *testing.T) {
	// 15:30 UTC is already the next calendar day in KST.
	utc := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	got := wakeDay(utc)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, ReportLocation), got)
}
