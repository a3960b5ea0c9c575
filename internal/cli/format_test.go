package cli

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/asleep/internal/model"
)

func TestFormatSleepDuration(t *testing.T) {
	tests := []struct {
		in     model.Number
		expect string
	}{
		{model.Int(125), "2 mins"},
		{model.Int(0), "0 mins"},
		{model.Int(59), "0 mins"},
		{model.Int(3600), "1 hrs 0 mins"},
		{model.Float(27059.9), "7 hrs 30 mins"},
		{model.Number{}, "N/A"},
	}
	for _, tt := range tests {
		got, err := FormatSleepDuration(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.expect, got)
	}

	_, err := FormatSleepDuration(model.Int(-1))
	assert.ErrorIs(t, err, ErrNegativeDuration)

	_, err = FormatSleepDuration(model.Float(math.Inf(1)))
	assert.ErrorIs(t, err, ErrNotFinite)
}

func TestFormatRatio(t *testing.T) {
	tests := []struct {
		in     model.Number
		expect string
	}{
		{model.Float(0.916), "92%"},
		{model.Float(0.5), "50%"},
		{model.Int(1), "100%"},
		{model.Float(0), "N/A"},
		{model.Number{}, "N/A"},
	}
	for _, tt := range tests {
		got, err := FormatRatio(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.expect, got)
	}

	_, err := FormatRatio(model.Float(math.NaN()))
	assert.ErrorIs(t, err, ErrNotFinite)
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "N/A", FormatClock(time.Time{}))
	assert.Equal(t, "23:05:09", FormatClock(time.Date(2024, 1, 1, 23, 5, 9, 0, time.UTC)))
}

func TestFormatScore(t *testing.T) {
	got, err := FormatScore(model.Float(81.9))
	require.NoError(t, err)
	assert.Equal(t, int64(81), got)

	got, err = FormatScore(model.Number{})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFormatSignedDuration(t *testing.T) {
	tests := []struct {
		in     time.Duration
		expect string
	}{
		{20 * time.Minute, "+20 mins"},
		{-20 * time.Minute, "-20 mins"},
		{0, "+0 mins"},
		{90 * time.Minute, "+1 hrs 30 mins"},
		{-(2*time.Hour + 5*time.Minute), "-2 hrs 5 mins"},
		{-(59*time.Minute + 59*time.Second), "-59 mins"},
		{12 * time.Hour, "+12 hrs 0 mins"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expect, FormatSignedDuration(tt.in), tt.in.String())
	}
}

func TestFormatSignedPercent(t *testing.T) {
	assert.Equal(t, "+25%", FormatSignedPercent(0.25))
	assert.Equal(t, "-50%", FormatSignedPercent(-0.5))
	assert.Equal(t, "+0%", FormatSignedPercent(0))
	assert.Equal(t, "+12%", FormatSignedPercent(0.129))
}

func TestFormatSignedNumber(t *testing.T) {
	assert.Equal(t, "+5", FormatSignedNumber(5, false))
	assert.Equal(t, "-3", FormatSignedNumber(-3, false))
	assert.Equal(t, "+5.0", FormatSignedNumber(5, true))
	assert.Equal(t, "-2.5", FormatSignedNumber(-2.5, true))
}

func TestFormatWakeDate(t *testing.T) {
	assert.Equal(t, "2024-03-01 (Fri)", FormatWakeDate(time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)))
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "N/A", FormatCell(nil))
	assert.Equal(t, "81", FormatCell(int64(81)))
	assert.Equal(t, "7 hrs 0 mins", FormatCell("7 hrs 0 mins"))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "1,234,567", FormatNumber(1234567))
	assert.Equal(t, "-1,000", FormatNumber(-1000))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "abcd...", MaskSecret("abcdefgh"))
	assert.Equal(t, "abcdefgh...wxyz", MaskSecret("abcdefghijklmnopqrstuvwxyz"))
}
