// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/asleep/internal/model"
)

var (
	// ErrNotFinite is returned for NaN or infinite inputs.
	ErrNotFinite = errors.New("cli: value is not finite")
	// ErrNegativeDuration is returned when a duration field is below zero.
	ErrNegativeDuration = errors.New("cli: negative duration")
)

// FormatSleepDuration formats seconds as "H hrs M mins" or "M mins".
// Minutes are truncated. A missing value yields "N/A".
func FormatSleepDuration(secs model.Number) (string, error) {
	if !secs.Valid {
		return model.NotAvailable, nil
	}
	if math.IsNaN(secs.Value) || math.IsInf(secs.Value, 0) {
		return "", ErrNotFinite
	}
	if secs.Value < 0 {
		return "", ErrNegativeDuration
	}

	minutes := int64(math.Floor(secs.Value / 60))
	hours, minutes := minutes/60, minutes%60
	if hours > 0 {
		return fmt.Sprintf("%d hrs %d mins", hours, minutes), nil
	}
	return fmt.Sprintf("%d mins", minutes), nil
}

// FormatRatio formats a 0-1 ratio as a rounded percentage.
// Zero and missing ratios both yield "N/A".
func FormatRatio(ratio model.Number) (string, error) {
	if !ratio.Valid || ratio.Value == 0 {
		return model.NotAvailable, nil
	}
	if math.IsNaN(ratio.Value) || math.IsInf(ratio.Value, 0) {
		return "", ErrNotFinite
	}
	return strconv.FormatInt(int64(math.Round(ratio.Value*100)), 10) + "%", nil
}

// FormatClock formats a time of day as HH:MM:SS. The zero time yields "N/A".
func FormatClock(t time.Time) string {
	if t.IsZero() {
		return model.NotAvailable
	}
	return t.Format("15:04:05")
}

// FormatScore truncates a score to an integer. A missing score stays nil.
func FormatScore(score model.Number) (any, error) {
	if !score.Valid {
		return nil, nil
	}
	if math.IsNaN(score.Value) || math.IsInf(score.Value, 0) {
		return nil, ErrNotFinite
	}
	return int64(score.Value), nil
}

// FormatSignedDuration formats a signed difference, e.g. "+1 hrs 5 mins"
// or "-20 mins". Hours and minutes truncate toward zero.
func FormatSignedDuration(d time.Duration) string {
	secs := d.Seconds()
	sign := ""
	if secs >= 0 {
		sign = "+"
	}

	hours := int64(secs / 3600)
	if hours != 0 {
		minutes := int64(math.Abs(secs)/60) % 60
		return fmt.Sprintf("%s%d hrs %d mins", sign, hours, minutes)
	}
	return fmt.Sprintf("%s%d mins", sign, int64(secs/60))
}

// FormatSignedPercent formats a ratio difference as "+12%" or "-3%".
func FormatSignedPercent(delta float64) string {
	sign := ""
	if delta >= 0 {
		sign = "+"
	}
	return sign + strconv.FormatInt(int64(delta*100), 10) + "%"
}

// FormatSignedNumber formats a difference with one decimal place when
// fractional is set, as an integer otherwise.
func FormatSignedNumber(delta float64, fractional bool) string {
	sign := ""
	if delta >= 0 {
		sign = "+"
	}
	if fractional {
		return sign + strconv.FormatFloat(delta, 'f', 1, 64)
	}
	return sign + strconv.FormatInt(int64(delta), 10)
}

// FormatWakeDate formats a wake date as "2006-01-02 (Mon)".
func FormatWakeDate(t time.Time) string {
	return t.Format("2006-01-02") + " (" + t.Format("Mon") + ")"
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatCell renders a report daily value for tables: strings pass through,
// scores print as integers, nil prints as "N/A".
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return model.NotAvailable
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

// MaskSecret shortens a token for display.
func MaskSecret(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
