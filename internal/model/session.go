// Package model defines domain types for asleep sessions and reports.
package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a nullable numeric field from the Asleep API.
// Fractional records whether the source literal carried a fractional part,
// which decides between "+5" and "+5.0" when formatting score deltas.
type Number struct {
	Value      float64
	Valid      bool
	Fractional bool
}

// Int returns a valid integral Number.
func Int(v int64) Number {
	return Number{Value: float64(v), Valid: true}
}

// Float returns a valid fractional Number.
func Float(v float64) Number {
	return Number{Value: v, Valid: true, Fractional: true}
}

// UnmarshalJSON accepts numbers, numeric strings, and null.
// Anything else decodes to an invalid Number rather than failing the payload.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		n.parse(string(num))
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		n.parse(strings.TrimSpace(s))
	}
	return nil
}

func (n *Number) parse(lit string) {
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return
	}
	n.Value = v
	n.Valid = true
	n.Fractional = strings.ContainsAny(lit, ".eE")
}

// MarshalJSON writes null for invalid values and keeps integral values integral.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return []byte("null"), nil
	}
	if !n.Fractional && n.Value == math.Trunc(n.Value) {
		return []byte(strconv.FormatFloat(n.Value, 'f', 0, 64)), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}

// Timestamp is a raw ISO-8601 string as sent by the API. Empty means absent.
type Timestamp string

// UnmarshalJSON keeps string values and treats anything else as absent.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = ""
		return nil
	}
	*t = Timestamp(s)
	return nil
}

// Session is one recorded sleep episode.
type Session struct {
	ID              string    `json:"id,omitempty"`
	StartTime       Timestamp `json:"start_time,omitempty"`
	SleepTime       Timestamp `json:"sleep_time,omitempty"`
	WakeTime        Timestamp `json:"wake_time,omitempty"`
	SleepLatency    Number    `json:"sleep_latency"`
	TimeInSleep     Number    `json:"time_in_sleep"`
	TimeInDeep      Number    `json:"time_in_deep"`
	TimeInREM       Number    `json:"time_in_rem"`
	TimeInSnoring   Number    `json:"time_in_snoring"`
	SleepEfficiency Number    `json:"sleep_efficiency"`
	REMRatio        Number    `json:"rem_ratio"`
	DeepRatio       Number    `json:"deep_ratio"`
	SleepIndex      Number    `json:"sleep_index"`
}

// AverageStats is the API's mean over the requested window.
type AverageStats struct {
	SleepTime       Timestamp `json:"sleep_time,omitempty"`
	WakeTime        Timestamp `json:"wake_time,omitempty"`
	SleepLatency    Number    `json:"sleep_latency"`
	TimeInSleep     Number    `json:"time_in_sleep"`
	TimeInDeep      Number    `json:"time_in_deep"`
	TimeInREM       Number    `json:"time_in_rem"`
	TimeInSnoring   Number    `json:"time_in_snoring"`
	SleepEfficiency Number    `json:"sleep_efficiency"`
	REMRatio        Number    `json:"rem_ratio"`
	DeepRatio       Number    `json:"deep_ratio"`

	keys int
}

// UnmarshalJSON records how many keys the object carried so that an object
// of nulls still counts as present, the way the API client treats it.
func (a *AverageStats) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*a = AverageStats{}
		return nil //nolint:nilerr // a malformed record reads as absent
	}
	type plain AverageStats
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = AverageStats(p)
	a.keys = len(raw)
	return nil
}

// IsEmpty reports whether the record carries nothing to average.
func (a *AverageStats) IsEmpty() bool {
	if a == nil {
		return true
	}
	if a.keys > 0 {
		return false
	}
	if a.SleepTime != "" || a.WakeTime != "" {
		return false
	}
	for _, n := range []Number{
		a.SleepLatency, a.TimeInSleep, a.TimeInDeep, a.TimeInREM, a.TimeInSnoring,
		a.SleepEfficiency, a.REMRatio, a.DeepRatio,
	} {
		if n.Valid {
			return false
		}
	}
	return true
}

// ResultBody is the "result" object of an average-stats response.
type ResultBody struct {
	SleptSessions []Session     `json:"slept_sessions"`
	AverageStats  *AverageStats `json:"average_stats"`
}

// FetchResult is the top-level average-stats response.
type FetchResult struct {
	Result *ResultBody `json:"result"`
}
