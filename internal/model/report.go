package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Trend is a 3-point classification of one metric over the report window.
type Trend string

const (
	TrendIncreasing     Trend = "increasing"
	TrendDecreasing     Trend = "decreasing"
	TrendGettingLater   Trend = "getting later"
	TrendGettingEarlier Trend = "getting earlier"
	TrendNone           Trend = "no trend"
	TrendInsufficient   Trend = "insufficient data"
	TrendError          Trend = "error"
)

// NotAvailable is the placeholder for a missing formatted value.
const NotAvailable = "N/A"

// MetricSeries is the per-metric slice of a Report.
// Daily holds one entry per reported session: a string for formatted values,
// an int64 or nil for the sleep score.
type MetricSeries struct {
	Daily    []any   `json:"daily" yaml:"daily"`
	MonthAvg *string `json:"month_avg,omitempty" yaml:"month_avg,omitempty"`
	Trend    Trend   `json:"trend,omitempty" yaml:"trend,omitempty"`
}

// NamedSeries pairs a metric key with its series.
type NamedSeries struct {
	Key    string
	Series MetricSeries
}

// Report is the daily/average/trend view over the trailing window.
// Metrics keep a fixed order that both encoders preserve.
type Report struct {
	WakeDates []string
	Metrics   []NamedSeries
}

// Series returns the series for key, or nil if the report has no such metric.
func (r *Report) Series(key string) *MetricSeries {
	for i := range r.Metrics {
		if r.Metrics[i].Key == key {
			return &r.Metrics[i].Series
		}
	}
	return nil
}

// MarshalJSON writes wake_dates first, then each metric in order.
func (r Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	dates := r.WakeDates
	if dates == nil {
		dates = []string{}
	}
	if err := writeJSONField(&buf, "wake_dates", dates); err != nil {
		return nil, err
	}
	for _, m := range r.Metrics {
		buf.WriteByte(',')
		s := m.Series
		if s.Daily == nil {
			s.Daily = []any{}
		}
		if err := writeJSONField(&buf, m.Key, s); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONField(buf *bytes.Buffer, key string, v any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	val, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}

// MarshalYAML builds an ordered mapping node mirroring MarshalJSON.
func (r Report) MarshalYAML() (any, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	dates := &yaml.Node{}
	wake := r.WakeDates
	if wake == nil {
		wake = []string{}
	}
	if err := dates.Encode(wake); err != nil {
		return nil, err
	}
	root.Content = append(root.Content, scalarNode("wake_dates"), dates)

	for _, m := range r.Metrics {
		s := m.Series
		if s.Daily == nil {
			s.Daily = []any{}
		}
		val := &yaml.Node{}
		if err := val.Encode(s); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", m.Key, err)
		}
		root.Content = append(root.Content, scalarNode(m.Key), val)
	}
	return root, nil
}

func scalarNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// Delta maps a metric key to a formatted signed difference between two
// sessions. Keys are present only when both sessions had a value.
type Delta map[string]string

// DeltaKeys lists every key a Delta may carry, in display order.
var DeltaKeys = []string{
	"sleep_time",
	"wake_time",
	"sleep_latency",
	"time_in_sleep",
	"time_in_deep",
	"time_in_rem",
	"time_in_snoring",
	"sleep_efficiency",
	"rem_ratio",
	"deep_ratio",
	"sleep_score",
}
