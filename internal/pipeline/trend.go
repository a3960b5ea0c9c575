package pipeline

import (
	"errors"
	"time"

	"github.com/theirongolddev/asleep/internal/model"
)

// ValueKind tags what a RawValue holds.
type ValueKind int

const (
	KindNumeric ValueKind = iota
	KindTime
)

// ErrMixedKinds is returned when a trend input mixes times and numbers.
var ErrMixedKinds = errors.New("pipeline: trend values mix time and numeric kinds")

// trendPoints is how many trailing values a trend compares.
const trendPoints = 3

// RawValue is one unformatted metric value fed to the trend classifier.
type RawValue struct {
	Kind  ValueKind
	Valid bool
	Num   float64
	Time  time.Time
}

// NumericValue wraps a nullable number.
func NumericValue(n model.Number) RawValue {
	return RawValue{Kind: KindNumeric, Valid: n.Valid, Num: n.Value}
}

// TimeValue wraps a parsed time; ok=false marks it missing.
func TimeValue(t time.Time, ok bool) RawValue {
	return RawValue{Kind: KindTime, Valid: ok, Time: t}
}

// ClassifyTrend classifies the last three non-missing values, oldest first.
func ClassifyTrend(values []RawValue) (model.Trend, error) {
	valid := make([]RawValue, 0, len(values))
	for _, v := range values {
		if v.Valid {
			valid = append(valid, v)
		}
	}
	if len(valid) < trendPoints {
		return model.TrendInsufficient, nil
	}

	kind := valid[0].Kind
	for _, v := range valid[1:] {
		if v.Kind != kind {
			return model.TrendError, ErrMixedKinds
		}
	}

	n := len(valid)
	a, b, c := valid[n-3], valid[n-2], valid[n-1]

	if kind == KindTime {
		laterLast := isLaterCyclic(c.Time, b.Time)
		laterPrev := isLaterCyclic(b.Time, a.Time)
		switch {
		case laterLast && laterPrev:
			return model.TrendGettingLater, nil
		case !laterLast && !laterPrev:
			return model.TrendGettingEarlier, nil
		default:
			return model.TrendNone, nil
		}
	}

	switch {
	case c.Num > b.Num && b.Num > a.Num:
		return model.TrendIncreasing, nil
	case c.Num < b.Num && b.Num < a.Num:
		return model.TrendDecreasing, nil
	default:
		return model.TrendNone, nil
	}
}
