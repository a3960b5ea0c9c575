package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/theirongolddev/asleep/internal/model"
)

// benchSessions builds n consecutive nights ending on 2024-03-31.
func benchSessions(n int) []model.Session {
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, ReportLocation)
	sessions := make([]model.Session, n)
	for i := range sessions {
		d := end.AddDate(0, 0, i-n)
		sessions[i] = model.Session{
			ID:              fmt.Sprintf("s%04d", i),
			StartTime:       model.Timestamp(d.Add(23 * time.Hour).Format(time.RFC3339)),
			SleepTime:       model.Timestamp(d.Add(23*time.Hour + time.Duration(i%40)*time.Minute).Format(time.RFC3339)),
			WakeTime:        model.Timestamp(d.Add(31 * time.Hour).Format(time.RFC3339)),
			SleepLatency:    model.Int(int64(300 + i%600)),
			TimeInSleep:     model.Int(int64(25000 + i*7%3000)),
			TimeInDeep:      model.Int(5400),
			TimeInREM:       model.Int(6000),
			TimeInSnoring:   model.Int(int64(i % 200)),
			SleepEfficiency: model.Float(0.8 + float64(i%15)/100),
			REMRatio:        model.Float(0.22),
			DeepRatio:       model.Float(0.18),
			SleepIndex:      model.Int(int64(60 + i%35)),
		}
	}
	return sessions
}

func BenchmarkConvert(b *testing.B) {
	fr := &model.FetchResult{Result: &model.ResultBody{
		SleptSessions: benchSessions(31),
		AverageStats:  &model.AverageStats{TimeInSleep: model.Int(26000), SleepEfficiency: model.Float(0.87)},
	}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		report, err := Convert(fr)
		if err != nil {
			b.Fatal(err)
		}
		_ = report
	}
}

func BenchmarkConvertLargeHistory(b *testing.B) {
	fr := &model.FetchResult{Result: &model.ResultBody{SleptSessions: benchSessions(365)}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Convert(fr); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCalculateDelta(b *testing.B) {
	sessions := benchSessions(2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = CalculateDelta(sessions[1], sessions[0])
	}
}
