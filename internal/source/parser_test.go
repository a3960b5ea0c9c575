package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/theirongolddev/asleep/internal/model"
)

const samplePayload = `{
  "result": {
    "slept_sessions": [
      {"id": "s1", "start_time": "2024-03-01T14:00:00Z", "wake_time": "2024-03-01T22:00:00Z",
       "time_in_sleep": 27000, "sleep_efficiency": "0.91", "sleep_index": 80, "rem_ratio": null},
      {"id": "", "start_time": "2024-03-02T14:00:00Z", "sleep_index": 77.5},
      {"id": "s3", "start_time": "2024-03-03T14:00:00Z", "sleep_time": 12, "sleep_latency": "soon"}
    ],
    "average_stats": {"time_in_sleep": 26000.4, "sleep_efficiency": 0.9}
  }
}`

// writePayload creates a temp JSON file and returns a DiscoveredFile for it.
func writePayload(t *testing.T, dir, name, body string) DiscoveredFile {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return DiscoveredFile{Path: path, Name: filepath.Base(path)}
}

func TestParse_Sessions(t *testing.T) {
	fr, err := Parse([]byte(samplePayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fr.Result == nil {
		t.Fatal("Result is nil")
	}

	sessions := fr.Result.SleptSessions
	if len(sessions) != 3 {
		t.Fatalf("len(sessions) = %d, want 3", len(sessions))
	}

	s := sessions[0]
	if s.TimeInSleep != model.Int(27000) {
		t.Errorf("TimeInSleep = %+v, want 27000", s.TimeInSleep)
	}
	if !s.SleepEfficiency.Valid || s.SleepEfficiency.Value != 0.91 {
		t.Errorf("SleepEfficiency = %+v, want 0.91 from string", s.SleepEfficiency)
	}
	if s.REMRatio.Valid {
		t.Errorf("REMRatio should be null, got %+v", s.REMRatio)
	}
	if !sessions[1].SleepIndex.Fractional {
		t.Error("77.5 should be marked fractional")
	}
	if sessions[2].SleepTime != "" {
		t.Errorf("non-string sleep_time should decode as empty, got %q", sessions[2].SleepTime)
	}
	if sessions[2].SleepLatency.Valid {
		t.Errorf("non-numeric sleep_latency should be null, got %+v", sessions[2].SleepLatency)
	}

	if fr.Result.AverageStats.IsEmpty() {
		t.Error("average_stats should be present")
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse([]byte("  \n")); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("err = %v, want ErrEmptyPayload", err)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("{not json")); err == nil {
		t.Error("expected decode error")
	}
}

func TestParse_MissingResult(t *testing.T) {
	fr, err := Parse([]byte(`{"status": "ok"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fr.Result != nil {
		t.Errorf("Result = %+v, want nil", fr.Result)
	}
}

func TestParse_AverageStatsOfNulls(t *testing.T) {
	fr, err := Parse([]byte(`{"result": {"slept_sessions": [], "average_stats": {"time_in_sleep": null}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fr.Result.AverageStats.IsEmpty() {
		t.Error("object with keys should count as present")
	}

	fr, err = Parse([]byte(`{"result": {"slept_sessions": [], "average_stats": {}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fr.Result.AverageStats.IsEmpty() {
		t.Error("empty object should count as absent")
	}
}

func TestLatestSessionID(t *testing.T) {
	fr, err := Parse([]byte(samplePayload))
	if err != nil {
		t.Fatal(err)
	}
	if got := LatestSessionID(fr); got != "s3" {
		t.Errorf("LatestSessionID = %q, want s3", got)
	}

	fr.Result.SleptSessions[2].ID = ""
	if got := LatestSessionID(fr); got != "s1" {
		t.Errorf("LatestSessionID = %q, want s1", got)
	}

	if got := LatestSessionID(&model.FetchResult{}); got != "" {
		t.Errorf("LatestSessionID(no result) = %q, want empty", got)
	}
}

func TestParseFile(t *testing.T) {
	df := writePayload(t, t.TempDir(), "export.json", samplePayload)

	result := ParseFile(df)
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if got := len(result.Result.Result.SleptSessions); got != 3 {
		t.Errorf("sessions = %d, want 3", got)
	}

	missing := ParseFile(DiscoveredFile{Path: filepath.Join(t.TempDir(), "nope.json")})
	if missing.Err == nil {
		t.Error("expected error for missing file")
	}
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	writePayload(t, dir, "b.json", samplePayload)
	writePayload(t, dir, "a.JSON", samplePayload)
	writePayload(t, dir, "nested/c.json", samplePayload)
	writePayload(t, dir, "notes.txt", "hello")
	writePayload(t, dir, ".hidden/d.json", samplePayload)

	files, err := ScanDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	want := []string{"a.JSON", "b.json", "c.json"}
	if len(names) != len(want) {
		t.Fatalf("found %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	none, err := ScanDir(filepath.Join(dir, "missing"))
	if err != nil || none != nil {
		t.Errorf("ScanDir(missing) = %v, %v; want nil, nil", none, err)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	single := writePayload(t, dir, "single.json", samplePayload)
	sub := filepath.Join(dir, "exports")
	writePayload(t, sub, "one.json", samplePayload)
	writePayload(t, sub, "two.json", samplePayload)

	files, err := Discover([]string{single.Path, sub})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 3 {
		t.Errorf("len(files) = %d, want 3", len(files))
	}

	if _, err := Discover([]string{filepath.Join(dir, "absent.json")}); err == nil {
		t.Error("expected error for missing input")
	}
}

func TestMerge(t *testing.T) {
	older := &model.FetchResult{Result: &model.ResultBody{
		SleptSessions: []model.Session{{ID: "a", SleepIndex: model.Int(70)}, {ID: "b", SleepIndex: model.Int(71)}},
		AverageStats:  &model.AverageStats{TimeInSleep: model.Int(100)},
	}}
	newer := &model.FetchResult{Result: &model.ResultBody{
		SleptSessions: []model.Session{{ID: "b", SleepIndex: model.Int(90)}, {ID: "c"}, {}},
	}}

	merged := Merge(older, nil, &model.FetchResult{}, newer)
	if merged.Result == nil {
		t.Fatal("merged Result is nil")
	}

	got := merged.Result.SleptSessions
	if len(got) != 4 {
		t.Fatalf("len(sessions) = %d, want 4", len(got))
	}
	if got[1].ID != "b" || got[1].SleepIndex != model.Int(90) {
		t.Errorf("session b = %+v, want replaced by newer copy", got[1])
	}
	if merged.Result.AverageStats == nil || merged.Result.AverageStats.TimeInSleep != model.Int(100) {
		t.Error("average stats from older payload should survive when newer has none")
	}

	if Merge(&model.FetchResult{}).Result != nil {
		t.Error("merging payloads without results should leave Result nil")
	}
}
