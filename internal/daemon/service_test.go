package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/asleep/internal/model"
	"github.com/theirongolddev/asleep/internal/store"
)

const twoNights = `{"result":{"slept_sessions":[
  {"id":"a","start_time":"2024-03-01T14:00:00Z","sleep_time":"2024-03-01T14:30:00Z","wake_time":"2024-03-01T22:00:00Z","sleep_index":70},
  {"id":"b","start_time":"2024-03-02T14:00:00Z","sleep_time":"2024-03-02T14:50:00Z","wake_time":"2024-03-02T22:00:00Z","sleep_index":75}
]}}`

const threeNights = `{"result":{"slept_sessions":[
  {"id":"a","start_time":"2024-03-01T14:00:00Z","sleep_time":"2024-03-01T14:30:00Z","wake_time":"2024-03-01T22:00:00Z","sleep_index":70},
  {"id":"b","start_time":"2024-03-02T14:00:00Z","sleep_time":"2024-03-02T14:50:00Z","wake_time":"2024-03-02T22:00:00Z","sleep_index":75},
  {"id":"c","start_time":"2024-03-03T14:00:00Z","sleep_time":"2024-03-03T14:20:00Z","wake_time":"2024-03-03T22:00:00Z","sleep_index":81}
]}}`

type stubFetcher struct {
	payload string
	err     error
}

func (f *stubFetcher) Fetch(context.Context, int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.payload), nil
}

func newTestService(t *testing.T, f *stubFetcher) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "asleep.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return New(Config{Days: 7, Interval: time.Minute, EventsBuffer: 10, Fetcher: f, Store: st}), st
}

func eventTypes(evs []Event) []string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{
		Interval:     10 * time.Second,
		EventsBuffer: 2,
	})

	s.publishEvent(Event{Seq: 1, Type: "a", Timestamp: time.Now()})
	s.publishEvent(Event{Seq: 2, Type: "b", Timestamp: time.Now()})
	s.publishEvent(Event{Seq: 3, Type: "c", Timestamp: time.Now()})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].Seq != 2 || s.events[1].Seq != 3 {
		t.Fatalf("events seqs = [%d, %d], want [2, 3]", s.events[0].Seq, s.events[1].Seq)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	s := New(Config{Interval: time.Second})
	if s.cfg.Interval != 15*time.Minute {
		t.Fatalf("Interval = %s, want 15m", s.cfg.Interval)
	}
	if s.cfg.Days != 7 || s.cfg.EventsBuffer != 200 || s.cfg.Addr == "" {
		t.Fatalf("unexpected defaults: %+v", s.cfg)
	}
}

func TestPollOnceFirstNewSession(t *testing.T) {
	f := &stubFetcher{payload: twoNights}
	s, st := newTestService(t, f)

	s.pollOnce(context.Background())

	got := eventTypes(s.events)
	if len(got) != 2 || got[0] != EventSnapshot || got[1] != EventNewSession {
		t.Fatalf("event types = %v, want [snapshot new_session]", got)
	}
	ev := s.events[1]
	if ev.SessionID != "b" {
		t.Fatalf("SessionID = %q, want b", ev.SessionID)
	}
	if ev.Delta["sleep_score"] != "+5" {
		t.Fatalf("delta sleep_score = %q, want +5", ev.Delta["sleep_score"])
	}
	if ev.Delta["sleep_time"] != "+20 mins" {
		t.Fatalf("delta sleep_time = %q, want +20 mins", ev.Delta["sleep_time"])
	}
	if ev.ID == "" || ev.ID == s.events[0].ID {
		t.Fatalf("event ids not unique: %q %q", s.events[0].ID, ev.ID)
	}

	processed, err := st.IsProcessed("b")
	if err != nil {
		t.Fatalf("IsProcessed: %v", err)
	}
	if !processed {
		t.Fatal("session b was not recorded")
	}
}

func TestPollOnceDetectsOnlyChanges(t *testing.T) {
	f := &stubFetcher{payload: twoNights}
	s, _ := newTestService(t, f)
	ctx := context.Background()

	s.pollOnce(ctx)
	s.pollOnce(ctx)
	if n := len(s.events); n != 2 {
		t.Fatalf("events after unchanged poll = %d, want 2", n)
	}

	f.payload = threeNights
	s.pollOnce(ctx)
	if n := len(s.events); n != 3 {
		t.Fatalf("events after new night = %d, want 3", n)
	}
	last := s.events[2]
	if last.Type != EventNewSession || last.SessionID != "c" {
		t.Fatalf("last event = %s/%s, want new_session/c", last.Type, last.SessionID)
	}
	if last.Delta["sleep_score"] != "+6" {
		t.Fatalf("delta sleep_score = %q, want +6", last.Delta["sleep_score"])
	}
}

func TestPollOnceSkipsProcessedOnRestart(t *testing.T) {
	f := &stubFetcher{payload: twoNights}
	s, st := newTestService(t, f)
	if _, err := st.RecordGeneration("b"); err != nil {
		t.Fatalf("RecordGeneration: %v", err)
	}

	s.pollOnce(context.Background())

	got := eventTypes(s.events)
	if len(got) != 1 || got[0] != EventSnapshot {
		t.Fatalf("event types = %v, want [snapshot]", got)
	}
}

func TestPollOnceRecordsError(t *testing.T) {
	f := &stubFetcher{err: context.DeadlineExceeded}
	s := New(Config{Interval: time.Minute, Fetcher: f})

	s.pollOnce(context.Background())

	st := s.snapshotStatus()
	if st.LastError == "" {
		t.Fatal("LastError is empty")
	}
	if st.PollCount != 1 {
		t.Fatalf("PollCount = %d, want 1", st.PollCount)
	}
	if len(s.events) != 0 {
		t.Fatalf("events = %d, want 0", len(s.events))
	}
}

func TestHTTPEndpoints(t *testing.T) {
	f := &stubFetcher{payload: twoNights}
	s, _ := newTestService(t, f)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/report")
	if err != nil {
		t.Fatalf("GET report: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("report before poll = %d, want 503", resp.StatusCode)
	}

	s.pollOnce(context.Background())

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz = %d", resp.StatusCode)
	}

	var status Status
	getJSON(t, srv.URL+"/v1/status", &status)
	if status.LatestSessionID != "b" || status.ReportedNights != 2 || status.Origin != "api" {
		t.Fatalf("unexpected status: %+v", status)
	}

	var report struct {
		WakeDates  []string           `json:"wake_dates"`
		SleepScore model.MetricSeries `json:"sleep_score"`
	}
	getJSON(t, srv.URL+"/v1/report", &report)
	if len(report.WakeDates) != 2 || len(report.SleepScore.Daily) != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if !strings.Contains(getBody(t, srv.URL+"/v1/report?format=yaml"), "wake_dates:") {
		t.Fatal("yaml report missing wake_dates")
	}

	var delta model.Delta
	getJSON(t, srv.URL+"/v1/delta", &delta)
	if delta["sleep_score"] != "+5" {
		t.Fatalf("delta = %v", delta)
	}

	var events []Event
	getJSON(t, srv.URL+"/v1/events", &events)
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}

	var hist store.History
	getJSON(t, srv.URL+"/v1/history", &hist)
	if len(hist.ProcessedSessions) != 1 || hist.ProcessedSessions[0] != "b" {
		t.Fatalf("history = %+v", hist)
	}
}

func getBody(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	return string(body)
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(getBody(t, url)), v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}
