// Package daemon provides the long-running background sleep monitor service.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/asleep/internal/model"
	"github.com/theirongolddev/asleep/internal/pipeline"
	"github.com/theirongolddev/asleep/internal/store"
)

// Event types.
const (
	EventSnapshot   = "snapshot"
	EventNewSession = "new_session"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Days         int
	Interval     time.Duration
	Addr         string
	EventsBuffer int

	Fetcher pipeline.Fetcher
	Store   *store.Store // history and payload cache; may be nil
}

// Event is emitted on the first successful poll and whenever a new
// session appears.
type Event struct {
	ID        string        `json:"id"`
	Seq       int64         `json:"seq"`
	Type      string        `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	SessionID string        `json:"session_id,omitempty"`
	Report    *model.Report `json:"report,omitempty"`
	Delta     model.Delta   `json:"delta,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt        time.Time `json:"started_at"`
	LastPollAt       time.Time `json:"last_poll_at"`
	LastNewSessionAt time.Time `json:"last_new_session_at"`
	PollIntervalSec  int       `json:"poll_interval_sec"`
	PollCount        int64     `json:"poll_count"`
	Days             int       `json:"days"`
	LatestSessionID  string    `json:"latest_session_id,omitempty"`
	ReportedNights   int       `json:"reported_nights"`
	Origin           string    `json:"origin,omitempty"`
	Stale            bool      `json:"stale"`
	LastError        string    `json:"last_error,omitempty"`
	EventCount       int       `json:"event_count"`
	SubscriberCount  int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg Config

	mu               sync.RWMutex
	startedAt        time.Time
	lastPollAt       time.Time
	lastNewSessionAt time.Time
	pollCount        int64
	lastError        string
	latestID         string
	origin           pipeline.Origin
	stale            bool
	report           *model.Report
	delta            model.Delta
	nextSeq          int64
	events           []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.Interval < time.Minute {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8797"
	}
	if cfg.Days < 1 {
		cfg.Days = 7
	}

	return &Service{
		cfg:       cfg,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the HTTP routes.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/report", s.handleReport)
		r.Get("/delta", s.handleDelta)
		r.Get("/history", s.handleHistory)
		r.Get("/events", s.handleEvents)
		r.Get("/stream", s.handleStream)
	})
	return r
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	slog.Info("daemon listening", "addr", s.cfg.Addr, "interval", s.cfg.Interval)

	// Seed initial report so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	opts := pipeline.LoadOptions{Days: s.cfg.Days, Fetcher: s.cfg.Fetcher}
	if s.cfg.Store != nil {
		opts.Cache = s.cfg.Store
	}

	res, err := pipeline.Load(ctx, opts)
	now := time.Now()
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = now
		s.pollCount++
		s.mu.Unlock()
		slog.Error("daemon poll failed", "error", err)
		return
	}

	delta := model.Delta{}
	if res.Fetch.Result != nil {
		if cur, prev, ok := pipeline.LatestPair(res.Fetch.Result.SleptSessions); ok {
			delta = pipeline.CalculateDelta(cur, prev)
		}
	}

	isNew := s.isNewSession(res.LatestID)

	s.mu.Lock()
	first := s.pollCount == 0 || s.report == nil
	s.report = res.Report
	s.delta = delta
	s.latestID = res.LatestID
	s.origin = res.Origin
	s.stale = res.Stale
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""

	var events []Event
	if first {
		events = append(events, s.newEventLocked(EventSnapshot, now, res.LatestID, res.Report, delta))
	}
	if isNew {
		s.lastNewSessionAt = now
		events = append(events, s.newEventLocked(EventNewSession, now, res.LatestID, res.Report, delta))
	}
	s.mu.Unlock()

	if isNew {
		slog.Info("new sleep session", "session_id", res.LatestID)
		if s.cfg.Store != nil {
			if _, err := s.cfg.Store.RecordGeneration(res.LatestID); err != nil {
				slog.Error("recording generation", "session_id", res.LatestID, "error", err)
			}
		}
	}
	for _, ev := range events {
		s.publishEvent(ev)
	}
}

// isNewSession reports whether id has not been seen before, either by this
// process or in the stored history.
func (s *Service) isNewSession(id string) bool {
	if id == "" {
		return false
	}
	s.mu.RLock()
	same := id == s.latestID
	s.mu.RUnlock()
	if same {
		return false
	}
	if s.cfg.Store == nil {
		return true
	}
	processed, err := s.cfg.Store.IsProcessed(id)
	if err != nil {
		slog.Warn("checking history", "error", err)
		return true
	}
	return !processed
}

func (s *Service) newEventLocked(typ string, at time.Time, sessionID string, report *model.Report, delta model.Delta) Event {
	s.nextSeq++
	return Event{
		ID:        uuid.NewString(),
		Seq:       s.nextSeq,
		Type:      typ,
		Timestamp: at,
		SessionID: sessionID,
		Report:    report,
		Delta:     delta,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nights := 0
	if s.report != nil {
		nights = len(s.report.WakeDates)
	}
	return Status{
		StartedAt:        s.startedAt,
		LastPollAt:       s.lastPollAt,
		LastNewSessionAt: s.lastNewSessionAt,
		PollIntervalSec:  int(s.cfg.Interval.Seconds()),
		PollCount:        s.pollCount,
		Days:             s.cfg.Days,
		LatestSessionID:  s.latestID,
		ReportedNights:   nights,
		Origin:           string(s.origin),
		Stale:            s.stale,
		LastError:        s.lastError,
		EventCount:       len(s.events),
		SubscriberCount:  len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	report := s.report
	s.mu.RUnlock()

	if report == nil {
		http.Error(w, "no report yet", http.StatusServiceUnavailable)
		return
	}

	if r.URL.Query().Get("format") == "yaml" {
		w.Header().Set("Content-Type", "application/yaml")
		_ = yaml.NewEncoder(w).Encode(report)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Service) handleDelta(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	delta := s.delta
	s.mu.RUnlock()

	if delta == nil {
		delta = model.Delta{}
	}
	writeJSON(w, http.StatusOK, delta)
}

func (s *Service) handleHistory(w http.ResponseWriter, _ *http.Request) {
	if s.cfg.Store == nil {
		writeJSON(w, http.StatusOK, store.History{ProcessedSessions: []string{}, History: []store.Generation{}})
		return
	}
	h, err := s.cfg.Store.History()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current state immediately.
	s.mu.RLock()
	current := Event{
		Type:      EventSnapshot,
		Timestamp: time.Now(),
		SessionID: s.latestID,
		Report:    s.report,
		Delta:     s.delta,
	}
	s.mu.RUnlock()
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID != "" {
		_, _ = fmt.Fprintf(w, "id: %s\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
