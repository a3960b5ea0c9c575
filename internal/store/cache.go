// Package store provides SQLite-backed generation history and a cache of
// the last fetched payload.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // register sqlite driver
)

// ErrNoFetch is returned by LastFetch when nothing has been cached yet.
var ErrNoFetch = errors.New("store: no cached fetch")

// Store provides SQLite-backed history and fetch caching.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Generation records one report produced for a session.
type Generation struct {
	ID          string    `json:"id" yaml:"id"`
	SessionID   string    `json:"session_id" yaml:"session_id"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}

// History is the processed-session log and the most recent generations,
// oldest first.
type History struct {
	ProcessedSessions []string     `json:"processed_sessions" yaml:"processed_sessions"`
	History           []Generation `json:"history" yaml:"history"`
}

// Fetch is a cached raw average-stats payload.
type Fetch struct {
	FetchedAt time.Time
	Days      int
	Payload   []byte
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening store db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// IsProcessed reports whether a generation was ever recorded for sessionID.
func (s *Store) IsProcessed(sessionID string) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM processed_sessions WHERE session_id = ?", sessionID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RecordGeneration marks sessionID as processed and appends a generation
// record, keeping only the newest maxGenerations records.
func (s *Store) RecordGeneration(sessionID string) (Generation, error) {
	g := Generation{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		GeneratedAt: s.now().UTC().Truncate(time.Second),
	}
	at := g.GeneratedAt.Format(time.RFC3339)

	tx, err := s.db.Begin()
	if err != nil {
		return Generation{}, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`INSERT OR IGNORE INTO processed_sessions (session_id, first_seen_at)
		VALUES (?, ?)`, sessionID, at)
	if err != nil {
		return Generation{}, err
	}

	_, err = tx.Exec(`INSERT INTO generations (id, session_id, generated_at)
		VALUES (?, ?, ?)`, g.ID, g.SessionID, at)
	if err != nil {
		return Generation{}, err
	}

	_, err = tx.Exec(`DELETE FROM generations WHERE seq NOT IN
		(SELECT seq FROM generations ORDER BY seq DESC LIMIT ?)`, maxGenerations)
	if err != nil {
		return Generation{}, err
	}

	return g, tx.Commit()
}

// History returns every processed session and the retained generations.
func (s *Store) History() (*History, error) {
	h := &History{ProcessedSessions: []string{}, History: []Generation{}}

	rows, err := s.db.Query("SELECT session_id FROM processed_sessions ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		h.ProcessedSessions = append(h.ProcessedSessions, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	genRows, err := s.db.Query("SELECT id, session_id, generated_at FROM generations ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer func() { _ = genRows.Close() }()

	for genRows.Next() {
		var g Generation
		var at string
		if err := genRows.Scan(&g.ID, &g.SessionID, &at); err != nil {
			return nil, err
		}
		g.GeneratedAt, _ = time.Parse(time.RFC3339, at)
		h.History = append(h.History, g)
	}

	return h, genRows.Err()
}

// LastGeneration returns the newest generation record, if any.
func (s *Store) LastGeneration() (Generation, bool, error) {
	var g Generation
	var at string
	err := s.db.QueryRow(`SELECT id, session_id, generated_at FROM generations
		ORDER BY seq DESC LIMIT 1`).Scan(&g.ID, &g.SessionID, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return Generation{}, false, nil
	}
	if err != nil {
		return Generation{}, false, err
	}
	g.GeneratedAt, _ = time.Parse(time.RFC3339, at)
	return g, true, nil
}

// SaveFetch replaces the cached payload.
func (s *Store) SaveFetch(f Fetch) error {
	at := f.FetchedAt
	if at.IsZero() {
		at = s.now()
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO fetches (id, fetched_at, days, payload)
		VALUES (1, ?, ?, ?)`, at.UTC().Format(time.RFC3339Nano), f.Days, f.Payload)
	return err
}

// LastFetch returns the cached payload or ErrNoFetch.
func (s *Store) LastFetch() (*Fetch, error) {
	var f Fetch
	var at string
	err := s.db.QueryRow("SELECT fetched_at, days, payload FROM fetches WHERE id = 1").
		Scan(&at, &f.Days, &f.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoFetch
	}
	if err != nil {
		return nil, err
	}
	f.FetchedAt, _ = time.Parse(time.RFC3339Nano, at)
	return &f, nil
}
