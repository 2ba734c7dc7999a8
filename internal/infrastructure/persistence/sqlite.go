// Package persistence implements the store port over a SQLite database.
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/halcyon-dev/flowpilot/internal/domain"
	"github.com/halcyon-dev/flowpilot/internal/ports"
)

// SQLiteStore persists suggestions, executions, the time-saved ledger,
// activity summaries and oracle interactions in one SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewSQLiteStore creates (or opens) the database at path. An empty path
// resolves to ~/.flowpilot/flowpilot.db.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = filepath.Join(userHome(), ".flowpilot", "flowpilot.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS suggestions (
			id TEXT PRIMARY KEY,
			status TEXT,
			pattern_hash TEXT,
			updated TEXT,
			data TEXT
		);
		CREATE TABLE IF NOT EXISTS executions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			execution_id INTEGER,
			timestamp TEXT,
			success INTEGER,
			data TEXT
		);
		CREATE TABLE IF NOT EXISTS time_saved (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			suggestion_id TEXT,
			seconds INTEGER,
			recorded_at TEXT
		);
		CREATE TABLE IF NOT EXISTS summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT,
			timestamp TEXT,
			text TEXT
		);
		CREATE TABLE IF NOT EXISTS interactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			agent TEXT,
			timestamp TEXT,
			prompt TEXT,
			response TEXT
		);`)
	return err
}

// SaveSuggestions upserts the full suggestion set as JSON documents.
func (s *SQLiteStore) SaveSuggestions(suggestions []*domain.PendingSuggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, sg := range suggestions {
		data, err := json.Marshal(sg)
		if err != nil {
			tx.Rollback()
			return err
		}
		_, err = tx.Exec(`INSERT INTO suggestions (id, status, pattern_hash, updated, data)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET status=excluded.status, updated=excluded.updated, data=excluded.data`,
			sg.ID, string(sg.Status), sg.PatternHash, time.Now().Format(time.RFC3339), string(data))
		if err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadSuggestions returns every persisted suggestion, oldest first.
func (s *SQLiteStore) LoadSuggestions() ([]*domain.PendingSuggestion, error) {
	rows, err := s.db.Query(`SELECT data FROM suggestions ORDER BY datetime(updated) ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.PendingSuggestion
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var sg domain.PendingSuggestion
		if err := json.Unmarshal([]byte(data), &sg); err != nil {
			continue // skip unreadable rows rather than failing startup
		}
		out = append(out, &sg)
	}
	return out, rows.Err()
}

// SaveExecution appends one execution record as a JSON document.
func (s *SQLiteStore) SaveExecution(record domain.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO executions (execution_id, timestamp, success, data) VALUES (?, ?, ?, ?)`,
		record.ExecutionID, record.Timestamp.Format(time.RFC3339), boolToInt(record.Success), string(data))
	return err
}

// Executions returns the newest limit records, newest first. limit <= 0
// returns everything.
func (s *SQLiteStore) Executions(limit int) ([]domain.ExecutionRecord, error) {
	query := `SELECT data FROM executions ORDER BY datetime(timestamp) DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ExecutionRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var rec domain.ExecutionRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AddTimeSaved appends one entry to the time-saved ledger.
func (s *SQLiteStore) AddTimeSaved(suggestionID string, seconds int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO time_saved (suggestion_id, seconds, recorded_at) VALUES (?, ?, ?)`,
		suggestionID, seconds, at.Format(time.RFC3339))
	return err
}

// TotalTimeSaved sums the ledger.
func (s *SQLiteStore) TotalTimeSaved() (int, error) {
	var total sql.NullInt64
	if err := s.db.QueryRow(`SELECT SUM(seconds) FROM time_saved`).Scan(&total); err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}

// SaveSummary appends one activity summary.
func (s *SQLiteStore) SaveSummary(summary domain.ActivitySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO summaries (kind, timestamp, text) VALUES (?, ?, ?)`,
		summary.Kind, summary.Timestamp.Format(time.RFC3339), summary.Text)
	return err
}

// Summaries returns the newest limit summaries of one kind, newest first.
// An empty kind matches all kinds; limit <= 0 returns everything.
func (s *SQLiteStore) Summaries(kind string, limit int) ([]domain.ActivitySummary, error) {
	query := `SELECT kind, timestamp, text FROM summaries`
	var args []interface{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY datetime(timestamp) DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ActivitySummary
	for rows.Next() {
		var sm domain.ActivitySummary
		var ts string
		if err := rows.Scan(&sm.Kind, &ts, &sm.Text); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			sm.Timestamp = t
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// LogInteraction appends one oracle interaction.
func (s *SQLiteStore) LogInteraction(agent, prompt, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO interactions (agent, timestamp, prompt, response) VALUES (?, ?, ?, ?)`,
		agent, time.Now().Format(time.RFC3339), prompt, response)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database location.
func (s *SQLiteStore) Path() string {
	return s.path
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func userHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

var _ ports.Store = (*SQLiteStore)(nil)
