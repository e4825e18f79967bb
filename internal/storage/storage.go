// Package storage persists the history of monitoring sessions in SQLite.
//
// Each completed run is one row in sessions, with one row per fixture in
// session_fixtures and one row per condition in session_conditions. Rows are
// written in a single transaction so a session is either stored whole or not
// at all.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rewired-gh/statwatch/internal/models"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	started_at     TEXT NOT NULL,
	ended_at       TEXT NOT NULL,
	alerted        INTEGER NOT NULL,
	finished_unmet INTEGER NOT NULL,
	cancelled      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS session_fixtures (
	session_id      TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	fixture_id      INTEGER NOT NULL,
	outcome         TEXT NOT NULL,
	alert_triggered INTEGER NOT NULL,
	alert_minute    INTEGER,
	finished        INTEGER NOT NULL,
	elapsed         INTEGER NOT NULL,
	polls           INTEGER NOT NULL,
	fetch_errors    INTEGER NOT NULL,
	PRIMARY KEY (session_id, position)
);
CREATE TABLE IF NOT EXISTS session_conditions (
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	fixture_id INTEGER NOT NULL,
	position   INTEGER NOT NULL,
	statistic  TEXT NOT NULL,
	team       TEXT NOT NULL,
	target     INTEGER NOT NULL,
	current    REAL,
	met        INTEGER NOT NULL,
	met_minute INTEGER,
	PRIMARY KEY (session_id, fixture_id, position)
);
CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
`

// ErrInvalidSession is returned for sessions that cannot be stored.
var ErrInvalidSession = errors.New("invalid session")

// Storage is the session history store
type Storage struct {
	db *sql.DB
	mu sync.Mutex // serializes writers; SQLite allows one at a time
}

// New opens (creating if needed) the history database at path.
func New(path string) (*Storage, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "statwatch", "history.db")
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// An in-memory database lives on one connection only.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close releases the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveSession stores a completed run.
func (s *Storage) SaveSession(ctx context.Context, run models.RunSummary) error {
	if run.SessionID == "" {
		return fmt.Errorf("%w: empty session id", ErrInvalidSession)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, ended_at, alerted, finished_unmet, cancelled) VALUES (?, ?, ?, ?, ?, ?)`,
		run.SessionID, formatTime(run.StartedAt), formatTime(run.EndedAt), run.Alerted, run.FinishedUnmet, run.Cancelled,
	); err != nil {
		return fmt.Errorf("failed to insert session %s: %w", run.SessionID, err)
	}

	for i, fx := range run.Fixtures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_fixtures (session_id, position, fixture_id, outcome, alert_triggered, alert_minute, finished, elapsed, polls, fetch_errors)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.SessionID, i, int64(fx.Fixture), string(fx.Outcome), fx.AlertTriggered, nullInt(fx.AlertTime),
			fx.Finished, fx.Elapsed, fx.Polls, fx.FetchErrors,
		); err != nil {
			return fmt.Errorf("failed to insert fixture %s: %w", fx.Fixture, err)
		}

		for j, cs := range fx.Conditions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO session_conditions (session_id, fixture_id, position, statistic, team, target, current, met, met_minute)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				run.SessionID, int64(fx.Fixture), j, cs.Statistic, cs.Team, cs.Target, nullFloat(cs.Current), cs.Met, nullInt(cs.MetAt),
			); err != nil {
				return fmt.Errorf("failed to insert condition for fixture %s: %w", fx.Fixture, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", run.SessionID, err)
	}
	return nil
}

// ListSessions returns up to limit sessions, newest first. A non-positive
// limit returns all of them.
func (s *Storage) ListSessions(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, ended_at, alerted, finished_unmet, cancelled
		 FROM sessions ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	var runs []models.RunSummary
	for rows.Next() {
		var (
			run            models.RunSummary
			started, ended string
		)
		if err := rows.Scan(&run.SessionID, &started, &ended, &run.Alerted, &run.FinishedUnmet, &run.Cancelled); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		run.StartedAt = parseTime(started)
		run.EndedAt = parseTime(ended)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range runs {
		fixtures, err := s.loadFixtures(ctx, runs[i].SessionID)
		if err != nil {
			return nil, err
		}
		runs[i].Fixtures = fixtures
	}
	return runs, nil
}

func (s *Storage) loadFixtures(ctx context.Context, sessionID string) ([]models.FixtureState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fixture_id, outcome, alert_triggered, alert_minute, finished, elapsed, polls, fetch_errors
		 FROM session_fixtures WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fixtures of session %s: %w", sessionID, err)
	}

	var fixtures []models.FixtureState
	for rows.Next() {
		var (
			fx          models.FixtureState
			id          int64
			outcome     string
			alertMinute sql.NullInt64
		)
		if err := rows.Scan(&id, &outcome, &fx.AlertTriggered, &alertMinute, &fx.Finished, &fx.Elapsed, &fx.Polls, &fx.FetchErrors); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan fixture: %w", err)
		}
		fx.Fixture = models.FixtureID(id)
		fx.AlertTime = intPtr(alertMinute)
		if fx.Outcome, err = models.ParseOutcome(outcome); err != nil {
			rows.Close()
			return nil, fmt.Errorf("session %s fixture %s: %w", sessionID, fx.Fixture, err)
		}
		fixtures = append(fixtures, fx)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range fixtures {
		conds, err := s.loadConditions(ctx, sessionID, fixtures[i].Fixture)
		if err != nil {
			return nil, err
		}
		fixtures[i].Conditions = conds
	}
	return fixtures, nil
}

func (s *Storage) loadConditions(ctx context.Context, sessionID string, fixture models.FixtureID) ([]models.ConditionState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT statistic, team, target, current, met, met_minute
		 FROM session_conditions WHERE session_id = ? AND fixture_id = ? ORDER BY position`,
		sessionID, int64(fixture))
	if err != nil {
		return nil, fmt.Errorf("failed to query conditions of fixture %s: %w", fixture, err)
	}
	defer rows.Close()

	var conds []models.ConditionState
	for rows.Next() {
		var (
			cs        models.ConditionState
			current   sql.NullFloat64
			metMinute sql.NullInt64
		)
		if err := rows.Scan(&cs.Statistic, &cs.Team, &cs.Target, &current, &cs.Met, &metMinute); err != nil {
			return nil, fmt.Errorf("failed to scan condition: %w", err)
		}
		cs.Fixture = fixture
		if current.Valid {
			cs.Current = models.Float(current.Float64)
		}
		cs.MetAt = intPtr(metMinute)
		conds = append(conds, cs)
	}
	return conds, rows.Err()
}

// Clear deletes all stored sessions and returns how many were removed.
func (s *Storage) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"session_conditions", "session_fixtures"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return 0, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit clear: %w", err)
	}
	return int(n), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	return models.Minute(int(v.Int64))
}
