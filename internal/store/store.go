// Package store keeps session transcripts in a local SQLite database so
// finished and abandoned games can be listed and exported later.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tatianab/eva-escape/internal/models"

	_ "modernc.org/sqlite"
)

// DefaultPath is where transcripts go when no path is configured.
const DefaultPath = ".saves/transcripts.db"

var ErrSessionNotFound = errors.New("session not found")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	player_name   TEXT NOT NULL,
	started_at    TEXT NOT NULL,
	ended_at      TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	escape_method TEXT NOT NULL DEFAULT '',
	score         INTEGER NOT NULL,
	trust         INTEGER NOT NULL,
	mood          TEXT NOT NULL,
	has_key       INTEGER NOT NULL,
	key_location  TEXT NOT NULL DEFAULT '',
	turns         INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	at         TEXT NOT NULL,
	PRIMARY KEY (session_id, seq)
);`

// Record is the listing view of a stored session.
type Record struct {
	ID           string
	PlayerName   string
	StartedAt    time.Time
	EndedAt      time.Time
	Outcome      models.Outcome
	EscapeMethod string
	Score        int
	Turns        int
}

// Store is a transcript log backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open transcript log: %w", err)
	}
	// One writer at a time; sqlite serialises anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate transcript log: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSession writes the session and its full transcript, replacing any
// earlier copy of the same session.
func (s *Store) SaveSession(ctx context.Context, sess *models.Session, endedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO sessions (id, player_name, started_at, ended_at, outcome, escape_method, score, trust, mood, has_key, key_location, turns)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	ended_at = excluded.ended_at,
	outcome = excluded.outcome,
	escape_method = excluded.escape_method,
	score = excluded.score,
	trust = excluded.trust,
	mood = excluded.mood,
	has_key = excluded.has_key,
	key_location = excluded.key_location,
	turns = excluded.turns`,
		sess.ID, sess.PlayerName, formatTime(sess.StartedAt), formatTime(endedAt),
		string(sess.Outcome), sess.EscapeMethod, sess.Score, sess.Trust, sess.Mood.String(),
		sess.HasKey, sess.KeyLocation, sess.TurnCount,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (session_id, seq, role, content, at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, line := range sess.Transcript {
		if _, err := stmt.ExecContext(ctx, sess.ID, i, string(line.Role), line.Text, formatTime(line.At)); err != nil {
			return fmt.Errorf("insert entry %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// ListSessions returns every stored session, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, player_name, started_at, ended_at, outcome, escape_method, score, turns
FROM sessions ORDER BY started_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r                  Record
			started, ended, oc string
		)
		if err := rows.Scan(&r.ID, &r.PlayerName, &started, &ended, &oc, &r.EscapeMethod, &r.Score, &r.Turns); err != nil {
			return nil, err
		}
		r.Outcome = models.Outcome(oc)
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if r.EndedAt, err = parseTime(ended); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetSession loads a stored session with its transcript.
func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var (
		sess             models.Session
		started, ended   string
		outcome, moodStr string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, player_name, started_at, ended_at, outcome, escape_method, score, trust, mood, has_key, key_location, turns
FROM sessions WHERE id = ?`, id).Scan(
		&sess.ID, &sess.PlayerName, &started, &ended, &outcome, &sess.EscapeMethod,
		&sess.Score, &sess.Trust, &moodStr, &sess.HasKey, &sess.KeyLocation, &sess.TurnCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	sess.Outcome = models.Outcome(outcome)
	if sess.Mood, err = models.ParseMood(moodStr); err != nil {
		return nil, err
	}
	if sess.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT role, content, at FROM entries WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("get entries %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			turn     models.Turn
			role, at string
		)
		if err := rows.Scan(&role, &turn.Text, &at); err != nil {
			return nil, err
		}
		turn.Role = models.Role(role)
		if turn.At, err = parseTime(at); err != nil {
			return nil, err
		}
		sess.Transcript = append(sess.Transcript, turn)
	}
	return &sess, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}
