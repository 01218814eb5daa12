// Package store is the client's durable local state: the signed-in
// candidate's access token and a journal of interview sessions used to
// recover sessions a crash left open.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/randalmurphal/interviewroom/auth"
)

// ErrNoToken indicates no credentials are saved.
var ErrNoToken = errors.New("no saved access token")

// ErrNotJournaled indicates the session is not in the journal.
var ErrNotJournaled = errors.New("session not journaled")

// Journal status values. They mirror the session lifecycle.
const (
	StatusActive    = "active"
	StatusFinishing = "finishing"
	StatusCompleted = "completed"
)

const schema = `
CREATE TABLE IF NOT EXISTS credentials (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	token TEXT NOT NULL,
	userId INTEGER NOT NULL,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	role TEXT NOT NULL,
	savedAt REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	interviewId INTEGER PRIMARY KEY,
	status TEXT NOT NULL,
	startedAt REAL NOT NULL,
	updatedAt REAL NOT NULL,
	recordingUrl TEXT
);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the database path under dataDir.
func DefaultDBPath(dataDir string) string {
	return filepath.Join(dataDir, "interviewroom.sqlite")
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	// The token file must not be world readable.
	_ = os.Chmod(path, 0o600)

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Credentials are the saved login.
type Credentials struct {
	Token    string
	Identity auth.Identity
	SavedAt  time.Time
}

// SaveCredentials replaces the saved login.
func (s *Store) SaveCredentials(ctx context.Context, c Credentials) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, token, userId, name, email, role, savedAt)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			userId = excluded.userId,
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			savedAt = excluded.savedAt
	`, c.Token, c.Identity.UserID, c.Identity.Name, c.Identity.Email, c.Identity.Role, unixFromTime(c.SavedAt))
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// LoadCredentials returns the saved login or ErrNoToken.
func (s *Store) LoadCredentials(ctx context.Context) (*Credentials, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, userId, name, email, role, savedAt
		FROM credentials
		WHERE id = 1
	`)

	var c Credentials
	var savedAt float64
	if err := row.Scan(&c.Token, &c.Identity.UserID, &c.Identity.Name,
		&c.Identity.Email, &c.Identity.Role, &savedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("scan credentials: %w", err)
	}
	c.SavedAt = timeFromUnix(savedAt)
	return &c, nil
}

// ClearCredentials forgets the saved login.
func (s *Store) ClearCredentials(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// JournalEntry is one journaled interview session.
type JournalEntry struct {
	InterviewID  int64
	Status       string
	StartedAt    time.Time
	UpdatedAt    time.Time
	RecordingURL string
}

// RecordSession journals a newly started session. A session already
// journaled as completed keeps that status.
func (s *Store) RecordSession(ctx context.Context, interviewID int64, startedAt time.Time) error {
	ts := unixFromTime(startedAt)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (interviewId, status, startedAt, updatedAt)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(interviewId) DO UPDATE SET
			status = excluded.status,
			updatedAt = excluded.updatedAt
		WHERE sessions.status != ?
	`, interviewID, StatusActive, ts, ts, StatusCompleted)
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	return nil
}

// MarkStatus updates a journaled session's status. A completed session is
// never moved back.
func (s *Store) MarkStatus(ctx context.Context, interviewID int64, status string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = ?, updatedAt = ?
		WHERE interviewId = ? AND status != ?
	`, status, unixFromTime(at), interviewID, StatusCompleted)
	if err != nil {
		return fmt.Errorf("mark session %d %s: %w", interviewID, status, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.Session(ctx, interviewID); err != nil {
			return err
		}
	}
	return nil
}

// SetRecordingURL stores the uploaded recording URL for a session.
func (s *Store) SetRecordingURL(ctx context.Context, interviewID int64, url string) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET recordingUrl = ? WHERE interviewId = ?
	`, url, interviewID); err != nil {
		return fmt.Errorf("set recording url: %w", err)
	}
	return nil
}

// Session returns one journal entry.
func (s *Store) Session(ctx context.Context, interviewID int64) (*JournalEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT interviewId, status, startedAt, updatedAt, recordingUrl
		FROM sessions
		WHERE interviewId = ?
	`, interviewID)

	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrNotJournaled, interviewID)
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return e, nil
}

// Unfinished returns sessions journaled as active or finishing, oldest
// first.
func (s *Store) Unfinished(ctx context.Context) ([]JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT interviewId, status, startedAt, updatedAt, recordingUrl
		FROM sessions
		WHERE status IN (?, ?)
		ORDER BY startedAt ASC
	`, StatusActive, StatusFinishing)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Sessions returns every journaled session, newest first.
func (s *Store) Sessions(ctx context.Context) ([]JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT interviewId, status, startedAt, updatedAt, recordingUrl
		FROM sessions
		ORDER BY startedAt DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (*JournalEntry, error) {
	var e JournalEntry
	var startedAt, updatedAt float64
	var url sql.NullString
	if err := sc.Scan(&e.InterviewID, &e.Status, &startedAt, &updatedAt, &url); err != nil {
		return nil, err
	}
	e.StartedAt = timeFromUnix(startedAt)
	e.UpdatedAt = timeFromUnix(updatedAt)
	if url.Valid {
		e.RecordingURL = url.String
	}
	return &e, nil
}

func unixFromTime(t time.Time) float64 {
	if t.IsZero() {
		t = time.Now()
	}
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
