// Package storage persists finished diagnostic sessions to SQLite so
// past verdicts can be listed from the CLI. The session engine itself
// never touches storage.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hazz-dev/netdiag/internal/model"
	"github.com/hazz-dev/netdiag/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id              TEXT PRIMARY KEY,
    domain          TEXT    NOT NULL,
    verdict         TEXT    NOT NULL CHECK(verdict IN ('healthy', 'degraded', 'unavailable', 'indeterminate')),
    tcp_status      TEXT    NOT NULL,
    probes_total    INTEGER NOT NULL,
    probes_failed   INTEGER NOT NULL,
    probes_complete INTEGER NOT NULL,
    probes          TEXT    NOT NULL DEFAULT '[]',
    started_at      TEXT    NOT NULL,
    finished_at     TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_domain ON sessions(domain);
CREATE INDEX IF NOT EXISTS idx_sessions_finished_at ON sessions(finished_at DESC);
`

// Session is a stored diagnostic session.
type Session struct {
	ID             string
	Domain         string
	Verdict        string
	TCPStatus      string
	ProbesTotal    int
	ProbesFailed   int
	ProbesComplete bool
	Probes         []model.Probe
	StartedAt      time.Time
	FinishedAt     time.Time
}

// NewSession builds a storage record from a finalized session state.
func NewSession(st session.State, verdict session.Verdict, finishedAt time.Time) Session {
	return Session{
		ID:             uuid.NewString(),
		Domain:         st.Domain,
		Verdict:        string(verdict),
		TCPStatus:      string(st.TCP.Status),
		ProbesTotal:    len(st.Probes),
		ProbesFailed:   session.FailedProbes(st.Probes),
		ProbesComplete: st.ProbesComplete,
		Probes:         st.Probes,
		StartedAt:      st.StartedAt,
		FinishedAt:     finishedAt,
	}
}

// DB wraps a SQLite database.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the
// schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %q: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// InsertSession persists a finished session.
func (d *DB) InsertSession(ctx context.Context, s Session) error {
	probes, err := json.Marshal(s.Probes)
	if err != nil {
		return fmt.Errorf("encoding probes for %q: %w", s.Domain, err)
	}

	complete := 0
	if s.ProbesComplete {
		complete = 1
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO sessions (id, domain, verdict, tcp_status, probes_total, probes_failed, probes_complete, probes, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.Domain,
		s.Verdict,
		s.TCPStatus,
		s.ProbesTotal,
		s.ProbesFailed,
		complete,
		string(probes),
		s.StartedAt.UTC().Format(time.RFC3339Nano),
		s.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting session for %q: %w", s.Domain, err)
	}
	return nil
}

// RecentSessions returns the most recently finished sessions, newest
// first.
func (d *DB) RecentSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, domain, verdict, tcp_status, probes_total, probes_failed, probes_complete, probes, started_at, finished_at
		 FROM sessions ORDER BY finished_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}
	return sessions, nil
}

// DomainHistory returns stored sessions for one domain, newest first.
func (d *DB) DomainHistory(ctx context.Context, domain string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, domain, verdict, tcp_status, probes_total, probes_failed, probes_complete, probes, started_at, finished_at
		 FROM sessions WHERE domain = ? ORDER BY finished_at DESC LIMIT ?`,
		domain, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history for %q: %w", domain, err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var s Session
	var probes string
	var complete int
	var startedAt, finishedAt string

	err := row.Scan(&s.ID, &s.Domain, &s.Verdict, &s.TCPStatus, &s.ProbesTotal, &s.ProbesFailed, &complete, &probes, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	s.ProbesComplete = complete != 0
	if err := json.Unmarshal([]byte(probes), &s.Probes); err != nil {
		return nil, fmt.Errorf("decoding probes: %w", err)
	}
	if s.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at %q: %w", startedAt, err)
	}
	if s.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, fmt.Errorf("parsing finished_at %q: %w", finishedAt, err)
	}
	return &s, nil
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Parse(time.RFC3339, v)
	}
	return t, nil
}
