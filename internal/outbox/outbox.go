// Package outbox keeps payloads that could not be handed to the backend so
// the session can be resumed and retried, across restarts too.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"route-tracker/internal/submit"
)

var ErrNotFound = errors.New("outbox: entry not found")

// Entry is one pending submission. The bearer token is never stored.
type Entry struct {
	SessionID string
	UserID    string
	Payload   submit.Payload
	LastError string
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Outbox struct {
	db *sql.DB
}

func Open(path string) (*Outbox, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection keeps :memory: databases
	// shared as well.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS pending_submissions (
			session_id        TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			payload           TEXT NOT NULL,
			last_error        TEXT NOT NULL DEFAULT '',
			attempts          INTEGER NOT NULL DEFAULT 0,
			created_at        BIGINT NOT NULL,
			updated_at        BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_pending_user ON pending_submissions (user_id);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("outbox schema: %w", err)
	}
	return &Outbox{db: db}, nil
}

// Save inserts the entry or, for a known session, replaces the payload and
// bumps the attempt counter.
func (o *Outbox) Save(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	now := e.UpdatedAt
	if now.IsZero() {
		now = time.Now()
	}
	_, err = o.db.ExecContext(ctx, `
		INSERT INTO pending_submissions (session_id, user_id, payload, last_error, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			payload    = excluded.payload,
			last_error = excluded.last_error,
			attempts   = pending_submissions.attempts + 1,
			updated_at = excluded.updated_at
	`, e.SessionID, e.UserID, string(data), e.LastError, now.UnixMilli(), now.UnixMilli())
	return err
}

func (o *Outbox) Get(ctx context.Context, sessionID string) (Entry, error) {
	row := o.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, payload, last_error, attempts, created_at, updated_at
		FROM pending_submissions WHERE session_id = ?
	`, sessionID)
	e, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// Pending lists every entry, oldest first.
func (o *Outbox) Pending(ctx context.Context) ([]Entry, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT session_id, user_id, payload, last_error, attempts, created_at, updated_at
		FROM pending_submissions ORDER BY created_at, session_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (o *Outbox) Delete(ctx context.Context, sessionID string) error {
	_, err := o.db.ExecContext(ctx, `DELETE FROM pending_submissions WHERE session_id = ?`, sessionID)
	return err
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (Entry, error) {
	var (
		e                Entry
		payload          string
		created, updated int64
	)
	if err := s.Scan(&e.SessionID, &e.UserID, &payload, &e.LastError, &e.Attempts, &created, &updated); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
		return Entry{}, fmt.Errorf("outbox payload %s: %w", e.SessionID, err)
	}
	e.CreatedAt = time.UnixMilli(created)
	e.UpdatedAt = time.UnixMilli(updated)
	return e, nil
}
