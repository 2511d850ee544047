// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides chat session persistence backed by SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/mhollis/streamdown/internal/model"
	"github.com/mhollis/streamdown/internal/session"
	"github.com/mhollis/streamdown/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound = errors.New("session not found")
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT 'New Chat',
	created_at   TIMESTAMP NOT NULL,
	last_updated TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	finalized  INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	seq        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);
`

// =============================================================================
// SQLITE STORE
// =============================================================================

// SQLiteStore persists sessions and messages in a single SQLite file.
// It implements session.Store plus list/load/delete for session recall.
type SQLiteStore struct {
	db *sql.DB
}

var _ session.Store = (*SQLiteStore)(nil)

// Open opens (creating if necessary) the session database at path.
func Open(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// WRITE OPERATIONS (session.Store)
// =============================================================================

// CreateSession inserts a new session row. Re-creating an existing session
// is a no-op so the fire-and-forget caller can safely retry.
func (s *SQLiteStore) CreateSession(ctx context.Context, meta model.Meta) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, title, created_at, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		meta.ID, meta.Title, meta.CreatedAt, meta.LastUpdated)
	return err
}

// UpdateSessionTitle sets the session title.
func (s *SQLiteStore) UpdateSessionTitle(ctx context.Context, sessionID, title string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET title = ?, last_updated = ? WHERE id = ?`,
		title, time.Now(), sessionID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage inserts a message row from a detached snapshot. Streaming
// messages are inserted with whatever content the snapshot captured;
// FinalizeMessage writes the final text.
func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID string, msg session.MessageSnapshot) error {
	finalized := 0
	if msg.Finalized {
		finalized = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, content, finalized, created_at, seq)
		VALUES (?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE session_id = ?))
		ON CONFLICT(id) DO UPDATE SET content = excluded.content, finalized = excluded.finalized`,
		msg.ID, sessionID, string(msg.Role), msg.Content, finalized, msg.Timestamp, sessionID)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE sessions SET last_updated = ? WHERE id = ?`, time.Now(), sessionID)
	return err
}

// FinalizeMessage writes the complete content of a finished message.
func (s *SQLiteStore) FinalizeMessage(ctx context.Context, sessionID, messageID, content string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET content = ?, finalized = 1 WHERE id = ? AND session_id = ?`,
		content, messageID, sessionID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE sessions SET last_updated = ? WHERE id = ?`, time.Now(), sessionID)
	return err
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// List returns session metadata ordered most recent first. Previews come
// from the latest assistant message of each session.
func (s *SQLiteStore) List(ctx context.Context) ([]model.Meta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.title, s.created_at, s.last_updated,
			(SELECT COUNT(*) FROM messages m WHERE m.session_id = s.id),
			COALESCE((SELECT m.content FROM messages m
				WHERE m.session_id = s.id AND m.role = 'assistant'
				ORDER BY m.seq DESC LIMIT 1), '')
		FROM sessions s
		ORDER BY s.last_updated DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []model.Meta
	for rows.Next() {
		var m model.Meta
		var lastReply string
		if err := rows.Scan(&m.ID, &m.Title, &m.CreatedAt, &m.LastUpdated, &m.MessageCount, &lastReply); err != nil {
			return nil, err
		}
		m.Preview = util.FirstWords(lastReply, model.PreviewWords)
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// Load reads a full session with its messages in order.
func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (*model.Session, error) {
	sess := &model.Session{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, last_updated FROM sessions WHERE id = ?`, sessionID).
		Scan(&sess.ID, &sess.Title, &sess.CreatedAt, &sess.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, created_at FROM messages
		WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, role, content string
		var ts time.Time
		if err := rows.Scan(&id, &role, &content, &ts); err != nil {
			return nil, err
		}
		// Stored messages are always complete; open streams never survive
		// a process restart.
		msg := model.NewUserMessage(content)
		msg.ID = id
		msg.Role = model.Role(role)
		msg.Timestamp = ts
		sess.Messages = append(sess.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if last := sess.LastMessage(); last != nil && last.Role == model.RoleAssistant {
		sess.Preview = util.FirstWords(last.Content(), model.PreviewWords)
	}
	return sess, nil
}

// Delete removes a session and, via the foreign key cascade, its messages.
func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
