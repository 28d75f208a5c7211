package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agentrelay/agentrelay/core"
)

// SQLite is a durable Store backed by a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dbPath and runs the schema
// migration. WAL mode is enabled for concurrent readers.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store db: %w", err)
	}
	return &SQLite{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			system_id  TEXT NOT NULL,
			snapshot   TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS messages (
			id         TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			agent_id   TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_system ON sessions(system_id);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error { return s.db.Close() }

// CreateSession implements Store. Creating an existing session is idempotent.
func (s *SQLite) CreateSession(ctx context.Context, rec SessionRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	snapshot := "{}"
	if len(rec.Snapshot) > 0 {
		snapshot = string(rec.Snapshot)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, system_id, snapshot, created_at, updated_at) VALUES (?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING",
		rec.ID, rec.SystemID, snapshot, rec.CreatedAt.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// SaveMessage implements Store.
func (s *SQLite) SaveMessage(ctx context.Context, rec MessageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (id, session_id, role, content, agent_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		rec.ID, rec.SessionID, string(rec.Role), rec.Content, rec.AgentID, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// UpdateSnapshot implements Store. The merge runs inside a transaction so
// concurrent updates cannot interleave read-modify-write cycles.
func (s *SQLite) UpdateSnapshot(ctx context.Context, sessionID string, snapshot json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, "SELECT snapshot FROM sessions WHERE id = ?", sessionID).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	merged := MergeSnapshots(json.RawMessage(existing), snapshot)
	_, err = tx.ExecContext(ctx,
		"UPDATE sessions SET snapshot = ?, updated_at = ? WHERE id = ?",
		string(merged), time.Now().UTC().Format(time.RFC3339Nano), sessionID,
	)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return tx.Commit()
}

// GetSession implements Store.
func (s *SQLite) GetSession(ctx context.Context, sessionID string) (SessionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, system_id, snapshot, created_at, updated_at FROM sessions WHERE id = ?", sessionID)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return rec, err
}

// GetSessions implements Store. An empty systemID returns every session.
func (s *SQLite) GetSessions(ctx context.Context, systemID string) ([]SessionRecord, error) {
	query := "SELECT id, system_id, snapshot, created_at, updated_at FROM sessions ORDER BY created_at"
	args := []any{}
	if systemID != "" {
		query = "SELECT id, system_id, snapshot, created_at, updated_at FROM sessions WHERE system_id = ? ORDER BY created_at"
		args = append(args, systemID)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteSession implements Store; deleting an unknown id is not an error.
func (s *SQLite) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Messages returns the persisted messages for a session, in insertion order.
func (s *SQLite) Messages(ctx context.Context, sessionID string) ([]MessageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, session_id, role, content, agent_id, created_at FROM messages WHERE session_id = ? ORDER BY created_at, id", sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		var rec MessageRecord
		var role, createdAt string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &role, &rec.Content, &rec.AgentID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		rec.Role = core.Role(role)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (SessionRecord, error) {
	var rec SessionRecord
	var snapshot, createdAt, updatedAt string
	if err := row.Scan(&rec.ID, &rec.SystemID, &snapshot, &createdAt, &updatedAt); err != nil {
		return SessionRecord{}, err
	}
	rec.Snapshot = json.RawMessage(snapshot)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return rec, nil
}
