// Package sqlite persists sessions in a SQLite database. Checkpoints are
// kept as their own rows so hosts can query a playthrough's history.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/fable/pkg/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	turn        INTEGER NOT NULL,
	address     TEXT NOT NULL,
	payload     BLOB NOT NULL,
	updated_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS checkpoints (
	session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	idx         INTEGER NOT NULL,
	turn        INTEGER NOT NULL,
	address     TEXT NOT NULL,
	payload     BLOB NOT NULL,
	PRIMARY KEY (session_id, idx)
);`

// Store implements ports.SessionStore on SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens and migrates a session database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save replaces the session row and its checkpoint rows in one transaction.
func (s *Store) Save(ctx context.Context, sessionID string, session *domain.Session) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}

	head := *session
	head.Checkpoints = nil
	payload, err := json.Marshal(&head)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, turn, address, payload, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET turn = excluded.turn, address = excluded.address,
		 payload = excluded.payload, updated_at = excluded.updated_at`,
		sessionID, session.Turn, session.Address, payload, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoints WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear checkpoints: %w", err)
	}
	for i, cp := range session.Checkpoints {
		data, err := json.Marshal(cp)
		if err != nil {
			return fmt.Errorf("marshal checkpoint %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO checkpoints (session_id, idx, turn, address, payload) VALUES (?, ?, ?, ?, ?)`,
			sessionID, i, cp.Turn, cp.Address, data,
		)
		if err != nil {
			return fmt.Errorf("insert checkpoint %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Load reads a session and its checkpoints.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	var payload []byte
	err := s.sqlDB.QueryRowContext(ctx, `SELECT payload FROM sessions WHERE id = ?`, sessionID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT payload FROM checkpoints WHERE session_id = ? ORDER BY idx`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		var cp domain.Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
		}
		session.Checkpoints = append(session.Checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}

	session.Normalize()
	return &session, nil
}

// Delete removes the session and its checkpoints.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoints WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete checkpoints: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return tx.Commit()
}

// List returns session IDs, most recently updated first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id FROM sessions ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CheckpointSummary is one row of a session's history.
type CheckpointSummary struct {
	Index   int
	Turn    int
	Address string
}

// History lists a session's checkpoints without decoding their payloads.
func (s *Store) History(ctx context.Context, sessionID string) ([]CheckpointSummary, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT idx, turn, address FROM checkpoints WHERE session_id = ? ORDER BY idx`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []CheckpointSummary
	for rows.Next() {
		var c CheckpointSummary
		if err := rows.Scan(&c.Index, &c.Turn, &c.Address); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
