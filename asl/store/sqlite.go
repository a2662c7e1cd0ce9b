// Package store provides durable CheckpointStore implementations backed by
// SQL databases and Redis, whose stored checkpoints survive a process
// restart. Runner.Resume does not read from a CheckpointStore: it resumes
// only suspensions recorded by the same Runner, so a stored checkpoint is
// not resumed through Runner.Resume after a restart.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/asl-engine/asl"
)

// SQLiteStore is a single-file asl.CheckpointStore, suitable for local
// development and single-process hosts that still want checkpoints to
// survive a restart.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (creating if necessary) the SQLite database at path
// and ensures its checkpoints table exists. path may be ":memory:".
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("asl/store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("asl/store: %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTable(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS asl_checkpoints (
			id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			ttl_seconds INTEGER NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("asl/store: create asl_checkpoints table: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Put(id string, cp asl.Checkpoint) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("asl/store: marshal checkpoint %q: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
		INSERT INTO asl_checkpoints (id, payload, created_at, ttl_seconds)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload=excluded.payload, created_at=excluded.created_at, ttl_seconds=excluded.ttl_seconds
	`, id, string(payload), cp.CreatedAt.UTC(), int64(cp.TTL/time.Second))
	if err != nil {
		return fmt.Errorf("asl/store: put checkpoint %q: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Get(id string) (asl.Checkpoint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payload string
	err := s.db.QueryRow(`SELECT payload FROM asl_checkpoints WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return asl.Checkpoint{}, false, nil
	}
	if err != nil {
		return asl.Checkpoint{}, false, fmt.Errorf("asl/store: get checkpoint %q: %w", id, err)
	}

	var cp asl.Checkpoint
	if err := json.Unmarshal([]byte(payload), &cp); err != nil {
		return asl.Checkpoint{}, false, fmt.Errorf("asl/store: decode checkpoint %q: %w", id, err)
	}
	return cp, true, nil
}

func (s *SQLiteStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM asl_checkpoints WHERE id = ?`, id); err != nil {
		return fmt.Errorf("asl/store: delete checkpoint %q: %w", id, err)
	}
	return nil
}

// Expire deletes every checkpoint whose TTL has elapsed since created_at.
// ttl_seconds of 0 means "never expires" and is excluded.
func (s *SQLiteStore) Expire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		DELETE FROM asl_checkpoints
		WHERE ttl_seconds > 0
		AND datetime(created_at, '+' || ttl_seconds || ' seconds') < datetime(?)
	`, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("asl/store: expire checkpoints: %w", err)
	}
	return nil
}
