package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/asl-engine/asl"
)

// MySQLStore is a asl.CheckpointStore backed by MySQL/MariaDB, for
// production hosts running multiple worker processes against one
// checkpoint table.
type MySQLStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewMySQLStore opens a connection pool against dsn (e.g.
// "user:pass@tcp(localhost:3306)/workflows?parseTime=true") and ensures its
// checkpoints table exists.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("asl/store: open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("asl/store: ping mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore) createTable(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS asl_checkpoints (
			id VARCHAR(255) PRIMARY KEY,
			payload LONGTEXT NOT NULL,
			created_at DATETIME NOT NULL,
			ttl_seconds BIGINT NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("asl/store: create asl_checkpoints table: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

func (s *MySQLStore) Put(id string, cp asl.Checkpoint) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("asl/store: marshal checkpoint %q: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
		INSERT INTO asl_checkpoints (id, payload, created_at, ttl_seconds)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE payload = VALUES(payload), created_at = VALUES(created_at), ttl_seconds = VALUES(ttl_seconds)
	`, id, string(payload), cp.CreatedAt.UTC(), int64(cp.TTL/time.Second))
	if err != nil {
		return fmt.Errorf("asl/store: put checkpoint %q: %w", id, err)
	}
	return nil
}

func (s *MySQLStore) Get(id string) (asl.Checkpoint, bool, error) {
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

func (s *MySQLStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM asl_checkpoints WHERE id = ?`, id); err != nil {
		return fmt.Errorf("asl/store: delete checkpoint %q: %w", id, err)
	}
	return nil
}

// Expire deletes every checkpoint whose TTL has elapsed since created_at.
func (s *MySQLStore) Expire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		DELETE FROM asl_checkpoints
		WHERE ttl_seconds > 0
		AND TIMESTAMPADD(SECOND, ttl_seconds, created_at) < ?
	`, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("asl/store: expire checkpoints: %w", err)
	}
	return nil
}
