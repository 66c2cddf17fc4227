// Package postgres persists exported snapshots into Postgres using the COPY
// bulk-insert protocol.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/cognitext/chaingram/pkg/chaingram/chain"
	"github.com/cognitext/chaingram/pkg/chaingram/store"
)

// Store implements store.Exporter on Postgres.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres, verifies the connection, and ensures the export
// schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	record_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transitions (
	batch_id TEXT NOT NULL REFERENCES batches(id),
	first TEXT NOT NULL,
	second TEXT NOT NULL,
	topic_first TEXT NOT NULL,
	topic_second TEXT NOT NULL,
	transitions JSONB NOT NULL,
	PRIMARY KEY (batch_id, first, second, topic_first, topic_second)
);

CREATE INDEX IF NOT EXISTS idx_transitions_bigram ON transitions(first, second);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// ExportSnapshot bulk-loads one snapshot inside a transaction: the batch row
// first, then one COPY stream with a row per (bigram, topic) pair.
func (s *Store) ExportSnapshot(ctx context.Context, batch store.BatchID, snap chain.Snapshot) error {
	records := store.Flatten(snap)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin export tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO batches (id, record_count) VALUES ($1, $2)",
		string(batch), len(records),
	); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("transitions",
		"batch_id", "first", "second", "topic_first", "topic_second", "transitions"))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}

	for _, r := range records {
		body, err := json.Marshal(r.Transitions)
		if err != nil {
			stmt.Close()
			return fmt.Errorf("encode transitions: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			string(batch), r.First, r.Second, r.TopicFirst, r.TopicSecond, string(body),
		); err != nil {
			stmt.Close()
			return fmt.Errorf("copy transition row: %w", err)
		}
	}

	// Flush the COPY stream.
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}

	return tx.Commit()
}
