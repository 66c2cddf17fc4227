// Package sqlite persists exported snapshots into a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognitext/chaingram/pkg/chaingram/chain"
	"github.com/cognitext/chaingram/pkg/chaingram/store"
)

// Store implements store.Exporter on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) a SQLite database with WAL mode enabled
// and the export schema in place.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	record_count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transitions (
	batch_id TEXT NOT NULL,
	first TEXT NOT NULL,
	second TEXT NOT NULL,
	topic_first TEXT NOT NULL,
	topic_second TEXT NOT NULL,
	transitions TEXT NOT NULL,
	PRIMARY KEY (batch_id, first, second, topic_first, topic_second),
	FOREIGN KEY (batch_id) REFERENCES batches(id)
);

CREATE INDEX IF NOT EXISTS idx_transitions_bigram ON transitions(first, second);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// ExportSnapshot writes one snapshot as a single transaction: one row per
// (bigram, topic) pair, the ordered transition list JSON-encoded.
func (s *Store) ExportSnapshot(ctx context.Context, batch store.BatchID, snap chain.Snapshot) error {
	records := store.Flatten(snap)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin export tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO batches (id, created_at, record_count) VALUES (?, ?, ?)",
		string(batch), time.Now().UTC().Format(time.RFC3339), len(records),
	); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO transitions (batch_id, first, second, topic_first, topic_second, transitions)
VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		body, err := json.Marshal(r.Transitions)
		if err != nil {
			return fmt.Errorf("encode transitions: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			string(batch), r.First, r.Second, r.TopicFirst, r.TopicSecond, string(body),
		); err != nil {
			return fmt.Errorf("insert transition row: %w", err)
		}
	}

	return tx.Commit()
}

// LoadBatch reads back the records of one batch, in export order.
func (s *Store) LoadBatch(ctx context.Context, batch store.BatchID) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT first, second, topic_first, topic_second, transitions
FROM transitions WHERE batch_id = ?
ORDER BY first, second, topic_first, topic_second`, string(batch))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		var r store.Record
		var body string
		if err := rows.Scan(&r.First, &r.Second, &r.TopicFirst, &r.TopicSecond, &body); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(body), &r.Transitions); err != nil {
			return nil, fmt.Errorf("decode transitions: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
