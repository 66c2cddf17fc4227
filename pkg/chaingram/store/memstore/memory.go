// Package memstore is an in-memory Exporter for tests and dry runs.
package memstore

import (
	"context"
	"sync"

	"github.com/cognitext/chaingram/pkg/chaingram/chain"
	"github.com/cognitext/chaingram/pkg/chaingram/internalerr"
	"github.com/cognitext/chaingram/pkg/chaingram/store"
)

// Store collects exported records per batch. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	batches map[store.BatchID][]store.Record
	closed  bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{batches: make(map[store.BatchID][]store.Record)}
}

// ExportSnapshot implements store.Exporter.
func (s *Store) ExportSnapshot(ctx context.Context, batch store.BatchID, snap chain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return internalerr.ErrClosed
	}
	s.batches[batch] = append(s.batches[batch], store.Flatten(snap)...)
	return nil
}

// Close implements store.Exporter.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Batches returns the ids of all exported batches.
func (s *Store) Batches() []store.BatchID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.BatchID, 0, len(s.batches))
	for id := range s.batches {
		out = append(out, id)
	}
	return out
}

// Records returns the records of one batch.
func (s *Store) Records(batch store.BatchID) []store.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.Record(nil), s.batches[batch]...)
}

// AllRecords returns every exported record across batches.
func (s *Store) AllRecords() []store.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Record
	for _, records := range s.batches {
		out = append(out, records...)
	}
	return out
}
