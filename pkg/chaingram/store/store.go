// Package store defines the export contract for drained index snapshots and
// the record shape shared by all backends.
package store

import (
	"context"
	"sort"

	"github.com/oklog/ulid/v2"

	"github.com/cognitext/chaingram/pkg/chaingram/chain"
)

// BatchID identifies one exported snapshot.
type BatchID string

// NewBatchID returns a fresh, time-sortable batch id.
func NewBatchID() BatchID {
	return BatchID(ulid.Make().String())
}

// Record is one exportable row: a (bigram, topic bigram) pair with its
// ordered transition list.
type Record struct {
	First       string
	Second      string
	TopicFirst  string
	TopicSecond string
	Transitions []chain.SeqNext
}

// Exporter persists drained snapshots. Implementations own their connection
// and are safe for use from a single export goroutine.
type Exporter interface {
	ExportSnapshot(ctx context.Context, batch BatchID, snap chain.Snapshot) error
	Close() error
}

// Flatten turns a snapshot into records in a deterministic order, so exports
// (and their tests) do not depend on map iteration.
func Flatten(snap chain.Snapshot) []Record {
	var records []Record
	for key, topics := range snap {
		for topic, transitions := range topics {
			records = append(records, Record{
				First:       key.First,
				Second:      key.Second,
				TopicFirst:  topic.First,
				TopicSecond: topic.Second,
				Transitions: transitions,
			})
		}
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.First != b.First {
			return a.First < b.First
		}
		if a.Second != b.Second {
			return a.Second < b.Second
		}
		if a.TopicFirst != b.TopicFirst {
			return a.TopicFirst < b.TopicFirst
		}
		return a.TopicSecond < b.TopicSecond
	})
	return records
}
