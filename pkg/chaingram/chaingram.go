// Package chaingram builds topic-conditioned bigram transition indexes over
// token streams within a fixed memory budget. Documents are normalized,
// swept with a sliding topic window and recorded into a region-backed
// transition index; snapshots of the index are exported to a store, after
// which the index starts over empty.
package chaingram

import (
	"context"
	"fmt"

	"github.com/cognitext/chaingram/pkg/chaingram/chain"
	"github.com/cognitext/chaingram/pkg/chaingram/ingest"
	"github.com/cognitext/chaingram/pkg/chaingram/internalerr"
	"github.com/cognitext/chaingram/pkg/chaingram/store"
)

// Engine is the indexing facade. It owns one transition index and an
// exporter. Engine is not safe for concurrent use; run one per goroutine
// and share only the exporter, or use the pipeline package.
type Engine struct {
	chain      *chain.Chain
	normalizer *ingest.Normalizer
	exporter   store.Exporter

	halfParaLen    int
	pruneSizeBytes int
	pruneThreshold int
}

// Options configures an Engine.
type Options struct {
	HalfParaLen    int
	PruneSizeBytes int
	PruneThreshold int

	Normalizer *ingest.Normalizer
	Exporter   store.Exporter
}

// New creates an Engine with the given dependencies.
func New(opts Options) (*Engine, error) {
	if opts.HalfParaLen < 1 || opts.PruneSizeBytes < 1 || opts.PruneThreshold < 1 {
		return nil, fmt.Errorf("index parameters must be positive: %w", internalerr.ErrInvalidConfig)
	}
	if opts.Exporter == nil {
		return nil, fmt.Errorf("exporter is required: %w", internalerr.ErrInvalidConfig)
	}
	norm := opts.Normalizer
	if norm == nil {
		norm = ingest.NewNormalizer(nil)
	}
	return &Engine{
		chain:          chain.New(opts.HalfParaLen, opts.PruneSizeBytes, opts.PruneThreshold),
		normalizer:     norm,
		exporter:       opts.Exporter,
		halfParaLen:    opts.HalfParaLen,
		pruneSizeBytes: opts.PruneSizeBytes,
		pruneThreshold: opts.PruneThreshold,
	}, nil
}

// IndexDocument normalizes one raw document and indexes it.
func (e *Engine) IndexDocument(line string) error {
	return e.IndexTokens(e.normalizer.Normalize(line))
}

// IndexTokens indexes an already tokenized document.
func (e *Engine) IndexTokens(words []string) error {
	return e.chain.Update(words)
}

// EntryCount reports how many bigram entries the live index holds.
func (e *Engine) EntryCount() int {
	return e.chain.EntryCount()
}

// AllocatedBytes reports the live index's arena footprint.
func (e *Engine) AllocatedBytes() int {
	return e.chain.AllocatedBytes()
}

// Flush compacts the index, exports the surviving entries as one batch and
// replaces the index with a fresh empty one. Flushing an empty index is a
// no-op and returns an empty batch id.
func (e *Engine) Flush(ctx context.Context) (store.BatchID, error) {
	if err := e.chain.Compact(); err != nil {
		return "", fmt.Errorf("compact before export: %w", err)
	}
	snap := e.chain.Extract()
	if len(snap) == 0 {
		return "", nil
	}

	batch := store.NewBatchID()
	if err := e.exporter.ExportSnapshot(ctx, batch, snap); err != nil {
		return "", fmt.Errorf("export batch %s: %w", batch, err)
	}

	e.chain = chain.New(e.halfParaLen, e.pruneSizeBytes, e.pruneThreshold)
	return batch, nil
}

// Close closes the exporter. Entries not yet flushed are lost.
func (e *Engine) Close() error {
	return e.exporter.Close()
}
