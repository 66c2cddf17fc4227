// Package pipeline runs the indexing stages: raw lines fan out to data-
// parallel workers, each owning its own transition index; filled indexes are
// drained and the snapshots handed off over a bounded queue to the export
// stage. Ownership moves with the hand-off; nothing is shared between
// stages. Bounded queues are the only scheduling coordination: a stage
// blocks sending when downstream is saturated and blocks receiving when
// upstream is idle. Closing the input channel is the only termination
// signal.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/cognitext/chaingram/pkg/chaingram/chain"
	"github.com/cognitext/chaingram/pkg/chaingram/ingest"
	"github.com/cognitext/chaingram/pkg/chaingram/internalerr"
	"github.com/cognitext/chaingram/pkg/chaingram/store"
)

// Options configures a Pipeline.
type Options struct {
	Workers      int
	QueueDepth   int
	DocsPerIndex int

	HalfParaLen    int
	PruneSizeBytes int
	PruneThreshold int

	Normalizer *ingest.Normalizer
	Exporter   store.Exporter
	Logger     *slog.Logger
}

// Pipeline coordinates workers and the export stage.
type Pipeline struct {
	opts Options
	log  *slog.Logger
}

// New validates the options and creates a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Workers < 1 || opts.QueueDepth < 1 || opts.DocsPerIndex < 1 {
		return nil, fmt.Errorf("workers, queue depth and docs per index must be positive: %w",
			internalerr.ErrInvalidConfig)
	}
	if opts.HalfParaLen < 1 || opts.PruneSizeBytes < 1 || opts.PruneThreshold < 1 {
		return nil, fmt.Errorf("index parameters must be positive: %w", internalerr.ErrInvalidConfig)
	}
	if opts.Normalizer == nil || opts.Exporter == nil {
		return nil, fmt.Errorf("normalizer and exporter are required: %w", internalerr.ErrInvalidConfig)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{opts: opts, log: log.With("component", "pipeline")}, nil
}

// Run processes lines until the channel closes and everything in flight has
// been exported. It returns the first error from any stage; an error cancels
// the remaining stages through the shared context.
func (p *Pipeline) Run(ctx context.Context, lines <-chan string) error {
	g, ctx := errgroup.WithContext(ctx)

	snaps := make(chan chain.Snapshot, p.opts.QueueDepth)

	var workers errgroup.Group
	for i := 0; i < p.opts.Workers; i++ {
		workers.Go(func() error {
			return p.worker(ctx, lines, snaps)
		})
	}

	g.Go(func() error {
		err := workers.Wait()
		close(snaps)
		return err
	})

	g.Go(func() error {
		return p.export(ctx, snaps)
	})

	return g.Wait()
}

func (p *Pipeline) worker(ctx context.Context, lines <-chan string, snaps chan<- chain.Snapshot) error {
	c := p.newChain()
	docs := 0

	flush := func() error {
		if docs == 0 {
			return nil
		}
		p.log.Info("index full", "documents", docs,
			"entries", c.EntryCount(), "bytes", c.AllocatedBytes())
		if err := c.Compact(); err != nil {
			return fmt.Errorf("final compact: %w", err)
		}
		snap := c.Extract()
		if len(snap) > 0 {
			select {
			case snaps <- snap:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		c = p.newChain()
		docs = 0
		return nil
	}

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				p.log.Debug("input drained, flushing worker")
				return flush()
			}
			words := p.opts.Normalizer.Normalize(line)
			if err := p.update(c, words); err != nil {
				return err
			}
			docs++
			if docs >= p.opts.DocsPerIndex {
				if err := flush(); err != nil {
					return err
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// update runs one document through the index. On region exhaustion it forces
// a compaction and retries the document once; a document that still cannot
// fit (or carries an oversized token) is skipped, not fatal.
func (p *Pipeline) update(c *chain.Chain, words []string) error {
	err := c.Update(words)
	if err == nil {
		return nil
	}

	if errors.Is(err, internalerr.ErrRegionExhausted) {
		if cErr := c.Compact(); cErr != nil {
			return fmt.Errorf("compact after exhaustion: %w", cErr)
		}
		err = c.Update(words)
		if err == nil {
			return nil
		}
	}

	if errors.Is(err, internalerr.ErrRegionExhausted) || errors.Is(err, internalerr.ErrTokenTooLong) {
		p.log.Warn("skipping document", "error", err, "tokens", len(words))
		return nil
	}
	return err
}

func (p *Pipeline) export(ctx context.Context, snaps <-chan chain.Snapshot) error {
	for snap := range snaps {
		batch := store.NewBatchID()
		if err := p.opts.Exporter.ExportSnapshot(ctx, batch, snap); err != nil {
			return fmt.Errorf("export batch %s: %w", batch, err)
		}
		p.log.Info("exported batch", "batch", string(batch), "entries", len(snap))
	}
	p.log.Debug("snapshot queue drained")
	return nil
}

func (p *Pipeline) newChain() *chain.Chain {
	return chain.New(p.opts.HalfParaLen, p.opts.PruneSizeBytes, p.opts.PruneThreshold)
}
