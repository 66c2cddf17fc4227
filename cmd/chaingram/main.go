// chaingram indexes a corpus of documents into a topic-conditioned bigram
// transition store. Input is one document per line; HTML files are stripped
// to text first. Usage:
//
//	chaingram -input corpus.txt -store sqlite -dsn chaingram.db
//	chaingram -input dump.html -config chaingram.yaml
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cognitext/chaingram/pkg/chaingram/config"
	"github.com/cognitext/chaingram/pkg/chaingram/ingest"
	"github.com/cognitext/chaingram/pkg/chaingram/pipeline"
	"github.com/cognitext/chaingram/pkg/chaingram/store"
	"github.com/cognitext/chaingram/pkg/chaingram/store/memstore"
	"github.com/cognitext/chaingram/pkg/chaingram/store/postgres"
	"github.com/cognitext/chaingram/pkg/chaingram/store/sqlite"
)

// Lines can be whole documents; the default scanner cap is far too small.
const maxLineBytes = 16 << 20

func main() {
	var (
		input      = flag.String("input", "", "Input file, one document per line (required)")
		configPath = flag.String("config", "", "YAML configuration file")
		stopWords  = flag.String("stop-words", "", "Stoplist file")

		halfParaLen    = flag.Int("half-para-len", 0, "Sliding window half-width in tokens")
		pruneSizeGiB   = flag.Float64("prune-size-gib", 0, "Region size in GiB that triggers compaction")
		pruneThreshold = flag.Int("prune-threshold", 0, "Minimum distinct topics to survive compaction")
		workers        = flag.Int("workers", 0, "Parallel indexing workers")
		queueDepth     = flag.Int("queue-depth", 0, "Document and snapshot queue depth")
		docsPerIndex   = flag.Int("docs-per-index", 0, "Documents per index before export")

		storeDriver = flag.String("store", "", "Store driver: sqlite, postgres or memory")
		dsn         = flag.String("dsn", "", "Database path (sqlite) or connection string (postgres)")
		verbose     = flag.Bool("v", false, "Debug logging")
	)
	flag.Parse()

	if *input == "" {
		log.Fatal("-input required")
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal("Failed to load config:", err)
		}
		cfg = loaded
	}

	// Flags override the config file.
	if *stopWords != "" {
		cfg.StoplistPath = *stopWords
	}
	if *halfParaLen > 0 {
		cfg.HalfParaLen = *halfParaLen
	}
	if *pruneSizeGiB > 0 {
		cfg.PruneSizeGiB = *pruneSizeGiB
	}
	if *pruneThreshold > 0 {
		cfg.PruneThreshold = *pruneThreshold
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *queueDepth > 0 {
		cfg.QueueDepth = *queueDepth
	}
	if *docsPerIndex > 0 {
		cfg.DocsPerIndex = *docsPerIndex
	}
	if *storeDriver != "" {
		cfg.Store.Driver = *storeDriver
	}
	if *dsn != "" {
		cfg.Store.DSN = *dsn
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := config.LoadComponents(cfg)
	if err != nil {
		log.Fatal("Failed to build components:", err)
	}

	exporter, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Fatal("Failed to open store:", err)
	}
	defer exporter.Close()

	p, err := pipeline.New(pipeline.Options{
		Workers:        cfg.Workers,
		QueueDepth:     cfg.QueueDepth,
		DocsPerIndex:   cfg.DocsPerIndex,
		HalfParaLen:    cfg.HalfParaLen,
		PruneSizeBytes: cfg.PruneSizeBytes(),
		PruneThreshold: cfg.PruneThreshold,
		Normalizer:     components.Normalizer,
		Exporter:       exporter,
		Logger:         logger,
	})
	if err != nil {
		log.Fatal("Failed to build pipeline:", err)
	}

	lines := make(chan string, cfg.QueueDepth)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		readErr <- readDocuments(ctx, *input, lines)
	}()

	logger.Info("indexing", "input", *input,
		"workers", cfg.Workers, "store", cfg.Store.Driver)

	if err := p.Run(ctx, lines); err != nil {
		log.Fatal("Pipeline failed:", err)
	}
	if err := <-readErr; err != nil {
		log.Fatal("Failed to read input:", err)
	}

	logger.Info("done")
}

// readDocuments streams the input into the pipeline one document at a time.
// HTML inputs are flattened to a single text document first.
func readDocuments(ctx context.Context, path string, lines chan<- string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		text, err := ingest.ExtractText(f)
		if err != nil {
			return fmt.Errorf("extract html text: %w", err)
		}
		select {
		case lines <- text:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	count := 0
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return ctx.Err()
		}
		count++
		if count%100000 == 0 {
			slog.Info("progress", "documents", count)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}
	slog.Info("input complete", "documents", count)
	return nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Exporter, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.Open(ctx, cfg.DSN)
	case "postgres":
		return postgres.Open(ctx, cfg.DSN)
	case "memory":
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
