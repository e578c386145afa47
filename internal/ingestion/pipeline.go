// Package ingestion implements the document ingestion pipeline.
// It extracts text from local document files, chunks the content, embeds
// the chunks that are not already stored, and upserts the results into the
// vector store. Chunk IDs are deterministic, so re-ingesting an unchanged
// file embeds nothing and costs no API calls.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/docqa/docqa-go/internal/chunker"
	"github.com/docqa/docqa-go/internal/extract"
	"github.com/docqa/docqa-go/internal/logging"
	"github.com/docqa/docqa-go/internal/rag"
)

// ErrNoText indicates a document parsed successfully but yielded no
// extractable text, so there is nothing to ingest.
var ErrNoText = errors.New("no extractable text")

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per document chunk.
	// Defaults to chunker.DefaultSize if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters to overlap between
	// consecutive chunks. Zero means the default (chunker.DefaultOverlap,
	// reduced proportionally when ChunkSize is smaller than that); pass a
	// negative value for no overlap at all.
	ChunkOverlap int

	// EmbedBatchSize is the number of chunks sent per embedding API call.
	// Defaults to 32 if zero.
	EmbedBatchSize int

	// EmbedConcurrency bounds the number of in-flight embedding batches.
	// Defaults to 4 if zero.
	EmbedConcurrency int
}

// Result summarises what ingesting one document did.
type Result struct {
	// Source is the normalized base filename of the document.
	Source string

	// Chunks is the total number of chunks the document split into.
	Chunks int

	// Skipped is the number of chunks already present in the store.
	Skipped int

	// Embedded is the number of chunks newly embedded and upserted.
	Embedded int

	// Bytes is the size of the extracted text.
	Bytes int
}

// Pipeline orchestrates the extract → chunk → embed → upsert flow.
type Pipeline struct {
	embedder rag.Embedder
	store    rag.VectorStore
	splitter *chunker.Chunker
	cfg      Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultSize
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = chunker.DefaultOverlap
		if cfg.ChunkOverlap >= cfg.ChunkSize {
			// Keep the default's 20% ratio for small explicit sizes.
			cfg.ChunkOverlap = cfg.ChunkSize / 5
		}
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 32
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = 4
	}

	splitter, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("ingestion: %w", err)
	}

	return &Pipeline{
		embedder: embedder,
		store:    store,
		splitter: splitter,
		cfg:      cfg,
	}, nil
}

// IngestFile extracts, chunks, embeds, and stores a single document file.
// Chunks whose deterministic IDs already exist in the store are skipped
// without embedding. The returned Result reports what happened even when
// every chunk was skipped.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (Result, error) {
	source := filepath.Base(path)
	log := logging.FromContext(ctx)

	text, err := extract.File(path)
	if err != nil {
		return Result{Source: source}, err
	}

	return p.ingestText(ctx, log, source, text)
}

// IngestBytes ingests raw document content under the given filename. Used by
// the HTTP upload handler, which has the bytes but no staged file yet.
func (p *Pipeline) IngestBytes(ctx context.Context, name string, data []byte) (Result, error) {
	source := filepath.Base(name)
	text, err := extract.Bytes(source, data)
	if err != nil {
		return Result{Source: source}, err
	}
	return p.ingestText(ctx, logging.FromContext(ctx), source, text)
}

func (p *Pipeline) ingestText(ctx context.Context, log *slog.Logger, source, text string) (Result, error) {
	res := Result{Source: source, Bytes: len(text)}

	chunks := p.splitter.Split(text)
	if len(chunks) == 0 {
		return res, fmt.Errorf("%w: %s", ErrNoText, source)
	}
	res.Chunks = len(chunks)

	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = rag.ChunkID(source, i)
	}

	existing, err := p.store.ExistingIDs(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("ingestion: checking existing chunks for %s: %w", source, err)
	}

	var missing []int
	for i, id := range ids {
		if existing[id] {
			res.Skipped++
			continue
		}
		missing = append(missing, i)
	}

	if len(missing) == 0 {
		log.Info("document already ingested",
			slog.String("source", source),
			slog.Int("chunks", res.Chunks))
		return res, nil
	}

	if err := p.embedAndUpsert(ctx, source, chunks, missing); err != nil {
		return res, err
	}
	res.Embedded = len(missing)

	log.Info("document ingested",
		slog.String("source", source),
		slog.Int("chunks", res.Chunks),
		slog.Int("embedded", res.Embedded),
		slog.Int("skipped", res.Skipped))
	return res, nil
}

// embedAndUpsert embeds the missing chunk indices in bounded-concurrency
// batches and upserts each batch as it completes. A failed batch cancels the
// rest; batches already upserted stay stored, and the deterministic IDs make
// the retry skip them.
func (p *Pipeline) embedAndUpsert(ctx context.Context, source string, chunks []string, missing []int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.EmbedConcurrency)

	for start := 0; start < len(missing); start += p.cfg.EmbedBatchSize {
		end := start + p.cfg.EmbedBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, idx := range batch {
				texts[i] = chunks[idx]
			}

			embeddings, err := p.embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("ingestion: embedding %s: %w", source, err)
			}

			docs := make([]rag.Document, len(batch))
			for i, idx := range batch {
				docs[i] = rag.Document{
					ID:         rag.ChunkID(source, idx),
					Content:    chunks[idx],
					Source:     source,
					ChunkIndex: idx,
				}
			}

			if err := p.store.Upsert(gctx, docs, embeddings); err != nil {
				return fmt.Errorf("ingestion: upsert failed for %s: %w", source, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// IngestDir ingests every supported document in dir, sorted by name.
// Unsupported files are skipped with a warning rather than failing the run;
// any other error aborts. Returns the results for documents processed so far.
func (p *Pipeline) IngestDir(ctx context.Context, dir string) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ingestion: reading %s: %w", dir, err)
	}

	log := logging.FromContext(ctx)
	var results []Result

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if !extract.Supported(name) {
			log.Warn("skipping unsupported file", slog.String("file", name))
			continue
		}
		res, err := p.IngestFile(ctx, filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, ErrNoText) {
				log.Warn("skipping document with no extractable text", slog.String("file", name))
				continue
			}
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
