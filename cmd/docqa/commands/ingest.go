package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa-go/internal/ingestion"
	"github.com/docqa/docqa-go/internal/logging"
)

// NewIngestCmd constructs the `docqa ingest` command, which extracts,
// chunks, embeds, and stores documents in the vector store.
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [path...]",
		Short: "Ingest documents into the vector store",
		Long: `Extract, chunk, embed, and store documents so they can be queried.

Each path may be a single document (.pdf, .txt, .rtf) or a directory; for a
directory every supported file in it is ingested, in name order. With no
arguments the staging directory is ingested (DOCQA_DOCS_DIR, defaulting to
~/.docqa/documents).

Ingestion is idempotent: chunks already present in the store are detected by
their deterministic IDs and skipped without re-embedding, so re-running over
an unchanged corpus is cheap.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: documents)
  MODEL_PROVIDER       Embedding backend: ollama, openai, azure (default: ollama)
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  docqa ingest manual.pdf
  docqa ingest ./docs
  DOCQA_DOCS_DIR=./docs docqa ingest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			paths := args
			if len(paths) == 0 {
				dir := docsDir(log)
				if dir == "" {
					return fmt.Errorf("ingest: provide at least one path or set DOCQA_DOCS_DIR")
				}
				paths = []string{dir}
			}

			emb, err := newEmbedder(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			store, err := newStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer store.Close()

			pipeline, err := newPipeline(emb, store)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			led := openLedger(log)
			if led != nil {
				defer led.Close()
			}

			var results []ingestion.Result
			for _, path := range paths {
				info, err := os.Stat(path)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}

				if info.IsDir() {
					dirResults, err := pipeline.IngestDir(ctx, path)
					if err != nil {
						return fmt.Errorf("ingest: %w", err)
					}
					results = append(results, dirResults...)
					continue
				}

				res, err := pipeline.IngestFile(ctx, path)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				results = append(results, res)
			}

			recordResults(ctx, log, led, results)

			var embedded, skipped int
			for _, res := range results {
				embedded += res.Embedded
				skipped += res.Skipped
				fmt.Printf("%s: %d chunks (%d new, %d already stored)\n",
					res.Source, res.Chunks, res.Embedded, res.Skipped)
			}
			fmt.Printf("ingested %d document(s): %d chunks embedded, %d skipped\n",
				len(results), embedded, skipped)
			return nil
		},
	}

	return cmd
}
