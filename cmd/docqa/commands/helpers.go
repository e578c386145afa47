package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/docqa/docqa-go/internal/answer"
	"github.com/docqa/docqa-go/internal/embedder"
	"github.com/docqa/docqa-go/internal/ingestion"
	"github.com/docqa/docqa-go/internal/ledger"
	"github.com/docqa/docqa-go/internal/provider"
	"github.com/docqa/docqa-go/internal/rag"
)

// newEmbedder validates the embedding configuration and constructs the
// embedding backend from environment variables.
func newEmbedder(log *slog.Logger) (rag.Embedder, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, err
	}
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised", slog.String("backend", embedder.ResolveBackend()))
	return emb, nil
}

// newStore connects to Qdrant using QDRANT_* environment variables and
// ensures the collection exists. The vector size follows the resolved
// embedding backend unless EMBEDDING_DIMENSIONS overrides it.
func newStore(ctx context.Context, log *slog.Logger) (*rag.QdrantStore, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	collection := getEnvOrDefault("QDRANT_COLLECTION", "documents")
	vectorSize := uint64(embedder.DefaultDimensions(embedder.ResolveBackend())) //nolint:gosec // dimensions are bounded

	store, err := rag.NewQdrantStore(ctx, rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: collection,
		VectorSize: vectorSize,
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	log.Info("qdrant store ready",
		slog.String("host", host),
		slog.Int("port", port),
		slog.String("collection", collection),
	)
	return store, nil
}

// newPipeline constructs the ingestion pipeline with chunking parameters
// taken from the environment.
func newPipeline(emb rag.Embedder, store rag.VectorStore) (*ingestion.Pipeline, error) {
	overlap := getEnvInt("CHUNK_OVERLAP", 0)
	if overlap == 0 && os.Getenv("CHUNK_OVERLAP") != "" {
		// An explicit CHUNK_OVERLAP=0 disables overlap rather than
		// falling back to the default.
		overlap = -1
	}

	p, err := ingestion.NewPipeline(emb, store, ingestion.Config{
		ChunkSize:    getEnvInt("CHUNK_SIZE", 0),
		ChunkOverlap: overlap,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	return p, nil
}

// newGenerator constructs the answer generator: the chat model from the
// configured provider, plus a retriever over the given embedder and store.
// topK overrides ANSWER_TOP_K when positive.
func newGenerator(ctx context.Context, emb rag.Embedder, store rag.VectorStore, topK int) (*answer.Generator, error) {
	chatModel, err := provider.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}

	if topK <= 0 {
		topK = getEnvInt("ANSWER_TOP_K", 0)
	}

	gen, err := answer.NewGenerator(&answer.Config{
		Model:     chatModel,
		Retriever: rag.NewStoreRetriever(emb, store),
		Store:     store,
		TopK:      topK,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	return gen, nil
}

// openLedger opens the ingestion ledger. DOCQA_LEDGER_DB overrides the
// default path (~/.docqa/ledger.db); set it to "disabled" to skip ledger
// tracking entirely. Failures degrade to a nil ledger with a warning —
// the corpus itself never depends on the ledger.
func openLedger(log *slog.Logger) *ledger.SQLiteLedger {
	dbPath := os.Getenv("DOCQA_LEDGER_DB")
	if dbPath == "disabled" {
		log.Info("ledger: disabled via DOCQA_LEDGER_DB=disabled")
		return nil
	}
	if dbPath == "" {
		var err error
		dbPath, err = ledger.DefaultDBPath()
		if err != nil {
			log.Warn("ledger: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil
		}
	}

	led, err := ledger.Open(dbPath)
	if err != nil {
		log.Warn("ledger: failed to open, disabling", slog.Any("error", err))
		return nil
	}
	log.Info("ledger: opened", slog.String("path", dbPath))
	return led
}

// recordResults writes one ledger entry per ingestion result. Failures are
// logged and skipped; they never fail the ingestion itself.
func recordResults(ctx context.Context, log *slog.Logger, led ledger.Ledger, results []ingestion.Result) {
	if led == nil {
		return
	}
	for _, res := range results {
		if err := led.Record(ctx, ledger.Entry{
			Source:     res.Source,
			Chunks:     res.Chunks,
			Bytes:      res.Bytes,
			IngestedAt: time.Now(),
		}); err != nil {
			log.Warn("ledger record failed",
				slog.String("source", res.Source),
				slog.Any("error", err),
			)
		}
	}
}

// docsDir resolves the directory uploaded documents are staged to and
// ensures it exists. DOCQA_DOCS_DIR overrides the default
// (~/.docqa/documents); set it to "disabled" to skip staging. Returns ""
// when staging is disabled or the directory cannot be created.
func docsDir(log *slog.Logger) string {
	dir := os.Getenv("DOCQA_DOCS_DIR")
	if dir == "disabled" {
		log.Info("staging: disabled via DOCQA_DOCS_DIR=disabled")
		return ""
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Warn("staging: could not resolve home directory, disabling", slog.Any("error", err))
			return ""
		}
		dir = filepath.Join(home, ".docqa", "documents")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		log.Warn("staging: could not create documents directory, disabling",
			slog.String("path", dir),
			slog.Any("error", err),
		)
		return ""
	}
	return dir
}

// getEnvOrDefault returns the environment variable value or fallback when unset.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the environment variable parsed as int, or fallback when
// unset or unparsable.
func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
