package server

import (
	"context"
	"fmt"

	"github.com/docqa/docqa-go/internal/ledger"
	"github.com/docqa/docqa-go/internal/rag"
)

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// It satisfies the Pinger interface and is used by GET /api/ready.
type QdrantPinger struct {
	// store is the Qdrant-backed vector store to probe.
	store *rag.QdrantStore
}

// NewQdrantPinger constructs a QdrantPinger for the given store.
func NewQdrantPinger(store *rag.QdrantStore) *QdrantPinger {
	return &QdrantPinger{store: store}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
// Returns nil if Qdrant is reachable, or a descriptive error otherwise.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// EmbedderPinger probes the embedding backend by embedding a single short
// string. The call is cheap but not free; it is only made by explicit
// readiness checks, never on the request path.
type EmbedderPinger struct {
	// embedder is the embedding backend to probe.
	embedder rag.Embedder
}

// NewEmbedderPinger constructs an EmbedderPinger for the given embedder.
func NewEmbedderPinger(e rag.Embedder) *EmbedderPinger {
	return &EmbedderPinger{embedder: e}
}

// Name returns the dependency label used in readiness responses.
func (p *EmbedderPinger) Name() string { return "embedder" }

// Ping embeds a single token and checks that exactly one vector comes back.
func (p *EmbedderPinger) Ping(ctx context.Context) error {
	vecs, err := p.embedder.Embed(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return fmt.Errorf("embed returned no vector")
	}
	return nil
}

// LedgerPinger probes the ingestion ledger's SQLite database.
type LedgerPinger struct {
	// ledger is the SQLite-backed ledger to probe.
	ledger *ledger.SQLiteLedger
}

// NewLedgerPinger constructs a LedgerPinger for the given ledger.
func NewLedgerPinger(l *ledger.SQLiteLedger) *LedgerPinger {
	return &LedgerPinger{ledger: l}
}

// Name returns the dependency label used in readiness responses.
func (p *LedgerPinger) Name() string { return "ledger" }

// Ping verifies the ledger database is reachable.
func (p *LedgerPinger) Ping(ctx context.Context) error {
	return p.ledger.Ping(ctx)
}
