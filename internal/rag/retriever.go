package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docqa/docqa-go/internal/logging"
)

// StoreRetriever implements Retriever by embedding the query and searching
// the vector store.
type StoreRetriever struct {
	embedder Embedder
	store    VectorStore
}

// NewStoreRetriever builds a Retriever over the given embedder and store.
func NewStoreRetriever(embedder Embedder, store VectorStore) *StoreRetriever {
	return &StoreRetriever{embedder: embedder, store: store}
}

// Retrieve embeds the query and returns the topK nearest stored chunks.
func (r *StoreRetriever) Retrieve(ctx context.Context, query string, topK int) ([]Document, error) {
	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("embedding query: expected 1 embedding, got %d", len(embeddings))
	}

	docs, err := r.store.Search(ctx, embeddings[0], topK)
	if err != nil {
		return nil, fmt.Errorf("searching store: %w", err)
	}

	logging.FromContext(ctx).Debug("retrieved context chunks",
		slog.Int("requested", topK),
		slog.Int("returned", len(docs)))
	return docs, nil
}
