// Package rag defines the interfaces for the retrieval side of the
// document question-answering pipeline: vector storage, chunk retrieval,
// and embedding. Concrete implementations (Qdrant, HTTP embedders) satisfy
// these interfaces so the answer and ingestion layers never depend on a
// specific backend.
package rag

import (
	"context"
	"crypto/sha256"
	"fmt"
)

// Document represents one stored or retrieved chunk of an ingested document.
type Document struct {
	// ID is the deterministic chunk identifier, "<source>_chunk_<index>".
	// Derived from the source filename and chunk position, it makes
	// re-ingestion idempotent: the same file always produces the same IDs.
	ID string

	// Content is the chunk's text.
	Content string

	// Source is the normalized filename of the document this chunk came from.
	Source string

	// ChunkIndex is the zero-based position of this chunk in the document.
	ChunkIndex int

	// Score is the similarity score assigned during retrieval (higher is
	// closer under cosine similarity). Zero when the chunk was not retrieved.
	Score float32
}

// ChunkID returns the deterministic identifier for chunk index of source.
func ChunkID(source string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", source, index)
}

// PointUUID folds a chunk ID into a stable UUID-shaped string. Qdrant point
// IDs must be UUIDs or unsigned integers, so the human-readable chunk ID is
// hashed and formatted; the same chunk ID always maps to the same point.
func PointUUID(chunkID string) string {
	h := sha256.Sum256([]byte(chunkID))
	return fmt.Sprintf("%x-%x-%x-%x-%x", h[0:4], h[4:6], h[6:8], h[8:10], h[10:16])
}

// VectorStore is the interface for persisting and searching chunk embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or updates a batch of chunks with their pre-computed
	// embeddings. embeddings must be parallel to docs — embeddings[i] is the
	// vector for docs[i]. Upserting an existing ID overwrites it in place.
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search returns the top-k chunks most similar to the query embedding,
	// ordered nearest first.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error)

	// ExistingIDs reports which of the given chunk IDs are already stored.
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)

	// ListIDs returns the chunk IDs of every stored chunk.
	ListIDs(ctx context.Context) ([]string, error)

	// Delete removes chunks by their chunk IDs.
	Delete(ctx context.Context, ids []string) error

	// Clear removes every stored chunk unconditionally.
	Clear(ctx context.Context) error

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (uint64, error)

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the high-level interface used by the answer generator to fetch
// grounding context for a question. It combines embedding and vector search.
// Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns the top-k chunks most relevant to the query.
	Retrieve(ctx context.Context, query string, topK int) ([]Document, error)
}
