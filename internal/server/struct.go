package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/docqa/docqa-go/internal/answer"
	"github.com/docqa/docqa-go/internal/ingestion"
	"github.com/docqa/docqa-go/internal/ledger"
	"github.com/docqa/docqa-go/internal/worker"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MaxUploadBytes caps the size of a single document upload.
	// Defaults to 32 MiB if zero.
	MaxUploadBytes int64
	// DocsDir, when set, is the directory uploaded documents are staged to
	// before ingestion so `docqa ingest` can re-process them later.
	DocsDir string
	// IngestConcurrency bounds the number of uploads processed at once.
	// Defaults to [worker.DefaultLimit] if zero.
	IngestConcurrency int
	// MetricsRegistry receives all server metrics. If nil, a fresh private
	// registry is created so tests never pollute the global default.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Must gather from MetricsRegistry.
	MetricsGatherer prometheus.Gatherer
}

// asker is the interface handleQuestion calls to answer a question.
// *answer.Generator satisfies it; tests inject a fake.
type asker interface {
	Ask(ctx context.Context, question string) (answer.Answer, error)
}

// ingester is the interface handleUpload calls to ingest an uploaded
// document. *ingestion.Pipeline satisfies it; tests inject a fake.
type ingester interface {
	IngestBytes(ctx context.Context, name string, data []byte) (ingestion.Result, error)
}

// clearer is the subset of the vector store the clear handler needs.
type clearer interface {
	Clear(ctx context.Context) error
	Count(ctx context.Context) (uint64, error)
}

// Server is the HTTP server that exposes ingestion and question answering.
type Server struct {
	// asker answers questions; set to the generator in production,
	// overridden by a fake in tests.
	asker asker
	// ingester ingests uploaded documents.
	ingester ingester
	// store is the vector store, used by the clear and documents handlers.
	store clearer
	// ledger records per-document ingestion state.
	ledger ledger.Ledger
	// pool bounds concurrent ingestion work triggered by uploads.
	pool *worker.Pool
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds all Prometheus metrics owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// questionRequest is the JSON body for POST /api/question.
type questionRequest struct {
	// Question is the user's natural language question.
	Question string `json:"question"`
}

// questionResponse is the JSON response for POST /api/question.
type questionResponse struct {
	// Answer is the generated answer text.
	Answer string `json:"answer"`
	// Sources lists the distinct document filenames the answer drew on.
	Sources []string `json:"sources,omitempty"`
}

// uploadResponse is the JSON response for POST /api/documents.
type uploadResponse struct {
	// Source is the normalized filename the document was stored under.
	Source string `json:"source"`
	// Chunks is the total number of chunks the document split into.
	Chunks int `json:"chunks"`
	// Skipped is the number of chunks that were already present.
	Skipped int `json:"skipped"`
	// Embedded is the number of chunks newly embedded and stored.
	Embedded int `json:"embedded"`
}

// documentEntry is one element of the GET /api/documents response.
type documentEntry struct {
	// Source is the document filename.
	Source string `json:"source"`
	// Chunks is the number of chunks stored for this document.
	Chunks int `json:"chunks"`
	// Bytes is the size of the extracted text.
	Bytes int `json:"bytes"`
	// IngestedAt is when the document was last ingested (RFC 3339).
	IngestedAt time.Time `json:"ingestedAt"`
}

// documentsResponse is the JSON response for GET /api/documents.
type documentsResponse struct {
	// Documents lists all ingested documents ordered by source name.
	Documents []documentEntry `json:"documents"`
	// Points is the total number of vectors currently stored.
	Points uint64 `json:"points"`
}

// clearResponse is the JSON response for POST /api/clear.
type clearResponse struct {
	// Cleared is true when both the vector store and the ledger were wiped.
	Cleared bool `json:"cleared"`
}
