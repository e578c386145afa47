// Package server implements the HTTP server that exposes document ingestion
// and question answering over a REST API.
// The server is started by the `docqa serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docqa/docqa-go/internal/answer"
	"github.com/docqa/docqa-go/internal/extract"
	"github.com/docqa/docqa-go/internal/ingestion"
	"github.com/docqa/docqa-go/internal/ledger"
	"github.com/docqa/docqa-go/internal/logging"
	"github.com/docqa/docqa-go/internal/worker"
)

// defaultMaxUploadBytes caps document uploads at 32 MiB.
const defaultMaxUploadBytes = 32 << 20

// Deps holds the collaborators the server drives. All fields are required
// except Ledger, which may be nil when ingestion history is not tracked.
type Deps struct {
	// Generator answers questions against the ingested corpus.
	Generator *answer.Generator
	// Pipeline ingests uploaded documents.
	Pipeline *ingestion.Pipeline
	// Store is the vector store backing the corpus.
	Store clearer
	// Ledger records per-document ingestion state.
	Ledger ledger.Ledger
}

// New constructs a Server from the provided dependencies and config.
func New(deps Deps, cfg *Config) (*Server, error) {
	if deps.Generator == nil {
		return nil, fmt.Errorf("server: generator must not be nil")
	}
	if deps.Pipeline == nil {
		return nil, fmt.Errorf("server: pipeline must not be nil")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("server: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover a full embed-and-upsert of a large upload.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.MetricsRegistry == nil {
		reg := prometheus.NewRegistry()
		cfg.MetricsRegistry = reg
		cfg.MetricsGatherer = reg
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}

	limit := cfg.IngestConcurrency
	if limit <= 0 {
		limit = worker.DefaultLimit
	}

	s := &Server{
		asker:    deps.Generator,
		ingester: deps.Pipeline,
		store:    deps.Store,
		ledger:   deps.Ledger,
		pool:     worker.NewPool(limit),
		cfg:      cfg,
		log:      cfg.Logger,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(cfg.MetricsRegistry),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, s.log)
	s.stopRL = stopRL

	if cfg.APIKey == "" {
		s.log.Warn("API key not configured; authentication is disabled")
	}

	// protected applies rate limiting then auth to a single route.
	protected := func(name string, h http.HandlerFunc) http.Handler {
		return rl.middleware(authMiddleware(cfg.APIKey, s.instrument(name, h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/question", protected("question", s.handleQuestion))
	mux.Handle("POST /api/documents", protected("upload", s.handleUpload))
	mux.Handle("GET /api/documents", protected("documents", s.handleDocuments))
	mux.Handle("POST /api/clear", protected("clear", s.handleClear))
	mux.Handle("GET /api/health", s.instrument("health", s.handleHealth))
	mux.Handle("GET /api/ready", s.instrument("ready", s.handleReady))
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(s.log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleQuestion handles POST /api/question. It answers a single question
// grounded in the ingested corpus and returns the answer with its sources.
func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.metrics.questionActive.Inc()
	start := time.Now()
	ans, err := s.asker.Ask(r.Context(), req.Question)
	elapsed := time.Since(start)
	s.metrics.questionActive.Dec()

	outcome := "ok"
	switch {
	case errors.Is(err, answer.ErrEmptyQuestion):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	}
	s.metrics.questionRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.questionDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())

	if errors.Is(err, answer.ErrEmptyQuestion) {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error("question failed", slog.Any("error", err))
		http.Error(w, "failed to answer question", http.StatusBadGateway)
		return
	}

	writeJSON(w, log, http.StatusOK, questionResponse{
		Answer:  ans.Text,
		Sources: ans.Sources,
	})
}

// handleUpload handles POST /api/documents. It accepts a multipart upload
// with a single "file" part, ingests it synchronously, and records the
// result in the ledger. Re-uploading an unchanged document is cheap: chunks
// already present in the store are skipped before any embedding happens.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "multipart upload with a \"file\" part is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !extract.Supported(header.Filename) {
		http.Error(w, "unsupported document format", http.StatusUnsupportedMediaType)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	// Stage the raw upload so `docqa ingest` can re-process it later.
	// filepath.Base strips any path components a client smuggles into the
	// multipart filename.
	if s.cfg.DocsDir != "" {
		staged := filepath.Join(s.cfg.DocsDir, filepath.Base(header.Filename))
		if err := os.WriteFile(staged, data, 0o600); err != nil {
			log.Warn("failed to stage upload",
				slog.String("path", staged),
				slog.Any("error", err),
			)
		}
	}

	var res ingestion.Result
	ingestErr := s.pool.Do(r.Context(), func() error {
		var err error
		res, err = s.ingester.IngestBytes(r.Context(), header.Filename, data)
		return err
	})

	switch {
	case errors.Is(ingestErr, ingestion.ErrNoText):
		s.metrics.ingestDocumentsTotal.WithLabelValues("empty").Inc()
		http.Error(w, "document contains no extractable text", http.StatusUnprocessableEntity)
		return
	case errors.Is(ingestErr, extract.ErrUnsupported):
		s.metrics.ingestDocumentsTotal.WithLabelValues("unsupported").Inc()
		http.Error(w, "unsupported document format", http.StatusUnsupportedMediaType)
		return
	case ingestErr != nil:
		s.metrics.ingestDocumentsTotal.WithLabelValues("error").Inc()
		log.Error("ingestion failed",
			slog.String("source", header.Filename),
			slog.Any("error", ingestErr),
		)
		http.Error(w, "failed to ingest document", http.StatusInternalServerError)
		return
	}

	s.metrics.ingestDocumentsTotal.WithLabelValues("ok").Inc()
	s.metrics.ingestChunksTotal.Add(float64(res.Embedded))

	if s.ledger != nil {
		if err := s.ledger.Record(r.Context(), ledger.Entry{
			Source:     res.Source,
			Chunks:     res.Chunks,
			Bytes:      res.Bytes,
			IngestedAt: time.Now(),
		}); err != nil {
			// The corpus is already updated; a ledger failure only degrades
			// the document listing.
			log.Warn("ledger record failed",
				slog.String("source", res.Source),
				slog.Any("error", err),
			)
		}
	}

	writeJSON(w, log, http.StatusCreated, uploadResponse{
		Source:   res.Source,
		Chunks:   res.Chunks,
		Skipped:  res.Skipped,
		Embedded: res.Embedded,
	})
}

// handleDocuments handles GET /api/documents. It lists all ingested
// documents from the ledger together with the live vector count.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	resp := documentsResponse{Documents: []documentEntry{}}

	if s.ledger != nil {
		entries, err := s.ledger.List(r.Context())
		if err != nil {
			log.Error("ledger list failed", slog.Any("error", err))
			http.Error(w, "failed to list documents", http.StatusInternalServerError)
			return
		}
		for _, e := range entries {
			resp.Documents = append(resp.Documents, documentEntry{
				Source:     e.Source,
				Chunks:     e.Chunks,
				Bytes:      e.Bytes,
				IngestedAt: e.IngestedAt,
			})
		}
	}

	count, err := s.store.Count(r.Context())
	if err != nil {
		log.Error("store count failed", slog.Any("error", err))
		http.Error(w, "failed to count stored vectors", http.StatusInternalServerError)
		return
	}
	resp.Points = count

	writeJSON(w, log, http.StatusOK, resp)
}

// handleClear handles POST /api/clear. It wipes the vector store and the
// ingestion ledger. The collection itself survives, so the next upload does
// not need to recreate it.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if err := s.store.Clear(r.Context()); err != nil {
		log.Error("store clear failed", slog.Any("error", err))
		http.Error(w, "failed to clear document store", http.StatusInternalServerError)
		return
	}
	if s.ledger != nil {
		if err := s.ledger.Clear(r.Context()); err != nil {
			log.Error("ledger clear failed", slog.Any("error", err))
			http.Error(w, "failed to clear ingestion ledger", http.StatusInternalServerError)
			return
		}
	}

	log.Info("corpus cleared")
	writeJSON(w, log, http.StatusOK, clearResponse{Cleared: true})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// instrument wraps a handler to record request count and latency metrics
// under the given logical handler name.
func (s *Server) instrument(name string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw, ok := w.(*responseWriter)
		if !ok {
			rw = &responseWriter{ResponseWriter: w, status: http.StatusOK}
		}

		start := time.Now()
		h.ServeHTTP(rw, r)
		elapsed := time.Since(start)

		s.metrics.httpRequestsTotal.WithLabelValues(
			r.Method, name, strconv.Itoa(rw.status),
		).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(elapsed.Seconds())
	})
}

// writeJSON encodes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("response encode error", slog.Any("error", err))
	}
}
