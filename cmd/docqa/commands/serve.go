package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/docqa/docqa-go/internal/logging"
	"github.com/docqa/docqa-go/internal/server"
	"github.com/docqa/docqa-go/internal/tracing"
)

// NewServeCmd constructs the `docqa serve` command, which starts the HTTP
// server for uploading documents and asking questions over them.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docqa HTTP server",
		Long: `Start the docqa HTTP server on localhost.

The server exposes a REST API for uploading documents, asking questions,
listing the corpus, and clearing it, plus health, readiness, and Prometheus
metrics endpoints.

Set DOCQA_API_KEY to require Bearer authentication on the /api routes.
Uploaded documents are staged under DOCQA_DOCS_DIR (default
~/.docqa/documents); set it to "disabled" to skip staging.

Examples:
  docqa serve
  docqa serve --port 9090
  MODEL_PROVIDER=azure docqa serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			emb, err := newEmbedder(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			store, err := newStore(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer store.Close()

			pipeline, err := newPipeline(emb, store)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			gen, err := newGenerator(ctx, emb, store, 0)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			led := openLedger(log)
			if led != nil {
				defer led.Close()
			}

			pingers := []server.Pinger{
				server.NewQdrantPinger(store),
				server.NewEmbedderPinger(emb),
			}
			if led != nil {
				pingers = append(pingers, server.NewLedgerPinger(led))
			}

			deps := server.Deps{
				Generator: gen,
				Pipeline:  pipeline,
				Store:     store,
			}
			if led != nil {
				deps.Ledger = led
			}

			srv, err := server.New(deps, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("DOCQA_API_KEY"),
				DocsDir: docsDir(log),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
