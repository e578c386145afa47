package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa-go/internal/logging"
)

// NewAskCmd constructs the `docqa ask` command, which answers a single
// question grounded in the ingested documents and prints the result.
func NewAskCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about your ingested documents",
		Long: `Ask a natural language question and get an answer grounded in the
ingested corpus.

The question is embedded, the most relevant document chunks are retrieved
from the vector store, and the model answers using only those excerpts.
When nothing relevant has been ingested, docqa says so instead of guessing.

Examples:
  docqa ask "what does the warranty cover?"
  docqa ask how do I reset the device`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			emb, err := newEmbedder(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			store, err := newStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer store.Close()

			gen, err := newGenerator(ctx, emb, store, topK)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			question := strings.Join(args, " ")
			ans, err := gen.Ask(ctx, question)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(ans.Text)
			if len(ans.Sources) > 0 {
				fmt.Printf("\nSources: %s\n", strings.Join(ans.Sources, ", "))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of document chunks to retrieve (default: ANSWER_TOP_K or 3)")

	return cmd
}
