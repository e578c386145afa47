package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa-go/internal/logging"
)

// NewDocsCmd constructs the `docqa docs` command, which lists the ingested
// documents recorded in the ledger alongside the live vector count.
func NewDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List ingested documents",
		Long: `List every document recorded in the ingestion ledger, with its chunk
count, extracted size, and last ingestion time, plus the total number of
vectors currently stored in Qdrant.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			store, err := newStore(ctx, log)
			if err != nil {
				return fmt.Errorf("docs: %w", err)
			}
			defer store.Close()

			led := openLedger(log)
			if led == nil {
				return fmt.Errorf("docs: ledger unavailable; nothing to list")
			}
			defer led.Close()

			entries, err := led.List(ctx)
			if err != nil {
				return fmt.Errorf("docs: %w", err)
			}

			count, err := store.Count(ctx)
			if err != nil {
				return fmt.Errorf("docs: %w", err)
			}

			if len(entries) == 0 {
				fmt.Println("no documents ingested yet")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SOURCE\tCHUNKS\tBYTES\tINGESTED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n",
					e.Source, e.Chunks, e.Bytes, e.IngestedAt.Format("2006-01-02 15:04"))
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("docs: %w", err)
			}

			fmt.Printf("\n%d document(s), %d vectors stored\n", len(entries), count)
			return nil
		},
	}

	return cmd
}
