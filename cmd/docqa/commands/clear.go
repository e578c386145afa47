package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docqa/docqa-go/internal/logging"
)

// NewClearCmd constructs the `docqa clear` command, which wipes the vector
// store and the ingestion ledger.
func NewClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all ingested documents",
		Long: `Delete every vector from the Qdrant collection and every entry from the
ingestion ledger. The collection itself is kept, so the next ingest does not
need to recreate it.

Prompts for confirmation unless --yes is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if !yes {
				fmt.Print("This removes all ingested documents. Continue? [y/N] ")
				reader := bufio.NewReader(os.Stdin)
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("clear: %w", err)
				}
				answer := strings.ToLower(strings.TrimSpace(line))
				if answer != "y" && answer != "yes" {
					fmt.Println("aborted")
					return nil
				}
			}

			store, err := newStore(ctx, log)
			if err != nil {
				return fmt.Errorf("clear: %w", err)
			}
			defer store.Close()

			if err := store.Clear(ctx); err != nil {
				return fmt.Errorf("clear: %w", err)
			}

			if led := openLedger(log); led != nil {
				defer led.Close()
				if err := led.Clear(ctx); err != nil {
					return fmt.Errorf("clear: %w", err)
				}
			}

			fmt.Println("corpus cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
