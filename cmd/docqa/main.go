// Command docqa is the entry point for the document question-answering
// assistant. It provides a CLI interface (via Cobra) and an optional HTTP
// server for uploading documents and asking questions over them.
package main

import (
	"fmt"
	"os"

	"github.com/docqa/docqa-go/cmd/docqa/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
