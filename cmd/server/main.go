package main // Entry point package

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "studio",
		Short:         "Studio booking and shop API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe, // serving is the default
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(createAdminCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
