package cmd

import (
	"context"
	"os"

	"github.com/shandysiswandi/epimap/cmd/ingest"
	"github.com/shandysiswandi/epimap/cmd/records"
	"github.com/shandysiswandi/epimap/cmd/serve"
	"github.com/spf13/cobra"
)

// RootCommand creates the epimap command with its subcommands.
func RootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "epimap",
		Short:         "Epidemiological dataset ingestion with country boundaries",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default /config/config.yaml, ./config/config.yaml when LOCAL=true)")

	rootCmd.AddCommand(
		serve.Command(&configPath),
		ingest.Command(&configPath),
		records.Command(&configPath),
	)

	return rootCmd
}

func Execute() {
	if err := RootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
