package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/nexus/internal/mcptools"
)

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags override values from the project's nexus.yml.
type globalFlags struct {
	LogLevel string
	LogJSON  bool
	Workers  int
	Database string
	GraphDB  string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "nexus",
		Short: "Map a source tree into files, symbols and import relationships",
		Long: `nexus discovers the source files of a project, parses them with tree-sitter,
extracts symbols and imports, and resolves imports into file-to-file
relationships stored in a local SQLite database.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn, error (default from nexus.yml, else info)")
	pf.BoolVar(&flags.LogJSON, "log-json", false, "log as JSON")
	pf.IntVar(&flags.Workers, "workers", 0, "parse workers (default from nexus.yml, else number of CPUs)")
	pf.StringVar(&flags.Database, "db", "", "SQLite database path (default .nexus/nexus.db under the project)")
	pf.StringVar(&flags.GraphDB, "graph-db", "", "optional KuzuDB directory mirroring the store")

	mcptools.Version = version

	root.AddCommand(
		newAnalyzeCmd(&flags),
		newExportCmd(&flags),
		newServeCmd(&flags),
		newStatusCmd(&flags),
		newContextCmd(&flags),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nexus %s\n", version)
		},
	}
}
