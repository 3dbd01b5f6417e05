package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/nexus/internal/graph"
)

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status [dir]",
		Short: "Show what is stored for a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.openProject(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			dbPath := p.cfg.DatabasePath(p.root)
			if _, err := os.Stat(dbPath); err != nil {
				fmt.Fprintf(out, "No analysis stored for %s.\n", p.root)
				fmt.Fprintln(out, "Run 'nexus analyze' to build one.")
				return nil
			}

			ctx := cmd.Context()
			store, err := p.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			files, err := store.Files(ctx, p.id)
			if err != nil {
				return err
			}
			stats, err := store.Stats(ctx, p.id)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Project:  %s\n", p.root)
			fmt.Fprintf(out, "Database: %s\n\n", dbPath)
			if stats.TotalFiles == 0 {
				fmt.Fprintln(out, "No analysis stored.")
				fmt.Fprintln(out, "Run 'nexus analyze' to build one.")
				return nil
			}
			printStatsTable(out, stats, files)
			return nil
		},
	}
}

func printStatsTable(out io.Writer, stats *graph.Stats, files []graph.File) {
	fmt.Fprintf(out, "  %-14s %d\n", "files", stats.TotalFiles)
	fmt.Fprintf(out, "  %-14s %d\n", "symbols", stats.TotalSymbols)
	fmt.Fprintf(out, "  %-14s %d\n", "relationships", stats.TotalRelationships)

	counts := make(map[graph.Language]int)
	hidden := 0
	for _, f := range files {
		counts[f.Language]++
		if f.Hidden {
			hidden++
		}
	}
	if hidden > 0 {
		fmt.Fprintf(out, "  %-14s %d\n", "hidden", hidden)
	}

	fmt.Fprintln(out, "\n  By language:")
	for _, lang := range graph.AllLanguages {
		if n := counts[lang]; n > 0 {
			marker := " "
			if !lang.RequiresParsing() {
				marker = "*"
			}
			fmt.Fprintf(out, "  %s %-12s %d\n", marker, lang, n)
		}
	}
	fmt.Fprintln(out, "\n  * discovery only")
}
