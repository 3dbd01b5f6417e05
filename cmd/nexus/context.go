package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/nexus/internal/graph"
)

// maxDependents caps the importer list so the output stays short enough to
// paste into a prompt.
const maxDependents = 8

func newContextCmd(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "context <pattern> [dir]",
		Short: "Print Markdown context for symbols matching a pattern",
		Long: `Context looks up symbols whose name contains pattern and prints them with
the import neighbourhood and cluster of the first match's file. It prints
nothing and succeeds when no analysis is stored or nothing matches, so it can
run from editor hooks.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := args[0]
			p, err := flags.openProject(args[1:])
			if err != nil {
				return err
			}
			if _, err := os.Stat(p.cfg.DatabasePath(p.root)); err != nil {
				return nil // no index, exit silently
			}

			ctx := cmd.Context()
			store, err := p.openStore(ctx)
			if err != nil {
				return nil
			}
			defer store.Close()

			symbols, err := store.QuerySymbols(ctx, p.id, pattern, limit)
			if err != nil || len(symbols) == 0 {
				return nil
			}
			files, err := store.Files(ctx, p.id)
			if err != nil {
				return err
			}
			rels, err := store.Relationships(ctx, p.id)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), renderContext(pattern, symbols, files, rels))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum symbols to list")
	return cmd
}

func renderContext(pattern string, symbols []graph.Symbol, files []graph.File, rels []graph.Relationship) string {
	paths := make(map[string]string, len(files))
	for _, f := range files {
		paths[f.ID] = f.Path
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Graph Context for %q\n\n", pattern)

	sb.WriteString("**Symbols found:**\n")
	for _, sym := range symbols {
		fmt.Fprintf(&sb, "- `%s %s` in `%s:%d`", sym.Kind, sym.Name, paths[sym.FileID], sym.Line)
		if sym.Exported {
			sb.WriteString(" (exported)")
		}
		sb.WriteString("\n")
	}

	primary := symbols[0].FileID
	primaryPath := paths[primary]
	importers, imports := graph.Dependencies(rels, primary)

	if len(imports) > 0 {
		fmt.Fprintf(&sb, "\n**Imports of `%s`:**\n", primaryPath)
		for _, id := range imports {
			fmt.Fprintf(&sb, "- `%s`\n", paths[id])
		}
	}

	if len(importers) > 0 {
		fmt.Fprintf(&sb, "\n**Imported by (%d files):**\n", len(importers))
		for i, id := range importers {
			if i == maxDependents {
				fmt.Fprintf(&sb, "- ... (%d more)\n", len(importers)-maxDependents)
				break
			}
			fmt.Fprintf(&sb, "- `%s`\n", paths[id])
		}
	}

	for _, c := range graph.ComputeClusters(files, rels) {
		for _, member := range c.Members {
			if member == primary {
				fmt.Fprintf(&sb, "\n**Cluster:** %s (cohesion: %.2f), %d files\n",
					c.Name, c.CohesionScore, len(c.Members))
				break
			}
		}
	}
	return sb.String()
}
