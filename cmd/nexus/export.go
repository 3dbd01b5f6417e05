package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/nexus/internal/export"
	"github.com/dusk-indust/nexus/internal/graph"
)

type exportFlags struct {
	Format    string
	View      string
	Output    string
	Languages []string
	Search    string
}

func newExportCmd(flags *globalFlags) *cobra.Command {
	var ef exportFlags

	cmd := &cobra.Command{
		Use:   "export [dir]",
		Short: "Write the stored graph as JSON or a Mermaid diagram",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch graph.ViewMode(ef.View) {
			case graph.ViewFile, graph.ViewSymbol:
			default:
				return fmt.Errorf("--view must be file or symbol, got %q", ef.View)
			}
			if ef.Format != "json" && ef.Format != "mermaid" {
				return fmt.Errorf("--format must be json or mermaid, got %q", ef.Format)
			}

			p, err := flags.openProject(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := p.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := export.LoadSnapshot(ctx, store, p.id)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			if len(snap.Files) == 0 {
				return fmt.Errorf("nothing stored for %s\nRun 'nexus analyze' first", p.root)
			}

			var w io.Writer = cmd.OutOrStdout()
			if ef.Output != "" {
				f, err := os.Create(ef.Output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			filter := graph.FilterState{
				ViewMode:    graph.ViewMode(ef.View),
				Languages:   ef.Languages,
				SearchQuery: ef.Search,
			}
			if ef.Format == "mermaid" {
				_, err = io.WriteString(w, export.GenerateMermaid(snap.View(filter)))
				return err
			}
			return export.WriteJSON(w, export.BuildExport(p.id, snap, filter, time.Now()))
		},
	}

	f := cmd.Flags()
	f.StringVar(&ef.Format, "format", "json", "output format: json or mermaid")
	f.StringVar(&ef.View, "view", string(graph.ViewFile), "graph view: file or symbol")
	f.StringVarP(&ef.Output, "out", "o", "", "write to this file instead of stdout")
	f.StringSliceVar(&ef.Languages, "language", nil, "only include these languages (repeatable)")
	f.StringVar(&ef.Search, "search", "", "case-insensitive match on paths and symbol names")
	return cmd
}
