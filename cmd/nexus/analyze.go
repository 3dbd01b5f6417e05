package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/nexus/internal/orchestrator"
)

func newAnalyzeCmd(flags *globalFlags) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "analyze [dir]",
		Short: "Analyze a project and store its files, symbols and relationships",
		Long: `Analyze discovers the project's source files honoring .gitignore and .ignore
files, parses every parseable file, resolves imports into file relationships
and replaces whatever was stored for the project before. Ctrl-C cancels the
run and leaves the previous data cleared.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			runner := orchestrator.NewRunner(store, p.runnerOptions())

			reporter := orchestrator.NewProgressReporter()
			done := make(chan struct{})
			go func() {
				defer close(done)
				renderProgress(cmd.ErrOrStderr(), reporter.Subscribe(), plain)
			}()

			start := time.Now()
			stats, err := runner.Run(ctx, p.id, p.root, reporter.Sink())
			reporter.Close()
			<-done

			if errors.Is(err, orchestrator.ErrCancelled) {
				return fmt.Errorf("analysis of %s cancelled", p.root)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project:       %s\n", p.root)
			fmt.Fprintf(out, "Files:         %d\n", stats.TotalFiles)
			fmt.Fprintf(out, "Symbols:       %d\n", stats.TotalSymbols)
			fmt.Fprintf(out, "Relationships: %d\n", stats.TotalRelationships)
			fmt.Fprintf(out, "Elapsed:       %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print one status line per event instead of a progress bar")
	return cmd
}

// renderProgress draws events until the channel closes. The bar tracks the
// parse phase; status lines cover the rest.
func renderProgress(w io.Writer, events <-chan orchestrator.ProgressEvent, plain bool) {
	var bar *progressbar.ProgressBar
	for ev := range events {
		if plain {
			fmt.Fprintln(w, orchestrator.FormatProgress(ev))
			continue
		}

		switch {
		case ev.Status.Terminal():
			if bar != nil {
				bar.Finish()
				bar = nil
			}
			fmt.Fprintln(w, orchestrator.FormatProgress(ev))
		case ev.Resolving():
			if bar != nil {
				bar.Finish()
				bar = nil
			}
			fmt.Fprintln(w, orchestrator.FormatProgress(ev))
		case ev.TotalFiles > 0 && ev.CurrentFile == "":
			bar = progressbar.NewOptions(ev.TotalFiles,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription("Parsing files"),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("files/s"),
				progressbar.OptionThrottle(65*time.Millisecond),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(w)
				}),
			)
		case bar != nil && ev.FilesProcessed > 0:
			bar.Set(ev.FilesProcessed)
		}
	}
	if bar != nil {
		bar.Finish()
	}
}
