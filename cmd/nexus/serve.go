package main

import (
	"github.com/spf13/cobra"

	"github.com/dusk-indust/nexus/internal/mcptools"
	"github.com/dusk-indust/nexus/internal/orchestrator"
	"github.com/dusk-indust/nexus/internal/progressfeed"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Expose analysis and graph queries as MCP tools",
		Long: `Serve runs an MCP server over stdio, or over streamable HTTP with --http.
Tools default to the project in dir when called without a projectId. Over
HTTP, GET /events streams progress events as Server-Sent Events.`,
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
			svc, err := mcptools.NewAnalysisService(runner, p.root, p.log)
			if err != nil {
				return err
			}
			server := mcptools.NewAnalysisMCPServer(svc)

			if httpAddr != "" {
				feed := progressfeed.NewHub()
				svc.OnProgress(feed.Publish)
				p.log.WithField("addr", httpAddr).Info("serving MCP over HTTP, progress at /events")
				return mcptools.RunHTTP(ctx, mcptools.NewHTTPHandler(server, feed.Handler(svc.DefaultProject())), httpAddr)
			}
			p.log.Debug("serving MCP over stdio")
			return mcptools.RunStdio(ctx, server)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "listen address for streamable HTTP (e.g. :8080); stdio when empty")
	return cmd
}
