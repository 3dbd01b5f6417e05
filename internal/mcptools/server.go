package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients. The nexus binary sets it at startup.
var Version = "dev"

// NewAnalysisMCPServer creates an MCP server with the analysis tools registered.
func NewAnalysisMCPServer(svc *AnalysisService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "nexus",
		Version: Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_project",
		Description: "Analyze a project directory: discover source files honoring ignore rules, parse them with tree-sitter, extract symbols and imports, resolve imports into file relationships and store the result. Waits for the run to finish.",
	}, svc.AnalyzeProject)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cancel_analysis",
		Description: "Ask a running analysis to stop. Files already being parsed finish first; nothing from the cancelled run is stored.",
	}, svc.CancelAnalysis)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_analysis_status",
		Description: "Return the latest progress event of a project's analysis and whether a run is in flight.",
	}, svc.AnalysisStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_graph",
		Description: "Return the stored graph of a project as nodes and edges, in file view (files and import edges) or symbol view (symbols and containment edges), with optional filters.",
	}, svc.GetGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_symbols",
		Description: "Search for symbols (functions, classes, types, etc.) by name substring match. Optionally filter by symbol kind and limit results.",
	}, svc.QuerySymbols)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_file_hidden",
		Description: "Hide or show a file in file views.",
	}, svc.SetFileHidden)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dependencies",
		Description: "List the files a file imports, the files importing it, and every file that reaches it transitively through imports.",
	}, svc.GetDependencies)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// NewHTTPHandler serves the MCP tools over streamable HTTP. When events is
// non-nil it is mounted at /events for progress streaming.
func NewHTTPHandler(server *mcp.Server, events http.Handler) http.Handler {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)
	if events == nil {
		return handler
	}
	mux := http.NewServeMux()
	mux.Handle("/events", events)
	mux.Handle("/", handler)
	return mux
}

// RunHTTP serves handler on addr until the context is cancelled.
func RunHTTP(ctx context.Context, handler http.Handler, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
