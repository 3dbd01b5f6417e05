package mcptools

import (
	"github.com/dusk-indust/nexus/internal/graph"
	"github.com/dusk-indust/nexus/internal/orchestrator"
)

// --- MCP Tool Input/Output Types ---
// The MCP Go SDK auto-generates JSON schemas from these struct tags.
// Every tool takes an optional projectId; empty means the project the server
// was started for.

// AnalyzeProjectInput is the input for the analyze_project MCP tool.
type AnalyzeProjectInput struct {
	ProjectID string `json:"projectId,omitempty" jsonschema:"project id to store results under (default: the served project, or the path)"`
	Path      string `json:"path,omitempty" jsonschema:"absolute path of the directory to analyze (default: the served project root)"`
}

// AnalyzeProjectOutput is the result of the analyze_project MCP tool.
type AnalyzeProjectOutput struct {
	ProjectID    string              `json:"projectId"`
	Status       orchestrator.Status `json:"status"`
	Statistics   *graph.Stats        `json:"statistics,omitempty"`
	ErrorMessage string              `json:"errorMessage,omitempty"`
}

// ProjectInput identifies a project.
type ProjectInput struct {
	ProjectID string `json:"projectId,omitempty" jsonschema:"project id (default: the served project)"`
}

// CancelAnalysisOutput is the result of the cancel_analysis MCP tool.
type CancelAnalysisOutput struct {
	ProjectID string `json:"projectId"`
	WasActive bool   `json:"wasActive"`
}

// AnalysisStatusOutput is the result of the get_analysis_status MCP tool.
type AnalysisStatusOutput struct {
	ProjectID string                     `json:"projectId"`
	Running   bool                       `json:"running"`
	Progress  orchestrator.ProgressEvent `json:"progress"`
}

// GetGraphInput is the input for the get_graph MCP tool.
type GetGraphInput struct {
	ProjectID         string   `json:"projectId,omitempty" jsonschema:"project id (default: the served project)"`
	ViewMode          string   `json:"viewMode,omitempty" jsonschema:"file or symbol (default: file)"`
	Languages         []string `json:"languages,omitempty" jsonschema:"only include files in these languages"`
	NodeTypes         []string `json:"nodeTypes,omitempty" jsonschema:"only include these node types: file, symbol"`
	RelationshipTypes []string `json:"relationshipTypes,omitempty" jsonschema:"only include these edge types: imports, contains"`
	SymbolKinds       []string `json:"symbolKinds,omitempty" jsonschema:"symbol view only: include these symbol kinds"`
	Clusters          []string `json:"clusters,omitempty" jsonschema:"only include files in these clusters"`
	SearchQuery       string   `json:"searchQuery,omitempty" jsonschema:"case-insensitive match on file paths and symbol names"`
}

func (in GetGraphInput) filter() graph.FilterState {
	return graph.FilterState{
		ViewMode:          graph.ViewMode(in.ViewMode),
		Languages:         in.Languages,
		NodeTypes:         in.NodeTypes,
		RelationshipTypes: in.RelationshipTypes,
		SymbolKinds:       in.SymbolKinds,
		Clusters:          in.Clusters,
		SearchQuery:       in.SearchQuery,
	}
}

// GetGraphOutput is the result of the get_graph MCP tool.
type GetGraphOutput struct {
	Graph    graph.GraphData `json:"graph"`
	Clusters []graph.Cluster `json:"clusters"`
}

// QuerySymbolsInput is the input for the query_symbols MCP tool.
type QuerySymbolsInput struct {
	ProjectID string `json:"projectId,omitempty" jsonschema:"project id (default: the served project)"`
	Query     string `json:"query" jsonschema:"search query for symbol names (substring match)"`
	Kind      string `json:"kind,omitempty" jsonschema:"filter by symbol kind: function, method, class, struct, enum, interface, type, module, field, property, variable, constant"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 20)"`
}

// QuerySymbolsOutput is the result of the query_symbols MCP tool.
type QuerySymbolsOutput struct {
	Symbols []graph.Symbol `json:"symbols"`
	Total   int            `json:"total"`
}

// SetFileHiddenInput is the input for the set_file_hidden MCP tool.
type SetFileHiddenInput struct {
	FileID string `json:"fileId" jsonschema:"id of the file to hide or show"`
	Hidden bool   `json:"hidden" jsonschema:"true hides the file from file views"`
}

// SetFileHiddenOutput is the result of the set_file_hidden MCP tool.
type SetFileHiddenOutput struct {
	FileID string `json:"fileId"`
	Hidden bool   `json:"hidden"`
}

// GetDependenciesInput is the input for the get_dependencies MCP tool.
type GetDependenciesInput struct {
	ProjectID string `json:"projectId,omitempty" jsonschema:"project id (default: the served project)"`
	File      string `json:"file" jsonschema:"file id or project-relative path"`
	MaxDepth  int    `json:"maxDepth,omitempty" jsonschema:"how many import hops to follow for transitive importers (default: 5)"`
}

// FileRef names a file in dependency results.
type FileRef struct {
	ID       string         `json:"id"`
	Path     string         `json:"path"`
	Language graph.Language `json:"language"`
}

// GetDependenciesOutput is the result of the get_dependencies MCP tool.
type GetDependenciesOutput struct {
	File                FileRef   `json:"file"`
	Imports             []FileRef `json:"imports"`
	ImportedBy          []FileRef `json:"importedBy"`
	TransitiveImporters []FileRef `json:"transitiveImporters"`
}
