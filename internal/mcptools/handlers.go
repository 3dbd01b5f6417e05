package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/nexus/internal/export"
	"github.com/dusk-indust/nexus/internal/graph"
	"github.com/dusk-indust/nexus/internal/logging"
	"github.com/dusk-indust/nexus/internal/orchestrator"
)

const (
	defaultSymbolLimit = 20
	defaultMaxDepth    = 5
)

// AnalysisService holds the runner and store used by MCP tool handlers.
type AnalysisService struct {
	runner *orchestrator.Runner
	store  graph.Store
	log    logrus.FieldLogger

	defaultProject string
	defaultRoot    string

	mu        sync.Mutex
	progress  map[string]orchestrator.ProgressEvent // last event per project
	observers []func(projectID string, ev orchestrator.ProgressEvent)
}

// NewAnalysisService creates a service over runner. root, when non-empty, is
// the project tools fall back to when called without a projectId or path.
func NewAnalysisService(runner *orchestrator.Runner, root string, log logrus.FieldLogger) (*AnalysisService, error) {
	if log == nil {
		log = logging.Discard()
	}
	s := &AnalysisService{
		runner:   runner,
		store:    runner.Store(),
		log:      log,
		progress: make(map[string]orchestrator.ProgressEvent),
	}
	if root != "" {
		id, err := orchestrator.ProjectIDForRoot(root)
		if err != nil {
			return nil, err
		}
		s.defaultProject, s.defaultRoot = id, root
	}
	return s, nil
}

func (s *AnalysisService) projectID(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	if s.defaultProject == "" {
		return "", errors.New("projectId is required")
	}
	return s.defaultProject, nil
}

// OnProgress registers fn to receive every progress event of every run.
// Register observers before serving; fn must not block.
func (s *AnalysisService) OnProgress(fn func(projectID string, ev orchestrator.ProgressEvent)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// DefaultProject returns the project tools fall back to, or "".
func (s *AnalysisService) DefaultProject() string { return s.defaultProject }

func (s *AnalysisService) record(projectID string) orchestrator.ProgressSink {
	return func(ev orchestrator.ProgressEvent) {
		s.mu.Lock()
		s.progress[projectID] = ev
		observers := s.observers
		s.mu.Unlock()
		for _, fn := range observers {
			fn(projectID, ev)
		}
	}
}

// AnalyzeProject runs a full analysis and waits for it to finish. Failures
// and cancellation are reported in the output status, not as tool errors.
func (s *AnalysisService) AnalyzeProject(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeProjectInput,
) (*mcp.CallToolResult, AnalyzeProjectOutput, error) {
	root := input.Path
	if root == "" {
		root = s.defaultRoot
	}
	if root == "" {
		return nil, AnalyzeProjectOutput{}, fmt.Errorf("path is required")
	}

	projectID := input.ProjectID
	if projectID == "" {
		id, err := orchestrator.ProjectIDForRoot(root)
		if err != nil {
			return nil, AnalyzeProjectOutput{}, err
		}
		projectID = id
	}

	stats, err := s.runner.Run(ctx, projectID, root, s.record(projectID))
	out := AnalyzeProjectOutput{ProjectID: projectID}
	switch {
	case err == nil:
		out.Status = orchestrator.StatusComplete
		out.Statistics = stats
	case errors.Is(err, orchestrator.ErrCancelled):
		out.Status = orchestrator.StatusCancelled
	case errors.Is(err, orchestrator.ErrAnalysisInProgress):
		return nil, AnalyzeProjectOutput{}, err
	default:
		out.Status = orchestrator.StatusError
		out.ErrorMessage = err.Error()
	}
	return nil, out, nil
}

// CancelAnalysis asks a running analysis to stop. It succeeds when nothing
// is running.
func (s *AnalysisService) CancelAnalysis(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ProjectInput,
) (*mcp.CallToolResult, CancelAnalysisOutput, error) {
	projectID, err := s.projectID(input.ProjectID)
	if err != nil {
		return nil, CancelAnalysisOutput{}, err
	}
	active := s.runner.Running(projectID)
	s.runner.Cancel(projectID)
	return nil, CancelAnalysisOutput{ProjectID: projectID, WasActive: active}, nil
}

// AnalysisStatus reports the latest progress event of a project.
func (s *AnalysisService) AnalysisStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ProjectInput,
) (*mcp.CallToolResult, AnalysisStatusOutput, error) {
	projectID, err := s.projectID(input.ProjectID)
	if err != nil {
		return nil, AnalysisStatusOutput{}, err
	}
	s.mu.Lock()
	ev, ok := s.progress[projectID]
	s.mu.Unlock()
	if !ok {
		ev = orchestrator.IdleEvent()
	}
	return nil, AnalysisStatusOutput{
		ProjectID: projectID,
		Running:   s.runner.Running(projectID),
		Progress:  ev,
	}, nil
}

// GetGraph returns the filtered graph projection of a stored project.
func (s *AnalysisService) GetGraph(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetGraphInput,
) (*mcp.CallToolResult, GetGraphOutput, error) {
	projectID, err := s.projectID(input.ProjectID)
	if err != nil {
		return nil, GetGraphOutput{}, err
	}
	switch graph.ViewMode(input.ViewMode) {
	case "", graph.ViewFile, graph.ViewSymbol:
	default:
		return nil, GetGraphOutput{}, fmt.Errorf("viewMode must be file or symbol, got %q", input.ViewMode)
	}

	snap, err := export.LoadSnapshot(ctx, s.store, projectID)
	if err != nil {
		return nil, GetGraphOutput{}, err
	}
	clusters := graph.ComputeClusters(snap.Files, snap.Relationships)
	if clusters == nil {
		clusters = []graph.Cluster{}
	}
	return nil, GetGraphOutput{Graph: snap.View(input.filter()), Clusters: clusters}, nil
}

// QuerySymbols searches for symbols by name substring match.
func (s *AnalysisService) QuerySymbols(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QuerySymbolsInput,
) (*mcp.CallToolResult, QuerySymbolsOutput, error) {
	projectID, err := s.projectID(input.ProjectID)
	if err != nil {
		return nil, QuerySymbolsOutput{}, err
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSymbolLimit
	}

	// Query without a limit when filtering by kind so the limit applies to
	// the filtered result.
	queryLimit := limit
	if input.Kind != "" {
		queryLimit = 0
	}
	symbols, err := s.store.QuerySymbols(ctx, projectID, input.Query, queryLimit)
	if err != nil {
		return nil, QuerySymbolsOutput{}, fmt.Errorf("query symbols: %w", err)
	}

	if input.Kind != "" {
		kind := graph.SymbolKind(strings.ToLower(input.Kind))
		filtered := symbols[:0]
		for _, sym := range symbols {
			if sym.Kind == kind {
				filtered = append(filtered, sym)
			}
		}
		symbols = filtered
		if len(symbols) > limit {
			symbols = symbols[:limit]
		}
	}
	if symbols == nil {
		symbols = []graph.Symbol{}
	}

	return nil, QuerySymbolsOutput{
		Symbols: symbols,
		Total:   len(symbols),
	}, nil
}

// SetFileHidden toggles a file's visibility in file views.
func (s *AnalysisService) SetFileHidden(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SetFileHiddenInput,
) (*mcp.CallToolResult, SetFileHiddenOutput, error) {
	if input.FileID == "" {
		return nil, SetFileHiddenOutput{}, fmt.Errorf("fileId is required")
	}
	if err := s.store.SetFileHidden(ctx, input.FileID, input.Hidden); err != nil {
		return nil, SetFileHiddenOutput{}, fmt.Errorf("set file hidden: %w", err)
	}
	return nil, SetFileHiddenOutput{FileID: input.FileID, Hidden: input.Hidden}, nil
}

// GetDependencies lists what a file imports, what imports it directly, and
// every file that reaches it within maxDepth import hops.
func (s *AnalysisService) GetDependencies(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDependenciesInput,
) (*mcp.CallToolResult, GetDependenciesOutput, error) {
	projectID, err := s.projectID(input.ProjectID)
	if err != nil {
		return nil, GetDependenciesOutput{}, err
	}
	if input.File == "" {
		return nil, GetDependenciesOutput{}, fmt.Errorf("file is required")
	}
	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}

	files, err := s.store.Files(ctx, projectID)
	if err != nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("load files: %w", err)
	}
	rels, err := s.store.Relationships(ctx, projectID)
	if err != nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("load relationships: %w", err)
	}

	byID := make(map[string]graph.File, len(files))
	var target *graph.File
	for i, f := range files {
		byID[f.ID] = f
		if f.ID == input.File || f.Path == input.File {
			target = &files[i]
		}
	}
	if target == nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("file %q: %w", input.File, graph.ErrNotFound)
	}

	incoming, outgoing := graph.Dependencies(rels, target.ID)
	transitive, err := s.importers(ctx, rels, target.ID, maxDepth)
	if err != nil {
		return nil, GetDependenciesOutput{}, err
	}

	return nil, GetDependenciesOutput{
		File:                ref(*target),
		Imports:             refs(byID, outgoing),
		ImportedBy:          refs(byID, incoming),
		TransitiveImporters: refs(byID, transitive),
	}, nil
}

// importers prefers the store's native traversal and falls back to walking
// the loaded relationships.
func (s *AnalysisService) importers(ctx context.Context, rels []graph.Relationship, fileID string, maxDepth int) ([]string, error) {
	if finder, ok := s.store.(graph.ImporterFinder); ok {
		ids, err := finder.Importers(ctx, fileID, maxDepth)
		if err == nil {
			return ids, nil
		}
		if !errors.Is(err, errors.ErrUnsupported) {
			return nil, fmt.Errorf("importers: %w", err)
		}
		s.log.WithField("file", fileID).Debug("store cannot traverse imports, walking relationships")
	}
	return graph.TransitiveImporters(rels, fileID, maxDepth), nil
}

func ref(f graph.File) FileRef {
	return FileRef{ID: f.ID, Path: f.Path, Language: f.Language}
}

// refs maps ids to file references, skipping ids outside the project.
func refs(byID map[string]graph.File, ids []string) []FileRef {
	out := make([]FileRef, 0, len(ids))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			out = append(out, ref(f))
		}
	}
	return out
}
