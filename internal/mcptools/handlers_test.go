package mcptools

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/nexus/internal/graph"
	"github.com/dusk-indust/nexus/internal/orchestrator"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// fixtureAbsPath returns the absolute path to a test fixture directory.
// Tests run from internal/mcptools/, so fixtures live two levels up.
func fixtureAbsPath(t *testing.T, name string) string {
	t.Helper()
	abs, err := filepath.Abs(filepath.Join("../../testdata/fixtures", name))
	require.NoError(t, err)
	return abs
}

// newTestService creates a service over a fresh MemStore. root may be empty.
func newTestService(t *testing.T, store graph.Store, root string) *AnalysisService {
	t.Helper()
	runner := orchestrator.NewRunner(store, orchestrator.Options{Workers: 2, SkipGlobalIgnores: true})
	svc, err := NewAnalysisService(runner, root, nil)
	require.NoError(t, err)
	return svc
}

// seedDiamondGraph populates the store with a diamond dependency graph:
//
//	a -> b
//	a -> c
//	b -> d
//	c -> d
//
// File ids equal their paths.
func seedDiamondGraph(t *testing.T, store graph.Store, projectID string) {
	t.Helper()
	ctx := context.Background()

	for _, p := range []string{"a.go", "b.go", "c.go", "d.go"} {
		require.NoError(t, store.UpsertFile(ctx, graph.File{
			ID: p, ProjectID: projectID, Name: p, Path: p, Language: graph.LangGo,
		}))
	}
	require.NoError(t, store.InsertSymbols(ctx, []graph.Symbol{
		{ID: "s1", FileID: "a.go", Name: "HandleRequest", Kind: graph.SymbolKindFunction, Line: 1, Exported: true},
		{ID: "s2", FileID: "b.go", Name: "HandleResponse", Kind: graph.SymbolKindFunction, Line: 1, Exported: true},
		{ID: "s3", FileID: "c.go", Name: "Handler", Kind: graph.SymbolKindInterface, Line: 1, Exported: true},
		{ID: "s4", FileID: "d.go", Name: "validate", Kind: graph.SymbolKindFunction, Line: 1},
	}))
	require.NoError(t, store.InsertRelationships(ctx, []graph.Relationship{
		{ID: "r1", SourceID: "a.go", TargetID: "b.go", Kind: graph.RelationshipImports},
		{ID: "r2", SourceID: "a.go", TargetID: "c.go", Kind: graph.RelationshipImports},
		{ID: "r3", SourceID: "b.go", TargetID: "d.go", Kind: graph.RelationshipImports},
		{ID: "r4", SourceID: "c.go", TargetID: "d.go", Kind: graph.RelationshipImports},
	}))
}

func refPaths(refs []FileRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Path
	}
	return out
}

// ---------------------------------------------------------------------------
// TestAnalyzeProject
// ---------------------------------------------------------------------------

func TestAnalyzeProject(t *testing.T) {
	ctx := context.Background()

	t.Run("analyzes the served project", func(t *testing.T) {
		root := fixtureAbsPath(t, "mixed_project")
		svc := newTestService(t, graph.NewMemStore(), root)

		_, out, err := svc.AnalyzeProject(ctx, nil, AnalyzeProjectInput{})
		require.NoError(t, err)
		assert.Equal(t, orchestrator.StatusComplete, out.Status)
		assert.Equal(t, filepath.ToSlash(root), out.ProjectID)
		require.NotNil(t, out.Statistics)
		assert.Equal(t, 16, out.Statistics.TotalFiles)
		assert.Equal(t, 8, out.Statistics.TotalRelationships)

		_, status, err := svc.AnalysisStatus(ctx, nil, ProjectInput{})
		require.NoError(t, err)
		assert.False(t, status.Running)
		assert.Equal(t, orchestrator.StatusComplete, status.Progress.Status)
	})

	t.Run("explicit path and project id", func(t *testing.T) {
		store := graph.NewMemStore()
		svc := newTestService(t, store, "")

		_, out, err := svc.AnalyzeProject(ctx, nil, AnalyzeProjectInput{
			ProjectID: "go",
			Path:      fixtureAbsPath(t, "go_project"),
		})
		require.NoError(t, err)
		assert.Equal(t, "go", out.ProjectID)
		assert.Equal(t, 2, out.Statistics.TotalFiles)

		st, err := store.Stats(ctx, "go")
		require.NoError(t, err)
		assert.Equal(t, out.Statistics, st)
	})

	t.Run("failure is reported in the status", func(t *testing.T) {
		svc := newTestService(t, graph.NewMemStore(), "")

		_, out, err := svc.AnalyzeProject(ctx, nil, AnalyzeProjectInput{
			Path: "/tmp/this-path-does-not-exist-at-all-12345",
		})
		require.NoError(t, err)
		assert.Equal(t, orchestrator.StatusError, out.Status)
		assert.Contains(t, out.ErrorMessage, "this-path-does-not-exist")
		assert.Nil(t, out.Statistics)
	})

	t.Run("empty path without a served project returns error", func(t *testing.T) {
		svc := newTestService(t, graph.NewMemStore(), "")

		_, _, err := svc.AnalyzeProject(ctx, nil, AnalyzeProjectInput{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "path is required")
	})
}

// ---------------------------------------------------------------------------
// TestCancelAnalysis
// ---------------------------------------------------------------------------

func TestCancelAnalysis(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing running", func(t *testing.T) {
		svc := newTestService(t, graph.NewMemStore(), "")
		_, out, err := svc.CancelAnalysis(ctx, nil, ProjectInput{ProjectID: "p"})
		require.NoError(t, err)
		assert.False(t, out.WasActive)
	})

	t.Run("project id required without a served project", func(t *testing.T) {
		svc := newTestService(t, graph.NewMemStore(), "")
		_, _, err := svc.CancelAnalysis(ctx, nil, ProjectInput{})
		assert.ErrorContains(t, err, "projectId is required")
	})

	t.Run("status is idle before any run", func(t *testing.T) {
		svc := newTestService(t, graph.NewMemStore(), "")
		_, out, err := svc.AnalysisStatus(ctx, nil, ProjectInput{ProjectID: "p"})
		require.NoError(t, err)
		assert.Equal(t, orchestrator.IdleEvent(), out.Progress)
	})
}

// ---------------------------------------------------------------------------
// TestGetGraph
// ---------------------------------------------------------------------------

func TestGetGraph(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	seedDiamondGraph(t, store, "p")
	svc := newTestService(t, store, "")

	_, out, err := svc.GetGraph(ctx, nil, GetGraphInput{ProjectID: "p"})
	require.NoError(t, err)
	assert.Len(t, out.Graph.Nodes, 4)
	assert.Len(t, out.Graph.Edges, 4)
	require.Len(t, out.Clusters, 1)
	assert.Len(t, out.Clusters[0].Members, 4)

	_, out, err = svc.GetGraph(ctx, nil, GetGraphInput{ProjectID: "p", SearchQuery: "VALID"})
	require.NoError(t, err)
	require.Len(t, out.Graph.Nodes, 1, "matches d.go through its validate symbol")
	assert.Equal(t, "d.go", out.Graph.Nodes[0].Path)
	assert.Empty(t, out.Graph.Edges)

	_, out, err = svc.GetGraph(ctx, nil, GetGraphInput{ProjectID: "p", ViewMode: "symbol", SymbolKinds: []string{"function"}})
	require.NoError(t, err)
	assert.Len(t, out.Graph.Nodes, 3)

	_, _, err = svc.GetGraph(ctx, nil, GetGraphInput{ProjectID: "p", ViewMode: "tree"})
	assert.ErrorContains(t, err, "viewMode")
}

// ---------------------------------------------------------------------------
// TestQuerySymbols
// ---------------------------------------------------------------------------

func TestQuerySymbols(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	seedDiamondGraph(t, store, "p")
	svc := newTestService(t, store, "")

	tests := []struct {
		name  string
		input QuerySymbolsInput
		want  int
	}{
		{"substring", QuerySymbolsInput{ProjectID: "p", Query: "Handle"}, 3},
		{"case insensitive", QuerySymbolsInput{ProjectID: "p", Query: "handle"}, 3},
		{"kind filter", QuerySymbolsInput{ProjectID: "p", Query: "Handle", Kind: "Interface"}, 1},
		{"limit", QuerySymbolsInput{ProjectID: "p", Query: "Handle", Limit: 2}, 2},
		{"kind filter then limit", QuerySymbolsInput{ProjectID: "p", Query: "", Kind: "function", Limit: 2}, 2},
		{"no match", QuerySymbolsInput{ProjectID: "p", Query: "zzz"}, 0},
		{"other project", QuerySymbolsInput{ProjectID: "q", Query: "Handle"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := svc.QuerySymbols(ctx, nil, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Total)
			assert.Len(t, out.Symbols, tt.want)
			assert.NotNil(t, out.Symbols)
		})
	}
}

// ---------------------------------------------------------------------------
// TestSetFileHidden
// ---------------------------------------------------------------------------

func TestSetFileHidden(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemStore()
	seedDiamondGraph(t, store, "p")
	svc := newTestService(t, store, "")

	_, out, err := svc.SetFileHidden(ctx, nil, SetFileHiddenInput{FileID: "d.go", Hidden: true})
	require.NoError(t, err)
	assert.True(t, out.Hidden)

	_, g, err := svc.GetGraph(ctx, nil, GetGraphInput{ProjectID: "p"})
	require.NoError(t, err)
	assert.Len(t, g.Graph.Nodes, 3)
	assert.Len(t, g.Graph.Edges, 2)

	_, _, err = svc.SetFileHidden(ctx, nil, SetFileHiddenInput{FileID: "missing.go", Hidden: true})
	assert.ErrorIs(t, err, graph.ErrNotFound)

	_, _, err = svc.SetFileHidden(ctx, nil, SetFileHiddenInput{})
	assert.ErrorContains(t, err, "fileId is required")
}

// ---------------------------------------------------------------------------
// TestGetDependencies
// ---------------------------------------------------------------------------

// finderStore answers Importers natively, or reports it unsupported.
type finderStore struct {
	*graph.MemStore
	ids   []string
	err   error
	calls int
}

func (s *finderStore) Importers(_ context.Context, _ string, _ int) ([]string, error) {
	s.calls++
	return s.ids, s.err
}

func TestGetDependencies(t *testing.T) {
	ctx := context.Background()

	t.Run("walks relationships", func(t *testing.T) {
		store := graph.NewMemStore()
		seedDiamondGraph(t, store, "p")
		svc := newTestService(t, store, "")

		_, out, err := svc.GetDependencies(ctx, nil, GetDependenciesInput{ProjectID: "p", File: "d.go"})
		require.NoError(t, err)
		assert.Equal(t, "d.go", out.File.Path)
		assert.Empty(t, out.Imports)
		assert.NotNil(t, out.Imports)
		assert.Equal(t, []string{"b.go", "c.go"}, refPaths(out.ImportedBy))
		assert.Equal(t, []string{"a.go", "b.go", "c.go"}, refPaths(out.TransitiveImporters))

		_, out, err = svc.GetDependencies(ctx, nil, GetDependenciesInput{ProjectID: "p", File: "d.go", MaxDepth: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"b.go", "c.go"}, refPaths(out.TransitiveImporters))

		_, out, err = svc.GetDependencies(ctx, nil, GetDependenciesInput{ProjectID: "p", File: "a.go"})
		require.NoError(t, err)
		assert.Equal(t, []string{"b.go", "c.go"}, refPaths(out.Imports))
		assert.Empty(t, out.TransitiveImporters)
	})

	t.Run("prefers the store traversal", func(t *testing.T) {
		store := &finderStore{MemStore: graph.NewMemStore(), ids: []string{"a.go", "elsewhere"}}
		seedDiamondGraph(t, store, "p")
		svc := newTestService(t, store, "")

		_, out, err := svc.GetDependencies(ctx, nil, GetDependenciesInput{ProjectID: "p", File: "d.go"})
		require.NoError(t, err)
		assert.Equal(t, 1, store.calls)
		assert.Equal(t, []string{"a.go"}, refPaths(out.TransitiveImporters), "ids outside the project are dropped")
	})

	t.Run("falls back when unsupported", func(t *testing.T) {
		store := &finderStore{MemStore: graph.NewMemStore(), err: errors.ErrUnsupported}
		seedDiamondGraph(t, store, "p")
		svc := newTestService(t, store, "")

		_, out, err := svc.GetDependencies(ctx, nil, GetDependenciesInput{ProjectID: "p", File: "d.go"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a.go", "b.go", "c.go"}, refPaths(out.TransitiveImporters))
	})

	t.Run("store errors surface", func(t *testing.T) {
		store := &finderStore{MemStore: graph.NewMemStore(), err: errors.New("connection lost")}
		seedDiamondGraph(t, store, "p")
		svc := newTestService(t, store, "")

		_, _, err := svc.GetDependencies(ctx, nil, GetDependenciesInput{ProjectID: "p", File: "d.go"})
		assert.ErrorContains(t, err, "connection lost")
	})

	t.Run("unknown file", func(t *testing.T) {
		store := graph.NewMemStore()
		seedDiamondGraph(t, store, "p")
		svc := newTestService(t, store, "")

		_, _, err := svc.GetDependencies(ctx, nil, GetDependenciesInput{ProjectID: "p", File: "z.go"})
		assert.ErrorIs(t, err, graph.ErrNotFound)

		_, _, err = svc.GetDependencies(ctx, nil, GetDependenciesInput{ProjectID: "p"})
		assert.ErrorContains(t, err, "file is required")
	})
}

// ---------------------------------------------------------------------------
// TestOnProgress
// ---------------------------------------------------------------------------

func TestOnProgress(t *testing.T) {
	root := fixtureAbsPath(t, "go_project")
	svc := newTestService(t, graph.NewMemStore(), root)

	var projects []string
	var events []orchestrator.ProgressEvent
	svc.OnProgress(func(projectID string, ev orchestrator.ProgressEvent) {
		projects = append(projects, projectID)
		events = append(events, ev)
	})

	_, out, err := svc.AnalyzeProject(context.Background(), nil, AnalyzeProjectInput{})
	require.NoError(t, err)

	require.NotEmpty(t, events)
	assert.Equal(t, orchestrator.StatusComplete, events[len(events)-1].Status)
	for _, p := range projects {
		assert.Equal(t, out.ProjectID, p)
	}
	assert.Equal(t, svc.DefaultProject(), out.ProjectID)
}
