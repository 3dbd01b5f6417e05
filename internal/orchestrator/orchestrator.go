// Package orchestrator drives one analysis run: discovery, parallel
// parse/extract, and relationship resolution, reporting progress as it goes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dusk-indust/nexus/internal/graph"
)

// ErrCancelled is the outcome of a run stopped by Cancel (or by its context).
// It is neither success nor failure; check for it with errors.Is.
var ErrCancelled = errors.New("analysis cancelled")

// ErrAnalysisInProgress is returned when a project already has a run in flight.
var ErrAnalysisInProgress = errors.New("analysis already in progress")

// Result is the output of a successful run.
type Result struct {
	Files         []graph.File
	Symbols       []graph.Symbol
	Relationships []graph.Relationship
}

// Stats summarises a result.
func (r *Result) Stats() *graph.Stats {
	return &graph.Stats{
		TotalFiles:         len(r.Files),
		TotalSymbols:       len(r.Symbols),
		TotalRelationships: len(r.Relationships),
	}
}

// Analyzer runs analysis over a project root.
type Analyzer interface {
	// Analyze runs one analysis. It never emits a complete event; that is
	// the caller's job once results are stored.
	Analyze(ctx context.Context, projectID, root string, sink ProgressSink) (*Result, error)

	// Cancel asks an in-flight Analyze to stop. Safe with no run in flight.
	Cancel()
}

// ProjectIDForRoot derives a stable project id from a root directory: its
// cleaned absolute path in slash form.
func ProjectIDForRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve project root: %w", err)
	}
	return filepath.ToSlash(abs), nil
}
