package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/nexus/internal/graph"
)

// Snapshot is a project's stored analysis output.
type Snapshot struct {
	Files         []graph.File
	Symbols       []graph.Symbol
	Relationships []graph.Relationship
}

// LoadSnapshot reads everything stored for projectID.
func LoadSnapshot(ctx context.Context, store graph.Store, projectID string) (*Snapshot, error) {
	files, err := store.Files(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load files: %w", err)
	}
	symbols, err := store.Symbols(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load symbols: %w", err)
	}
	rels, err := store.Relationships(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load relationships: %w", err)
	}
	return &Snapshot{Files: files, Symbols: symbols, Relationships: rels}, nil
}

// View projects the snapshot through filter.
func (s *Snapshot) View(filter graph.FilterState) graph.GraphData {
	return graph.BuildView(s.Files, s.Symbols, s.Relationships, filter)
}

// GraphExport is the top-level JSON export structure.
type GraphExport struct {
	Project    string            `json:"project"`
	ExportedAt string            `json:"exportedAt"`
	Filter     graph.FilterState `json:"filter"`
	Stats      graph.Stats       `json:"statistics"`
	Clusters   []graph.Cluster   `json:"clusters"`
	Graph      graph.GraphData   `json:"graph"`
}

// BuildExport assembles an export of the snapshot's filtered view.
func BuildExport(projectID string, snap *Snapshot, filter graph.FilterState, now time.Time) *GraphExport {
	if filter.ViewMode == "" {
		filter.ViewMode = graph.ViewFile
	}
	clusters := graph.ComputeClusters(snap.Files, snap.Relationships)
	if clusters == nil {
		clusters = []graph.Cluster{}
	}
	return &GraphExport{
		Project:    projectID,
		ExportedAt: now.UTC().Format(time.RFC3339),
		Filter:     filter,
		Stats: graph.Stats{
			TotalFiles:         len(snap.Files),
			TotalSymbols:       len(snap.Symbols),
			TotalRelationships: len(snap.Relationships),
		},
		Clusters: clusters,
		Graph:    snap.View(filter),
	}
}

// WriteJSON writes exp as indented JSON.
func WriteJSON(w io.Writer, exp *GraphExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exp); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}
