package graph

import (
	"sort"
	"strings"
)

// ViewMode selects the granularity of a graph projection.
type ViewMode string

const (
	ViewFile   ViewMode = "file"
	ViewSymbol ViewMode = "symbol"
)

// Node and edge type names used in projections.
const (
	NodeTypeFile   = "file"
	NodeTypeSymbol = "symbol"

	// EdgeTypeContains links a container symbol to its member in symbol view.
	EdgeTypeContains = "contains"
)

// FilterState narrows a projection. Empty lists mean "everything".
type FilterState struct {
	ViewMode          ViewMode `json:"viewMode"`
	Languages         []string `json:"languages,omitempty"`
	NodeTypes         []string `json:"nodeTypes,omitempty"`
	RelationshipTypes []string `json:"relationshipTypes,omitempty"`
	SymbolKinds       []string `json:"symbolKinds,omitempty"`
	Clusters          []string `json:"clusters,omitempty"`
	SearchQuery       string   `json:"searchQuery,omitempty"`
}

// GraphNode is one node of a projection: a file or a symbol.
type GraphNode struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	Language        string `json:"language,omitempty"`
	SymbolKind      string `json:"symbolKind,omitempty"`
	Path            string `json:"path,omitempty"`
	Line            int    `json:"line,omitempty"`
	LineCount       int    `json:"lineCount,omitempty"`
	Exported        bool   `json:"isExported"`
	ConnectionCount int    `json:"connectionCount"`
	Cluster         string `json:"cluster,omitempty"`
	State           string `json:"state"`
}

// GraphEdge is one edge of a projection.
type GraphEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// GraphData is the read-time shape consumed by a visualizer.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// allowed reports whether v passes a filter list; an empty list allows all.
func allowed(list []string, v string) bool {
	return len(list) == 0 || contains(list, v)
}

// BuildView projects analysis output into graph form.
//
// File view shows visible (non-hidden) files and the relationships between
// them. Symbol view shows the symbols of those files with containment edges
// from parent to member. Language, cluster and search filters select files
// (search matches file or symbol names, case-insensitively); symbol-kind
// filters apply to symbol nodes; relationship-type filters apply to edges.
func BuildView(files []File, symbols []Symbol, rels []Relationship, filter FilterState) GraphData {
	mode := filter.ViewMode
	if mode == "" {
		mode = ViewFile
	}
	query := strings.ToLower(strings.TrimSpace(filter.SearchQuery))

	clusterOf := ClusterOf(ComputeClusters(files, rels))
	counts := make(map[string]int)
	for _, r := range rels {
		counts[r.SourceID]++
		counts[r.TargetID]++
	}

	visible := make(map[string]File)
	for _, f := range files {
		if f.Hidden || !allowed(filter.Languages, string(f.Language)) {
			continue
		}
		if len(filter.Clusters) > 0 && !contains(filter.Clusters, clusterOf[f.ID]) {
			continue
		}
		visible[f.ID] = f
	}

	data := GraphData{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	switch mode {
	case ViewSymbol:
		if !allowed(filter.NodeTypes, NodeTypeSymbol) {
			return data
		}
		childCount := make(map[string]int)
		for _, s := range symbols {
			if s.ParentID != "" {
				childCount[s.ParentID]++
				childCount[s.ID]++
			}
		}
		kept := make(map[string]bool)
		for _, s := range symbols {
			f, ok := visible[s.FileID]
			if !ok || !allowed(filter.SymbolKinds, string(s.Kind)) {
				continue
			}
			if query != "" && !strings.Contains(strings.ToLower(s.Name), query) {
				continue
			}
			kept[s.ID] = true
			data.Nodes = append(data.Nodes, GraphNode{
				ID:              s.ID,
				Name:            s.Name,
				Type:            NodeTypeSymbol,
				Language:        string(f.Language),
				SymbolKind:      string(s.Kind),
				Path:            f.Path,
				Line:            s.Line,
				Exported:        s.Exported,
				ConnectionCount: childCount[s.ID],
				Cluster:         clusterOf[f.ID],
				State:           "default",
			})
		}
		if !allowed(filter.RelationshipTypes, EdgeTypeContains) {
			return data
		}
		for _, s := range symbols {
			if s.ParentID != "" && kept[s.ID] && kept[s.ParentID] {
				data.Edges = append(data.Edges, GraphEdge{
					ID:     s.ParentID + "->" + s.ID,
					Source: s.ParentID,
					Target: s.ID,
					Type:   EdgeTypeContains,
				})
			}
		}

	default:
		if !allowed(filter.NodeTypes, NodeTypeFile) {
			return data
		}
		var matchedBySymbol map[string]bool
		if query != "" {
			matchedBySymbol = make(map[string]bool)
			for _, s := range symbols {
				if strings.Contains(strings.ToLower(s.Name), query) {
					matchedBySymbol[s.FileID] = true
				}
			}
		}
		kept := make(map[string]bool)
		for _, f := range files {
			if _, ok := visible[f.ID]; !ok {
				continue
			}
			if query != "" && !strings.Contains(strings.ToLower(f.Name), query) &&
				!strings.Contains(strings.ToLower(f.Path), query) && !matchedBySymbol[f.ID] {
				continue
			}
			kept[f.ID] = true
			data.Nodes = append(data.Nodes, GraphNode{
				ID:              f.ID,
				Name:            f.Name,
				Type:            NodeTypeFile,
				Language:        string(f.Language),
				Path:            f.Path,
				LineCount:       f.LineCount,
				Exported:        true,
				ConnectionCount: counts[f.ID],
				Cluster:         clusterOf[f.ID],
				State:           "default",
			})
		}
		for _, r := range rels {
			if !kept[r.SourceID] || !kept[r.TargetID] || !allowed(filter.RelationshipTypes, string(r.Kind)) {
				continue
			}
			data.Edges = append(data.Edges, GraphEdge{
				ID:     r.ID,
				Source: r.SourceID,
				Target: r.TargetID,
				Type:   string(r.Kind),
			})
		}
	}
	return data
}

// Dependencies returns, for a file id, the files it imports (outgoing) and
// the files importing it (incoming), both sorted.
func Dependencies(rels []Relationship, fileID string) (incoming, outgoing []string) {
	for _, r := range rels {
		if r.TargetID == fileID {
			incoming = append(incoming, r.SourceID)
		}
		if r.SourceID == fileID {
			outgoing = append(outgoing, r.TargetID)
		}
	}
	sort.Strings(incoming)
	sort.Strings(outgoing)
	return incoming, outgoing
}

// TransitiveImporters walks import relationships backwards from fileID up
// to maxDepth hops and returns every file id that reaches it, sorted.
func TransitiveImporters(rels []Relationship, fileID string, maxDepth int) []string {
	if maxDepth <= 0 {
		maxDepth = 1
	}
	reverse := make(map[string][]string)
	for _, r := range rels {
		if r.Kind == RelationshipImports {
			reverse[r.TargetID] = append(reverse[r.TargetID], r.SourceID)
		}
	}

	seen := map[string]bool{fileID: true}
	frontier := []string{fileID}
	var out []string
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, src := range reverse[id] {
				if seen[src] {
					continue
				}
				seen[src] = true
				out = append(out, src)
				next = append(next, src)
			}
		}
		frontier = next
	}
	sort.Strings(out)
	return out
}
