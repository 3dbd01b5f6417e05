package graph

import (
	"sort"
	"strings"
)

// Cluster is a connected group of files in the undirected import graph.
type Cluster struct {
	Name          string   `json:"name"` // longest common directory of the members
	CohesionScore float64  `json:"cohesionScore"`
	Members       []string `json:"members"` // file ids
}

// ComputeClusters finds connected components in the file-to-file graph
// ("imports" relationships only).
//
// Algorithm:
//  1. Build an undirected adjacency list from import relationships among the given files.
//  2. Find connected components via BFS, visiting files in path order.
//  3. Every component with >= 2 files becomes a cluster with a cohesion score.
func ComputeClusters(files []File, rels []Relationship) []Cluster {
	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	paths := make(map[string]string, len(sorted))
	for _, f := range sorted {
		paths[f.ID] = f.Path
	}
	adj := buildAdjacency(sorted, rels)

	visited := make(map[string]bool, len(sorted))
	var clusters []Cluster
	for _, f := range sorted {
		if visited[f.ID] {
			continue
		}
		component := bfsComponent(f.ID, adj, visited)
		if len(component) < 2 {
			continue
		}
		memberPaths := make([]string, len(component))
		for i, id := range component {
			memberPaths[i] = paths[id]
		}
		sort.Strings(memberPaths)
		clusters = append(clusters, Cluster{
			Name:          clusterName(memberPaths),
			CohesionScore: computeCohesion(component, adj),
			Members:       component,
		})
	}
	return clusters
}

// ClusterOf maps each clustered file id to its cluster name.
func ClusterOf(clusters []Cluster) map[string]string {
	out := make(map[string]string)
	for _, c := range clusters {
		for _, m := range c.Members {
			out[m] = c.Name
		}
	}
	return out
}

// buildAdjacency constructs a bidirectional adjacency list from import
// relationships in a single pass.
func buildAdjacency(files []File, rels []Relationship) map[string]map[string]bool {
	adj := make(map[string]map[string]bool, len(files))
	for _, f := range files {
		adj[f.ID] = make(map[string]bool)
	}
	for _, r := range rels {
		if r.Kind != RelationshipImports {
			continue
		}
		if adj[r.SourceID] != nil && adj[r.TargetID] != nil {
			adj[r.SourceID][r.TargetID] = true
			adj[r.TargetID][r.SourceID] = true
		}
	}
	return adj
}

// bfsComponent performs BFS from start on the adjacency list and returns
// all reachable nodes, sorted. It marks visited nodes as it goes.
func bfsComponent(start string, adj map[string]map[string]bool, visited map[string]bool) []string {
	var component []string
	queue := []string{start}
	visited[start] = true

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		component = append(component, node)
		for neighbor := range adj[node] {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}
	sort.Strings(component)
	return component
}

// computeCohesion is the share of a component's edges whose endpoints are
// both members. A connected component has no external neighbours in its
// own adjacency, so this is 1 unless the component is a single node.
func computeCohesion(component []string, adj map[string]map[string]bool) float64 {
	memberSet := make(map[string]bool, len(component))
	for _, m := range component {
		memberSet[m] = true
	}

	internal, external := 0, 0
	for _, m := range component {
		for neighbor := range adj[m] {
			if memberSet[neighbor] {
				if m < neighbor {
					internal++
				}
			} else {
				external++
			}
		}
	}
	if internal+external == 0 {
		return 0
	}
	return float64(internal) / float64(internal+external)
}

// clusterName is the longest common directory prefix of sorted paths, or
// the first path's directory when they share none.
func clusterName(paths []string) string {
	if prefix := longestCommonPrefix(paths); prefix != "" {
		return prefix
	}
	if i := strings.LastIndexByte(paths[0], '/'); i >= 0 {
		return paths[0][:i+1]
	}
	return "./"
}

// longestCommonPrefix finds the longest common path prefix among a set of
// file paths. Returns an empty string if no common prefix is found.
func longestCommonPrefix(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	if len(paths) == 1 {
		return paths[0]
	}

	prefix := paths[0]
	for _, p := range paths[1:] {
		for !strings.HasPrefix(p, prefix) {
			trimmed := strings.TrimRight(prefix, "/")
			idx := strings.LastIndex(trimmed, "/")
			if idx < 0 {
				return ""
			}
			prefix = trimmed[:idx+1]
		}
	}

	// Ensure prefix ends at a directory boundary.
	if !strings.HasSuffix(prefix, "/") {
		idx := strings.LastIndex(prefix, "/")
		if idx < 0 {
			return ""
		}
		prefix = prefix[:idx+1]
	}
	return prefix
}
