package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/nexus/internal/graph"
)

// GenerateMermaid produces a Mermaid graph TD diagram from a projection.
// Nodes are grouped into subgraphs by cluster; edges become arrows, with
// containment edges drawn dotted.
func GenerateMermaid(data graph.GraphData) string {
	// Build node → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(key string) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[key] = id
		return id
	}

	byCluster := make(map[string][]graph.GraphNode)
	var clusterNames []string
	var loose []graph.GraphNode
	for _, n := range data.Nodes {
		if n.Cluster == "" {
			loose = append(loose, n)
			continue
		}
		if _, ok := byCluster[n.Cluster]; !ok {
			clusterNames = append(clusterNames, n.Cluster)
		}
		byCluster[n.Cluster] = append(byCluster[n.Cluster], n)
	}
	sort.Strings(clusterNames)

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, name := range clusterNames {
		sb.WriteString(fmt.Sprintf("  subgraph %s[\"%.40s\"]\n", getID("cluster:"+name), escapeLabel(name)))
		for _, n := range byCluster[name] {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", getID(n.ID), nodeLabel(n)))
		}
		sb.WriteString("  end\n")
	}
	for _, n := range loose {
		sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", getID(n.ID), nodeLabel(n)))
	}

	for _, e := range data.Edges {
		arrow := "-->"
		if e.Type == graph.EdgeTypeContains {
			arrow = "-.->"
		}
		sb.WriteString(fmt.Sprintf("  %s %s %s\n", getID(e.Source), arrow, getID(e.Target)))
	}

	return sb.String()
}

func nodeLabel(n graph.GraphNode) string {
	if n.Type == graph.NodeTypeSymbol {
		return escapeLabel(n.SymbolKind + " " + n.Name)
	}
	return escapeLabel(shortPath(n.Path))
}

// escapeLabel makes text safe inside a quoted Mermaid label.
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

// shortPath returns the last 2 path segments for readability.
func shortPath(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) <= 2 {
		return path
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
