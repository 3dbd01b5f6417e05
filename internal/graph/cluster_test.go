package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// importRels builds "imports" relationships from source/target path pairs.
func importRels(pairs ...[2]string) []Relationship {
	rels := make([]Relationship, len(pairs))
	for i, p := range pairs {
		rels[i] = Relationship{ID: p[0] + "->" + p[1], SourceID: p[0], TargetID: p[1], Kind: RelationshipImports}
	}
	return rels
}

func TestComputeClusters_NoEdges(t *testing.T) {
	// Each file is a singleton component (size < 2), so zero clusters.
	files := projectFiles("src/pkg/a.go", "src/pkg/b.go", "src/pkg/c.go")
	assert.Empty(t, ComputeClusters(files, nil))
}

func TestComputeClusters_OnePair(t *testing.T) {
	// Only A→B is connected; C is a singleton and gets skipped.
	files := projectFiles("src/pkg/a.go", "src/pkg/b.go", "src/pkg/c.go")
	rels := importRels([2]string{"src/pkg/a.go", "src/pkg/b.go"})

	clusters := ComputeClusters(files, rels)
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"src/pkg/a.go", "src/pkg/b.go"}, clusters[0].Members)
	assert.Equal(t, "src/pkg/", clusters[0].Name)
}

func TestComputeClusters_TwoGroups(t *testing.T) {
	files := projectFiles(
		"src/beta/x.go", "src/beta/y.go", "src/beta/z.go",
		"src/alpha/a.go", "src/alpha/b.go", "src/alpha/c.go",
	)
	rels := importRels(
		[2]string{"src/alpha/a.go", "src/alpha/b.go"},
		[2]string{"src/alpha/a.go", "src/alpha/c.go"},
		[2]string{"src/alpha/b.go", "src/alpha/c.go"},
		[2]string{"src/beta/x.go", "src/beta/y.go"},
		[2]string{"src/beta/y.go", "src/beta/z.go"},
	)

	clusters := ComputeClusters(files, rels)
	require.Len(t, clusters, 2)

	// Components come out in path order regardless of input order.
	assert.Equal(t, "src/alpha/", clusters[0].Name)
	assert.Equal(t, []string{"src/alpha/a.go", "src/alpha/b.go", "src/alpha/c.go"}, clusters[0].Members)
	assert.Equal(t, "src/beta/", clusters[1].Name)
	assert.Equal(t, []string{"src/beta/x.go", "src/beta/y.go", "src/beta/z.go"}, clusters[1].Members)
}

func TestComputeClusters_CohesionScore(t *testing.T) {
	// BFS pulls every neighbour into the component, so a component never has
	// external edges and its cohesion is 1.
	files := projectFiles("src/alpha/a.go", "src/alpha/b.go", "src/alpha/c.go", "src/beta/d.go", "src/beta/e.go")
	rels := importRels(
		[2]string{"src/alpha/a.go", "src/alpha/b.go"},
		[2]string{"src/alpha/a.go", "src/alpha/c.go"},
		[2]string{"src/alpha/b.go", "src/alpha/c.go"},
		[2]string{"src/beta/d.go", "src/beta/e.go"},
	)

	clusters := ComputeClusters(files, rels)
	require.Len(t, clusters, 2)
	for _, c := range clusters {
		assert.Equal(t, 1.0, c.CohesionScore, c.Name)
	}
}

func TestComputeClusters_IgnoresUnknownEndpoints(t *testing.T) {
	files := projectFiles("a.ts", "b.ts")
	rels := importRels(
		[2]string{"a.ts", "gone.ts"},
		[2]string{"gone.ts", "b.ts"},
	)
	assert.Empty(t, ComputeClusters(files, rels), "edges to files outside the set do not connect anything")
}

func TestComputeClusters_ClusterNames(t *testing.T) {
	files := projectFiles(
		"src/alpha/foo.go", "src/alpha/bar.go",
		"src/beta/sub/one.go", "src/beta/sub/two.go",
		"lib/x.ts", "web/y.ts",
		"a.py", "b.py",
	)
	rels := importRels(
		[2]string{"src/alpha/foo.go", "src/alpha/bar.go"},
		[2]string{"src/beta/sub/one.go", "src/beta/sub/two.go"},
		[2]string{"web/y.ts", "lib/x.ts"},
		[2]string{"a.py", "b.py"},
	)

	var names []string
	for _, c := range ComputeClusters(files, rels) {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"./", "lib/", "src/alpha/", "src/beta/sub/"}, names)
}

func TestClusterOf(t *testing.T) {
	files := projectFiles("src/a.ts", "src/b.ts", "lone.ts")
	rels := importRels([2]string{"src/a.ts", "src/b.ts"})

	of := ClusterOf(ComputeClusters(files, rels))
	assert.Equal(t, map[string]string{"src/a.ts": "src/", "src/b.ts": "src/"}, of)
}

func TestLongestCommonPrefix(t *testing.T) {
	assert.Equal(t, "", longestCommonPrefix(nil))
	assert.Equal(t, "src/", longestCommonPrefix([]string{"src/a.go", "src/b.go"}))
	assert.Equal(t, "src/", longestCommonPrefix([]string{"src/abc.go", "src/abd.go"}), "prefix stops at a directory boundary")
	assert.Equal(t, "", longestCommonPrefix([]string{"a/x.go", "b/y.go"}))
}
