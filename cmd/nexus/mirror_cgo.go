//go:build cgo

package main

import "github.com/dusk-indust/nexus/internal/graph"

func openGraphMirror(path string) (graph.Store, error) {
	return graph.NewKuzuFileStore(path)
}
