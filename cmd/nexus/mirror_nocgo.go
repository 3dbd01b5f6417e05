//go:build !cgo

package main

import (
	"errors"

	"github.com/dusk-indust/nexus/internal/graph"
)

func openGraphMirror(string) (graph.Store, error) {
	return nil, errors.New("KuzuDB needs a cgo build")
}
