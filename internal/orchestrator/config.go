package orchestrator

import (
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/nexus/internal/graph"
	"github.com/dusk-indust/nexus/internal/logging"
)

// Options configures an Engine.
type Options struct {
	// Workers bounds the parse/extract pool. Zero means runtime.NumCPU().
	Workers int

	// Exclude lists extra glob patterns (project-relative, slash-separated)
	// that discovery skips on top of ignore files.
	Exclude []string

	// SkipGlobalIgnores disables the user-level git excludes file. Tests set
	// it so results do not depend on the machine.
	SkipGlobalIgnores bool

	// Parser overrides the tree-sitter parser. Nil means a fresh
	// graph.TreeSitterParser.
	Parser graph.Parser

	// Logger receives per-file faults. Nil means discard.
	Logger logrus.FieldLogger
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.Discard()
}
