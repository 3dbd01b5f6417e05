package orchestrator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/nexus/internal/graph"
)

var _ Analyzer = (*Engine)(nil)

// Engine runs discovery, parallel parse/extract and resolution for one
// project at a time. One cancellation flag is shared by every worker of the
// current run.
type Engine struct {
	opts      Options
	parser    graph.Parser
	log       logrus.FieldLogger
	cancelled atomic.Bool
}

// NewEngine creates an engine.
func NewEngine(opts Options) *Engine {
	parser := opts.Parser
	if parser == nil {
		parser = graph.NewTreeSitterParser(nil)
	}
	return &Engine{
		opts:   opts,
		parser: parser,
		log:    opts.logger(),
	}
}

// Cancel sets the cancellation flag. Workers poll it before each file, so
// in-flight files finish first.
func (e *Engine) Cancel() {
	e.cancelled.Store(true)
}

func (e *Engine) isCancelled(ctx context.Context) bool {
	return e.cancelled.Load() || ctx.Err() != nil
}

// fileResult is one file's contribution to the run.
type fileResult struct {
	file    graph.File
	symbols []graph.Symbol
	imports []graph.ImportInfo
}

// Analyze discovers, parses and resolves the project at root. It returns
// ErrCancelled (after emitting a cancelled event) when stopped, and never
// emits a complete event.
func (e *Engine) Analyze(ctx context.Context, projectID, root string, sink ProgressSink) (*Result, error) {
	e.cancelled.Store(false)

	var mu sync.Mutex
	emit := func(ev ProgressEvent) {
		if sink == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		sink(ev)
	}

	files, err := Discover(root, DiscoverOptions{
		Exclude:           e.opts.Exclude,
		SkipGlobalIgnores: e.opts.SkipGlobalIgnores,
		Cancelled:         func() bool { return e.isCancelled(ctx) },
		OnFile:            func(f DiscoveredFile) { emit(DiscoveredEvent(f.Path)) },
	})
	if errors.Is(err, ErrCancelled) {
		emit(CancelledEvent())
		return nil, ErrCancelled
	}
	if err != nil {
		return nil, err
	}
	if e.isCancelled(ctx) {
		emit(CancelledEvent())
		return nil, ErrCancelled
	}

	total := len(files)
	emit(StartedEvent(total))

	results := make([]*fileResult, total)
	var processed int

	g := new(errgroup.Group)
	g.SetLimit(e.opts.workers())
	for i, df := range files {
		if e.isCancelled(ctx) {
			break
		}
		g.Go(func() error {
			if e.isCancelled(ctx) {
				return nil
			}
			mu.Lock()
			processed++
			ev := ParsingEvent(df.Path, processed, total)
			if sink != nil {
				sink(ev)
			}
			mu.Unlock()

			res, err := e.processFile(ctx, projectID, df)
			if err != nil {
				e.logFault(df, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if e.isCancelled(ctx) {
		emit(CancelledEvent())
		return nil, ErrCancelled
	}

	// Merge in discovery order so the output is independent of scheduling.
	out := &Result{}
	imports := make(map[string][]graph.ImportInfo)
	for _, r := range results {
		if r == nil {
			continue
		}
		out.Files = append(out.Files, r.file)
		out.Symbols = append(out.Symbols, r.symbols...)
		if len(r.imports) > 0 {
			imports[r.file.ID] = r.imports
		}
	}

	emit(ResolvingEvent(len(out.Files), total))
	out.Relationships = graph.NewResolver(out.Files).ResolveAll(out.Files, imports)

	e.log.WithFields(logrus.Fields{
		"project":       projectID,
		"files":         len(out.Files),
		"symbols":       len(out.Symbols),
		"relationships": len(out.Relationships),
		"dropped":       total - len(out.Files),
	}).Info("analysis finished")
	return out, nil
}

// processFile reads, hashes and (for parseable languages) extracts one file.
// A panic anywhere inside becomes a *graph.PanicError.
func (e *Engine) processFile(ctx context.Context, projectID string, df DiscoveredFile) (res *fileResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &graph.PanicError{File: df.Path, Value: r}
		}
	}()

	source, err := os.ReadFile(df.AbsPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", df.Path, err)
	}
	info, err := os.Stat(df.AbsPath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", df.Path, err)
	}
	modified := info.ModTime().UTC()
	sum := sha256.Sum256(source)

	file := graph.File{
		ID:           uuid.NewString(),
		ProjectID:    projectID,
		Name:         path.Base(df.Path),
		Path:         df.Path,
		AbsolutePath: df.AbsPath,
		Language:     df.Language,
		LineCount:    countLines(source),
		ContentHash:  hex.EncodeToString(sum[:]),
		LastModified: &modified,
	}
	res = &fileResult{file: file}
	if !df.Language.RequiresParsing() {
		return res, nil
	}

	parsed, err := e.parser.Parse(ctx, file.ID, df.Path, source, df.Language)
	if err != nil {
		return nil, err
	}
	res.symbols = parsed.Symbols
	res.imports = parsed.Imports
	return res, nil
}

func (e *Engine) logFault(df DiscoveredFile, err error) {
	entry := e.log.WithFields(logrus.Fields{
		"file":     df.Path,
		"language": df.Language,
	})
	var panicErr *graph.PanicError
	if errors.As(err, &panicErr) {
		entry.WithError(err).Error("extraction panicked, file dropped")
		return
	}
	entry.WithError(err).Warn("failed to parse file, file dropped")
}

// countLines counts lines the way a line iterator does: a trailing newline
// does not start a new line and empty input has none.
func countLines(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	n := bytes.Count(source, []byte{'\n'})
	if source[len(source)-1] != '\n' {
		n++
	}
	return n
}
