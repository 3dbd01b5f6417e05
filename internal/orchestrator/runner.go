package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/nexus/internal/graph"
)

// Runner is the invoking layer around Engine: it clears a project's stored
// data, analyzes, persists the result and only then reports completion. It
// keeps one engine per project id; all engines share one parser.
type Runner struct {
	store graph.Store
	opts  Options
	log   logrus.FieldLogger

	mu      sync.Mutex
	engines map[string]*Engine
	running map[string]context.CancelFunc
}

// NewRunner creates a runner persisting into store.
func NewRunner(store graph.Store, opts Options) *Runner {
	if opts.Parser == nil {
		opts.Parser = graph.NewTreeSitterParser(nil)
	}
	return &Runner{
		store:   store,
		opts:    opts,
		log:     opts.logger(),
		engines: make(map[string]*Engine),
		running: make(map[string]context.CancelFunc),
	}
}

func (r *Runner) engine(projectID string) *Engine {
	e, ok := r.engines[projectID]
	if !ok {
		e = NewEngine(r.opts)
		r.engines[projectID] = e
	}
	return e
}

// Run analyzes root as projectID. Exactly one terminal event reaches sink:
// complete (after the store commits), error, or cancelled. A second Run for a
// project that is still running fails with ErrAnalysisInProgress and emits
// nothing.
func (r *Runner) Run(ctx context.Context, projectID, root string, sink ProgressSink) (*graph.Stats, error) {
	if sink == nil {
		sink = func(ProgressEvent) {}
	}

	r.mu.Lock()
	if _, busy := r.running[projectID]; busy {
		r.mu.Unlock()
		return nil, fmt.Errorf("project %s: %w", projectID, ErrAnalysisInProgress)
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.running[projectID] = cancel
	eng := r.engine(projectID)
	r.mu.Unlock()

	defer func() {
		cancel()
		r.mu.Lock()
		delete(r.running, projectID)
		r.mu.Unlock()
	}()

	log := r.log.WithFields(logrus.Fields{"project": projectID, "root": root})

	if err := r.store.ClearProjectData(runCtx, projectID); err != nil {
		return nil, r.fail(log, sink, fmt.Errorf("clear project data: %w", err))
	}

	result, err := eng.Analyze(runCtx, projectID, root, sink)
	if errors.Is(err, ErrCancelled) {
		log.Info("analysis cancelled")
		return nil, err
	}
	if err != nil {
		return nil, r.fail(log, sink, fmt.Errorf("analyze: %w", err))
	}

	// Persistence runs to completion even if the caller cancels now, so the
	// store never holds a partial result next to a complete event.
	persistCtx := context.WithoutCancel(ctx)
	if err := r.persist(persistCtx, result); err != nil {
		return nil, r.fail(log, sink, err)
	}

	stats := result.Stats()
	sink(CompletedEvent(*stats))
	log.WithFields(logrus.Fields{
		"files":         stats.TotalFiles,
		"symbols":       stats.TotalSymbols,
		"relationships": stats.TotalRelationships,
	}).Info("analysis stored")
	return stats, nil
}

func (r *Runner) persist(ctx context.Context, result *Result) error {
	for _, f := range result.Files {
		if err := r.store.UpsertFile(ctx, f); err != nil {
			return fmt.Errorf("store file %s: %w", f.Path, err)
		}
	}
	if err := r.store.InsertSymbols(ctx, result.Symbols); err != nil {
		return fmt.Errorf("store symbols: %w", err)
	}
	if err := r.store.InsertRelationships(ctx, result.Relationships); err != nil {
		return fmt.Errorf("store relationships: %w", err)
	}
	return nil
}

func (r *Runner) fail(log logrus.FieldLogger, sink ProgressSink, err error) error {
	log.WithError(err).Error("analysis failed")
	sink(ErrorEvent(err.Error()))
	return err
}

// Cancel stops the project's run, if any. It is idempotent.
func (r *Runner) Cancel(projectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.engines[projectID]; ok {
		e.Cancel()
	}
	if cancel, ok := r.running[projectID]; ok {
		cancel()
	}
}

// Running reports whether projectID has a run in flight.
func (r *Runner) Running(projectID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[projectID]
	return ok
}

// Store returns the store results are persisted to.
func (r *Runner) Store() graph.Store { return r.store }
