package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/nexus/internal/config"
	"github.com/dusk-indust/nexus/internal/graph"
	"github.com/dusk-indust/nexus/internal/logging"
	"github.com/dusk-indust/nexus/internal/orchestrator"
)

// project is a resolved project directory with its effective settings.
type project struct {
	root string
	id   string
	cfg  *config.ProjectConfig
	log  *logrus.Logger
}

// openProject resolves the optional directory argument, loads its nexus.yml
// and applies flag overrides.
func (g *globalFlags) openProject(args []string) (*project, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if g.Workers > 0 {
		cfg.Workers = g.Workers
	}
	if g.Database != "" {
		cfg.Database = g.Database
	}
	if g.GraphDB != "" {
		cfg.GraphDatabase = g.GraphDB
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.LogJSON {
		cfg.Log.JSON = true
	}

	log, err := logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	if err != nil {
		return nil, err
	}
	id, err := orchestrator.ProjectIDForRoot(root)
	if err != nil {
		return nil, err
	}
	return &project{root: root, id: id, cfg: cfg, log: log}, nil
}

// openStore opens the SQLite store and, when configured, tees writes into a
// KuzuDB mirror.
func (p *project) openStore(ctx context.Context) (graph.Store, error) {
	dbPath := p.cfg.DatabasePath(p.root)
	primary, err := graph.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}

	var store graph.Store = primary
	if mirrorPath := p.cfg.GraphDatabasePath(p.root); mirrorPath != "" {
		mirror, err := openGraphMirror(mirrorPath)
		if err != nil {
			primary.Close()
			return nil, fmt.Errorf("open graph mirror: %w", err)
		}
		store = graph.NewTeeStore(primary, mirror)
		p.log.WithField("path", mirrorPath).Debug("mirroring into KuzuDB")
	}

	if err := store.InitSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	p.log.WithField("path", dbPath).Debug("opened store")
	return store, nil
}

func (p *project) runnerOptions() orchestrator.Options {
	return orchestrator.Options{
		Workers: p.cfg.Workers,
		Exclude: p.cfg.Exclude,
		Logger:  p.log,
	}
}
