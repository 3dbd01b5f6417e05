package graph

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

// Store persists the analysis output of a project.
// Implementations: SQLiteStore (production), KuzuStore (graph mirror),
// MemStore (testing).
type Store interface {
	io.Closer

	// InitSchema runs once before any data is inserted.
	InitSchema(ctx context.Context) error

	// ClearProjectData removes a project's files, symbols and relationships.
	// Called before every run; ids are never stable across runs.
	ClearProjectData(ctx context.Context, projectID string) error

	// Write operations.
	UpsertFile(ctx context.Context, file File) error
	InsertSymbols(ctx context.Context, symbols []Symbol) error
	// InsertRelationships ignores rows whose (source, target, kind) already exists.
	InsertRelationships(ctx context.Context, rels []Relationship) error
	SetFileHidden(ctx context.Context, fileID string, hidden bool) error

	// Read operations.
	Files(ctx context.Context, projectID string) ([]File, error)
	Symbols(ctx context.Context, projectID string) ([]Symbol, error)
	Relationships(ctx context.Context, projectID string) ([]Relationship, error)
	QuerySymbols(ctx context.Context, projectID, query string, limit int) ([]Symbol, error)

	// Stats.
	Stats(ctx context.Context, projectID string) (*Stats, error)
}
