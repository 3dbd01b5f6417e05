package graph

import (
	"context"
	"errors"
	"fmt"
)

// Compile-time check that TeeStore satisfies Store.
var _ Store = (*TeeStore)(nil)

// TeeStore writes to a primary store and mirrors every write to secondary
// stores. Reads are served by the primary.
type TeeStore struct {
	primary Store
	mirrors []Store
}

// NewTeeStore returns a store that writes through to primary and mirrors.
func NewTeeStore(primary Store, mirrors ...Store) *TeeStore {
	return &TeeStore{primary: primary, mirrors: mirrors}
}

func (t *TeeStore) each(op string, fn func(Store) error) error {
	if err := fn(t.primary); err != nil {
		return err
	}
	for i, m := range t.mirrors {
		if err := fn(m); err != nil {
			return fmt.Errorf("mirror %d: %s: %w", i, op, err)
		}
	}
	return nil
}

func (t *TeeStore) InitSchema(ctx context.Context) error {
	return t.each("init schema", func(s Store) error { return s.InitSchema(ctx) })
}

func (t *TeeStore) ClearProjectData(ctx context.Context, projectID string) error {
	return t.each("clear", func(s Store) error { return s.ClearProjectData(ctx, projectID) })
}

func (t *TeeStore) UpsertFile(ctx context.Context, file File) error {
	return t.each("upsert file", func(s Store) error { return s.UpsertFile(ctx, file) })
}

func (t *TeeStore) InsertSymbols(ctx context.Context, symbols []Symbol) error {
	return t.each("insert symbols", func(s Store) error { return s.InsertSymbols(ctx, symbols) })
}

func (t *TeeStore) InsertRelationships(ctx context.Context, rels []Relationship) error {
	return t.each("insert relationships", func(s Store) error { return s.InsertRelationships(ctx, rels) })
}

func (t *TeeStore) SetFileHidden(ctx context.Context, fileID string, hidden bool) error {
	return t.each("set hidden", func(s Store) error { return s.SetFileHidden(ctx, fileID, hidden) })
}

func (t *TeeStore) Files(ctx context.Context, projectID string) ([]File, error) {
	return t.primary.Files(ctx, projectID)
}

func (t *TeeStore) Symbols(ctx context.Context, projectID string) ([]Symbol, error) {
	return t.primary.Symbols(ctx, projectID)
}

func (t *TeeStore) Relationships(ctx context.Context, projectID string) ([]Relationship, error) {
	return t.primary.Relationships(ctx, projectID)
}

func (t *TeeStore) QuerySymbols(ctx context.Context, projectID, query string, limit int) ([]Symbol, error) {
	return t.primary.QuerySymbols(ctx, projectID, query, limit)
}

func (t *TeeStore) Stats(ctx context.Context, projectID string) (*Stats, error) {
	return t.primary.Stats(ctx, projectID)
}

// Importers delegates to the first store that can traverse imports natively.
func (t *TeeStore) Importers(ctx context.Context, fileID string, maxDepth int) ([]string, error) {
	for _, s := range append([]Store{t.primary}, t.mirrors...) {
		if f, ok := s.(ImporterFinder); ok {
			return f.Importers(ctx, fileID, maxDepth)
		}
	}
	return nil, errors.ErrUnsupported
}

// Close closes every store and returns the first error.
func (t *TeeStore) Close() error {
	var first error
	for _, s := range append([]Store{t.primary}, t.mirrors...) {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ImporterFinder is implemented by stores that can answer reverse-dependency
// queries without loading the whole graph.
type ImporterFinder interface {
	Importers(ctx context.Context, fileID string, maxDepth int) ([]string, error)
}
