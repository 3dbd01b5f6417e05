package graph

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

type relKey struct {
	source, target string
	kind           RelationshipKind
}

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu      sync.RWMutex
	files   map[string]File // key: file id
	symbols []Symbol
	rels    []Relationship
	relSeen map[relKey]bool
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		files:   make(map[string]File),
		relSeen: make(map[relKey]bool),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// ClearProjectData drops every record that belongs to projectID.
func (m *MemStore) ClearProjectData(_ context.Context, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	owned := make(map[string]bool)
	for id, f := range m.files {
		if f.ProjectID == projectID {
			owned[id] = true
			delete(m.files, id)
		}
	}

	rels := m.rels[:0]
	for _, r := range m.rels {
		if owned[r.SourceID] || owned[r.TargetID] {
			delete(m.relSeen, relKey{r.SourceID, r.TargetID, r.Kind})
			continue
		}
		rels = append(rels, r)
	}
	m.rels = rels

	syms := m.symbols[:0]
	for _, s := range m.symbols {
		if !owned[s.FileID] {
			syms = append(syms, s)
		}
	}
	m.symbols = syms
	return nil
}

// UpsertFile stores a file, replacing any file with the same project and path.
func (m *MemStore) UpsertFile(_ context.Context, file File) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, f := range m.files {
		if f.ProjectID == file.ProjectID && f.Path == file.Path {
			delete(m.files, id)
		}
	}
	m.files[file.ID] = file
	return nil
}

// InsertSymbols appends symbols.
func (m *MemStore) InsertSymbols(_ context.Context, symbols []Symbol) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.symbols = append(m.symbols, symbols...)
	return nil
}

// InsertRelationships appends relationships not already present.
func (m *MemStore) InsertRelationships(_ context.Context, rels []Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rels {
		key := relKey{r.SourceID, r.TargetID, r.Kind}
		if m.relSeen[key] {
			continue
		}
		m.relSeen[key] = true
		m.rels = append(m.rels, r)
	}
	return nil
}

// SetFileHidden toggles a file's hidden flag.
func (m *MemStore) SetFileHidden(_ context.Context, fileID string, hidden bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[fileID]
	if !ok {
		return ErrNotFound
	}
	f.Hidden = hidden
	m.files[fileID] = f
	return nil
}

// Files returns the project's files ordered by path.
func (m *MemStore) Files(_ context.Context, projectID string) ([]File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []File
	for _, f := range m.files {
		if f.ProjectID == projectID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (m *MemStore) ownedFiles(projectID string) map[string]bool {
	owned := make(map[string]bool)
	for id, f := range m.files {
		if f.ProjectID == projectID {
			owned[id] = true
		}
	}
	return owned
}

// Symbols returns the symbols of the project's files in insertion order.
func (m *MemStore) Symbols(_ context.Context, projectID string) ([]Symbol, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owned := m.ownedFiles(projectID)
	var out []Symbol
	for _, s := range m.symbols {
		if owned[s.FileID] {
			out = append(out, s)
		}
	}
	return out, nil
}

// Relationships returns relationships whose source belongs to the project.
func (m *MemStore) Relationships(_ context.Context, projectID string) ([]Relationship, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owned := m.ownedFiles(projectID)
	var out []Relationship
	for _, r := range m.rels {
		if owned[r.SourceID] {
			out = append(out, r)
		}
	}
	return out, nil
}

// QuerySymbols returns symbols whose name contains query (case-insensitive),
// up to limit results. A limit <= 0 means no limit.
func (m *MemStore) QuerySymbols(ctx context.Context, projectID, query string, limit int) ([]Symbol, error) {
	all, _ := m.Symbols(ctx, projectID)
	q := strings.ToLower(query)
	var out []Symbol
	for _, s := range all {
		if !strings.Contains(strings.ToLower(s.Name), q) {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Stats counts the project's records.
func (m *MemStore) Stats(ctx context.Context, projectID string) (*Stats, error) {
	files, _ := m.Files(ctx, projectID)
	syms, _ := m.Symbols(ctx, projectID)
	rels, _ := m.Relationships(ctx, projectID)
	return &Stats{
		TotalFiles:         len(files),
		TotalSymbols:       len(syms),
		TotalRelationships: len(rels),
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
