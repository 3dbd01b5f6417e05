//go:build cgo

package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as a graph backend.
// Files and symbols are nodes; DEFINES links a file to its symbols, CHILD_OF
// links a member to its container and IMPORTS links files.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path. KuzuDB creates the leaf directory itself.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS File(
		id STRING,
		project_id STRING,
		name STRING,
		path STRING,
		absolute_path STRING,
		language STRING,
		line_count INT64,
		hidden BOOLEAN,
		content_hash STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Symbol(
		id STRING,
		name STRING,
		kind STRING,
		line INT64,
		col INT64,
		end_line INT64,
		end_col INT64,
		signature STRING,
		documentation STRING,
		exported BOOLEAN,
		parent_id STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS DEFINES(FROM File TO Symbol)`,
	`CREATE REL TABLE IF NOT EXISTS CHILD_OF(FROM Symbol TO Symbol)`,
	`CREATE REL TABLE IF NOT EXISTS IMPORTS(FROM File TO File, id STRING, metadata STRING)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// ClearProjectData detaches and deletes the project's symbols, then files.
func (s *KuzuStore) ClearProjectData(_ context.Context, projectID string) error {
	params := map[string]any{"project": projectID}
	if err := s.exec(`MATCH (f:File {project_id: $project})-[:DEFINES]->(sym:Symbol) DETACH DELETE sym`, params); err != nil {
		return err
	}
	return s.exec(`MATCH (f:File {project_id: $project}) DETACH DELETE f`, params)
}

// UpsertFile replaces any file at the same project path, then creates the node.
func (s *KuzuStore) UpsertFile(_ context.Context, f File) error {
	if err := s.exec(
		`MATCH (f:File {project_id: $project, path: $path}) DETACH DELETE f`,
		map[string]any{"project": f.ProjectID, "path": f.Path},
	); err != nil {
		return err
	}
	return s.exec(
		`CREATE (f:File {
			id: $id,
			project_id: $project,
			name: $name,
			path: $path,
			absolute_path: $abs,
			language: $lang,
			line_count: $lines,
			hidden: $hidden,
			content_hash: $hash
		})`,
		map[string]any{
			"id":      f.ID,
			"project": f.ProjectID,
			"name":    f.Name,
			"path":    f.Path,
			"abs":     f.AbsolutePath,
			"lang":    string(f.Language),
			"lines":   int64(f.LineCount),
			"hidden":  f.Hidden,
			"hash":    f.ContentHash,
		},
	)
}

// InsertSymbols creates symbol nodes with their DEFINES edge and, for
// members, a CHILD_OF edge. Parents precede children in extraction order.
func (s *KuzuStore) InsertSymbols(_ context.Context, symbols []Symbol) error {
	for _, sym := range symbols {
		err := s.exec(
			`MATCH (f:File {id: $file})
			CREATE (f)-[:DEFINES]->(:Symbol {
				id: $id,
				name: $name,
				kind: $kind,
				line: $line,
				col: $col,
				end_line: $endLine,
				end_col: $endCol,
				signature: $sig,
				documentation: $doc,
				exported: $exported,
				parent_id: $parent
			})`,
			map[string]any{
				"file":     sym.FileID,
				"id":       sym.ID,
				"name":     sym.Name,
				"kind":     string(sym.Kind),
				"line":     int64(sym.Line),
				"col":      int64(sym.Column),
				"endLine":  int64(derefInt(sym.EndLine)),
				"endCol":   int64(derefInt(sym.EndColumn)),
				"sig":      sym.Signature,
				"doc":      sym.Documentation,
				"exported": sym.Exported,
				"parent":   sym.ParentID,
			},
		)
		if err != nil {
			return err
		}
		if sym.ParentID == "" {
			continue
		}
		if err := s.exec(
			`MATCH (c:Symbol {id: $child}), (p:Symbol {id: $parent}) CREATE (c)-[:CHILD_OF]->(p)`,
			map[string]any{"child": sym.ID, "parent": sym.ParentID},
		); err != nil {
			return err
		}
	}
	return nil
}

// InsertRelationships merges IMPORTS edges so (source, target) stays unique.
func (s *KuzuStore) InsertRelationships(_ context.Context, rels []Relationship) error {
	for _, r := range rels {
		if r.Kind != RelationshipImports {
			return fmt.Errorf("kuzu: unsupported relationship kind %q", r.Kind)
		}
		err := s.exec(
			`MATCH (a:File {id: $source}), (b:File {id: $target})
			MERGE (a)-[r:IMPORTS]->(b)
			ON CREATE SET r.id = $id, r.metadata = $meta`,
			map[string]any{"source": r.SourceID, "target": r.TargetID, "id": r.ID, "meta": r.Metadata},
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// SetFileHidden toggles a file's hidden flag.
func (s *KuzuStore) SetFileHidden(_ context.Context, fileID string, hidden bool) error {
	rows, err := s.query(
		`MATCH (f:File {id: $id}) SET f.hidden = $hidden RETURN f.id`,
		map[string]any{"id": fileID, "hidden": hidden},
	)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------- Read operations ----------

// Files returns the project's files ordered by path.
func (s *KuzuStore) Files(_ context.Context, projectID string) ([]File, error) {
	rows, err := s.query(
		`MATCH (f:File {project_id: $project})
		RETURN f.id, f.project_id, f.name, f.path, f.absolute_path, f.language, f.line_count, f.hidden, f.content_hash
		ORDER BY f.path`,
		map[string]any{"project": projectID},
	)
	if err != nil {
		return nil, err
	}
	out := make([]File, 0, len(rows))
	for _, r := range rows {
		out = append(out, File{
			ID:           toString(r[0]),
			ProjectID:    toString(r[1]),
			Name:         toString(r[2]),
			Path:         toString(r[3]),
			AbsolutePath: toString(r[4]),
			Language:     Language(toString(r[5])),
			LineCount:    toInt(r[6]),
			Hidden:       toBool(r[7]),
			ContentHash:  toString(r[8]),
		})
	}
	return out, nil
}

const symbolReturn = `RETURN s.id, f.id, s.name, s.kind, s.line, s.col, s.end_line, s.end_col,
	s.signature, s.documentation, s.exported, s.parent_id`

// Symbols returns every symbol of the project's files.
func (s *KuzuStore) Symbols(_ context.Context, projectID string) ([]Symbol, error) {
	rows, err := s.query(
		`MATCH (f:File {project_id: $project})-[:DEFINES]->(s:Symbol) `+symbolReturn+` ORDER BY f.path, s.line, s.col`,
		map[string]any{"project": projectID},
	)
	if err != nil {
		return nil, err
	}
	return rowsToSymbols(rows), nil
}

// QuerySymbols returns symbols whose name contains query, case-insensitively.
func (s *KuzuStore) QuerySymbols(_ context.Context, projectID, query string, limit int) ([]Symbol, error) {
	cypher := `MATCH (f:File {project_id: $project})-[:DEFINES]->(s:Symbol)
		WHERE lower(s.name) CONTAINS lower($query) ` + symbolReturn + ` ORDER BY s.name, f.path`
	params := map[string]any{"project": projectID, "query": query}
	if limit > 0 {
		cypher += " LIMIT $limit"
		params["limit"] = int64(limit)
	}
	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	return rowsToSymbols(rows), nil
}

// Relationships returns IMPORTS edges leaving the project's files.
func (s *KuzuStore) Relationships(_ context.Context, projectID string) ([]Relationship, error) {
	rows, err := s.query(
		`MATCH (a:File {project_id: $project})-[r:IMPORTS]->(b:File) RETURN r.id, a.id, b.id, r.metadata`,
		map[string]any{"project": projectID},
	)
	if err != nil {
		return nil, err
	}
	out := make([]Relationship, 0, len(rows))
	for _, r := range rows {
		out = append(out, Relationship{
			ID:       toString(r[0]),
			SourceID: toString(r[1]),
			TargetID: toString(r[2]),
			Kind:     RelationshipImports,
			Metadata: toString(r[3]),
		})
	}
	return out, nil
}

// Importers walks IMPORTS edges backwards from fileID up to maxDepth hops and
// returns the ids of every file that transitively imports it, sorted.
func (s *KuzuStore) Importers(_ context.Context, fileID string, maxDepth int) ([]string, error) {
	if maxDepth <= 0 {
		maxDepth = 1
	}
	// Depth is an int, not user text; Kuzu does not accept parameters in
	// variable-length bounds.
	cypher := fmt.Sprintf(
		`MATCH (dep:File)-[:IMPORTS*1..%d]->(f:File {id: $id}) WHERE dep.id <> $id RETURN DISTINCT dep.id`, maxDepth)
	rows, err := s.query(cypher, map[string]any{"id": fileID})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	sort.Strings(out)
	return out, nil
}

// Stats counts the project's records.
func (s *KuzuStore) Stats(ctx context.Context, projectID string) (*Stats, error) {
	params := map[string]any{"project": projectID}
	count := func(cypher string) (int, error) {
		rows, err := s.query(cypher, params)
		if err != nil {
			return 0, err
		}
		if len(rows) == 0 || len(rows[0]) == 0 {
			return 0, nil
		}
		return toInt(rows[0][0]), nil
	}

	var st Stats
	var err error
	if st.TotalFiles, err = count(`MATCH (f:File {project_id: $project}) RETURN count(f)`); err != nil {
		return nil, err
	}
	if st.TotalSymbols, err = count(`MATCH (f:File {project_id: $project})-[:DEFINES]->(s:Symbol) RETURN count(s)`); err != nil {
		return nil, err
	}
	if st.TotalRelationships, err = count(`MATCH (f:File {project_id: $project})-[r:IMPORTS]->(:File) RETURN count(r)`); err != nil {
		return nil, err
	}
	return &st, nil
}

// ---------- Helpers ----------

// exec runs a parameterized Cypher statement that returns no rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// rowsToSymbols converts rows in symbolReturn column order. End positions
// are stored as 0 when absent.
func rowsToSymbols(rows [][]any) []Symbol {
	out := make([]Symbol, 0, len(rows))
	for _, r := range rows {
		sym := Symbol{
			ID:            toString(r[0]),
			FileID:        toString(r[1]),
			Name:          toString(r[2]),
			Kind:          SymbolKind(toString(r[3])),
			Line:          toInt(r[4]),
			Column:        toInt(r[5]),
			Signature:     toString(r[8]),
			Documentation: toString(r[9]),
			Exported:      toBool(r[10]),
			ParentID:      toString(r[11]),
		}
		if n := toInt(r[6]); n > 0 {
			sym.EndLine = &n
		}
		if n := toInt(r[7]); n > 0 {
			sym.EndColumn = &n
		}
		out = append(out, sym)
	}
	return out
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
