package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Compile-time check that SQLiteStore satisfies Store.
var _ Store = (*SQLiteStore)(nil)

// schemaVersion is bumped whenever a migration is appended to migrations.
const schemaVersion = 1

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path. Use
// ":memory:" for a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create parent directory: %w", err)
		}
		dsn = "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection keeps :memory: databases alive and serialises writers.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------- Schema setup ----------

var migrations = []struct {
	name string
	ddl  []string
}{
	{"v1 initial schema", []string{
		`CREATE TABLE IF NOT EXISTS files (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			absolute_path TEXT NOT NULL,
			language TEXT NOT NULL,
			line_count INTEGER NOT NULL DEFAULT 0,
			is_hidden INTEGER NOT NULL DEFAULT 0,
			content_hash TEXT,
			last_modified TEXT,
			UNIQUE (project_id, path)
		)`,
		`CREATE TABLE IF NOT EXISTS symbols (
			id TEXT PRIMARY KEY,
			file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			line INTEGER NOT NULL,
			"column" INTEGER NOT NULL,
			end_line INTEGER,
			end_column INTEGER,
			signature TEXT,
			documentation TEXT,
			is_exported INTEGER NOT NULL DEFAULT 0,
			parent_id TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			id TEXT PRIMARY KEY,
			source_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
			target_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			metadata TEXT,
			UNIQUE (source_id, target_id, kind)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_files_project ON files(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id)`,
		`CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_id)`,
	}},
}

// InitSchema applies any migrations newer than the recorded schema version.
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	err := s.db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin migration: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	for i := current; i < len(migrations); i++ {
		for _, stmt := range migrations[i].ddl {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("sqlite: migration %q: %w", migrations[i].name, err)
			}
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_version`); err != nil {
		return fmt.Errorf("sqlite: reset schema version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
		return fmt.Errorf("sqlite: set schema version: %w", err)
	}
	return tx.Commit()
}

// ---------- Write operations ----------

// ClearProjectData deletes relationships, then symbols, then files of a
// project in one transaction.
func (s *SQLiteStore) ClearProjectData(ctx context.Context, projectID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin clear: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM relationships WHERE source_id IN (SELECT id FROM files WHERE project_id = ?)
			OR target_id IN (SELECT id FROM files WHERE project_id = ?)`,
		`DELETE FROM symbols WHERE file_id IN (SELECT id FROM files WHERE project_id = ?)`,
		`DELETE FROM files WHERE project_id = ?`,
	}
	for i, stmt := range stmts {
		args := []any{projectID}
		if i == 0 {
			args = append(args, projectID)
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("sqlite: clear project %s: %w", projectID, err)
		}
	}
	return tx.Commit()
}

const fileUpdateColumns = `
			name = excluded.name,
			absolute_path = excluded.absolute_path,
			language = excluded.language,
			line_count = excluded.line_count,
			content_hash = excluded.content_hash,
			last_modified = excluded.last_modified`

// UpsertFile inserts a file or updates the row with the same id or the same
// project path. The existing row keeps its id.
func (s *SQLiteStore) UpsertFile(ctx context.Context, f File) error {
	var modified sql.NullString
	if f.LastModified != nil {
		modified = sql.NullString{String: f.LastModified.UTC().Format(time.RFC3339Nano), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (id, project_id, name, path, absolute_path, language, line_count, is_hidden, content_hash, last_modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET `+fileUpdateColumns+`
		ON CONFLICT(project_id, path) DO UPDATE SET `+fileUpdateColumns,
		f.ID, f.ProjectID, f.Name, f.Path, f.AbsolutePath, string(f.Language),
		f.LineCount, f.Hidden, f.ContentHash, modified,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert file %s: %w", f.Path, err)
	}
	return nil
}

// InsertSymbols batch-inserts symbols in one transaction.
func (s *SQLiteStore) InsertSymbols(ctx context.Context, symbols []Symbol) error {
	if len(symbols) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin symbols: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols (id, file_id, name, kind, line, "column", end_line, end_column, signature, documentation, is_exported, parent_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare symbols: %w", err)
	}
	defer stmt.Close()

	for _, sym := range symbols {
		_, err := stmt.ExecContext(ctx,
			sym.ID, sym.FileID, sym.Name, string(sym.Kind), sym.Line, sym.Column,
			nullInt(sym.EndLine), nullInt(sym.EndColumn),
			nullString(sym.Signature), nullString(sym.Documentation),
			sym.Exported, nullString(sym.ParentID),
		)
		if err != nil {
			return fmt.Errorf("sqlite: insert symbol %s: %w", sym.Name, err)
		}
	}
	return tx.Commit()
}

// InsertRelationships batch-inserts relationships, ignoring duplicates.
func (s *SQLiteStore) InsertRelationships(ctx context.Context, rels []Relationship) error {
	if len(rels) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin relationships: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO relationships (id, source_id, target_id, kind, metadata)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare relationships: %w", err)
	}
	defer stmt.Close()

	for _, r := range rels {
		if _, err := stmt.ExecContext(ctx, r.ID, r.SourceID, r.TargetID, string(r.Kind), nullString(r.Metadata)); err != nil {
			return fmt.Errorf("sqlite: insert relationship %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// SetFileHidden toggles a file's hidden flag.
func (s *SQLiteStore) SetFileHidden(ctx context.Context, fileID string, hidden bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE files SET is_hidden = ? WHERE id = ?`, hidden, fileID)
	if err != nil {
		return fmt.Errorf("sqlite: set hidden %s: %w", fileID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------- Read operations ----------

// Files returns the project's files ordered by path.
func (s *SQLiteStore) Files(ctx context.Context, projectID string) ([]File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, name, path, absolute_path, language, line_count, is_hidden, content_hash, last_modified
		FROM files WHERE project_id = ? ORDER BY path`, projectID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query files: %w", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var (
			f        File
			lang     string
			hash     sql.NullString
			modified sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Name, &f.Path, &f.AbsolutePath, &lang,
			&f.LineCount, &f.Hidden, &hash, &modified); err != nil {
			return nil, fmt.Errorf("sqlite: scan file: %w", err)
		}
		f.Language = Language(lang)
		f.ContentHash = hash.String
		if modified.Valid {
			if t, err := time.Parse(time.RFC3339Nano, modified.String); err == nil {
				f.LastModified = &t
			}
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

const symbolColumns = `s.id, s.file_id, s.name, s.kind, s.line, s."column", s.end_line, s.end_column,
	s.signature, s.documentation, s.is_exported, s.parent_id`

// Symbols returns every symbol of the project's files.
func (s *SQLiteStore) Symbols(ctx context.Context, projectID string) ([]Symbol, error) {
	return s.querySymbols(ctx, `
		SELECT `+symbolColumns+`
		FROM symbols s JOIN files f ON f.id = s.file_id
		WHERE f.project_id = ? ORDER BY f.path, s.line, s."column"`, projectID)
}

// QuerySymbols returns symbols whose name contains query, case-insensitively.
// A limit <= 0 means no limit.
func (s *SQLiteStore) QuerySymbols(ctx context.Context, projectID, query string, limit int) ([]Symbol, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.querySymbols(ctx, `
		SELECT `+symbolColumns+`
		FROM symbols s JOIN files f ON f.id = s.file_id
		WHERE f.project_id = ? AND s.name LIKE '%' || ? || '%'
		ORDER BY s.name, f.path LIMIT ?`, projectID, query, limit)
}

func (s *SQLiteStore) querySymbols(ctx context.Context, query string, args ...any) ([]Symbol, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query symbols: %w", err)
	}
	defer rows.Close()

	var out []Symbol
	for rows.Next() {
		var (
			sym                Symbol
			kind               string
			endLine, endCol    sql.NullInt64
			sig, doc, parentID sql.NullString
		)
		if err := rows.Scan(&sym.ID, &sym.FileID, &sym.Name, &kind, &sym.Line, &sym.Column,
			&endLine, &endCol, &sig, &doc, &sym.Exported, &parentID); err != nil {
			return nil, fmt.Errorf("sqlite: scan symbol: %w", err)
		}
		sym.Kind = SymbolKind(kind)
		sym.EndLine = intPtr(endLine)
		sym.EndColumn = intPtr(endCol)
		sym.Signature = sig.String
		sym.Documentation = doc.String
		sym.ParentID = parentID.String
		out = append(out, sym)
	}
	return out, rows.Err()
}

// Relationships returns relationships whose source file belongs to the project.
func (s *SQLiteStore) Relationships(ctx context.Context, projectID string) ([]Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.source_id, r.target_id, r.kind, r.metadata
		FROM relationships r JOIN files f ON f.id = r.source_id
		WHERE f.project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query relationships: %w", err)
	}
	defer rows.Close()

	var out []Relationship
	for rows.Next() {
		var (
			r    Relationship
			kind string
			meta sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.SourceID, &r.TargetID, &kind, &meta); err != nil {
			return nil, fmt.Errorf("sqlite: scan relationship: %w", err)
		}
		r.Kind = RelationshipKind(kind)
		r.Metadata = meta.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats counts the project's records.
func (s *SQLiteStore) Stats(ctx context.Context, projectID string) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM files WHERE project_id = ?1),
			(SELECT count(*) FROM symbols s JOIN files f ON f.id = s.file_id WHERE f.project_id = ?1),
			(SELECT count(*) FROM relationships r JOIN files f ON f.id = r.source_id WHERE f.project_id = ?1)`,
		projectID).Scan(&st.TotalFiles, &st.TotalSymbols, &st.TotalRelationships)
	if err != nil {
		return nil, fmt.Errorf("sqlite: stats: %w", err)
	}
	return &st, nil
}

// ---------- Null helpers ----------

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
