package graph

import "time"

// --- Enums ---

// SymbolKind classifies symbols declared in a file.
type SymbolKind string

const (
	SymbolKindFunction  SymbolKind = "function"
	SymbolKindMethod    SymbolKind = "method"
	SymbolKindClass     SymbolKind = "class"
	SymbolKindStruct    SymbolKind = "struct"
	SymbolKindEnum      SymbolKind = "enum"
	SymbolKindInterface SymbolKind = "interface"
	SymbolKindType      SymbolKind = "type"
	SymbolKindModule    SymbolKind = "module"
	SymbolKindField     SymbolKind = "field"
	SymbolKindProperty  SymbolKind = "property"
	SymbolKindVariable  SymbolKind = "variable"
	SymbolKindConstant  SymbolKind = "constant"
)

// AllSymbolKinds lists every symbol kind in declaration order.
var AllSymbolKinds = []SymbolKind{
	SymbolKindFunction, SymbolKindMethod, SymbolKindClass, SymbolKindStruct,
	SymbolKindEnum, SymbolKindInterface, SymbolKindType, SymbolKindModule,
	SymbolKindField, SymbolKindProperty, SymbolKindVariable, SymbolKindConstant,
}

// RelationshipKind classifies file-to-file edges.
type RelationshipKind string

const (
	RelationshipImports RelationshipKind = "imports"
)

// --- Models ---

// File is one discovered source file. Hidden is the only field that changes
// after creation.
type File struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"projectId"`
	Name         string     `json:"name"`
	Path         string     `json:"path"` // slash-separated, relative to the project root
	AbsolutePath string     `json:"absolutePath"`
	Language     Language   `json:"language"`
	LineCount    int        `json:"lineCount"`
	Hidden       bool       `json:"isHidden"`
	ContentHash  string     `json:"contentHash"`
	LastModified *time.Time `json:"lastModified,omitempty"`
}

// Symbol is a named, located construct declared in a file. ParentID, when
// set, names an earlier symbol of the same file.
type Symbol struct {
	ID            string     `json:"id"`
	FileID        string     `json:"fileId"`
	Name          string     `json:"name"`
	Kind          SymbolKind `json:"kind"`
	Line          int        `json:"line"`
	Column        int        `json:"column"`
	EndLine       *int       `json:"endLine,omitempty"`
	EndColumn     *int       `json:"endColumn,omitempty"`
	Signature     string     `json:"signature,omitempty"`
	Documentation string     `json:"documentation,omitempty"`
	Exported      bool       `json:"isExported"`
	ParentID      string     `json:"parentId,omitempty"`
}

// Relationship is a directed edge between two files.
type Relationship struct {
	ID       string           `json:"id"`
	SourceID string           `json:"sourceId"`
	TargetID string           `json:"targetId"`
	Kind     RelationshipKind `json:"kind"`
	Metadata string           `json:"metadata,omitempty"`
}

// ImportInfo is a raw import as written in source. It lives only between
// extraction and resolution.
type ImportInfo struct {
	Source    string   `json:"source"`
	Names     []string `json:"names,omitempty"`
	IsDefault bool     `json:"isDefault"`
	Line      int      `json:"line"`
}

// ParseResult accumulates everything extracted from a single file.
type ParseResult struct {
	Symbols []Symbol     `json:"symbols"`
	Imports []ImportInfo `json:"imports"`
}

// Stats summarises a project's stored graph.
type Stats struct {
	TotalFiles         int `json:"totalFiles"`
	TotalSymbols       int `json:"totalSymbols"`
	TotalRelationships int `json:"totalRelationships"`
}
