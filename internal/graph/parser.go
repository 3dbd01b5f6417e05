package graph

import "context"

// Parser extracts symbols and raw imports from one source file.
// Implementations: TreeSitterParser (production); tests supply their own to
// inject faults.
type Parser interface {
	// Parse extracts the structure of a single file. fileID is the id the
	// extracted symbols will reference; path is used for grammar selection
	// and error reporting. lang must be a parseable language.
	Parse(ctx context.Context, fileID, path string, source []byte, lang Language) (*ParseResult, error)

	// SupportedLanguages returns the languages this parser can handle.
	SupportedLanguages() []Language
}
