package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractor walks a parsed tree and appends symbols and imports to result.
type extractor interface {
	Extract(fileID string, root *tree_sitter.Node, source []byte, result *ParseResult)
}

// TreeSitterParser implements Parser on top of a shared ParserCache. It is
// safe for concurrent use.
type TreeSitterParser struct {
	cache      *ParserCache
	extractors map[Language]extractor
}

// NewTreeSitterParser creates a parser backed by cache. A nil cache gets a
// fresh one.
func NewTreeSitterParser(cache *ParserCache) *TreeSitterParser {
	if cache == nil {
		cache = NewParserCache()
	}
	return &TreeSitterParser{
		cache: cache,
		extractors: map[Language]extractor{
			LangTypeScript: &tsExtractor{},
			LangJavaScript: &tsExtractor{},
			LangPython:     &pyExtractor{},
			LangGo:         &goExtractor{},
			LangRust:       &rsExtractor{},
			LangC:          &cExtractor{},
		},
	}
}

// Parse extracts symbols and raw imports from a single source file.
func (p *TreeSitterParser) Parse(_ context.Context, fileID, path string, source []byte, lang Language) (*ParseResult, error) {
	if !lang.RequiresParsing() {
		return nil, fmt.Errorf("internal error: deep parse requested for %s (%s): %w", path, lang, ErrDiscoveryOnly)
	}
	ext, ok := p.extractors[lang]
	if !ok {
		return nil, fmt.Errorf("no extractor for language: %s", lang)
	}

	tree, err := p.cache.Parse(path, lang, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	result := &ParseResult{}
	ext.Extract(fileID, tree.RootNode(), source, result)
	return result, nil
}

// SupportedLanguages returns the languages this parser can handle, sorted.
func (p *TreeSitterParser) SupportedLanguages() []Language {
	langs := make([]Language, 0, len(p.extractors))
	for l := range p.extractors {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// --- Shared extraction helpers ---

func newSymbol(fileID, name string, kind SymbolKind, node *tree_sitter.Node) Symbol {
	start := node.StartPosition()
	end := node.EndPosition()
	endLine := int(end.Row) + 1
	endCol := int(end.Column) + 1
	return Symbol{
		ID:        uuid.NewString(),
		FileID:    fileID,
		Name:      name,
		Kind:      kind,
		Line:      int(start.Row) + 1,
		Column:    int(start.Column) + 1,
		EndLine:   &endLine,
		EndColumn: &endCol,
	}
}

func nodeText(node *tree_sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return node.Utf8Text(source)
}

func nodeLine(node *tree_sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// children returns the direct children of node, named or not.
func children(node *tree_sitter.Node) []*tree_sitter.Node {
	if node == nil {
		return nil
	}
	count := node.ChildCount()
	out := make([]*tree_sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		if child := node.Child(i); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// findChild returns the first direct child of the given kind.
func findChild(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	for _, child := range children(node) {
		if child.Kind() == kind {
			return child
		}
	}
	return nil
}

// findChildAny returns the first direct child matching any of kinds.
func findChildAny(node *tree_sitter.Node, kinds ...string) *tree_sitter.Node {
	for _, child := range children(node) {
		for _, k := range kinds {
			if child.Kind() == k {
				return child
			}
		}
	}
	return nil
}

func trimQuotes(s string) string {
	return strings.Trim(s, "\"'`")
}

func isComment(node *tree_sitter.Node) bool {
	switch node.Kind() {
	case "comment", "line_comment", "block_comment":
		return true
	}
	return false
}

// precedingComments joins the comments directly above node, markers removed.
func precedingComments(node *tree_sitter.Node, source []byte) string {
	var lines []string
	expect := node.StartPosition().Row
	for prev := node.PrevSibling(); prev != nil && isComment(prev); prev = prev.PrevSibling() {
		if prev.EndPosition().Row+1 < expect {
			break
		}
		expect = prev.StartPosition().Row
		text := strings.TrimSpace(nodeText(prev, source))
		for _, marker := range []string{"///", "//!", "//"} {
			if strings.HasPrefix(text, marker) {
				text = text[len(marker):]
				break
			}
		}
		text = strings.TrimPrefix(strings.TrimSuffix(text, "*/"), "/*")
		lines = append([]string{strings.TrimSpace(text)}, lines...)
	}
	return strings.Join(lines, "\n")
}
