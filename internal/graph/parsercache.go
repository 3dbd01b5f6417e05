package graph

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// grammarKey selects a grammar. It is the language name, except for .tsx
// files which need the TSX dialect of the TypeScript grammar.
type grammarKey string

const grammarTSX grammarKey = "tsx"

var grammarLoaders = map[grammarKey]func() unsafe.Pointer{
	grammarKey(LangTypeScript): tree_sitter_typescript.LanguageTypescript,
	grammarTSX:                 tree_sitter_typescript.LanguageTSX,
	grammarKey(LangJavaScript): tree_sitter_javascript.Language,
	grammarKey(LangPython):     tree_sitter_python.Language,
	grammarKey(LangGo):         tree_sitter_go.Language,
	grammarKey(LangRust):       tree_sitter_rust.Language,
	grammarKey(LangC):          tree_sitter_c.Language,
}

func grammarFor(lang Language, path string) grammarKey {
	if lang == LangTypeScript && strings.EqualFold(filepath.Ext(path), ".tsx") {
		return grammarTSX
	}
	return grammarKey(lang)
}

// cacheEntry is one constructed engine: the grammar plus a pool of parsers
// configured for it. tree-sitter parsers are not safe for concurrent use, so
// each Parse call leases its own.
type cacheEntry struct {
	lang *tree_sitter.Language
	pool sync.Pool
}

func newCacheEntry(lang *tree_sitter.Language) *cacheEntry {
	e := &cacheEntry{lang: lang}
	e.pool.New = func() any {
		sp := tree_sitter.NewParser()
		if err := sp.SetLanguage(lang); err != nil {
			sp.Close()
			return nil
		}
		return sp
	}
	return e
}

// ParserCache holds one lazily built engine per grammar, shared by all
// workers of a run. Only construction takes the lock.
//
// A panic while an entry is being built leaves no entry behind, so the next
// request rebuilds it. A panic while parsing closes the leased parser and
// discards the whole entry, which is rebuilt on the next request.
type ParserCache struct {
	mu      sync.Mutex
	entries map[grammarKey]*cacheEntry

	// load builds the grammar for a key and parse runs one parser. Both are
	// replaced in tests.
	load  func(grammarKey) (*tree_sitter.Language, error)
	parse func(*tree_sitter.Parser, []byte) *tree_sitter.Tree
}

// NewParserCache returns an empty cache.
func NewParserCache() *ParserCache {
	return &ParserCache{
		entries: make(map[grammarKey]*cacheEntry),
		load:    loadGrammar,
		parse:   runParser,
	}
}

func runParser(sp *tree_sitter.Parser, source []byte) *tree_sitter.Tree {
	return sp.Parse(source, nil)
}

func loadGrammar(key grammarKey) (*tree_sitter.Language, error) {
	loader, ok := grammarLoaders[key]
	if !ok {
		return nil, fmt.Errorf("no grammar for %s", key)
	}
	return tree_sitter.NewLanguage(loader()), nil
}

func (c *ParserCache) entry(key grammarKey) (*cacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		return e, nil
	}
	lang, err := c.load(key)
	if err != nil {
		return nil, err
	}
	e := newCacheEntry(lang)
	c.entries[key] = e
	return e, nil
}

// Parse parses source with the grammar for lang and returns the syntax tree.
// The caller owns the tree and must Close it. A missing tree is reported as
// a *ParseError naming path.
func (c *ParserCache) Parse(path string, lang Language, source []byte) (*tree_sitter.Tree, error) {
	if !lang.RequiresParsing() {
		return nil, fmt.Errorf("parser cache: %s (%s): %w", path, lang, ErrDiscoveryOnly)
	}

	key := grammarFor(lang, path)
	e, err := c.entry(key)
	if err != nil {
		return nil, err
	}

	sp, _ := e.pool.Get().(*tree_sitter.Parser)
	if sp == nil {
		return nil, &ParseError{File: path, Message: fmt.Sprintf("cannot configure %s parser", lang)}
	}

	clean := false
	defer func() {
		if clean {
			sp.Reset()
			e.pool.Put(sp)
			return
		}
		sp.Close()
		c.discard(key, e)
	}()

	tree := c.parse(sp, source)
	clean = true
	if tree == nil {
		return nil, &ParseError{File: path, Message: "parser produced no tree"}
	}
	return tree, nil
}

// discard drops the entry for key if it is still e, so a concurrent rebuild
// is not thrown away.
func (c *ParserCache) discard(key grammarKey, e *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[key] == e {
		delete(c.entries, key)
	}
}

// loaded reports whether an engine for lang has been built.
func (c *ParserCache) loaded(lang Language) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[grammarKey(lang)]
	return ok
}
