package graph

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// findSymbol returns the first Symbol whose Name matches, or nil.
func findSymbol(symbols []Symbol, name string) *Symbol {
	for i := range symbols {
		if symbols[i].Name == name {
			return &symbols[i]
		}
	}
	return nil
}

// findImport returns the first ImportInfo whose Source matches, or nil.
func findImport(imports []ImportInfo, source string) *ImportInfo {
	for i := range imports {
		if imports[i].Source == source {
			return &imports[i]
		}
	}
	return nil
}

// readFixture reads a test fixture file relative to the project root.
// Tests run from internal/graph/, so the relative path is ../../testdata/...
func readFixture(t *testing.T, relPath string) []byte {
	t.Helper()
	data, err := os.ReadFile("../../" + relPath)
	require.NoError(t, err, "reading fixture %s", relPath)
	return data
}

func parseFixture(t *testing.T, relPath string, lang Language) *ParseResult {
	t.Helper()
	p := NewTreeSitterParser(nil)
	result, err := p.Parse(context.Background(), "file-1", relPath, readFixture(t, relPath), lang)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

// assertWellFormed checks the positional and parent invariants every
// extractor must hold.
func assertWellFormed(t *testing.T, result *ParseResult) {
	t.Helper()
	seen := make(map[string]bool)
	for _, sym := range result.Symbols {
		assert.Equal(t, "file-1", sym.FileID, "%s", sym.Name)
		assert.GreaterOrEqual(t, sym.Line, 1, "line for %s", sym.Name)
		assert.GreaterOrEqual(t, sym.Column, 1, "column for %s", sym.Name)
		if sym.EndLine != nil {
			assert.GreaterOrEqual(t, *sym.EndLine, sym.Line, "end line for %s", sym.Name)
		}
		if sym.ParentID != "" {
			assert.True(t, seen[sym.ParentID], "parent of %s must be an earlier symbol in the same file", sym.Name)
		}
		assert.NotEmpty(t, sym.ID)
		seen[sym.ID] = true
	}
	for _, imp := range result.Imports {
		assert.NotEmpty(t, imp.Source)
		assert.GreaterOrEqual(t, imp.Line, 1)
	}
}

// ---------------------------------------------------------------------------
// Parser surface
// ---------------------------------------------------------------------------

func TestTreeSitterParser_SupportedLanguages(t *testing.T) {
	p := NewTreeSitterParser(nil)
	assert.Equal(t, []Language{LangC, LangGo, LangJavaScript, LangPython, LangRust, LangTypeScript}, p.SupportedLanguages())
}

func TestTreeSitterParser_DiscoveryOnlyLanguage(t *testing.T) {
	p := NewTreeSitterParser(nil)
	for _, lang := range []Language{LangSwift, LangJSON, LangMarkdown} {
		_, err := p.Parse(context.Background(), "f", "x", []byte("anything"), lang)
		require.Error(t, err, "%s", lang)
		assert.ErrorIs(t, err, ErrDiscoveryOnly)
		assert.Contains(t, err.Error(), "internal error")
	}
	assert.False(t, p.cache.loaded(LangSwift), "no grammar is ever built for discovery-only languages")
}

func TestTreeSitterParser_EmptyFile(t *testing.T) {
	p := NewTreeSitterParser(nil)
	for _, lang := range p.SupportedLanguages() {
		result, err := p.Parse(context.Background(), "f", "empty", nil, lang)
		require.NoError(t, err, "%s", lang)
		assert.Empty(t, result.Symbols, "%s", lang)
		assert.Empty(t, result.Imports, "%s", lang)
	}
}

func TestTreeSitterParser_SyntaxErrorsStillExtract(t *testing.T) {
	p := NewTreeSitterParser(nil)
	src := []byte("def ok():\n    pass\n\ndef broken(:\n")
	result, err := p.Parse(context.Background(), "f", "bad.py", src, LangPython)
	require.NoError(t, err)
	assert.NotNil(t, findSymbol(result.Symbols, "ok"))
}

// ---------------------------------------------------------------------------
// Go
// ---------------------------------------------------------------------------

func TestTreeSitterParser_Go(t *testing.T) {
	model := parseFixture(t, "testdata/fixtures/go_project/model.go", LangGo)
	assertWellFormed(t, model)

	user := findSymbol(model.Symbols, "User")
	require.NotNil(t, user)
	assert.Equal(t, SymbolKindStruct, user.Kind)
	assert.True(t, user.Exported)
	assert.Equal(t, "User represents a system user.", user.Documentation)

	for _, field := range []string{"ID", "Name", "Email"} {
		f := findSymbol(model.Symbols, field)
		require.NotNil(t, f, "field %s", field)
		assert.Equal(t, SymbolKindField, f.Kind)
		assert.Equal(t, user.ID, f.ParentID)
	}

	repo := findSymbol(model.Symbols, "Repository")
	require.NotNil(t, repo)
	assert.Equal(t, SymbolKindInterface, repo.Kind)

	newUser := findSymbol(model.Symbols, "newUser")
	require.NotNil(t, newUser)
	assert.Equal(t, SymbolKindFunction, newUser.Kind)
	assert.False(t, newUser.Exported)
	assert.Equal(t, "func newUser(name, email string) *User", newUser.Signature)

	service := parseFixture(t, "testdata/fixtures/go_project/service.go", LangGo)
	assertWellFormed(t, service)

	require.Len(t, service.Imports, 1)
	assert.Equal(t, "fmt", service.Imports[0].Source)
	assert.Equal(t, 3, service.Imports[0].Line)

	svc := findSymbol(service.Symbols, "UserService")
	require.NotNil(t, svc)
	get := findSymbol(service.Symbols, "GetUser")
	require.NotNil(t, get)
	assert.Equal(t, SymbolKindMethod, get.Kind)
	assert.Equal(t, svc.ID, get.ParentID)
	assert.Equal(t, "func (*UserService) GetUser(id int) (*User, error)", get.Signature)
	assert.Equal(t, "GetUser retrieves a user by ID.", get.Documentation)

	ctor := findSymbol(service.Symbols, "NewUserService")
	require.NotNil(t, ctor)
	assert.True(t, ctor.Exported)
	assert.Empty(t, ctor.ParentID)
}

func TestTreeSitterParser_GoExportHeuristic(t *testing.T) {
	src := []byte("package p\n\nfunc Greet() {}\n\nfunc privateFunc() {}\n\nconst Limit = 1\n\nvar _ = 2\n")
	result, err := NewTreeSitterParser(nil).Parse(context.Background(), "f", "p.go", src, LangGo)
	require.NoError(t, err)

	require.NotNil(t, findSymbol(result.Symbols, "Greet"))
	assert.True(t, findSymbol(result.Symbols, "Greet").Exported)
	require.NotNil(t, findSymbol(result.Symbols, "privateFunc"))
	assert.False(t, findSymbol(result.Symbols, "privateFunc").Exported)
	limit := findSymbol(result.Symbols, "Limit")
	require.NotNil(t, limit)
	assert.Equal(t, SymbolKindConstant, limit.Kind)
	assert.Nil(t, findSymbol(result.Symbols, "_"), "blank identifiers are not symbols")
}

func TestTreeSitterParser_GoGroupedImports(t *testing.T) {
	src := []byte("package p\n\nimport (\n\t\"fmt\"\n\tstr \"strings\"\n)\n")
	result, err := NewTreeSitterParser(nil).Parse(context.Background(), "f", "p.go", src, LangGo)
	require.NoError(t, err)
	require.Len(t, result.Imports, 2)
	assert.Equal(t, "fmt", result.Imports[0].Source)
	assert.Equal(t, "strings", result.Imports[1].Source)
	assert.Equal(t, []string{"str"}, result.Imports[1].Names)
}

// ---------------------------------------------------------------------------
// TypeScript / JavaScript
// ---------------------------------------------------------------------------

func TestTreeSitterParser_TypeScript(t *testing.T) {
	result := parseFixture(t, "testdata/fixtures/mixed_project/src/app.ts", LangTypeScript)
	assertWellFormed(t, result)

	require.Len(t, result.Imports, 3)
	utils := findImport(result.Imports, "./utils")
	require.NotNil(t, utils)
	assert.Equal(t, []string{"formatName", "MAX_USERS"}, utils.Names)
	assert.False(t, utils.IsDefault)
	assert.Equal(t, 1, utils.Line)

	lib := findImport(result.Imports, "./lib")
	require.NotNil(t, lib)
	assert.Equal(t, []string{"* as lib"}, lib.Names)

	react := findImport(result.Imports, "react")
	require.NotNil(t, react)
	assert.True(t, react.IsDefault)
	assert.Equal(t, []string{"React"}, react.Names)

	cfg := findSymbol(result.Symbols, "AppConfig")
	require.NotNil(t, cfg)
	assert.Equal(t, SymbolKindInterface, cfg.Kind)
	assert.True(t, cfg.Exported)

	app := findSymbol(result.Symbols, "App")
	require.NotNil(t, app)
	assert.Equal(t, SymbolKindClass, app.Kind)
	assert.True(t, app.Exported)
	assert.Equal(t, "class App extends Base", app.Signature)
	assert.Equal(t, 9, app.Line)

	render := findSymbol(result.Symbols, "render")
	require.NotNil(t, render)
	assert.Equal(t, SymbolKindMethod, render.Kind)
	assert.Equal(t, app.ID, render.ParentID)

	title := findSymbol(result.Symbols, "title")
	require.NotNil(t, title)
	assert.Equal(t, SymbolKindProperty, title.Kind)
	assert.Equal(t, app.ID, title.ParentID)

	start := findSymbol(result.Symbols, "start")
	require.NotNil(t, start)
	assert.Equal(t, SymbolKindFunction, start.Kind, "arrow-function constants are functions")
	assert.True(t, start.Exported)

	helper := findSymbol(result.Symbols, "internalHelper")
	require.NotNil(t, helper)
	assert.False(t, helper.Exported)
	assert.Equal(t, "function internalHelper(): void", helper.Signature)
}

func TestTreeSitterParser_TypeScriptDeclarations(t *testing.T) {
	result := parseFixture(t, "testdata/fixtures/mixed_project/src/utils.ts", LangTypeScript)
	assertWellFormed(t, result)

	tests := []struct {
		name string
		kind SymbolKind
	}{
		{"MAX_USERS", SymbolKindVariable},
		{"formatName", SymbolKindFunction},
		{"Formatter", SymbolKindType},
		{"Level", SymbolKindEnum},
	}
	for _, tt := range tests {
		sym := findSymbol(result.Symbols, tt.name)
		require.NotNil(t, sym, tt.name)
		assert.Equal(t, tt.kind, sym.Kind, tt.name)
		assert.True(t, sym.Exported, tt.name)
	}
	assert.Equal(t, "function formatName(name: string): string", findSymbol(result.Symbols, "formatName").Signature)
}

func TestTreeSitterParser_TypeScriptReExport(t *testing.T) {
	result := parseFixture(t, "testdata/fixtures/mixed_project/src/lib/index.ts", LangTypeScript)
	assertWellFormed(t, result)

	reexport := findImport(result.Imports, "../utils")
	require.NotNil(t, reexport, "re-exports depend on their source module")
	assert.Equal(t, 1, reexport.Line)

	assert.Nil(t, findSymbol(result.Symbols, "formatName"), "re-exported names are not local symbols")
	lib := findSymbol(result.Symbols, "lib")
	require.NotNil(t, lib)
	assert.True(t, lib.Exported)
}

func TestTreeSitterParser_ExportByReference(t *testing.T) {
	src := []byte("export { helper, later };\n" +
		"function helper() {}\n" +
		"function hidden() {}\n" +
		"const later = 1;\n" +
		"class Page {}\n" +
		"export default Page;\n")

	result, err := NewTreeSitterParser(nil).Parse(context.Background(), "file-1", "mod.ts", src, LangTypeScript)
	require.NoError(t, err)
	assertWellFormed(t, result)

	for name, exported := range map[string]bool{
		"helper": true,
		"later":  true,
		"Page":   true,
		"hidden": false,
	} {
		sym := findSymbol(result.Symbols, name)
		require.NotNil(t, sym, name)
		assert.Equal(t, exported, sym.Exported, name)
	}
}

func TestTreeSitterParser_TSX(t *testing.T) {
	result := parseFixture(t, "testdata/fixtures/mixed_project/src/components/Button.tsx", LangTypeScript)
	assertWellFormed(t, result)

	require.NotNil(t, findImport(result.Imports, "../app"))
	button := findSymbol(result.Symbols, "Button")
	require.NotNil(t, button)
	assert.Equal(t, SymbolKindFunction, button.Kind)
	assert.True(t, button.Exported)
}

func TestTreeSitterParser_JavaScript(t *testing.T) {
	result := parseFixture(t, "testdata/fixtures/mixed_project/web/main.js", LangJavaScript)
	assertWellFormed(t, result)

	req := findImport(result.Imports, "./helpers")
	require.NotNil(t, req, "require() calls are imports")
	assert.True(t, req.IsDefault)

	widget := findSymbol(result.Symbols, "Widget")
	require.NotNil(t, widget)
	assert.Equal(t, SymbolKindClass, widget.Kind)
	assert.Equal(t, "class Widget extends HTMLElement", widget.Signature)

	cb := findSymbol(result.Symbols, "connectedCallback")
	require.NotNil(t, cb)
	assert.Equal(t, widget.ID, cb.ParentID)

	mount := findSymbol(result.Symbols, "mount")
	require.NotNil(t, mount)
	assert.True(t, mount.Exported)
}

func TestTreeSitterParser_FunctionValuedVariables(t *testing.T) {
	src := []byte("const a = (x, y) => x + y;\n" +
		"let b = function(z) { return z; };\n" +
		"var c = function*() {};\n" +
		"const d = n => n;\n")

	p := NewTreeSitterParser(nil)
	result, err := p.Parse(context.Background(), "file-1", "vars.js", src, LangJavaScript)
	require.NoError(t, err)
	assertWellFormed(t, result)

	tests := []struct {
		name      string
		signature string
	}{
		{"a", "const a = (x, y) =>"},
		{"b", "let b = function(z)"},
		{"c", "var c = function*()"},
		{"d", "const d = n =>"},
	}
	for _, tt := range tests {
		sym := findSymbol(result.Symbols, tt.name)
		require.NotNil(t, sym, tt.name)
		assert.Equal(t, SymbolKindFunction, sym.Kind, tt.name)
		assert.Equal(t, tt.signature, sym.Signature, tt.name)
	}
}

// ---------------------------------------------------------------------------
// Python
// ---------------------------------------------------------------------------

func TestTreeSitterParser_Python(t *testing.T) {
	result := parseFixture(t, "testdata/fixtures/mixed_project/py/app/service.py", LangPython)
	assertWellFormed(t, result)

	require.Len(t, result.Imports, 3)
	assert.Equal(t, "os", result.Imports[0].Source)
	assert.True(t, result.Imports[0].IsDefault)
	assert.Equal(t, ".models", result.Imports[1].Source)
	assert.Equal(t, []string{"User", "_Private"}, result.Imports[1].Names)
	assert.Equal(t, ".", result.Imports[2].Source)
	assert.Equal(t, []string{"models"}, result.Imports[2].Names)

	maxRetries := findSymbol(result.Symbols, "MAX_RETRIES")
	require.NotNil(t, maxRetries)
	assert.Equal(t, SymbolKindConstant, maxRetries.Kind)

	svc := findSymbol(result.Symbols, "UserService")
	require.NotNil(t, svc)
	assert.Equal(t, SymbolKindClass, svc.Kind)
	assert.Equal(t, "class UserService(Base)", svc.Signature)
	assert.Equal(t, "Coordinates user operations.", svc.Documentation)

	for _, name := range []string{"__init__", "_validate", "name"} {
		m := findSymbol(result.Symbols, name)
		require.NotNil(t, m, name)
		assert.Equal(t, SymbolKindMethod, m.Kind, name)
		assert.Equal(t, svc.ID, m.ParentID, name)
	}

	create := findSymbol(result.Symbols, "create_user")
	require.NotNil(t, create)
	assert.Equal(t, SymbolKindFunction, create.Kind)
	assert.Equal(t, "def create_user(name: str) -> User", create.Signature)
	assert.Equal(t, "Create a user.", create.Documentation)
}

func TestTreeSitterParser_PythonExportHeuristic(t *testing.T) {
	result := parseFixture(t, "testdata/fixtures/mixed_project/py/app/service.py", LangPython)

	tests := []struct {
		name     string
		exported bool
	}{
		{"create_user", true},
		{"__init__", true},
		{"_helper", false},
		{"_validate", false},
	}
	for _, tt := range tests {
		sym := findSymbol(result.Symbols, tt.name)
		require.NotNil(t, sym, tt.name)
		assert.Equal(t, tt.exported, sym.Exported, tt.name)
	}
}

// ---------------------------------------------------------------------------
// Rust
// ---------------------------------------------------------------------------

func TestTreeSitterParser_Rust(t *testing.T) {
	result := parseFixture(t, "testdata/fixtures/mixed_project/rs/lib.rs", LangRust)
	assertWellFormed(t, result)

	mod := findImport(result.Imports, "./models")
	require.NotNil(t, mod, "mod declarations without a body import the sibling file")
	assert.Equal(t, 1, mod.Line)
	assert.NotNil(t, findImport(result.Imports, "std::collections::HashMap"))
	assert.NotNil(t, findImport(result.Imports, "crate::models::{User, Role}"))

	models := findSymbol(result.Symbols, "models")
	require.NotNil(t, models)
	assert.Equal(t, SymbolKindModule, models.Kind)

	greet := findSymbol(result.Symbols, "greet")
	require.NotNil(t, greet)
	assert.True(t, greet.Exported)
	assert.Equal(t, "fn greet(name: &str) -> String", greet.Signature)
	assert.Equal(t, "Greets a user.", greet.Documentation)

	private := findSymbol(result.Symbols, "private_func")
	require.NotNil(t, private)
	assert.False(t, private.Exported)

	fetch := findSymbol(result.Symbols, "fetch")
	require.NotNil(t, fetch)
	assert.Equal(t, "async fn fetch()", fetch.Signature)
}

func TestTreeSitterParser_RustTypes(t *testing.T) {
	result := parseFixture(t, "testdata/fixtures/mixed_project/rs/models.rs", LangRust)
	assertWellFormed(t, result)

	user := findSymbol(result.Symbols, "User")
	require.NotNil(t, user)
	assert.Equal(t, SymbolKindStruct, user.Kind)
	assert.True(t, user.Exported)

	name := findSymbol(result.Symbols, "name")
	require.NotNil(t, name)
	assert.Equal(t, SymbolKindField, name.Kind)
	assert.True(t, name.Exported)
	age := findSymbol(result.Symbols, "age")
	require.NotNil(t, age)
	assert.False(t, age.Exported)
	assert.Equal(t, user.ID, age.ParentID)

	ctor := findSymbol(result.Symbols, "new")
	require.NotNil(t, ctor)
	assert.Equal(t, SymbolKindMethod, ctor.Kind)
	assert.Equal(t, user.ID, ctor.ParentID, "impl methods attach to the struct")

	role := findSymbol(result.Symbols, "Role")
	require.NotNil(t, role)
	assert.Equal(t, SymbolKindEnum, role.Kind)

	named := findSymbol(result.Symbols, "Named")
	require.NotNil(t, named)
	assert.Equal(t, SymbolKindInterface, named.Kind)

	kinds := map[string]SymbolKind{"MAX": SymbolKindConstant, "COUNTER": SymbolKindVariable, "Id": SymbolKindType}
	for n, kind := range kinds {
		sym := findSymbol(result.Symbols, n)
		require.NotNil(t, sym, n)
		assert.Equal(t, kind, sym.Kind, n)
	}
	assert.False(t, findSymbol(result.Symbols, "COUNTER").Exported)
}

func TestTreeSitterParser_RustImplWithoutType(t *testing.T) {
	src := []byte("impl Remote {\n    fn ping(&self) {}\n}\n")
	result, err := NewTreeSitterParser(nil).Parse(context.Background(), "f", "r.rs", src, LangRust)
	require.NoError(t, err)

	ping := findSymbol(result.Symbols, "ping")
	require.NotNil(t, ping)
	assert.Equal(t, SymbolKindMethod, ping.Kind)
	assert.Empty(t, ping.ParentID, "types from other files are never linked")
}

// ---------------------------------------------------------------------------
// C
// ---------------------------------------------------------------------------

func TestTreeSitterParser_C(t *testing.T) {
	result := parseFixture(t, "testdata/fixtures/mixed_project/c/main.c", LangC)
	assertWellFormed(t, result)

	require.Len(t, result.Imports, 2)
	assert.Equal(t, "util.h", result.Imports[0].Source)
	assert.Equal(t, "stdlib.h", result.Imports[1].Source)

	limit := findSymbol(result.Symbols, "LIMIT")
	require.NotNil(t, limit)
	assert.Equal(t, SymbolKindConstant, limit.Kind)
	assert.False(t, limit.Exported)

	counter := findSymbol(result.Symbols, "counter")
	require.NotNil(t, counter)
	assert.Equal(t, SymbolKindVariable, counter.Kind)
	assert.True(t, counter.Exported)

	node := findSymbol(result.Symbols, "Node")
	require.NotNil(t, node)
	assert.Equal(t, SymbolKindStruct, node.Kind)
	next := findSymbol(result.Symbols, "next")
	require.NotNil(t, next)
	assert.Equal(t, node.ID, next.ParentID)

	color := findSymbol(result.Symbols, "Color")
	require.NotNil(t, color)
	assert.Equal(t, SymbolKindEnum, color.Kind)
	red := findSymbol(result.Symbols, "RED")
	require.NotNil(t, red)
	assert.Equal(t, color.ID, red.ParentID)

	helper := findSymbol(result.Symbols, "helper")
	require.NotNil(t, helper)
	assert.False(t, helper.Exported)
	assert.Equal(t, "void helper(void)", helper.Signature)

	add := findSymbol(result.Symbols, "add")
	require.NotNil(t, add)
	assert.True(t, add.Exported)
	assert.Equal(t, "int add(int a, int b)", add.Signature)

	assert.NotNil(t, findSymbol(result.Symbols, "main"))
}

func TestTreeSitterParser_CHeader(t *testing.T) {
	result := parseFixture(t, "testdata/fixtures/mixed_project/c/util.h", LangC)
	assertWellFormed(t, result)

	require.NotNil(t, findImport(result.Imports, "stdio.h"), "includes inside include guards are found")

	var point []Symbol
	for _, s := range result.Symbols {
		if s.Name == "Point" {
			point = append(point, s)
		}
	}
	require.Len(t, point, 2, "anonymous struct body and the typedef both carry the typedef name")
	assert.Equal(t, SymbolKindStruct, point[0].Kind)
	assert.Equal(t, SymbolKindType, point[1].Kind)

	add := findSymbol(result.Symbols, "add")
	require.NotNil(t, add, "prototypes are functions")
	assert.Equal(t, SymbolKindFunction, add.Kind)
}
