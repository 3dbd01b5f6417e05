package graph

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// goExtractor extracts symbols and imports from Go source files.
type goExtractor struct{}

func (e *goExtractor) Extract(fileID string, root *tree_sitter.Node, source []byte, result *ParseResult) {
	// Methods attach to a type declared earlier in the same file.
	types := make(map[string]string)

	for _, node := range children(root) {
		switch node.Kind() {
		case "import_declaration":
			e.extractImports(node, source, result)
		case "function_declaration":
			e.extractFunction(fileID, node, source, result)
		case "method_declaration":
			e.extractMethod(fileID, node, source, result, types)
		case "type_declaration":
			e.extractTypeDeclaration(fileID, node, source, result, types)
		case "const_declaration":
			e.extractValues(fileID, node, "const_spec", SymbolKindConstant, source, result)
		case "var_declaration":
			e.extractValues(fileID, node, "var_spec", SymbolKindVariable, source, result)
		}
	}
}

func (e *goExtractor) extractImports(node *tree_sitter.Node, source []byte, result *ParseResult) {
	for _, child := range children(node) {
		switch child.Kind() {
		case "import_spec":
			e.extractImport(child, source, result)
		case "import_spec_list":
			for _, spec := range children(child) {
				if spec.Kind() == "import_spec" {
					e.extractImport(spec, source, result)
				}
			}
		}
	}
}

func (e *goExtractor) extractImport(node *tree_sitter.Node, source []byte, result *ParseResult) {
	pathNode := node.ChildByFieldName("path")
	if pathNode == nil {
		pathNode = findChildAny(node, "interpreted_string_literal", "raw_string_literal")
	}
	importPath := trimQuotes(nodeText(pathNode, source))
	if importPath == "" {
		return
	}
	info := ImportInfo{Source: importPath, IsDefault: true, Line: nodeLine(node)}
	if alias := node.ChildByFieldName("name"); alias != nil {
		info.Names = []string{nodeText(alias, source)}
	}
	result.Imports = append(result.Imports, info)
}

func (e *goExtractor) extractFunction(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult) {
	name := nodeText(node.ChildByFieldName("name"), source)
	if name == "" {
		name = "anonymous"
	}
	sym := newSymbol(fileID, name, SymbolKindFunction, node)
	sym.Signature = "func " + name + e.params(node, source) + e.result(node, source)
	sym.Documentation = precedingComments(node, source)
	sym.Exported = isGoExported(name)
	result.Symbols = append(result.Symbols, sym)
}

func (e *goExtractor) extractMethod(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult, types map[string]string) {
	name := nodeText(node.ChildByFieldName("name"), source)
	if name == "" {
		name = "anonymous"
	}

	recv, recvType := e.receiver(node, source)
	signature := "func " + name
	if recv != "" {
		signature = "func (" + recv + ") " + name
	}

	sym := newSymbol(fileID, name, SymbolKindMethod, node)
	sym.Signature = signature + e.params(node, source) + e.result(node, source)
	sym.Documentation = precedingComments(node, source)
	sym.Exported = isGoExported(name)
	sym.ParentID = types[recvType]
	result.Symbols = append(result.Symbols, sym)
}

// receiver returns the receiver type as written ("*Server") and the bare
// type name ("Server").
func (e *goExtractor) receiver(node *tree_sitter.Node, source []byte) (string, string) {
	list := node.ChildByFieldName("receiver")
	decl := findChild(list, "parameter_declaration")
	if decl == nil {
		return "", ""
	}
	typ := decl.ChildByFieldName("type")
	if typ == nil {
		typ = findChildAny(decl, "type_identifier", "pointer_type")
	}
	text := nodeText(typ, source)
	bare := strings.TrimPrefix(text, "*")
	if i := strings.IndexByte(bare, '['); i >= 0 {
		bare = bare[:i]
	}
	return text, bare
}

func (e *goExtractor) params(node *tree_sitter.Node, source []byte) string {
	if p := node.ChildByFieldName("parameters"); p != nil {
		return nodeText(p, source)
	}
	return "()"
}

func (e *goExtractor) result(node *tree_sitter.Node, source []byte) string {
	if r := node.ChildByFieldName("result"); r != nil {
		return " " + nodeText(r, source)
	}
	return ""
}

func (e *goExtractor) extractTypeDeclaration(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult, types map[string]string) {
	doc := precedingComments(node, source)
	for _, spec := range children(node) {
		if spec.Kind() != "type_spec" && spec.Kind() != "type_alias" {
			continue
		}
		name := nodeText(spec.ChildByFieldName("name"), source)
		if name == "" {
			continue
		}

		kind := SymbolKindType
		keyword := "type " + name
		typ := spec.ChildByFieldName("type")
		if typ != nil {
			switch typ.Kind() {
			case "struct_type":
				kind = SymbolKindStruct
				keyword += " struct"
			case "interface_type":
				kind = SymbolKindInterface
				keyword += " interface"
			default:
				keyword += " " + nodeText(typ, source)
			}
		}

		sym := newSymbol(fileID, name, kind, spec)
		sym.Signature = keyword
		sym.Documentation = doc
		sym.Exported = isGoExported(name)
		result.Symbols = append(result.Symbols, sym)
		types[name] = sym.ID

		if kind == SymbolKindStruct {
			e.extractFields(fileID, typ, source, result, sym.ID)
		}
	}
}

func (e *goExtractor) extractFields(fileID string, structType *tree_sitter.Node, source []byte, result *ParseResult, parentID string) {
	list := findChild(structType, "field_declaration_list")
	for _, decl := range children(list) {
		if decl.Kind() != "field_declaration" {
			continue
		}
		typeText := nodeText(decl.ChildByFieldName("type"), source)
		names := 0
		for _, child := range children(decl) {
			if child.Kind() != "field_identifier" {
				continue
			}
			names++
			name := nodeText(child, source)
			sym := newSymbol(fileID, name, SymbolKindField, decl)
			sym.Signature = name + " " + typeText
			sym.Exported = isGoExported(name)
			sym.ParentID = parentID
			result.Symbols = append(result.Symbols, sym)
		}
		if names == 0 && typeText != "" {
			// Embedded field: named after its type.
			name := strings.TrimPrefix(typeText, "*")
			if i := strings.LastIndexByte(name, '.'); i >= 0 {
				name = name[i+1:]
			}
			sym := newSymbol(fileID, name, SymbolKindField, decl)
			sym.Signature = typeText
			sym.Exported = isGoExported(name)
			sym.ParentID = parentID
			result.Symbols = append(result.Symbols, sym)
		}
	}
}

func (e *goExtractor) extractValues(fileID string, node *tree_sitter.Node, specKind string, kind SymbolKind, source []byte, result *ParseResult) {
	var specs []*tree_sitter.Node
	for _, child := range children(node) {
		switch child.Kind() {
		case specKind:
			specs = append(specs, child)
		case "var_spec_list", "const_spec_list":
			for _, s := range children(child) {
				if s.Kind() == specKind {
					specs = append(specs, s)
				}
			}
		}
	}

	for _, spec := range specs {
		for _, ident := range children(spec) {
			if ident.Kind() != "identifier" {
				continue
			}
			name := nodeText(ident, source)
			if name == "_" {
				continue
			}
			sym := newSymbol(fileID, name, kind, spec)
			sym.Exported = isGoExported(name)
			result.Symbols = append(result.Symbols, sym)
		}
	}
}

// isGoExported returns true if the first rune of name is an uppercase letter.
func isGoExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
