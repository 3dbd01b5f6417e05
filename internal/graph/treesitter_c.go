package graph

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// cExtractor extracts symbols and includes from C sources and headers.
type cExtractor struct{}

func (e *cExtractor) Extract(fileID string, root *tree_sitter.Node, source []byte, result *ParseResult) {
	e.walk(fileID, root, source, result)
}

// walk visits top-level items. Conditional-compilation blocks (include
// guards in particular) are transparent.
func (e *cExtractor) walk(fileID string, parent *tree_sitter.Node, source []byte, result *ParseResult) {
	for _, node := range children(parent) {
		switch node.Kind() {
		case "preproc_ifdef", "preproc_if", "preproc_else", "preproc_elif", "preproc_elifdef":
			e.walk(fileID, node, source, result)
		case "preproc_include":
			e.extractInclude(node, source, result)
		case "function_definition":
			e.extractFunction(fileID, node, source, result)
		case "declaration":
			e.extractDeclaration(fileID, node, source, result)
		case "struct_specifier", "union_specifier", "enum_specifier":
			e.extractSpecifier(fileID, node, source, result, "")
		case "type_definition":
			e.extractTypedef(fileID, node, source, result)
		}
	}
}

func (e *cExtractor) extractInclude(node *tree_sitter.Node, source []byte, result *ParseResult) {
	pathNode := node.ChildByFieldName("path")
	if pathNode == nil {
		pathNode = findChildAny(node, "string_literal", "system_lib_string")
	}
	path := strings.Trim(nodeText(pathNode, source), "\"<>")
	if path == "" {
		return
	}
	result.Imports = append(result.Imports, ImportInfo{Source: path, IsDefault: true, Line: nodeLine(node)})
}

// functionDeclarator unwraps pointer declarators (`char *name(...)`) down to
// the function declarator, if there is one.
func functionDeclarator(node *tree_sitter.Node) *tree_sitter.Node {
	for node != nil {
		switch node.Kind() {
		case "function_declarator":
			return node
		case "pointer_declarator", "parenthesized_declarator":
			node = node.ChildByFieldName("declarator")
		default:
			return nil
		}
	}
	return nil
}

// declaredName digs the identifier out of any declarator shape.
func declaredName(node *tree_sitter.Node, source []byte) string {
	for node != nil {
		switch node.Kind() {
		case "identifier", "field_identifier", "type_identifier":
			return nodeText(node, source)
		}
		next := node.ChildByFieldName("declarator")
		if next == nil {
			next = findChildAny(node, "identifier", "field_identifier")
		}
		node = next
	}
	return ""
}

func hasStorageClass(node *tree_sitter.Node, source []byte, class string) bool {
	for _, child := range children(node) {
		if child.Kind() == "storage_class_specifier" && nodeText(child, source) == class {
			return true
		}
	}
	return false
}

func hasQualifier(node *tree_sitter.Node, source []byte, qualifier string) bool {
	for _, child := range children(node) {
		if child.Kind() == "type_qualifier" && nodeText(child, source) == qualifier {
			return true
		}
	}
	return false
}

func (e *cExtractor) extractFunction(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult) {
	decl := functionDeclarator(node.ChildByFieldName("declarator"))
	if decl == nil {
		return
	}
	name := declaredName(decl.ChildByFieldName("declarator"), source)
	if name == "" {
		name = "anonymous"
	}

	sym := newSymbol(fileID, name, SymbolKindFunction, node)
	sym.Signature = e.signature(node, decl, name, source)
	sym.Documentation = precedingComments(node, source)
	sym.Exported = !hasStorageClass(node, source, "static")
	result.Symbols = append(result.Symbols, sym)
}

func (e *cExtractor) signature(node, decl *tree_sitter.Node, name string, source []byte) string {
	ret := nodeText(node.ChildByFieldName("type"), source)
	if ret == "" {
		ret = "void"
	}
	params := "()"
	if p := decl.ChildByFieldName("parameters"); p != nil {
		params = nodeText(p, source)
	}
	return ret + " " + name + params
}

func (e *cExtractor) extractDeclaration(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult) {
	exported := !hasStorageClass(node, source, "static")

	// struct Foo { ... } x; declares the type too.
	if typ := node.ChildByFieldName("type"); typ != nil {
		switch typ.Kind() {
		case "struct_specifier", "union_specifier", "enum_specifier":
			e.extractSpecifier(fileID, typ, source, result, "")
		}
	}

	for _, child := range children(node) {
		switch child.Kind() {
		case "function_declarator", "pointer_declarator":
			if fn := functionDeclarator(child); fn != nil {
				name := declaredName(fn.ChildByFieldName("declarator"), source)
				if name == "" {
					continue
				}
				sym := newSymbol(fileID, name, SymbolKindFunction, node)
				sym.Signature = e.signature(node, fn, name, source)
				sym.Exported = exported
				result.Symbols = append(result.Symbols, sym)
				continue
			}
			e.extractVariable(fileID, node, child, source, result, exported)
		case "init_declarator", "identifier", "array_declarator":
			e.extractVariable(fileID, node, child, source, result, exported)
		}
	}
}

func (e *cExtractor) extractVariable(fileID string, decl, declarator *tree_sitter.Node, source []byte, result *ParseResult, exported bool) {
	name := declaredName(declarator, source)
	if name == "" {
		return
	}
	kind := SymbolKindVariable
	if hasQualifier(decl, source, "const") {
		kind = SymbolKindConstant
	}
	sym := newSymbol(fileID, name, kind, decl)
	sym.Exported = exported
	result.Symbols = append(result.Symbols, sym)
}

// extractSpecifier records struct/union/enum definitions. Forward
// declarations (no body) are skipped. name overrides the tag when the
// specifier is anonymous inside a typedef.
func (e *cExtractor) extractSpecifier(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult, name string) string {
	body := node.ChildByFieldName("body")
	if body == nil {
		return ""
	}
	if tag := nodeText(node.ChildByFieldName("name"), source); tag != "" {
		name = tag
	}
	if name == "" {
		name = "anonymous"
	}

	kind, keyword := SymbolKindStruct, "struct"
	switch node.Kind() {
	case "union_specifier":
		keyword = "union"
	case "enum_specifier":
		kind, keyword = SymbolKindEnum, "enum"
	}

	sym := newSymbol(fileID, name, kind, node)
	sym.Signature = keyword + " " + name
	sym.Exported = true
	result.Symbols = append(result.Symbols, sym)

	for _, member := range children(body) {
		switch member.Kind() {
		case "field_declaration":
			typeText := nodeText(member.ChildByFieldName("type"), source)
			for _, child := range children(member) {
				fieldName := ""
				switch child.Kind() {
				case "field_identifier", "pointer_declarator", "array_declarator":
					fieldName = declaredName(child, source)
				}
				if fieldName == "" {
					continue
				}
				field := newSymbol(fileID, fieldName, SymbolKindField, member)
				field.Signature = typeText + " " + nodeText(child, source)
				field.Exported = true
				field.ParentID = sym.ID
				result.Symbols = append(result.Symbols, field)
			}
		case "enumerator":
			constName := nodeText(member.ChildByFieldName("name"), source)
			if constName == "" {
				continue
			}
			c := newSymbol(fileID, constName, SymbolKindConstant, member)
			c.Exported = true
			c.ParentID = sym.ID
			result.Symbols = append(result.Symbols, c)
		}
	}
	return sym.ID
}

func (e *cExtractor) extractTypedef(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult) {
	var nameNode *tree_sitter.Node
	for _, child := range children(node) {
		if child.Kind() == "type_identifier" {
			nameNode = child
		}
	}
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, source)

	if typ := node.ChildByFieldName("type"); typ != nil {
		switch typ.Kind() {
		case "struct_specifier", "union_specifier", "enum_specifier":
			// typedef struct { ... } Name; the body belongs to Name.
			e.extractSpecifier(fileID, typ, source, result, name)
		}
	}

	sym := newSymbol(fileID, name, SymbolKindType, node)
	sym.Signature = "typedef " + name
	sym.Exported = true
	result.Symbols = append(result.Symbols, sym)
}
