package graph

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// rsExtractor extracts symbols and imports from Rust source files.
type rsExtractor struct{}

func (e *rsExtractor) Extract(fileID string, root *tree_sitter.Node, source []byte, result *ParseResult) {
	// impl blocks attach their methods to a struct or enum declared earlier
	// in the same file.
	types := make(map[string]string)

	for _, node := range children(root) {
		switch node.Kind() {
		case "use_declaration":
			e.extractUse(node, source, result)
		case "function_item":
			e.extractFunction(fileID, node, source, result, "")
		case "struct_item":
			e.extractStruct(fileID, node, source, result, types)
		case "enum_item":
			sym := e.extractNamed(fileID, node, source, result, SymbolKindEnum, "enum")
			types[sym.Name] = sym.ID
		case "trait_item":
			e.extractTrait(fileID, node, source, result)
		case "impl_item":
			e.extractImpl(fileID, node, source, result, types)
		case "const_item":
			e.extractNamed(fileID, node, source, result, SymbolKindConstant, "const")
		case "static_item":
			e.extractNamed(fileID, node, source, result, SymbolKindVariable, "static")
		case "type_item":
			e.extractNamed(fileID, node, source, result, SymbolKindType, "type")
		case "mod_item":
			e.extractMod(fileID, node, source, result)
		}
	}
}

func (e *rsExtractor) extractUse(node *tree_sitter.Node, source []byte, result *ParseResult) {
	arg := node.ChildByFieldName("argument")
	if arg == nil {
		return
	}
	path := usePath(arg, source)
	if path == "" {
		return
	}
	result.Imports = append(result.Imports, ImportInfo{Source: path, Line: nodeLine(node)})
}

// usePath flattens a use tree to its textual form, e.g. "std::{io, fs}".
func usePath(node *tree_sitter.Node, source []byte) string {
	switch node.Kind() {
	case "scoped_identifier", "use_wildcard", "identifier", "crate", "self", "super":
		return nodeText(node, source)
	case "use_as_clause":
		return nodeText(node.ChildByFieldName("path"), source)
	case "use_list":
		var parts []string
		for _, child := range children(node) {
			if p := usePath(child, source); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			return ""
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case "scoped_use_list":
		prefix := nodeText(node.ChildByFieldName("path"), source)
		list := usePath(node.ChildByFieldName("list"), source)
		if prefix == "" {
			return list
		}
		return prefix + "::" + list
	}
	return ""
}

func (e *rsExtractor) name(node *tree_sitter.Node, source []byte) string {
	if n := node.ChildByFieldName("name"); n != nil {
		return nodeText(n, source)
	}
	if n := findChildAny(node, "identifier", "type_identifier"); n != nil {
		return nodeText(n, source)
	}
	return "anonymous"
}

func (e *rsExtractor) extractFunction(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult, parentID string) {
	name := e.name(node, source)

	params := "()"
	if p := node.ChildByFieldName("parameters"); p != nil {
		params = nodeText(p, source)
	}
	signature := "fn " + name + params
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		signature += " -> " + nodeText(ret, source)
	}
	if mods := findChild(node, "function_modifiers"); mods != nil && strings.Contains(nodeText(mods, source), "async") {
		signature = "async " + signature
	}

	kind := SymbolKindFunction
	if parentID != "" {
		kind = SymbolKindMethod
	}
	sym := newSymbol(fileID, name, kind, node)
	sym.Signature = signature
	sym.Documentation = precedingComments(node, source)
	sym.Exported = isRustPub(node)
	sym.ParentID = parentID
	result.Symbols = append(result.Symbols, sym)
}

func (e *rsExtractor) extractNamed(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult, kind SymbolKind, keyword string) Symbol {
	name := e.name(node, source)
	sym := newSymbol(fileID, name, kind, node)
	sym.Signature = keyword + " " + name
	if typ := node.ChildByFieldName("type"); typ != nil && kind != SymbolKindType {
		sym.Signature += ": " + nodeText(typ, source)
	}
	sym.Documentation = precedingComments(node, source)
	sym.Exported = isRustPub(node)
	result.Symbols = append(result.Symbols, sym)
	return sym
}

func (e *rsExtractor) extractStruct(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult, types map[string]string) {
	st := e.extractNamed(fileID, node, source, result, SymbolKindStruct, "struct")
	types[st.Name] = st.ID

	body := node.ChildByFieldName("body")
	if body == nil || body.Kind() != "field_declaration_list" {
		return
	}
	for _, field := range children(body) {
		if field.Kind() != "field_declaration" {
			continue
		}
		name := nodeText(field.ChildByFieldName("name"), source)
		if name == "" {
			continue
		}
		sym := newSymbol(fileID, name, SymbolKindField, field)
		sym.Signature = name + ": " + nodeText(field.ChildByFieldName("type"), source)
		sym.Exported = isRustPub(field)
		sym.ParentID = st.ID
		result.Symbols = append(result.Symbols, sym)
	}
}

func (e *rsExtractor) extractTrait(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult) {
	trait := e.extractNamed(fileID, node, source, result, SymbolKindInterface, "trait")

	for _, item := range children(node.ChildByFieldName("body")) {
		switch item.Kind() {
		case "function_item", "function_signature_item":
			name := e.name(item, source)
			sym := newSymbol(fileID, name, SymbolKindMethod, item)
			params := "()"
			if p := item.ChildByFieldName("parameters"); p != nil {
				params = nodeText(p, source)
			}
			sym.Signature = "fn " + name + params
			if ret := item.ChildByFieldName("return_type"); ret != nil {
				sym.Signature += " -> " + nodeText(ret, source)
			}
			sym.Exported = trait.Exported
			sym.ParentID = trait.ID
			result.Symbols = append(result.Symbols, sym)
		}
	}
}

func (e *rsExtractor) extractImpl(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult, types map[string]string) {
	typeName := nodeText(node.ChildByFieldName("type"), source)
	if i := strings.IndexByte(typeName, '<'); i >= 0 {
		typeName = typeName[:i]
	}
	parentID := types[typeName]

	for _, item := range children(node.ChildByFieldName("body")) {
		if item.Kind() != "function_item" {
			continue
		}
		if parentID == "" {
			// No container to hang it on; still a method.
			e.extractFunction(fileID, item, source, result, "")
			result.Symbols[len(result.Symbols)-1].Kind = SymbolKindMethod
			continue
		}
		e.extractFunction(fileID, item, source, result, parentID)
	}
}

// extractMod records the module. A body-less `mod name;` loads name.rs next
// to the declaring file, so it is also recorded as a relative import.
func (e *rsExtractor) extractMod(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult) {
	mod := e.extractNamed(fileID, node, source, result, SymbolKindModule, "mod")
	if node.ChildByFieldName("body") == nil && mod.Name != "anonymous" {
		result.Imports = append(result.Imports, ImportInfo{
			Source: "./" + mod.Name,
			Names:  []string{mod.Name},
			Line:   nodeLine(node),
		})
	}
}

// isRustPub reports whether node carries a visibility modifier (pub,
// pub(crate), ...).
func isRustPub(node *tree_sitter.Node) bool {
	return findChild(node, "visibility_modifier") != nil
}
