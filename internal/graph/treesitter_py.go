package graph

import (
	"strings"
	"unicode"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// pyExtractor extracts symbols and imports from Python source files.
type pyExtractor struct{}

func (e *pyExtractor) Extract(fileID string, root *tree_sitter.Node, source []byte, result *ParseResult) {
	for _, node := range children(root) {
		switch node.Kind() {
		case "import_statement":
			e.extractImport(node, source, result)
		case "import_from_statement", "future_import_statement":
			e.extractImportFrom(node, source, result)
		case "function_definition":
			e.extractFunction(fileID, node, source, result, "")
		case "class_definition":
			e.extractClass(fileID, node, source, result)
		case "decorated_definition":
			if def := node.ChildByFieldName("definition"); def != nil {
				switch def.Kind() {
				case "function_definition":
					e.extractFunction(fileID, def, source, result, "")
				case "class_definition":
					e.extractClass(fileID, def, source, result)
				}
			}
		case "expression_statement":
			e.extractAssignment(fileID, node, source, result)
		}
	}
}

func (e *pyExtractor) extractImport(node *tree_sitter.Node, source []byte, result *ParseResult) {
	for _, child := range children(node) {
		module := ""
		switch child.Kind() {
		case "dotted_name":
			module = nodeText(child, source)
		case "aliased_import":
			module = nodeText(child.ChildByFieldName("name"), source)
		}
		if module == "" {
			continue
		}
		result.Imports = append(result.Imports, ImportInfo{
			Source:    module,
			IsDefault: true,
			Line:      nodeLine(node),
		})
	}
}

func (e *pyExtractor) extractImportFrom(node *tree_sitter.Node, source []byte, result *ParseResult) {
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		moduleNode = findChildAny(node, "dotted_name", "relative_import")
	}
	module := nodeText(moduleNode, source)
	if node.Kind() == "future_import_statement" {
		module = "__future__"
	}
	if module == "" {
		return
	}

	info := ImportInfo{Source: module, Line: nodeLine(node)}
	for _, child := range children(node) {
		if moduleNode != nil && child.StartByte() == moduleNode.StartByte() && child.Kind() == moduleNode.Kind() {
			continue
		}
		switch child.Kind() {
		case "wildcard_import":
			info.Names = append(info.Names, "*")
		case "dotted_name":
			info.Names = append(info.Names, nodeText(child, source))
		case "aliased_import":
			if alias := child.ChildByFieldName("alias"); alias != nil {
				info.Names = append(info.Names, nodeText(alias, source))
			}
		}
	}
	result.Imports = append(result.Imports, info)
}

func (e *pyExtractor) extractFunction(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult, parentID string) {
	name := "anonymous"
	if n := node.ChildByFieldName("name"); n != nil {
		name = nodeText(n, source)
	}

	params := "()"
	if p := node.ChildByFieldName("parameters"); p != nil {
		params = nodeText(p, source)
	}
	signature := "def " + name + params
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		signature += " -> " + nodeText(ret, source)
	}
	if findChild(node, "async") != nil {
		signature = "async " + signature
	}

	kind := SymbolKindFunction
	if parentID != "" {
		kind = SymbolKindMethod
	}
	sym := newSymbol(fileID, name, kind, node)
	sym.Signature = signature
	sym.Documentation = e.docstring(node.ChildByFieldName("body"), source)
	sym.Exported = isPyExported(name)
	sym.ParentID = parentID
	result.Symbols = append(result.Symbols, sym)
}

func (e *pyExtractor) extractClass(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult) {
	name := "anonymous"
	if n := node.ChildByFieldName("name"); n != nil {
		name = nodeText(n, source)
	}

	signature := "class " + name
	if args := node.ChildByFieldName("superclasses"); args != nil {
		var bases []string
		for _, arg := range children(args) {
			switch arg.Kind() {
			case "identifier", "attribute":
				bases = append(bases, nodeText(arg, source))
			}
		}
		if len(bases) > 0 {
			signature += "(" + strings.Join(bases, ", ") + ")"
		}
	}

	body := node.ChildByFieldName("body")
	class := newSymbol(fileID, name, SymbolKindClass, node)
	class.Signature = signature
	class.Documentation = e.docstring(body, source)
	class.Exported = !strings.HasPrefix(name, "_")
	result.Symbols = append(result.Symbols, class)

	for _, member := range children(body) {
		switch member.Kind() {
		case "function_definition":
			e.extractFunction(fileID, member, source, result, class.ID)
		case "decorated_definition":
			if def := member.ChildByFieldName("definition"); def != nil && def.Kind() == "function_definition" {
				e.extractFunction(fileID, def, source, result, class.ID)
			}
		}
	}
}

// extractAssignment records module-level `NAME = value` bindings.
// ALL_CAPS names are constants by convention.
func (e *pyExtractor) extractAssignment(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult) {
	assign := findChild(node, "assignment")
	if assign == nil {
		return
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return
	}
	name := nodeText(left, source)

	kind := SymbolKindVariable
	if isUpperSnake(name) {
		kind = SymbolKindConstant
	}
	sym := newSymbol(fileID, name, kind, assign)
	sym.Exported = !strings.HasPrefix(name, "_")
	result.Symbols = append(result.Symbols, sym)
}

// docstring returns the leading string literal of a block, unquoted.
func (e *pyExtractor) docstring(block *tree_sitter.Node, source []byte) string {
	if block == nil || block.NamedChildCount() == 0 {
		return ""
	}
	first := block.NamedChild(0)
	if first.Kind() != "expression_statement" {
		return ""
	}
	str := findChild(first, "string")
	if str == nil {
		return ""
	}
	return strings.TrimSpace(strings.Trim(nodeText(str, source), "\"'"))
}

// isPyExported applies the leading-underscore convention; __init__ counts as
// public.
func isPyExported(name string) bool {
	return !strings.HasPrefix(name, "_") || name == "__init__"
}

func isUpperSnake(name string) bool {
	hasLetter := false
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			hasLetter = true
		case r == '_' || unicode.IsDigit(r):
		default:
			return false
		}
	}
	return hasLetter
}
