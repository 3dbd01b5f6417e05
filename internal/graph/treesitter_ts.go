package graph

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// tsExtractor extracts symbols and imports from TypeScript and JavaScript.
// Both grammars share node kinds for everything handled here; the TS-only
// kinds simply never occur in JavaScript trees.
type tsExtractor struct{}

func (e *tsExtractor) Extract(fileID string, root *tree_sitter.Node, source []byte, result *ParseResult) {
	var exportedNames []string
	for _, node := range children(root) {
		switch node.Kind() {
		case "import_statement":
			e.extractImport(node, source, result)
		case "export_statement":
			exportedNames = append(exportedNames, e.extractExport(fileID, node, source, result)...)
		default:
			e.extractDeclaration(fileID, node, source, result, false)
		}
	}
	markExported(result.Symbols, exportedNames)
}

// markExported flags top-level symbols named by `export { a }` or
// `export default a`, which may come before or after the declaration.
func markExported(symbols []Symbol, names []string) {
	if len(names) == 0 {
		return
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	for i := range symbols {
		if symbols[i].ParentID == "" && set[symbols[i].Name] {
			symbols[i].Exported = true
		}
	}
}

// extractDeclaration handles the declaration kinds that may appear both at
// top level and under an export statement. It reports whether node was one.
func (e *tsExtractor) extractDeclaration(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult, exported bool) bool {
	switch node.Kind() {
	case "function_declaration", "generator_function_declaration":
		e.extractFunction(fileID, node, source, result, exported)
	case "class_declaration", "abstract_class_declaration", "class":
		e.extractClass(fileID, node, source, result, exported)
	case "interface_declaration":
		e.extractNamed(fileID, node, source, result, SymbolKindInterface, "interface", exported)
	case "type_alias_declaration":
		e.extractNamed(fileID, node, source, result, SymbolKindType, "type", exported)
	case "enum_declaration":
		e.extractNamed(fileID, node, source, result, SymbolKindEnum, "enum", exported)
	case "lexical_declaration", "variable_declaration":
		e.extractVariables(fileID, node, source, result, exported)
	default:
		return false
	}
	return true
}

func (e *tsExtractor) extractImport(node *tree_sitter.Node, source []byte, result *ParseResult) {
	srcNode := node.ChildByFieldName("source")
	if srcNode == nil {
		srcNode = findChild(node, "string")
	}
	importPath := trimQuotes(nodeText(srcNode, source))
	if importPath == "" {
		return
	}

	info := ImportInfo{Source: importPath, Line: nodeLine(node)}
	if clause := findChild(node, "import_clause"); clause != nil {
		for _, child := range children(clause) {
			switch child.Kind() {
			case "identifier":
				info.IsDefault = true
				info.Names = append(info.Names, nodeText(child, source))
			case "named_imports":
				for _, spec := range children(child) {
					if spec.Kind() != "import_specifier" {
						continue
					}
					name := spec.ChildByFieldName("name")
					if name == nil {
						name = findChild(spec, "identifier")
					}
					if name != nil {
						info.Names = append(info.Names, nodeText(name, source))
					}
				}
			case "namespace_import":
				if name := findChild(child, "identifier"); name != nil {
					info.Names = append(info.Names, "* as "+nodeText(name, source))
				}
			}
		}
	}
	result.Imports = append(result.Imports, info)
}

// extractExport handles an export statement and returns the local names it
// exports by reference. Names re-exported from another module are not local.
func (e *tsExtractor) extractExport(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult) []string {
	// export { a } from './x' and export * from './x' depend on another module.
	if srcNode := node.ChildByFieldName("source"); srcNode != nil {
		if importPath := trimQuotes(nodeText(srcNode, source)); importPath != "" {
			result.Imports = append(result.Imports, ImportInfo{Source: importPath, Line: nodeLine(node)})
		}
		return nil
	}

	var names []string
	for _, child := range children(node) {
		if e.extractDeclaration(fileID, child, source, result, true) {
			continue
		}
		switch child.Kind() {
		case "identifier":
			names = append(names, nodeText(child, source))
		case "export_clause":
			for _, spec := range children(child) {
				if spec.Kind() != "export_specifier" {
					continue
				}
				name := spec.ChildByFieldName("name")
				if name == nil {
					name = findChild(spec, "identifier")
				}
				if name != nil {
					names = append(names, nodeText(name, source))
				}
			}
		}
	}
	return names
}

func (e *tsExtractor) declName(node *tree_sitter.Node, source []byte) string {
	name := node.ChildByFieldName("name")
	if name == nil {
		name = findChildAny(node, "type_identifier", "identifier")
	}
	if name == nil {
		return "anonymous"
	}
	return nodeText(name, source)
}

func (e *tsExtractor) extractFunction(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult, exported bool) {
	name := e.declName(node, source)
	sym := newSymbol(fileID, name, SymbolKindFunction, node)
	sym.Signature = "function " + name + e.params(node, source) + nodeText(node.ChildByFieldName("return_type"), source)
	sym.Exported = exported
	result.Symbols = append(result.Symbols, sym)
}

func (e *tsExtractor) params(node *tree_sitter.Node, source []byte) string {
	params := node.ChildByFieldName("parameters")
	if params == nil {
		params = findChild(node, "formal_parameters")
	}
	if params == nil {
		return "()"
	}
	return nodeText(params, source)
}

func (e *tsExtractor) extractClass(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult, exported bool) {
	name := e.declName(node, source)
	signature := "class " + name
	if base := e.superclass(node, source); base != "" {
		signature += " extends " + base
	}

	class := newSymbol(fileID, name, SymbolKindClass, node)
	class.Signature = signature
	class.Exported = exported
	result.Symbols = append(result.Symbols, class)

	body := node.ChildByFieldName("body")
	if body == nil {
		body = findChild(node, "class_body")
	}
	for _, member := range children(body) {
		switch member.Kind() {
		case "method_definition", "abstract_method_signature":
			e.extractMember(fileID, member, source, result, SymbolKindMethod, class.ID)
		case "public_field_definition", "field_definition":
			e.extractMember(fileID, member, source, result, SymbolKindProperty, class.ID)
		}
	}
}

// superclass returns the extends target. TypeScript nests it in an
// extends_clause; JavaScript puts the expression directly in class_heritage.
func (e *tsExtractor) superclass(node *tree_sitter.Node, source []byte) string {
	heritage := findChild(node, "class_heritage")
	if heritage == nil {
		return ""
	}
	if clause := findChild(heritage, "extends_clause"); clause != nil {
		if value := clause.ChildByFieldName("value"); value != nil {
			return nodeText(value, source)
		}
		return nodeText(findChild(clause, "identifier"), source)
	}
	if heritage.NamedChildCount() > 0 {
		return nodeText(heritage.NamedChild(0), source)
	}
	return ""
}

func (e *tsExtractor) extractMember(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult, kind SymbolKind, parentID string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = node.ChildByFieldName("property")
	}
	if nameNode == nil {
		nameNode = findChildAny(node, "property_identifier", "private_property_identifier", "identifier")
	}
	name := "anonymous"
	if nameNode != nil {
		name = nodeText(nameNode, source)
	}

	sym := newSymbol(fileID, name, kind, node)
	if kind == SymbolKindMethod {
		sym.Signature = name + e.params(node, source) + nodeText(node.ChildByFieldName("return_type"), source)
	}
	sym.ParentID = parentID
	result.Symbols = append(result.Symbols, sym)
}

func (e *tsExtractor) extractNamed(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult, kind SymbolKind, keyword string, exported bool) {
	name := e.declName(node, source)
	sym := newSymbol(fileID, name, kind, node)
	sym.Signature = keyword + " " + name
	sym.Exported = exported
	result.Symbols = append(result.Symbols, sym)
}

func (e *tsExtractor) extractVariables(fileID string, node *tree_sitter.Node, source []byte, result *ParseResult, exported bool) {
	for _, decl := range children(node) {
		if decl.Kind() != "variable_declarator" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil || nameNode.Kind() != "identifier" {
			// Destructuring patterns declare no single name.
			continue
		}
		name := nodeText(nameNode, source)

		kind := SymbolKindVariable
		value := decl.ChildByFieldName("value")
		if value != nil {
			switch value.Kind() {
			case "arrow_function", "function", "function_expression", "generator_function":
				kind = SymbolKindFunction
			case "call_expression":
				e.extractRequire(value, source, result)
			}
		}

		sym := newSymbol(fileID, name, kind, decl)
		sym.Exported = exported
		if kind == SymbolKindFunction {
			sym.Signature = declKeyword(node) + " " + name + " = " + e.functionValue(value, source)
		}
		result.Symbols = append(result.Symbols, sym)
	}
}

// declKeyword returns "const", "let" or "var" for a variable declaration.
func declKeyword(node *tree_sitter.Node) string {
	if kw := node.ChildByFieldName("kind"); kw != nil {
		return kw.Kind()
	}
	if first := node.Child(0); first != nil && !first.IsNamed() {
		return first.Kind()
	}
	return "const"
}

// functionValue renders the right-hand side of a function-valued variable.
func (e *tsExtractor) functionValue(value *tree_sitter.Node, source []byte) string {
	params := e.params(value, source)
	if value.Kind() == "arrow_function" {
		if p := value.ChildByFieldName("parameter"); p != nil {
			params = nodeText(p, source)
		}
		return params + " =>"
	}
	if value.Kind() == "generator_function" {
		return "function*" + params
	}
	return "function" + params
}

// extractRequire records CommonJS `const x = require('y')` as a default import.
func (e *tsExtractor) extractRequire(call *tree_sitter.Node, source []byte, result *ParseResult) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "identifier" || nodeText(fn, source) != "require" {
		return
	}
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return
	}
	arg := args.NamedChild(0)
	if arg.Kind() != "string" {
		return
	}
	if importPath := trimQuotes(nodeText(arg, source)); importPath != "" {
		result.Imports = append(result.Imports, ImportInfo{Source: importPath, IsDefault: true, Line: nodeLine(call)})
	}
}
