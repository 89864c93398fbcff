package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// JavaScriptExtractor handles javascript, typescript and tsx sources; the
// declaration node kinds are shared across the three grammars.
type JavaScriptExtractor struct{}

func (e *JavaScriptExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*FileSyntax, error) {
	file := &FileSyntax{
		Path: filePath,
	}
	e.walk(root, source, file, "")
	return file, nil
}

func (e *JavaScriptExtractor) walk(node *sitter.Node, source []byte, file *FileSyntax, enclosing string) {
	next := enclosing

	switch node.Kind() {
	case "import_statement":
		e.extractImport(node, source, file)
	case "function_declaration", "generator_function_declaration", "method_definition":
		next = e.extractFunction(node, source, file, enclosing)
	case "class_declaration":
		next = e.extractClass(node, source, file, enclosing)
	case "lexical_declaration", "variable_declaration":
		e.extractArrowFunctions(node, source, file, enclosing)
	case "call_expression":
		e.extractCall(node, source, file)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), source, file, next)
	}
}

func (e *JavaScriptExtractor) extractImport(node *sitter.Node, source []byte, file *FileSyntax) {
	imp := RawImport{Line: nodeStartLine(node)}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "string":
			imp.Target = strings.Trim(nodeText(child, source), "'\"")
		case "import_clause":
			e.collectImportItems(child, source, &imp)
		}
	}

	if imp.Target != "" {
		file.Imports = append(file.Imports, imp)
	}
}

func (e *JavaScriptExtractor) collectImportItems(node *sitter.Node, source []byte, imp *RawImport) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "identifier":
			imp.Items = append(imp.Items, nodeText(child, source))
		case "named_imports", "namespace_import":
			e.collectImportItems(child, source, imp)
		case "import_specifier":
			// "X as Y" exposes Y locally.
			last := ""
			for j := uint(0); j < child.ChildCount(); j++ {
				sub := child.Child(j)
				if sub.Kind() == "identifier" {
					last = nodeText(sub, source)
				}
			}
			if last != "" {
				imp.Items = append(imp.Items, last)
			}
		}
	}
}

func (e *JavaScriptExtractor) extractFunction(node *sitter.Node, source []byte, file *FileSyntax, enclosing string) string {
	name := ""
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "identifier" || child.Kind() == "property_identifier" {
			name = nodeText(child, source)
			break
		}
	}
	if name == "" {
		return enclosing
	}

	qualified := name
	if enclosing != "" {
		qualified = enclosing + "." + name
	}

	file.Entities = append(file.Entities, Entity{
		Name:          name,
		QualifiedName: qualified,
		Kind:          EntityFunction,
		StartLine:     nodeStartLine(node),
		EndLine:       nodeEndLine(node),
	})
	return qualified
}

func (e *JavaScriptExtractor) extractClass(node *sitter.Node, source []byte, file *FileSyntax, enclosing string) string {
	name := ""
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "identifier" || child.Kind() == "type_identifier" {
			name = nodeText(child, source)
			break
		}
	}
	if name == "" {
		return enclosing
	}

	qualified := name
	if enclosing != "" {
		qualified = enclosing + "." + name
	}

	file.Entities = append(file.Entities, Entity{
		Name:          name,
		QualifiedName: qualified,
		Kind:          EntityClass,
		StartLine:     nodeStartLine(node),
		EndLine:       nodeEndLine(node),
	})
	return qualified
}

// extractArrowFunctions records `const f = () => {}` and
// `const f = function() {}` as function entities.
func (e *JavaScriptExtractor) extractArrowFunctions(node *sitter.Node, source []byte, file *FileSyntax, enclosing string) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() != "variable_declarator" {
			continue
		}

		name := ""
		isFunc := false
		for j := uint(0); j < child.ChildCount(); j++ {
			sub := child.Child(j)
			switch sub.Kind() {
			case "identifier":
				if name == "" {
					name = nodeText(sub, source)
				}
			case "arrow_function", "function_expression", "function":
				isFunc = true
			}
		}

		if name == "" || !isFunc {
			continue
		}

		qualified := name
		if enclosing != "" {
			qualified = enclosing + "." + name
		}
		file.Entities = append(file.Entities, Entity{
			Name:          name,
			QualifiedName: qualified,
			Kind:          EntityFunction,
			StartLine:     nodeStartLine(child),
			EndLine:       nodeEndLine(child),
		})
	}
}

func (e *JavaScriptExtractor) extractCall(node *sitter.Node, source []byte, file *FileSyntax) {
	fn := node.Child(0)
	if fn == nil {
		return
	}

	switch fn.Kind() {
	case "identifier", "member_expression":
		file.Calls = append(file.Calls, RawReference{
			Symbol: nodeText(fn, source),
			Line:   nodeStartLine(node),
		})
	}
}
