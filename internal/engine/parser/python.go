package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

type PythonExtractor struct{}

func (e *PythonExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*FileSyntax, error) {
	file := &FileSyntax{
		Path:     filePath,
		Language: "python",
	}
	e.walk(root, source, file, "")
	return file, nil
}

func (e *PythonExtractor) walk(node *sitter.Node, source []byte, file *FileSyntax, enclosing string) {
	next := enclosing

	switch node.Kind() {
	case "import_statement":
		e.extractImport(node, source, file)
	case "import_from_statement":
		e.extractFromImport(node, source, file)
	case "function_definition":
		next = e.extractFunction(node, source, file, enclosing)
	case "class_definition":
		next = e.extractClass(node, source, file, enclosing)
	case "call":
		e.extractCall(node, source, file)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), source, file, next)
	}
}

func (e *PythonExtractor) extractImport(node *sitter.Node, source []byte, file *FileSyntax) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		switch child.Kind() {
		case "dotted_name", "identifier":
			file.Imports = append(file.Imports, RawImport{
				Target: nodeText(child, source),
				Line:   nodeStartLine(node),
			})
		case "aliased_import":
			var target, alias string
			for j := uint(0); j < child.ChildCount(); j++ {
				sub := child.Child(j)
				if sub.Kind() == "dotted_name" || sub.Kind() == "identifier" {
					if target == "" {
						target = nodeText(sub, source)
					} else {
						alias = nodeText(sub, source)
					}
				}
			}
			if target != "" {
				file.Imports = append(file.Imports, RawImport{
					Target: target,
					Alias:  alias,
					Line:   nodeStartLine(node),
				})
			}
		}
	}
}

func (e *PythonExtractor) extractFromImport(node *sitter.Node, source []byte, file *FileSyntax) {
	imp := RawImport{Line: nodeStartLine(node)}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "dotted_name", "relative_import":
			if imp.Target == "" {
				imp.Target = nodeText(child, source)
			} else {
				imp.Items = append(imp.Items, nodeText(child, source))
			}
		case "aliased_import":
			for j := uint(0); j < child.ChildCount(); j++ {
				sub := child.Child(j)
				if sub.Kind() == "dotted_name" || sub.Kind() == "identifier" {
					imp.Items = append(imp.Items, nodeText(sub, source))
					break
				}
			}
		case "wildcard_import":
			imp.Items = append(imp.Items, "*")
		}
	}

	if imp.Target != "" {
		file.Imports = append(file.Imports, imp)
	}
}

func (e *PythonExtractor) extractFunction(node *sitter.Node, source []byte, file *FileSyntax, enclosing string) string {
	name := childText(node, "identifier", source)
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

func (e *PythonExtractor) extractClass(node *sitter.Node, source []byte, file *FileSyntax, enclosing string) string {
	name := childText(node, "identifier", source)
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

func (e *PythonExtractor) extractCall(node *sitter.Node, source []byte, file *FileSyntax) {
	fn := node.Child(0)
	if fn == nil {
		return
	}

	switch fn.Kind() {
	case "identifier", "attribute":
		file.Calls = append(file.Calls, RawReference{
			Symbol: nodeText(fn, source),
			Line:   nodeStartLine(node),
		})
	}
}
