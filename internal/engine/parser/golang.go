package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type GoExtractor struct{}

func (e *GoExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*FileSyntax, error) {
	file := &FileSyntax{
		Path:     filePath,
		Language: "go",
	}
	e.walk(root, source, file)
	return file, nil
}

func (e *GoExtractor) walk(node *sitter.Node, source []byte, file *FileSyntax) {
	switch node.Kind() {
	case "import_declaration":
		e.extractImports(node, source, file)
	case "function_declaration":
		e.extractFunction(node, source, file)
	case "method_declaration":
		e.extractMethod(node, source, file)
	case "type_declaration":
		e.extractType(node, source, file)
	case "call_expression":
		e.extractCall(node, source, file)
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), source, file)
	}
}

func (e *GoExtractor) extractImports(node *sitter.Node, source []byte, file *FileSyntax) {
	e.walkImports(node, source, file)
}

func (e *GoExtractor) walkImports(node *sitter.Node, source []byte, file *FileSyntax) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		if child.Kind() == "import_spec" {
			var alias, path string
			for j := uint(0); j < child.ChildCount(); j++ {
				spec := child.Child(j)
				if spec.Kind() == "package_identifier" {
					alias = nodeText(spec, source)
				} else if spec.Kind() == "interpreted_string_literal" {
					path = strings.Trim(nodeText(spec, source), "\"")
				}
			}
			if path != "" {
				file.Imports = append(file.Imports, RawImport{
					Target: path,
					Alias:  alias,
					Line:   nodeStartLine(child),
				})
			}
		} else {
			e.walkImports(child, source, file)
		}
	}
}

func (e *GoExtractor) extractFunction(node *sitter.Node, source []byte, file *FileSyntax) {
	name := childText(node, "identifier", source)
	if name == "" {
		return
	}
	file.Entities = append(file.Entities, Entity{
		Name:          name,
		QualifiedName: name,
		Kind:          EntityFunction,
		StartLine:     nodeStartLine(node),
		EndLine:       nodeEndLine(node),
	})
}

func (e *GoExtractor) extractMethod(node *sitter.Node, source []byte, file *FileSyntax) {
	name := childText(node, "field_identifier", source)
	if name == "" {
		return
	}

	// Receiver type qualifies the method name: (s *Server) Start -> Server.Start.
	receiver := ""
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "parameter_list" {
			receiver = receiverTypeName(child, source)
			break
		}
	}

	qualified := name
	if receiver != "" {
		qualified = receiver + "." + name
	}

	file.Entities = append(file.Entities, Entity{
		Name:          name,
		QualifiedName: qualified,
		Kind:          EntityFunction,
		StartLine:     nodeStartLine(node),
		EndLine:       nodeEndLine(node),
	})
}

func (e *GoExtractor) extractType(node *sitter.Node, source []byte, file *FileSyntax) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() != "type_spec" {
			continue
		}
		name := childText(child, "type_identifier", source)
		if name == "" {
			continue
		}
		file.Entities = append(file.Entities, Entity{
			Name:          name,
			QualifiedName: name,
			Kind:          EntityClass,
			StartLine:     nodeStartLine(node),
			EndLine:       nodeEndLine(node),
		})
	}
}

func (e *GoExtractor) extractCall(node *sitter.Node, source []byte, file *FileSyntax) {
	fn := node.Child(0)
	if fn == nil {
		return
	}

	switch fn.Kind() {
	case "identifier", "selector_expression":
		file.Calls = append(file.Calls, RawReference{
			Symbol: nodeText(fn, source),
			Line:   nodeStartLine(node),
		})
	}
}

func receiverTypeName(paramList *sitter.Node, source []byte) string {
	for i := uint(0); i < paramList.ChildCount(); i++ {
		child := paramList.Child(i)
		if child.Kind() != "parameter_declaration" {
			continue
		}
		text := nodeText(child, source)
		if idx := strings.LastIndexAny(text, " *"); idx >= 0 {
			text = text[idx+1:]
		}
		if idx := strings.Index(text, "["); idx >= 0 {
			text = text[:idx]
		}
		return text
	}
	return ""
}

func childText(node *sitter.Node, kind string, source []byte) string {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == kind {
			return nodeText(child, source)
		}
	}
	return ""
}
