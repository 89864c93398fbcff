package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"ripple/internal/core/errors"
	"ripple/internal/shared/observability"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Adapter is the external parser boundary. Parse either returns the complete
// entity and reference lists for a file or fails with a PARSE_ERROR; it never
// returns a partial list silently.
type Adapter interface {
	Parse(path string, content []byte) (*FileSyntax, error)
	SupportsPath(path string) bool
}

type Extractor interface {
	Extract(root *sitter.Node, source []byte, filePath string) (*FileSyntax, error)
}

// Parser is the tree-sitter backed Adapter implementation.
type Parser struct {
	loader     *GrammarLoader
	extractors map[string]Extractor
	extensions map[string]string
}

var _ Adapter = (*Parser)(nil)

func NewParser() *Parser {
	p := &Parser{
		loader:     NewGrammarLoader(),
		extractors: make(map[string]Extractor),
		extensions: map[string]string{
			".go":  "go",
			".py":  "python",
			".js":  "javascript",
			".jsx": "javascript",
			".mjs": "javascript",
			".ts":  "typescript",
			".tsx": "tsx",
		},
	}

	p.extractors["go"] = &GoExtractor{}
	p.extractors["python"] = &PythonExtractor{}
	js := &JavaScriptExtractor{}
	p.extractors["javascript"] = js
	p.extractors["typescript"] = js
	p.extractors["tsx"] = js

	return p
}

func (p *Parser) Parse(path string, content []byte) (*FileSyntax, error) {
	lang := p.detectLanguage(path)
	if lang == "" {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxPath, path)
	}

	start := time.Now()
	defer func() {
		observability.ParsingDuration.WithLabelValues(lang).Observe(time.Since(start).Seconds())
	}()

	extractor := p.extractors[lang]
	grammar := p.loader.Language(lang)
	if extractor == nil || grammar == nil {
		return nil, errors.New(errors.CodeNotSupported, fmt.Sprintf("no extractor for: %s", lang))
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeParseError, "parse failed"), errors.CtxPath, path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		err := errors.New(errors.CodeParseError, "syntax errors in source")
		err = errors.AddContext(err, errors.CtxPath, path)
		return nil, errors.AddContext(err, errors.CtxLanguage, lang)
	}

	res, err := extractor.Extract(root, content, path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeParseError, "extraction failed")
	}
	res.Language = lang
	return res, nil
}

func (p *Parser) SupportsPath(path string) bool {
	return p.detectLanguage(path) != ""
}

func (p *Parser) detectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return p.extensions[ext]
}

func nodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

func nodeStartLine(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

func nodeEndLine(node *sitter.Node) int {
	return int(node.EndPosition().Row) + 1
}
