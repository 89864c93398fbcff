package parser

// FileSyntax is the parser adapter's output for one file: the declared
// entities plus every raw call and import token found in the source. The
// graph builder never sees tree-sitter nodes, only this structure.
type FileSyntax struct {
	Path     string
	Language string
	Entities []Entity
	Imports  []RawImport
	Calls    []RawReference
}

// Entity is a declared code entity with its 1-indexed inclusive line span.
type Entity struct {
	Name          string
	QualifiedName string // Class.method for nested declarations
	Kind          EntityKind
	StartLine     int
	EndLine       int
}

// RawImport is an unresolved import statement.
type RawImport struct {
	Target string   // imported module/path token as written
	Items  []string // for "from X import Y, Z"
	Alias  string
	Line   int
}

// RawReference is an unresolved call token.
type RawReference struct {
	Symbol string // full token as written, e.g. "b.g" or "g"
	Line   int
}

type EntityKind string

const (
	EntityFunction EntityKind = "function"
	EntityClass    EntityKind = "class"
)
