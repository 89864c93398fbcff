package graph

type NodeKind string

const (
	NodeFunction NodeKind = "function"
	NodeClass    NodeKind = "class"
	NodeModule   NodeKind = "module"
)

type EdgeKind string

const (
	EdgeCalls   EdgeKind = "calls"
	EdgeImports EdgeKind = "imports"
	EdgeDefines EdgeKind = "defines"
)

// Node is a declared code entity. The id is derived from the file path and
// the qualified name, so ids are stable across rebuilds of unchanged files.
type Node struct {
	ID        string   `json:"id"`
	Kind      NodeKind `json:"kind"`
	File      string   `json:"file"`
	StartLine int      `json:"start"`
	EndLine   int      `json:"end"`
	Language  string   `json:"lang,omitempty"`
	Hash      string   `json:"hash"`
	Stale     bool     `json:"stale,omitempty"`
}

// Edge is a directed relationship between nodes. When the target symbol could
// not be matched to a declared node the edge is dangling: Resolved is false
// and Dst carries the raw symbol text instead of a node id.
type Edge struct {
	Src      string   `json:"src"`
	Dst      string   `json:"dst"`
	Kind     EdgeKind `json:"kind"`
	Resolved bool     `json:"resolved"`
}

// Key identifies an edge for deduplication: one edge per distinct
// (src, dst, kind) triple.
func (e Edge) Key() string {
	return e.Src + "\x00" + e.Dst + "\x00" + string(e.Kind)
}

const moduleEntity = "module"

// NodeID derives a node id from a file path and a qualified entity name.
func NodeID(file, qualified string) string {
	return file + ":" + qualified
}

// ModuleNodeID is the id of the synthetic module-level node every analyzed
// file has.
func ModuleNodeID(file string) string {
	return NodeID(file, moduleEntity)
}
