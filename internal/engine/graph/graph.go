package graph

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"ripple/internal/core/errors"
)

// Graph is the set of nodes keyed by id plus the deduplicated edge set.
//
// A Graph is mutated only while it is being built or merged; once published
// to readers it is treated as immutable. Writers build a new value and swap
// it in atomically instead of mutating a shared instance.
type Graph struct {
	nodes  map[string]*Node
	edges  map[string]*Edge
	byFile map[string][]string // file -> node ids, insertion order
}

func New() *Graph {
	return &Graph{
		nodes:  make(map[string]*Node),
		edges:  make(map[string]*Edge),
		byFile: make(map[string][]string),
	}
}

// AddNode inserts a node, reporting false if the id already exists.
// Ids are unique within a graph; a duplicate declaration collapses onto the
// first node rather than producing a second one.
func (g *Graph) AddNode(n Node) bool {
	if _, exists := g.nodes[n.ID]; exists {
		return false
	}
	copied := n
	g.nodes[n.ID] = &copied
	g.byFile[n.File] = append(g.byFile[n.File], n.ID)
	return true
}

// AddEdge inserts an edge, deduplicating on the (src, dst, kind) triple.
func (g *Graph) AddEdge(e Edge) bool {
	key := e.Key()
	if _, exists := g.edges[key]; exists {
		return false
	}
	copied := e
	g.edges[key] = &copied
	return true
}

func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

func (g *Graph) DanglingCount() int {
	count := 0
	for _, e := range g.edges {
		if !e.Resolved {
			count++
		}
	}
	return count
}

// Nodes returns all nodes sorted by id.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns all edges sorted by (src, dst, kind).
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Src != out[j].Src {
			return out[i].Src < out[j].Src
		}
		if out[i].Dst != out[j].Dst {
			return out[i].Dst < out[j].Dst
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// NodesInFile returns the file's nodes sorted by start line, module node first.
func (g *Graph) NodesInFile(file string) []*Node {
	ids := g.byFile[file]
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := g.nodes[id]; ok {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].Kind == NodeModule) != (out[j].Kind == NodeModule) {
			return out[i].Kind == NodeModule
		}
		if out[i].StartLine != out[j].StartLine {
			return out[i].StartLine < out[j].StartLine
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (g *Graph) HasFile(file string) bool {
	return len(g.byFile[file]) > 0
}

// Files returns all file paths present in the graph, sorted.
func (g *Graph) Files() []string {
	out := make([]string, 0, len(g.byFile))
	for f := range g.byFile {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// RemoveFile drops a file's nodes and every edge owned by them. Edge
// ownership follows the source node: edges from other files into this file
// are left untouched until their owning file is rebuilt.
func (g *Graph) RemoveFile(file string) {
	owned := make(map[string]bool, len(g.byFile[file]))
	for _, id := range g.byFile[file] {
		owned[id] = true
		delete(g.nodes, id)
	}
	delete(g.byFile, file)

	for key, e := range g.edges {
		if owned[e.Src] {
			delete(g.edges, key)
		}
	}
}

// RemoveEdge drops the edge with the same (src, dst, kind) key, if present.
func (g *Graph) RemoveEdge(e Edge) {
	delete(g.edges, e.Key())
}

// DemoteBrokenEdges rewrites resolved edges whose target node no longer
// exists into dangling edges carrying the target's symbol text, so reverse
// name matching keeps working until the owning file is rebuilt. The original
// broken edges are returned sorted by (src, dst, kind).
func (g *Graph) DemoteBrokenEdges() []Edge {
	var broken []Edge
	for _, e := range g.edges {
		if !e.Resolved {
			continue
		}
		if _, ok := g.nodes[e.Dst]; !ok {
			broken = append(broken, *e)
		}
	}
	sort.Slice(broken, func(i, j int) bool {
		if broken[i].Src != broken[j].Src {
			return broken[i].Src < broken[j].Src
		}
		if broken[i].Dst != broken[j].Dst {
			return broken[i].Dst < broken[j].Dst
		}
		return broken[i].Kind < broken[j].Kind
	})
	for _, e := range broken {
		g.RemoveEdge(e)
		g.AddEdge(Edge{Src: e.Src, Dst: danglingSymbol(e.Dst), Kind: e.Kind, Resolved: false})
	}
	return broken
}

// danglingSymbol derives the symbol text a demoted edge carries from the
// vanished target's node id: the qualified entity name, or the import stem
// for module nodes (a dangling import carries the module token, never the
// synthetic "module" suffix).
func danglingSymbol(nodeID string) string {
	idx := strings.LastIndex(nodeID, ":")
	if idx < 0 {
		return nodeID
	}
	file, sym := nodeID[:idx], nodeID[idx+1:]
	if sym != moduleEntity {
		return sym
	}
	base := path.Base(file)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Clone returns a deep copy safe to mutate independently.
func (g *Graph) Clone() *Graph {
	c := New()
	for _, n := range g.nodes {
		c.AddNode(*n)
	}
	for _, e := range g.edges {
		c.AddEdge(*e)
	}
	return c
}

// Validate checks structural invariants: every edge's source must reference
// an existing node, and resolved edges must point at existing nodes. A
// violation means the graph (or its persisted form) is corrupt.
func (g *Graph) Validate() error {
	for _, e := range g.edges {
		if _, ok := g.nodes[e.Src]; !ok {
			return errors.New(errors.CodeGraphCorruption,
				fmt.Sprintf("edge source %q references missing node", e.Src))
		}
		if e.Resolved {
			if _, ok := g.nodes[e.Dst]; !ok {
				return errors.New(errors.CodeGraphCorruption,
					fmt.Sprintf("resolved edge %q -> %q references missing node", e.Src, e.Dst))
			}
		}
	}
	return nil
}

// Equal reports node/edge set equality, the equality contract of the store's
// load(save(g)) guarantee.
func (g *Graph) Equal(other *Graph) bool {
	if len(g.nodes) != len(other.nodes) || len(g.edges) != len(other.edges) {
		return false
	}
	for id, n := range g.nodes {
		on, ok := other.nodes[id]
		if !ok || *n != *on {
			return false
		}
	}
	for key, e := range g.edges {
		oe, ok := other.edges[key]
		if !ok || *e != *oe {
			return false
		}
	}
	return true
}

// EnclosingEntity returns the innermost non-module node of the file whose
// span contains the line, or the file's module node when no declared span
// covers it.
func (g *Graph) EnclosingEntity(file string, line int) (*Node, bool) {
	var best *Node
	for _, id := range g.byFile[file] {
		n, ok := g.nodes[id]
		if !ok || n.Kind == NodeModule {
			continue
		}
		if line < n.StartLine || line > n.EndLine {
			continue
		}
		if best == nil || spanLen(n) < spanLen(best) {
			best = n
		}
	}
	if best != nil {
		return best, true
	}
	mod, ok := g.nodes[ModuleNodeID(file)]
	return mod, ok
}

func spanLen(n *Node) int {
	return n.EndLine - n.StartLine
}

// ReverseIndex indexes edges by their target for reverse traversal.
// Resolved edges are keyed by target node id; dangling edges by the
// unresolved symbol text they carry.
type ReverseIndex struct {
	byTarget map[string][]*Edge
	bySymbol map[string][]*Edge
}

// BuildReverseIndex builds the reverse adjacency over calls and imports
// edges. Defines edges are structural and excluded: impact never propagates
// along them.
func (g *Graph) BuildReverseIndex() *ReverseIndex {
	idx := &ReverseIndex{
		byTarget: make(map[string][]*Edge),
		bySymbol: make(map[string][]*Edge),
	}
	for _, e := range g.Edges() {
		if e.Kind == EdgeDefines {
			continue
		}
		if e.Resolved {
			idx.byTarget[e.Dst] = append(idx.byTarget[e.Dst], e)
		} else {
			idx.bySymbol[e.Dst] = append(idx.bySymbol[e.Dst], e)
		}
	}
	return idx
}

// Dependents returns edges whose target is the given node: resolved edges
// pointing at its id plus dangling edges carrying a symbol that matches the
// node's entity name.
func (idx *ReverseIndex) Dependents(n *Node) []*Edge {
	out := append([]*Edge(nil), idx.byTarget[n.ID]...)
	for _, sym := range symbolAliases(n) {
		out = append(out, idx.bySymbol[sym]...)
	}
	return out
}

// symbolAliases lists the raw symbol spellings a dangling edge may carry for
// this node. A module node answers to its import stem; an entity to its
// qualified name and its last segment.
func symbolAliases(n *Node) []string {
	if n.Kind == NodeModule {
		base := path.Base(n.File)
		return []string{strings.TrimSuffix(base, path.Ext(base))}
	}
	qualified := n.ID[len(n.File)+1:]
	aliases := []string{qualified}
	if idx := lastDot(qualified); idx >= 0 {
		aliases = append(aliases, qualified[idx+1:])
	}
	return aliases
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}
