package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ripple/internal/core/errors"
	"ripple/internal/engine/graph"
)

const formatVersion = 1

// fileFormat is the persisted shape of a graph. Nodes are sorted by id and
// edges by (src, dst, kind) before marshalling, so the same graph always
// serializes to byte-identical output.
type fileFormat struct {
	Version int           `json:"version"`
	Nodes   []*graph.Node `json:"nodes"`
	Edges   []*graph.Edge `json:"edges"`
}

// Store persists graphs as canonical JSON at a fixed path.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Save writes the graph atomically: marshal to a temp file in the target
// directory, then rename over the destination. A crash mid-write never leaves
// a truncated store behind.
func (s *Store) Save(g *graph.Graph) error {
	data, err := Marshal(g)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "creating store directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp*")
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "creating temp store file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeInternal, "writing graph store")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeInternal, "closing graph store")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.CodeInternal, "replacing graph store")
	}
	return nil
}

// Load reads and validates the persisted graph. A missing file is NOT_FOUND;
// anything unreadable or structurally invalid is GRAPH_CORRUPTION.
func (s *Store) Load() (*graph.Graph, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeNotFound, "no graph store at "+s.path)
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "reading graph store")
	}
	g, err := Unmarshal(data)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, s.path)
	}
	return g, nil
}

// Marshal renders the graph in its canonical persisted form.
func Marshal(g *graph.Graph) ([]byte, error) {
	ff := fileFormat{
		Version: formatVersion,
		Nodes:   g.Nodes(),
		Edges:   g.Edges(),
	}
	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "marshalling graph")
	}
	return append(data, '\n'), nil
}

// Unmarshal parses a persisted graph and checks its structural invariants.
func Unmarshal(data []byte) (*graph.Graph, error) {
	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, errors.Wrap(err, errors.CodeGraphCorruption, "graph store is not valid JSON")
	}
	if ff.Version != formatVersion {
		return nil, errors.New(errors.CodeGraphCorruption,
			fmt.Sprintf("unsupported graph store version %d", ff.Version))
	}

	g := graph.New()
	for _, n := range ff.Nodes {
		if n.ID == "" || n.File == "" {
			return nil, errors.New(errors.CodeGraphCorruption, "node with empty id or file")
		}
		if !g.AddNode(*n) {
			return nil, errors.New(errors.CodeGraphCorruption, "duplicate node id "+n.ID)
		}
	}
	for _, e := range ff.Edges {
		if !g.AddEdge(*e) {
			return nil, errors.New(errors.CodeGraphCorruption, "duplicate edge "+e.Src+" -> "+e.Dst)
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// MergeUpdate folds a partial rebuild into the previous graph: the changed
// files' old contribution is dropped, the partial graph's nodes and edges are
// added, and resolved edges from unchanged files whose target disappeared are
// demoted to dangling edges carrying the target's qualified name.
func MergeUpdate(previous *graph.Graph, changedFiles []string, partial *graph.Graph) (*graph.Graph, error) {
	merged := previous.Clone()
	for _, f := range changedFiles {
		merged.RemoveFile(f)
	}
	for _, n := range partial.Nodes() {
		merged.AddNode(*n)
	}
	for _, e := range partial.Edges() {
		merged.AddEdge(*e)
	}

	merged.DemoteBrokenEdges()

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}
