package store

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"ripple/internal/core/errors"
	"ripple/internal/engine/graph"
)

func sampleGraph() *graph.Graph {
	g := graph.New()
	g.AddNode(graph.Node{ID: graph.ModuleNodeID("a.py"), Kind: graph.NodeModule, File: "a.py", StartLine: 1, EndLine: 10, Language: "python", Hash: "h1"})
	g.AddNode(graph.Node{ID: "a.py:f", Kind: graph.NodeFunction, File: "a.py", StartLine: 2, EndLine: 4, Language: "python", Hash: "h2"})
	g.AddNode(graph.Node{ID: graph.ModuleNodeID("b.py"), Kind: graph.NodeModule, File: "b.py", StartLine: 1, EndLine: 8, Language: "python", Hash: "h3"})
	g.AddNode(graph.Node{ID: "b.py:caller", Kind: graph.NodeFunction, File: "b.py", StartLine: 2, EndLine: 5, Language: "python", Hash: "h4"})
	g.AddEdge(graph.Edge{Src: graph.ModuleNodeID("a.py"), Dst: "a.py:f", Kind: graph.EdgeDefines, Resolved: true})
	g.AddEdge(graph.Edge{Src: graph.ModuleNodeID("b.py"), Dst: graph.ModuleNodeID("a.py"), Kind: graph.EdgeImports, Resolved: true})
	g.AddEdge(graph.Edge{Src: "b.py:caller", Dst: "a.py:f", Kind: graph.EdgeCalls, Resolved: true})
	g.AddEdge(graph.Edge{Src: "b.py:caller", Dst: "ghost", Kind: graph.EdgeCalls, Resolved: false})
	return g
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	s := New(path)
	g := sampleGraph()

	if err := s.Save(g); err != nil {
		t.Fatal(err)
	}
	loaded, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !g.Equal(loaded) {
		t.Error("loaded graph differs from saved graph")
	}
}

func TestSave_ByteIdentical(t *testing.T) {
	first, err := Marshal(sampleGraph())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Marshal(sampleGraph())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("same graph must serialize byte-identically")
	}
}

func TestLoad_Missing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "absent.json"))

	_, err := s.Load()
	if !errors.IsCode(err, errors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"not json":          "{{{",
		"bad version":       `{"version": 99, "nodes": [], "edges": []}`,
		"empty node id":     `{"version": 1, "nodes": [{"id": "", "kind": "function", "file": "a.py", "start": 1, "end": 2, "hash": "h"}], "edges": []}`,
		"edge missing node": `{"version": 1, "nodes": [], "edges": [{"src": "a.py:f", "dst": "b.py:g", "kind": "calls", "resolved": true}]}`,
	}
	for name, content := range cases {
		path := filepath.Join(dir, name+".json")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := New(path).Load()
		if !errors.IsCode(err, errors.CodeGraphCorruption) {
			t.Errorf("%s: expected GRAPH_CORRUPTION, got %v", name, err)
		}
	}
}

func TestSave_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	s := New(path)

	if err := s.Save(sampleGraph()); err != nil {
		t.Fatal(err)
	}
	smaller := graph.New()
	smaller.AddNode(graph.Node{ID: graph.ModuleNodeID("a.py"), Kind: graph.NodeModule, File: "a.py", StartLine: 1, EndLine: 3, Hash: "h"})
	if err := s.Save(smaller); err != nil {
		t.Fatal(err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !smaller.Equal(loaded) {
		t.Error("second save should fully replace the first")
	}
}

func TestMergeUpdate(t *testing.T) {
	previous := sampleGraph()

	// a.py was rebuilt: f was renamed to g.
	partial := graph.New()
	partial.AddNode(graph.Node{ID: graph.ModuleNodeID("a.py"), Kind: graph.NodeModule, File: "a.py", StartLine: 1, EndLine: 10, Language: "python", Hash: "h5"})
	partial.AddNode(graph.Node{ID: "a.py:g", Kind: graph.NodeFunction, File: "a.py", StartLine: 2, EndLine: 4, Language: "python", Hash: "h6"})
	partial.AddEdge(graph.Edge{Src: graph.ModuleNodeID("a.py"), Dst: "a.py:g", Kind: graph.EdgeDefines, Resolved: true})

	merged, err := MergeUpdate(previous, []string{"a.py"}, partial)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := merged.Node("a.py:f"); ok {
		t.Error("old entity should be gone after merge")
	}
	if _, ok := merged.Node("a.py:g"); !ok {
		t.Error("new entity missing after merge")
	}
	if _, ok := merged.Node("b.py:caller"); !ok {
		t.Error("unchanged file lost nodes")
	}

	// b.py's resolved call into the removed entity is demoted to dangling.
	sawDemoted := false
	for _, e := range merged.Edges() {
		if e.Src == "b.py:caller" && e.Kind == graph.EdgeCalls && !e.Resolved && e.Dst == "f" {
			sawDemoted = true
		}
		if e.Resolved && e.Dst == "a.py:f" {
			t.Error("resolved edge to removed node survived the merge")
		}
	}
	if !sawDemoted {
		t.Errorf("expected demoted dangling edge, got %+v", merged.Edges())
	}

	if err := merged.Validate(); err != nil {
		t.Errorf("merged graph should validate: %v", err)
	}

	// The previous graph is untouched.
	if _, ok := previous.Node("a.py:f"); !ok {
		t.Error("merge must not mutate the previous graph")
	}
}
