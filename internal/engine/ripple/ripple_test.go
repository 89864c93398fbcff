package ripple

import (
	"context"
	"testing"

	"ripple/internal/engine/graph"
)

// chainGraph builds d.py:h -> c.py:g -> b.py:caller -> a.py:f plus the
// module-level import edges underneath.
func chainGraph() *graph.Graph {
	g := graph.New()
	files := []string{"a.py", "b.py", "c.py", "d.py"}
	funcs := []string{"f", "caller", "g", "h"}
	for i, file := range files {
		g.AddNode(graph.Node{ID: graph.ModuleNodeID(file), Kind: graph.NodeModule, File: file, StartLine: 1, EndLine: 20})
		g.AddNode(graph.Node{ID: file + ":" + funcs[i], Kind: graph.NodeFunction, File: file, StartLine: 2, EndLine: 6})
		g.AddEdge(graph.Edge{Src: graph.ModuleNodeID(file), Dst: file + ":" + funcs[i], Kind: graph.EdgeDefines, Resolved: true})
	}
	g.AddEdge(graph.Edge{Src: "b.py:caller", Dst: "a.py:f", Kind: graph.EdgeCalls, Resolved: true})
	g.AddEdge(graph.Edge{Src: "c.py:g", Dst: "b.py:caller", Kind: graph.EdgeCalls, Resolved: true})
	g.AddEdge(graph.Edge{Src: "d.py:h", Dst: "c.py:g", Kind: graph.EdgeCalls, Resolved: true})
	g.AddEdge(graph.Edge{Src: graph.ModuleNodeID("b.py"), Dst: graph.ModuleNodeID("a.py"), Kind: graph.EdgeImports, Resolved: true})
	return g
}

func tiers(res *Result) map[string]Tier {
	out := make(map[string]Tier, len(res.Impacted))
	for _, n := range res.Impacted {
		out[n.Node.ID] = n.Tier
	}
	return out
}

func seedOf(t *testing.T, g *graph.Graph, id string) *graph.Node {
	t.Helper()
	n, ok := g.Node(id)
	if !ok {
		t.Fatalf("missing node %q", id)
	}
	return n
}

func TestResolve_TierDecay(t *testing.T) {
	g := chainGraph()
	r := NewResolver(10)

	res, err := r.Resolve(context.Background(), g, []*graph.Node{seedOf(t, g, "a.py:f")})
	if err != nil {
		t.Fatal(err)
	}
	if res.Truncated {
		t.Error("chain of 3 hops should not truncate at maxHops=10")
	}

	got := tiers(res)
	want := map[string]Tier{
		"a.py:f":      TierDirect, // seed, distance 0
		"b.py:caller": TierHigh,   // one calls hop
		"c.py:g":      TierMedium, // two calls hops
		"d.py:h":      TierLow,    // three calls hops
	}
	for id, tier := range want {
		if got[id] != tier {
			t.Errorf("%s: tier = %q, want %q", id, got[id], tier)
		}
	}
	if res.ImpactedCount() != 3 {
		t.Errorf("impacted count = %d", res.ImpactedCount())
	}
}

func TestResolve_ImportHopIsMedium(t *testing.T) {
	g := chainGraph()
	r := NewResolver(10)

	res, err := r.Resolve(context.Background(), g, []*graph.Node{seedOf(t, g, graph.ModuleNodeID("a.py"))})
	if err != nil {
		t.Fatal(err)
	}

	got := tiers(res)
	if got[graph.ModuleNodeID("b.py")] != TierMedium {
		t.Errorf("one imports hop should be medium, got %q", got[graph.ModuleNodeID("b.py")])
	}
}

func TestResolve_DanglingPathIsLow(t *testing.T) {
	g := graph.New()
	g.AddNode(graph.Node{ID: graph.ModuleNodeID("a.py"), Kind: graph.NodeModule, File: "a.py", StartLine: 1, EndLine: 10})
	g.AddNode(graph.Node{ID: "a.py:f", Kind: graph.NodeFunction, File: "a.py", StartLine: 2, EndLine: 4})
	g.AddNode(graph.Node{ID: graph.ModuleNodeID("x.py"), Kind: graph.NodeModule, File: "x.py", StartLine: 1, EndLine: 10})
	g.AddNode(graph.Node{ID: "x.py:user", Kind: graph.NodeFunction, File: "x.py", StartLine: 2, EndLine: 4})
	// Name-based match only: the edge carries symbol text, not a node id.
	g.AddEdge(graph.Edge{Src: "x.py:user", Dst: "f", Kind: graph.EdgeCalls, Resolved: false})

	res, err := NewResolver(10).Resolve(context.Background(), g, []*graph.Node{seedOf(t, g, "a.py:f")})
	if err != nil {
		t.Fatal(err)
	}

	got := tiers(res)
	if got["x.py:user"] != TierLow {
		t.Errorf("dangling path must be low regardless of distance, got %q", got["x.py:user"])
	}
	for _, n := range res.Impacted {
		if n.Node.ID == "x.py:user" && !n.Dangling {
			t.Error("dangling flag should be set on the impacted node")
		}
	}
}

func TestResolve_RenamedSymbolHasNoFalsePositives(t *testing.T) {
	// After a rename, old dangling references carry the old name and must not
	// attach to the renamed node.
	g := graph.New()
	g.AddNode(graph.Node{ID: graph.ModuleNodeID("a.py"), Kind: graph.NodeModule, File: "a.py", StartLine: 1, EndLine: 10})
	g.AddNode(graph.Node{ID: "a.py:renamed", Kind: graph.NodeFunction, File: "a.py", StartLine: 2, EndLine: 4})
	g.AddNode(graph.Node{ID: graph.ModuleNodeID("x.py"), Kind: graph.NodeModule, File: "x.py", StartLine: 1, EndLine: 10})
	g.AddNode(graph.Node{ID: "x.py:user", Kind: graph.NodeFunction, File: "x.py", StartLine: 2, EndLine: 4})
	g.AddEdge(graph.Edge{Src: "x.py:user", Dst: "old_name", Kind: graph.EdgeCalls, Resolved: false})

	res, err := NewResolver(10).Resolve(context.Background(), g, []*graph.Node{seedOf(t, g, "a.py:renamed")})
	if err != nil {
		t.Fatal(err)
	}
	if res.ImpactedCount() != 0 {
		t.Errorf("expected empty ripple beyond the seed, got %+v", res.Impacted)
	}
}

func TestResolve_HopBoundTruncates(t *testing.T) {
	g := chainGraph()

	res, err := NewResolver(1).Resolve(context.Background(), g, []*graph.Node{seedOf(t, g, "a.py:f")})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Truncated {
		t.Error("expected truncation at maxHops=1")
	}
	got := tiers(res)
	if _, ok := got["b.py:caller"]; !ok {
		t.Error("distance-1 node should be reached before the bound")
	}
	if _, ok := got["c.py:g"]; ok {
		t.Error("distance-2 node should be cut off by the bound")
	}
}

func TestResolve_ExactHopBoundIsComplete(t *testing.T) {
	g := chainGraph()

	// The chain is exactly three hops; maxHops=3 reaches the last node and
	// nothing beyond it was cut off.
	res, err := NewResolver(3).Resolve(context.Background(), g, []*graph.Node{seedOf(t, g, "a.py:f")})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tiers(res)["d.py:h"]; !ok {
		t.Fatal("final chain node should be reached at the bound")
	}
	if res.Truncated {
		t.Error("bound equal to the chain length omits nothing and must not report truncation")
	}
}

func TestResolve_VisitOnceKeepsFirstDiscovery(t *testing.T) {
	g := chainGraph()
	// Extra shortcut edge: d.py:h also calls a.py:f directly.
	g.AddEdge(graph.Edge{Src: "d.py:h", Dst: "a.py:f", Kind: graph.EdgeCalls, Resolved: true})

	res, err := NewResolver(10).Resolve(context.Background(), g, []*graph.Node{seedOf(t, g, "a.py:f")})
	if err != nil {
		t.Fatal(err)
	}

	count := 0
	for _, n := range res.Impacted {
		if n.Node.ID == "d.py:h" {
			count++
			if n.Distance != 1 {
				t.Errorf("first discovery should win: distance = %d", n.Distance)
			}
			if n.Tier != TierHigh {
				t.Errorf("direct call shortcut should be high, got %q", n.Tier)
			}
		}
	}
	if count != 1 {
		t.Errorf("node reported %d times, want once", count)
	}
}

func TestResolve_MultiSeedSharedDependent(t *testing.T) {
	g := chainGraph()

	res, err := NewResolver(10).Resolve(context.Background(), g, []*graph.Node{
		seedOf(t, g, "a.py:f"),
		seedOf(t, g, "b.py:caller"),
	})
	if err != nil {
		t.Fatal(err)
	}

	got := tiers(res)
	if got["b.py:caller"] != TierDirect {
		t.Errorf("a node that is itself a seed stays direct, got %q", got["b.py:caller"])
	}
	if got["c.py:g"] != TierHigh {
		t.Errorf("one hop from the caller seed should be high, got %q", got["c.py:g"])
	}
}

func TestResolve_Cancellation(t *testing.T) {
	g := chainGraph()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewResolver(10).Resolve(ctx, g, []*graph.Node{seedOf(t, g, "a.py:f")})
	if err == nil {
		t.Error("cancelled context should abort the traversal")
	}
}

func TestResolve_CycleTerminates(t *testing.T) {
	g := graph.New()
	for _, file := range []string{"a.py", "b.py"} {
		g.AddNode(graph.Node{ID: graph.ModuleNodeID(file), Kind: graph.NodeModule, File: file, StartLine: 1, EndLine: 10})
		g.AddNode(graph.Node{ID: file + ":f", Kind: graph.NodeFunction, File: file, StartLine: 2, EndLine: 4})
	}
	g.AddEdge(graph.Edge{Src: "a.py:f", Dst: "b.py:f", Kind: graph.EdgeCalls, Resolved: true})
	g.AddEdge(graph.Edge{Src: "b.py:f", Dst: "a.py:f", Kind: graph.EdgeCalls, Resolved: true})

	res, err := NewResolver(10).Resolve(context.Background(), g, []*graph.Node{seedOf(t, g, "a.py:f")})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Impacted) != 2 {
		t.Errorf("cycle should visit each node once, got %+v", res.Impacted)
	}
}
