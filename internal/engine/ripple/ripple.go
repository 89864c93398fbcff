package ripple

import (
	"context"
	"sort"
	"time"

	"ripple/internal/engine/graph"
	"ripple/internal/shared/observability"
)

// Tier is the confidence bucket of an impacted node. Confidence decays with
// distance, decays faster across imports edges than calls edges, and drops to
// low outright when the path crosses a dangling edge.
type Tier string

const (
	TierDirect Tier = "direct"
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// edge kind weights: a calls hop is stronger evidence than an imports hop.
const (
	weightCalls   = 1
	weightImports = 2
)

// ImpactedNode is one node reached by the reverse traversal, with the
// distance and path evidence from its first discovery.
type ImpactedNode struct {
	Node     *graph.Node
	Distance int
	Tier     Tier
	Via      string         // node id this one depends on, empty for seeds
	ViaKind  graph.EdgeKind // kind of the edge that reached it
	Dangling bool           // path from seed crossed a dangling edge
}

// Result is the full ripple of a change set.
type Result struct {
	Impacted  []ImpactedNode
	Truncated bool // hop bound cut the traversal short
}

// ImpactedCount returns the number of impacted nodes beyond the seeds.
func (r *Result) ImpactedCount() int {
	count := 0
	for _, n := range r.Impacted {
		if n.Distance > 0 {
			count++
		}
	}
	return count
}

// Resolver walks the reverse dependency closure of seed nodes.
type Resolver struct {
	maxHops int
}

func NewResolver(maxHops int) *Resolver {
	if maxHops <= 0 {
		maxHops = 10
	}
	return &Resolver{maxHops: maxHops}
}

type frontierItem struct {
	node     *graph.Node
	dist     int
	weight   int
	dangling bool
}

// Resolve runs a multi-source reverse BFS from the seeds over calls and
// imports edges. Each node is visited once, at its first-discovery distance.
// The traversal reads an immutable graph snapshot and never mutates it.
func (r *Resolver) Resolve(ctx context.Context, g *graph.Graph, seeds []*graph.Node) (*Result, error) {
	start := time.Now()
	defer func() {
		observability.TraversalDuration.Observe(time.Since(start).Seconds())
	}()

	idx := g.BuildReverseIndex()
	res := &Result{}
	seen := make(map[string]bool)

	frontier := make([]frontierItem, 0, len(seeds))
	for _, s := range seeds {
		if s == nil || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		res.Impacted = append(res.Impacted, ImpactedNode{Node: s, Distance: 0, Tier: TierDirect})
		frontier = append(frontier, frontierItem{node: s})
	}
	sort.Slice(frontier, func(i, j int) bool { return frontier[i].node.ID < frontier[j].node.ID })

	for hops := 0; len(frontier) > 0; hops++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if hops == r.maxHops {
			res.Truncated = hasUnseenDependent(g, idx, frontier, seen)
			break
		}

		var next []frontierItem
		for _, it := range frontier {
			for _, e := range idx.Dependents(it.node) {
				src, ok := g.Node(e.Src)
				if !ok || seen[src.ID] {
					continue
				}
				seen[src.ID] = true

				item := frontierItem{
					node:     src,
					dist:     it.dist + 1,
					weight:   it.weight + edgeWeight(e.Kind),
					dangling: it.dangling || !e.Resolved,
				}
				res.Impacted = append(res.Impacted, ImpactedNode{
					Node:     src,
					Distance: item.dist,
					Tier:     tierFor(item.weight, item.dangling),
					Via:      it.node.ID,
					ViaKind:  e.Kind,
					Dangling: item.dangling,
				})
				next = append(next, item)
			}
		}
		sort.Slice(next, func(i, j int) bool { return next[i].node.ID < next[j].node.ID })
		frontier = next
	}

	sort.Slice(res.Impacted, func(i, j int) bool {
		if res.Impacted[i].Distance != res.Impacted[j].Distance {
			return res.Impacted[i].Distance < res.Impacted[j].Distance
		}
		return res.Impacted[i].Node.ID < res.Impacted[j].Node.ID
	})
	return res, nil
}

// hasUnseenDependent reports whether any frontier node still has an
// unvisited dependent. A chain that ends exactly at the hop bound is
// complete, not truncated.
func hasUnseenDependent(g *graph.Graph, idx *graph.ReverseIndex, frontier []frontierItem, seen map[string]bool) bool {
	for _, it := range frontier {
		for _, e := range idx.Dependents(it.node) {
			if src, ok := g.Node(e.Src); ok && !seen[src.ID] {
				return true
			}
		}
	}
	return false
}

func edgeWeight(kind graph.EdgeKind) int {
	if kind == graph.EdgeImports {
		return weightImports
	}
	return weightCalls
}

// tierFor maps accumulated path weight to a confidence tier. A path through a
// dangling edge is name-based guessing and is always low.
func tierFor(weight int, dangling bool) Tier {
	if dangling {
		return TierLow
	}
	switch {
	case weight <= 1:
		return TierHigh
	case weight == 2:
		return TierMedium
	default:
		return TierLow
	}
}
