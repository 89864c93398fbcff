package graph

import (
	"context"
	"sort"
	"time"

	"ripple/internal/engine/parser"
	"ripple/internal/shared/observability"
	"ripple/internal/shared/util"

	"golang.org/x/sync/errgroup"
)

// FileInput is one source file handed to the builder. The builder decides
// from the content hash whether the file actually needs re-parsing.
type FileInput struct {
	Path    string
	Content []byte
}

type DiagnosticKind string

const (
	DiagAmbiguousResolution DiagnosticKind = "ambiguous_resolution"
	DiagDanglingEdge        DiagnosticKind = "dangling_edge"
	DiagParseFailure        DiagnosticKind = "parse_failure"
)

// Diagnostic is a non-fatal build finding. Ambiguity and dangling targets
// are expected conditions and never abort a build.
type Diagnostic struct {
	Kind       DiagnosticKind
	File       string
	Line       int
	Symbol     string
	Chosen     string
	Candidates []string
	Detail     string
}

type BuildResult struct {
	Graph       *Graph
	Diagnostics []Diagnostic
	StaleFiles  []string // files whose parse failed; previous nodes carried over
	Reparsed    []string // files actually re-parsed this build
}

// Builder constructs a Graph from parsed source in two passes: a declaration
// pass that creates one node per entity, then a resolution pass that turns
// every raw reference into exactly one edge, resolved or dangling.
type Builder struct {
	adapter parser.Adapter
	workers int
}

func NewBuilder(adapter parser.Adapter, workers int) *Builder {
	if workers <= 0 {
		workers = 4
	}
	return &Builder{adapter: adapter, workers: workers}
}

type parseJob struct {
	input  FileInput
	hash   string
	syntax *parser.FileSyntax
	err    error
}

// Build produces a fresh graph for the given file set, reusing the previous
// graph's contribution for files whose content hash is unchanged. Files
// present in the previous graph but absent from the input set are dropped.
// The returned graph is a new value; the previous graph is never mutated.
func (b *Builder) Build(ctx context.Context, files []FileInput, previous *Graph) (*BuildResult, error) {
	start := time.Now()
	defer func() {
		observability.BuildDuration.Observe(time.Since(start).Seconds())
	}()

	if previous == nil {
		previous = New()
	}

	jobs := make([]*parseJob, 0, len(files))
	carried := make(map[string]bool)
	for i := range files {
		f := files[i]
		hash := util.HashContent(f.Content)
		if prev, ok := previous.Node(ModuleNodeID(f.Path)); ok && prev.Hash == hash && !prev.Stale {
			carried[f.Path] = true
			continue
		}
		jobs = append(jobs, &parseJob{input: f, hash: hash})
	}

	// Declaration pass: parse changed files in parallel. Parse failures are
	// recorded per job; only cancellation aborts the group. The Wait below is
	// the barrier between declaration and resolution.
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(b.workers)
	for _, job := range jobs {
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			job.syntax, job.err = b.adapter.Parse(job.input.Path, job.input.Content)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	g := New()
	res := &BuildResult{Graph: g}

	copyFiles(g, previous, carried, false)

	for _, job := range jobs {
		if job.err == nil {
			continue
		}
		// Parse failure is isolated to the file: keep its previous nodes and
		// edges, marked stale, so the rest of the graph still builds.
		observability.ParseFailuresTotal.Inc()
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Kind:   DiagParseFailure,
			File:   job.input.Path,
			Detail: job.err.Error(),
		})
		res.StaleFiles = append(res.StaleFiles, job.input.Path)
		if previous.HasFile(job.input.Path) {
			copyFiles(g, previous, map[string]bool{job.input.Path: true}, true)
		}
	}

	for _, job := range jobs {
		if job.err != nil {
			continue
		}
		addFileNodes(g, job.syntax, job.input.Content, job.hash)
		res.Reparsed = append(res.Reparsed, job.input.Path)
	}

	scope := newResolutionScope(g)
	for _, job := range jobs {
		if job.err != nil {
			continue
		}
		res.Diagnostics = append(res.Diagnostics, scope.resolveFile(job.syntax)...)
	}

	// A reparsed file can rename or delete an entity that a carried file's
	// resolved edges still target. Those edges are demoted to dangling name
	// edges; the owner re-resolves them on its next reparse.
	for _, e := range g.DemoteBrokenEdges() {
		d := Diagnostic{
			Kind:   DiagDanglingEdge,
			Symbol: danglingSymbol(e.Dst),
			Detail: "resolution target removed: " + e.Dst,
		}
		if n, ok := g.Node(e.Src); ok {
			d.File = n.File
		}
		res.Diagnostics = append(res.Diagnostics, d)
	}

	sort.Strings(res.StaleFiles)
	sort.Strings(res.Reparsed)

	if err := g.Validate(); err != nil {
		return nil, err
	}

	observability.GraphNodes.Set(float64(g.NodeCount()))
	observability.GraphEdges.Set(float64(g.EdgeCount()))
	observability.DanglingEdges.Set(float64(g.DanglingCount()))

	return res, nil
}

// copyFiles carries a set of files from src into dst: their nodes plus every
// edge owned by those nodes (edge ownership follows the source node).
func copyFiles(dst, src *Graph, files map[string]bool, markStale bool) {
	if len(files) == 0 {
		return
	}
	owned := make(map[string]bool)
	for file := range files {
		for _, n := range src.NodesInFile(file) {
			copied := *n
			if markStale {
				copied.Stale = true
			}
			dst.AddNode(copied)
			owned[n.ID] = true
		}
	}
	for _, e := range src.Edges() {
		if owned[e.Src] {
			dst.AddEdge(*e)
		}
	}
}

// addFileNodes creates the file's synthetic module node, one node per
// declared entity, and the structural defines edges from module to entity.
func addFileNodes(g *Graph, syntax *parser.FileSyntax, content []byte, fileHash string) {
	lines := util.CountLines(content)
	if lines < 1 {
		lines = 1
	}
	moduleID := ModuleNodeID(syntax.Path)
	g.AddNode(Node{
		ID:        moduleID,
		Kind:      NodeModule,
		File:      syntax.Path,
		StartLine: 1,
		EndLine:   lines,
		Language:  syntax.Language,
		Hash:      fileHash,
	})

	for _, ent := range syntax.Entities {
		kind := NodeFunction
		if ent.Kind == parser.EntityClass {
			kind = NodeClass
		}
		id := NodeID(syntax.Path, ent.QualifiedName)
		added := g.AddNode(Node{
			ID:        id,
			Kind:      kind,
			File:      syntax.Path,
			StartLine: ent.StartLine,
			EndLine:   ent.EndLine,
			Language:  syntax.Language,
			Hash:      util.HashLines(content, ent.StartLine, ent.EndLine),
		})
		if added {
			g.AddEdge(Edge{Src: moduleID, Dst: id, Kind: EdgeDefines, Resolved: true})
		}
	}
}
