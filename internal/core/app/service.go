package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"ripple/internal/config"
	"ripple/internal/core/errors"
	"ripple/internal/data/history"
	"ripple/internal/engine/diffmap"
	"ripple/internal/engine/graph"
	"ripple/internal/engine/parser"
	"ripple/internal/engine/ripple"
	"ripple/internal/engine/store"
	"ripple/internal/shared/util"
	"ripple/internal/watcher"
)

// Service wires the parser, builder, graph store, impact resolver and run
// history together behind the two top-level operations: Analyze and Impact.
//
// Builds are serialized by buildMu; the finished graph is published through an
// atomic pointer, so Impact always reads a consistent snapshot and never
// observes a half-built graph.
type Service struct {
	cfg      *config.Config
	parser   *parser.Parser
	builder  *graph.Builder
	graphs   *store.Store
	runs     *history.Store
	resolver *ripple.Resolver
	limiter  *util.Limiter

	buildMu  sync.Mutex
	snapshot atomic.Pointer[graph.Graph]
	watcher  *watcher.Watcher
}

func NewService(cfg *config.Config) (*Service, error) {
	p := parser.NewParser()
	s := &Service{
		cfg:      cfg,
		parser:   p,
		builder:  graph.NewBuilder(p, cfg.Analysis.Workers),
		graphs:   store.New(cfg.StorePath),
		resolver: ripple.NewResolver(cfg.Analysis.MaxHops),
		limiter:  util.NewLimiter(cfg.Watch.RebuildPerSecond, cfg.Watch.RebuildBurst),
	}

	if cfg.History.Path != "" {
		runs, err := history.Open(cfg.History.Path)
		if err != nil {
			// History is auxiliary: analysis still works without it.
			slog.Warn("run history disabled", "path", cfg.History.Path, "error", err)
		} else {
			s.runs = runs
		}
	}

	return s, nil
}

// Snapshot returns the currently published graph, or nil before the first
// Analyze or Impact of this process.
func (s *Service) Snapshot() *graph.Graph {
	return s.snapshot.Load()
}

// Analyze scans the configured paths, rebuilds the graph reusing the previous
// one for unchanged files, persists it, and publishes the new snapshot.
func (s *Service) Analyze(ctx context.Context) (*graph.BuildResult, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	files, err := scanFiles(s.cfg, s.parser)
	if err != nil {
		return nil, err
	}

	previous := s.snapshot.Load()
	if previous == nil && s.graphs.Exists() {
		loaded, err := s.graphs.Load()
		if err != nil {
			slog.Warn("ignoring unreadable graph store, rebuilding from scratch", "error", err)
		} else {
			previous = loaded
		}
	}

	res, err := s.builder.Build(ctx, files, previous)
	if err != nil {
		return nil, err
	}
	if err := s.graphs.Save(res.Graph); err != nil {
		return nil, err
	}
	s.snapshot.Store(res.Graph)

	slog.Info("graph built",
		"files", len(files),
		"reparsed", len(res.Reparsed),
		"nodes", res.Graph.NodeCount(),
		"edges", res.Graph.EdgeCount(),
		"dangling", res.Graph.DanglingCount(),
		"stale", len(res.StaleFiles),
	)
	return res, nil
}

// Impact maps a unified diff onto the current graph and walks the reverse
// dependency closure of the changed entities.
func (s *Service) Impact(ctx context.Context, diffInput io.Reader) (*ImpactReport, error) {
	g, err := s.currentGraph()
	if err != nil {
		return nil, err
	}

	changes, err := diffmap.FromUnifiedDiff(diffInput)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, errors.New(errors.CodeValidationError, "diff contains no file changes")
	}

	return s.impactForChanges(ctx, g, changes)
}

// ImpactForFiles treats whole files as changed, without line information.
// Every entity in each file becomes a seed.
func (s *Service) ImpactForFiles(ctx context.Context, paths []string) (*ImpactReport, error) {
	g, err := s.currentGraph()
	if err != nil {
		return nil, err
	}

	changes := make([]diffmap.FileChange, 0, len(paths))
	for _, p := range paths {
		changes = append(changes, diffmap.FileChange{Path: p})
	}
	return s.impactForChanges(ctx, g, changes)
}

// PruneRemoved drops deleted files from the graph without a rescan: removal
// needs no parsing, so the previous graph merged with an empty partial is the
// complete new graph. Resolved edges into the deleted files are demoted to
// dangling name edges by the merge.
func (s *Service) PruneRemoved(paths []string) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	previous := s.snapshot.Load()
	if previous == nil {
		return nil
	}
	changed := make([]string, 0, len(paths))
	for _, p := range paths {
		p = filepath.ToSlash(p)
		if previous.HasFile(p) {
			changed = append(changed, p)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	merged, err := store.MergeUpdate(previous, changed, graph.New())
	if err != nil {
		return err
	}
	if err := s.graphs.Save(merged); err != nil {
		return err
	}
	s.snapshot.Store(merged)

	slog.Info("removed files pruned",
		"files", len(changed),
		"nodes", merged.NodeCount(),
		"dangling", merged.DanglingCount(),
	)
	return nil
}

// currentGraph returns the published snapshot, loading the persisted store on
// first use.
func (s *Service) currentGraph() (*graph.Graph, error) {
	if g := s.snapshot.Load(); g != nil {
		return g, nil
	}

	g, err := s.graphs.Load()
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			return nil, errors.Wrap(err, errors.CodeNotFound, "no graph available, run analyze first")
		}
		return nil, err
	}
	s.snapshot.CompareAndSwap(nil, g)
	return s.snapshot.Load(), nil
}

func (s *Service) Close() error {
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			slog.Warn("closing watcher", "error", err)
		}
	}
	return s.runs.Close()
}
