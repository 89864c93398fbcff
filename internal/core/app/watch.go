package app

import (
	"context"
	"log/slog"
	"os"

	"ripple/internal/watcher"
)

// Watch rebuilds the graph whenever watched source files change. Rebuilds are
// debounced by the watcher and rate limited here, so a storm of events (a
// branch switch, a formatter run) collapses into a bounded number of builds.
// Deleted files are merged out of the graph directly; only surviving files
// trigger a rebuild.
func (s *Service) Watch(ctx context.Context) error {
	w, err := watcher.New(
		s.cfg.Watch.Debounce,
		s.cfg.Exclude.Dirs,
		s.cfg.Exclude.Files,
		func(paths []string) {
			slog.Info("change detected", "files", len(paths))
			removed, present := partitionRemoved(paths)
			if len(removed) > 0 {
				if err := s.PruneRemoved(removed); err != nil {
					slog.Error("pruning removed files failed", "error", err)
				}
			}
			if len(present) == 0 {
				return
			}
			if err := s.limiter.Wait(ctx, 1); err != nil {
				return
			}
			if _, err := s.Analyze(ctx); err != nil {
				slog.Error("rebuild failed", "error", err)
			}
		},
	)
	if err != nil {
		return err
	}
	s.watcher = w
	return w.Watch(s.cfg.Paths)
}

// partitionRemoved splits an event batch into paths that vanished from disk
// and paths that still exist.
func partitionRemoved(paths []string) (removed, present []string) {
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			removed = append(removed, p)
		} else {
			present = append(present, p)
		}
	}
	return removed, present
}
