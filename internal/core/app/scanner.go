package app

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"ripple/internal/config"
	"ripple/internal/engine/graph"
	"ripple/internal/engine/parser"

	"github.com/gobwas/glob"
)

// scanFiles walks the configured roots and reads every supported source file.
// Exclude patterns match the base name of directories and files.
func scanFiles(cfg *config.Config, p *parser.Parser) ([]graph.FileInput, error) {
	dirGlobs, err := compileGlobs(cfg.Exclude.Dirs)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude dir pattern: %w", err)
	}
	fileGlobs, err := compileGlobs(cfg.Exclude.Files)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude file pattern: %w", err)
	}

	seen := make(map[string]bool)
	var files []graph.FileInput

	for _, root := range cfg.Paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			base := filepath.Base(path)
			if d.IsDir() {
				for _, g := range dirGlobs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
				return nil
			}

			if !p.SupportsPath(path) {
				return nil
			}
			for _, g := range fileGlobs {
				if g.Match(base) {
					return nil
				}
			}

			normalized := filepath.ToSlash(path)
			if seen[normalized] {
				return nil
			}
			seen[normalized] = true

			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			files = append(files, graph.FileInput{Path: normalized, Content: content})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}
