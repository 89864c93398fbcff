package diffmap

import (
	"io"
	"sort"
	"strings"

	"ripple/internal/core/errors"
	"ripple/internal/engine/graph"

	"github.com/sourcegraph/go-diff/diff"
)

// LineRange is an inclusive span of changed lines on the new side of a diff.
type LineRange struct {
	Start int
	End   int
}

// FileChange is the per-file unit of a change set: a list of changed line
// ranges, a removal, or neither, which means the whole file changed.
type FileChange struct {
	Path    string
	Removed bool
	Ranges  []LineRange
}

// Seed is one selected node plus the changed lines that selected it. A
// removed seed comes from a deleted file; it is reported directly but never
// used as a traversal source.
type Seed struct {
	Node    *graph.Node
	Lines   []LineRange
	Removed bool
}

// MapResult carries the seed nodes for impact traversal. UnknownFiles lists
// changed paths the graph has never seen; they still get a synthesized module
// seed so the caller can report them.
type MapResult struct {
	Seeds        []Seed
	UnknownFiles []string
}

// SourceNodes returns the nodes the traversal starts from: every seed not
// tagged removed.
func (m *MapResult) SourceNodes() []*graph.Node {
	out := make([]*graph.Node, 0, len(m.Seeds))
	for _, s := range m.Seeds {
		if !s.Removed {
			out = append(out, s.Node)
		}
	}
	return out
}

// FromUnifiedDiff parses a unified diff into file changes. Changed ranges are
// the added and modified new-side lines of each hunk, context excluded; a
// file whose new side is /dev/null is a removal.
func FromUnifiedDiff(r io.Reader) ([]FileChange, error) {
	fds, err := diff.NewMultiFileDiffReader(r).ReadAllFiles()
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, errors.CodeValidationError, "parsing unified diff")
	}

	changes := make([]FileChange, 0, len(fds))
	for _, fd := range fds {
		if fd.NewName == "/dev/null" {
			changes = append(changes, FileChange{
				Path:    stripDiffPrefix(fd.OrigName),
				Removed: true,
			})
			continue
		}
		fc := FileChange{Path: stripDiffPrefix(fd.NewName)}
		for _, h := range fd.Hunks {
			fc.Ranges = append(fc.Ranges, hunkRanges(h)...)
		}
		changes = append(changes, fc)
	}
	return changes, nil
}

// hunkRanges derives the changed new-side lines from a hunk body: added and
// modified lines count, context lines do not. A pure deletion leaves no
// new-side line of its own, so it maps to the line now sitting at the
// deletion point.
func hunkRanges(h *diff.Hunk) []LineRange {
	var changed []int
	line := int(h.NewStartLine)
	pendingDeletion := false

	body := strings.TrimSuffix(string(h.Body), "\n")
	for _, raw := range strings.Split(body, "\n") {
		switch {
		case raw != "" && raw[0] == '+':
			changed = append(changed, line)
			line++
			pendingDeletion = false
		case raw != "" && raw[0] == '-':
			pendingDeletion = true
		case raw == "" || raw[0] == ' ':
			// Context; some tools emit empty context lines without the
			// leading space.
			if pendingDeletion {
				changed = append(changed, line)
				pendingDeletion = false
			}
			line++
		}
	}
	if pendingDeletion {
		point := line - 1
		if point < int(h.NewStartLine) {
			point = int(h.NewStartLine)
		}
		changed = append(changed, point)
	}
	return coalesce(changed)
}

// coalesce collapses sorted changed lines into inclusive ranges.
func coalesce(lines []int) []LineRange {
	if len(lines) == 0 {
		return nil
	}
	sort.Ints(lines)
	out := []LineRange{{Start: lines[0], End: lines[0]}}
	for _, l := range lines[1:] {
		last := &out[len(out)-1]
		switch {
		case l <= last.End:
		case l == last.End+1:
			last.End = l
		default:
			out = append(out, LineRange{Start: l, End: l})
		}
	}
	return out
}

func stripDiffPrefix(name string) string {
	name = strings.TrimPrefix(name, "a/")
	return strings.TrimPrefix(name, "b/")
}

// MapChanges turns changed line ranges into seed nodes by span overlap.
// Entities whose span overlaps a changed range are seeds, each annotated
// with the ranges that selected it; changed lines no entity covers fall back
// to the file's module node. A removed file seeds every node it had, tagged
// removed. A change with no ranges seeds the whole file.
func MapChanges(g *graph.Graph, changes []FileChange) *MapResult {
	res := &MapResult{}
	index := make(map[string]int)
	add := func(n *graph.Node, ranges ...LineRange) {
		if n == nil {
			return
		}
		i, ok := index[n.ID]
		if !ok {
			i = len(res.Seeds)
			index[n.ID] = i
			res.Seeds = append(res.Seeds, Seed{Node: n})
		}
		for _, r := range ranges {
			res.Seeds[i].Lines = appendRange(res.Seeds[i].Lines, r)
		}
	}
	addRemoved := func(n *graph.Node) {
		if _, ok := index[n.ID]; ok {
			return
		}
		index[n.ID] = len(res.Seeds)
		res.Seeds = append(res.Seeds, Seed{Node: n, Removed: true})
	}

	for _, fc := range changes {
		if !g.HasFile(fc.Path) {
			res.UnknownFiles = append(res.UnknownFiles, fc.Path)
			synth := &graph.Node{
				ID:   graph.ModuleNodeID(fc.Path),
				Kind: graph.NodeModule,
				File: fc.Path,
			}
			if fc.Removed {
				addRemoved(synth)
				continue
			}
			add(synth)
			for _, r := range fc.Ranges {
				add(synth, normalize(r))
			}
			continue
		}

		nodes := g.NodesInFile(fc.Path)
		if fc.Removed {
			for _, n := range nodes {
				addRemoved(n)
			}
			continue
		}
		if len(fc.Ranges) == 0 {
			// Whole file changed, no line detail available.
			for _, n := range nodes {
				add(n, LineRange{Start: n.StartLine, End: n.EndLine})
			}
			continue
		}

		var module *graph.Node
		for _, n := range nodes {
			if n.Kind == graph.NodeModule {
				module = n
				break
			}
		}

		for _, r := range fc.Ranges {
			r = normalize(r)
			covered := true
			for line := r.Start; line <= r.End; line++ {
				lineCovered := false
				for _, n := range nodes {
					if n.Kind == graph.NodeModule {
						continue
					}
					if line >= n.StartLine && line <= n.EndLine {
						lineCovered = true
						break
					}
				}
				if !lineCovered {
					covered = false
					break
				}
			}
			for _, n := range nodes {
				if n.Kind == graph.NodeModule {
					continue
				}
				if overlaps(n, r) {
					add(n, r)
				}
			}
			if !covered {
				add(module, r)
			}
		}
	}

	sort.Slice(res.Seeds, func(i, j int) bool { return res.Seeds[i].Node.ID < res.Seeds[j].Node.ID })
	sort.Strings(res.UnknownFiles)
	return res
}

func appendRange(lines []LineRange, r LineRange) []LineRange {
	for _, have := range lines {
		if have == r {
			return lines
		}
	}
	return append(lines, r)
}

func normalize(r LineRange) LineRange {
	if r.Start < 1 {
		r.Start = 1
	}
	if r.End < r.Start {
		r.End = r.Start
	}
	return r
}

// overlaps is span intersection, not containment: touching any line of the
// entity's span makes it a seed.
func overlaps(n *graph.Node, r LineRange) bool {
	return n.StartLine <= r.End && n.EndLine >= r.Start
}
