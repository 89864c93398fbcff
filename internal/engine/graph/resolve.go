package graph

import (
	"path"
	"sort"
	"strings"

	"ripple/internal/engine/parser"
	"ripple/internal/shared/observability"
)

// resolutionScope holds the symbol and module indexes the resolution pass
// matches raw reference tokens against. It is built once per build, after the
// declaration pass barrier, so every declaration is visible.
type resolutionScope struct {
	g          *Graph
	moduleKeys map[string][]string           // normalized module key -> file paths
	pathNoExt  map[string]string             // path without extension -> file path
	entities   map[string]map[string][]*Node // file -> entity name -> nodes
}

func newResolutionScope(g *Graph) *resolutionScope {
	s := &resolutionScope{
		g:          g,
		moduleKeys: make(map[string][]string),
		pathNoExt:  make(map[string]string),
		entities:   make(map[string]map[string][]*Node),
	}
	for _, file := range g.Files() {
		noExt := trimExt(file)
		s.pathNoExt[noExt] = file
		s.addModuleKey(noExt, file)
		s.addModuleKey(path.Base(noExt), file)
		s.addModuleKey(strings.ReplaceAll(noExt, "/", "."), file)
	}
	return s
}

func (s *resolutionScope) addModuleKey(key, file string) {
	if key == "" {
		return
	}
	for _, existing := range s.moduleKeys[key] {
		if existing == file {
			return
		}
	}
	s.moduleKeys[key] = append(s.moduleKeys[key], file)
	sort.Strings(s.moduleKeys[key])
}

// fileImport is one import of the file being resolved, in appearance order.
// The most-recently-imported tie-break walks this slice backwards.
type fileImport struct {
	line         int
	target       string
	alias        string
	items        []string // named symbols of a from-import
	resolvedFile string   // empty when the import is dangling
}

// names reports whether the import lists the symbol explicitly. Wildcard
// imports expose everything but name nothing.
func (fi fileImport) names(symbol string) bool {
	for _, item := range fi.items {
		if item == symbol {
			return true
		}
	}
	return false
}

func (fi fileImport) binds(prefix string) bool {
	if fi.alias != "" && fi.alias == prefix {
		return true
	}
	if fi.resolvedFile != "" && path.Base(trimExt(fi.resolvedFile)) == prefix {
		return true
	}
	return lastSegment(fi.target) == prefix
}

// resolveFile runs the resolution pass for one freshly parsed file: every raw
// import and call token yields exactly one edge, resolved or dangling.
func (s *resolutionScope) resolveFile(syntax *parser.FileSyntax) []Diagnostic {
	var diags []Diagnostic
	moduleID := ModuleNodeID(syntax.Path)

	imports := make([]fileImport, 0, len(syntax.Imports))
	for _, imp := range syntax.Imports {
		fi := fileImport{line: imp.Line, target: imp.Target, alias: imp.Alias, items: imp.Items}

		candidates := s.lookupModule(imp.Target, syntax.Path)
		if len(candidates) == 0 {
			s.g.AddEdge(Edge{Src: moduleID, Dst: imp.Target, Kind: EdgeImports, Resolved: false})
			diags = append(diags, Diagnostic{
				Kind:   DiagDanglingEdge,
				File:   syntax.Path,
				Line:   imp.Line,
				Symbol: imp.Target,
			})
		} else {
			chosen := candidates[0]
			if len(candidates) > 1 {
				observability.AmbiguousResolutionsTotal.Inc()
				diags = append(diags, Diagnostic{
					Kind:       DiagAmbiguousResolution,
					File:       syntax.Path,
					Line:       imp.Line,
					Symbol:     imp.Target,
					Chosen:     ModuleNodeID(chosen),
					Candidates: moduleIDs(candidates),
				})
			}
			fi.resolvedFile = chosen
			s.g.AddEdge(Edge{Src: moduleID, Dst: ModuleNodeID(chosen), Kind: EdgeImports, Resolved: true})
		}
		imports = append(imports, fi)
	}

	for _, ref := range syntax.Calls {
		diags = append(diags, s.resolveCall(syntax.Path, imports, ref)...)
	}

	return diags
}

// lookupModule matches an import target token against known files. An exact
// path (without extension) match wins; otherwise all stem/dotted matches are
// returned sorted, the caller treating more than one as ambiguous.
func (s *resolutionScope) lookupModule(target, ownFile string) []string {
	normalized := normalizeImportTarget(target)
	if normalized == "" {
		return nil
	}

	if file, ok := s.pathNoExt[normalized]; ok && file != ownFile {
		return []string{file}
	}

	seen := map[string]bool{}
	var out []string
	for _, key := range []string{normalized, strings.ReplaceAll(normalized, ".", "/"), lastSegment(normalized)} {
		for _, file := range s.moduleKeys[key] {
			if file == ownFile || seen[file] {
				continue
			}
			seen[file] = true
			out = append(out, file)
		}
		if len(out) > 0 {
			break
		}
	}
	sort.Strings(out)
	return out
}

// resolveCall resolves one raw call token. Resolution order: the importing
// prefix if the token is qualified, then same-file symbols, then imports that
// name the symbol explicitly, then symbols reachable via the file's imports
// with the most-recently-imported candidate winning, otherwise a dangling
// edge keyed by the token text.
func (s *resolutionScope) resolveCall(file string, imports []fileImport, ref parser.RawReference) []Diagnostic {
	src, ok := s.g.EnclosingEntity(file, ref.Line)
	if !ok {
		return nil
	}

	name, prefix := splitSymbol(ref.Symbol)

	// Qualified token: try the import the prefix is bound to.
	if prefix != "" {
		for i := len(imports) - 1; i >= 0; i-- {
			fi := imports[i]
			if fi.resolvedFile == "" || !fi.binds(prefix) {
				continue
			}
			if candidates := s.entitiesIn(fi.resolvedFile, name); len(candidates) > 0 {
				return s.emitResolved(src, file, ref, candidates[0], candidates)
			}
		}
	}

	// Same-file symbols shadow anything imported.
	if candidates := s.entitiesIn(file, name); len(candidates) > 0 {
		return s.emitResolved(src, file, ref, candidates[0], candidates)
	}

	// An import that lists the symbol by name binds tighter than imports
	// that merely expose a module containing it.
	for i := len(imports) - 1; i >= 0; i-- {
		fi := imports[i]
		if fi.resolvedFile == "" || !fi.names(name) {
			continue
		}
		if candidates := s.entitiesIn(fi.resolvedFile, name); len(candidates) > 0 {
			return s.emitResolved(src, file, ref, candidates[0], candidates)
		}
	}

	// Imports in reverse appearance order: the most recent wins, every other
	// candidate is recorded in the ambiguity diagnostic.
	var all []*Node
	var chosen *Node
	for i := len(imports) - 1; i >= 0; i-- {
		fi := imports[i]
		if fi.resolvedFile == "" {
			continue
		}
		candidates := s.entitiesIn(fi.resolvedFile, name)
		if len(candidates) == 0 {
			continue
		}
		if chosen == nil {
			chosen = candidates[0]
		}
		all = append(all, candidates...)
	}
	if chosen != nil {
		return s.emitResolved(src, file, ref, chosen, all)
	}

	s.g.AddEdge(Edge{Src: src.ID, Dst: ref.Symbol, Kind: EdgeCalls, Resolved: false})
	return []Diagnostic{{
		Kind:   DiagDanglingEdge,
		File:   file,
		Line:   ref.Line,
		Symbol: ref.Symbol,
	}}
}

func (s *resolutionScope) emitResolved(src *Node, file string, ref parser.RawReference, chosen *Node, all []*Node) []Diagnostic {
	s.g.AddEdge(Edge{Src: src.ID, Dst: chosen.ID, Kind: EdgeCalls, Resolved: true})
	if len(all) <= 1 {
		return nil
	}
	observability.AmbiguousResolutionsTotal.Inc()
	ids := make([]string, 0, len(all))
	for _, n := range all {
		ids = append(ids, n.ID)
	}
	return []Diagnostic{{
		Kind:       DiagAmbiguousResolution,
		File:       file,
		Line:       ref.Line,
		Symbol:     ref.Symbol,
		Chosen:     chosen.ID,
		Candidates: ids,
	}}
}

// entitiesIn returns the file's non-module nodes whose entity name matches,
// sorted by id for determinism.
func (s *resolutionScope) entitiesIn(file, name string) []*Node {
	byName, ok := s.entities[file]
	if !ok {
		byName = make(map[string][]*Node)
		for _, n := range s.g.NodesInFile(file) {
			if n.Kind == NodeModule {
				continue
			}
			qualified := n.ID[len(n.File)+1:]
			short := lastSegment(qualified)
			byName[short] = append(byName[short], n)
			if short != qualified {
				byName[qualified] = append(byName[qualified], n)
			}
		}
		for _, nodes := range byName {
			sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
		}
		s.entities[file] = byName
	}
	return byName[name]
}

func moduleIDs(files []string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, ModuleNodeID(f))
	}
	return out
}

func normalizeImportTarget(target string) string {
	t := strings.TrimSpace(target)
	t = strings.TrimPrefix(t, "./")
	t = strings.TrimLeft(t, ".")
	return strings.TrimSuffix(t, "/")
}

func trimExt(file string) string {
	return strings.TrimSuffix(file, path.Ext(file))
}

func lastSegment(s string) string {
	if idx := strings.LastIndexAny(s, "./"); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

func splitSymbol(symbol string) (name, prefix string) {
	if idx := strings.LastIndex(symbol, "."); idx >= 0 {
		return symbol[idx+1:], symbol[:idx]
	}
	return symbol, ""
}
