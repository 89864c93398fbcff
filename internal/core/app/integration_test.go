package app_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ripple/internal/config"
	"ripple/internal/core/app"
	"ripple/internal/output"

	"github.com/stretchr/testify/require"
)

// End to end: scan a small multi-file tree, build the graph, run an impact
// analysis from a diff, and render every output format.
func TestPipeline_AnalyzeImpactRender(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("core.py", "def load():\n    return 1\n\ndef save(x):\n    return x\n")
	write("svc.py", "from core import load\n\ndef serve():\n    return load()\n")
	write("web.py", "import svc\n\ndef handle():\n    return svc.serve()\n")

	cfg := config.Default()
	cfg.StorePath = filepath.Join(".ripple", "graph.json")
	cfg.History.Path = filepath.Join(".ripple", "history.db")

	svc, err := app.NewService(cfg)
	require.NoError(t, err)
	defer svc.Close()

	res, err := svc.Analyze(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, len(res.Reparsed))

	g := svc.Snapshot()
	require.NotNil(t, g)
	for _, id := range []string{"core.py:load", "svc.py:serve", "web.py:handle"} {
		_, ok := g.Node(id)
		require.True(t, ok, "missing node %s", id)
	}

	patch := `--- a/core.py
+++ b/core.py
@@ -1,2 +1,2 @@
 def load():
-    return 1
+    return 2
`
	report, err := svc.Impact(context.Background(), strings.NewReader(patch))
	require.NoError(t, err)

	tiersByID := map[string]string{}
	for _, n := range report.Impacted {
		tiersByID[n.Node.ID] = string(n.Tier)
	}
	require.Equal(t, "direct", tiersByID["core.py:load"])
	require.Equal(t, "high", tiersByID["svc.py:serve"])
	require.Equal(t, "medium", tiersByID["web.py:handle"])
	require.NotContains(t, tiersByID, "core.py:save", "untouched sibling must not be impacted")
	require.NotEmpty(t, report.RunID)

	dot, err := func() (string, error) {
		gen := output.NewDOTGenerator(g)
		gen.SetImpact(report)
		return gen.Generate()
	}()
	require.NoError(t, err)
	require.Contains(t, dot, "core.py:load")

	tsv, err := output.NewTSVGenerator(g).GenerateImpact(report)
	require.NoError(t, err)
	require.Contains(t, tsv, "svc.py:serve")

	mmd, err := output.NewMermaidGenerator(report).Generate()
	require.NoError(t, err)
	require.Contains(t, mmd, "flowchart LR")
}
