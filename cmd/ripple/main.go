package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"ripple/internal/config"
	"ripple/internal/core/app"
	"ripple/internal/output"
	"ripple/internal/shared/observability"
)

var (
	configPath  = flag.String("config", "./ripple.toml", "Path to config file")
	once        = flag.Bool("once", false, "Build the graph once and exit")
	diffPath    = flag.String("diff", "", "Analyze impact of a unified diff file (use - for stdin)")
	filesArg    = flag.String("files", "", "Analyze impact of a comma separated list of changed files")
	dotPath     = flag.String("dot", "", "Write the dependency graph as Graphviz DOT to this path")
	tsvPath     = flag.String("tsv", "", "Write impact rows as TSV to this path")
	mermaidPath = flag.String("mermaid", "", "Write the impact diagram as mermaid to this path")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	version     = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("ripple v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == "./ripple.toml" {
			cfg, err = config.Load("./ripple.example.toml")
		}
		if err != nil {
			slog.Warn("no config file found, using defaults", "path", *configPath)
			cfg = config.Default()
		}
	}

	if flag.NArg() > 0 {
		cfg.Paths = flag.Args()
	}

	svc, err := app.NewService(cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	ctx := context.Background()

	var obs *observability.Server
	if cfg.Metrics.Addr != "" {
		obs = observability.NewServer(cfg.Metrics.Addr, func(ctx context.Context) (any, bool) {
			g := svc.Snapshot()
			status := map[string]any{"status": "up", "graph": g != nil}
			if g != nil {
				status["nodes"] = g.NodeCount()
				status["edges"] = g.EdgeCount()
			}
			return status, true
		})
		if err := obs.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			os.Exit(1)
		}
		defer obs.Stop(ctx)
	}

	if _, err := svc.Analyze(ctx); err != nil {
		slog.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	var report *app.ImpactReport
	switch {
	case *diffPath != "":
		var reader io.Reader
		if *diffPath == "-" {
			reader = os.Stdin
		} else {
			f, err := os.Open(*diffPath)
			if err != nil {
				slog.Error("failed to open diff", "path", *diffPath, "error", err)
				os.Exit(1)
			}
			defer f.Close()
			reader = f
		}
		report, err = svc.Impact(ctx, reader)
	case *filesArg != "":
		report, err = svc.ImpactForFiles(ctx, strings.Split(*filesArg, ","))
	}
	if err != nil {
		slog.Error("impact analysis failed", "error", err)
		os.Exit(1)
	}

	if report != nil {
		fmt.Print(app.FormatReport(report))
	}

	if err := writeOutputs(svc, report); err != nil {
		slog.Error("failed to write outputs", "error", err)
		os.Exit(1)
	}

	if *once || report != nil {
		return
	}

	if err := svc.Watch(ctx); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}
	slog.Info("watching for changes", "paths", strings.Join(cfg.Paths, ","))
	select {}
}

func writeOutputs(svc *app.Service, report *app.ImpactReport) error {
	g := svc.Snapshot()

	if *dotPath != "" {
		gen := output.NewDOTGenerator(g)
		if report != nil {
			gen.SetImpact(report)
		}
		out, err := gen.Generate()
		if err != nil {
			return err
		}
		if err := os.WriteFile(*dotPath, []byte(out), 0o644); err != nil {
			return err
		}
	}

	if *tsvPath != "" {
		gen := output.NewTSVGenerator(g)
		var out string
		var err error
		if report != nil {
			out, err = gen.GenerateImpact(report)
		} else {
			out, err = gen.Generate()
		}
		if err != nil {
			return err
		}
		if err := os.WriteFile(*tsvPath, []byte(out), 0o644); err != nil {
			return err
		}
	}

	if *mermaidPath != "" && report != nil {
		out, err := output.NewMermaidGenerator(report).Generate()
		if err != nil {
			return err
		}
		if err := os.WriteFile(*mermaidPath, []byte(out), 0o644); err != nil {
			return err
		}
	}

	return nil
}
