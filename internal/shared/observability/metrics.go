package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ripple_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ripple_graph_nodes_total",
		Help: "Total number of nodes in the dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ripple_graph_edges_total",
		Help: "Total number of edges in the dependency graph.",
	})

	DanglingEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ripple_graph_dangling_edges_total",
		Help: "Number of edges whose target symbol could not be resolved.",
	})

	BuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ripple_build_seconds",
		Help:    "Time spent building or incrementally updating the graph.",
		Buckets: prometheus.DefBuckets,
	})

	TraversalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ripple_traversal_seconds",
		Help:    "Time spent on a reverse impact traversal.",
		Buckets: prometheus.DefBuckets,
	})

	ImpactRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_impact_runs_total",
		Help: "Total number of impact analyses, labeled by risk level.",
	}, []string{"risk"})

	AmbiguousResolutionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripple_ambiguous_resolutions_total",
		Help: "Total number of references that matched more than one candidate.",
	})

	ParseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripple_parse_failures_total",
		Help: "Total number of files whose parse failed and were carried over stale.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripple_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
