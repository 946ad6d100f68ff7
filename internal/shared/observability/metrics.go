package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "apexls_graph_nodes_total",
		Help: "Total number of symbol nodes in the reference graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "apexls_graph_edges_total",
		Help: "Total number of reference edges in the reference graph.",
	})

	RegistryTypes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "apexls_registry_types_total",
		Help: "Number of types currently registered, by origin.",
	}, []string{"origin"})

	RegistryLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apexls_registry_lookups_total",
		Help: "Total registry type lookups, by outcome.",
	}, []string{"outcome"})

	DocCacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apexls_doc_cache_requests_total",
		Help: "Total document state cache requests, by outcome.",
	}, []string{"outcome"})

	DocCacheEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apexls_doc_cache_evictions_total",
		Help: "Total document state cache evictions.",
	})

	TaskQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "apexls_task_queue_depth",
		Help: "Current number of queued background tasks, by priority tier.",
	}, []string{"tier"})

	TasksEnqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apexls_tasks_enqueued_total",
		Help: "Total background tasks accepted, by tier.",
	}, []string{"tier"})

	TasksRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apexls_tasks_rejected_total",
		Help: "Total background tasks rejected at offer time due to a full tier queue.",
	}, []string{"tier"})

	TasksCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apexls_tasks_completed_total",
		Help: "Total background tasks finished, by task type and status.",
	}, []string{"type", "status"})

	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apexls_task_seconds",
		Help:    "Time spent executing a background task.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	StarvationOverridesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apexls_scheduler_starvation_overrides_total",
		Help: "Total dispatches forced from a lower tier after a high-priority streak.",
	})

	DeferredRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apexls_deferred_reference_retries_total",
		Help: "Total deferred reference resolution retries.",
	})

	DeferredDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apexls_deferred_reference_discarded_total",
		Help: "Total deferred references discarded after exhausting the retry budget.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apexls_watcher_events_total",
		Help: "Total number of file system events received by the workspace watcher.",
	})

	IndexingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "apexls_symbol_indexing_seconds",
		Help:    "Time spent registering a symbol table into the graph and registry.",
		Buckets: prometheus.DefBuckets,
	})
)
