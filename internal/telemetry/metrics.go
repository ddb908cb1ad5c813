package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики выполнения runs.
var (
	// RunsTotal — количество завершённых runs по статусу.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_runs_total",
		Help: "Total number of settled runs by status.",
	}, []string{"status"})

	// RunDuration — длительность runs.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cascade_run_duration_seconds",
		Help:    "Run settlement duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	})

	// NodesTotal — количество узлов по терминальному итогу.
	NodesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_nodes_total",
		Help: "Total number of settled nodes by outcome.",
	}, []string{"outcome"})

	// NodeDuration — длительность выполнения узлов по типу шага.
	NodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cascade_node_duration_seconds",
		Help:    "Node execution duration in seconds by step type.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	// NodesRunning — количество выполняющихся узлов.
	NodesRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cascade_nodes_running",
		Help: "Number of nodes currently running.",
	})

	// WorkflowFinalized — количество финализаций workflow по итогу.
	WorkflowFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cascade_workflow_finalized_total",
		Help: "Total number of finalized workflows by status.",
	}, []string{"status"})

	// WorkflowReportsIgnored — отброшенные сообщения о статусе workflow
	// от узлов внутри workflow-scope.
	WorkflowReportsIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cascade_workflow_reports_ignored_total",
		Help: "Workflow status reports ignored because the reporter was workflow-scoped.",
	})
)

// HTTPRequestsTotal — количество HTTP запросов к API.
var HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cascade_api_http_requests_total",
	Help: "Total number of API HTTP requests.",
}, []string{"method", "code"})

// ScheduledRunsTotal — запуски по расписанию по результату (submitted, failed).
var ScheduledRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cascade_scheduled_runs_total",
	Help: "Total number of scheduled run submissions by result.",
}, []string{"result"})
