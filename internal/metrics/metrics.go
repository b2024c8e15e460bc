package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Contract read metrics
	// ============================================
	ChainCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsboard_chain_calls_total",
			Help: "Total number of read-only contract calls",
		},
		[]string{"method"},
	)

	ChainCallErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsboard_chain_call_errors_total",
			Help: "Total number of failed read-only contract calls (reverts excluded)",
		},
		[]string{"method"},
	)

	// ============================================
	// Transaction metrics
	// ============================================
	ChainTxSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsboard_chain_tx_submitted_total",
			Help: "Total number of transactions submitted",
		},
		[]string{"method"},
	)

	ChainTxConfirmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsboard_chain_tx_confirmed_total",
			Help: "Total number of transactions confirmed successfully",
		},
		[]string{"method"},
	)

	ChainTxReverted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsboard_chain_tx_reverted_total",
			Help: "Total number of transactions mined but reverted",
		},
		[]string{"method"},
	)

	// ============================================
	// Workflow metrics
	// ============================================
	WorkflowRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsboard_workflow_runs_total",
			Help: "Total number of workflow runs by outcome",
		},
		[]string{"workflow", "outcome"},
	)

	WorkflowStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobsboard_workflow_step_duration_seconds",
			Help:    "Duration of individual workflow steps",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"workflow", "step"},
	)

	// ============================================
	// Job store proxy metrics
	// ============================================
	JobStoreRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsboard_jobstore_requests_total",
			Help: "Total number of requests forwarded to the job store API",
		},
		[]string{"operation", "status"},
	)

	// ============================================
	// Agent resolution metrics
	// ============================================
	AgentScanLookups = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jobsboard_agent_scan_lookups",
		Help:    "Number of ownerOf calls issued per linear agent resolution",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
	})

	AgentIndexHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobsboard_agent_index_hits_total",
		Help: "Total number of resolutions served by the reverse index",
	})

	AgentIndexLastBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jobsboard_agent_index_last_block",
		Help: "Last block replayed into the agent reverse index",
	})

	// ============================================
	// WebSocket metrics
	// ============================================
	WSConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jobsboard_ws_connections_active",
		Help: "Number of active WebSocket connections",
	})

	WSMessagesPushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobsboard_ws_messages_pushed_total",
		Help: "Total number of messages pushed to WebSocket clients",
	})

	// ============================================
	// Event publishing metrics
	// ============================================
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsboard_events_published_total",
			Help: "Total number of lifecycle events published to NATS",
		},
		[]string{"event_type"},
	)

	EventPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobsboard_event_publish_errors_total",
			Help: "Total number of failed lifecycle event publishes",
		},
		[]string{"event_type"},
	)
)
