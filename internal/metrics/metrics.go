package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Traversal metrics
	TriplesVisited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "simulation_triples_visited_total",
			Help: "Total number of node triples examined by the traversal",
		},
	)

	PrunesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simulation_prunes_total",
			Help: "Total number of pruned node triples",
		},
		[]string{"kind"}, // kind: deterministic, monte_carlo
	)

	ExactTriples = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "simulation_exact_triples_total",
			Help: "Total number of point triples evaluated exactly",
		},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "simulation_run_duration_seconds",
			Help:    "Duration of force computations in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simulation_runs_total",
			Help: "Total number of runs processed",
		},
		[]string{"status"}, // status: completed, failed
	)

	// Database operation metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	DBOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_operation_errors_total",
			Help: "Total number of database operation errors",
		},
		[]string{"operation"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "result_cache_hits_total",
			Help: "Total number of result cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "result_cache_misses_total",
			Help: "Total number of result cache misses",
		},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Number of active WebSocket progress subscribers",
		},
	)

	// Rate limiting metrics
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_rejections_total",
			Help: "Total number of requests rejected by rate limiting",
		},
		[]string{"scope"}, // scope: global, ip
	)
)
