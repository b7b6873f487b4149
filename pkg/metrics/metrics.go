package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	HTTPRequestSize   *prometheus.HistogramVec
	HTTPResponseSize  *prometheus.HistogramVec

	// Booking Metrics
	BookingsTotal         *prometheus.CounterVec
	BookingRejections     *prometheus.CounterVec
	BookingDuration       *prometheus.HistogramVec
	BatchInstancesTotal   *prometheus.CounterVec
	BatchSuccessRate      prometheus.Histogram
	BatchRollbacksTotal   prometheus.Counter
	IndexedReservations   *prometheus.GaugeVec
	ConflictCheckDuration prometheus.Histogram

	// Approval Metrics
	ApprovalTransitionsTotal *prometheus.CounterVec
	ApprovalLevelDuration    *prometheus.HistogramVec
	ApprovalEscalationsTotal *prometheus.CounterVec
	ApprovalsPending         prometheus.Gauge

	// Database Metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsFailed *prometheus.CounterVec
	DBQueryDuration     *prometheus.HistogramVec
	DBQueryErrors       *prometheus.CounterVec

	// Redis Metrics
	RedisConnectionsActive prometheus.Gauge
	RedisOperationDuration *prometheus.HistogramVec
	RedisOperationErrors   *prometheus.CounterVec
	FlowCacheHits          *prometheus.CounterVec

	// Notification Metrics
	NotificationsSent *prometheus.CounterVec

	// Worker Metrics
	WorkerJobsProcessed *prometheus.CounterVec
	WorkerJobDuration   *prometheus.HistogramVec
	WorkerErrors        *prometheus.CounterVec

	// Authentication Metrics
	AuthRequestsTotal    *prometheus.CounterVec
	AuthFailuresTotal    *prometheus.CounterVec
	AuthTokenValidations *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	m := &Metrics{
		// HTTP Metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path", "status"},
		),

		// Booking Metrics
		BookingsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookings_total",
				Help: "Total number of booking attempts",
			},
			[]string{"resource_type", "status"},
		),
		BookingRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_rejections_total",
				Help: "Total number of rejected booking attempts by reason",
			},
			[]string{"reason"},
		),
		BookingDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "booking_duration_seconds",
				Help:    "Time to process a booking request in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"kind"},
		),
		BatchInstancesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "batch_instances_total",
				Help: "Total number of recurring instances processed",
			},
			[]string{"outcome"},
		),
		BatchSuccessRate: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "batch_success_rate",
				Help:    "Fraction of a recurring batch that was created",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		BatchRollbacksTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "batch_rollbacks_total",
				Help: "Total number of all-or-nothing batches rolled back",
			},
		),
		IndexedReservations: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "indexed_reservations",
				Help: "Number of reservations held in the in-memory conflict index",
			},
			[]string{"resource_type"},
		),
		ConflictCheckDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "conflict_check_duration_seconds",
				Help:    "Availability check duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14), // 10us to ~160ms
			},
		),

		// Approval Metrics
		ApprovalTransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "approval_transitions_total",
				Help: "Total number of approval state transitions",
			},
			[]string{"action", "status"},
		),
		ApprovalLevelDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "approval_level_duration_seconds",
				Help:    "Time spent at an approval level in seconds",
				Buckets: prometheus.ExponentialBuckets(60, 2, 12), // 1min to ~68hrs
			},
			[]string{"level"},
		),
		ApprovalEscalationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "approval_escalations_total",
				Help: "Total number of timeout-driven escalations and expirations",
			},
			[]string{"outcome"},
		),
		ApprovalsPending: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "approvals_pending",
				Help: "Number of approval requests awaiting action",
			},
		),

		// Database Metrics
		DBConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_connections_failed_total",
				Help: "Total number of failed database connection attempts",
			},
			[]string{"database"},
		),
		DBQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Database query execution time in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~1s
			},
			[]string{"query_type", "table"},
		),
		DBQueryErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_query_errors_total",
				Help: "Total number of database query errors",
			},
			[]string{"query_type", "error_type"},
		),

		// Redis Metrics
		RedisConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "redis_connections_active",
				Help: "Number of active Redis connections",
			},
		),
		RedisOperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "redis_operations_duration_seconds",
				Help:    "Redis operation duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~1s
			},
			[]string{"operation"},
		),
		RedisOperationErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redis_operations_errors_total",
				Help: "Total number of Redis operation errors",
			},
			[]string{"operation"},
		),
		FlowCacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flow_cache_requests_total",
				Help: "Approval flow cache lookups by result",
			},
			[]string{"result"},
		),

		// Notification Metrics
		NotificationsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_sent_total",
				Help: "Total number of notifications sent",
			},
			[]string{"type", "status"},
		),

		// Worker Metrics
		WorkerJobsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worker_jobs_processed_total",
				Help: "Total number of jobs processed by workers",
			},
			[]string{"worker_type", "status"},
		),
		WorkerJobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "worker_job_duration_seconds",
				Help:    "Worker job processing duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~102s
			},
			[]string{"worker_type"},
		),
		WorkerErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worker_errors_total",
				Help: "Total number of worker errors",
			},
			[]string{"worker_type"},
		),

		// Authentication Metrics
		AuthRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"method", "status"},
		),
		AuthFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_failures_total",
				Help: "Total number of authentication failures",
			},
			[]string{"reason"},
		),
		AuthTokenValidations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_token_validations_total",
				Help: "Total number of token validation attempts",
			},
			[]string{"valid"},
		),
	}

	return m
}
