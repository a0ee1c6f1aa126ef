package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all the Prometheus metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Link handshake metrics
	LinkTokensIssued  prometheus.Counter
	LinkTokenConsumes *prometheus.CounterVec

	// Reconciliation metrics
	ReconciliationVerdicts      *prometheus.CounterVec
	ReconciliationBatches       *prometheus.CounterVec
	ReconciliationBatchDuration prometheus.Histogram

	// Sync and ingestion metrics
	SyncAttempts       *prometheus.CounterVec
	CopyEventsIngested *prometheus.CounterVec

	// Housekeeping metrics
	SweepRuns     *prometheus.CounterVec
	RecordsPurged *prometheus.CounterVec

	// Messaging metrics
	NATSConnectionStatus prometheus.Gauge
	AuditPublishes       *prometheus.CounterVec

	// Error metrics
	ErrorsTotal        *prometheus.CounterVec
	PanicRecoveryTotal *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status_code"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being served",
			},
		),

		LinkTokensIssued: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "link_tokens_issued_total",
				Help: "Total number of link tokens issued",
			},
		),
		LinkTokenConsumes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "link_token_consumes_total",
				Help: "Link token consume attempts by outcome",
			},
			[]string{"outcome"},
		),

		ReconciliationVerdicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconciliation_verdicts_total",
				Help: "Copied trades reconciled by verdict",
			},
			[]string{"verdict"},
		),
		ReconciliationBatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconciliation_batches_total",
				Help: "Reconciliation batches by result",
			},
			[]string{"result"},
		),
		ReconciliationBatchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reconciliation_batch_duration_seconds",
				Help:    "Duration of reconciliation batches",
				Buckets: prometheus.DefBuckets,
			},
		),

		SyncAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connection_sync_attempts_total",
				Help: "Manual sync attempts by outcome",
			},
			[]string{"outcome"},
		),
		CopyEventsIngested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copy_events_ingested_total",
				Help: "Inbound copy events by transport and outcome",
			},
			[]string{"transport", "outcome"},
		),

		SweepRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduler_runs_total",
				Help: "Scheduled job runs by job and result",
			},
			[]string{"job", "result"},
		),
		RecordsPurged: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "records_purged_total",
				Help: "Rows removed by retention jobs",
			},
			[]string{"kind"},
		),

		NATSConnectionStatus: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "nats_connection_status",
				Help: "NATS connection status (1 = connected, 0 = disconnected)",
			},
		),
		AuditPublishes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_publishes_total",
				Help: "Audit events published by action and outcome",
			},
			[]string{"action", "outcome"},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errors_total",
				Help: "Total number of errors",
			},
			[]string{"component", "error_type"},
		),
		PanicRecoveryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panic_recovery_total",
				Help: "Total number of panic recoveries",
			},
			[]string{"component"},
		),
	}
}

// HTTPMetricsMiddleware returns a Gin middleware for collecting HTTP metrics
func (m *Metrics) HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		statusCode := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, endpoint, statusCode).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, endpoint, statusCode).Observe(duration)
	}
}

func (m *Metrics) RecordTokenIssued() {
	if m == nil {
		return
	}
	m.LinkTokensIssued.Inc()
}

func (m *Metrics) RecordTokenConsume(outcome string) {
	if m == nil {
		return
	}
	m.LinkTokenConsumes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordVerdict(verdict string) {
	if m == nil {
		return
	}
	m.ReconciliationVerdicts.WithLabelValues(verdict).Inc()
}

func (m *Metrics) RecordBatch(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ReconciliationBatches.WithLabelValues(result).Inc()
	m.ReconciliationBatchDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordSync(outcome string) {
	if m == nil {
		return
	}
	m.SyncAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordCopyEvent(transport, outcome string) {
	if m == nil {
		return
	}
	m.CopyEventsIngested.WithLabelValues(transport, outcome).Inc()
}

func (m *Metrics) RecordJobRun(job string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.SweepRuns.WithLabelValues(job, result).Inc()
}

func (m *Metrics) RecordPurged(kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.RecordsPurged.WithLabelValues(kind).Add(float64(n))
}

// SetNATSConnectionStatus sets the NATS connection status
func (m *Metrics) SetNATSConnectionStatus(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.NATSConnectionStatus.Set(1)
	} else {
		m.NATSConnectionStatus.Set(0)
	}
}

func (m *Metrics) RecordAuditPublish(action string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.AuditPublishes.WithLabelValues(action, outcome).Inc()
}

// RecordError records application errors
func (m *Metrics) RecordError(component, errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordPanicRecovery records panic recoveries
func (m *Metrics) RecordPanicRecovery(component string) {
	if m == nil {
		return
	}
	m.PanicRecoveryTotal.WithLabelValues(component).Inc()
}
