package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricPrefix = "asrs_"

	// ResultSuccess labels a successful operation.
	ResultSuccess = "success"
	// ResultError labels a failed operation.
	ResultError = "error"
)

var (
	registerOnce sync.Once

	fetchTotal   *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	fetchRows    *prometheus.CounterVec

	decodedPayloads *prometheus.CounterVec
	nullFields      *prometheus.CounterVec

	correlateLatency prometheus.Histogram
	precursorEvents  prometheus.Counter

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	reportTotal *prometheus.CounterVec
)

// Init registers collectors once. A non-nil db also exposes connection pool gauges.
func Init(db *sql.DB, logger *zap.SugaredLogger) {
	registerOnce.Do(func() {
		fetchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "log_fetch_total",
				Help: "Total log fetches by source and result",
			},
			[]string{"source", "result"},
		)
		fetchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "log_fetch_latency_seconds",
				Help:    "Log fetch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		)
		fetchRows = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "log_rows_total",
				Help: "Total log rows fetched by source",
			},
			[]string{"source"},
		)

		decodedPayloads = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payloads_total",
				Help: "Monitor payloads by origin (upstream columns or raw decode)",
			},
			[]string{"origin"},
		)
		nullFields = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "null_fields_total",
				Help: "Core fields nulled during normalization",
			},
			[]string{"field"},
		)

		correlateLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "correlate_latency_seconds",
				Help:    "Precursor correlation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		)
		precursorEvents = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "precursor_events_total",
				Help: "Total precursor events produced",
			},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format"},
		)

		reportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "daily_report_total",
				Help: "Daily alarm reports by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			fetchTotal,
			fetchLatency,
			fetchRows,
			decodedPayloads,
			nullFields,
			correlateLatency,
			precursorEvents,
			exportTotal,
			exportLatency,
			reportTotal,
		)
		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

func registerDBMetrics(db *sql.DB, logger *zap.SugaredLogger) {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: metricPrefix + "db_open_connections",
			Help: "Open database connections",
		}, func() float64 { return float64(db.Stats().OpenConnections) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: metricPrefix + "db_in_use_connections",
			Help: "Database connections in use",
		}, func() float64 { return float64(db.Stats().InUse) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: metricPrefix + "db_wait_count",
			Help: "Total waits for a database connection",
		}, func() float64 { return float64(db.Stats().WaitCount) }),
	}
	for _, g := range gauges {
		if err := prometheus.Register(g); err != nil && logger != nil {
			logger.Warnw("db metric register failed", "error", err)
		}
	}
}

// ObserveFetch records a log fetch.
func ObserveFetch(source, result string, rows int, duration time.Duration) {
	if source == "" {
		source = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if fetchTotal != nil {
		fetchTotal.WithLabelValues(source, result).Inc()
	}
	if fetchLatency != nil {
		fetchLatency.WithLabelValues(source).Observe(duration.Seconds())
	}
	if fetchRows != nil && rows > 0 {
		fetchRows.WithLabelValues(source).Add(float64(rows))
	}
}

// AddDecodedPayloads counts payloads resolved from origin ("upstream" or "raw").
func AddDecodedPayloads(origin string, count int) {
	if count <= 0 {
		return
	}
	if decodedPayloads != nil {
		decodedPayloads.WithLabelValues(origin).Add(float64(count))
	}
}

// AddNullFields counts values of field that failed to parse.
func AddNullFields(field string, count int) {
	if count <= 0 {
		return
	}
	if nullFields != nil {
		nullFields.WithLabelValues(field).Add(float64(count))
	}
}

// ObserveCorrelate records a correlation run.
func ObserveCorrelate(events int, duration time.Duration) {
	if correlateLatency != nil {
		correlateLatency.Observe(duration.Seconds())
	}
	if precursorEvents != nil && events > 0 {
		precursorEvents.Add(float64(events))
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format).Observe(duration.Seconds())
	}
}

// IncReport counts a daily report outcome ("sent", "skipped" or "error").
func IncReport(result string) {
	if result == "" {
		result = "unknown"
	}
	if reportTotal != nil {
		reportTotal.WithLabelValues(result).Inc()
	}
}
