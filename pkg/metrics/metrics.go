package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Pipeline Metrics
	StageDuration       *prometheus.HistogramVec
	StageRows           *prometheus.GaugeVec
	RowsDroppedTotal    *prometheus.CounterVec
	LabelFallbacksTotal prometheus.Counter
	ImputedValuesTotal  *prometheus.CounterVec
	DatasetRows         *prometheus.GaugeVec
	PipelineRunsTotal   *prometheus.CounterVec

	// Weather Metrics
	WeatherCacheLookups *prometheus.CounterVec
	WeatherOutcomes     *prometheus.CounterVec
	WeatherSeriesLoaded prometheus.Gauge

	// Storage Metrics
	ArtifactsWrittenTotal *prometheus.CounterVec
	ArtifactBytes         *prometheus.HistogramVec

	// Database Metrics
	DBQueryDuration  *prometheus.HistogramVec
	DBConnectionPool *prometheus.GaugeVec
	DBErrorsTotal    *prometheus.CounterVec
}

// NewCollector creates a new metrics collector registered on the default registry
func NewCollector(namespace string) *Collector {
	return NewCollectorWithRegistry(namespace, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector registered on reg. Tests pass a
// fresh prometheus.NewRegistry() so collectors can be built repeatedly.
func NewCollectorWithRegistry(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_stage_duration_seconds",
				Help:      "Duration of each pipeline stage in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"stage"},
		),

		StageRows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pipeline_stage_rows",
				Help:      "Rows in the table produced by each pipeline stage during the last run",
			},
			[]string{"stage"},
		),

		RowsDroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_rows_dropped_total",
				Help:      "Rows removed by a pipeline stage by reason",
			},
			[]string{"stage", "reason"},
		),

		LabelFallbacksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_label_fallbacks_total",
				Help:      "Encoded column labels with at least one field resolved to Unknown",
			},
		),

		ImputedValuesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_imputed_values_total",
				Help:      "Yield values filled by imputation pass",
			},
			[]string{"pass"},
		),

		DatasetRows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pipeline_dataset_rows",
				Help:      "Rows written to each model-ready dataset during the last run",
			},
			[]string{"dataset"},
		),

		PipelineRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Pipeline runs by outcome",
			},
			[]string{"outcome"},
		),

		WeatherCacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_cache_lookups_total",
				Help:      "Weather series cache lookups by result",
			},
			[]string{"result"},
		),

		WeatherOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_join_outcomes_total",
				Help:      "Annual weather summary outcomes per joined row",
			},
			[]string{"outcome"},
		),

		WeatherSeriesLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "weather_series_cached",
				Help:      "Weather series held in the run cache",
			},
		),

		ArtifactsWrittenTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "artifacts_written_total",
				Help:      "Output artifacts written by storage driver",
			},
			[]string{"driver"},
		),

		ArtifactBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "artifact_size_bytes",
				Help:      "Size of written output artifacts in bytes",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
			},
			[]string{"driver"},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"query_type"},
		),

		DBConnectionPool: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"state"}, // "in_use", "idle", "total"
		),

		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of database errors by type",
			},
			[]string{"error_type"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// StageTimer starts a timer observing into the stage duration histogram
func (c *Collector) StageTimer(stage string) *Timer {
	return c.NewTimer(c.StageDuration.WithLabelValues(stage))
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordStageRows sets the output size of a stage
func (c *Collector) RecordStageRows(stage string, rows int) {
	c.StageRows.WithLabelValues(stage).Set(float64(rows))
}

// RecordDropped adds n dropped rows for a stage and reason
func (c *Collector) RecordDropped(stage, reason string, n int) {
	if n <= 0 {
		return
	}
	c.RowsDroppedTotal.WithLabelValues(stage, reason).Add(float64(n))
}

// RecordWeatherOutcome increments the per-row weather outcome counter
func (c *Collector) RecordWeatherOutcome(outcome string) {
	c.WeatherOutcomes.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup increments the weather cache lookup counter
func (c *Collector) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.WeatherCacheLookups.WithLabelValues(result).Inc()
}

// RecordArtifact records one written artifact
func (c *Collector) RecordArtifact(driver string, size int64) {
	c.ArtifactsWrittenTotal.WithLabelValues(driver).Inc()
	c.ArtifactBytes.WithLabelValues(driver).Observe(float64(size))
}

// RecordDBError increments database error counter
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}

// UpdateDBConnectionPool updates database connection pool metrics
func (c *Collector) UpdateDBConnectionPool(inUse, idle, total int) {
	c.DBConnectionPool.WithLabelValues("in_use").Set(float64(inUse))
	c.DBConnectionPool.WithLabelValues("idle").Set(float64(idle))
	c.DBConnectionPool.WithLabelValues("total").Set(float64(total))
}
