// Package metrics provides centralized Prometheus metrics registry for the capture pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "racecapture"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Capture metrics
var (
	CapturesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "snapshots_total",
		Help:      "Total number of pre-start snapshot captures by offset and result",
	}, []string{"offset", "result"})
	CaptureDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "snapshot_duration_seconds",
		Help:      "Duration of a single snapshot fetch and store",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})
	CalendarRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "calendar_refresh_total",
		Help:      "Total number of calendar refresh attempts by result",
	}, []string{"result"})
	TrackedEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "capture",
		Name:      "tracked_events",
		Help:      "Number of events currently tracked by the snapshot scheduler",
	})
)

// Pipeline metrics
var (
	TransformFilesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transform",
		Name:      "files_total",
		Help:      "Raw capture files read by the transform, by result",
	}, []string{"result"})
	RelationRows = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "transform",
		Name:      "relation_rows",
		Help:      "Rows written for the most recently transformed date, by relation",
	}, []string{"relation"})
	FeatureRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "features",
		Name:      "rows_total",
		Help:      "Feature rows emitted, by mode",
	}, []string{"mode"})
	LeakageViolationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "features",
		Name:      "leakage_violations_total",
		Help:      "History features that disagreed with a brute-force recomputation",
	})
	PipelineDatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "dates_total",
		Help:      "Dates processed by the batch pipeline, by result",
	}, []string{"result"})
	PipelineStageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})
)

// InitRegistry initializes the global Prometheus registry with all metrics.
func InitRegistry() {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(
			CapturesTotal,
			CaptureDuration,
			CalendarRefreshTotal,
			TrackedEvents,
			TransformFilesTotal,
			RelationRows,
			FeatureRowsTotal,
			LeakageViolationsTotal,
			PipelineDatesTotal,
			PipelineStageDuration,
		)

		registry.MustRegister(prometheus.NewGoCollector())
		registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	InitRegistry()
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordCapture records one snapshot attempt for the given offset.
func RecordCapture(offset time.Duration, elapsed time.Duration, err error) {
	label := strconv.Itoa(int(offset / time.Minute))
	CapturesTotal.WithLabelValues(label, resultLabel(err)).Inc()
	CaptureDuration.Observe(elapsed.Seconds())
}

// RecordCalendarRefresh records a calendar refresh attempt.
func RecordCalendarRefresh(err error) {
	CalendarRefreshTotal.WithLabelValues(resultLabel(err)).Inc()
}

// UpdateTrackedEvents sets the tracked events gauge.
func UpdateTrackedEvents(n int) {
	TrackedEvents.Set(float64(n))
}

// RecordTransformFile records one raw file read.
func RecordTransformFile(err error) {
	TransformFilesTotal.WithLabelValues(resultLabel(err)).Inc()
}

// UpdateRelationRows publishes row counts keyed by relation name.
func UpdateRelationRows(counts map[string]int) {
	for relation, n := range counts {
		RelationRows.WithLabelValues(relation).Set(float64(n))
	}
}

// RecordFeatureRows adds n emitted feature rows for the mode.
func RecordFeatureRows(mode string, n int) {
	FeatureRowsTotal.WithLabelValues(mode).Add(float64(n))
}

// RecordLeakageViolation records a leakage check mismatch.
func RecordLeakageViolation() {
	LeakageViolationsTotal.Inc()
}

// RecordPipelineDate records the outcome of one pipeline date.
func RecordPipelineDate(err error) {
	PipelineDatesTotal.WithLabelValues(resultLabel(err)).Inc()
}

// RecordStageDuration observes how long a pipeline stage took.
func RecordStageDuration(stage string, elapsed time.Duration) {
	PipelineStageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}
