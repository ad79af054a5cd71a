package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IngestCollector exposes Prometheus metrics for the bulk upload pipeline.
type IngestCollector struct {
	registry       *prometheus.Registry
	rowsTotal      *prometheus.CounterVec
	imagesUploaded prometheus.Counter
	batchDuration  prometheus.Histogram
	batchesTotal   *prometheus.CounterVec
}

// NewIngestCollector constructs a collector with default counters/histograms.
func NewIngestCollector() (*IngestCollector, error) {
	registry := prometheus.NewRegistry()

	rowsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "habitapp",
		Subsystem: "ingest",
		Name:      "rows_total",
		Help:      "Rows processed by the bulk upload orchestrator.",
	}, []string{"result"})

	imagesUploaded := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "habitapp",
		Subsystem: "ingest",
		Name:      "images_uploaded_total",
		Help:      "Challenge images uploaded to object storage.",
	})

	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "habitapp",
		Subsystem: "ingest",
		Name:      "batch_duration_seconds",
		Help:      "Duration of whole bulk upload batches.",
		Buckets:   prometheus.DefBuckets,
	})

	batchesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "habitapp",
		Subsystem: "ingest",
		Name:      "batches_total",
		Help:      "Bulk upload batches, by final outcome.",
	}, []string{"outcome"})

	for _, c := range []prometheus.Collector{rowsTotal, imagesUploaded, batchDuration, batchesTotal} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &IngestCollector{
		registry:       registry,
		rowsTotal:      rowsTotal,
		imagesUploaded: imagesUploaded,
		batchDuration:  batchDuration,
		batchesTotal:   batchesTotal,
	}, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *IngestCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RowProcessed records the outcome of one orchestrated row.
func (c *IngestCollector) RowProcessed(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.rowsTotal.WithLabelValues(result).Inc()
}

// ImageUploaded records one successful object storage upload.
func (c *IngestCollector) ImageUploaded() {
	c.imagesUploaded.Inc()
}

// BatchFinished records the duration and outcome of a whole batch.
func (c *IngestCollector) BatchFinished(duration time.Duration, success bool) {
	c.batchDuration.Observe(duration.Seconds())
	outcome := "success"
	if !success {
		outcome = "partial_failure"
	}
	c.batchesTotal.WithLabelValues(outcome).Inc()
}
