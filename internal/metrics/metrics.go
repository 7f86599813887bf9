// Package metrics declares the prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medicuris",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "medicuris",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "route"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medicuris",
			Subsystem: "image",
			Name:      "uploads_total",
			Help:      "Image uploads by outcome",
		},
		[]string{"status"},
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "medicuris",
			Subsystem: "image",
			Name:      "upload_bytes_total",
			Help:      "Total bytes written to object storage",
		},
	)

	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medicuris",
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Object storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "medicuris",
			Subsystem: "storage",
			Name:      "duration_seconds",
			Help:      "Object storage operation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	// OrphanObjectsTotal counts objects written without a matching image record.
	OrphanObjectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "medicuris",
			Subsystem: "image",
			Name:      "orphan_objects_total",
			Help:      "Objects left in storage after a failed metadata insert",
		},
	)
)

// Status labels used across collectors.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Outcome maps an error to a status label.
func Outcome(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// Handler returns the prometheus exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
