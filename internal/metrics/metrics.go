package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes Prometheus collectors for the image pipeline and HTTP layer.
type Metrics struct {
	registry        *prometheus.Registry
	presigns        *prometheus.CounterVec
	confirms        *prometheus.CounterVec
	confirmedImages prometheus.Counter
	sweptObjects    prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		presigns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amenitymap",
			Subsystem: "images",
			Name:      "presign_total",
			Help:      "Upload credentials requested, by result.",
		}, []string{"result"}),
		confirms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amenitymap",
			Subsystem: "images",
			Name:      "confirm_total",
			Help:      "Image confirmation batches, by result.",
		}, []string{"result"}),
		confirmedImages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "amenitymap",
			Subsystem: "images",
			Name:      "confirmed_total",
			Help:      "Image records persisted.",
		}),
		sweptObjects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "amenitymap",
			Subsystem: "images",
			Name:      "orphans_deleted_total",
			Help:      "Orphaned storage objects deleted by the sweep.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "amenitymap",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method, route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		m.presigns,
		m.confirms,
		m.confirmedImages,
		m.sweptObjects,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) IncPresign(result string) {
	if m == nil {
		return
	}
	m.presigns.WithLabelValues(result).Inc()
}

func (m *Metrics) IncConfirm(result string, images int) {
	if m == nil {
		return
	}
	m.confirms.WithLabelValues(result).Inc()
	if result == ResultOK {
		m.confirmedImages.Add(float64(images))
	}
}

func (m *Metrics) AddSwept(n int) {
	if m == nil {
		return
	}
	m.sweptObjects.Add(float64(n))
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Result labels.
const (
	ResultOK               = "ok"
	ResultInvalidType      = "invalid_type"
	ResultTooLarge         = "too_large"
	ResultValidation       = "validation"
	ResultNotFound         = "not_found"
	ResultCapacityExceeded = "capacity_exceeded"
	ResultError            = "error"
)
