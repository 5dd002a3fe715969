package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API:
// request latency, seat mutation counts, and export activity.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	seatMutations   *prometheus.CounterVec
	exportDuration  prometheus.Observer
	exportTotal     *prometheus.CounterVec
	draftSaves      *prometheus.CounterVec
}

// NewMetricsService registers the core collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	seatMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chart_seat_mutations_total",
		Help: "Seat assignment, move and removal operations",
	}, []string{"operation", "outcome"})

	exportDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chart_export_duration_seconds",
		Help:    "Time spent generating chart exports",
		Buckets: prometheus.DefBuckets,
	})

	exportTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chart_exports_total",
		Help: "Chart exports by format and outcome",
	}, []string{"format", "outcome"})

	draftSaves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "draft_saves_total",
		Help: "Background draft autosave attempts",
	}, []string{"outcome"})

	registry.MustRegister(requestDuration, requestTotal, seatMutations, exportDuration, exportTotal, draftSaves)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		seatMutations:   seatMutations,
		exportDuration:  exportDuration,
		exportTotal:     exportTotal,
		draftSaves:      draftSaves,
	}
}

// Handler exposes the scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one served request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveSeatMutation records a chart mutation attempt.
func (s *MetricsService) ObserveSeatMutation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.seatMutations.WithLabelValues(operation, outcome).Inc()
}

// ObserveExport records a completed or failed export.
func (s *MetricsService) ObserveExport(format string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.exportTotal.WithLabelValues(format, outcome).Inc()
	if err == nil {
		s.exportDuration.Observe(duration.Seconds())
	}
}

// ObserveDraftSave records an autosave attempt.
func (s *MetricsService) ObserveDraftSave(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.draftSaves.WithLabelValues(outcome).Inc()
}
