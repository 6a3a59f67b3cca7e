package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	pipelineRequestsTotal *prometheus.CounterVec
	pipelineStageDuration *prometheus.HistogramVec
	pipelineDuration      *prometheus.HistogramVec
	refinementTotal       *prometheus.CounterVec
	retrievedDocs         *prometheus.HistogramVec
	searchRequestsTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ra",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ra",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ra",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	pipelineRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ra",
			Subsystem: "pipeline",
			Name:      "requests_total",
			Help:      "Total processed rule requests by mode and outcome.",
		},
		[]string{"service", "mode", "status"},
	)
	pipelineStageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ra",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "stage"},
	)
	pipelineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ra",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "End-to-end request processing duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "mode"},
	)
	refinementTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ra",
			Subsystem: "pipeline",
			Name:      "refinements_total",
			Help:      "Total refinement rounds by outcome.",
		},
		[]string{"service", "outcome"},
	)
	retrievedDocs := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ra",
			Subsystem: "retrieval",
			Name:      "documents",
			Help:      "Distribution of retrieved documents per request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	searchRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ra",
			Subsystem: "retrieval",
			Name:      "search_requests_total",
			Help:      "Total standalone search requests.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		pipelineRequestsTotal,
		pipelineStageDuration,
		pipelineDuration,
		refinementTotal,
		retrievedDocs,
		searchRequestsTotal,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		pipelineRequestsTotal: pipelineRequestsTotal,
		pipelineStageDuration: pipelineStageDuration,
		pipelineDuration:      pipelineDuration,
		refinementTotal:       refinementTotal,
		retrievedDocs:         retrievedDocs,
		searchRequestsTotal:   searchRequestsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

// PipelineObserver adapts the metrics to the orchestrator's observer hook.
type PipelineObserver struct {
	metrics *HTTPServerMetrics
	service string
}

func (m *HTTPServerMetrics) PipelineObserver(service string) *PipelineObserver {
	return &PipelineObserver{metrics: m, service: service}
}

func (o *PipelineObserver) StageCompleted(stage string, seconds float64, _ bool) {
	o.metrics.pipelineStageDuration.WithLabelValues(o.service, stage).Observe(seconds)
}

func (o *PipelineObserver) RequestCompleted(mode string, seconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	if mode == "" {
		mode = "unknown"
	}
	o.metrics.pipelineRequestsTotal.WithLabelValues(o.service, mode, status).Inc()
	o.metrics.pipelineDuration.WithLabelValues(o.service, mode).Observe(seconds)
}

func (m *HTTPServerMetrics) RecordRefinement(service string, valid bool) {
	outcome := "resolved"
	if !valid {
		outcome = "unresolved"
	}
	m.refinementTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordRetrievedDocs(service string, count int) {
	m.retrievedDocs.WithLabelValues(service).Observe(float64(count))
}

func (m *HTTPServerMetrics) RecordSearchRequest(service string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.searchRequestsTotal.WithLabelValues(service, status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
