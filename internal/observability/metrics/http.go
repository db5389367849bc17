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

	consensusRunsTotal     *prometheus.CounterVec
	consensusConflictTotal *prometheus.CounterVec
	fieldAgreement         *prometheus.HistogramVec
	reviewerCallsTotal     *prometheus.CounterVec
	reviewerDuration       *prometheus.HistogramVec
	validationTotal        *prometheus.CounterVec
	validationConfidence   *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citetrace",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "citetrace",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "citetrace",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	consensusRunsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citetrace",
			Subsystem: "consensus",
			Name:      "runs_total",
			Help:      "Total consensus runs by outcome.",
		},
		[]string{"service", "status"},
	)
	consensusConflictTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citetrace",
			Subsystem: "consensus",
			Name:      "conflicts_total",
			Help:      "Total flagged field conflicts by type.",
		},
		[]string{"service", "type"},
	)
	fieldAgreement := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "citetrace",
			Subsystem: "consensus",
			Name:      "field_agreement_percent",
			Help:      "Distribution of per-field agreement levels.",
			Buckets:   []float64{0, 20, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"service"},
	)
	reviewerCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citetrace",
			Subsystem: "reviewer",
			Name:      "calls_total",
			Help:      "Total reviewer extraction calls by outcome.",
		},
		[]string{"service", "reviewer", "status"},
	)
	reviewerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "citetrace",
			Subsystem: "reviewer",
			Name:      "call_duration_seconds",
			Help:      "Reviewer extraction call duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "reviewer"},
	)
	validationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "citetrace",
			Subsystem: "validation",
			Name:      "outcomes_total",
			Help:      "Total citation validation outcomes by status.",
		},
		[]string{"service", "status"},
	)
	validationConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "citetrace",
			Subsystem: "validation",
			Name:      "confidence",
			Help:      "Distribution of validation confidence scores (0-100).",
			Buckets:   []float64{0, 10, 25, 50, 65, 80, 90, 100},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		consensusRunsTotal,
		consensusConflictTotal,
		fieldAgreement,
		reviewerCallsTotal,
		reviewerDuration,
		validationTotal,
		validationConfidence,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		consensusRunsTotal:     consensusRunsTotal,
		consensusConflictTotal: consensusConflictTotal,
		fieldAgreement:         fieldAgreement,
		reviewerCallsTotal:     reviewerCallsTotal,
		reviewerDuration:       reviewerDuration,
		validationTotal:        validationTotal,
		validationConfidence:   validationConfidence,
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
	case strings.HasPrefix(path, "/v1/extractions/"):
		return "/v1/extractions/{extraction_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordConsensusRun(service, status string, conflictTypes []string, agreementLevels []float64) {
	if status == "" {
		status = "unknown"
	}
	m.consensusRunsTotal.WithLabelValues(service, status).Inc()
	for _, ct := range conflictTypes {
		m.consensusConflictTotal.WithLabelValues(service, ct).Inc()
	}
	for _, level := range agreementLevels {
		m.fieldAgreement.WithLabelValues(service).Observe(level)
	}
}

func (m *HTTPServerMetrics) RecordReviewerCall(service, reviewer string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.reviewerCallsTotal.WithLabelValues(service, reviewer, status).Inc()
	m.reviewerDuration.WithLabelValues(service, reviewer).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordValidationOutcome(service, status string, confidence float64) {
	if status == "" {
		status = "unknown"
	}
	m.validationTotal.WithLabelValues(service, status).Inc()
	m.validationConfidence.WithLabelValues(service).Observe(confidence)
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
