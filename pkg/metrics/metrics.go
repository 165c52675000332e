package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Report query metrics
	ReportQueriesTotal  *prometheus.CounterVec
	ReportQueryDuration *prometheus.HistogramVec
	ReportsInProgress   prometheus.Gauge
	EventsProcessed     prometheus.Counter
	DuplicatesDropped   prometheus.Counter

	// Tracker API metrics
	TrackerAPICalls    *prometheus.CounterVec
	TrackerAPIDuration *prometheus.HistogramVec
	TrackerAPIFailures *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		ReportQueriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_queries_total",
				Help: "Total number of buyer report queries",
			},
			[]string{"status", "period"},
		),

		ReportQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "report_query_duration_seconds",
				Help:    "Buyer report query duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"period"},
		),

		ReportsInProgress: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "report_queries_in_progress",
				Help: "Number of report queries currently running",
			},
		),

		EventsProcessed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "conversion_events_processed_total",
				Help: "Total number of conversion events run through aggregation",
			},
		),

		DuplicatesDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "conversion_duplicates_dropped_total",
				Help: "Total number of duplicate conversion ids dropped",
			},
		),

		TrackerAPICalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_api_calls_total",
				Help: "Total number of tracker admin API calls",
			},
			[]string{"endpoint", "status"},
		),

		TrackerAPIDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracker_api_duration_seconds",
				Help:    "Tracker admin API call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		TrackerAPIFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_api_failures_total",
				Help: "Total number of tracker admin API failures",
			},
			[]string{"endpoint", "error_type"},
		),
	}
}

// HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Report query metrics
func (m *Metrics) RecordReportQuery(status, period string, duration time.Duration) {
	m.ReportQueriesTotal.WithLabelValues(status, period).Inc()
	m.ReportQueryDuration.WithLabelValues(period).Observe(duration.Seconds())
}

// Aggregation input counter
func (m *Metrics) RecordEventsProcessed(count int) {
	m.EventsProcessed.Add(float64(count))
}

// Duplicate id counter
func (m *Metrics) RecordDuplicatesDropped(count int) {
	m.DuplicatesDropped.Add(float64(count))
}

// Tracker API call metrics
func (m *Metrics) RecordTrackerAPICall(endpoint, status string, duration time.Duration) {
	m.TrackerAPICalls.WithLabelValues(endpoint, status).Inc()
	m.TrackerAPIDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// Tracker API failure metrics
func (m *Metrics) RecordTrackerAPIFailure(endpoint, errorType string) {
	m.TrackerAPIFailures.WithLabelValues(endpoint, errorType).Inc()
}

// Report queries in progress counter
func (m *Metrics) IncReportsInProgress() {
	m.ReportsInProgress.Inc()
}

// Report queries in progress counter
func (m *Metrics) DecReportsInProgress() {
	m.ReportsInProgress.Dec()
}

// HTTP requests in flight counter
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// HTTP requests in flight counter
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
