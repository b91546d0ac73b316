package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Metrics provides observability for the whitelist workflow.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	Submissions         *prometheus.CounterVec
	Reviews             *prometheus.CounterVec
	ReviewDuration      prometheus.Histogram
	Notifications       *prometheus.CounterVec
	PendingApplications prometheus.Gauge
	OldestPendingAge    prometheus.Gauge
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	RateLimited         prometheus.Counter
}

// New registers all metrics with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wl_submissions_total",
			Help: "Application submissions by admission result",
		}, []string{"result"}),
		Reviews: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wl_reviews_total",
			Help: "Review attempts by outcome",
		}, []string{"outcome"}),
		ReviewDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "wl_review_duration_seconds",
			Help:    "Duration of the review transaction including lock wait",
			Buckets: durationBuckets,
		}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wl_notifications_total",
			Help: "Notification deliveries by kind and status",
		}, []string{"kind", "status"}),
		PendingApplications: f.NewGauge(prometheus.GaugeOpts{
			Name: "wl_pending_applications",
			Help: "Number of applications waiting for review",
		}),
		OldestPendingAge: f.NewGauge(prometheus.GaugeOpts{
			Name: "wl_oldest_pending_age_seconds",
			Help: "Age of the oldest pending application",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wl_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wl_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: durationBuckets,
		}, []string{"method", "route"}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "wl_detail_cache_hits_total",
			Help: "Reviewed application cache hits",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "wl_detail_cache_misses_total",
			Help: "Reviewed application cache misses",
		}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "wl_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
}

// IncSubmission records an admission result (accepted, validation, limit_reached, ...)
func (m *Metrics) IncSubmission(result string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(result).Inc()
}

// ObserveReview records a review outcome and its duration.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveReview(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Reviews.WithLabelValues(outcome).Inc()
	m.ReviewDuration.Observe(time.Since(start).Seconds())
}

// IncNotification records a notification delivery attempt
func (m *Metrics) IncNotification(kind string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.Notifications.WithLabelValues(kind, status).Inc()
}

// SetQueue updates the review backlog gauges
func (m *Metrics) SetQueue(pending int, oldestAge time.Duration) {
	if m == nil {
		return
	}
	m.PendingApplications.Set(float64(pending))
	m.OldestPendingAge.Set(oldestAge.Seconds())
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, route string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}

// CacheHit records a detail cache hit
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// CacheMiss records a detail cache miss
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

// IncRateLimited records a request rejected by the rate limiter
func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}
