package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aluiziolira/automation-pilgrim/models"
)

const namespace = "pilgrim"

// Metrics bundles the crawler's Prometheus collectors on a dedicated
// registry. A nil *Metrics discards every observation.
type Metrics struct {
	Registry *prometheus.Registry

	attempts  *prometheus.CounterVec
	latency   prometheus.Histogram
	books     prometheus.Counter
	pageBooks prometheus.Histogram
	retries   prometheus.Counter
	failures  *prometheus.CounterVec
	stops     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Page fetch attempts by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Latency of single fetch attempts.",
			Buckets:   prometheus.DefBuckets,
		}),
		books: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "books_total",
			Help:      "Books accumulated across all pages.",
		}),
		pageBooks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_books",
			Help:      "Books extracted from each non-empty catalog page.",
			Buckets:   prometheus.LinearBuckets(0, 5, 6),
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Fetch attempts made after a failed attempt.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Failed fetch attempts by error class.",
		}, []string{"error_type"}),
		stops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawl_stops_total",
			Help:      "Finished crawls by stop reason.",
		}, []string{"reason"}),
	}

	m.Registry.MustRegister(m.attempts, m.latency, m.books, m.pageBooks, m.retries, m.failures, m.stops)
	return m
}

func (m *Metrics) observeAttempt(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.latency.Observe(d.Seconds())
	if err == nil {
		m.attempts.WithLabelValues("success").Inc()
		return
	}
	m.attempts.WithLabelValues("failure").Inc()
	m.failures.WithLabelValues(errorTypeLabel(err)).Inc()
}

func (m *Metrics) observeRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) observePage(books int) {
	if m == nil {
		return
	}
	m.books.Add(float64(books))
	m.pageBooks.Observe(float64(books))
}

func (m *Metrics) observeStop(reason models.StopReason) {
	if m == nil {
		return
	}
	m.stops.WithLabelValues(string(reason)).Inc()
}
