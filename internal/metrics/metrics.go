package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contribgraph"

// Metrics holds the collectors of one process. Each instance owns its
// registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Runs             *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	FilesRead        prometheus.Counter
	FilesFailed      prometheus.Counter
	ContributionDays prometheus.Gauge
	Contributions    prometheus.Gauge
	MalformedDates   prometheus.Gauge
	LastRunTime      prometheus.Gauge
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	CacheLookups     *prometheus.CounterVec
	RateLimited      prometheus.Counter
	Suspicious       prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_runs_total",
			Help:      "Aggregation runs by outcome.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_run_duration_seconds",
			Help:      "Wall time of one aggregation run.",
			Buckets:   prometheus.DefBuckets,
		}),
		FilesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_files_read_total",
			Help:      "CSV files parsed successfully.",
		}),
		FilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_files_failed_total",
			Help:      "CSV files skipped because they could not be read or parsed.",
		}),
		ContributionDays: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "contribution_days",
			Help:      "Distinct dates in the current aggregate.",
		}),
		Contributions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "contributions",
			Help:      "Commits in the current aggregate.",
		}),
		MalformedDates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "malformed_dates",
			Help:      "Date keys without a year prefix in the current aggregate.",
		}),
		LastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_run_timestamp_seconds",
			Help:      "Unix time of the last successful aggregation run.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Layout cache lookups by result.",
		}, []string{"result"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		Suspicious: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_suspicious_requests_total",
			Help:      "Requests matching a known attack pattern.",
		}),
	}

	m.registry.MustRegister(
		m.Runs, m.RunDuration, m.FilesRead, m.FilesFailed,
		m.ContributionDays, m.Contributions, m.MalformedDates, m.LastRunTime,
		m.HTTPRequests, m.HTTPDuration, m.CacheLookups, m.RateLimited, m.Suspicious,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records the outcome of an aggregation run.
func (m *Metrics) ObserveRun(err error, d time.Duration, filesRead, filesFailed, days, total, undated int) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(d.Seconds())
	m.FilesRead.Add(float64(filesRead))
	m.FilesFailed.Add(float64(filesFailed))
	if err != nil {
		m.Runs.WithLabelValues("error").Inc()
		return
	}
	m.Runs.WithLabelValues("ok").Inc()
	m.ContributionDays.Set(float64(days))
	m.Contributions.Set(float64(total))
	m.MalformedDates.Set(float64(undated))
	m.LastRunTime.SetToCurrentTime()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// CacheHit records a cache lookup.
func (m *Metrics) CacheHit(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// RateLimitHit records a request rejected by the rate limiter.
func (m *Metrics) RateLimitHit() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

// SuspiciousRequest records a request flagged by the detector.
func (m *Metrics) SuspiciousRequest() {
	if m == nil {
		return
	}
	m.Suspicious.Inc()
}
