package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

const metricsNamespace = "timetable"

// MetricsService owns the Prometheus registry and keeps running totals for the summary endpoint.
// Every method is safe on a nil receiver.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheLookups    *prometheus.CounterVec
	dbQueryDuration *prometheus.HistogramVec

	searchDuration   *prometheus.HistogramVec
	searchExplored   prometheus.Histogram
	searchTruncated  prometheus.Counter
	underAllocated   prometheus.Counter
	warmupJobsTotal  *prometheus.CounterVec
	plannerProposals prometheus.Gauge

	cacheHits        atomic.Uint64
	cacheMisses      atomic.Uint64
	requests         atomic.Uint64
	requestNanos     atomic.Uint64
	dbQueries        atomic.Uint64
	dbQueryNanos     atomic.Uint64
	searches         atomic.Uint64
	truncated        atomic.Uint64
	underAllocations atomic.Uint64
}

// NewMetricsService registers HTTP, cache, database and search collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{registry: prometheus.NewRegistry()}

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	m.cacheLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "cache_latency_seconds",
		Help:      "Latency of cache lookups",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
	})
	m.cacheWrite = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "cache_write_seconds",
		Help:      "Latency of cache writes",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
	})
	m.cacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "cache_hit_ratio",
		Help:      "Ratio of cache hits to total cache lookups",
	})
	m.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "cache_lookups_total",
		Help:      "Cache lookups by outcome",
	}, []string{"result"})
	m.dbQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "db_query_duration_seconds",
		Help:      "Duration of snapshot and persistence queries",
		Buckets:   prometheus.DefBuckets,
	}, []string{"query"})
	m.searchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "generation_duration_seconds",
		Help:      "Time spent in candidate search or block assignment",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	}, []string{"kind"})
	m.searchExplored = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "search_explored_nodes",
		Help:      "Section trials explored per candidate search",
		Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
	})
	m.searchTruncated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "search_truncated_total",
		Help:      "Candidate searches stopped by the node bound",
	})
	m.underAllocated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "under_allocated_subjects_total",
		Help:      "Subject requirements the planner could not fully place",
	})
	m.warmupJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "warmup_jobs_total",
		Help:      "Recommendation warmup jobs by outcome",
	}, []string{"result"})
	m.plannerProposals = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "planner_proposals",
		Help:      "Unsaved planner proposals held in memory",
	})
	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "goroutines",
		Help:      "Number of live goroutines",
	}, func() float64 { return float64(runtime.NumGoroutine()) })

	m.registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheWrite, m.cacheHitRatio, m.cacheLookups,
		m.dbQueryDuration,
		m.searchDuration, m.searchExplored, m.searchTruncated, m.underAllocated,
		m.warmupJobsTotal, m.plannerProposals,
		goroutines,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
	m.requests.Add(1)
	m.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		m.cacheHits.Add(1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		m.cacheMisses.Add(1)
	}
	hits, misses := m.cacheHits.Load(), m.cacheMisses.Load()
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing under a short label.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.dbQueries.Add(1)
	m.dbQueryNanos.Add(uint64(duration.Nanoseconds()))
}

// ObserveSearch records one candidate search.
func (m *MetricsService) ObserveSearch(explored int, partial bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.searchDuration.WithLabelValues("candidates").Observe(duration.Seconds())
	m.searchExplored.Observe(float64(explored))
	m.searches.Add(1)
	if partial {
		m.searchTruncated.Inc()
		m.truncated.Add(1)
	}
}

// ObserveAssignment records one planner run and its under-allocated subjects.
func (m *MetricsService) ObserveAssignment(underAllocated int, duration time.Duration) {
	if m == nil {
		return
	}
	m.searchDuration.WithLabelValues("assignment").Observe(duration.Seconds())
	if underAllocated > 0 {
		m.underAllocated.Add(float64(underAllocated))
		m.underAllocations.Add(uint64(underAllocated))
	}
}

// RecordWarmupJob counts a finished warmup job.
func (m *MetricsService) RecordWarmupJob(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.warmupJobsTotal.WithLabelValues(result).Inc()
}

// SetProposalCount reports the number of held planner proposals.
func (m *MetricsService) SetProposalCount(n int) {
	if m == nil {
		return
	}
	m.plannerProposals.Set(float64(n))
}

// Snapshot aggregates the running totals.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits, misses := m.cacheHits.Load(), m.cacheMisses.Load()
	requests, dbQueries := m.requests.Load(), m.dbQueries.Load()

	snapshot := models.SystemMetrics{
		CacheHits:              hits,
		CacheMisses:            misses,
		RequestsTotal:          requests,
		DBQueryCount:           dbQueries,
		Searches:               m.searches.Load(),
		TruncatedSearches:      m.truncated.Load(),
		UnderAllocatedSubjects: m.underAllocations.Load(),
		Goroutines:             runtime.NumGoroutine(),
		GeneratedAt:            time.Now().UTC(),
	}
	if total := hits + misses; total > 0 {
		snapshot.CacheHitRatio = float64(hits) / float64(total)
	}
	if requests > 0 {
		snapshot.AverageRequestDurationMs = float64(m.requestNanos.Load()) / float64(requests) / float64(time.Millisecond)
	}
	if dbQueries > 0 {
		snapshot.AverageDBQueryDurationMs = float64(m.dbQueryNanos.Load()) / float64(dbQueries) / float64(time.Millisecond)
	}
	return snapshot
}
