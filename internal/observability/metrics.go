package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many instances as they like.
// Every method is nil-safe; a nil *Metrics disables instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	cacheOps       *prometheus.CounterVec
	storeAvailable prometheus.Gauge
	dispatches     *prometheus.CounterVec
	topicDecisions *prometheus.CounterVec
	generatorRuns  *prometheus.CounterVec
	unitDuration   *prometheus.HistogramVec
	schedulerRuns  *prometheus.CounterVec
	jobRuns        *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mf_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mf_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mf_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mf_cache_operations_total",
			Help: "Cache store operations by op/result (hit, miss, ok, error).",
		}, []string{"op", "result"}),
		storeAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mf_cache_store_available",
			Help: "1 while the shared cache store answers, 0 while degraded.",
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mf_generation_dispatch_total",
			Help: "Generation dispatch outcomes (started, joined, fresh, degraded).",
		}, []string{"outcome"}),
		topicDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mf_topic_decisions_total",
			Help: "Topic normalizer decisions by kind.",
		}, []string{"decision"}),
		generatorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mf_generator_runs_total",
			Help: "Content generator outcomes by content type.",
		}, []string{"type", "outcome"}),
		unitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mf_generation_unit_duration_seconds",
			Help:    "Wall time of one generation unit by final status.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 120},
		}, []string{"status"}),
		schedulerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mf_scheduler_runs_total",
			Help: "Scheduled job cycles by job and outcome (ok, error, skipped).",
		}, []string{"job", "outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mf_worker_jobs_total",
			Help: "Queue jobs handled by workers by type and outcome.",
		}, []string{"job_type", "outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.cacheOps, m.storeAvailable, m.dispatches, m.topicDecisions,
		m.generatorRuns, m.unitDuration, m.schedulerRuns, m.jobRuns,
	)
	m.storeAvailable.Set(1)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) CacheOp(op, result string) {
	if m != nil {
		m.cacheOps.WithLabelValues(op, result).Inc()
	}
}

func (m *Metrics) StoreAvailable(up bool) {
	if m == nil {
		return
	}
	if up {
		m.storeAvailable.Set(1)
	} else {
		m.storeAvailable.Set(0)
	}
}

func (m *Metrics) Dispatch(outcome string) {
	if m != nil {
		m.dispatches.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) TopicDecision(kind string) {
	if m != nil {
		m.topicDecisions.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) GeneratorRun(contentType, outcome string) {
	if m != nil {
		m.generatorRuns.WithLabelValues(contentType, outcome).Inc()
	}
}

func (m *Metrics) ObserveUnit(status string, d time.Duration) {
	if m != nil {
		m.unitDuration.WithLabelValues(status).Observe(d.Seconds())
	}
}

func (m *Metrics) SchedulerRun(job, outcome string) {
	if m != nil {
		m.schedulerRuns.WithLabelValues(job, outcome).Inc()
	}
}

func (m *Metrics) JobRun(jobType, outcome string) {
	if m != nil {
		m.jobRuns.WithLabelValues(jobType, outcome).Inc()
	}
}
