package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shaiso/dspreview/internal/domain"
)

const namespace = "dspreview"

// Metrics — метрики очереди, воркера и HTTP.
//
// Методы безопасны для nil-получателя: компонент без метрик просто
// ничего не пишет.
type Metrics struct {
	JobsEnqueued   *prometheus.CounterVec
	JobsProcessed  *prometheus.CounterVec
	JobDuration    *prometheus.HistogramVec
	CacheWrites    *prometheus.CounterVec
	Downstream     *prometheus.CounterVec
	JobsSwept      prometheus.Counter
	QueueJobs      *prometheus.GaugeVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDurationMs *prometheus.HistogramVec
}

// NewMetrics регистрирует метрики в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		JobsEnqueued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_enqueued_total",
			Help:      "Enqueue calls by job type and whether a new job was created.",
		}, []string{"job_type", "created"}),
		JobsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Finished jobs by job type and final status.",
		}, []string{"job_type", "status"}),
		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time from claim to finish.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"job_type"}),
		CacheWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Cache upserts by job type and kind (content or error).",
		}, []string{"job_type", "kind"}),
		Downstream: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downstream_jobs_total",
			Help:      "Downstream jobs created from newly observed entities.",
		}, []string{"job_type"}),
		JobsSwept: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_swept_total",
			Help:      "Started jobs expired by the lease sweeper.",
		}),
		QueueJobs: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_jobs",
			Help:      "Jobs by type and status at the last stats snapshot.",
		}, []string{"job_type", "status"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		HTTPDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"route"}),
	}
}

// ObserveEnqueue учитывает вызов enqueue.
func (m *Metrics) ObserveEnqueue(jobType string, created bool) {
	if m == nil {
		return
	}
	label := "false"
	if created {
		label = "true"
	}
	m.JobsEnqueued.WithLabelValues(jobType, label).Inc()
}

// ObserveFinish учитывает завершённую задачу.
func (m *Metrics) ObserveFinish(jobType string, status domain.JobStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.JobsProcessed.WithLabelValues(jobType, string(status)).Inc()
	m.JobDuration.WithLabelValues(jobType).Observe(d.Seconds())
}

// ObserveCacheWrite учитывает запись в кэш.
func (m *Metrics) ObserveCacheWrite(jobType string, isError bool) {
	if m == nil {
		return
	}
	kind := "content"
	if isError {
		kind = "error"
	}
	m.CacheWrites.WithLabelValues(jobType, kind).Inc()
}

// ObserveDownstream учитывает созданные downstream-задачи.
func (m *Metrics) ObserveDownstream(jobType string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Downstream.WithLabelValues(jobType).Add(float64(n))
}

// ObserveSweep учитывает просроченные задачи.
func (m *Metrics) ObserveSweep(n int) {
	if m == nil {
		return
	}
	m.JobsSwept.Add(float64(n))
}

// ObserveQueue выставляет gauge по снимку очереди.
// Снимок не содержит нулевых счётчиков, поэтому серии прошлого снимка
// сбрасываются целиком.
func (m *Metrics) ObserveQueue(stats domain.QueueStats) {
	if m == nil {
		return
	}
	m.QueueJobs.Reset()
	for jobType, counts := range stats.Counts {
		for _, status := range domain.AllJobStatuses {
			m.QueueJobs.WithLabelValues(jobType, string(status)).Set(float64(counts[status]))
		}
	}
}

// ObserveHTTP учитывает HTTP-запрос.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPDurationMs.WithLabelValues(route).Observe(float64(d.Microseconds()) / 1000)
}
