package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// CronJobMetrics covers the maintenance worker: one run counter and latency
// histogram per job, plus the exhausted outbox backlog it measures.
type CronJobMetrics struct {
	runs      *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	exhausted prometheus.Gauge
}

// NewCronJobMetrics registers on reg; a nil reg yields a no-op value.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return nil
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Cron job executions by result.",
		}, []string{"job", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Duration of cron jobs in seconds.",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 30, 120},
		}, []string{"job"}),
		exhausted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_exhausted_events",
			Help: "Unpublished outbox events that reached the attempt ceiling.",
		}),
	}
	reg.MustRegister(m.runs, m.latency, m.exhausted)
	return m
}

// ObserveRun records one execution of job; a non-nil err counts as failure.
func (c *CronJobMetrics) ObserveRun(job string, took time.Duration, err error) {
	if c == nil {
		return
	}
	job = normalizeLabel(job)
	result := resultSuccess
	if err != nil {
		result = resultFailure
	}
	c.runs.WithLabelValues(job, result).Inc()
	c.latency.WithLabelValues(job).Observe(took.Seconds())
}

func (c *CronJobMetrics) SetExhausted(n int64) {
	if c == nil {
		return
	}
	c.exhausted.Set(float64(n))
}
