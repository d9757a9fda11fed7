package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobsProcessedTotal, retriesScheduledTotal, jobLatencyMs) }

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobs_processed_total",
		Help: "Total number of jobs processed, labeled by terminal status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var retriesScheduledTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "job_retries_scheduled_total",
		Help: "Retries scheduled, labeled by error classification.",
	},
	[]string{"class"}, // 'retryable', 'unknown'
)

var jobLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "job_duration_ms",
		Help:    "Job processing latency distribution in milliseconds.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
	},
	[]string{"job_type"},
)

func IncJobProcessed(status string) {
	jobsProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func IncRetryScheduled(class string) {
	retriesScheduledTotal.WithLabelValues(norm(class)).Inc()
}

func ObserveJobDuration(jobType string, ms float64) {
	jobLatencyMs.WithLabelValues(norm(jobType)).Observe(ms)
}
