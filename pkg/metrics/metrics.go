package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	insightAPI = "insight_api"

	jobsTotal       = "jobs_total"
	jobsRunning     = "jobs_running"
	jobDuration     = "job_duration_seconds"
	workerEvents    = "worker_events_total"
	workerCostUnits = "worker_cost_units_total"

	jobKindLabel   = "kind"
	jobStateLabel  = "state"
	eventTypeLabel = "type"
	costKeyLabel   = "key"
)

var jobsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: insightAPI,
		Name:      jobsTotal,
		Help:      "number of analysis jobs by kind and terminal state",
	},
	[]string{jobKindLabel, jobStateLabel},
)

var jobsRunningMetric = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Subsystem: insightAPI,
		Name:      jobsRunning,
		Help:      "number of analysis jobs currently running",
	},
	[]string{jobKindLabel},
)

var jobDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: insightAPI,
		Name:      jobDuration,
		Help:      "wall clock duration of analysis jobs",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	},
	[]string{jobKindLabel, jobStateLabel},
)

var workerEventsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: insightAPI,
		Name:      workerEvents,
		Help:      "number of worker protocol events decoded, by event type",
	},
	[]string{eventTypeLabel},
)

var workerCostMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: insightAPI,
		Name:      workerCostUnits,
		Help:      "cost figures reported by workers, accumulated by key",
	},
	[]string{costKeyLabel},
)

func IncreaseJobsTotalMetric(kind, state string) {
	jobsTotalMetric.With(prometheus.Labels{jobKindLabel: kind, jobStateLabel: state}).Inc()
}

func UpdateJobsRunningMetric(kind string, delta int) {
	jobsRunningMetric.With(prometheus.Labels{jobKindLabel: kind}).Add(float64(delta))
}

func ObserveJobDurationMetric(kind, state string, d time.Duration) {
	jobDurationMetric.With(prometheus.Labels{jobKindLabel: kind, jobStateLabel: state}).Observe(d.Seconds())
}

func IncreaseWorkerEventsMetric(eventType string) {
	workerEventsMetric.With(prometheus.Labels{eventTypeLabel: eventType}).Inc()
}

func AddWorkerCostMetric(key string, v float64) {
	workerCostMetric.With(prometheus.Labels{costKeyLabel: key}).Add(v)
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(jobsTotalMetric)
	prometheus.MustRegister(jobsRunningMetric)
	prometheus.MustRegister(jobDurationMetric)
	prometheus.MustRegister(workerEventsMetric)
	prometheus.MustRegister(workerCostMetric)
}
