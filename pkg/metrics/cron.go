package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Job names used as the job label by the cron worker.
const (
	CronJobOrderExpiry     = "order_expiry"
	CronJobOutboxRetention = "outbox_retention"
)

// CronMetrics tracks cron-worker cycles and what each job got done.
type CronMetrics struct {
	cycles      *prometheus.CounterVec
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	items       *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
}

// NewCronMetrics registers the collectors on reg. Series for jobs are created
// up front so dashboards show zeros before the first run. A nil reg yields a
// no-op recorder.
func NewCronMetrics(reg prometheus.Registerer, jobs ...string) *CronMetrics {
	if reg == nil {
		return &CronMetrics{}
	}
	m := &CronMetrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petfinder_cron_cycles_total",
			Help: "Cron cycles by result: ran, or skipped because another worker held the lock.",
		}, []string{"result"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petfinder_cron_job_runs_total",
			Help: "Cron job runs by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "petfinder_cron_job_duration_seconds",
			Help:    "Cron job run time.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"job"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petfinder_cron_job_items_total",
			Help: "Rows a cron job acted on, such as orders expired or outbox events pruned.",
		}, []string{"job", "unit"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "petfinder_cron_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run of a cron job.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.cycles, m.runs, m.duration, m.items, m.lastSuccess)
	for _, result := range []string{"ran", "skipped"} {
		m.cycles.WithLabelValues(result)
	}
	for _, job := range jobs {
		m.runs.WithLabelValues(job, "ok")
		m.runs.WithLabelValues(job, "failed")
	}
	return m
}

// ObserveCycle counts one cron cycle; skipped means the lock was held.
func (m *CronMetrics) ObserveCycle(skipped bool) {
	if m == nil || m.cycles == nil {
		return
	}
	result := "ran"
	if skipped {
		result = "skipped"
	}
	m.cycles.WithLabelValues(result).Inc()
}

// ObserveRun records one job run. items is counted under unit even when the
// run failed, since jobs keep partial progress.
func (m *CronMetrics) ObserveRun(job string, took time.Duration, items int64, unit string, err error) {
	if m == nil || m.runs == nil {
		return
	}
	if job == "" {
		job = "unknown"
	}
	m.duration.WithLabelValues(job).Observe(took.Seconds())
	if items > 0 && unit != "" {
		m.items.WithLabelValues(job, unit).Add(float64(items))
	}
	if err != nil {
		m.runs.WithLabelValues(job, "failed").Inc()
		return
	}
	m.runs.WithLabelValues(job, "ok").Inc()
	m.lastSuccess.WithLabelValues(job).SetToCurrentTime()
}
