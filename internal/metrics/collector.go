// Package metrics exposes scheduler and session read models to Prometheus.
package metrics

import (
	"github.com/phrazzld/focus-api/internal/resource"
	"github.com/phrazzld/focus-api/internal/session"
	"github.com/phrazzld/focus-api/internal/task"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "focus"

// SchedulerStats is the read model polled for pool and task state.
type SchedulerStats interface {
	Stats() task.Stats
}

// SessionStats is the read model polled for session state.
type SessionStats interface {
	Stats() session.Stats
}

// Collector reads stats on every scrape and counts dispatched requests.
type Collector struct {
	scheduler SchedulerStats
	sessions  SessionStats

	allocated      *prometheus.Desc
	capacity       *prometheus.Desc
	tasks          *prometheus.Desc
	tasksFinished  *prometheus.Desc
	queueSize      *prometheus.Desc
	activeSessions *prometheus.Desc
	totalSessions  *prometheus.Desc

	requests *prometheus.CounterVec
}

// NewCollector builds a collector over the given read models.
func NewCollector(scheduler SchedulerStats, sessions SessionStats) *Collector {
	return &Collector{
		scheduler: scheduler,
		sessions:  sessions,
		allocated: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "resource", "allocated"),
			"Amount of each resource held by running tasks.",
			[]string{"kind"}, nil),
		capacity: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "resource", "capacity"),
			"Hard cap of each resource.",
			[]string{"kind"}, nil),
		tasks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "tasks"),
			"Live tasks by status.",
			[]string{"status"}, nil),
		tasksFinished: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "tasks_finished_total"),
			"Tasks that reached a terminal status.",
			[]string{"status"}, nil),
		queueSize: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "queue_size"),
			"Number of queued tasks.",
			nil, nil),
		activeSessions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "active_sessions"),
			"Sessions active within the inactivity threshold.",
			nil, nil),
		totalSessions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "sessions"),
			"Sessions currently held, including idle ones awaiting reaping.",
			nil, nil),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Dispatched requests by operation type and outcome.",
		}, []string{"type", "status"}),
	}
}

// Register adds the collector and its request counter to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	if err := reg.Register(c); err != nil {
		return err
	}
	return reg.Register(c.requests)
}

// ObserveRequest counts one dispatched request.
func (c *Collector) ObserveRequest(opType, status string) {
	c.requests.WithLabelValues(opType, status).Inc()
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.allocated
	ch <- c.capacity
	ch <- c.tasks
	ch <- c.tasksFinished
	ch <- c.queueSize
	ch <- c.activeSessions
	ch <- c.totalSessions
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.scheduler.Stats()
	for _, kind := range resource.Kinds {
		usage := stats.Resources[kind]
		ch <- prometheus.MustNewConstMetric(c.allocated, prometheus.GaugeValue, usage.Allocated, string(kind))
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, usage.Total, string(kind))
	}

	counts := stats.Tasks
	ch <- prometheus.MustNewConstMetric(c.tasks, prometheus.GaugeValue, float64(counts.Queued), string(task.StatusQueued))
	ch <- prometheus.MustNewConstMetric(c.tasks, prometheus.GaugeValue, float64(counts.Running), string(task.StatusRunning))

	finished := map[task.Status]int{
		task.StatusCompleted: counts.Completed,
		task.StatusFailed:    counts.Failed,
		task.StatusRejected:  counts.Rejected,
		task.StatusTimedOut:  counts.TimedOut,
	}
	for status, n := range finished {
		ch <- prometheus.MustNewConstMetric(c.tasksFinished, prometheus.CounterValue, float64(n), string(status))
	}
	ch <- prometheus.MustNewConstMetric(c.queueSize, prometheus.GaugeValue, float64(counts.Queued))

	sessions := c.sessions.Stats()
	ch <- prometheus.MustNewConstMetric(c.activeSessions, prometheus.GaugeValue, float64(sessions.ActiveSessions))
	ch <- prometheus.MustNewConstMetric(c.totalSessions, prometheus.GaugeValue, float64(sessions.TotalSessions))
}

var _ prometheus.Collector = (*Collector)(nil)
