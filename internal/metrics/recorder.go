// Package metrics exports refresh session metrics to prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quantumauth-io/wallet-dashboard/internal/dashboard"
)

const namespace = "wallet_dashboard"

// Recorder implements dashboard.Observer on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	sessions     *prometheus.CounterVec
	sessionTime  *prometheus.HistogramVec
	tasks        *prometheus.CounterVec
	taskFailures *prometheus.CounterVec
	taskTime     *prometheus.HistogramVec
	running      *prometheus.GaugeVec
}

var _ dashboard.Observer = (*Recorder)(nil)

// NewRecorder registers the refresh collectors plus the go and process
// collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_sessions_total",
			Help:      "Refresh sessions started, by kind.",
		}, []string{"kind"}),
		sessionTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_session_duration_seconds",
			Help:      "Time until every operation of a session settled.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"kind"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_tasks_total",
			Help:      "Settled refresh operations.",
		}, []string{"kind", "task"}),
		taskFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_task_failures_total",
			Help:      "Refresh operations that returned an error or panicked.",
		}, []string{"kind", "task"}),
		taskTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_task_duration_seconds",
			Help:      "Duration of single refresh operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_sessions_running",
			Help:      "Sessions whose operations have not all settled.",
		}, []string{"kind"}),
	}

	r.registry.MustRegister(
		r.sessions, r.sessionTime, r.tasks, r.taskFailures, r.taskTime, r.running,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) SessionStarted(kind string) {
	r.sessions.WithLabelValues(kind).Inc()
	r.running.WithLabelValues(kind).Inc()
}

func (r *Recorder) TaskSettled(kind, task string, err error, took time.Duration) {
	r.tasks.WithLabelValues(kind, task).Inc()
	if err != nil {
		r.taskFailures.WithLabelValues(kind, task).Inc()
	}
	r.taskTime.WithLabelValues(task).Observe(took.Seconds())
}

func (r *Recorder) SessionFinished(kind string, took time.Duration, _ int) {
	r.running.WithLabelValues(kind).Dec()
	r.sessionTime.WithLabelValues(kind).Observe(took.Seconds())
}

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }
