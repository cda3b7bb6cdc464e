// Package metrics holds the Prometheus collectors of the follow-up engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reallife"

type Metrics struct {
	Notifications     *prometheus.CounterVec
	TaskTransitions   *prometheus.CounterVec
	WorkflowsCreated  prometheus.Counter
	WorkflowsAdvanced *prometheus.CounterVec
	JobRuns           *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg gets a private registry,
// which keeps tests independent of the global default.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications handled, by kind and result.",
		}, []string{"kind", "result"}),
		TaskTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_transitions_total",
			Help:      "Task status updates, by new status.",
		}, []string{"status"}),
		WorkflowsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_created_total",
			Help:      "Follow-up workflows started.",
		}),
		WorkflowsAdvanced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_advanced_total",
			Help:      "Weekly workflow advancements, by target week.",
		}, []string{"to_week"}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job runs, by job and result.",
		}, []string{"job", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method and status code.",
		}, []string{"method", "code"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.Notifications,
		m.TaskTransitions,
		m.WorkflowsCreated,
		m.WorkflowsAdvanced,
		m.JobRuns,
		m.HTTPRequests,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// InstrumentHandler counts requests served by next.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.HTTPRequests, next)
}
