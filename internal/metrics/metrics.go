// Package metrics exposes Prometheus counters for approval commands.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "workorder_approval"

// OutcomeSuccess labels a command that was applied and saved.
const OutcomeSuccess = "success"

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry         *prometheus.Registry
	commands         *prometheus.CounterVec
	workflowOutcomes *prometheus.CounterVec
}

// New registers the approval collectors plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Approval commands handled, by command and outcome.",
		}, []string{"command", "outcome"}),
		workflowOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_outcomes_total",
			Help:      "Workflows that reached a terminal aggregate status.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		m.commands,
		m.workflowOutcomes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// CommandCompleted counts one command. outcome is OutcomeSuccess or a
// lower-case error code.
func (m *Metrics) CommandCompleted(command, outcome string) {
	m.commands.WithLabelValues(command, outcome).Inc()
}

// WorkflowOutcome counts a workflow entering a terminal status.
func (m *Metrics) WorkflowOutcome(status string) {
	m.workflowOutcomes.WithLabelValues(status).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
