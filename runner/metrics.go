package runner

import "github.com/prometheus/client_golang/prometheus"

// Metrics aggregates the runner's prometheus instruments. Construct with
// MustNewMetrics and share the instance between the runner and the process's
// metrics endpoint.
type Metrics struct {
	RunsTotal         *prometheus.CounterVec
	IterationCapTotal prometheus.Counter
	ResumesTotal      *prometheus.CounterVec
	ModelInvocations  prometheus.Counter
}

// MustNewMetrics constructs a Metrics instance registered with reg. A nil
// registerer falls back to the default registry. Registration errors panic,
// surfacing configuration bugs early.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentrelay",
			Subsystem: "runner",
			Name:      "runs_total",
			Help:      "Completed routing runs by outcome.",
		}, []string{"outcome"}),
		IterationCapTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentrelay",
			Subsystem: "runner",
			Name:      "iteration_cap_total",
			Help:      "Runs terminated by the iteration safety cap; each hit is a routing-cycle anomaly.",
		}),
		ResumesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentrelay",
			Subsystem: "runner",
			Name:      "resumes_total",
			Help:      "Session continuation attempts by outcome.",
		}, []string{"outcome"}),
		ModelInvocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentrelay",
			Subsystem: "runner",
			Name:      "agent_invocations_total",
			Help:      "Individual agent invocations across all runs.",
		}),
	}
	reg.MustRegister(m.RunsTotal, m.IterationCapTotal, m.ResumesTotal, m.ModelInvocations)
	return m
}

// nopMetrics returns unregistered instruments so the runner can update them
// unconditionally.
func nopMetrics() *Metrics {
	return MustNewMetrics(prometheus.NewRegistry())
}
