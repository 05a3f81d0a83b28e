// Package metrics exposes Prometheus counters for the invitation
// lifecycle and the recurring task generator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InvitationsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "famhub_invitations_issued_total",
		Help: "Invitations successfully created.",
	})

	InvitationsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "famhub_invitations_accepted_total",
		Help: "Invitations accepted via either acceptance path.",
	})

	GeneratorRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "famhub_generator_runs_total",
		Help: "Completed recurring task generation cycles.",
	})

	InstancesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "famhub_task_instances_created_total",
		Help: "Task instances materialized from recurring templates.",
	})

	TemplateFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "famhub_generator_template_failures_total",
		Help: "Recurring templates skipped during a cycle due to errors.",
	})
)
