// Package metrics declares the Prometheus metrics the tick orchestrator
// and its pipeline stages publish under the "asgscaler" namespace.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reconciler action labels for ReconcileActionsTotal.
const (
	ActionScaleUp   = "scale_up"
	ActionScaleDown = "scale_down"
	ActionNoop      = "noop"
)

// Governor veto reason labels for ShrinkVetoesTotal.
const (
	ReasonUnready         = "unready"
	ReasonScalingActivity = "scaling_activity"
)

var (
	// RequiredNodes is the sizing engine's computed node count per
	// (asg, zone) partition, before step-limiting or clamping.
	RequiredNodes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "asgscaler",
			Name:      "required_nodes",
			Help:      "Sizing engine's required node count per (asg, zone) partition",
		},
		[]string{"asg", "zone"},
	)

	// DesiredCapacity is the desired capacity the reconciler last requested
	// for the ASG through SetDesiredCapacity; no-op reconciliations do not
	// update it.
	DesiredCapacity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "asgscaler",
			Name:      "desired_capacity",
			Help:      "ASG desired capacity as last reconciled",
		},
		[]string{"asg"},
	)

	// ReconcileActionsTotal counts reconciler decisions per ASG.
	// action is one of scale_up, scale_down, noop.
	ReconcileActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "asgscaler",
			Name:      "reconcile_actions_total",
			Help:      "Reconciler decisions per ASG",
		},
		[]string{"asg", "action"},
	)

	// ShrinkVetoesTotal counts downscale governor vetoes per ASG.
	// reason is one of unready, scaling_activity.
	ShrinkVetoesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "asgscaler",
			Name:      "shrink_vetoes_total",
			Help:      "Downscale governor vetoes per ASG",
		},
		[]string{"asg", "reason"},
	)

	// TickDurationSeconds observes end-to-end tick latency.
	TickDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "asgscaler",
			Name:      "tick_duration_seconds",
			Help:      "Tick orchestrator end-to-end duration",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
