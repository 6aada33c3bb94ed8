// Package reconciler converts computed per-ASG targets into cloud
// SetDesiredCapacity calls, applying bounds clamping and shrink vetoes, and
// emitting calls only when the target actually differs from the ASG's
// current desired capacity.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/softcane/asgscaler/internal/capacity"
	"github.com/softcane/asgscaler/internal/governor"
	"github.com/softcane/asgscaler/internal/metrics"
	"github.com/softcane/asgscaler/internal/record"
)

// ScalingActivityLookback is the number of most-recent scaling activities
// consulted for the in-flight veto, matching spec.md §6's MaxRecords=20.
const ScalingActivityLookback = 20

// Reconciler reconciles computed ASG targets against cloud state.
type Reconciler struct {
	client capacity.ASGClient
	logger *slog.Logger
}

// New constructs a Reconciler. Pass a DryRunASGClient-wrapped client to
// get dry-run semantics without branching in this package.
func New(client capacity.ASGClient, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{client: client, logger: logger}
}

// Reconcile drives the step-limited targets to the cloud. specs must
// contain every ASG named in targets; a missing spec is logged and
// skipped (the ASG cannot be resolved, so there is nothing to clamp
// against). readyCounts maps ASG name to the count of Ready member nodes;
// a missing entry is treated as 0 by governor.ApplyShrinkVeto.
//
// The first SetDesiredCapacity failure aborts reconciliation and is
// returned to the caller — matching the original implementation, where an
// exception during one ASG's resize propagates out of the whole tick.
func (r *Reconciler) Reconcile(ctx context.Context, targets map[string]int32, specs map[string]record.ASGSpec, readyCounts map[string]int32) error {
	names := make([]string, 0, len(targets))
	for asg := range targets {
		names = append(names, asg)
	}
	sort.Strings(names)

	for _, asg := range names {
		target := targets[asg]
		spec, ok := specs[asg]
		if !ok {
			r.logger.Warn("no ASG spec for sizing target, skipping", "asg", asg, "target", target)
			continue
		}

		clamped := governor.Clamp(r.logger, asg, target, spec.MinSize, spec.MaxSize)

		if clamped < spec.CurrentDesired {
			activities, err := r.client.DescribeScalingActivities(ctx, asg, ScalingActivityLookback)
			if err != nil {
				return fmt.Errorf("reconciler: describe scaling activities for %q: %w", asg, err)
			}
			inProgress := governor.ScalingActivityInProgress(activities)
			vetoed := governor.ApplyShrinkVeto(r.logger, asg, clamped, spec.CurrentDesired, readyCounts[asg], inProgress)
			if vetoed != clamped {
				// ApplyShrinkVeto checks readiness first, so an activity
				// is the reason only when every member node was ready.
				reason := metrics.ReasonUnready
				if inProgress && readyCounts[asg] >= spec.CurrentDesired {
					reason = metrics.ReasonScalingActivity
				}
				metrics.ShrinkVetoesTotal.WithLabelValues(asg, reason).Inc()
			}
			clamped = vetoed
		}

		if clamped == spec.CurrentDesired {
			metrics.ReconcileActionsTotal.WithLabelValues(asg, metrics.ActionNoop).Inc()
			continue
		}

		action := metrics.ActionScaleUp
		if clamped < spec.CurrentDesired {
			action = metrics.ActionScaleDown
		}

		r.logger.Info("reconciling ASG desired capacity", "asg", asg, "from", spec.CurrentDesired, "to", clamped)
		if err := r.client.SetDesiredCapacity(ctx, asg, clamped); err != nil {
			return fmt.Errorf("reconciler: set desired capacity for %q: %w", asg, err)
		}
		metrics.ReconcileActionsTotal.WithLabelValues(asg, action).Inc()
		metrics.DesiredCapacity.WithLabelValues(asg).Set(float64(clamped))
	}
	return nil
}
