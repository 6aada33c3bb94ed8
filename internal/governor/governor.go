// Package governor implements the downscale safety gate: step-limited
// shrink ("slow-down-downscale"), bounds clamping, and shrink vetoes for
// unready nodes or in-flight scaling activity.
package governor

import (
	"log/slog"

	"github.com/softcane/asgscaler/internal/record"
)

// CurrentCounts sums the live node count per ASG across all of its zones.
func CurrentCounts(nodesByPartition map[record.Partition][]record.NodeRecord) map[string]int32 {
	counts := map[string]int32{}
	for p, nodes := range nodesByPartition {
		counts[p.ASG] += int32(len(nodes))
	}
	return counts
}

// StepLimit implements slow-down-downscale: shrink never exceeds one node
// per tick. Scale-up is unrestricted. current − target ≥ 2 is overwritten
// with current − 1; anything else (no change, scale-up, or a shrink of
// exactly one) passes through untouched.
func StepLimit(asgTarget map[string]int32, currentCounts map[string]int32) map[string]int32 {
	out := make(map[string]int32, len(asgTarget))
	for asg, target := range asgTarget {
		current := currentCounts[asg]
		if current-target >= 2 {
			out[asg] = current - 1
		} else {
			out[asg] = target
		}
	}
	return out
}

// Clamp restricts target to [minSize, maxSize], logging a warning when it
// has to. Not an error — spec.md's SizingViolation taxonomy.
func Clamp(logger *slog.Logger, asg string, target, minSize, maxSize int32) int32 {
	if target > maxSize {
		if logger != nil {
			logger.Warn("sizing target above ASG max, clamping", "asg", asg, "target", target, "max", maxSize)
		}
		return maxSize
	}
	if target < minSize {
		if logger != nil {
			logger.Warn("sizing target below ASG min, clamping", "asg", asg, "target", target, "min", minSize)
		}
		return minSize
	}
	return target
}

// ScalingActivityInProgress reports whether any of the most recent scaling
// activities has progress below 100%.
func ScalingActivityInProgress(activities []record.ScalingActivity) bool {
	for _, a := range activities {
		if a.Progress < 100 {
			return true
		}
	}
	return false
}

// ApplyShrinkVeto restores target to currentDesired when target represents
// a shrink (target < currentDesired) and either the ASG has unready nodes
// or a scaling activity is in progress. Grow is never vetoed. A missing
// readyNodes entry is treated as 0, which always triggers the readiness
// veto whenever currentDesired > 0 — this resolves spec.md §9's open
// question about the ready-nodes gate.
func ApplyShrinkVeto(logger *slog.Logger, asg string, target, currentDesired int32, readyNodes int32, activityInProgress bool) int32 {
	if target >= currentDesired {
		return target
	}
	if readyNodes < currentDesired {
		if logger != nil {
			logger.Info("shrink vetoed: unready nodes", "asg", asg, "target", target, "current", currentDesired, "ready", readyNodes)
		}
		return currentDesired
	}
	if activityInProgress {
		if logger != nil {
			logger.Info("shrink vetoed: scaling activity in progress", "asg", asg, "target", target, "current", currentDesired)
		}
		return currentDesired
	}
	return target
}
