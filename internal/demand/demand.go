// Package demand partitions workload resource requests by (ASG, zone),
// folding unassigned or not-yet-scheduled workloads into a distinguished
// (unknown, unknown) partition.
package demand

import (
	"log/slog"

	"github.com/softcane/asgscaler/internal/quantity"
	"github.com/softcane/asgscaler/internal/record"
)

// DefaultCPURequest and DefaultMemoryRequest are charged to a container
// that omits its resource request, matching the original implementation's
// DEFAULT_CONTAINER_REQUESTS.
const (
	DefaultCPURequest    = "10m"
	DefaultMemoryRequest = "50Mi"
)

// Demand maps a partition to its summed resource requests.
type Demand map[record.Partition]record.Resources

// Aggregate implements the phase/assignment policy table from spec.md §4.4:
//   - Succeeded workloads are skipped (terminated).
//   - Failed workloads with RestartPolicy=Never are skipped (will not
//     be restarted).
//   - A workload assigned to a known node is charged to that node's
//     (asg, zone).
//   - A Running or Unknown workload assigned to an unrecognized node is a
//     ghost and is skipped.
//   - Everything else (unassigned, or assigned to an unrecognized node in
//     a non-terminal phase) is charged to the (unknown, unknown) partition.
func Aggregate(workloads []record.WorkloadRecord, nodes map[string]record.NodeRecord, logger *slog.Logger) Demand {
	out := Demand{}
	for _, w := range workloads {
		if w.Phase == record.PhaseSucceeded {
			continue
		}
		if w.Phase == record.PhaseFailed && w.RestartPolicy == "Never" {
			continue
		}

		var key record.Partition
		if w.AssignedNodeName != "" {
			if node, ok := nodes[w.AssignedNodeName]; ok {
				key = record.Partition{ASG: node.ASGName, Zone: node.Zone}
			} else if w.Phase == record.PhaseRunning || w.Phase == record.PhaseUnknown {
				// Ghost pod: returned by the API but its node no longer exists.
				continue
			} else {
				key = record.UnknownPartition
			}
		} else {
			key = record.UnknownPartition
		}

		row := out[key]
		row.Pods++
		for _, c := range w.Containers {
			row.CPU += requestOrDefault(c.RequestCPU, c.HasRequestCPU, DefaultCPURequest, "cpu", w.Name, c.Name, logger)
			row.Memory += requestOrDefault(c.RequestMemory, c.HasRequestMemory, DefaultMemoryRequest, "memory", w.Name, c.Name, logger)
		}
		out[key] = row
	}
	return out
}

func requestOrDefault(raw string, has bool, def string, resource, podName, containerName string, logger *slog.Logger) float64 {
	q := raw
	if !has || raw == "" {
		q = def
		if logger != nil {
			logger.Debug("using default resource request",
				"pod", podName, "container", containerName, "resource", resource, "default", def)
		}
	}
	v, err := quantity.Parse(q)
	if err != nil {
		if logger != nil {
			logger.Debug("unparsable resource request, treating as zero",
				"pod", podName, "container", containerName, "resource", resource, "value", q, "error", err)
		}
		return 0
	}
	return v
}
