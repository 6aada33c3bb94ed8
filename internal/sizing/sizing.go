// Package sizing implements the per-partition node-count algorithm: apply
// buffer, find the weakest node as a worst-case capacity unit, loop-add
// until covered, then compensate for cordoned nodes and configured spare
// capacity.
package sizing

import (
	"log/slog"
	"time"

	"github.com/softcane/asgscaler/internal/demand"
	"github.com/softcane/asgscaler/internal/metrics"
	"github.com/softcane/asgscaler/internal/record"
)

// Buffer holds the percentage and fixed-additive buffer configuration,
// one value per canonical resource. Percentage is expressed as a whole
// number (10 means +10%); Fixed is already a parsed quantity (not a raw
// string) so the engine never has to reparse per tick.
type Buffer struct {
	Percentage record.Resources
	Fixed      record.Resources
}

// Apply implements apply_buffer: val*(1+pct/100) + fixed, component-wise.
func (b Buffer) Apply(d record.Resources) record.Resources {
	return record.Resources{
		CPU:    d.CPU*(1+b.Percentage.CPU/100) + b.Fixed.CPU,
		Memory: d.Memory*(1+b.Percentage.Memory/100) + b.Fixed.Memory,
		Pods:   d.Pods*(1+b.Percentage.Pods/100) + b.Fixed.Pods,
	}
}

// Config configures the sizing engine.
type Config struct {
	Buffer            Buffer
	BufferSpareNodes  int
	DisableScaleDown  bool
	InfoDumpInterval  time.Duration // default 600s
}

// Engine sizes ASG partitions. It is not safe for concurrent Size calls —
// the tick orchestrator's single-logical-worker model guarantees sequential
// use, and the rate-limited info dump relies on that.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	lastDump time.Time
}

// NewEngine constructs a sizing engine. A zero InfoDumpInterval defaults to
// 600 seconds, matching the original implementation's rate limit.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if cfg.InfoDumpInterval == 0 {
		cfg.InfoDumpInterval = 600 * time.Second
	}
	return &Engine{cfg: cfg, logger: logger}
}

// partitionRow is one (asg, zone) bucket of live nodes.
type partitionRow struct {
	partition record.Partition
	nodes     []record.NodeRecord
}

// Size computes the required node count per ASG (summed across zones) from
// the demand map and the nodes partitioned by (asg, zone).
func (e *Engine) Size(nodesByPartition map[record.Partition][]record.NodeRecord, d demand.Demand) map[string]int32 {
	asgTarget := map[string]int32{}
	pending, hasPending := d[record.UnknownPartition]

	dump := e.shouldDump()

	for partition, nodes := range nodesByPartition {
		if len(nodes) == 0 {
			continue
		}

		requested := d[partition] // zero value if absent
		folded := requested
		if hasPending {
			folded = folded.Add(pending)
		}
		target := e.cfg.Buffer.Apply(folded)

		weakest := weakestNode(nodes)

		var required int32
		var acc record.Resources
		for !acc.Covers(target) {
			acc = acc.Add(weakest.Allocatable)
			required++
		}

		for _, n := range nodes {
			if n.Unschedulable && !n.Master && n.ASGLifecycleState == "InService" {
				required++
			}
		}

		required += int32(e.cfg.BufferSpareNodes)

		if e.cfg.DisableScaleDown && int(required) < len(nodes) {
			required = int32(len(nodes))
		}

		asgTarget[partition.ASG] += required
		metrics.RequiredNodes.WithLabelValues(partition.ASG, partition.Zone).Set(float64(required))

		if dump && e.logger != nil {
			e.logger.Info("partition sizing",
				"asg", partition.ASG, "zone", partition.Zone,
				"requested_cpu", requested.CPU, "requested_memory", requested.Memory, "requested_pods", requested.Pods,
				"with_buffer_cpu", target.CPU, "with_buffer_memory", target.Memory, "with_buffer_pods", target.Pods,
				"weakest_cpu", weakest.Allocatable.CPU, "weakest_memory", weakest.Allocatable.Memory, "weakest_pods", weakest.Allocatable.Pods,
				"current_nodes", len(nodes), "required", required,
			)
		}
	}

	return asgTarget
}

func (e *Engine) shouldDump() bool {
	now := time.Now()
	if now.Sub(e.lastDump) < e.cfg.InfoDumpInterval {
		return false
	}
	e.lastDump = now
	return true
}

// weakestNode returns the node minimizing the lexicographic (cpu, memory,
// pods) tuple over allocatable resources.
func weakestNode(nodes []record.NodeRecord) record.NodeRecord {
	weakest := nodes[0]
	for _, n := range nodes[1:] {
		if n.Allocatable.LessThan(weakest.Allocatable) {
			weakest = n
		}
	}
	return weakest
}
