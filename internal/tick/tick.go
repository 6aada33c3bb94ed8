// Package tick composes one full control-loop iteration: cluster snapshot
// → ASG topology resolution → drop ghost nodes → demand aggregation →
// sizing → step-limit → reconciliation. A tick runs to completion or
// fails as a whole; there is no mid-tick cancellation or retry.
package tick

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/softcane/asgscaler/internal/capacity"
	"github.com/softcane/asgscaler/internal/demand"
	"github.com/softcane/asgscaler/internal/governor"
	"github.com/softcane/asgscaler/internal/metrics"
	"github.com/softcane/asgscaler/internal/reconciler"
	"github.com/softcane/asgscaler/internal/record"
	"github.com/softcane/asgscaler/internal/sizing"
	"github.com/softcane/asgscaler/internal/snapshot"
)

// ClusterReader is the subset of snapshot.Reader the orchestrator needs —
// an interface so tests can substitute a fake.
type ClusterReader interface {
	Nodes(ctx context.Context) (map[string]record.NodeRecord, error)
	Workloads(ctx context.Context) ([]record.WorkloadRecord, error)
}

var _ ClusterReader = (*snapshot.Reader)(nil)

// Orchestrator runs ticks and publishes the latched healthy flag for the
// liveness HTTP endpoint. healthy has a single writer (the tick goroutine)
// and potentially many readers (the HTTP worker), so it is published via
// atomic.Bool rather than a mutex — matching the teacher's
// single-writer/many-reader discipline, generalized from a mutex-guarded
// struct field to a lock-free scalar since spec.md calls that sufficient.
type Orchestrator struct {
	reader    ClusterReader
	asgClient capacity.ASGClient
	sizingEng *sizing.Engine
	recon     *reconciler.Reconciler
	logger    *slog.Logger

	healthy atomic.Bool
}

// New constructs a tick orchestrator. asgClient should already be wrapped
// in a reconciler.DryRunASGClient if dry-run mode is desired — the
// orchestrator itself has no dry-run branch.
func New(reader ClusterReader, asgClient capacity.ASGClient, sizingEng *sizing.Engine, recon *reconciler.Reconciler, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{reader: reader, asgClient: asgClient, sizingEng: sizingEng, recon: recon, logger: logger}
	o.healthy.Store(true)
	return o
}

// Healthy reports the latched health flag: true until the first failed
// tick, then permanently false. It is never restored by a later
// successful tick — see spec.md §9's Design Note on health flag latching.
func (o *Orchestrator) Healthy() bool {
	return o.healthy.Load()
}

// Tick runs one full iteration. A returned error has already flipped the
// health flag and been logged; callers only need to decide whether to
// keep looping (they should — the outer loop continues regardless).
func (o *Orchestrator) Tick(ctx context.Context) error {
	start := time.Now()
	err := o.run(ctx)
	metrics.TickDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		o.healthy.Store(false)
		o.logger.Error("tick failed", "error", err)
	}
	return err
}

func (o *Orchestrator) run(ctx context.Context) error {
	nodes, err := o.reader.Nodes(ctx)
	if err != nil {
		return fmt.Errorf("tick: read nodes: %w", err)
	}
	workloads, err := o.reader.Workloads(ctx)
	if err != nil {
		return fmt.Errorf("tick: read workloads: %w", err)
	}

	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.InstanceID != "" {
			ids = append(ids, n.InstanceID)
		}
	}
	infos, err := o.asgClient.DescribeAutoScalingInstances(ctx, ids)
	if err != nil {
		return fmt.Errorf("tick: describe auto scaling instances: %w", err)
	}
	infoByID := make(map[string]capacity.InstanceInfo, len(infos))
	for _, i := range infos {
		infoByID[i.InstanceID] = i
	}

	nodesByPartition := map[record.Partition][]record.NodeRecord{}
	for name, n := range nodes {
		info, ok := infoByID[n.InstanceID]
		if !ok {
			// Ghost node: no ASG membership, cannot be resized. Drop it
			// from the sizing domain entirely.
			delete(nodes, name)
			continue
		}
		n.ASGName = info.ASGName
		// The cloud-reported zone is authoritative over the orchestrator label.
		n.Zone = info.AvailabilityZone
		n.ASGLifecycleState = info.LifecycleState
		nodes[name] = n

		p := record.Partition{ASG: n.ASGName, Zone: n.Zone}
		nodesByPartition[p] = append(nodesByPartition[p], n)
	}

	d := demand.Aggregate(workloads, nodes, o.logger)
	asgTarget := o.sizingEng.Size(nodesByPartition, d)

	currentCounts := governor.CurrentCounts(nodesByPartition)
	stepped := governor.StepLimit(asgTarget, currentCounts)

	names := make([]string, 0, len(stepped))
	for asg := range stepped {
		names = append(names, asg)
	}
	specList, err := o.asgClient.DescribeAutoScalingGroups(ctx, names)
	if err != nil {
		return fmt.Errorf("tick: describe auto scaling groups: %w", err)
	}
	specs := make(map[string]record.ASGSpec, len(specList))
	for _, s := range specList {
		specs[s.Name] = s
	}

	readyCounts := map[string]int32{}
	for p, ns := range nodesByPartition {
		for _, n := range ns {
			if n.Ready {
				readyCounts[p.ASG]++
			}
		}
	}

	return o.recon.Reconcile(ctx, stepped, specs, readyCounts)
}
