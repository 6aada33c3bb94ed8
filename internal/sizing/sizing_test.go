package sizing

import (
	"testing"

	"github.com/softcane/asgscaler/internal/demand"
	"github.com/softcane/asgscaler/internal/record"
)

func node(alloc record.Resources) record.NodeRecord {
	return record.NodeRecord{Allocatable: alloc, ASGLifecycleState: "InService"}
}

func TestApplyBuffer(t *testing.T) {
	b := Buffer{Percentage: record.Resources{CPU: 10}, Fixed: record.Resources{CPU: 0.01}}
	got := b.Apply(record.Resources{CPU: 1})
	want := record.Resources{CPU: 1.11}
	if got.CPU < want.CPU-1e-9 || got.CPU > want.CPU+1e-9 {
		t.Errorf("Apply = %v, want %v", got.CPU, want.CPU)
	}
}

func TestSizeEmptyDemand(t *testing.T) {
	e := NewEngine(Config{}, nil)
	n := node(record.Resources{CPU: 1, Memory: 1, Pods: 1})
	p := record.Partition{ASG: "a1", Zone: "z1"}
	got := e.Size(map[record.Partition][]record.NodeRecord{p: {n}}, demand.Demand{})
	if got["a1"] != 0 {
		t.Errorf("required = %d, want 0", got["a1"])
	}
}

func TestSizeWithDemand(t *testing.T) {
	e := NewEngine(Config{}, nil)
	n := node(record.Resources{CPU: 1, Memory: 1, Pods: 1})
	p := record.Partition{ASG: "a1", Zone: "z1"}
	d := demand.Demand{p: {CPU: 1, Memory: 1, Pods: 1}}
	got := e.Size(map[record.Partition][]record.NodeRecord{p: {n}}, d)
	if got["a1"] != 1 {
		t.Errorf("required = %d, want 1", got["a1"])
	}
}

func TestSizePendingFoldedIn(t *testing.T) {
	e := NewEngine(Config{}, nil)
	n := node(record.Resources{CPU: 1, Memory: 1, Pods: 1})
	p := record.Partition{ASG: "a1", Zone: "z1"}
	d := demand.Demand{record.UnknownPartition: {CPU: 1, Memory: 1, Pods: 1}}
	got := e.Size(map[record.Partition][]record.NodeRecord{p: {n}}, d)
	if got["a1"] != 1 {
		t.Errorf("required = %d, want 1", got["a1"])
	}
}

func TestSizePendingFoldedInDoesNotMutateAcrossCalls(t *testing.T) {
	e := NewEngine(Config{}, nil)
	n := node(record.Resources{CPU: 1, Memory: 1, Pods: 1})
	p := record.Partition{ASG: "a1", Zone: "z1"}
	d := demand.Demand{record.UnknownPartition: {CPU: 1, Memory: 1, Pods: 1}}
	first := e.Size(map[record.Partition][]record.NodeRecord{p: {n}}, d)
	second := e.Size(map[record.Partition][]record.NodeRecord{p: {n}}, d)
	if first["a1"] != second["a1"] {
		t.Errorf("repeated sizing over the same demand must be idempotent: %d != %d", first["a1"], second["a1"])
	}
}

func TestSizeTwoNodesNoScaleDown(t *testing.T) {
	n := node(record.Resources{CPU: 1, Memory: 1, Pods: 1})
	p := record.Partition{ASG: "a1", Zone: "z1"}
	nodes := map[record.Partition][]record.NodeRecord{p: {n, n}}

	e1 := NewEngine(Config{}, nil)
	if got := e1.Size(nodes, demand.Demand{}); got["a1"] != 0 {
		t.Errorf("scale-down allowed: required = %d, want 0", got["a1"])
	}

	e2 := NewEngine(Config{DisableScaleDown: true}, nil)
	if got := e2.Size(nodes, demand.Demand{}); got["a1"] != 2 {
		t.Errorf("scale-down disabled: required = %d, want 2", got["a1"])
	}
}

func TestSizeCordonCompensation(t *testing.T) {
	n := record.NodeRecord{
		Allocatable:       record.Resources{CPU: 1, Memory: 1, Pods: 1},
		Unschedulable:     true,
		Master:            false,
		ASGLifecycleState: "InService",
	}
	p := record.Partition{ASG: "a1", Zone: "z1"}
	e := NewEngine(Config{}, nil)
	got := e.Size(map[record.Partition][]record.NodeRecord{p: {n}}, demand.Demand{})
	if got["a1"] != 1 {
		t.Errorf("required = %d, want 1 (cordon compensation)", got["a1"])
	}
}

func TestSizeCordonTerminatingNotCompensated(t *testing.T) {
	n := record.NodeRecord{
		Allocatable:       record.Resources{CPU: 1, Memory: 1, Pods: 1},
		Unschedulable:     true,
		Master:            false,
		ASGLifecycleState: "Terminating",
	}
	p := record.Partition{ASG: "a1", Zone: "z1"}
	e := NewEngine(Config{}, nil)
	got := e.Size(map[record.Partition][]record.NodeRecord{p: {n}}, demand.Demand{})
	if got["a1"] != 0 {
		t.Errorf("required = %d, want 0 (terminating node not compensated)", got["a1"])
	}
}

func TestSizeBufferSpareNodes(t *testing.T) {
	n := node(record.Resources{CPU: 1, Memory: 1, Pods: 1})
	p := record.Partition{ASG: "a1", Zone: "z1"}
	e := NewEngine(Config{BufferSpareNodes: 2}, nil)
	got := e.Size(map[record.Partition][]record.NodeRecord{p: {n}}, demand.Demand{})
	if got["a1"] != 2 {
		t.Errorf("required = %d, want 2", got["a1"])
	}
}
