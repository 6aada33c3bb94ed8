package governor

import (
	"testing"

	"github.com/softcane/asgscaler/internal/record"
)

func counts(n map[string]int32) map[string]int32 { return n }

func TestStepLimitNoChange(t *testing.T) {
	got := StepLimit(map[string]int32{"a1": 1}, counts(map[string]int32{"a1": 1}))
	if got["a1"] != 1 {
		t.Errorf("got %d, want 1", got["a1"])
	}
}

func TestStepLimitScaleUpUnrestricted(t *testing.T) {
	got := StepLimit(map[string]int32{"a1": 10}, counts(map[string]int32{"a1": 1}))
	if got["a1"] != 10 {
		t.Errorf("got %d, want 10", got["a1"])
	}
}

func TestStepLimitShrinkByOneAllowed(t *testing.T) {
	got := StepLimit(map[string]int32{"a1": 1}, counts(map[string]int32{"a1": 2}))
	if got["a1"] != 1 {
		t.Errorf("got %d, want 1 (shrink of exactly one passes through)", got["a1"])
	}
}

func TestStepLimitShrinkCappedAtOne(t *testing.T) {
	got := StepLimit(map[string]int32{"a1": 1}, counts(map[string]int32{"a1": 3}))
	if got["a1"] != 2 {
		t.Errorf("got %d, want 2 (current-1)", got["a1"])
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(nil, "a1", 1, 2, 10); got != 2 {
		t.Errorf("clamp below min: got %d, want 2", got)
	}
	if got := Clamp(nil, "a1", 18, 2, 10); got != 10 {
		t.Errorf("clamp above max: got %d, want 10", got)
	}
	if got := Clamp(nil, "a1", 5, 2, 10); got != 5 {
		t.Errorf("within bounds: got %d, want 5", got)
	}
}

func TestApplyShrinkVetoGrowNeverVetoed(t *testing.T) {
	if got := ApplyShrinkVeto(nil, "a1", 10, 3, 0, true); got != 10 {
		t.Errorf("grow vetoed: got %d, want 10", got)
	}
}

func TestApplyShrinkVetoUnreadyNodes(t *testing.T) {
	if got := ApplyShrinkVeto(nil, "a1", 2, 3, 2, false); got != 3 {
		t.Errorf("got %d, want 3 (vetoed by readiness)", got)
	}
}

func TestApplyShrinkVetoMissingReadyEntryTreatedAsZero(t *testing.T) {
	if got := ApplyShrinkVeto(nil, "a1", 2, 3, 0, false); got != 3 {
		t.Errorf("got %d, want 3 (missing ready count vetoes shrink)", got)
	}
}

func TestApplyShrinkVetoActivityInProgress(t *testing.T) {
	if got := ApplyShrinkVeto(nil, "a1", 2, 3, 3, true); got != 3 {
		t.Errorf("got %d, want 3 (vetoed by in-flight activity)", got)
	}
}

func TestApplyShrinkVetoAllowed(t *testing.T) {
	if got := ApplyShrinkVeto(nil, "a1", 1, 2, 2, false); got != 1 {
		t.Errorf("got %d, want 1 (shrink allowed)", got)
	}
}

func TestScalingActivityInProgress(t *testing.T) {
	if ScalingActivityInProgress(nil) {
		t.Error("no activities should not be in progress")
	}
	if ScalingActivityInProgress([]record.ScalingActivity{{Progress: 100}}) {
		t.Error("single complete activity should not be in progress")
	}
	if !ScalingActivityInProgress([]record.ScalingActivity{{Progress: 100}, {Progress: 67}}) {
		t.Error("partial-progress activity should be in progress")
	}
}

func TestCurrentCounts(t *testing.T) {
	nodes := map[record.Partition][]record.NodeRecord{
		{ASG: "a1", Zone: "z1"}: {{}, {}},
		{ASG: "a1", Zone: "z2"}: {{}},
		{ASG: "a2", Zone: "z1"}: {{}},
	}
	got := CurrentCounts(nodes)
	if got["a1"] != 3 || got["a2"] != 1 {
		t.Errorf("got %v", got)
	}
}
