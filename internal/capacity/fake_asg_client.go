package capacity

import (
	"context"
	"fmt"
	"sync"

	"github.com/softcane/asgscaler/internal/record"
)

// FakeASGClient is an in-memory ASGClient for tests, matching the shape of
// the teacher's fake twin-ASG client: a mutex-protected map plus recorded
// calls for assertions.
type FakeASGClient struct {
	mu sync.Mutex

	instances  map[string]InstanceInfo   // instance id -> info
	asgs       map[string]record.ASGSpec // asg name -> spec
	activities map[string][]record.ScalingActivity

	// SetDesiredCapacityCalls records every SetDesiredCapacity invocation,
	// in order, for test assertions.
	SetDesiredCapacityCalls []SetDesiredCapacityCall
}

// SetDesiredCapacityCall records one SetDesiredCapacity invocation.
type SetDesiredCapacityCall struct {
	Name    string
	Desired int32
}

// NewFakeASGClient returns an empty fake ASG client.
func NewFakeASGClient() *FakeASGClient {
	return &FakeASGClient{
		instances:  map[string]InstanceInfo{},
		asgs:       map[string]record.ASGSpec{},
		activities: map[string][]record.ScalingActivity{},
	}
}

// AddInstance registers an instance's ASG membership.
func (f *FakeASGClient) AddInstance(info InstanceInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instances[info.InstanceID] = info
}

// AddASG registers an ASG's spec.
func (f *FakeASGClient) AddASG(spec record.ASGSpec) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asgs[spec.Name] = spec
}

// SetActivities sets the scaling activities returned for an ASG.
func (f *FakeASGClient) SetActivities(asg string, activities []record.ScalingActivity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities[asg] = activities
}

func (f *FakeASGClient) DescribeAutoScalingInstances(ctx context.Context, ids []string) ([]InstanceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []InstanceInfo
	for _, chunk := range Chunks(ids, MaxDescribeInstanceIDs) {
		if len(chunk) > MaxDescribeInstanceIDs {
			return nil, fmt.Errorf("capacity: chunk exceeds %d ids", MaxDescribeInstanceIDs)
		}
		for _, id := range chunk {
			if info, ok := f.instances[id]; ok {
				out = append(out, info)
			}
		}
	}
	return out, nil
}

func (f *FakeASGClient) DescribeAutoScalingGroups(ctx context.Context, names []string) ([]record.ASGSpec, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []record.ASGSpec
	for _, name := range names {
		if spec, ok := f.asgs[name]; ok {
			out = append(out, spec)
		}
	}
	return out, nil
}

func (f *FakeASGClient) DescribeScalingActivities(ctx context.Context, name string, maxRecords int32) ([]record.ScalingActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	activities := f.activities[name]
	if int32(len(activities)) > maxRecords {
		activities = activities[:maxRecords]
	}
	out := make([]record.ScalingActivity, len(activities))
	copy(out, activities)
	return out, nil
}

func (f *FakeASGClient) SetDesiredCapacity(ctx context.Context, name string, desired int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	spec, ok := f.asgs[name]
	if !ok {
		return fmt.Errorf("capacity: %w: %q", ErrASGNotFound, name)
	}
	spec.CurrentDesired = desired
	f.asgs[name] = spec
	f.SetDesiredCapacityCalls = append(f.SetDesiredCapacityCalls, SetDesiredCapacityCall{Name: name, Desired: desired})
	return nil
}

var _ ASGClient = (*FakeASGClient)(nil)
