// Package capacity resolves cloud ASG topology for nodes and reconciles
// desired capacity through the cloud's ASG API. It supports an AWS binding
// (aws-sdk-go-v2 Auto Scaling), a GCP Managed Instance Group binding, and
// an in-memory fake for tests.
package capacity

import (
	"context"

	"github.com/softcane/asgscaler/internal/record"
)

// MaxDescribeInstanceIDs is the cloud API's pagination limit for a single
// DescribeAutoScalingInstances-style call.
const MaxDescribeInstanceIDs = 50

// InstanceInfo is one instance's ASG membership, as returned by
// DescribeAutoScalingInstances.
type InstanceInfo struct {
	InstanceID        string
	ASGName           string
	AvailabilityZone  string
	LifecycleState    string
}

// ASGClient abstracts the cloud ASG API operations the sizing/reconciler
// pipeline needs.
type ASGClient interface {
	// DescribeAutoScalingInstances resolves ASG membership for the given
	// instance ids. Implementations respect MaxDescribeInstanceIDs
	// internally, so callers may pass an arbitrarily long slice.
	DescribeAutoScalingInstances(ctx context.Context, ids []string) ([]InstanceInfo, error)

	// DescribeAutoScalingGroups returns the current spec (desired/min/max)
	// for the named ASGs.
	DescribeAutoScalingGroups(ctx context.Context, names []string) ([]record.ASGSpec, error)

	// DescribeScalingActivities returns up to maxRecords most recent
	// scaling activities for the named ASG, newest first.
	DescribeScalingActivities(ctx context.Context, name string, maxRecords int32) ([]record.ScalingActivity, error)

	// SetDesiredCapacity requests a new desired capacity for the named ASG.
	SetDesiredCapacity(ctx context.Context, name string, desired int32) error
}

// Chunks splits ids into slices of at most size elements, preserving order.
func Chunks(ids []string, size int) [][]string {
	if size <= 0 {
		size = MaxDescribeInstanceIDs
	}
	var out [][]string
	for len(ids) > 0 {
		n := size
		if n > len(ids) {
			n = len(ids)
		}
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}
