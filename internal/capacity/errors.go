package capacity

import "errors"

// Sentinel errors for ASG operations.
var (
	// ErrASGNotFound is returned when a named ASG has no matching cloud record.
	ErrASGNotFound = errors.New("capacity: auto scaling group not found")

	// ErrNoInstanceRecord describes an instance id with no ASG membership
	// record (a "ghost" instance from the sizing domain's view). The
	// DescribeAutoScalingInstances implementations in this package do not
	// return it; they omit such ids from their result.
	ErrNoInstanceRecord = errors.New("capacity: instance has no ASG membership record")
)
