package reconciler

import (
	"context"
	"log/slog"

	"github.com/softcane/asgscaler/internal/capacity"
	"github.com/softcane/asgscaler/internal/record"
)

// DryRunASGClient wraps a real capacity.ASGClient and short-circuits the
// one mutating call — SetDesiredCapacity — when dry-run mode is active,
// logging the action that would have been taken instead. Every read-only
// call still reaches the underlying client so sizing decisions are made
// against real state. Generalized from the teacher's cloudapi.SpotWrapper,
// which applies the same pattern to Drain/Provision.
type DryRunASGClient struct {
	dryRun   bool
	delegate capacity.ASGClient
	logger   *slog.Logger
}

// NewDryRunASGClient wraps delegate with dry-run safety controls.
func NewDryRunASGClient(delegate capacity.ASGClient, dryRun bool, logger *slog.Logger) *DryRunASGClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRunASGClient{dryRun: dryRun, delegate: delegate, logger: logger}
}

func (w *DryRunASGClient) DescribeAutoScalingInstances(ctx context.Context, ids []string) ([]capacity.InstanceInfo, error) {
	return w.delegate.DescribeAutoScalingInstances(ctx, ids)
}

func (w *DryRunASGClient) DescribeAutoScalingGroups(ctx context.Context, names []string) ([]record.ASGSpec, error) {
	return w.delegate.DescribeAutoScalingGroups(ctx, names)
}

func (w *DryRunASGClient) DescribeScalingActivities(ctx context.Context, name string, maxRecords int32) ([]record.ScalingActivity, error) {
	return w.delegate.DescribeScalingActivities(ctx, name, maxRecords)
}

// SetDesiredCapacity logs the requested change. In dry-run mode it returns
// immediately without touching the delegate; otherwise it forwards to the
// real client.
func (w *DryRunASGClient) SetDesiredCapacity(ctx context.Context, name string, desired int32) error {
	w.logger.Info("set desired capacity requested", "asg", name, "desired", desired, "dry_run", w.dryRun)
	if w.dryRun {
		w.logger.Info("dry-run: skipping cloud write", "asg", name, "desired", desired)
		return nil
	}
	return w.delegate.SetDesiredCapacity(ctx, name, desired)
}

var _ capacity.ASGClient = (*DryRunASGClient)(nil)
