package capacity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"

	"github.com/softcane/asgscaler/internal/record"
)

// AWSASGClientConfig configures the real AWS ASG client.
type AWSASGClientConfig struct {
	// Region is the AWS region for API calls. Empty uses the SDK's
	// default resolution chain.
	Region string
}

// AWSASGClient implements ASGClient using the AWS Auto Scaling API.
type AWSASGClient struct {
	client *autoscaling.Client
	logger *slog.Logger
}

// NewAWSASGClient creates a real AWS ASG client.
func NewAWSASGClient(ctx context.Context, cfg AWSASGClientConfig, logger *slog.Logger) (*AWSASGClient, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("capacity: load aws config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AWSASGClient{
		client: autoscaling.NewFromConfig(awsCfg),
		logger: logger,
	}, nil
}

// DescribeAutoScalingInstances resolves ASG membership for ids, chunking
// the request into slices of at most MaxDescribeInstanceIDs per call.
func (c *AWSASGClient) DescribeAutoScalingInstances(ctx context.Context, ids []string) ([]InstanceInfo, error) {
	var out []InstanceInfo
	for _, chunk := range Chunks(ids, MaxDescribeInstanceIDs) {
		input := &autoscaling.DescribeAutoScalingInstancesInput{InstanceIds: chunk}
		result, err := c.client.DescribeAutoScalingInstances(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("capacity: describe auto scaling instances: %w", err)
		}
		for _, i := range result.AutoScalingInstances {
			out = append(out, InstanceInfo{
				InstanceID:       aws.ToString(i.InstanceId),
				ASGName:          aws.ToString(i.AutoScalingGroupName),
				AvailabilityZone: aws.ToString(i.AvailabilityZone),
				LifecycleState:   string(i.LifecycleState),
			})
		}
	}
	return out, nil
}

// DescribeAutoScalingGroups returns the current spec for the named ASGs.
func (c *AWSASGClient) DescribeAutoScalingGroups(ctx context.Context, names []string) ([]record.ASGSpec, error) {
	var out []record.ASGSpec
	input := &autoscaling.DescribeAutoScalingGroupsInput{AutoScalingGroupNames: names}
	for {
		result, err := c.client.DescribeAutoScalingGroups(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("capacity: describe auto scaling groups: %w", err)
		}
		for _, g := range result.AutoScalingGroups {
			out = append(out, record.ASGSpec{
				Name:           aws.ToString(g.AutoScalingGroupName),
				CurrentDesired: aws.ToInt32(g.DesiredCapacity),
				MinSize:        aws.ToInt32(g.MinSize),
				MaxSize:        aws.ToInt32(g.MaxSize),
			})
		}
		if result.NextToken == nil {
			break
		}
		input.NextToken = result.NextToken
	}
	return out, nil
}

// DescribeScalingActivities returns the most recent scaling activities for
// the named ASG.
func (c *AWSASGClient) DescribeScalingActivities(ctx context.Context, name string, maxRecords int32) ([]record.ScalingActivity, error) {
	input := &autoscaling.DescribeScalingActivitiesInput{
		AutoScalingGroupName: aws.String(name),
		MaxRecords:           aws.Int32(maxRecords),
	}
	result, err := c.client.DescribeScalingActivities(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("capacity: describe scaling activities for %q: %w", name, err)
	}
	out := make([]record.ScalingActivity, 0, len(result.Activities))
	for _, a := range result.Activities {
		out = append(out, record.ScalingActivity{Progress: float64(aws.ToInt32(a.Progress))})
	}
	return out, nil
}

// SetDesiredCapacity requests a new desired capacity for the named ASG.
func (c *AWSASGClient) SetDesiredCapacity(ctx context.Context, name string, desired int32) error {
	input := &autoscaling.SetDesiredCapacityInput{
		AutoScalingGroupName: aws.String(name),
		DesiredCapacity:      aws.Int32(desired),
	}
	if _, err := c.client.SetDesiredCapacity(ctx, input); err != nil {
		return fmt.Errorf("capacity: set desired capacity for %q to %d: %w", name, desired, err)
	}
	c.logger.Info("set asg desired capacity", "asg", name, "desired", desired)
	return nil
}

var _ ASGClient = (*AWSASGClient)(nil)
