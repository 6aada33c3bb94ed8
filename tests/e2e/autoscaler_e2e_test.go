// Package e2e exercises the full tick pipeline — snapshot, ASG topology
// resolution, demand aggregation, sizing, governor, reconciliation — wired
// together the way cmd/agent/cmd/run.go wires it, against a fake
// Kubernetes clientset and a fake ASG client. The teacher's e2e suite
// drove a real Kind cluster and real ONNX models; this suite has no such
// external dependency to drive (the ASG sizing pipeline's boundaries are
// the Kubernetes API and the cloud ASG API, both already abstracted
// behind interfaces this package can fake), so it stays a pure Go test.
package e2e

import (
	"context"
	"testing"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/softcane/asgscaler/internal/capacity"
	"github.com/softcane/asgscaler/internal/record"
	"github.com/softcane/asgscaler/internal/reconciler"
	"github.com/softcane/asgscaler/internal/sizing"
	"github.com/softcane/asgscaler/internal/snapshot"
	"github.com/softcane/asgscaler/internal/tick"
)

func quantity(q string) resource.Quantity {
	return resource.MustParse(q)
}

func TestEndToEndScaleUpOnPendingDemand(t *testing.T) {
	ctx := context.Background()

	node := &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{
			Name: "node-1",
			Labels: map[string]string{
				"topology.kubernetes.io/zone": "us-east-1a",
			},
		},
		Spec: corev1.NodeSpec{ProviderID: "aws:///us-east-1a/i-1"},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{{Type: corev1.NodeReady, Status: corev1.ConditionTrue}},
			Allocatable: corev1.ResourceList{
				corev1.ResourceCPU:    quantity("2"),
				corev1.ResourceMemory: quantity("4Gi"),
				corev1.ResourcePods:   quantity("20"),
			},
		},
	}

	runningPod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "running-1", Namespace: "default"},
		Spec: corev1.PodSpec{
			NodeName: "node-1",
			Containers: []corev1.Container{{
				Name: "app",
				Resources: corev1.ResourceRequirements{
					Requests: corev1.ResourceList{corev1.ResourceCPU: quantity("500m"), corev1.ResourceMemory: quantity("512Mi")},
				},
			}},
		},
		Status: corev1.PodStatus{Phase: corev1.PodRunning},
	}

	pendingPod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "pending-1", Namespace: "default"},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{{
				Name: "app",
				Resources: corev1.ResourceRequirements{
					Requests: corev1.ResourceList{corev1.ResourceCPU: quantity("3"), corev1.ResourceMemory: quantity("1Gi")},
				},
			}},
		},
		Status: corev1.PodStatus{Phase: corev1.PodPending},
	}

	k8sClient := fake.NewSimpleClientset(node, runningPod, pendingPod)
	reader := snapshot.NewReader(k8sClient, snapshot.Config{}, nil)

	asgClient := capacity.NewFakeASGClient()
	asgClient.AddInstance(capacity.InstanceInfo{InstanceID: "i-1", ASGName: "workers", AvailabilityZone: "us-east-1a", LifecycleState: "InService"})
	asgClient.AddASG(record.ASGSpec{Name: "workers", CurrentDesired: 1, MinSize: 1, MaxSize: 20})

	eng := sizing.NewEngine(sizing.Config{Buffer: sizing.Buffer{}}, nil)
	recon := reconciler.New(asgClient, nil)
	orchestrator := tick.New(reader, asgClient, eng, recon, nil)

	if err := orchestrator.Tick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if !orchestrator.Healthy() {
		t.Fatal("expected orchestrator to stay healthy")
	}
	if len(asgClient.SetDesiredCapacityCalls) != 1 {
		t.Fatalf("expected one reconcile call, got %v", asgClient.SetDesiredCapacityCalls)
	}
	// Each node covers 2 cpu; running (0.5) + pending (3) = 3.5 cpu demand
	// needs two of them to be covered.
	if got := asgClient.SetDesiredCapacityCalls[0].Desired; got != 2 {
		t.Fatalf("got desired capacity %d, want 2", got)
	}
}

func TestEndToEndNoChangeWhenAlreadyRightsized(t *testing.T) {
	ctx := context.Background()

	node := &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: "node-1", Labels: map[string]string{"topology.kubernetes.io/zone": "us-east-1a"}},
		Spec:       corev1.NodeSpec{ProviderID: "aws:///us-east-1a/i-1"},
		Status: corev1.NodeStatus{
			Conditions:  []corev1.NodeCondition{{Type: corev1.NodeReady, Status: corev1.ConditionTrue}},
			Allocatable: corev1.ResourceList{corev1.ResourceCPU: quantity("2"), corev1.ResourceMemory: quantity("4Gi"), corev1.ResourcePods: quantity("20")},
		},
	}
	k8sClient := fake.NewSimpleClientset(node)
	reader := snapshot.NewReader(k8sClient, snapshot.Config{}, nil)

	asgClient := capacity.NewFakeASGClient()
	asgClient.AddInstance(capacity.InstanceInfo{InstanceID: "i-1", ASGName: "workers", AvailabilityZone: "us-east-1a", LifecycleState: "InService"})
	asgClient.AddASG(record.ASGSpec{Name: "workers", CurrentDesired: 1, MinSize: 1, MaxSize: 20})

	eng := sizing.NewEngine(sizing.Config{Buffer: sizing.Buffer{}}, nil)
	recon := reconciler.New(asgClient, nil)
	orchestrator := tick.New(reader, asgClient, eng, recon, nil)

	if err := orchestrator.Tick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if len(asgClient.SetDesiredCapacityCalls) != 0 {
		t.Fatalf("expected no-op, got %v", asgClient.SetDesiredCapacityCalls)
	}
}
