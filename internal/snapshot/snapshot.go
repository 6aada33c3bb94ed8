// Package snapshot reads cluster nodes and workloads from the Kubernetes
// API and normalizes them into the flat record types the rest of the
// pipeline operates on.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/softcane/asgscaler/internal/quantity"
	"github.com/softcane/asgscaler/internal/record"
)

const (
	labelMasterRole       = "node-role.kubernetes.io/master"
	labelLegacyMasterRole = "kubernetes.io/role"

	labelZone       = "topology.kubernetes.io/zone"
	labelZoneLegacy = "failure-domain.beta.kubernetes.io/zone"

	labelRegion       = "topology.kubernetes.io/region"
	labelRegionLegacy = "failure-domain.beta.kubernetes.io/region"

	labelInstanceType       = "node.kubernetes.io/instance-type"
	labelInstanceTypeLegacy = "beta.kubernetes.io/instance-type"
)

// Config configures the snapshot reader.
type Config struct {
	// IncludeMasterNodes includes master-labelled nodes in the sizing
	// domain. Default: excluded.
	IncludeMasterNodes bool
}

// Reader reads cluster state from a Kubernetes API server.
type Reader struct {
	client kubernetes.Interface
	cfg    Config
	logger *slog.Logger
}

// NewReader constructs a snapshot reader over the given Kubernetes client.
func NewReader(client kubernetes.Interface, cfg Config, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{client: client, cfg: cfg, logger: logger}
}

// Nodes lists and normalizes every node, keyed by name.
func (r *Reader) Nodes(ctx context.Context) (map[string]record.NodeRecord, error) {
	list, err := r.client.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("snapshot: list nodes: %w", err)
	}

	out := make(map[string]record.NodeRecord, len(list.Items))
	for _, n := range list.Items {
		rec, isMaster := nodeToRecord(n)
		if isMaster && !r.cfg.IncludeMasterNodes {
			continue
		}
		out[rec.Name] = rec
	}
	return out, nil
}

func nodeToRecord(n corev1.Node) (record.NodeRecord, bool) {
	labels := n.Labels
	isMaster := labels[labelMasterRole] == "true" || labels[labelLegacyMasterRole] == "master"

	rec := record.NodeRecord{
		Name:          n.Name,
		Region:        firstNonEmpty(labels[labelRegion], labels[labelRegionLegacy]),
		Zone:          firstNonEmpty(labels[labelZone], labels[labelZoneLegacy]),
		InstanceType:  firstNonEmpty(labels[labelInstanceType], labels[labelInstanceTypeLegacy]),
		InstanceID:    instanceIDFromProviderID(n.Spec.ProviderID),
		Unschedulable: n.Spec.Unschedulable,
		Master:        isMaster,
	}

	for _, cond := range n.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			rec.Ready = cond.Status == corev1.ConditionTrue
		}
	}

	rec.Allocatable = allocatableToResources(n.Status.Allocatable)

	return rec, isMaster
}

// allocatableToResources reads the node's allocatable field — never
// capacity, which would ignore reservations for orchestrator daemons.
func allocatableToResources(alloc corev1.ResourceList) record.Resources {
	var res record.Resources
	if q, ok := alloc[corev1.ResourceCPU]; ok {
		v, err := quantity.Parse(q.String())
		if err == nil {
			res.CPU = v
		}
	}
	if q, ok := alloc[corev1.ResourceMemory]; ok {
		v, err := quantity.Parse(q.String())
		if err == nil {
			res.Memory = v
		}
	}
	if q, ok := alloc[corev1.ResourcePods]; ok {
		v, err := quantity.Parse(q.String())
		if err == nil {
			res.Pods = v
		}
	}
	return res
}

// instanceIDFromProviderID parses the cloud-specific provider ID form:
// AWS "aws:///<zone>/<instance-id>", GCP "gce://<project>/<zone>/<instance-name>".
func instanceIDFromProviderID(providerID string) string {
	if providerID == "" {
		return ""
	}
	idx := strings.Index(providerID, "://")
	if idx < 0 {
		return providerID
	}
	path := providerID[idx+3:]
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Workloads lists and normalizes every pod across all namespaces.
func (r *Reader) Workloads(ctx context.Context) ([]record.WorkloadRecord, error) {
	list, err := r.client.CoreV1().Pods("").List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("snapshot: list pods: %w", err)
	}

	out := make([]record.WorkloadRecord, 0, len(list.Items))
	for _, p := range list.Items {
		out = append(out, podToRecord(p))
	}
	return out, nil
}

func podToRecord(p corev1.Pod) record.WorkloadRecord {
	rec := record.WorkloadRecord{
		Name:             p.Name,
		Phase:            string(p.Status.Phase),
		AssignedNodeName: p.Spec.NodeName,
		RestartPolicy:    string(p.Spec.RestartPolicy),
	}
	for _, c := range p.Spec.Containers {
		req := record.ContainerRequest{Name: c.Name}
		if q, ok := c.Resources.Requests[corev1.ResourceCPU]; ok {
			req.RequestCPU = q.String()
			req.HasRequestCPU = true
		}
		if q, ok := c.Resources.Requests[corev1.ResourceMemory]; ok {
			req.RequestMemory = q.String()
			req.HasRequestMemory = true
		}
		rec.Containers = append(rec.Containers, req)
	}
	return rec
}
