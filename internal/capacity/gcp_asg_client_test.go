package capacity

import "testing"

// Compile-time interface check: GCPASGClient must implement ASGClient.
var _ ASGClient = (*GCPASGClient)(nil)

func TestMigInstanceStatusToLifecycleState(t *testing.T) {
	cases := []struct {
		status string
		want   string
	}{
		{"RUNNING", "InService"},
		{"STOPPING", "Terminating"},
		{"TERMINATED", "Terminating"},
		{"SUSPENDING", "Terminating"},
		{"SUSPENDED", "Terminating"},
		{"PROVISIONING", "Pending"},
		{"STAGING", "Pending"},
		{"", "Pending"},
	}
	for _, c := range cases {
		if got := migInstanceStatusToLifecycleState(c.status); got != c.want {
			t.Errorf("migInstanceStatusToLifecycleState(%q) = %q, want %q", c.status, got, c.want)
		}
	}
}

func TestInstanceNameFromURL(t *testing.T) {
	url := "https://www.googleapis.com/compute/v1/projects/my-proj/zones/us-central1-a/instances/my-instance-1"
	if got := instanceNameFromURL(url); got != "my-instance-1" {
		t.Errorf("instanceNameFromURL(%q) = %q, want %q", url, got, "my-instance-1")
	}
}

func TestInstanceNameFromURL_Bare(t *testing.T) {
	if got := instanceNameFromURL("my-instance-1"); got != "my-instance-1" {
		t.Errorf("instanceNameFromURL(bare) = %q, want %q", got, "my-instance-1")
	}
}

func TestZoneFromURL(t *testing.T) {
	url := "https://www.googleapis.com/compute/v1/projects/my-proj/zones/us-central1-a"
	if got := zoneFromURL(url); got != "us-central1-a" {
		t.Errorf("zoneFromURL(%q) = %q, want %q", url, got, "us-central1-a")
	}
}
