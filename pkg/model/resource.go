package model

import (
	"fmt"
	"strings"
)

// Resource is a dimension of broker load that goals can balance or cap.
type Resource int

const (
	// ResourceCPU is the broker CPU utilization, stored as a 0-1 fraction of a fully used broker.
	ResourceCPU Resource = iota

	// ResourceNetworkInbound is the inbound network rate (leader and follower replicas).
	ResourceNetworkInbound

	// ResourceNetworkOutbound is the outbound network rate; only leaders serve consumers.
	ResourceNetworkOutbound

	// ResourceDisk is the disk usage in MB.
	ResourceDisk

	// NumResources is the number of tracked resources.
	NumResources = 4
)

var allResources = []Resource{
	ResourceCPU,
	ResourceNetworkInbound,
	ResourceNetworkOutbound,
	ResourceDisk,
}

var resourceNames = map[Resource]string{
	ResourceCPU:             "cpu",
	ResourceNetworkInbound:  "networkInbound",
	ResourceNetworkOutbound: "networkOutbound",
	ResourceDisk:            "disk",
}

// AllResources returns every tracked resource in its canonical order.
func AllResources() []Resource {
	resources := make([]Resource, len(allResources))
	copy(resources, allResources)
	return resources
}

// String returns the config name of the resource.
func (r Resource) String() string {
	if name, ok := resourceNames[r]; ok {
		return name
	}
	return fmt.Sprintf("resource(%d)", int(r))
}

// IsHostResource is true for resources whose capacity is shared by all replicas on a host
// regardless of their role.
func (r Resource) IsHostResource() bool {
	return r == ResourceCPU || r == ResourceDisk
}

// ParseResource converts a config name (case-insensitive) into a Resource.
func ParseResource(name string) (Resource, error) {
	for resource, resourceName := range resourceNames {
		if strings.EqualFold(resourceName, name) {
			return resource, nil
		}
	}
	return 0, fmt.Errorf("Unrecognized resource: %s", name)
}
