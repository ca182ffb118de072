package goals

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/segmentio/goalctl/pkg/model"
)

// Catalog names
const (
	RackAwareGoalName                    = "RackAwareGoal"
	ReplicaCapacityGoalName              = "ReplicaCapacityGoal"
	DiskCapacityGoalName                 = "DiskCapacityGoal"
	CPUCapacityGoalName                  = "CpuCapacityGoal"
	NetworkInboundCapacityGoalName       = "NetworkInboundCapacityGoal"
	NetworkOutboundCapacityGoalName      = "NetworkOutboundCapacityGoal"
	ReplicaDistributionGoalName          = "ReplicaDistributionGoal"
	LeaderReplicaDistributionGoalName    = "LeaderReplicaDistributionGoal"
	DiskUsageDistributionGoalName        = "DiskUsageDistributionGoal"
	CPUUsageDistributionGoalName         = "CpuUsageDistributionGoal"
	NetworkInboundUsageDistributionName  = "NetworkInboundUsageDistributionGoal"
	NetworkOutboundUsageDistributionName = "NetworkOutboundUsageDistributionGoal"
)

var capacityGoalNames = map[model.Resource]string{
	model.ResourceDisk:            DiskCapacityGoalName,
	model.ResourceCPU:             CPUCapacityGoalName,
	model.ResourceNetworkInbound:  NetworkInboundCapacityGoalName,
	model.ResourceNetworkOutbound: NetworkOutboundCapacityGoalName,
}

var resourceDistributionGoalNames = map[model.Resource]string{
	model.ResourceDisk:            DiskUsageDistributionGoalName,
	model.ResourceCPU:             CPUUsageDistributionGoalName,
	model.ResourceNetworkInbound:  NetworkInboundUsageDistributionName,
	model.ResourceNetworkOutbound: NetworkOutboundUsageDistributionName,
}

// defaultGoalNames is the default priority order: hard goals first, then the distribution
// goals.
var defaultGoalNames = []string{
	RackAwareGoalName,
	ReplicaCapacityGoalName,
	DiskCapacityGoalName,
	NetworkInboundCapacityGoalName,
	NetworkOutboundCapacityGoalName,
	CPUCapacityGoalName,
	ReplicaDistributionGoalName,
	DiskUsageDistributionGoalName,
	NetworkInboundUsageDistributionName,
	NetworkOutboundUsageDistributionName,
	CPUUsageDistributionGoalName,
	LeaderReplicaDistributionGoalName,
}

// Constructor builds a goal from a constraint.
type Constructor func(constraint *model.BalancingConstraint) Goal

var (
	registryLock sync.RWMutex
	registry     = map[string]Constructor{
		RackAwareGoalName: func(c *model.BalancingConstraint) Goal {
			return NewRackAwareGoal(c)
		},
		ReplicaCapacityGoalName: func(c *model.BalancingConstraint) Goal {
			return NewReplicaCapacityGoal(c)
		},
		ReplicaDistributionGoalName:       NewReplicaDistributionGoal,
		LeaderReplicaDistributionGoalName: NewLeaderReplicaDistributionGoal,
	}
)

func init() {
	for resource, name := range capacityGoalNames {
		resource := resource
		registry[name] = func(c *model.BalancingConstraint) Goal {
			return NewCapacityGoal(c, resource)
		}
	}
	for resource, name := range resourceDistributionGoalNames {
		resource := resource
		registry[name] = func(c *model.BalancingConstraint) Goal {
			return NewResourceDistributionGoal(c, resource)
		}
	}
}

// Register adds a goal constructor to the catalog, replacing any existing one with the same
// name.
func Register(name string, constructor Constructor) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registry[name] = constructor
}

// Names returns the sorted names of every goal in the catalog.
func Names() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()

	names := []string{}
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultGoalNames returns the default goal priority order.
func DefaultGoalNames() []string {
	names := make([]string, len(defaultGoalNames))
	copy(names, defaultGoalNames)
	return names
}

// New builds the goal with the argument name.
func New(name string, constraint *model.BalancingConstraint) (Goal, error) {
	registryLock.RLock()
	constructor, ok := registry[name]
	registryLock.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGoal, name)
	}
	return constructor(constraint), nil
}

// FromNames builds the goals with the argument names, keeping their order. All unknown names
// are reported together.
func FromNames(names []string, constraint *model.BalancingConstraint) ([]Goal, error) {
	var namesErr error
	goals := []Goal{}
	seen := map[string]struct{}{}

	for _, name := range names {
		if _, ok := seen[name]; ok {
			namesErr = multierror.Append(namesErr, fmt.Errorf("Goal %s is listed twice", name))
			continue
		}
		seen[name] = struct{}{}

		goal, err := New(name, constraint)
		if err != nil {
			namesErr = multierror.Append(namesErr, err)
			continue
		}
		goals = append(goals, goal)
	}

	if namesErr != nil {
		return nil, namesErr
	}
	return goals, nil
}
