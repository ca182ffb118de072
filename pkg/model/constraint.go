package model

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// PickerMethod is the strategy used to break ties between equally-good destination brokers.
type PickerMethod string

const (
	// PickerMethodLowestIndex prefers the broker with the lowest id.
	PickerMethodLowestIndex PickerMethod = "lowest-index"

	// PickerMethodRandomized shuffles ties with a seed derived from the partition.
	PickerMethodRandomized PickerMethod = "randomized"

	// PickerMethodClusterUse prefers the broker with the fewest replicas in the cluster.
	PickerMethodClusterUse PickerMethod = "cluster-use"
)

var allPickerMethods = []PickerMethod{
	PickerMethodLowestIndex,
	PickerMethodRandomized,
	PickerMethodClusterUse,
}

// Default constraint values
const (
	DefaultBalancePercentage        = 1.10
	DefaultCapacityThreshold        = 0.80
	DefaultLowUtilizationThreshold  = 0.0
	DefaultMaxReplicasPerBroker     = 10000
	DefaultReplicaBalancePercentage = 1.10
	DefaultLeaderBalancePercentage  = 1.10
)

// BalancingConstraintConfig holds the raw inputs of a BalancingConstraint.
type BalancingConstraintConfig struct {
	// Resources is the ordered list of resources. The first one is used by the new-broker
	// verification.
	Resources []Resource

	BalancePercentage       map[Resource]float64
	CapacityThreshold       map[Resource]float64
	LowUtilizationThreshold map[Resource]float64

	ReplicaBalancePercentage       float64
	LeaderReplicaBalancePercentage float64
	MaxReplicasPerBroker           int

	ExcludedTopics []string
	PickerMethod   PickerMethod
}

// DefaultBalancingConstraintConfig returns a config with every value set to its default.
func DefaultBalancingConstraintConfig() BalancingConstraintConfig {
	config := BalancingConstraintConfig{
		Resources:                      AllResources(),
		BalancePercentage:              map[Resource]float64{},
		CapacityThreshold:              map[Resource]float64{},
		LowUtilizationThreshold:        map[Resource]float64{},
		ReplicaBalancePercentage:       DefaultReplicaBalancePercentage,
		LeaderReplicaBalancePercentage: DefaultLeaderBalancePercentage,
		MaxReplicasPerBroker:           DefaultMaxReplicasPerBroker,
		PickerMethod:                   PickerMethodLowestIndex,
	}
	for _, resource := range AllResources() {
		config.BalancePercentage[resource] = DefaultBalancePercentage
		config.CapacityThreshold[resource] = DefaultCapacityThreshold
		config.LowUtilizationThreshold[resource] = DefaultLowUtilizationThreshold
	}
	return config
}

// BalancingConstraint holds the thresholds that goals balance against. It's immutable once
// built, so it can be shared by goals running in parallel.
type BalancingConstraint struct {
	resources                      []Resource
	balancePercentage              [NumResources]float64
	capacityThreshold              [NumResources]float64
	lowUtilizationThreshold        [NumResources]float64
	replicaBalancePercentage       float64
	leaderReplicaBalancePercentage float64
	maxReplicasPerBroker           int
	excludedTopics                 map[string]struct{}
	pickerMethod                   PickerMethod
}

// NewBalancingConstraint validates the argument config and builds a constraint from it. Values
// missing from the config's maps get their defaults. All validation problems are returned
// together.
func NewBalancingConstraint(config BalancingConstraintConfig) (*BalancingConstraint, error) {
	var validateErr error

	constraint := &BalancingConstraint{
		replicaBalancePercentage:       config.ReplicaBalancePercentage,
		leaderReplicaBalancePercentage: config.LeaderReplicaBalancePercentage,
		maxReplicasPerBroker:           config.MaxReplicasPerBroker,
		excludedTopics:                 map[string]struct{}{},
		pickerMethod:                   config.PickerMethod,
	}

	if len(config.Resources) == 0 {
		validateErr = multierror.Append(validateErr, fmt.Errorf("At least one resource must be set"))
	}
	seen := map[Resource]struct{}{}
	for _, resource := range config.Resources {
		if resource < 0 || resource >= NumResources {
			validateErr = multierror.Append(validateErr, fmt.Errorf("Unrecognized resource: %d", resource))
			continue
		}
		if _, ok := seen[resource]; ok {
			validateErr = multierror.Append(validateErr, fmt.Errorf("Resource %s is listed twice", resource))
			continue
		}
		seen[resource] = struct{}{}
		constraint.resources = append(constraint.resources, resource)
	}

	for _, resource := range AllResources() {
		balance, ok := config.BalancePercentage[resource]
		if !ok {
			balance = DefaultBalancePercentage
		}
		if balance < 1.0 {
			validateErr = multierror.Append(
				validateErr,
				fmt.Errorf("Balance percentage for %s must be >= 1.0, got %f", resource, balance),
			)
		}
		constraint.balancePercentage[resource] = balance

		threshold, ok := config.CapacityThreshold[resource]
		if !ok {
			threshold = DefaultCapacityThreshold
		}
		if threshold <= 0.0 || threshold > 1.0 {
			validateErr = multierror.Append(
				validateErr,
				fmt.Errorf("Capacity threshold for %s must be in (0, 1], got %f", resource, threshold),
			)
		}
		constraint.capacityThreshold[resource] = threshold

		lowUtilization, ok := config.LowUtilizationThreshold[resource]
		if !ok {
			lowUtilization = DefaultLowUtilizationThreshold
		}
		if lowUtilization < 0.0 || lowUtilization > 1.0 {
			validateErr = multierror.Append(
				validateErr,
				fmt.Errorf(
					"Low utilization threshold for %s must be in [0, 1], got %f",
					resource,
					lowUtilization,
				),
			)
		}
		constraint.lowUtilizationThreshold[resource] = lowUtilization
	}

	if config.ReplicaBalancePercentage < 1.0 {
		validateErr = multierror.Append(
			validateErr,
			fmt.Errorf(
				"Replica balance percentage must be >= 1.0, got %f",
				config.ReplicaBalancePercentage,
			),
		)
	}
	if config.LeaderReplicaBalancePercentage < 1.0 {
		validateErr = multierror.Append(
			validateErr,
			fmt.Errorf(
				"Leader replica balance percentage must be >= 1.0, got %f",
				config.LeaderReplicaBalancePercentage,
			),
		)
	}
	if config.MaxReplicasPerBroker <= 0 {
		validateErr = multierror.Append(
			validateErr,
			fmt.Errorf("Max replicas per broker must be positive, got %d", config.MaxReplicasPerBroker),
		)
	}

	if constraint.pickerMethod == "" {
		constraint.pickerMethod = PickerMethodLowestIndex
	}
	pickerOK := false
	for _, method := range allPickerMethods {
		if constraint.pickerMethod == method {
			pickerOK = true
		}
	}
	if !pickerOK {
		validateErr = multierror.Append(
			validateErr,
			fmt.Errorf("Unrecognized picker method: %s", constraint.pickerMethod),
		)
	}

	for _, topic := range config.ExcludedTopics {
		constraint.excludedTopics[topic] = struct{}{}
	}

	if validateErr != nil {
		return nil, validateErr
	}
	return constraint, nil
}

// Resources returns the ordered resources of the constraint.
func (b *BalancingConstraint) Resources() []Resource {
	resources := make([]Resource, len(b.resources))
	copy(resources, b.resources)
	return resources
}

// BalancePercentage returns how far above or below the average a broker's utilization can be
// before it's considered unbalanced, e.g. 1.1 for 10%.
func (b *BalancingConstraint) BalancePercentage(resource Resource) float64 {
	return b.balancePercentage[resource]
}

// CapacityThreshold returns the fraction of a broker's capacity that can be used.
func (b *BalancingConstraint) CapacityThreshold(resource Resource) float64 {
	return b.capacityThreshold[resource]
}

// LowUtilizationThreshold returns the cluster utilization below which distribution goals
// consider themselves satisfied.
func (b *BalancingConstraint) LowUtilizationThreshold(resource Resource) float64 {
	return b.lowUtilizationThreshold[resource]
}

// ReplicaBalancePercentage returns the balance percentage of replica counts.
func (b *BalancingConstraint) ReplicaBalancePercentage() float64 {
	return b.replicaBalancePercentage
}

// LeaderReplicaBalancePercentage returns the balance percentage of leader counts.
func (b *BalancingConstraint) LeaderReplicaBalancePercentage() float64 {
	return b.leaderReplicaBalancePercentage
}

// MaxReplicasPerBroker returns the upper limit on replicas per broker.
func (b *BalancingConstraint) MaxReplicasPerBroker() int {
	return b.maxReplicasPerBroker
}

// IsExcludedTopic returns whether the replicas of a topic must stay where they are.
func (b *BalancingConstraint) IsExcludedTopic(topic string) bool {
	_, ok := b.excludedTopics[topic]
	return ok
}

// ExcludedTopics returns the sorted excluded topics.
func (b *BalancingConstraint) ExcludedTopics() []string {
	topics := make([]string, 0, len(b.excludedTopics))
	for topic := range b.excludedTopics {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// PickerMethod returns the tie-breaking strategy for destination brokers.
func (b *BalancingConstraint) PickerMethod() PickerMethod {
	return b.pickerMethod
}
