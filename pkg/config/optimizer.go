package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/segmentio/goalctl/pkg/goals"
	"github.com/segmentio/goalctl/pkg/model"
	"github.com/segmentio/goalctl/pkg/optimizer"
	"github.com/segmentio/goalctl/pkg/verify"
)

// OptimizerConfig stores the goals and balancing thresholds of an optimization.
type OptimizerConfig struct {
	Meta ResourceMeta  `json:"meta"`
	Spec OptimizerSpec `json:"spec"`
}

// OptimizerSpec holds the goal list and the inputs of the balancing constraint. Per-resource
// maps are keyed by resource name (cpu, networkInbound, networkOutbound, disk); resources
// missing from a map get the default value.
type OptimizerSpec struct {
	// Goals are goal names in priority order. If empty, the default order is used.
	Goals []string `json:"goals"`

	// Resources is the ordered list of balanced resources. The first one is the resource
	// checked by the new-broker verification.
	Resources []string `json:"resources"`

	BalancePercentages       map[string]float64 `json:"balancePercentages"`
	CapacityThresholds       map[string]float64 `json:"capacityThresholds"`
	LowUtilizationThresholds map[string]float64 `json:"lowUtilizationThresholds"`

	ReplicaBalancePercentage       float64 `json:"replicaBalancePercentage"`
	LeaderReplicaBalancePercentage float64 `json:"leaderReplicaBalancePercentage"`
	MaxReplicasPerBroker           int     `json:"maxReplicasPerBroker"`

	// ExcludedTopics are never moved, except off dead brokers.
	ExcludedTopics []string `json:"excludedTopics"`

	// PickerMethod breaks ties between equally-good destination brokers.
	PickerMethod string `json:"pickerMethod"`

	// CacheTTL is how long computed proposals are reused for an unchanged cluster, as a
	// duration string.
	CacheTTL string `json:"cacheTTL"`

	// SanityCheck validates the model invariants after every goal.
	SanityCheck bool `json:"sanityCheck"`

	// Verifications are run after optimizing. If empty, all of them are run.
	Verifications []string `json:"verifications"`
}

// SetDefaults fills in the unset fields of the config.
func (o *OptimizerConfig) SetDefaults() {
	defaults := model.DefaultBalancingConstraintConfig()

	if len(o.Spec.Goals) == 0 {
		o.Spec.Goals = goals.DefaultGoalNames()
	}
	if len(o.Spec.Resources) == 0 {
		for _, resource := range defaults.Resources {
			o.Spec.Resources = append(o.Spec.Resources, resource.String())
		}
	}
	if o.Spec.ReplicaBalancePercentage == 0 {
		o.Spec.ReplicaBalancePercentage = defaults.ReplicaBalancePercentage
	}
	if o.Spec.LeaderReplicaBalancePercentage == 0 {
		o.Spec.LeaderReplicaBalancePercentage = defaults.LeaderReplicaBalancePercentage
	}
	if o.Spec.MaxReplicasPerBroker == 0 {
		o.Spec.MaxReplicasPerBroker = defaults.MaxReplicasPerBroker
	}
	if o.Spec.PickerMethod == "" {
		o.Spec.PickerMethod = string(defaults.PickerMethod)
	}
	if o.Spec.CacheTTL == "" {
		o.Spec.CacheTTL = optimizer.DefaultProposalCacheTTL.String()
	}
}

// Validate evaluates whether the optimizer config is valid. It should be called after
// SetDefaults.
func (o OptimizerConfig) Validate() error {
	var err error

	if metaErr := o.Meta.Validate(); metaErr != nil {
		err = multierror.Append(err, metaErr)
	}

	if len(o.Spec.Goals) == 0 {
		err = multierror.Append(err, fmt.Errorf("At least one goal must be set"))
	}

	if _, constraintErr := o.ToBalancingConstraint(); constraintErr != nil {
		err = multierror.Append(err, constraintErr)
	} else if _, goalsErr := o.GoalsByPriority(nil); goalsErr != nil {
		err = multierror.Append(err, goalsErr)
	}

	if _, ttlErr := o.GetCacheTTL(); ttlErr != nil {
		err = multierror.Append(err, ttlErr)
	}
	if _, verificationsErr := o.GetVerifications(); verificationsErr != nil {
		err = multierror.Append(err, verificationsErr)
	}

	return err
}

// ToBalancingConstraint converts the optimizer spec fields into a validated balancing constraint.
func (o OptimizerConfig) ToBalancingConstraint() (*model.BalancingConstraint, error) {
	var err error
	constraintConfig := model.DefaultBalancingConstraintConfig()

	constraintConfig.Resources = []model.Resource{}
	for _, name := range o.Spec.Resources {
		resource, parseErr := model.ParseResource(name)
		if parseErr != nil {
			err = multierror.Append(err, parseErr)
			continue
		}
		constraintConfig.Resources = append(constraintConfig.Resources, resource)
	}

	for _, values := range []struct {
		source map[string]float64
		dest   map[model.Resource]float64
	}{
		{o.Spec.BalancePercentages, constraintConfig.BalancePercentage},
		{o.Spec.CapacityThresholds, constraintConfig.CapacityThreshold},
		{o.Spec.LowUtilizationThresholds, constraintConfig.LowUtilizationThreshold},
	} {
		for name, value := range values.source {
			resource, parseErr := model.ParseResource(name)
			if parseErr != nil {
				err = multierror.Append(err, parseErr)
				continue
			}
			values.dest[resource] = value
		}
	}

	constraintConfig.ReplicaBalancePercentage = o.Spec.ReplicaBalancePercentage
	constraintConfig.LeaderReplicaBalancePercentage = o.Spec.LeaderReplicaBalancePercentage
	constraintConfig.MaxReplicasPerBroker = o.Spec.MaxReplicasPerBroker
	constraintConfig.ExcludedTopics = o.Spec.ExcludedTopics
	constraintConfig.PickerMethod = model.PickerMethod(o.Spec.PickerMethod)

	if err != nil {
		return nil, err
	}
	return model.NewBalancingConstraint(constraintConfig)
}

// GoalsByPriority builds the configured goals against the argument constraint. If the
// constraint is nil, one is built from the config.
func (o OptimizerConfig) GoalsByPriority(
	constraint *model.BalancingConstraint,
) ([]goals.Goal, error) {
	if constraint == nil {
		var err error
		constraint, err = o.ToBalancingConstraint()
		if err != nil {
			return nil, err
		}
	}
	return goals.FromNames(o.Spec.Goals, constraint)
}

// GetCacheTTL parses the proposal cache TTL. An unset TTL returns the default.
func (o OptimizerConfig) GetCacheTTL() (time.Duration, error) {
	if o.Spec.CacheTTL == "" {
		return optimizer.DefaultProposalCacheTTL, nil
	}

	ttl, err := time.ParseDuration(o.Spec.CacheTTL)
	if err != nil {
		return 0, fmt.Errorf("Error parsing cache TTL: %w", err)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("Cache TTL must be positive, got %s", o.Spec.CacheTTL)
	}
	return ttl, nil
}

// GetVerifications parses the configured verification names.
func (o OptimizerConfig) GetVerifications() ([]verify.VerificationName, error) {
	var err error
	verifications := []verify.VerificationName{}

	for _, name := range o.Spec.Verifications {
		verification, parseErr := verify.ParseVerification(name)
		if parseErr != nil {
			err = multierror.Append(err, parseErr)
			continue
		}
		verifications = append(verifications, verification)
	}

	return verifications, err
}

// OptimizerSettings returns the settings used to construct a GoalOptimizer.
func (o OptimizerConfig) OptimizerSettings(metrics *optimizer.Metrics) optimizer.Config {
	return optimizer.Config{
		SanityCheck: o.Spec.SanityCheck,
		Metrics:     metrics,
	}
}
