package verify

import (
	"fmt"
	"strings"

	"github.com/segmentio/goalctl/pkg/goals"
	"github.com/segmentio/goalctl/pkg/model"
	"github.com/segmentio/goalctl/pkg/optimizer"
	"github.com/segmentio/goalctl/pkg/util"
	log "github.com/sirupsen/logrus"
)

// VerifyConfig contains all of the context necessary to verify an optimization run.
type VerifyConfig struct {
	Constraint *model.BalancingConstraint

	// Cluster is the model after optimization.
	Cluster *model.ClusterModel
	Result  *optimizer.OptimizerResult

	// Goals are the goals that were run, in priority order.
	Goals []goals.Goal

	// Verifications are run in the argument order; all of them are run if empty.
	Verifications []VerificationName
}

// Verify runs the configured verifications against an optimization result.
func Verify(config VerifyConfig) VerificationResults {
	results := VerificationResults{}

	verifications := config.Verifications
	if len(verifications) == 0 {
		verifications = AllVerifications()
	}

	for _, verification := range verifications {
		results.AppendResult(VerificationResult{Name: verification})

		switch verification {
		case VerificationGoalViolation:
			verifyGoalViolations(config, &results)
		case VerificationDeadBrokers:
			if len(config.Cluster.DeadBrokers()) == 0 {
				results.SkipLastResult("no dead brokers")
				continue
			}
			verifyDeadBrokers(config, &results)
		case VerificationNewBrokers:
			if len(config.Cluster.NewBrokers()) == 0 {
				results.SkipLastResult("no new brokers")
				continue
			}
			verifyNewBrokers(config, &results)
		case VerificationRegression:
			// Self-healing moves are allowed to make the balance worse
			if len(config.Cluster.ReplicasFromDeadBrokers()) > 0 {
				results.SkipLastResult("replicas were moved off dead brokers")
				continue
			}
			verifyRegression(config, &results)
		default:
			results.UpdateLastResult(
				false,
				fmt.Sprintf("unrecognized verification %s", verification),
			)
		}

		last := results.Results[len(results.Results)-1]
		if !last.OK {
			log.Errorf("Verification %s failed: %s", last.Name, last.Description)
		}
	}

	return results
}

func verifyGoalViolations(config VerifyConfig, results *VerificationResults) {
	violated := config.Result.ViolatedGoalsAfterOptimization
	if len(violated) > 0 {
		results.UpdateLastResult(
			false,
			fmt.Sprintf("goals still violated: %s", strings.Join(violated, ", ")),
		)
		return
	}
	results.UpdateLastResult(true, "")
}

func verifyDeadBrokers(config VerifyConfig, results *VerificationResults) {
	for _, broker := range config.Cluster.DeadBrokers() {
		if broker.NumReplicas() > 0 {
			results.UpdateLastResult(
				false,
				fmt.Sprintf(
					"%d replicas still on dead broker %d",
					broker.NumReplicas(),
					broker.ID(),
				),
			)
			return
		}
	}

	// Without hard goals, only the partitions that had offline replicas should move
	if !goals.HasHardGoal(config.Goals) {
		numReplicaMovements := config.Result.NumReplicaMovements()
		expected := config.Result.PreOptimizedStats.NumPartitionsWithOfflineReplicas
		if numReplicaMovements != expected {
			results.UpdateLastResult(
				false,
				fmt.Sprintf(
					"%d partitions have replica movements, expected %d (partitions with offline replicas)",
					numReplicaMovements,
					expected,
				),
			)
			return
		}
	}

	results.UpdateLastResult(true, "")
}

func verifyNewBrokers(config VerifyConfig, results *VerificationResults) {
	cluster := config.Cluster

	for _, broker := range cluster.AliveBrokers() {
		if broker.IsNew() {
			continue
		}
		for _, replica := range cluster.BrokerReplicas(broker.ID()) {
			if replica.OriginalBrokerID() != broker.ID() {
				results.UpdateLastResult(
					false,
					fmt.Sprintf(
						"broker %d is not new but received %s from broker %d",
						broker.ID(),
						replica.TopicPartition(),
						replica.OriginalBrokerID(),
					),
				)
				return
			}
		}
	}

	resources := config.Constraint.Resources()
	if len(resources) == 0 {
		results.UpdateLastResult(true, "")
		return
	}

	// Only the first resource is checked
	resource := resources[0]
	lowerThreshold := 0.0
	if capacity := cluster.CapacityFor(resource); capacity > 0 {
		lowerThreshold = cluster.Load()[resource] / capacity *
			(2.0 - config.Constraint.BalancePercentage(resource))
	}

	for _, broker := range cluster.NewBrokers() {
		utilization := broker.Utilization(resource)
		if utilization < lowerThreshold {
			results.UpdateLastResult(
				false,
				fmt.Sprintf(
					"new broker %d is underutilized for %s: %s < %s",
					broker.ID(),
					resource,
					util.PrettyPercent(utilization),
					util.PrettyPercent(lowerThreshold),
				),
			)
			return
		}
	}

	results.UpdateLastResult(true, "")
}

func verifyRegression(config VerifyConfig, results *VerificationResults) {
	previous := config.Result.PreOptimizedStats

	for _, name := range config.Result.GoalOrder {
		stats := config.Result.StatsByGoal[name]
		comparator, ok := config.Result.ComparatorsByGoal[name]
		if !ok {
			results.UpdateLastResult(false, fmt.Sprintf("no comparator for goal %s", name))
			return
		}

		comparison := comparator(stats, previous)
		if comparison.Result == goals.Worse {
			results.UpdateLastResult(
				false,
				fmt.Sprintf("goal %s made the cluster worse: %s", name, comparison.Explanation),
			)
			return
		}
		previous = stats
	}

	results.UpdateLastResult(true, "")
}
