package model

import (
	"math"
)

// Statistic is an aggregate computed over the alive brokers.
type Statistic int

const (
	StatAvg Statistic = iota
	StatMax
	StatMin
	StatStdDev

	NumStatistics = 4
)

var statisticNames = [NumStatistics]string{"avg", "max", "min", "stdDev"}

// String returns the display name of the statistic.
func (s Statistic) String() string {
	if s < 0 || s >= NumStatistics {
		return "unknown"
	}
	return statisticNames[s]
}

// Statistics holds the aggregates of a single metric.
type Statistics [NumStatistics]float64

func (s Statistics) Avg() float64 {
	return s[StatAvg]
}

func (s Statistics) Max() float64 {
	return s[StatMax]
}

func (s Statistics) Min() float64 {
	return s[StatMin]
}

func (s Statistics) StdDev() float64 {
	return s[StatStdDev]
}

// NewStatistics aggregates the argument values. The standard deviation is the population one.
func NewStatistics(values []float64) Statistics {
	stats := Statistics{}
	if len(values) == 0 {
		return stats
	}

	sum := 0.0
	stats[StatMax] = math.Inf(-1)
	stats[StatMin] = math.Inf(1)
	for _, value := range values {
		sum += value
		stats[StatMax] = math.Max(stats[StatMax], value)
		stats[StatMin] = math.Min(stats[StatMin], value)
	}
	avg := sum / float64(len(values))

	variance := 0.0
	for _, value := range values {
		variance += (value - avg) * (value - avg)
	}

	stats[StatAvg] = avg
	stats[StatStdDev] = math.Sqrt(variance / float64(len(values)))
	return stats
}

// ClusterModelStats is an immutable snapshot of the state of a cluster model. It only holds
// arrays and scalars so that two snapshots can be compared with ==.
type ClusterModelStats struct {
	// Utilization holds the per-resource aggregates of broker utilization (load / capacity)
	// over the alive brokers.
	Utilization [NumResources]Statistics

	// PotentialNetworkOut holds the aggregates of per-broker potential outbound network load.
	PotentialNetworkOut Statistics

	ReplicaCount Statistics
	LeaderCount  Statistics

	// NumBalancedBrokers is the number of alive brokers whose utilization is inside the
	// resource's balance band.
	NumBalancedBrokers [NumResources]int

	NumBrokers                       int
	NumAliveBrokers                  int
	NumNewBrokers                    int
	NumDeadBrokers                   int
	NumReplicas                      int
	NumLeaders                       int
	NumTopics                        int
	NumPartitions                    int
	NumPartitionsWithOfflineReplicas int
	NumReplicasOnDeadBrokers         int

	BalancePercentage        [NumResources]float64
	ReplicaBalancePercentage float64
	LeaderBalancePercentage  float64
}

// ClusterStats computes a stats snapshot of the model using the percentages of the argument
// constraint.
func (c *ClusterModel) ClusterStats(constraint *BalancingConstraint) ClusterModelStats {
	stats := ClusterModelStats{
		NumReplicas:              len(c.replicas),
		NumPartitions:            len(c.partitions),
		NumTopics:                len(c.Topics()),
		ReplicaBalancePercentage: constraint.ReplicaBalancePercentage(),
		LeaderBalancePercentage:  constraint.LeaderReplicaBalancePercentage(),
	}

	aliveBrokers := c.AliveBrokers()
	stats.NumBrokers = len(c.brokers)
	stats.NumAliveBrokers = len(aliveBrokers)
	stats.NumNewBrokers = len(c.NewBrokers())
	stats.NumDeadBrokers = stats.NumBrokers - stats.NumAliveBrokers

	replicaCounts := make([]float64, 0, len(aliveBrokers))
	leaderCounts := make([]float64, 0, len(aliveBrokers))
	potentialNwOut := make([]float64, 0, len(aliveBrokers))
	for _, broker := range aliveBrokers {
		replicaCounts = append(replicaCounts, float64(broker.NumReplicas()))
		leaderCounts = append(leaderCounts, float64(broker.NumLeaders()))
		potentialNwOut = append(potentialNwOut, c.PotentialNetworkOut(broker.id))
	}
	stats.ReplicaCount = NewStatistics(replicaCounts)
	stats.LeaderCount = NewStatistics(leaderCounts)
	stats.PotentialNetworkOut = NewStatistics(potentialNwOut)

	for _, resource := range AllResources() {
		stats.BalancePercentage[resource] = constraint.BalancePercentage(resource)

		lower, upper := UtilizationBand(
			c.AverageUtilization(resource),
			constraint.BalancePercentage(resource),
		)
		utilizations := make([]float64, 0, len(aliveBrokers))
		for _, broker := range aliveBrokers {
			utilization := broker.Utilization(resource)
			utilizations = append(utilizations, utilization)
			if utilization >= lower && utilization <= upper {
				stats.NumBalancedBrokers[resource]++
			}
		}
		stats.Utilization[resource] = NewStatistics(utilizations)
	}

	for _, broker := range aliveBrokers {
		stats.NumLeaders += broker.NumLeaders()
	}

	for _, tp := range c.TopicPartitions() {
		offline := false
		for _, id := range c.partitions[tp].replicas {
			if !c.brokers[c.replicas[id].brokerID].IsAlive() {
				offline = true
				stats.NumReplicasOnDeadBrokers++
			}
		}
		if offline {
			stats.NumPartitionsWithOfflineReplicas++
		}
	}

	return stats
}

// CountBand returns the inclusive range of per-broker counts that are considered balanced
// around the argument average.
func CountBand(avg float64, balancePercentage float64) (int, int) {
	lower := int(math.Floor(avg * (2.0 - balancePercentage)))
	if lower < 0 {
		lower = 0
	}
	return lower, int(math.Ceil(avg * balancePercentage))
}

// UtilizationBand returns the inclusive range of per-broker utilizations that are considered
// balanced around the argument average.
func UtilizationBand(avg float64, balancePercentage float64) (float64, float64) {
	return math.Max(0.0, avg*(2.0-balancePercentage)), avg * balancePercentage
}
