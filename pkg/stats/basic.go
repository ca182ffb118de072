package stats

import (
	"github.com/segmentio/goalctl/pkg/model"
)

// JSON keys used by BasicStats.JSONStructure.
const (
	KeyDiskMB           = "DiskMB"
	KeyDiskPct          = "DiskPct"
	KeyCPUPct           = "CpuPct"
	KeyLeaderNwInRate   = "LeaderNwInRate"
	KeyFollowerNwInRate = "FollowerNwInRate"
	KeyNwOutRate        = "NwOutRate"
	KeyPnwOutRate       = "PnwOutRate"
	KeyReplicas         = "Replicas"
	KeyLeaders          = "Leaders"
)

// BasicStats summarizes the load of a broker, or of a group of brokers after Add.
type BasicStats struct {
	DiskMB             float64
	CPUPct             float64
	LeaderNwInRate     float64
	FollowerNwInRate   float64
	NwOutRate          float64
	PotentialNwOutRate float64
	NumReplicas        int
	NumLeaders         int

	// Capacity is the (summed) capacity of the brokers; zero where unknown.
	Capacity model.Load
}

// NewBasicStats builds stats from raw values. Negative loads are clamped to zero, counts below
// one become zero, and the CPU utilization (a 0-1 fraction) is converted to a percentage.
func NewBasicStats(
	diskMB float64,
	cpuUtil float64,
	leaderNwInRate float64,
	followerNwInRate float64,
	nwOutRate float64,
	potentialNwOutRate float64,
	numReplicas int,
	numLeaders int,
	capacity *model.Load,
) BasicStats {
	stats := BasicStats{
		DiskMB:             nonNegative(diskMB),
		CPUPct:             100.0 * nonNegative(cpuUtil),
		LeaderNwInRate:     nonNegative(leaderNwInRate),
		FollowerNwInRate:   nonNegative(followerNwInRate),
		NwOutRate:          nonNegative(nwOutRate),
		PotentialNwOutRate: nonNegative(potentialNwOutRate),
	}
	if numReplicas >= 1 {
		stats.NumReplicas = numReplicas
	}
	if numLeaders >= 1 {
		stats.NumLeaders = numLeaders
	}
	if capacity != nil {
		stats.Capacity = *capacity
	}
	return stats
}

func nonNegative(value float64) float64 {
	if value < 0.0 {
		return 0.0
	}
	return value
}

// DiskUtilPct returns the disk usage as a percentage of the disk capacity, or -1 if the
// capacity isn't positive.
func (b BasicStats) DiskUtilPct() float64 {
	totalDiskMB := b.Capacity[model.ResourceDisk]
	if totalDiskMB > 0 {
		return 100.0 * b.DiskMB / totalDiskMB
	}
	return -1.0
}

// Add returns the sum of the two stats. Only positive capacities are accumulated.
func (b BasicStats) Add(other BasicStats) BasicStats {
	b.DiskMB += other.DiskMB
	b.CPUPct += other.CPUPct
	b.LeaderNwInRate += other.LeaderNwInRate
	b.FollowerNwInRate += other.FollowerNwInRate
	b.NwOutRate += other.NwOutRate
	b.PotentialNwOutRate += other.PotentialNwOutRate
	b.NumReplicas += other.NumReplicas
	b.NumLeaders += other.NumLeaders

	for r, capacity := range other.Capacity {
		if capacity > 0 {
			b.Capacity[r] += capacity
		}
	}
	return b
}

// JSONStructure returns the stats as a map that can be encoded into JSON or YAML.
func (b BasicStats) JSONStructure() map[string]interface{} {
	return map[string]interface{}{
		KeyDiskMB:           b.DiskMB,
		KeyDiskPct:          b.DiskUtilPct(),
		KeyCPUPct:           b.CPUPct,
		KeyLeaderNwInRate:   b.LeaderNwInRate,
		KeyFollowerNwInRate: b.FollowerNwInRate,
		KeyNwOutRate:        b.NwOutRate,
		KeyPnwOutRate:       b.PotentialNwOutRate,
		KeyReplicas:         b.NumReplicas,
		KeyLeaders:          b.NumLeaders,
	}
}
