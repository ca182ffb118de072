package admin

import (
	"fmt"
	"sort"
)

// NoLeader is the leader id reported for offline partitions.
const NoLeader = -1

// BrokerInfo represents a live broker, as registered in zookeeper or returned in the cluster
// metadata.
type BrokerInfo struct {
	ID   int    `json:"id"`
	Host string `json:"host"`
	Port int32  `json:"port"`
	Rack string `json:"rack"`
}

// Addr returns the address of the current BrokerInfo.
func (b BrokerInfo) Addr() string {
	return fmt.Sprintf("%s:%d", b.Host, b.Port)
}

// TopicInfo represents the partitions of a single topic.
type TopicInfo struct {
	Name       string          `json:"name"`
	Internal   bool            `json:"internal"`
	Partitions []PartitionInfo `json:"partitions"`
}

// PartitionInfo represents the assignment of a topic partition. Replicas are in assignment
// order, so the first one is the preferred leader.
type PartitionInfo struct {
	Topic    string `json:"topic"`
	ID       int    `json:"id"`
	Leader   int    `json:"leader"`
	Replicas []int  `json:"replicas"`
	ISR      []int  `json:"isr"`
}

// IsOffline returns whether the partition has no live leader.
func (p PartitionInfo) IsOffline() bool {
	return p.Leader == NoLeader
}

// ClusterState is a point-in-time view of the brokers and partition assignments of a cluster.
// It's the raw material for a cluster model snapshot.
type ClusterState struct {
	ClusterID string       `json:"clusterID"`
	Brokers   []BrokerInfo `json:"brokers"`
	Topics    []TopicInfo  `json:"topics"`
}

// NumPartitions returns the total number of partitions across all topics.
func (s ClusterState) NumPartitions() int {
	total := 0
	for _, topic := range s.Topics {
		total += len(topic.Partitions)
	}
	return total
}

// ReferencedBrokerIDs returns the sorted ids of all brokers that host at least one replica.
func (s ClusterState) ReferencedBrokerIDs() []int {
	referenced := map[int]struct{}{}
	for _, topic := range s.Topics {
		for _, partition := range topic.Partitions {
			for _, replica := range partition.Replicas {
				referenced[replica] = struct{}{}
			}
		}
	}

	ids := []int{}
	for id := range referenced {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// MissingBrokerIDs returns the sorted ids of brokers that host replicas but aren't registered
// as live. These are the dead brokers of the cluster.
func (s ClusterState) MissingBrokerIDs() []int {
	live := map[int]struct{}{}
	for _, broker := range s.Brokers {
		live[broker.ID] = struct{}{}
	}

	missing := []int{}
	for _, id := range s.ReferencedBrokerIDs() {
		if _, ok := live[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// OfflinePartitions returns the partitions without a live leader.
func (s ClusterState) OfflinePartitions() []PartitionInfo {
	offline := []PartitionInfo{}
	for _, topic := range s.Topics {
		for _, partition := range topic.Partitions {
			if partition.IsOffline() {
				offline = append(offline, partition)
			}
		}
	}
	return offline
}

// BrokerIDs returns a slice of the IDs of the argument brokers.
func BrokerIDs(brokers []BrokerInfo) []int {
	brokerIDs := []int{}

	for _, broker := range brokers {
		brokerIDs = append(brokerIDs, broker.ID)
	}

	return brokerIDs
}

// BrokerRacks returns a mapping of broker ID -> rack.
func BrokerRacks(brokers []BrokerInfo) map[int]string {
	brokerRacks := map[int]string{}

	for _, broker := range brokers {
		brokerRacks[broker.ID] = broker.Rack
	}

	return brokerRacks
}

// DistinctRacks returns a sorted slice of all the distinct racks of the argument brokers.
func DistinctRacks(brokers []BrokerInfo) []string {
	rackSet := map[string]struct{}{}
	for _, broker := range brokers {
		rackSet[broker.Rack] = struct{}{}
	}

	racks := []string{}
	for rack := range rackSet {
		racks = append(racks, rack)
	}
	sort.Strings(racks)

	return racks
}

func sortBrokers(brokers []BrokerInfo) {
	sort.Slice(brokers, func(a, b int) bool {
		return brokers[a].ID < brokers[b].ID
	})
}

func sortTopics(topics []TopicInfo) {
	sort.Slice(topics, func(a, b int) bool {
		return topics[a].Name < topics[b].Name
	})
	for _, topic := range topics {
		sort.Slice(topic.Partitions, func(a, b int) bool {
			return topic.Partitions[a].ID < topic.Partitions[b].ID
		})
	}
}

type zkClusterID struct {
	Version string `json:"version"`
	ID      string `json:"id"`
}

type zkBrokerInfo struct {
	Endpoints []string `json:"endpoints"`
	Host      string   `json:"host"`
	Port      int32    `json:"port"`
	Rack      string   `json:"rack"`
	Version   int      `json:"version"`
}

type zkTopicInfo struct {
	Version    int              `json:"version"`
	Partitions map[string][]int `json:"partitions"`
}

type zkPartitionState struct {
	Leader          int   `json:"leader"`
	Version         int   `json:"version"`
	ISR             []int `json:"isr"`
	ControllerEpoch int   `json:"controller_epoch"`
	LeaderEpoch     int   `json:"leader_epoch"`
}
