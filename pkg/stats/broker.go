package stats

import (
	"github.com/segmentio/goalctl/pkg/model"
)

// BrokerStats are the stats of a single broker.
type BrokerStats struct {
	BrokerID int
	Host     string
	Rack     string
	State    model.BrokerState
	Basic    BasicStats
}

// ClusterBrokerStats are the stats of every broker in a cluster plus their total.
type ClusterBrokerStats struct {
	Brokers []BrokerStats
	Total   BasicStats
}

// FromCluster computes the broker stats of a model. Dead brokers are included but don't count
// towards the total capacity.
func FromCluster(cluster *model.ClusterModel) ClusterBrokerStats {
	clusterStats := ClusterBrokerStats{
		Brokers: []BrokerStats{},
	}

	for _, broker := range cluster.Brokers() {
		var leaderNwIn, followerNwIn float64
		for _, replica := range cluster.BrokerReplicas(broker.ID()) {
			if replica.IsLeader() {
				leaderNwIn += replica.Load()[model.ResourceNetworkInbound]
			} else {
				followerNwIn += replica.Load()[model.ResourceNetworkInbound]
			}
		}

		var capacity *model.Load
		if broker.IsAlive() {
			brokerCapacity := broker.Capacity()
			capacity = &brokerCapacity
		}

		load := broker.Load()
		basic := NewBasicStats(
			load[model.ResourceDisk],
			broker.Utilization(model.ResourceCPU),
			leaderNwIn,
			followerNwIn,
			load[model.ResourceNetworkOutbound],
			cluster.PotentialNetworkOut(broker.ID()),
			broker.NumReplicas(),
			broker.NumLeaders(),
			capacity,
		)

		clusterStats.Brokers = append(
			clusterStats.Brokers,
			BrokerStats{
				BrokerID: broker.ID(),
				Host:     broker.Host(),
				Rack:     broker.Rack(),
				State:    broker.State(),
				Basic:    basic,
			},
		)
		clusterStats.Total = clusterStats.Total.Add(basic)
	}

	return clusterStats
}

// JSONStructure returns the stats as a map that can be encoded into JSON or YAML.
func (c ClusterBrokerStats) JSONStructure() map[string]interface{} {
	brokers := []map[string]interface{}{}
	for _, broker := range c.Brokers {
		entry := broker.Basic.JSONStructure()
		entry["Broker"] = broker.BrokerID
		entry["Host"] = broker.Host
		entry["Rack"] = broker.Rack
		entry["BrokerState"] = string(broker.State)
		brokers = append(brokers, entry)
	}

	return map[string]interface{}{
		"brokers": brokers,
		"total":   c.Total.JSONStructure(),
	}
}
