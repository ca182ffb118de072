package config

import (
	"errors"
	"fmt"

	"github.com/ghodss/yaml"
	"github.com/hashicorp/go-multierror"
	"github.com/segmentio/goalctl/pkg/model"
)

// SnapshotConfig is a point-in-time description of a cluster's brokers and partitions,
// including loads. It can be written out from a live cluster and optimized offline.
type SnapshotConfig struct {
	Meta ResourceMeta `json:"meta"`
	Spec SnapshotSpec `json:"spec"`
}

// SnapshotSpec holds the brokers and partitions of a snapshot.
type SnapshotSpec struct {
	Brokers    []SnapshotBroker    `json:"brokers"`
	Partitions []SnapshotPartition `json:"partitions"`
}

// SnapshotBroker is a single broker. Alive and new brokers must have a capacity.
type SnapshotBroker struct {
	ID       int         `json:"id"`
	Rack     string      `json:"rack,omitempty"`
	Host     string      `json:"host,omitempty"`
	State    string      `json:"state,omitempty"`
	Capacity *LoadConfig `json:"capacity,omitempty"`
}

// SnapshotPartition is a single topic partition. Replicas are in assignment order. If Leader
// is unset, the first replica leads.
type SnapshotPartition struct {
	Topic     string `json:"topic"`
	Partition int    `json:"partition"`
	Replicas  []int  `json:"replicas"`
	Leader    *int   `json:"leader,omitempty"`

	// Load is the load of the leader replica.
	Load LoadConfig `json:"load"`

	// FollowerLoad is the load of each follower replica. If unset, it's derived from the
	// leader load.
	FollowerLoad *LoadConfig `json:"followerLoad,omitempty"`
}

// LeaderID returns the broker id of the partition leader.
func (p SnapshotPartition) LeaderID() int {
	if p.Leader != nil {
		return *p.Leader
	}
	if len(p.Replicas) > 0 {
		return p.Replicas[0]
	}
	return -1
}

// Validate evaluates whether the snapshot is consistent. All problems are returned together.
func (s SnapshotConfig) Validate() error {
	var err error

	if s.Meta.Name == "" {
		err = multierror.Append(err, errors.New("Name must be set"))
	}
	if len(s.Spec.Brokers) == 0 {
		err = multierror.Append(err, errors.New("At least one broker must be set"))
	}

	brokerIDs := map[int]struct{}{}
	for _, broker := range s.Spec.Brokers {
		if _, ok := brokerIDs[broker.ID]; ok {
			err = multierror.Append(err, fmt.Errorf("Broker %d is listed twice", broker.ID))
			continue
		}
		brokerIDs[broker.ID] = struct{}{}

		state, stateErr := model.ParseBrokerState(broker.State)
		if stateErr != nil {
			err = multierror.Append(err, fmt.Errorf("Broker %d: %w", broker.ID, stateErr))
			continue
		}
		if broker.Capacity == nil {
			if state != model.BrokerStateDead {
				err = multierror.Append(err, fmt.Errorf("Broker %d must have a capacity", broker.ID))
			}
			continue
		}
		if capacityErr := broker.Capacity.validate(
			fmt.Sprintf("capacity of broker %d", broker.ID),
		); capacityErr != nil {
			err = multierror.Append(err, capacityErr)
		}
	}

	partitions := map[model.TopicPartition]struct{}{}
	for _, partition := range s.Spec.Partitions {
		tp := model.TopicPartition{Topic: partition.Topic, Partition: partition.Partition}

		if partition.Topic == "" {
			err = multierror.Append(err, fmt.Errorf("Partition %d has no topic", partition.Partition))
		}
		if _, ok := partitions[tp]; ok {
			err = multierror.Append(err, fmt.Errorf("Partition %s is listed twice", tp))
			continue
		}
		partitions[tp] = struct{}{}

		if len(partition.Replicas) == 0 {
			err = multierror.Append(err, fmt.Errorf("Partition %s has no replicas", tp))
			continue
		}

		replicaSet := map[int]struct{}{}
		for _, replica := range partition.Replicas {
			if _, ok := brokerIDs[replica]; !ok {
				err = multierror.Append(
					err,
					fmt.Errorf("Partition %s has a replica on unknown broker %d", tp, replica),
				)
			}
			if _, ok := replicaSet[replica]; ok {
				err = multierror.Append(
					err,
					fmt.Errorf("Partition %s has two replicas on broker %d", tp, replica),
				)
			}
			replicaSet[replica] = struct{}{}
		}
		if _, ok := replicaSet[partition.LeaderID()]; !ok {
			err = multierror.Append(
				err,
				fmt.Errorf("Leader %d of partition %s is not a replica", partition.LeaderID(), tp),
			)
		}

		if loadErr := partition.Load.validate(fmt.Sprintf("load of %s", tp)); loadErr != nil {
			err = multierror.Append(err, loadErr)
		}
		if partition.FollowerLoad != nil {
			if loadErr := partition.FollowerLoad.validate(
				fmt.Sprintf("follower load of %s", tp),
			); loadErr != nil {
				err = multierror.Append(err, loadErr)
			}
		}
	}

	return err
}

// ToClusterModel validates the snapshot and builds a cluster model from it.
func (s SnapshotConfig) ToClusterModel() (*model.ClusterModel, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("Invalid snapshot: %w", err)
	}

	cluster := model.NewClusterModel()

	for _, broker := range s.Spec.Brokers {
		state, _ := model.ParseBrokerState(broker.State)
		spec := model.BrokerSpec{
			ID:    broker.ID,
			Rack:  broker.Rack,
			Host:  broker.Host,
			State: state,
		}
		if broker.Capacity != nil {
			spec.Capacity = broker.Capacity.ToLoad()
		}
		if err := cluster.AddBroker(spec); err != nil {
			return nil, err
		}
	}

	for _, partition := range s.Spec.Partitions {
		leaderID := partition.LeaderID()
		leaderLoad := partition.Load.ToLoad()
		followerLoad := model.FollowerLoad(leaderLoad)
		if partition.FollowerLoad != nil {
			followerLoad = partition.FollowerLoad.ToLoad()
		}

		for _, brokerID := range partition.Replicas {
			load := followerLoad
			if brokerID == leaderID {
				load = leaderLoad
			}

			if _, err := cluster.AddReplica(
				model.ReplicaSpec{
					Topic:     partition.Topic,
					Partition: partition.Partition,
					BrokerID:  brokerID,
					Leader:    brokerID == leaderID,
					Load:      load,
				},
			); err != nil {
				return nil, err
			}
		}
	}

	if err := cluster.Sanity(); err != nil {
		return nil, fmt.Errorf("Snapshot model is inconsistent: %w", err)
	}
	return cluster, nil
}

// ToYAML returns the YAML encoding of the snapshot, loadable with LoadSnapshotBytes.
func (s SnapshotConfig) ToYAML() ([]byte, error) {
	return yaml.Marshal(s)
}
