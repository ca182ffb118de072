package model

import (
	"fmt"
	"sort"
	"strconv"
)

// BrokerState is the liveness of a broker in the model.
type BrokerState string

const (
	// BrokerStateAlive is a broker that's serving and was already part of the cluster.
	BrokerStateAlive BrokerState = "alive"

	// BrokerStateDead is a broker that's down; its replicas must be moved elsewhere.
	BrokerStateDead BrokerState = "dead"

	// BrokerStateNew is an alive broker that was just added and holds no load yet.
	BrokerStateNew BrokerState = "new"
)

// ParseBrokerState converts a config string into a BrokerState. An empty string is alive.
func ParseBrokerState(state string) (BrokerState, error) {
	switch BrokerState(state) {
	case "", BrokerStateAlive:
		return BrokerStateAlive, nil
	case BrokerStateDead:
		return BrokerStateDead, nil
	case BrokerStateNew:
		return BrokerStateNew, nil
	default:
		return "", fmt.Errorf("Unrecognized broker state: %s", state)
	}
}

// BrokerSpec contains the static details used to add a broker to a ClusterModel.
type BrokerSpec struct {
	ID       int
	Rack     string
	Host     string
	State    BrokerState
	Capacity Load
}

// Broker is a node in the cluster model. The replicas it hosts are stored as ids into the
// owning ClusterModel; only the model mutates them.
type Broker struct {
	id       int
	rack     string
	host     string
	state    BrokerState
	capacity Load

	replicas   map[ReplicaID]struct{}
	load       Load
	numLeaders int
}

func newBroker(spec BrokerSpec) *Broker {
	rack := spec.Rack
	if rack == "" {
		// Brokers without rack information are treated as their own rack
		rack = strconv.Itoa(spec.ID)
	}
	state := spec.State
	if state == "" {
		state = BrokerStateAlive
	}

	return &Broker{
		id:       spec.ID,
		rack:     rack,
		host:     spec.Host,
		state:    state,
		capacity: spec.Capacity.Clamp(),
		replicas: map[ReplicaID]struct{}{},
	}
}

// ID returns the broker id.
func (b *Broker) ID() int {
	return b.id
}

// Rack returns the broker rack.
func (b *Broker) Rack() string {
	return b.rack
}

// Host returns the broker host, if known.
func (b *Broker) Host() string {
	return b.host
}

// State returns the broker state.
func (b *Broker) State() BrokerState {
	return b.state
}

// IsAlive returns whether the broker can host replicas.
func (b *Broker) IsAlive() bool {
	return b.state != BrokerStateDead
}

// IsNew returns whether the broker was freshly added to the cluster.
func (b *Broker) IsNew() bool {
	return b.state == BrokerStateNew
}

// Capacity returns the static per-resource capacity of the broker.
func (b *Broker) Capacity() Load {
	return b.capacity
}

// CapacityFor returns the capacity of the broker for a single resource.
func (b *Broker) CapacityFor(resource Resource) float64 {
	return b.capacity[resource]
}

// Load returns the sum of the loads of all replicas hosted on the broker.
func (b *Broker) Load() Load {
	return b.load
}

// Utilization returns the ratio of load to capacity for the argument resource. A broker
// without capacity is fully utilized as soon as it carries any load.
func (b *Broker) Utilization(resource Resource) float64 {
	capacity := b.capacity[resource]
	if capacity <= 0 {
		if b.load[resource] > 0 {
			return 1.0
		}
		return 0.0
	}
	return b.load[resource] / capacity
}

// NumReplicas returns the number of replicas hosted on the broker.
func (b *Broker) NumReplicas() int {
	return len(b.replicas)
}

// NumLeaders returns the number of leader replicas hosted on the broker.
func (b *Broker) NumLeaders() int {
	return b.numLeaders
}

// ReplicaIDs returns the ids of the hosted replicas in ascending order.
func (b *Broker) ReplicaIDs() []ReplicaID {
	ids := make([]ReplicaID, 0, len(b.replicas))
	for id := range b.replicas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, c int) bool {
		return ids[a] < ids[c]
	})
	return ids
}

// HostsReplica returns whether the argument replica is on the broker.
func (b *Broker) HostsReplica(id ReplicaID) bool {
	_, ok := b.replicas[id]
	return ok
}

// String is used in log messages.
func (b *Broker) String() string {
	return fmt.Sprintf("broker %d (rack: %s, state: %s)", b.id, b.rack, b.state)
}

func (b *Broker) clone() *Broker {
	copied := *b
	copied.replicas = make(map[ReplicaID]struct{}, len(b.replicas))
	for id := range b.replicas {
		copied.replicas[id] = struct{}{}
	}
	return &copied
}
