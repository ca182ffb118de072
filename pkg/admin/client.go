package admin

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Client is a read-only source of cluster state. Implementations either talk to the brokers
// directly or read the zookeeper registry.
type Client interface {
	// GetClusterID gets the ID of the cluster.
	GetClusterID(ctx context.Context) (string, error)

	// GetBrokers gets information about the live brokers of the cluster, sorted by id.
	GetBrokers(ctx context.Context) ([]BrokerInfo, error)

	// GetTopics gets the partition assignments of the argument topics, or of all topics if
	// names is empty. Topics are sorted by name and partitions by id.
	GetTopics(ctx context.Context, names []string) ([]TopicInfo, error)

	// Close closes the client.
	Close() error
}

// GetClusterState fetches the cluster id, brokers, and topics from the argument client.
func GetClusterState(
	ctx context.Context,
	client Client,
	topicNames []string,
) (ClusterState, error) {
	state := ClusterState{}
	var mutex sync.Mutex

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		clusterID, err := client.GetClusterID(ctx)
		if err != nil {
			return fmt.Errorf("Error getting cluster id: %w", err)
		}
		mutex.Lock()
		state.ClusterID = clusterID
		mutex.Unlock()
		return nil
	})
	eg.Go(func() error {
		brokers, err := client.GetBrokers(ctx)
		if err != nil {
			return fmt.Errorf("Error getting brokers: %w", err)
		}
		mutex.Lock()
		state.Brokers = brokers
		mutex.Unlock()
		return nil
	})
	eg.Go(func() error {
		topics, err := client.GetTopics(ctx, topicNames)
		if err != nil {
			return fmt.Errorf("Error getting topics: %w", err)
		}
		mutex.Lock()
		state.Topics = topics
		mutex.Unlock()
		return nil
	})

	if err := eg.Wait(); err != nil {
		return ClusterState{}, err
	}

	log.Debugf(
		"Got state of cluster %s: %d brokers, %d topics, %d partitions",
		state.ClusterID,
		len(state.Brokers),
		len(state.Topics),
		state.NumPartitions(),
	)
	if missing := state.MissingBrokerIDs(); len(missing) > 0 {
		log.Warnf("Brokers %+v host replicas but aren't registered; treating them as dead", missing)
	}

	return state, nil
}
