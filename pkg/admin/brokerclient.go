package admin

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// BrokerAdminClientConfig contains the configuration used to construct a BrokerAdminClient.
type BrokerAdminClientConfig struct {
	ConnectorConfig
	ExpectedClusterID string
}

// BrokerAdminClient is a Client implementation that only uses broker APIs, without any
// zookeeper access.
type BrokerAdminClient struct {
	config BrokerAdminClientConfig
	client *kafka.Client
}

var _ Client = (*BrokerAdminClient)(nil)

// NewBrokerAdminClient constructs a new BrokerAdminClient instance. If an expected cluster id
// is set, it's checked against the metadata returned by the bootstrap broker.
func NewBrokerAdminClient(
	ctx context.Context,
	config BrokerAdminClientConfig,
) (*BrokerAdminClient, error) {
	connector, err := NewConnector(config.ConnectorConfig)
	if err != nil {
		return nil, err
	}

	client := &BrokerAdminClient{
		config: config,
		client: connector.KafkaClient,
	}

	if config.ExpectedClusterID != "" {
		log.Debug("Checking cluster ID")
		clusterID, err := client.GetClusterID(ctx)
		if err != nil {
			return nil, err
		}
		if clusterID != config.ExpectedClusterID {
			return nil, fmt.Errorf(
				"Cluster ID does not match: expected %s, got %s",
				config.ExpectedClusterID,
				clusterID,
			)
		}
	}

	return client, nil
}

// GetClusterID gets the ID of the cluster from the broker metadata.
func (c *BrokerAdminClient) GetClusterID(ctx context.Context) (string, error) {
	resp, err := c.client.Metadata(ctx, &kafka.MetadataRequest{Topics: []string{}})
	if err != nil {
		return "", err
	}
	return resp.ClusterID, nil
}

// GetBrokers gets the brokers returned in the cluster metadata.
func (c *BrokerAdminClient) GetBrokers(ctx context.Context) ([]BrokerInfo, error) {
	resp, err := c.client.Metadata(ctx, &kafka.MetadataRequest{Topics: []string{}})
	if err != nil {
		return nil, err
	}

	brokerInfos := []BrokerInfo{}
	for _, broker := range resp.Brokers {
		brokerInfos = append(
			brokerInfos,
			BrokerInfo{
				ID:   broker.ID,
				Host: broker.Host,
				Port: int32(broker.Port),
				Rack: broker.Rack,
			},
		)
	}
	sortBrokers(brokerInfos)

	return brokerInfos, nil
}

// GetTopics gets the partition assignments in the cluster metadata. Replicas on brokers that
// are down are still listed, since the metadata reports the full assignment.
func (c *BrokerAdminClient) GetTopics(
	ctx context.Context,
	names []string,
) ([]TopicInfo, error) {
	// A nil topic list requests all topics.
	var topicNames []string
	if len(names) > 0 {
		topicNames = names
	}

	resp, err := c.client.Metadata(ctx, &kafka.MetadataRequest{Topics: topicNames})
	if err != nil {
		return nil, err
	}

	topicInfos := []TopicInfo{}
	for _, topic := range resp.Topics {
		if topic.Error != nil {
			return nil, fmt.Errorf("Error getting metadata for topic %s: %w", topic.Name, topic.Error)
		}
		topicInfos = append(topicInfos, topicInfoFromMetadata(topic))
	}
	sortTopics(topicInfos)

	return topicInfos, nil
}

// Close closes the client. The underlying transport has no connections to release.
func (c *BrokerAdminClient) Close() error {
	return nil
}

func topicInfoFromMetadata(topic kafka.Topic) TopicInfo {
	partitionInfos := []PartitionInfo{}

	for _, partition := range topic.Partitions {
		leader := partition.Leader.ID
		if partition.Leader.Host == "" {
			leader = NoLeader
		}

		partitionInfos = append(
			partitionInfos,
			PartitionInfo{
				Topic:    topic.Name,
				ID:       partition.ID,
				Leader:   leader,
				Replicas: brokerIDs(partition.Replicas),
				ISR:      brokerIDs(partition.Isr),
			},
		)
	}

	return TopicInfo{
		Name:       topic.Name,
		Internal:   topic.Internal,
		Partitions: partitionInfos,
	}
}

func brokerIDs(brokers []kafka.Broker) []int {
	ids := []int{}
	for _, broker := range brokers {
		ids = append(ids, broker.ID)
	}
	return ids
}
