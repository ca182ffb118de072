package admin

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	szk "github.com/samuel/go-zookeeper/zk"
	"github.com/segmentio/goalctl/pkg/zk"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// Various paths in zookeeper
	brokersPath   = "/brokers/ids"
	topicsPath    = "/brokers/topics"
	clusterIDPath = "/cluster/id"

	// The maximum number of zookeeper reads in flight
	maxPoolSize = 20

	defaultZKPoolSize = 10
)

// ErrTopicDoesNotExist is returned when a requested topic isn't registered in zookeeper.
var ErrTopicDoesNotExist = errors.New("Topic does not exist")

// ZKAdminClientConfig contains all of the parameters necessary to create a ZKAdminClient.
type ZKAdminClientConfig struct {
	ZKAddrs           []string
	ZKPrefix          string
	ExpectedClusterID string

	// PoolSize is the number of zookeeper connections; defaults to 10.
	PoolSize int
}

// ZKAdminClient is a Client implementation that reads the broker registry and partition
// assignments from zookeeper.
type ZKAdminClient struct {
	zkClient zk.Client
	zkPrefix string
}

var _ Client = (*ZKAdminClient)(nil)

// NewZKAdminClient creates and returns a new ZKAdminClient instance.
func NewZKAdminClient(
	ctx context.Context,
	config ZKAdminClientConfig,
) (*ZKAdminClient, error) {
	poolSize := config.PoolSize
	if poolSize <= 0 {
		poolSize = defaultZKPoolSize
	}

	zkClient, err := zk.NewPooledClient(
		config.ZKAddrs,
		time.Minute,
		&zk.DebugLogger{},
		poolSize,
	)
	if err != nil {
		return nil, err
	}

	client := newZKAdminClient(zkClient, config.ZKPrefix)

	if config.ExpectedClusterID != "" {
		log.Debug("Checking cluster ID against version in cluster")
		clusterID, err := client.GetClusterID(ctx)
		if err != nil {
			client.Close()
			return nil, err
		}
		if clusterID != config.ExpectedClusterID {
			client.Close()
			return nil, fmt.Errorf(
				"ID in cluster (%s) does not match expected one (%s)",
				clusterID,
				config.ExpectedClusterID,
			)
		}
	}

	return client, nil
}

func newZKAdminClient(zkClient zk.Client, zkPrefix string) *ZKAdminClient {
	return &ZKAdminClient{
		zkClient: zkClient,
		zkPrefix: normalizePrefix(zkPrefix),
	}
}

func normalizePrefix(zkPrefix string) string {
	if zkPrefix == "" {
		return ""
	}
	return "/" + strings.Trim(zkPrefix, "/")
}

// GetClusterID gets the cluster id from zookeeper.
func (c *ZKAdminClient) GetClusterID(ctx context.Context) (string, error) {
	zkClusterID := zkClusterID{}
	if _, err := c.zkClient.GetJSON(ctx, c.zNode(clusterIDPath), &zkClusterID); err != nil {
		return "", fmt.Errorf("Error getting cluster id: %w", err)
	}
	return zkClusterID.ID, nil
}

// GetBrokers gets the brokers registered in zookeeper. Only live brokers are registered.
func (c *ZKAdminClient) GetBrokers(ctx context.Context) ([]BrokerInfo, error) {
	brokerIDs, err := c.getBrokerIDs(ctx)
	if err != nil {
		return nil, err
	}

	brokerInfos := []BrokerInfo{}
	var mutex sync.Mutex

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxPoolSize)

	for _, brokerID := range brokerIDs {
		brokerID := brokerID
		eg.Go(func() error {
			zkBrokerInfo := zkBrokerInfo{}
			_, err := c.zkClient.GetJSON(
				ctx,
				c.zNode(brokersPath, strconv.Itoa(brokerID)),
				&zkBrokerInfo,
			)
			if errors.Is(err, szk.ErrNoNode) {
				// Deregistered since the ids were listed
				log.Debugf("Broker %d disappeared while being read", brokerID)
				return nil
			}
			if err != nil {
				return fmt.Errorf("Error getting broker %d: %w", brokerID, err)
			}

			mutex.Lock()
			defer mutex.Unlock()
			brokerInfos = append(
				brokerInfos,
				BrokerInfo{
					ID:   brokerID,
					Host: zkBrokerInfo.Host,
					Port: zkBrokerInfo.Port,
					Rack: zkBrokerInfo.Rack,
				},
			)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	sortBrokers(brokerInfos)

	return brokerInfos, nil
}

func (c *ZKAdminClient) getBrokerIDs(ctx context.Context) ([]int, error) {
	zPath := c.zNode(brokersPath)

	brokerIDStrs, _, err := c.zkClient.Children(ctx, zPath)
	if err != nil {
		return nil, fmt.Errorf("Error getting children at path %s: %w", zPath, err)
	}

	return parseIDs(brokerIDStrs)
}

// GetTopics gets the partition assignments of topics from zookeeper, including the current
// leaders and ISRs of each partition.
func (c *ZKAdminClient) GetTopics(
	ctx context.Context,
	names []string,
) ([]TopicInfo, error) {
	topicNames := names

	if len(topicNames) == 0 {
		zPath := c.zNode(topicsPath)
		var err error
		topicNames, _, err = c.zkClient.Children(ctx, zPath)
		if err != nil {
			return nil, fmt.Errorf("Error getting children at path %s: %w", zPath, err)
		}
	}

	log.Debugf("Looking up %d topics", len(topicNames))

	topicInfos := make([]TopicInfo, len(topicNames))

	// Partition states are read in parallel too, so the topic fan-out only bounds the
	// number of topics in flight.
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxPoolSize)

	for i, name := range topicNames {
		i, name := i, name
		eg.Go(func() error {
			topicInfo, err := c.getTopic(ctx, name)
			if err != nil {
				return err
			}
			topicInfos[i] = topicInfo
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	sortTopics(topicInfos)

	return topicInfos, nil
}

// Close closes the underlying zookeeper connections.
func (c *ZKAdminClient) Close() error {
	return c.zkClient.Close()
}

func (c *ZKAdminClient) getTopic(ctx context.Context, name string) (TopicInfo, error) {
	log.Debugf("Getting info for topic %s", name)

	zkTopicInfo := zkTopicInfo{}
	_, err := c.zkClient.GetJSON(ctx, c.zNode(topicsPath, name), &zkTopicInfo)
	if errors.Is(err, szk.ErrNoNode) {
		return TopicInfo{}, fmt.Errorf("%w: %s", ErrTopicDoesNotExist, name)
	}
	if err != nil {
		return TopicInfo{}, fmt.Errorf("Error getting topic %s: %w", name, err)
	}

	partitionIDStrs := []string{}
	for idStr := range zkTopicInfo.Partitions {
		partitionIDStrs = append(partitionIDStrs, idStr)
	}
	partitionIDs, err := parseIDs(partitionIDStrs)
	if err != nil {
		return TopicInfo{}, fmt.Errorf("Bad partition id in topic %s: %w", name, err)
	}

	topicInfo := TopicInfo{
		Name:       name,
		Internal:   strings.HasPrefix(name, "__"),
		Partitions: make([]PartitionInfo, len(partitionIDs)),
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxPoolSize)

	for i, partitionID := range partitionIDs {
		i, partitionID := i, partitionID
		replicas := zkTopicInfo.Partitions[strconv.Itoa(partitionID)]

		eg.Go(func() error {
			partitionInfo, err := c.getPartition(ctx, name, partitionID, replicas)
			if err != nil {
				return err
			}
			topicInfo.Partitions[i] = partitionInfo
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return TopicInfo{}, err
	}

	return topicInfo, nil
}

func (c *ZKAdminClient) getPartition(
	ctx context.Context,
	topic string,
	id int,
	replicas []int,
) (PartitionInfo, error) {
	partitionInfo := PartitionInfo{
		Topic:    topic,
		ID:       id,
		Leader:   NoLeader,
		Replicas: replicas,
		ISR:      []int{},
	}

	zkPartitionState := zkPartitionState{}
	_, err := c.zkClient.GetJSON(
		ctx,
		c.zNode(topicsPath, topic, "partitions", strconv.Itoa(id), "state"),
		&zkPartitionState,
	)
	if errors.Is(err, szk.ErrNoNode) {
		// The controller hasn't elected a leader yet
		return partitionInfo, nil
	}
	if err != nil {
		return partitionInfo, fmt.Errorf("Error getting state of %s-%d: %w", topic, id, err)
	}

	partitionInfo.Leader = zkPartitionState.Leader
	if zkPartitionState.ISR != nil {
		partitionInfo.ISR = zkPartitionState.ISR
	}

	return partitionInfo, nil
}

func (c *ZKAdminClient) zNode(elements ...string) string {
	return path.Join(append([]string{"/", c.zkPrefix}, elements...)...)
}

func parseIDs(idStrs []string) ([]int, error) {
	ids := []int{}
	for _, idStr := range idStrs {
		id, err := strconv.ParseInt(idStr, 10, 32)
		if err != nil {
			return nil, err
		}
		ids = append(ids, int(id))
	}
	return ids, nil
}
