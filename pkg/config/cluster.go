package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/segmentio/goalctl/pkg/admin"
	"github.com/segmentio/goalctl/pkg/model"
	log "github.com/sirupsen/logrus"
)

// ClusterConfig stores how to reach a cluster and the load assumptions used when modeling it.
// Broker metadata doesn't report capacities or per-partition load, so those come from here.
type ClusterConfig struct {
	Meta ClusterMeta `json:"meta"`
	Spec ClusterSpec `json:"spec"`

	// RootDir is the directory of the config file; relative TLS paths are resolved against it.
	RootDir string `json:"-"`
}

// ClusterMeta contains (mostly immutable) metadata about the cluster. Inspired
// by the meta fields in Kubernetes objects.
type ClusterMeta struct {
	Name        string `json:"name"`
	Region      string `json:"region"`
	Environment string `json:"environment"`
	Description string `json:"description"`
}

// ClusterSpec contains the details necessary to communicate with and model a kafka cluster.
type ClusterSpec struct {
	// BootstrapAddrs is a list of one or more broker bootstrap addresses. These can use IPs
	// or DNS names.
	BootstrapAddrs []string `json:"bootstrapAddrs"`

	// ZKAddrs is a list of one or more zookeeper addresses. These can use IPs
	// or DNS names.
	ZKAddrs []string `json:"zkAddrs"`

	// ZKPrefix is the prefix under which all zk nodes for the cluster are stored. If blank,
	// these are assumed to be under the zk root.
	ZKPrefix string `json:"zkPrefix"`

	// ClusterID is the id of the cluster. If set, it's used to validate that the cluster
	// we're communicating with is the right one.
	ClusterID string `json:"clusterID"`

	// UseBrokerAdmin indicates whether the snapshot is read from the broker metadata (if true)
	// or from zookeeper (if false).
	UseBrokerAdmin bool `json:"useBrokerAdmin"`

	// ConnTimeout is the broker connection timeout, as a duration string.
	ConnTimeout string `json:"connTimeout"`

	TLS  TLSConfig  `json:"tls"`
	SASL SASLConfig `json:"sasl"`

	// DefaultCapacity is the capacity of every broker without an override.
	DefaultCapacity LoadConfig `json:"defaultCapacity"`

	// BrokerCapacities overrides the capacity of individual brokers, keyed by broker id.
	BrokerCapacities map[string]LoadConfig `json:"brokerCapacities"`

	// NewBrokerIDs are brokers that were just added and should receive load.
	NewBrokerIDs []int `json:"newBrokerIDs"`

	// DefaultPartitionLoad is the leader load of every partition without a topic override.
	DefaultPartitionLoad LoadConfig `json:"defaultPartitionLoad"`

	// TopicLoads overrides the per-partition leader load of individual topics.
	TopicLoads map[string]LoadConfig `json:"topicLoads"`
}

// TLSConfig stores the TLS-related configuration for a cluster.
type TLSConfig struct {
	Enabled    bool   `json:"enabled"`
	CACertPath string `json:"caCertPath"`
	CertPath   string `json:"certPath"`
	KeyPath    string `json:"keyPath"`
	ServerName string `json:"serverName"`
	SkipVerify bool   `json:"skipVerify"`
}

// SASLConfig stores the SASL-related configuration for a cluster.
type SASLConfig struct {
	Enabled   bool   `json:"enabled"`
	Mechanism string `json:"mechanism"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// Validate evaluates whether the cluster config is valid.
func (c ClusterConfig) Validate() error {
	var err error

	if c.Meta.Name == "" {
		err = multierror.Append(err, errors.New("Name must be set"))
	}
	if c.Meta.Region == "" {
		err = multierror.Append(err, errors.New("Region must be set"))
	}
	if c.Meta.Environment == "" {
		err = multierror.Append(err, errors.New("Environment must be set"))
	}

	if c.Spec.UseBrokerAdmin && len(c.Spec.BootstrapAddrs) == 0 {
		err = multierror.Append(
			err,
			errors.New("At least one bootstrap broker address must be set"),
		)
	}
	if !c.Spec.UseBrokerAdmin && len(c.Spec.ZKAddrs) == 0 {
		err = multierror.Append(err, errors.New("At least one zookeeper address must be set"))
	}
	if !c.Spec.UseBrokerAdmin && (c.Spec.TLS.Enabled || c.Spec.SASL.Enabled) {
		err = multierror.Append(
			err,
			errors.New("TLS and SASL are only supported with the broker admin"),
		)
	}

	if _, parseErr := c.GetConnTimeout(); parseErr != nil {
		err = multierror.Append(err, parseErr)
	}
	if c.Spec.SASL.Enabled {
		if _, saslErr := admin.SASLNameToMechanism(c.Spec.SASL.Mechanism); saslErr != nil {
			err = multierror.Append(err, saslErr)
		}
	}

	if capacityErr := c.Spec.DefaultCapacity.validate("default capacity"); capacityErr != nil {
		err = multierror.Append(err, capacityErr)
	}
	for id, capacity := range c.Spec.BrokerCapacities {
		if _, parseErr := strconv.Atoi(id); parseErr != nil {
			err = multierror.Append(err, fmt.Errorf("Broker capacity key %s is not a broker id", id))
		}
		if capacityErr := capacity.validate("capacity of broker " + id); capacityErr != nil {
			err = multierror.Append(err, capacityErr)
		}
	}
	if loadErr := c.Spec.DefaultPartitionLoad.validate("default partition load"); loadErr != nil {
		err = multierror.Append(err, loadErr)
	}
	for topic, load := range c.Spec.TopicLoads {
		if loadErr := load.validate("load of topic " + topic); loadErr != nil {
			err = multierror.Append(err, loadErr)
		}
	}

	return err
}

// GetConnTimeout parses the connection timeout. An unset timeout returns 0, which makes the
// connector use its default.
func (c ClusterConfig) GetConnTimeout() (time.Duration, error) {
	if c.Spec.ConnTimeout == "" {
		return 0, nil
	}

	timeout, err := time.ParseDuration(c.Spec.ConnTimeout)
	if err != nil {
		return 0, fmt.Errorf("Error parsing connection timeout: %w", err)
	}
	return timeout, nil
}

// NewAdminClient returns a new read-only admin client using the parameters in the current
// cluster config.
func (c ClusterConfig) NewAdminClient(ctx context.Context) (admin.Client, error) {
	if !c.Spec.UseBrokerAdmin {
		return admin.NewZKAdminClient(
			ctx,
			admin.ZKAdminClientConfig{
				ZKAddrs:           c.Spec.ZKAddrs,
				ZKPrefix:          c.Spec.ZKPrefix,
				ExpectedClusterID: c.Spec.ClusterID,
			},
		)
	}

	connectorConfig, err := c.connectorConfig()
	if err != nil {
		return nil, err
	}

	return admin.NewBrokerAdminClient(
		ctx,
		admin.BrokerAdminClientConfig{
			ConnectorConfig:   connectorConfig,
			ExpectedClusterID: c.Spec.ClusterID,
		},
	)
}

func (c ClusterConfig) connectorConfig() (admin.ConnectorConfig, error) {
	timeout, err := c.GetConnTimeout()
	if err != nil {
		return admin.ConnectorConfig{}, err
	}

	var mechanism admin.SASLMechanism
	if c.Spec.SASL.Enabled {
		mechanism, err = admin.SASLNameToMechanism(c.Spec.SASL.Mechanism)
		if err != nil {
			return admin.ConnectorConfig{}, err
		}
	}

	return admin.ConnectorConfig{
		BrokerAddr:  c.Spec.BootstrapAddrs[0],
		ConnTimeout: timeout,
		TLS: admin.TLSConfig{
			Enabled:    c.Spec.TLS.Enabled,
			CACertPath: c.absPath(c.Spec.TLS.CACertPath),
			CertPath:   c.absPath(c.Spec.TLS.CertPath),
			KeyPath:    c.absPath(c.Spec.TLS.KeyPath),
			ServerName: c.Spec.TLS.ServerName,
			SkipVerify: c.Spec.TLS.SkipVerify,
		},
		SASL: admin.SASLConfig{
			Enabled:   c.Spec.SASL.Enabled,
			Mechanism: mechanism,
			Username:  c.Spec.SASL.Username,
			Password:  c.Spec.SASL.Password,
		},
	}, nil
}

func (c ClusterConfig) absPath(path string) string {
	if path == "" || filepath.IsAbs(path) || c.RootDir == "" {
		return path
	}
	return filepath.Join(c.RootDir, path)
}

// BrokerCapacity returns the capacity of the argument broker.
func (c ClusterConfig) BrokerCapacity(brokerID int) LoadConfig {
	if capacity, ok := c.Spec.BrokerCapacities[strconv.Itoa(brokerID)]; ok {
		return capacity
	}
	return c.Spec.DefaultCapacity
}

// TopicLoad returns the per-partition leader load of the argument topic.
func (c ClusterConfig) TopicLoad(topic string) LoadConfig {
	if load, ok := c.Spec.TopicLoads[topic]; ok {
		return load
	}
	return c.Spec.DefaultPartitionLoad
}

// SnapshotFromState combines the live state of a cluster with the load assumptions in this
// config. Brokers that host replicas but aren't registered become dead brokers, and
// registered brokers listed in NewBrokerIDs become new brokers.
func (c ClusterConfig) SnapshotFromState(state admin.ClusterState) SnapshotConfig {
	newBrokers := map[int]struct{}{}
	for _, id := range c.Spec.NewBrokerIDs {
		newBrokers[id] = struct{}{}
	}

	snapshot := SnapshotConfig{
		Meta: ResourceMeta{
			Name:    fmt.Sprintf("%s-%s", c.Meta.Name, state.ClusterID),
			Cluster: c.Meta.Name,
			Labels: map[string]string{
				"clusterID": state.ClusterID,
			},
		},
	}

	for _, broker := range state.Brokers {
		brokerState := model.BrokerStateAlive
		if _, ok := newBrokers[broker.ID]; ok {
			brokerState = model.BrokerStateNew
		}
		capacity := c.BrokerCapacity(broker.ID)

		snapshot.Spec.Brokers = append(
			snapshot.Spec.Brokers,
			SnapshotBroker{
				ID:       broker.ID,
				Rack:     broker.Rack,
				Host:     broker.Addr(),
				State:    string(brokerState),
				Capacity: &capacity,
			},
		)
	}
	for _, id := range state.MissingBrokerIDs() {
		snapshot.Spec.Brokers = append(
			snapshot.Spec.Brokers,
			SnapshotBroker{
				ID:    id,
				State: string(model.BrokerStateDead),
			},
		)
	}
	sort.Slice(snapshot.Spec.Brokers, func(a, b int) bool {
		return snapshot.Spec.Brokers[a].ID < snapshot.Spec.Brokers[b].ID
	})

	for _, topic := range state.Topics {
		load := c.TopicLoad(topic.Name)

		for _, partition := range topic.Partitions {
			snapshotPartition := SnapshotPartition{
				Topic:     topic.Name,
				Partition: partition.ID,
				Replicas:  partition.Replicas,
				Load:      load,
			}
			if !partition.IsOffline() {
				leader := partition.Leader
				snapshotPartition.Leader = &leader
			} else {
				log.Debugf("Partition %s-%d is offline", topic.Name, partition.ID)
			}
			snapshot.Spec.Partitions = append(snapshot.Spec.Partitions, snapshotPartition)
		}
	}

	return snapshot
}

// LoadConfig is a per-resource load or capacity. CPU is a fraction of a whole broker, network
// rates are in KB/s, and disk is in MB.
type LoadConfig struct {
	CPU             float64 `json:"cpu"`
	NetworkInbound  float64 `json:"networkInbound"`
	NetworkOutbound float64 `json:"networkOutbound"`
	DiskMB          float64 `json:"diskMB"`
}

// ToLoad converts the config into a model load.
func (l LoadConfig) ToLoad() model.Load {
	return model.NewLoad(l.CPU, l.NetworkInbound, l.NetworkOutbound, l.DiskMB)
}

// LoadConfigFromLoad converts a model load into a config.
func LoadConfigFromLoad(load model.Load) LoadConfig {
	return LoadConfig{
		CPU:             load[model.ResourceCPU],
		NetworkInbound:  load[model.ResourceNetworkInbound],
		NetworkOutbound: load[model.ResourceNetworkOutbound],
		DiskMB:          load[model.ResourceDisk],
	}
}

func (l LoadConfig) validate(name string) error {
	if l.CPU < 0 || l.NetworkInbound < 0 || l.NetworkOutbound < 0 || l.DiskMB < 0 {
		return fmt.Errorf("Values of %s must be non-negative", name)
	}
	return nil
}
