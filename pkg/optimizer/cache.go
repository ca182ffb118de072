package optimizer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/jellydator/ttlcache/v2"
	"github.com/segmentio/goalctl/pkg/goals"
	"github.com/segmentio/goalctl/pkg/model"
	log "github.com/sirupsen/logrus"
)

// DefaultProposalCacheTTL is the cache lifetime used when none is configured.
const DefaultProposalCacheTTL = 5 * time.Minute

// ProposalCache stores optimization results by cluster fingerprint. Entries expire after the
// configured TTL regardless of how often they're read.
type ProposalCache struct {
	cache *ttlcache.Cache
}

// NewProposalCache returns a cache whose entries live for the argument ttl.
func NewProposalCache(ttl time.Duration) (*ProposalCache, error) {
	if ttl <= 0 {
		ttl = DefaultProposalCacheTTL
	}

	cache := ttlcache.NewCache()
	if err := cache.SetTTL(ttl); err != nil {
		return nil, err
	}
	cache.SkipTTLExtensionOnHit(true)

	return &ProposalCache{cache: cache}, nil
}

// Get returns the cached result for the fingerprint, if there is one.
func (p *ProposalCache) Get(fingerprint string) (*OptimizerResult, bool) {
	value, err := p.cache.Get(fingerprint)
	if err != nil {
		if !errors.Is(err, ttlcache.ErrNotFound) {
			log.Debugf("Error reading proposal cache: %+v", err)
		}
		return nil, false
	}
	result, ok := value.(*OptimizerResult)
	return result, ok
}

// Set stores a result under the fingerprint.
func (p *ProposalCache) Set(fingerprint string, result *OptimizerResult) error {
	return p.cache.Set(fingerprint, result)
}

// Invalidate drops the result for the fingerprint, if present.
func (p *ProposalCache) Invalidate(fingerprint string) {
	if err := p.cache.Remove(fingerprint); err != nil && !errors.Is(err, ttlcache.ErrNotFound) {
		log.Debugf("Error removing %s from proposal cache: %+v", fingerprint, err)
	}
}

// Len returns the number of live entries.
func (p *ProposalCache) Len() int {
	return p.cache.Count()
}

// Close stops the cache's expiration goroutine.
func (p *ProposalCache) Close() error {
	return p.cache.Close()
}

// Fingerprint hashes everything an optimization run depends on: brokers (with their states,
// racks, and capacities), the placement and load of every replica, and the goal names in
// priority order.
func Fingerprint(cluster *model.ClusterModel, goalsByPriority []goals.Goal) string {
	hash := fnv.New64a()

	writeInt := func(value int) {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(value))
		hash.Write(buf[:])
	}
	writeFloat := func(value float64) {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(value))
		hash.Write(buf[:])
	}
	writeString := func(value string) {
		writeInt(len(value))
		hash.Write([]byte(value))
	}
	writeLoad := func(load model.Load) {
		for _, value := range load {
			writeFloat(value)
		}
	}

	for _, broker := range cluster.Brokers() {
		writeInt(broker.ID())
		writeString(broker.Rack())
		writeString(string(broker.State()))
		writeLoad(broker.Capacity())
	}

	for _, tp := range cluster.TopicPartitions() {
		writeString(tp.Topic)
		writeInt(tp.Partition)
		for _, replica := range cluster.PartitionReplicas(tp) {
			writeInt(replica.BrokerID())
			writeInt(replica.OriginalBrokerID())
			if replica.IsLeader() {
				writeInt(1)
			} else {
				writeInt(0)
			}
			writeLoad(replica.Load())
		}
	}

	for _, goal := range goalsByPriority {
		writeString(goal.Name())
	}

	return fmt.Sprintf("%016x", hash.Sum64())
}

// CachedOptimizer wraps a GoalOptimizer with a ProposalCache.
type CachedOptimizer struct {
	optimizer *GoalOptimizer
	cache     *ProposalCache
}

// NewCachedOptimizer returns a new CachedOptimizer instance.
func NewCachedOptimizer(optimizer *GoalOptimizer, cache *ProposalCache) *CachedOptimizer {
	return &CachedOptimizer{
		optimizer: optimizer,
		cache:     cache,
	}
}

// Optimize returns the cached result for the cluster and goals if there is one, replaying its
// proposals onto the cluster so that the model ends in the same state as a fresh run would
// leave it. Otherwise it runs the optimizer and caches complete results. The second return
// value is true on a cache hit.
func (c *CachedOptimizer) Optimize(
	ctx context.Context,
	cluster *model.ClusterModel,
	goalsByPriority []goals.Goal,
	progress *OperationProgress,
) (*OptimizerResult, bool, error) {
	fingerprint := Fingerprint(cluster, goalsByPriority)

	if result, ok := c.cache.Get(fingerprint); ok {
		checkpoint := cluster.Checkpoint()
		if err := ApplyProposals(cluster, result.Proposals); err != nil {
			log.Warnf("Could not replay cached proposals, re-optimizing: %+v", err)
			if rollbackErr := cluster.Rollback(checkpoint); rollbackErr != nil {
				return nil, false, rollbackErr
			}
			c.cache.Invalidate(fingerprint)
		} else {
			log.Debugf("Using cached result %s for fingerprint %s", result.RunID, fingerprint)
			c.optimizer.config.Metrics.observeCache(true)
			return result, true, nil
		}
	}
	c.optimizer.config.Metrics.observeCache(false)

	result, err := c.optimizer.Optimizations(ctx, cluster, goalsByPriority, progress)
	if err != nil {
		return result, false, err
	}
	if err := c.cache.Set(fingerprint, result); err != nil {
		log.Warnf("Could not cache optimization result: %+v", err)
	}
	return result, false, nil
}
