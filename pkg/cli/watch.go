package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/goalctl/pkg/config"
	"github.com/segmentio/goalctl/pkg/goals"
	"github.com/segmentio/goalctl/pkg/optimizer"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const metricsShutdownTimeout = 5 * time.Second

// WatchConfig stores the settings of a watch run.
type WatchConfig struct {
	Source          ClusterSource
	OptimizerConfig config.OptimizerConfig
	Interval        time.Duration

	// MetricsAddr is the address that optimizer metrics are served on; metrics aren't served
	// if it's empty.
	MetricsAddr string
}

// Watch re-optimizes the cluster every interval until the context is done. Results for
// unchanged clusters come from the proposal cache.
func (c *CLIRunner) Watch(ctx context.Context, watchConfig WatchConfig) error {
	if watchConfig.Interval <= 0 {
		return fmt.Errorf("Watch interval must be positive, got %s", watchConfig.Interval)
	}

	registry := prometheus.NewRegistry()
	metrics := optimizer.NewMetrics(registry)

	constraint, err := watchConfig.OptimizerConfig.ToBalancingConstraint()
	if err != nil {
		return err
	}
	goalsByPriority, err := watchConfig.OptimizerConfig.GoalsByPriority(constraint)
	if err != nil {
		return err
	}
	ttl, err := watchConfig.OptimizerConfig.GetCacheTTL()
	if err != nil {
		return err
	}

	cache, err := optimizer.NewProposalCache(ttl)
	if err != nil {
		return err
	}
	defer cache.Close()

	cachedOptimizer := optimizer.NewCachedOptimizer(
		optimizer.NewGoalOptimizer(
			constraint,
			watchConfig.OptimizerConfig.OptimizerSettings(metrics),
		),
		cache,
	)

	eg, egCtx := errgroup.WithContext(ctx)

	if watchConfig.MetricsAddr != "" {
		server := &http.Server{
			Addr:    watchConfig.MetricsAddr,
			Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}

		eg.Go(func() error {
			log.Infof("Serving metrics on %s", watchConfig.MetricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("Error serving metrics: %w", err)
			}
			return nil
		})
		eg.Go(func() error {
			<-egCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	eg.Go(func() error {
		ticker := time.NewTicker(watchConfig.Interval)
		defer ticker.Stop()

		for {
			c.watchIteration(egCtx, watchConfig.Source, cachedOptimizer, goalsByPriority)

			select {
			case <-egCtx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	return eg.Wait()
}

// watchIteration runs a single optimization. Errors are logged so that one bad fetch doesn't
// stop the watch.
func (c *CLIRunner) watchIteration(
	ctx context.Context,
	source ClusterSource,
	cachedOptimizer *optimizer.CachedOptimizer,
	goalsByPriority []goals.Goal,
) {
	cluster, err := c.GetClusterModel(ctx, source)
	if err != nil {
		log.Errorf("Error loading cluster: %+v", err)
		return
	}

	result, cacheHit, err := cachedOptimizer.Optimize(ctx, cluster, goalsByPriority, nil)
	if err != nil {
		if ctx.Err() == nil {
			log.Errorf("Error optimizing cluster: %+v", err)
		}
		return
	}

	log.Infof(
		"Run %s (cached: %v): %d replica movements, %d leadership movements, violated goals: %v",
		result.RunID,
		cacheHit,
		result.NumReplicaMovements(),
		result.NumLeaderMovements(),
		result.ViolatedGoalsAfterOptimization,
	)
}
