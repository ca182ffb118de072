package subcmd

import (
	"os"
	"strings"
	"time"

	"github.com/segmentio/goalctl/pkg/cli"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "periodically re-optimize a live cluster",
	Long: strings.Join(
		[]string{
			"Re-reads the cluster state every interval and optimizes it, logging a summary of",
			"each run. Results for an unchanged cluster are served from the proposal cache.",
			"Optimizer metrics can be exposed for prometheus with --metrics-addr.",
		},
		"\n",
	),
	Args:    cobra.NoArgs,
	PreRunE: watchPreRun,
	RunE:    watchRun,
}

type watchCmdConfig struct {
	goals           []string
	interval        time.Duration
	metricsAddr     string
	optimizerConfig string

	shared sharedOptions
}

var watchConfig watchCmdConfig

func init() {
	addOptimizerFlags(watchCmd, &watchConfig.optimizerConfig, &watchConfig.goals)
	watchCmd.Flags().DurationVar(
		&watchConfig.interval,
		"interval",
		time.Minute,
		"How often to re-optimize the cluster",
	)
	watchCmd.Flags().StringVar(
		&watchConfig.metricsAddr,
		"metrics-addr",
		"",
		"Address to serve prometheus metrics on, e.g. :9090",
	)

	addSharedFlags(watchCmd, &watchConfig.shared)
	RootCmd.AddCommand(watchCmd)
}

func watchPreRun(cmd *cobra.Command, args []string) error {
	return watchConfig.shared.validate()
}

func watchRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	optimizerConfig, err := loadOptimizerConfig(
		watchConfig.optimizerConfig,
		watchConfig.shared.expandEnv,
		watchConfig.goals,
	)
	if err != nil {
		return err
	}

	source, err := watchConfig.shared.getClusterSource()
	if err != nil {
		return err
	}

	cliRunner := cli.NewCLIRunner(log.Infof, os.Stdout, cli.OutputFormatTable, false)
	return cliRunner.Watch(
		ctx,
		cli.WatchConfig{
			Source:          source,
			OptimizerConfig: optimizerConfig,
			Interval:        watchConfig.interval,
			MetricsAddr:     watchConfig.metricsAddr,
		},
	)
}
