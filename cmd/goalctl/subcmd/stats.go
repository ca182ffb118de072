package subcmd

import (
	"context"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "show the load and utilization of each broker",
	Args:    cobra.NoArgs,
	PreRunE: statsPreRun,
	RunE:    statsRun,
}

type statsCmdConfig struct {
	shared sharedOptions
}

var statsConfig statsCmdConfig

func init() {
	addSharedFlags(statsCmd, &statsConfig.shared)
	RootCmd.AddCommand(statsCmd)
}

func statsPreRun(cmd *cobra.Command, args []string) error {
	return statsConfig.shared.validate()
}

func statsRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	source, err := statsConfig.shared.getClusterSource()
	if err != nil {
		return err
	}

	return newCLIRunner(statsConfig.shared).GetStats(ctx, source)
}
