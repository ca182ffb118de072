package subcmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "save the state of a live cluster as a snapshot",
	Long: strings.Join(
		[]string{
			"Reads the brokers and partitions of a live cluster, combines them with the loads",
			"and capacities in the cluster config, and writes the result as a YAML snapshot",
			"that can be passed to the other commands with --snapshot.",
		},
		"\n",
	),
	Args:    cobra.NoArgs,
	PreRunE: snapshotPreRun,
	RunE:    snapshotRun,
}

type snapshotCmdConfig struct {
	outputFile string

	shared sharedOptions
}

var snapshotConfig snapshotCmdConfig

func init() {
	snapshotCmd.Flags().StringVar(
		&snapshotConfig.outputFile,
		"output-file",
		"",
		"Path to write the snapshot to; it's printed to stdout if unset",
	)

	addSharedFlags(snapshotCmd, &snapshotConfig.shared)
	RootCmd.AddCommand(snapshotCmd)
}

func snapshotPreRun(cmd *cobra.Command, args []string) error {
	return snapshotConfig.shared.validate()
}

func snapshotRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	source, err := snapshotConfig.shared.getClusterSource()
	if err != nil {
		return err
	}

	return newCLIRunner(snapshotConfig.shared).WriteSnapshot(
		ctx,
		source,
		snapshotConfig.outputFile,
	)
}
