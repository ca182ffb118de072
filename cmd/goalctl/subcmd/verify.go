package subcmd

import (
	"fmt"
	"strings"

	"github.com/segmentio/goalctl/pkg/cli"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "optimize a cluster and check the result",
	Long: strings.Join(
		[]string{
			"Optimizes the cluster and runs the configured verifications against the result.",
			"Exits with an error if any of them fail.",
		},
		"\n",
	),
	Args:    cobra.NoArgs,
	PreRunE: verifyPreRun,
	RunE:    verifyRun,
}

type verifyCmdConfig struct {
	goals           []string
	optimizerConfig string

	shared sharedOptions
}

var verifyConfig verifyCmdConfig

func init() {
	addOptimizerFlags(verifyCmd, &verifyConfig.optimizerConfig, &verifyConfig.goals)
	addSharedFlags(verifyCmd, &verifyConfig.shared)
	RootCmd.AddCommand(verifyCmd)
}

func verifyPreRun(cmd *cobra.Command, args []string) error {
	return verifyConfig.shared.validate()
}

func verifyRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	optimizerConfig, err := loadOptimizerConfig(
		verifyConfig.optimizerConfig,
		verifyConfig.shared.expandEnv,
		verifyConfig.goals,
	)
	if err != nil {
		return err
	}

	source, err := verifyConfig.shared.getClusterSource()
	if err != nil {
		return err
	}

	cliRunner := newCLIRunner(verifyConfig.shared)
	results, err := cliRunner.Optimize(
		ctx,
		cli.OptimizeConfig{
			Source:          source,
			OptimizerConfig: optimizerConfig,
			Verify:          true,
		},
	)
	if err != nil {
		return err
	}

	if !results.AllOK() {
		return fmt.Errorf("%d verifications failed", len(results.Failed()))
	}
	return nil
}
