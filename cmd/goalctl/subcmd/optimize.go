package subcmd

import (
	"os"
	"strings"

	"github.com/segmentio/goalctl/pkg/cli"
	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "compute rebalancing proposals for a cluster",
	Long: strings.Join(
		[]string{
			"Runs the goals, in priority order, over a model of the cluster and prints the",
			"resulting replica and leadership movements. Nothing is applied to the cluster;",
			"use --reassignment-file to write the proposals out for kafka-reassign-partitions.",
		},
		"\n",
	),
	Args:    cobra.NoArgs,
	PreRunE: optimizePreRun,
	RunE:    optimizeRun,
}

type optimizeCmdConfig struct {
	candidateGoals   []string
	goals            []string
	optimizerConfig  string
	reassignmentFile string
	verify           bool

	shared sharedOptions
}

var optimizeConfig optimizeCmdConfig

func init() {
	addOptimizerFlags(optimizeCmd, &optimizeConfig.optimizerConfig, &optimizeConfig.goals)
	optimizeCmd.Flags().StringArrayVar(
		&optimizeConfig.candidateGoals,
		"candidate-goals",
		[]string{},
		"Comma-separated alternative goal order; can be repeated, and the best candidate wins",
	)
	optimizeCmd.Flags().StringVar(
		&optimizeConfig.reassignmentFile,
		"reassignment-file",
		"",
		"Path to write the proposals to as a partition reassignment",
	)
	optimizeCmd.Flags().BoolVar(
		&optimizeConfig.verify,
		"verify",
		false,
		"Verify the optimization result",
	)

	addSharedFlags(optimizeCmd, &optimizeConfig.shared)
	RootCmd.AddCommand(optimizeCmd)
}

func addOptimizerFlags(cmd *cobra.Command, optimizerConfig *string, goals *[]string) {
	cmd.Flags().StringVar(
		optimizerConfig,
		"optimizer-config",
		os.Getenv("GOALCTL_OPTIMIZER_CONFIG"),
		"Optimizer config; the default goals and thresholds are used if unset",
	)
	cmd.Flags().StringSliceVar(
		goals,
		"goals",
		[]string{},
		"Goals in priority order; overrides the goals in the optimizer config",
	)
}

func optimizePreRun(cmd *cobra.Command, args []string) error {
	return optimizeConfig.shared.validate()
}

func optimizeRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	optimizerConfig, err := loadOptimizerConfig(
		optimizeConfig.optimizerConfig,
		optimizeConfig.shared.expandEnv,
		optimizeConfig.goals,
	)
	if err != nil {
		return err
	}

	source, err := optimizeConfig.shared.getClusterSource()
	if err != nil {
		return err
	}

	candidateGoals := [][]string{}
	for _, candidate := range optimizeConfig.candidateGoals {
		candidateGoals = append(candidateGoals, splitGoals(candidate))
	}

	cliRunner := newCLIRunner(optimizeConfig.shared)
	_, err = cliRunner.Optimize(
		ctx,
		cli.OptimizeConfig{
			Source:           source,
			OptimizerConfig:  optimizerConfig,
			CandidateGoals:   candidateGoals,
			Verify:           optimizeConfig.verify,
			ReassignmentPath: optimizeConfig.reassignmentFile,
		},
	)
	return err
}

func splitGoals(goalsStr string) []string {
	goals := []string{}
	for _, goal := range strings.Split(goalsStr, ",") {
		if trimmed := strings.TrimSpace(goal); trimmed != "" {
			goals = append(goals, trimmed)
		}
	}
	return goals
}
