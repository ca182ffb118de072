package subcmd

import (
	"os"

	"github.com/segmentio/goalctl/pkg/cli"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var goalsCmd = &cobra.Command{
	Use:     "goals",
	Short:   "list the available goals and their priorities",
	Args:    cobra.NoArgs,
	PreRunE: goalsPreRun,
	RunE:    goalsRun,
}

type goalsCmdConfig struct {
	expandEnv       bool
	goals           []string
	optimizerConfig string
	output          string
}

var goalsConfig goalsCmdConfig

func init() {
	addOptimizerFlags(goalsCmd, &goalsConfig.optimizerConfig, &goalsConfig.goals)
	goalsCmd.Flags().BoolVar(
		&goalsConfig.expandEnv,
		"expand-env",
		false,
		"Expand environment in optimizer config",
	)
	goalsCmd.Flags().StringVarP(
		&goalsConfig.output,
		"output",
		"o",
		string(cli.OutputFormatTable),
		"Output format (choices: table, json, or yaml)",
	)

	RootCmd.AddCommand(goalsCmd)
}

func goalsPreRun(cmd *cobra.Command, args []string) error {
	_, err := cli.ParseOutputFormat(goalsConfig.output)
	return err
}

func goalsRun(cmd *cobra.Command, args []string) error {
	optimizerConfig, err := loadOptimizerConfig(
		goalsConfig.optimizerConfig,
		goalsConfig.expandEnv,
		goalsConfig.goals,
	)
	if err != nil {
		return err
	}

	format, err := cli.ParseOutputFormat(goalsConfig.output)
	if err != nil {
		return err
	}

	cliRunner := cli.NewCLIRunner(log.Infof, os.Stdout, format, false)
	return cliRunner.ListGoals(optimizerConfig.Spec.Goals)
}
