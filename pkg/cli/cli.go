package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ghodss/yaml"
	"github.com/segmentio/goalctl/pkg/admin"
	"github.com/segmentio/goalctl/pkg/config"
	"github.com/segmentio/goalctl/pkg/goals"
	"github.com/segmentio/goalctl/pkg/model"
	"github.com/segmentio/goalctl/pkg/optimizer"
	"github.com/segmentio/goalctl/pkg/stats"
	"github.com/segmentio/goalctl/pkg/verify"
	log "github.com/sirupsen/logrus"
)

const (
	spinnerCharSet  = 36
	spinnerDuration = 200 * time.Millisecond
)

// OutputFormat is the format that command results are printed in.
type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

// ParseOutputFormat converts a string into an OutputFormat. The empty string is a table.
func ParseOutputFormat(format string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(format)) {
	case "", OutputFormatTable:
		return OutputFormatTable, nil
	case OutputFormatJSON:
		return OutputFormatJSON, nil
	case OutputFormatYAML:
		return OutputFormatYAML, nil
	default:
		return "", fmt.Errorf("Unrecognized output format: %s", format)
	}
}

// ClusterSource says where the cluster state comes from: either a snapshot file or a live
// cluster described by a cluster config.
type ClusterSource struct {
	SnapshotPath  string
	ClusterConfig *config.ClusterConfig

	// Topics limits the live state to a subset of topics; all topics are used if empty.
	Topics []string
}

// CLIRunner runs the goalctl commands and prints their results.
type CLIRunner struct {
	printer    func(f string, a ...interface{})
	out        io.Writer
	format     OutputFormat
	spinnerObj *spinner.Spinner
}

// NewCLIRunner returns a new CLIRunner. Logs and tables go through the printer; structured
// (json or yaml) results are written to out.
func NewCLIRunner(
	printer func(f string, a ...interface{}),
	out io.Writer,
	format OutputFormat,
	showSpinner bool,
) *CLIRunner {
	var spinnerObj *spinner.Spinner

	if showSpinner {
		spinnerObj = spinner.New(
			spinner.CharSets[spinnerCharSet],
			spinnerDuration,
			spinner.WithWriter(os.Stderr),
			spinner.WithHiddenCursor(true),
		)
		spinnerObj.Prefix = "Loading: "
	}

	return &CLIRunner{
		printer:    printer,
		out:        out,
		format:     format,
		spinnerObj: spinnerObj,
	}
}

// GetSnapshot loads a snapshot of the cluster from the argument source.
func (c *CLIRunner) GetSnapshot(
	ctx context.Context,
	source ClusterSource,
) (config.SnapshotConfig, error) {
	if source.SnapshotPath != "" {
		snapshot, err := config.LoadSnapshotFile(source.SnapshotPath)
		if err != nil {
			return config.SnapshotConfig{}, err
		}
		return snapshot, snapshot.Validate()
	}
	if source.ClusterConfig == nil {
		return config.SnapshotConfig{}, errors.New("Must set either a snapshot or a cluster config")
	}

	c.startSpinner()
	defer c.stopSpinner()

	adminClient, err := source.ClusterConfig.NewAdminClient(ctx)
	if err != nil {
		return config.SnapshotConfig{}, err
	}
	defer adminClient.Close()

	state, err := admin.GetClusterState(ctx, adminClient, source.Topics)
	if err != nil {
		return config.SnapshotConfig{}, err
	}
	log.Debugf(
		"Got state for cluster %s: %d brokers, %d partitions",
		state.ClusterID,
		len(state.Brokers),
		state.NumPartitions(),
	)

	snapshot := source.ClusterConfig.SnapshotFromState(state)
	return snapshot, snapshot.Validate()
}

// GetClusterModel loads the cluster from the argument source and converts it into a model.
func (c *CLIRunner) GetClusterModel(
	ctx context.Context,
	source ClusterSource,
) (*model.ClusterModel, error) {
	snapshot, err := c.GetSnapshot(ctx, source)
	if err != nil {
		return nil, err
	}
	return snapshot.ToClusterModel()
}

// WriteSnapshot writes the snapshot of a cluster as YAML to the argument path, or to the
// output if the path is empty.
func (c *CLIRunner) WriteSnapshot(
	ctx context.Context,
	source ClusterSource,
	outputPath string,
) error {
	snapshot, err := c.GetSnapshot(ctx, source)
	if err != nil {
		return err
	}

	contents, err := snapshot.ToYAML()
	if err != nil {
		return err
	}

	if outputPath == "" {
		_, err = c.out.Write(contents)
		return err
	}

	if err := os.WriteFile(outputPath, contents, 0644); err != nil {
		return fmt.Errorf("Error writing snapshot: %w", err)
	}
	c.printer(
		"Wrote snapshot with %d brokers and %d partitions to %s",
		len(snapshot.Spec.Brokers),
		len(snapshot.Spec.Partitions),
		outputPath,
	)
	return nil
}

// GetStats prints the per-broker stats of a cluster.
func (c *CLIRunner) GetStats(ctx context.Context, source ClusterSource) error {
	cluster, err := c.GetClusterModel(ctx, source)
	if err != nil {
		return err
	}

	clusterStats := stats.FromCluster(cluster)
	if c.format != OutputFormatTable {
		return c.writeStructured(clusterStats.JSONStructure())
	}

	c.printer("Broker stats:\n%s", stats.FormatBrokerStats(clusterStats))
	return nil
}

// ListGoals prints the goal catalog, along with the positions of the goals in the argument
// priority order.
func (c *CLIRunner) ListGoals(goalNames []string) error {
	constraint, err := model.NewBalancingConstraint(model.DefaultBalancingConstraintConfig())
	if err != nil {
		return err
	}

	entries, err := goalEntries(goalNames, constraint)
	if err != nil {
		return err
	}

	if c.format != OutputFormatTable {
		return c.writeStructured(entries)
	}

	c.printer("Goals:\n%s", formatGoalEntries(entries))
	return nil
}

// OptimizeConfig stores the settings of an optimize run.
type OptimizeConfig struct {
	Source          ClusterSource
	OptimizerConfig config.OptimizerConfig

	// CandidateGoals are alternative goal priority orders. If set, each one is optimized over
	// its own copy of the cluster, along with the configured order, and the best result wins.
	CandidateGoals [][]string

	Verify           bool
	ReassignmentPath string
	Metrics          *optimizer.Metrics
}

// Optimize generates proposals for the cluster, optionally verifying them and writing them
// out as a reassignment document. The verification results are empty if Verify is false.
//
// If the context is cancelled mid-run, the partial result is still printed and the
// cancellation error is returned.
func (c *CLIRunner) Optimize(
	ctx context.Context,
	optimizeConfig OptimizeConfig,
) (verify.VerificationResults, error) {
	cluster, err := c.GetClusterModel(ctx, optimizeConfig.Source)
	if err != nil {
		return verify.VerificationResults{}, err
	}

	constraint, err := optimizeConfig.OptimizerConfig.ToBalancingConstraint()
	if err != nil {
		return verify.VerificationResults{}, err
	}
	goalsByPriority, err := optimizeConfig.OptimizerConfig.GoalsByPriority(constraint)
	if err != nil {
		return verify.VerificationResults{}, err
	}

	goalOptimizer := optimizer.NewGoalOptimizer(
		constraint,
		optimizeConfig.OptimizerConfig.OptimizerSettings(optimizeConfig.Metrics),
	)

	var result *optimizer.OptimizerResult
	var runErr error

	if len(optimizeConfig.CandidateGoals) > 0 {
		goalLists := [][]goals.Goal{goalsByPriority}
		for _, names := range optimizeConfig.CandidateGoals {
			goalList, err := goals.FromNames(names, constraint)
			if err != nil {
				return verify.VerificationResults{}, err
			}
			goalLists = append(goalLists, goalList)
		}

		c.startSpinner()
		candidates, err := goalOptimizer.OptimizeCandidates(ctx, cluster, goalLists)
		c.stopSpinner()
		if err != nil {
			return verify.VerificationResults{}, err
		}

		best, err := optimizer.BestCandidate(candidates)
		if err != nil {
			return verify.VerificationResults{}, err
		}
		c.printer("Using candidate %d of %d", best.Index, len(candidates))

		cluster = best.Cluster
		goalsByPriority = best.Goals
		result = best.Result
	} else {
		progress := optimizer.NewOperationProgress()
		progress.OnUpdate(c.updateSpinner)

		c.startSpinner()
		result, runErr = goalOptimizer.Optimizations(ctx, cluster, goalsByPriority, progress)
		c.stopSpinner()

		if runErr != nil {
			if result == nil {
				return verify.VerificationResults{}, runErr
			}
			log.Warnf("Optimization did not finish, showing partial result: %+v", runErr)
		}
	}

	verificationResults := verify.VerificationResults{}
	if optimizeConfig.Verify {
		verifications, err := optimizeConfig.OptimizerConfig.GetVerifications()
		if err != nil {
			return verify.VerificationResults{}, err
		}
		verificationResults = verify.Verify(
			verify.VerifyConfig{
				Constraint:    constraint,
				Cluster:       cluster,
				Result:        result,
				Goals:         goalsByPriority,
				Verifications: verifications,
			},
		)
	}

	if optimizeConfig.ReassignmentPath != "" {
		if err := c.writeReassignment(optimizeConfig.ReassignmentPath, result); err != nil {
			return verificationResults, err
		}
	}

	if err := c.printOptimization(result, verificationResults, optimizeConfig.Verify); err != nil {
		return verificationResults, err
	}

	return verificationResults, runErr
}

func (c *CLIRunner) printOptimization(
	result *optimizer.OptimizerResult,
	verificationResults verify.VerificationResults,
	verified bool,
) error {
	if c.format != OutputFormatTable {
		return c.writeStructured(newOptimizeOutput(result, verificationResults))
	}

	c.printer("Goal summary:\n%s", optimizer.FormatGoalSummary(result))

	if len(result.Proposals) == 0 {
		c.printer("No proposals; the cluster already satisfies the goals")
	} else {
		c.printer(
			"Proposals (%d replica movements, %d leadership movements):\n%s",
			result.NumReplicaMovements(),
			result.NumLeaderMovements(),
			optimizer.FormatProposals(result.Proposals),
		)
	}

	if verified {
		c.printer("Verification:\n%s", verify.FormatResults(verificationResults))
	}
	return nil
}

func (c *CLIRunner) writeReassignment(path string, result *optimizer.OptimizerResult) error {
	contents, err := optimizer.ReassignmentJSON(result.Proposals)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, contents, 0644); err != nil {
		return fmt.Errorf("Error writing reassignment: %w", err)
	}
	c.printer("Wrote reassignment for %d partitions to %s", len(result.Proposals), path)
	return nil
}

func (c *CLIRunner) writeStructured(obj interface{}) error {
	var contents []byte
	var err error

	switch c.format {
	case OutputFormatYAML:
		contents, err = yaml.Marshal(obj)
	default:
		contents, err = json.MarshalIndent(obj, "", "  ")
		contents = append(contents, '\n')
	}
	if err != nil {
		return err
	}

	_, err = c.out.Write(contents)
	return err
}

func (c *CLIRunner) updateSpinner(snapshot optimizer.ProgressSnapshot) {
	if c.spinnerObj == nil {
		return
	}
	c.spinnerObj.Lock()
	c.spinnerObj.Suffix = " " + snapshot.String()
	c.spinnerObj.Unlock()
}

func (c *CLIRunner) startSpinner() {
	if c.spinnerObj != nil {
		c.spinnerObj.Start()
	}
}

func (c *CLIRunner) stopSpinner() {
	if c.spinnerObj != nil && c.spinnerObj.Active() {
		c.spinnerObj.Stop()
	}
}
