package cli

import (
	"bytes"
	"fmt"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/segmentio/goalctl/pkg/goals"
	"github.com/segmentio/goalctl/pkg/model"
	"github.com/segmentio/goalctl/pkg/optimizer"
	"github.com/segmentio/goalctl/pkg/util"
	"github.com/segmentio/goalctl/pkg/verify"
)

type goalEntry struct {
	Name string `json:"name"`
	Hard bool   `json:"hard"`

	// Priority is the 1-based position of the goal in the priority order, or 0 if the goal
	// isn't in it.
	Priority int `json:"priority"`
}

func goalEntries(
	goalNames []string,
	constraint *model.BalancingConstraint,
) ([]goalEntry, error) {
	priorities := map[string]int{}
	for i, name := range goalNames {
		priorities[name] = i + 1
	}

	entries := []goalEntry{}
	for _, name := range goals.Names() {
		goal, err := goals.New(name, constraint)
		if err != nil {
			return nil, err
		}
		entries = append(
			entries,
			goalEntry{
				Name:     name,
				Hard:     goal.IsHardGoal(),
				Priority: priorities[name],
			},
		)
	}

	return entries, nil
}

func formatGoalEntries(entries []goalEntry) string {
	buf := &bytes.Buffer{}

	headers := []any{"Name", "Type", "Priority"}
	configBuilder := tablewriter.NewConfigBuilder().WithRowAutoWrap(tw.WrapNone)
	for i := range headers {
		configBuilder = configBuilder.ForColumn(i).WithAlignment(tw.AlignLeft).Build()
	}

	table := tablewriter.NewTable(buf,
		tablewriter.WithConfig(configBuilder.Build()),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{
				Left:   tw.Off,
				Top:    tw.On,
				Right:  tw.Off,
				Bottom: tw.On,
			},
		}),
	)
	table.Header(headers...)

	for _, entry := range entries {
		goalType := "soft"
		if entry.Hard {
			goalType = "hard"
			if util.InTerminal() {
				goalType = color.New(color.FgYellow).Sprint(goalType)
			}
		}

		priority := "-"
		if entry.Priority > 0 {
			priority = fmt.Sprintf("%d", entry.Priority)
		}

		table.Append([]string{entry.Name, goalType, priority})
	}

	table.Render()
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

type optimizeOutput struct {
	RunID               string                 `json:"runID"`
	Cancelled           bool                   `json:"cancelled"`
	Duration            string                 `json:"duration"`
	GoalOrder           []string               `json:"goalOrder"`
	ViolatedGoals       []string               `json:"violatedGoals"`
	NumReplicaMovements int                    `json:"numReplicaMovements"`
	NumLeaderMovements  int                    `json:"numLeaderMovements"`
	Reassignment        optimizer.Reassignment `json:"reassignment"`
	Verifications       []verificationOutput   `json:"verifications,omitempty"`
}

type verificationOutput struct {
	Name        string `json:"name"`
	OK          bool   `json:"ok"`
	Skipped     bool   `json:"skipped,omitempty"`
	Description string `json:"description,omitempty"`
}

func newOptimizeOutput(
	result *optimizer.OptimizerResult,
	verificationResults verify.VerificationResults,
) optimizeOutput {
	output := optimizeOutput{
		RunID:               result.RunID,
		Cancelled:           result.Cancelled,
		Duration:            util.PrettyDuration(result.Duration),
		GoalOrder:           result.GoalOrder,
		ViolatedGoals:       result.ViolatedGoalsAfterOptimization,
		NumReplicaMovements: result.NumReplicaMovements(),
		NumLeaderMovements:  result.NumLeaderMovements(),
		Reassignment:        optimizer.NewReassignment(result.Proposals),
	}

	for _, verificationResult := range verificationResults.Results {
		output.Verifications = append(
			output.Verifications,
			verificationOutput{
				Name:        string(verificationResult.Name),
				OK:          verificationResult.OK,
				Skipped:     verificationResult.Skipped,
				Description: verificationResult.Description,
			},
		)
	}

	return output
}
