package optimizer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/segmentio/goalctl/pkg/model"
	"github.com/segmentio/goalctl/pkg/util"
)

const maxTopicLen = 40

func newTable(buf *bytes.Buffer, numColumns int) *tablewriter.Table {
	configBuilder := tablewriter.NewConfigBuilder().WithRowAutoWrap(tw.WrapNone)
	for i := 0; i < numColumns; i++ {
		configBuilder = configBuilder.ForColumn(i).WithAlignment(tw.AlignLeft).Build()
	}

	return tablewriter.NewTable(buf,
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
}

// FormatProposals creates a pretty table from a list of proposals.
func FormatProposals(proposals []ExecutionProposal) string {
	buf := &bytes.Buffer{}

	table := newTable(buf, 6)
	table.Header(
		"Topic",
		"Partition",
		"Old Replicas",
		"New Replicas",
		"Leader",
		"Actions",
	)

	var addedPrinter func(f string, a ...interface{}) string
	var removedPrinter func(f string, a ...interface{}) string
	if util.InTerminal() {
		addedPrinter = color.New(color.FgGreen).SprintfFunc()
		removedPrinter = color.New(color.FgRed).SprintfFunc()
	} else {
		addedPrinter = fmt.Sprintf
		removedPrinter = fmt.Sprintf
	}

	for _, proposal := range proposals {
		oldReplicas := []string{}
		removed := map[int]struct{}{}
		for _, brokerID := range proposal.ReplicasToRemove() {
			removed[brokerID] = struct{}{}
		}
		for _, brokerID := range proposal.OldReplicas {
			if _, ok := removed[brokerID]; ok {
				oldReplicas = append(oldReplicas, removedPrinter("%d", brokerID))
			} else {
				oldReplicas = append(oldReplicas, fmt.Sprintf("%d", brokerID))
			}
		}

		newReplicas := []string{}
		added := map[int]struct{}{}
		for _, brokerID := range proposal.ReplicasToAdd() {
			added[brokerID] = struct{}{}
		}
		for _, brokerID := range proposal.NewReplicas {
			if _, ok := added[brokerID]; ok {
				newReplicas = append(newReplicas, addedPrinter("%d", brokerID))
			} else {
				newReplicas = append(newReplicas, fmt.Sprintf("%d", brokerID))
			}
		}

		var leaderStr string
		if proposal.HasLeaderAction() {
			leaderStr = fmt.Sprintf("%d -> %d", proposal.OldLeader, proposal.NewLeader)
		} else {
			leaderStr = fmt.Sprintf("%d", proposal.NewLeader)
		}

		actions := []string{}
		if proposal.HasReplicaAction() {
			actions = append(actions, "replica")
		}
		if proposal.HasLeaderAction() {
			actions = append(actions, "leader")
		}

		topic, _ := util.TruncateStringMiddle(proposal.TopicPartition.Topic, maxTopicLen, 10)

		table.Append(
			[]string{
				topic,
				fmt.Sprintf("%d", proposal.TopicPartition.Partition),
				strings.Join(oldReplicas, ","),
				strings.Join(newReplicas, ","),
				leaderStr,
				strings.Join(actions, ","),
			},
		)
	}

	table.Render()
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// FormatGoalSummary creates a pretty table with one row per goal in the order they were run,
// showing the balance of the cluster after each one.
func FormatGoalSummary(result *OptimizerResult) string {
	buf := &bytes.Buffer{}

	table := newTable(buf, 7)
	table.Header(
		"Goal",
		"Satisfied",
		"Replica\nStdDev",
		"Leader\nStdDev",
		"Disk\nStdDev",
		"CPU\nStdDev",
		"NwOut\nStdDev",
	)

	appendRow := func(name string, okStr string, stats model.ClusterModelStats, printer func(f string, a ...interface{}) string) {
		table.Append(
			[]string{
				printer("%s", name),
				printer("%s", okStr),
				printer("%0.3f", stats.ReplicaCount.StdDev()),
				printer("%0.3f", stats.LeaderCount.StdDev()),
				printer("%0.3f", stats.Utilization[model.ResourceDisk].StdDev()),
				printer("%0.3f", stats.Utilization[model.ResourceCPU].StdDev()),
				printer("%0.3f", stats.Utilization[model.ResourceNetworkOutbound].StdDev()),
			},
		)
	}

	appendRow("(initial)", "", result.PreOptimizedStats, fmt.Sprintf)

	for _, name := range result.GoalOrder {
		printer := fmt.Sprintf
		okStr := "✓"

		if result.IsViolated(name) {
			okStr = "✗"
			if util.InTerminal() {
				printer = color.New(color.FgRed).SprintfFunc()
			}
		}

		appendRow(name, okStr, result.StatsByGoal[name], printer)
	}

	table.Render()
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
