package stats

import (
	"bytes"
	"fmt"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/segmentio/goalctl/pkg/model"
	"github.com/segmentio/goalctl/pkg/util"
)

// FormatBrokerStats creates a pretty table from cluster broker stats, with a final row for the
// total.
func FormatBrokerStats(clusterStats ClusterBrokerStats) string {
	buf := &bytes.Buffer{}

	headers := []any{
		"ID",
		"Rack",
		"State",
		"Disk",
		"Disk %",
		"CPU %",
		"Leader\nNwIn",
		"Follower\nNwIn",
		"NwOut",
		"Potential\nNwOut",
		"Replicas",
		"Leaders",
	}

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

	for _, broker := range clusterStats.Brokers {
		printer := fmt.Sprintf
		if util.InTerminal() {
			switch broker.State {
			case model.BrokerStateDead:
				printer = color.New(color.FgRed).SprintfFunc()
			case model.BrokerStateNew:
				printer = color.New(color.FgGreen).SprintfFunc()
			}
		}

		table.Append(basicRow(
			printer("%d", broker.BrokerID),
			printer("%s", broker.Rack),
			printer("%s", string(broker.State)),
			broker.Basic,
		))
	}

	table.Append(basicRow("Total", "", "", clusterStats.Total))

	table.Render()
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

func basicRow(id string, rack string, state string, basic BasicStats) []string {
	diskPct := "n/a"
	if pct := basic.DiskUtilPct(); pct >= 0 {
		diskPct = fmt.Sprintf("%0.1f", pct)
	}

	return []string{
		id,
		rack,
		state,
		util.PrettyMB(basic.DiskMB),
		diskPct,
		fmt.Sprintf("%0.1f", basic.CPUPct),
		fmt.Sprintf("%0.1f", basic.LeaderNwInRate),
		fmt.Sprintf("%0.1f", basic.FollowerNwInRate),
		fmt.Sprintf("%0.1f", basic.NwOutRate),
		fmt.Sprintf("%0.1f", basic.PotentialNwOutRate),
		fmt.Sprintf("%d", basic.NumReplicas),
		fmt.Sprintf("%d", basic.NumLeaders),
	}
}
