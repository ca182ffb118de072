package verify

import (
	"bytes"
	"fmt"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/segmentio/goalctl/pkg/util"
)

// FormatResults generates a pretty table from verification results.
func FormatResults(results VerificationResults) string {
	buf := &bytes.Buffer{}

	table := tablewriter.NewTable(buf,
		tablewriter.WithConfig(
			tablewriter.NewConfigBuilder().
				WithRowAutoWrap(tw.WrapNone).
				ForColumn(0).WithAlignment(tw.AlignLeft).Build().
				ForColumn(1).WithAlignment(tw.AlignCenter).Build().
				ForColumn(2).WithAlignment(tw.AlignLeft).Build().
				Build()),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{
				Left:   tw.Off,
				Top:    tw.On,
				Right:  tw.Off,
				Bottom: tw.On,
			},
		}),
	)
	table.Header("Verification", "OK", "Details")

	for _, result := range results.Results {
		var printer func(f string, a ...interface{}) string
		switch {
		case !util.InTerminal():
			printer = fmt.Sprintf
		case !result.OK:
			printer = color.New(color.FgRed).SprintfFunc()
		case result.Skipped:
			printer = color.New(color.Faint).SprintfFunc()
		default:
			printer = fmt.Sprintf
		}

		var okStr string
		switch {
		case !result.OK:
			okStr = "✗"
		case result.Skipped:
			okStr = "-"
		default:
			okStr = "✓"
		}

		table.Append(
			[]string{
				printer("%s", string(result.Name)),
				printer("%s", okStr),
				printer("%s", result.Description),
			},
		)
	}

	table.Render()
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
