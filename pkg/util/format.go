package util

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/ssh/terminal"
)

// InTerminal determines whether we're running in a terminal or not.
func InTerminal() bool {
	return terminal.IsTerminal(int(os.Stdout.Fd()))
}

// PrettyDuration returns a human-formatted duration string
// given a Go time.Duration value.
func PrettyDuration(duration time.Duration) string {
	seconds := duration.Seconds()

	switch {
	case seconds < 1.0:
		return fmt.Sprintf("%dms", duration.Milliseconds())
	case seconds < 240.0:
		return fmt.Sprintf("%ds", int(seconds))
	case seconds < (2.0 * 60.0 * 60.0):
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(duration.Hours()))
	}
}

// PrettyPercent formats a 0-1 ratio as a percentage. Negative values are rendered as "n/a".
func PrettyPercent(ratio float64) string {
	if ratio < 0 {
		return "n/a"
	}
	return fmt.Sprintf("%0.1f%%", ratio*100.0)
}

// PrettyMB formats a size in megabytes using the largest fitting unit.
func PrettyMB(mb float64) string {
	switch {
	case mb >= 1024.0*1024.0:
		return fmt.Sprintf("%0.1fTB", mb/(1024.0*1024.0))
	case mb >= 1024.0:
		return fmt.Sprintf("%0.1fGB", mb/1024.0)
	default:
		return fmt.Sprintf("%0.1fMB", mb)
	}
}

// TruncateStringMiddle truncates a string by replacing characters in the middle with
// "..." if needed.
func TruncateStringMiddle(input string, maxLen int, suffixLen int) (string, int) {
	if len(input)-3 <= maxLen {
		return input, 0
	}

	suffix := input[len(input)-suffixLen:]
	prefix := input[:maxLen-suffixLen-3]

	numOmitted := len(input) - len(prefix) - len(suffix)
	return fmt.Sprintf("%s...%s", prefix, suffix), numOmitted
}
