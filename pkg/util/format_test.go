package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrettyDuration(t *testing.T) {
	type testCase struct {
		duration time.Duration
		expected string
	}

	testCases := []testCase{
		{
			duration: 5 * time.Millisecond,
			expected: "5ms",
		},
		{
			duration: 25*time.Second + 410*time.Millisecond,
			expected: "25s",
		},
		{
			duration: 30*time.Minute + 10*time.Second,
			expected: "30m",
		},
		{
			duration: 60*6*time.Minute + 15*time.Minute,
			expected: "6h",
		},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, PrettyDuration(testCase.duration))
	}
}

func TestPrettySizes(t *testing.T) {
	assert.Equal(t, "12.5%", PrettyPercent(0.125))
	assert.Equal(t, "n/a", PrettyPercent(-1.0))
	assert.Equal(t, "512.0MB", PrettyMB(512.0))
	assert.Equal(t, "2.0GB", PrettyMB(2048.0))
	assert.Equal(t, "1.5TB", PrettyMB(1.5*1024.0*1024.0))
}

func TestTruncateStringMiddle(t *testing.T) {
	result, numOmitted := TruncateStringMiddle("short", 10, 3)
	assert.Equal(t, "short", result)
	assert.Equal(t, 0, numOmitted)

	result, numOmitted = TruncateStringMiddle("abcdefghijklmnopqrstuvwxyz", 12, 4)
	assert.Equal(t, "abcde...wxyz", result)
	assert.Equal(t, 17, numOmitted)
}
