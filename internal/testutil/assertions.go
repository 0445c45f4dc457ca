package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertLogged checks that the captured log output contains every fragment on
// one line.
func AssertLogged(t *testing.T, logs *SafeBuffer, fragments ...string) {
	t.Helper()

	for _, line := range strings.Split(logs.String(), "\n") {
		matched := true
		for _, f := range fragments {
			if !strings.Contains(line, f) {
				matched = false
				break
			}
		}
		if matched {
			return
		}
	}
	require.Failf(t, "log line not found", "no line contains all of %q in:\n%s", fragments, logs.String())
}

// AssertNoOverlap fails if any two records overlap in time.
func AssertNoOverlap(t *testing.T, records []ExecutionRecord) {
	t.Helper()
	for i := range records {
		for j := i + 1; j < len(records); j++ {
			require.Falsef(t, records[i].Overlaps(records[j]),
				"executions %d and %d overlap: %v-%v vs %v-%v", i, j,
				records[i].Start, records[i].End, records[j].Start, records[j].End)
		}
	}
}
