package app

import (
	"context"
	"os"
	"testing"

	"github.com/specialistvlad/buildtree/internal/testutil"
)

// setupAppTest creates a new app instance for system testing, logging at
// debug level into the returned buffer.
func setupAppTest(t *testing.T, cfg Config) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	testApp := NewApp(context.Background(), logBuffer, &cfg, nil)

	t.Cleanup(func() {
		_ = testApp.Close()
		if os.Getenv("BUILDTREE_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
