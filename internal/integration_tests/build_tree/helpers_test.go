package integration_tests

import (
	"context"
	"os"
	"testing"

	"github.com/specialistvlad/buildtree/internal/app"
	"github.com/specialistvlad/buildtree/internal/testutil"
)

// newApp writes files into a temporary tree directory and returns an app
// configured to load it, with debug logs captured in the returned buffer.
func newApp(t *testing.T, files map[string]string, mutate func(*app.Config)) (*app.App, *testutil.SafeBuffer) {
	t.Helper()

	cfg := app.Config{
		TreePath:    testutil.WriteFiles(t, files),
		LogFormat:   "text",
		LogLevel:    "debug",
		WorkerCount: 4,
		Action:      "touch",
		Rounds:      1,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	logs := &testutil.SafeBuffer{}
	a := app.NewApp(context.Background(), logs, &cfg, nil)
	t.Cleanup(func() {
		_ = a.Close()
		if os.Getenv("BUILDTREE_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return a, logs
}
