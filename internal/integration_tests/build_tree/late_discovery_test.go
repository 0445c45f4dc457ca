package integration_tests

import (
	"context"
	"testing"

	"github.com/specialistvlad/buildtree/internal/buildid"
	"github.com/specialistvlad/buildtree/internal/errors"
	"github.com/specialistvlad/buildtree/internal/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test for: a project discovered after its build was loaded is linked under
// its parent and can be locked like any other.
func TestBuildTree_LateDiscovery(t *testing.T) {
	// --- Arrange ---
	a, _ := newApp(t, map[string]string{"main.hcl": `build ":" { project "app" {} }`}, nil)
	require.NoError(t, a.LoadTree())
	ctx := context.Background()
	tree := a.Tree()

	reg, err := tree.ProjectsFor(ctx, buildid.RootBuild)
	require.NoError(t, err)
	appPath := buildid.MustParsePath(":app")
	parent, err := reg.Project(appPath)
	require.NoError(t, err)

	// --- Act ---
	late, err := tree.RegisterProject(ctx, reg.Build(), &project.Descriptor{
		Path: buildid.MustParsePath(":app:generated"),
	})
	require.NoError(t, err)
	_, dupErr := tree.RegisterProject(ctx, reg.Build(), &project.Descriptor{Path: appPath})

	var sawLate bool
	lockErr := tree.WithProjectLock(ctx, late.ID(), func(ctx context.Context, st *project.State) error {
		sawLate = st == late
		return nil
	})

	// --- Assert ---
	assert.Same(t, parent, late.Parent())
	assert.Contains(t, parent.Children(), late)
	assert.Equal(t, 3, reg.Len())
	assert.True(t, errors.IsConflict(dupErr), "got %v", dupErr)
	require.NoError(t, lockErr)
	assert.True(t, sawLate)
}
