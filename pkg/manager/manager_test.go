package manager_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/inputmux/inputmuxd/pkg/intercept"
	"github.com/inputmux/inputmuxd/pkg/manager"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func writeDeviceConfig(t *testing.T, name string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, name+".yaml")
	doc := "name: " + name + "\n" +
		"capability_map: generic_gamepad\n" +
		"profile: default\n" +
		"targets:\n  - kind: bus\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestManagerCreateFromPathAndUnmanage(t *testing.T) {
	mgr, err := manager.New(testLogger())
	require.NoError(t, err)

	path := writeDeviceConfig(t, "gamepad1")
	name, err := mgr.CreateFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "gamepad1", name)

	composites := mgr.ListComposites()
	require.Len(t, composites, 1)
	assert.Equal(t, "gamepad1", composites[0].Name)
	assert.False(t, composites[0].Running)

	profile, capMap, err := mgr.CompositeProfile("gamepad1")
	require.NoError(t, err)
	assert.Equal(t, "default", profile)
	assert.Equal(t, "generic_gamepad", capMap)

	// Not yet built by the hotplug matcher: target/capability queries
	// report empty rather than erroring.
	targets, err := mgr.TargetNames("gamepad1")
	require.NoError(t, err)
	assert.Empty(t, targets)

	require.NoError(t, mgr.Unmanage("gamepad1"))
	assert.Empty(t, mgr.ListComposites())
}

func TestManagerCompositeProfileUnknownComposite(t *testing.T) {
	mgr, err := manager.New(testLogger())
	require.NoError(t, err)

	_, _, err = mgr.CompositeProfile("nonexistent")
	assert.Error(t, err)
}

func TestManagerUnmanageUnknownComposite(t *testing.T) {
	mgr, err := manager.New(testLogger())
	require.NoError(t, err)

	assert.Error(t, mgr.Unmanage("nonexistent"))
}

func TestManagerSourceOwnerReportsUnowned(t *testing.T) {
	mgr, err := manager.New(testLogger())
	require.NoError(t, err)

	_, owned := mgr.SourceOwner("/dev/input/event7")
	assert.False(t, owned)
}

func TestManagerInterceptModeDefaultsToNone(t *testing.T) {
	mgr, err := manager.New(testLogger())
	require.NoError(t, err)
	assert.Equal(t, intercept.ModeNone, mgr.InterceptMode())

	mgr.SetInterceptMode(intercept.ModeAll)
	assert.Equal(t, intercept.ModeAll, mgr.InterceptMode())
}

func TestManagerSetCompositeInterceptModeRequiresRunningComposite(t *testing.T) {
	mgr, err := manager.New(testLogger())
	require.NoError(t, err)

	path := writeDeviceConfig(t, "gamepad1")
	_, err = mgr.CreateFromPath(path)
	require.NoError(t, err)

	// Registered but never built by the hotplug matcher, so it has no
	// running composite instance to apply the mode to.
	err = mgr.SetCompositeInterceptMode("gamepad1", intercept.ModePass)
	assert.Error(t, err)
}

func TestManagerTargetUnknownComposite(t *testing.T) {
	mgr, err := manager.New(testLogger())
	require.NoError(t, err)

	_, err = mgr.Target("nonexistent", "pad")
	assert.Error(t, err)
}
