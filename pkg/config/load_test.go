package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDeviceConfig(t *testing.T, dir, filename, name string) {
	t.Helper()
	path := filepath.Join(dir, filename)
	err := os.WriteFile(path, []byte("name: "+name+"\nsources: []\ntargets: []\n"), 0o644)
	require.NoError(t, err)
}

func TestLoadDeviceConfigsOrdersByFilenamePrefix(t *testing.T) {
	dir := t.TempDir()
	writeDeviceConfig(t, dir, "20-generic.yaml", "generic")
	writeDeviceConfig(t, dir, "05-xbox.yaml", "xbox")
	writeDeviceConfig(t, dir, "10-steamdeck.yaml", "steamdeck")

	cfgs, err := LoadDeviceConfigs([]string{dir})
	require.NoError(t, err)
	require.Len(t, cfgs, 3)
	assert.Equal(t, []string{"xbox", "steamdeck", "generic"}, []string{cfgs[0].Name, cfgs[1].Name, cfgs[2].Name})
}

func TestLoadDeviceConfigsIsDeterministicAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 12; i++ {
		writeDeviceConfig(t, dir, string(rune('a'+i))+"-00-device.yaml", string(rune('a'+i))+"device")
	}

	first, err := LoadDeviceConfigs([]string{dir})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := LoadDeviceConfigs([]string{dir})
		require.NoError(t, err)
		require.Len(t, again, len(first))
		for j := range first {
			assert.Equal(t, first[j].Name, again[j].Name)
		}
	}
}

func TestLoadDeviceConfigsUnprefixedSortsLast(t *testing.T) {
	dir := t.TempDir()
	writeDeviceConfig(t, dir, "mouse.yaml", "mouse")
	writeDeviceConfig(t, dir, "00-gamepad.yaml", "gamepad")

	cfgs, err := LoadDeviceConfigs([]string{dir})
	require.NoError(t, err)
	require.Len(t, cfgs, 2)
	assert.Equal(t, "gamepad", cfgs[0].Name)
	assert.Equal(t, "mouse", cfgs[1].Name)
}

func TestPriorityFromFilename(t *testing.T) {
	assert.Equal(t, -10, priorityFromFilename("/etc/inputmuxd/devices.d/10-xbox.yaml"))
	assert.Equal(t, -5, priorityFromFilename("05-foo.yaml"))
	assert.Equal(t, -(1 << 30), priorityFromFilename("no-prefix.yaml"))
}
