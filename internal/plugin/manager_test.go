package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeManifest creates dir/name/plugin.json for m.
func writeManifest(t *testing.T, dir string, m Manifest) string {
	t.Helper()

	pluginDir := filepath.Join(dir, m.Name)
	require.NoError(t, os.MkdirAll(pluginDir, 0755))

	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "plugin.json"), data, 0644))
	return pluginDir
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()
	pluginDir := writeManifest(t, tmpDir, Manifest{
		Name:        "notify",
		Version:     "1.0.0",
		Description: "Desktop notifications",
		Executable:  "notify",
		Events:      []string{"poor_posture", "recovery"},
	})

	manager := NewManager(tmpDir)
	require.NoError(t, manager.Discover())

	plugins := manager.List()
	require.Len(t, plugins, 1)

	plugin := plugins[0]
	assert.Equal(t, "notify", plugin.Manifest.Name)
	assert.Equal(t, "1.0.0", plugin.Manifest.Version)
	assert.Equal(t, "Desktop notifications", plugin.Manifest.Description)
	assert.Len(t, plugin.Manifest.Events, 2)
	assert.Equal(t, pluginDir, plugin.Path)
	assert.Equal(t, filepath.Join(pluginDir, "notify"), plugin.Executable)
}

func TestManager_Discover_MultiplePlugins(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"plugin-b", "plugin-a"} {
		writeManifest(t, tmpDir, Manifest{Name: name, Version: "1.0.0", Executable: name})
	}

	manager := NewManager(tmpDir)
	require.NoError(t, manager.Discover())

	plugins := manager.List()
	require.Len(t, plugins, 2)
	assert.Equal(t, "plugin-a", plugins[0].Manifest.Name, "list is sorted by name")
}

func TestManager_Discover_EmptyDir(t *testing.T) {
	manager := NewManager(t.TempDir())
	require.NoError(t, manager.Discover())
	assert.Empty(t, manager.List())
}

func TestManager_Get(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, Manifest{Name: "my-plugin", Version: "2.0.0", Executable: "my-plugin-bin"})

	manager := NewManager(tmpDir)
	require.NoError(t, manager.Discover())

	plugin, err := manager.Get("my-plugin")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", plugin.Manifest.Version)
}

func TestManager_Get_NotFound(t *testing.T) {
	manager := NewManager(t.TempDir())

	_, err := manager.Get("nonexistent-plugin")
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestManager_PluginDir(t *testing.T) {
	manager := NewManager("/path/to/plugins")
	assert.Equal(t, "/path/to/plugins", manager.PluginDir())
}

func TestManager_Discover_SkipsBadManifests(t *testing.T) {
	tmpDir := t.TempDir()

	badDir := filepath.Join(tmpDir, "bad-plugin")
	require.NoError(t, os.MkdirAll(badDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(badDir, "plugin.json"), []byte("not valid json"), 0644))

	writeManifest(t, tmpDir, Manifest{Name: "no-exec", Version: "1.0.0"})

	manager := NewManager(tmpDir)
	require.NoError(t, manager.Discover())
	assert.Empty(t, manager.List())
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager("/path/that/does/not/exist")

	require.NoError(t, manager.Discover())
	assert.Empty(t, manager.List())
}

func TestPlugin_Handles(t *testing.T) {
	all := &Plugin{Manifest: Manifest{Name: "all"}}
	assert.True(t, all.Handles("poor_posture"))

	some := &Plugin{Manifest: Manifest{Name: "some", Events: []string{"recovery"}}}
	assert.True(t, some.Handles("recovery"))
	assert.False(t, some.Handles("poor_posture"))
}
