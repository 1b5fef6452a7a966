package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/webstrike/ops"
)

func TestNew_CoversEveryOperationBinary(t *testing.T) {
	c := New()
	for _, op := range ops.Known() {
		_, ok := c.Tool(op.Binary)
		assert.True(t, ok, "no catalog entry for %s (operation %s)", op.Binary, op.ID)
	}
}

func TestIsInstalled_UsesProbe(t *testing.T) {
	c := New().WithProbe(func(binary string) bool { return binary == "nmap" })

	assert.True(t, c.IsInstalled("nmap"))
	assert.False(t, c.IsInstalled("sqlmap"))

	// Unknown tools are probed by name.
	assert.False(t, c.IsInstalled("mystery-tool"))
}

func TestInstallCommand(t *testing.T) {
	c := New()

	cmd, ok := c.InstallCommand("nuclei")
	require.True(t, ok)
	assert.Contains(t, cmd, "nuclei")

	_, ok = c.InstallCommand("mystery-tool")
	assert.False(t, ok)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tools:
  - name: nmap
    binary: /opt/scanners/nmap
    install: "brew install nmap"
  - name: gowitness
    install: "go install github.com/sensepost/gowitness@latest"
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	tool, ok := c.Tool("nmap")
	require.True(t, ok)
	assert.Equal(t, "/opt/scanners/nmap", tool.Binary)

	cmd, ok := c.InstallCommand("nmap")
	require.True(t, ok)
	assert.Equal(t, "brew install nmap", cmd)

	// New entries extend the defaults without dropping them.
	_, ok = c.Tool("gowitness")
	assert.True(t, ok)
	_, ok = c.Tool("sqlmap")
	assert.True(t, ok)
}

func TestLoad_Rejects(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("tools: [{binary: x}]"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err, "entries need a name")
}
