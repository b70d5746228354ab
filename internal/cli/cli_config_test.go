package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHomeConfig(t *testing.T, content string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	if content == "" {
		return
	}
	dir := filepath.Join(home, ".pveconf")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
}

func TestLoadCLIConfig(t *testing.T) {
	for _, env := range []string{"PVECONF_OUTPUT", "PVECONF_CLOUD_INIT", "PVECONF_NODE", "PVECONF_LISTEN"} {
		t.Setenv(env, "")
	}

	t.Run("defaults without a file", func(t *testing.T) {
		writeHomeConfig(t, "")

		cfg, err := LoadCLIConfig()
		require.NoError(t, err)
		assert.Equal(t, &CLIConfig{Output: OutputYAML, Listen: ":8080"}, cfg)
	})

	t.Run("file values", func(t *testing.T) {
		writeHomeConfig(t, "output: json\ncloudInit: local-lvm\nnode: pm1\nlisten: 127.0.0.1:9000\n")

		cfg, err := LoadCLIConfig()
		require.NoError(t, err)
		assert.Equal(t, &CLIConfig{Output: OutputJSON, CloudInit: "local-lvm", Node: "pm1", Listen: "127.0.0.1:9000"}, cfg)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		writeHomeConfig(t, "output: json\ncloudInit: local-lvm\n")
		t.Setenv("PVECONF_OUTPUT", "yaml")
		t.Setenv("PVECONF_CLOUD_INIT", "ceph")
		t.Setenv("PVECONF_NODE", "pm2")
		t.Setenv("PVECONF_LISTEN", ":9999")

		cfg, err := LoadCLIConfig()
		require.NoError(t, err)
		assert.Equal(t, &CLIConfig{Output: OutputYAML, CloudInit: "ceph", Node: "pm2", Listen: ":9999"}, cfg)
	})

	t.Run("malformed file", func(t *testing.T) {
		writeHomeConfig(t, "output: [json\n")

		_, err := LoadCLIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("unknown output format", func(t *testing.T) {
		writeHomeConfig(t, "output: xml\n")

		_, err := LoadCLIConfig()
		assert.Error(t, err)
	})
}
