package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"server_base_url":       "https://vault.example:9000",
		"vault_dir":             "/tmp/vaults",
		"sync_stale_after":      "10s",
		"clipboard_clear_after": "45s",
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "https://vault.example:9000", cfg.ServerBaseURL)
		assert.Equal(t, "/tmp/vaults", cfg.VaultDir)
		assert.Equal(t, 10*time.Second, cfg.SyncStaleAfter)
		assert.Equal(t, 45*time.Second, cfg.ClipboardClearAfter)
		// Fields absent from the file keep their defaults.
		assert.Equal(t, 1*time.Second, cfg.SyncInterval)
		assert.Equal(t, "127.0.0.1:6969", cfg.ExtensionListenAddr)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			ServerBaseURL:  "https://defaults.example",
			SyncStaleAfter: 42 * time.Second,
		}
		parseJson(cfg)

		assert.Equal(t, "https://defaults.example", cfg.ServerBaseURL)
		assert.Equal(t, 42*time.Second, cfg.SyncStaleAfter)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
