package config

import "time"

// Config holds runtime settings for the vault client.
//
// Fields:
//   - ServerBaseURL: base URL of the remote vault service.
//   - VaultDir: directory holding per-user vault files.
//   - ExtensionListenAddr: loopback host:port for the browser extension
//     websocket server.
//   - SyncStaleAfter / SyncInterval: staleness threshold triggering a sync
//     and the scheduler's poll interval.
//   - DispatchInterval: extension dispatcher cycle delay.
//   - ClipboardClearAfter / ClipboardPollInterval: clipboard hygiene timer
//     and its poll interval.
type Config struct {
	ServerBaseURL         string
	VaultDir              string
	ExtensionListenAddr   string
	SyncStaleAfter        time.Duration
	SyncInterval          time.Duration
	DispatchInterval      time.Duration
	ClipboardClearAfter   time.Duration
	ClipboardPollInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "https://noodlespasswordvault.com"
	c.VaultDir = "vault"
	c.ExtensionListenAddr = "127.0.0.1:6969"
	c.SyncStaleAfter = 60 * time.Second
	c.SyncInterval = 1 * time.Second
	c.DispatchInterval = 100 * time.Millisecond
	c.ClipboardClearAfter = 30 * time.Second
	c.ClipboardPollInterval = 100 * time.Millisecond
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
