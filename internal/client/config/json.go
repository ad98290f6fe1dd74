package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/noodlevault/noodlevault/internal/flagx"
	"github.com/noodlevault/noodlevault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "30s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerBaseURL         string         `json:"server_base_url"`
	VaultDir              string         `json:"vault_dir"`
	ExtensionListenAddr   string         `json:"extension_listen_addr"`
	SyncStaleAfter        timex.Duration `json:"sync_stale_after"`
	SyncInterval          timex.Duration `json:"sync_interval"`
	DispatchInterval      timex.Duration `json:"dispatch_interval"`
	ClipboardClearAfter   timex.Duration `json:"clipboard_clear_after"`
	ClipboardPollInterval timex.Duration `json:"clipboard_poll_interval"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JSONConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Fields absent from the file keep their current values. Panics on read or
// unmarshal errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JSONConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerBaseURL != "" {
		cfg.ServerBaseURL = jc.ServerBaseURL
	}
	if jc.VaultDir != "" {
		cfg.VaultDir = jc.VaultDir
	}
	if jc.ExtensionListenAddr != "" {
		cfg.ExtensionListenAddr = jc.ExtensionListenAddr
	}
	if jc.SyncStaleAfter.Duration != 0 {
		cfg.SyncStaleAfter = time.Duration(jc.SyncStaleAfter.Duration)
	}
	if jc.SyncInterval.Duration != 0 {
		cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	}
	if jc.DispatchInterval.Duration != 0 {
		cfg.DispatchInterval = time.Duration(jc.DispatchInterval.Duration)
	}
	if jc.ClipboardClearAfter.Duration != 0 {
		cfg.ClipboardClearAfter = time.Duration(jc.ClipboardClearAfter.Duration)
	}
	if jc.ClipboardPollInterval.Duration != 0 {
		cfg.ClipboardPollInterval = time.Duration(jc.ClipboardPollInterval.Duration)
	}
}
