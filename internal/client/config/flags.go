package config

import (
	"flag"
	"os"

	"github.com/noodlevault/noodlevault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the remote vault service
//	-d string   vault directory
//	-l string   listen address for the extension websocket server
//
// Note: The function filters os.Args to only include the flags it knows
// about, using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "base URL of the remote vault service")
	fs.StringVar(&cfg.VaultDir, "d", cfg.VaultDir, "directory holding vault files")
	fs.StringVar(&cfg.ExtensionListenAddr, "l", cfg.ExtensionListenAddr, "extension websocket listen address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
