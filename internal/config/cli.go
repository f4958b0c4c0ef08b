// Package config defines inputmuxd's top-level CLI structure: the Kong
// command tree and the logging flags every subcommand shares. Layered
// device/capability-map/profile/script documents live under pkg/config
// instead; this package is only about how the binary itself is invoked.
package config

import "github.com/inputmux/inputmuxd/internal/cmd"

// CLI is the root command Kong parses cmd/inputmuxd's arguments into.
type CLI struct {
	Daemon  cmd.Daemon         `cmd:"" help:"Run the manager and control bus server"`
	Config  cmd.ConfigCommand  `cmd:"" help:"Configuration file helpers"`
	Service cmd.ServiceCommand `cmd:"" help:"Manage the inputmuxd systemd service"`

	Log struct {
		Level   string `help:"Log level: trace, debug, info, warn, error" default:"info" env:"INPUTMUXD_LOG_LEVEL,LOG_LEVEL"`
		File    string `help:"Write logs to this file instead of stdout/stderr" env:"INPUTMUXD_LOG_FILE"`
		RawFile string `help:"Write a hexdump trace of every native/capability event to this file" env:"INPUTMUXD_LOG_RAW_FILE"`
	} `embed:"" prefix:"log."`
}
