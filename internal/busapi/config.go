package busapi

// ServerConfig represents the control bus server subcommand configuration.
type ServerConfig struct {
	Addr                 string `help:"control bus listen address" default:":7890" env:"INPUTMUXD_BUS_ADDR"`
	RequireLocalHostAuth bool   `help:"require authentication for clients connecting from localhost" default:"false" env:"INPUTMUXD_BUS_REQUIRE_LOCALHOST_AUTH"`
	// Password authenticates remote (non-localhost) clients. Always read from
	// a file, never passed on the command line.
	Password string `kong:"-"`
}
